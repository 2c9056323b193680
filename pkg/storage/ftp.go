package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"os"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPConfig configures the FTP storage backend.
type FTPConfig struct {
	Host     string
	User     string
	Password string
	// RootDir is the remote directory all keys are stored under.
	RootDir string
	// PublicBaseURL is the HTTP base under which stored objects are
	// served (the FTP server's web root).
	PublicBaseURL string
	Timeout       time.Duration
}

// FTPClient stores objects on an FTP server fronted by a static web host.
type FTPClient struct {
	cfg FTPConfig
}

// NewFTPClient creates an FTP-backed storage client.
func NewFTPClient(cfg FTPConfig) *FTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.User == "" {
		cfg.User = "anonymous"
		cfg.Password = "anonymous@"
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &FTPClient{cfg: cfg}
}

func (c *FTPClient) dial(ctx context.Context) (*ftp.ServerConn, error) {
	host := c.cfg.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(c.cfg.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}
	if err := conn.Login(c.cfg.User, c.cfg.Password); err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "ftp login")
	}
	return conn, nil
}

func (c *FTPClient) remotePath(key string) string {
	if c.cfg.RootDir == "" {
		return key
	}
	return path.Join(c.cfg.RootDir, key)
}

// Upload stores the local file under key.
func (c *FTPClient) Upload(ctx context.Context, localPath, key string) (*Object, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, eris.Wrapf(err, "ftp: open %s", localPath)
	}
	defer f.Close()
	return c.store(ctx, key, f)
}

// Put stores raw bytes under key. The content type is implied by the key
// extension on the serving side.
func (c *FTPClient) Put(ctx context.Context, key string, data []byte, _ string) (*Object, error) {
	return c.store(ctx, key, bytes.NewReader(data))
}

func (c *FTPClient) store(ctx context.Context, key string, r io.Reader) (*Object, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	remote := c.remotePath(key)
	if dir := path.Dir(remote); dir != "." && dir != "/" {
		// Best effort; the directory usually exists already.
		_ = conn.MakeDir(dir)
	}
	if err := conn.Stor(remote, r); err != nil {
		return nil, eris.Wrapf(err, "ftp store %s", remote)
	}

	return &Object{URL: c.cfg.PublicBaseURL + "/" + key, Key: key}, nil
}

// Get retrieves the bytes stored under key, or ErrNotFound when the
// server reports the file missing.
func (c *FTPClient) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	resp, err := conn.Retr(c.remotePath(key))
	if err != nil {
		if isFTPNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "ftp retrieve %s", key)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, eris.Wrap(err, "ftp read")
	}
	return data, nil
}

func isFTPNotFound(err error) bool {
	var proto *textproto.Error
	if errors.As(err, &proto) {
		return proto.Code == ftp.StatusFileUnavailable
	}
	return false
}
