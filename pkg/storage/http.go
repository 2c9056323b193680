package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/tutorlane/lesson-cli/internal/resilience"
)

// HTTPOption configures the HTTP storage client.
type HTTPOption func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(u string) HTTPOption {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithPublicBaseURL sets the base URL returned in object descriptors when
// it differs from the API endpoint (e.g., a CDN domain).
func WithPublicBaseURL(u string) HTTPOption {
	return func(c *httpClient) {
		c.publicBaseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey        string
	baseURL       string
	publicBaseURL string
	http          *http.Client
}

// NewHTTPClient creates an object storage client speaking plain
// authenticated PUT/GET against a key-addressed HTTP store.
func NewHTTPClient(apiKey, baseURL string, opts ...HTTPOption) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.publicBaseURL == "" {
		c.publicBaseURL = c.baseURL
	}
	return c
}

func (c *httpClient) objectURL(key string) string {
	return c.publicBaseURL + "/" + url.PathEscape(key)
}

func (c *httpClient) Upload(ctx context.Context, localPath, key string) (*Object, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: read %s", localPath)
	}
	return c.Put(ctx, key, data, contentTypeFor(localPath))
}

func (c *httpClient) Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error) {
	reqURL := c.baseURL + "/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqURL, bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "storage: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: put %s", key)
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, eris.Wrap(readErr, "storage: read response body")
	}

	if resilience.IsRetryableHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("storage: put %s: status %d: %s", key, resp.StatusCode, string(body)),
			resp.StatusCode,
		)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return nil, eris.Errorf("storage: put %s: unexpected status %d: %s", key, resp.StatusCode, string(body))
	}

	return &Object{URL: c.objectURL(key), Key: key}, nil
}

func (c *httpClient) Get(ctx context.Context, key string) ([]byte, error) {
	reqURL := c.baseURL + "/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "storage: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: get %s", key)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "storage: read response body")
	}
	if resilience.IsRetryableHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("storage: get %s: status %d", key, resp.StatusCode),
			resp.StatusCode,
		)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("storage: get %s: unexpected status %d: %s", key, resp.StatusCode, string(body))
	}
	return body, nil
}

func contentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(path, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(path, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
