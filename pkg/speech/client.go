// Package speech provides a client for the dialogue text-to-speech
// synthesis API.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/tutorlane/lesson-cli/internal/resilience"
)

// Client defines the speech synthesis operations.
type Client interface {
	// Synthesize renders the dialogue lines to a single audio file at
	// req.OutputPath and returns its duration.
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
}

// Line is one utterance to synthesize.
type Line struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Voice   string  `json:"voice,omitempty"`
	Accent  string  `json:"accent,omitempty"`
	Speed   float64 `json:"speed,omitempty"`
}

// SynthesisRequest describes one synthesis call.
type SynthesisRequest struct {
	Lines []Line `json:"lines"`
	// Format is the audio container; defaults to "mp3".
	Format string `json:"format,omitempty"`
	// Mode selects the synthesis profile (e.g. "dialogue", "narration").
	Mode string `json:"mode,omitempty"`
	// OutputPath is where the audio file is written locally.
	OutputPath string `json:"-"`
}

// SynthesisResult reports the produced artifact.
type SynthesisResult struct {
	LocalPath string  `json:"local_path"`
	Duration  float64 `json:"duration_secs"`
	Bytes     int     `json:"bytes"`
}

// synthesisResponse is the wire response.
type synthesisResponse struct {
	AudioBase64 string  `json:"audio_base64"`
	Duration    float64 `json:"duration_secs"`
}

// Option configures the speech client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new speech synthesis client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.speechly.dev",
		http: &http.Client{
			// Synthesis of a full lesson can take a while.
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	if len(req.Lines) == 0 {
		return nil, eris.New("speech: no lines to synthesize")
	}
	if req.OutputPath == "" {
		return nil, eris.New("speech: output path required")
	}
	if req.Format == "" {
		req.Format = "mp3"
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "speech: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "speech: create request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "speech: request failed")
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, eris.Wrap(readErr, "speech: read response body")
	}

	if resilience.IsRetryableHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("speech: status %d: %s", resp.StatusCode, string(body)),
			resp.StatusCode,
		)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("speech: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed synthesisResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "speech: unmarshal response")
	}

	audio, err := base64.StdEncoding.DecodeString(parsed.AudioBase64)
	if err != nil {
		return nil, eris.Wrap(err, "speech: decode audio")
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return nil, eris.Wrapf(err, "speech: mkdir for %s", req.OutputPath)
	}
	if err := os.WriteFile(req.OutputPath, audio, 0o644); err != nil {
		return nil, eris.Wrapf(err, "speech: write %s", req.OutputPath)
	}

	return &SynthesisResult{
		LocalPath: req.OutputPath,
		Duration:  parsed.Duration,
		Bytes:     len(audio),
	}, nil
}
