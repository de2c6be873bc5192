// Package transcription provides the HTTP client for the external
// speech-to-text service. The service is an opaque collaborator; this
// package only uploads WAV audio and returns the transcript text.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/openclaw/voiced/internal/util"
)

// DefaultTimeout bounds one transcription request including upload.
const DefaultTimeout = 60 * time.Second

// Config contains transcription client configuration.
type Config struct {
	Endpoint string        // transcription API URL
	APIKey   string        // bearer token, empty for unauthenticated endpoints
	Model    string        // model name forwarded to the service, optional
	Timeout  time.Duration // per-request timeout (0 = DefaultTimeout)
}

// Client posts WAV utterances to a transcription endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a transcription client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// transcriptResponse is the service reply. Only the text field is consumed.
type transcriptResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads one WAV utterance and returns the transcript.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if c.cfg.Endpoint == "" {
		return "", fmt.Errorf("transcription endpoint not configured")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return "", util.WrapError("create form file", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", util.WrapError("write audio payload", err)
	}
	if c.cfg.Model != "" {
		if err := writer.WriteField("model", c.cfg.Model); err != nil {
			return "", util.WrapError("write model field", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", util.WrapError("finalize upload body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return "", util.WrapError("build transcription request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", util.WrapError("send transcription request", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only response body

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("transcription service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var result transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", util.WrapError("decode transcription response", err)
	}

	return result.Text, nil
}
