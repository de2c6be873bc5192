// Package notify delivers voice pipeline events to an optional webhook so
// other tooling can react to transcripts and failures.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openclaw/voiced/internal/util"
)

// WebhookPayload is the JSON body posted to the configured webhook.
type WebhookPayload struct {
	Event      string `json:"event"`
	Transcript string `json:"transcript,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Device     string `json:"device,omitempty"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// SendTranscriptWebhook notifies the webhook of a completed transcription.
func SendTranscriptWebhook(webhookURL, transcript string, durationMs int64) error {
	return sendWebhook(webhookURL, &WebhookPayload{
		Event:      "transcript",
		Transcript: transcript,
		DurationMs: durationMs,
		Timestamp:  timestampUTC(),
	})
}

// SendErrorWebhook notifies the webhook of a capture or transcription failure.
func SendErrorWebhook(webhookURL, event string, err error) error {
	return sendWebhook(webhookURL, &WebhookPayload{
		Event:     event,
		Error:     err.Error(),
		Timestamp: timestampUTC(),
	})
}

// SendTestWebhook sends a test notification so users can verify their URL.
func SendTestWebhook(webhookURL string) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	return sendWebhook(webhookURL, &WebhookPayload{
		Event:     "test",
		Message:   "This is a test notification from voiced",
		Timestamp: timestampUTC(),
	})
}

// sendWebhook delivers a notification to the configured webhook endpoint.
func sendWebhook(webhookURL string, payload *WebhookPayload) error {
	if !util.IsConfigured(webhookURL) {
		return nil // Silently skip if not configured
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return util.WrapError("marshal payload", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return util.WrapError("send webhook request", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close webhook response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// timestampUTC returns the current time formatted for webhook payloads.
func timestampUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}
