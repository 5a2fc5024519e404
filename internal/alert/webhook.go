package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oszuidwest/zwfm-levelmeter/internal/util"
)

const webhookTimeout = 10 * time.Second

// sendSilenceWebhook posts to the webhook URL when silence is confirmed.
func sendSilenceWebhook(webhookURL string, duration, threshold float64) error {
	return sendWebhook(webhookURL, map[string]any{
		"event":            "silence_detected",
		"silence_duration": duration,
		"threshold":        threshold,
		"timestamp":        util.RFC3339Now(),
	})
}

// sendRecoveryWebhook posts to the webhook URL when audio recovers.
func sendRecoveryWebhook(webhookURL string, silenceDuration float64) error {
	return sendWebhook(webhookURL, map[string]any{
		"event":            "silence_recovered",
		"silence_duration": silenceDuration,
		"timestamp":        util.RFC3339Now(),
	})
}

// sendOverloadWebhook posts to the webhook URL when a channel overloads.
func sendOverloadWebhook(webhookURL string, peakDB float64) error {
	return sendWebhook(webhookURL, map[string]any{
		"event":     "overload",
		"peak_db":   peakDB,
		"timestamp": util.RFC3339Now(),
	})
}

// sendTestWebhook posts a test payload to verify webhook configuration.
func sendTestWebhook(webhookURL string) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook URL not configured")
	}
	return sendWebhook(webhookURL, map[string]any{
		"event":     "test",
		"timestamp": util.RFC3339Now(),
	})
}

// sendWebhook delivers a JSON payload to the webhook URL.
func sendWebhook(webhookURL string, payload map[string]any) error {
	if webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return util.WrapError("marshal webhook payload", err)
	}

	client := &http.Client{Timeout: webhookTimeout}
	resp, err := client.Post(webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return util.WrapError("send webhook", err)
	}
	defer util.SafeCloseFunc(resp.Body, "webhook response body")()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
