package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"emojipress/config"
	"emojipress/report"
)

// NtfySender sends push notifications via ntfy.sh
type NtfySender struct {
	cfg    config.NtfyConfig
	client *http.Client
	logger *zap.Logger
}

// NewNtfySender creates a new ntfy sender
func NewNtfySender(cfg config.NtfyConfig, client *http.Client, logger *zap.Logger) *NtfySender {
	if client == nil {
		client = http.DefaultClient
	}
	return &NtfySender{cfg: cfg, client: client, logger: logger}
}

// Name identifies the notifier in logs
func (n *NtfySender) Name() string {
	return "ntfy"
}

// Notify publishes the run headline to the configured topic
func (n *NtfySender) Notify(ctx context.Context, r *report.Report) error {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(n.cfg.Server, "/"), n.cfg.Topic)

	// Send message as body, metadata as headers
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(r.Headline()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	tag := "white_check_mark"
	if r.Summary.SuccessfulFiles < r.Summary.TotalFiles {
		tag = "warning"
	}

	req.Header.Set("Title", "Emoji compression finished")
	req.Header.Set("Priority", fmt.Sprintf("%d", n.cfg.Priority))
	req.Header.Set("Tags", tag)
	if n.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.Token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	n.logger.Info("ntfy notification sent", zap.String("topic", n.cfg.Topic))
	return nil
}
