package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"eventlottery/internal/domain"
)

// Config holds configuration for creating a notifier client.
type Config struct {
	// Provider selects the transport: "webhook" posts requests to the
	// notification collaborator service; "log" (or unknown) only logs.
	Provider string
	// WebhookURL is the collaborator endpoint for the webhook provider.
	WebhookURL string
}

// NewNotifier creates a Notifier from config. The collaborator behind it
// owns inbox persistence and push delivery per recipient, tolerating
// per-recipient failure without failing the batch.
func NewNotifier(config Config, client *http.Client, logger *slog.Logger) domain.Notifier {
	switch config.Provider {
	case "webhook":
		if client == nil {
			client = http.DefaultClient
		}
		return &webhookNotifier{
			client: client,
			url:    config.WebhookURL,
		}
	case "log":
		return &logNotifier{logger: logger}
	default:
		logger.Warn("unknown notifier provider, using log", "provider", config.Provider)
		return &logNotifier{logger: logger}
	}
}

type webhookNotifier struct {
	client *http.Client
	url    string
}

func (n *webhookNotifier) Dispatch(ctx context.Context, req *domain.NotificationRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode notification request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to reach notification service: %w", err)
	}
	defer resp.Body.Close()

	// 2xx means the collaborator accepted the batch; per-recipient
	// delivery failures are its concern, not ours.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification service returned status: %d", resp.StatusCode)
	}
	return nil
}

type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) Dispatch(ctx context.Context, req *domain.NotificationRequest) error {
	n.logger.Info("notification would be dispatched",
		"request_id", req.ID,
		"category", string(req.Category),
		"event_id", req.EventID,
		"recipients", len(req.RecipientIDs),
		"title", req.Title,
	)
	return nil
}
