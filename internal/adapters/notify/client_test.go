package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventlottery/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sampleRequest() *domain.NotificationRequest {
	return &domain.NotificationRequest{
		ID:           "req-1",
		RecipientIDs: []string{"user-1", "user-2"},
		Title:        "You're in the draw",
		Body:         "Wave 2 has completed.",
		EventID:      "ev-1",
		Category:     domain.NotificationSelected,
	}
}

func TestWebhookNotifier_Dispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the request as json", func(t *testing.T) {
		var got domain.NotificationRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		notifier := NewNotifier(Config{Provider: "webhook", WebhookURL: server.URL}, server.Client(), discardLogger())

		require.NoError(t, notifier.Dispatch(ctx, sampleRequest()))
		assert.Equal(t, "req-1", got.ID)
		assert.Equal(t, []string{"user-1", "user-2"}, got.RecipientIDs)
		assert.Equal(t, domain.NotificationSelected, got.Category)
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		notifier := NewNotifier(Config{Provider: "webhook", WebhookURL: server.URL}, server.Client(), discardLogger())

		err := notifier.Dispatch(ctx, sampleRequest())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("unreachable service is an error", func(t *testing.T) {
		notifier := NewNotifier(Config{Provider: "webhook", WebhookURL: "http://127.0.0.1:1"}, nil, discardLogger())

		require.Error(t, notifier.Dispatch(ctx, sampleRequest()))
	})
}

func TestLogNotifier_Dispatch(t *testing.T) {
	t.Run("log provider never fails", func(t *testing.T) {
		notifier := NewNotifier(Config{Provider: "log"}, nil, discardLogger())
		require.NoError(t, notifier.Dispatch(context.Background(), sampleRequest()))
	})

	t.Run("unknown provider falls back to log", func(t *testing.T) {
		notifier := NewNotifier(Config{Provider: "carrier-pigeon"}, nil, discardLogger())
		require.NoError(t, notifier.Dispatch(context.Background(), sampleRequest()))
	})
}
