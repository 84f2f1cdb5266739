package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	ghctrl "github.com/m-mizutani/drover/pkg/controller/github"
	"github.com/m-mizutani/drover/pkg/utils/async"
)

// WebhookHandler handles GitHub webhooks
type WebhookHandler struct {
	processor *ghctrl.EventProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(processor *ghctrl.EventProcessor) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
	}
}

// Handle processes webhook requests. The event is handed off to the
// processor asynchronously: handler failures are logged, never reflected in
// the webhook response. The bot's only user-visible failure channel is the
// status comment it posts back to the issue.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		writeError(w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	eventType := r.Header.Get("X-GitHub-Event")
	payload, err := github.ParseWebHook(eventType, body)
	if err != nil {
		logger.Error("Failed to parse webhook payload", "error", err, "event_type", eventType)
		writeError(w, goerr.Wrap(err, "invalid JSON payload"), http.StatusBadRequest)
		return
	}

	logger.Info("Received webhook event",
		"id", r.Header.Get("X-GitHub-Delivery"),
		"event_type", eventType,
	)

	async.Dispatch(ctx, func(ctx context.Context) error {
		return h.processor.Process(ctx, payload)
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	}); err != nil {
		logger.Error("Failed to encode success response", "error", err)
	}
}
