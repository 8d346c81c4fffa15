package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"FinSight/internal/domain/models"
	"FinSight/internal/domain/repository"
	applogger "FinSight/pkg/logger"
)

// AnalysisEventsHandler consumes completion events from the broker and lands
// them in the result store. Malformed payloads are dropped, not retried.
type AnalysisEventsHandler struct {
	topic  string
	store  repository.ResultStore
	logger *applogger.Logger
}

// NewAnalysisEventsHandler creates the event stream handler.
func NewAnalysisEventsHandler(topic string, store repository.ResultStore, l *applogger.Logger) *AnalysisEventsHandler {
	return &AnalysisEventsHandler{
		topic:  topic,
		store:  store,
		logger: l,
	}
}

// Topic returns the consumed topic.
func (h *AnalysisEventsHandler) Topic() string {
	return h.topic
}

// Handle decodes one completion event and stores it.
func (h *AnalysisEventsHandler) Handle(ctx context.Context, payload []byte) error {
	var event models.AnalysisEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		if h.logger != nil {
			h.logger.Warn("dropping malformed analysis event", applogger.Error(err))
		}
		return nil
	}
	if event.Ticker == "" {
		if h.logger != nil {
			h.logger.Warn("dropping analysis event without ticker")
		}
		return nil
	}

	if err := h.store.StoreAnalysisResult(ctx, event); err != nil {
		return fmt.Errorf("store analysis result for %s: %w", event.Ticker, err)
	}

	if h.logger != nil {
		h.logger.Debug("analysis result stored",
			applogger.String("ticker", event.Ticker),
			applogger.String("agent", event.Agent),
		)
	}
	return nil
}
