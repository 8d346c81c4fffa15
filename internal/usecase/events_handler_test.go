package usecase

import (
	"context"
	"fmt"
	"testing"

	"FinSight/internal/domain/models"
)

type recordingResultStore struct {
	events []models.AnalysisEvent
	err    error
}

func (r *recordingResultStore) StoreAnalysisResult(ctx context.Context, event models.AnalysisEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func TestEventsHandlerStoresEvent(t *testing.T) {
	store := &recordingResultStore{}
	h := NewAnalysisEventsHandler("analyst-events", store, nil)

	if h.Topic() != "analyst-events" {
		t.Fatalf("unexpected topic %q", h.Topic())
	}

	payload := []byte(`{"ticker":"AAPL","agent":"SENTIMENT","summary":"bullish...","timestamp":"2026-08-30T12:00:00Z"}`)
	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.events) != 1 || store.events[0].Ticker != "AAPL" || store.events[0].Agent != "SENTIMENT" {
		t.Fatalf("unexpected stored events %v", store.events)
	}
}

func TestEventsHandlerDropsMalformed(t *testing.T) {
	store := &recordingResultStore{}
	h := NewAnalysisEventsHandler("analyst-events", store, nil)

	if err := h.Handle(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("malformed payload should be dropped, got %v", err)
	}
	if err := h.Handle(context.Background(), []byte(`{"agent":"RISK"}`)); err != nil {
		t.Fatalf("ticker-less payload should be dropped, got %v", err)
	}
	if len(store.events) != 0 {
		t.Fatalf("nothing should be stored, got %v", store.events)
	}
}

func TestEventsHandlerPropagatesStoreError(t *testing.T) {
	store := &recordingResultStore{err: fmt.Errorf("insert failed")}
	h := NewAnalysisEventsHandler("analyst-events", store, nil)

	err := h.Handle(context.Background(), []byte(`{"ticker":"AAPL"}`))
	if err == nil {
		t.Fatalf("expected store error to propagate")
	}
}
