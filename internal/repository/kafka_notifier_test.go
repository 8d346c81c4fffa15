package repository

import (
	"context"
	"strings"
	"testing"

	"FinSight/internal/domain/models"
)

type fakePublisher struct {
	topic string
	key   []byte
	value interface{}
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	f.topic = topic
	f.key = key
	f.value = value
	return f.err
}

func TestPublishAnalysisCompleteTruncatesSummary(t *testing.T) {
	pub := &fakePublisher{}
	n := NewKafkaNotifier(pub, "analyst-events")

	long := strings.Repeat("a", 300)
	err := n.PublishAnalysisComplete(context.Background(), models.AnalysisEvent{
		Ticker:  "AAPL",
		Agent:   "SENTIMENT",
		Summary: long,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.topic != "analyst-events" || string(pub.key) != "AAPL" {
		t.Fatalf("unexpected routing topic=%q key=%q", pub.topic, pub.key)
	}

	event, ok := pub.value.(models.AnalysisEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", pub.value)
	}
	want := strings.Repeat("a", summaryCap) + "..."
	if event.Summary != want {
		t.Fatalf("summary not truncated: %d chars", len(event.Summary))
	}
}

func TestPublishAnalysisCompleteShortSummary(t *testing.T) {
	pub := &fakePublisher{}
	n := NewKafkaNotifier(pub, "analyst-events")

	if err := n.PublishAnalysisComplete(context.Background(), models.AnalysisEvent{
		Ticker:  "AAPL",
		Summary: "fine",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event := pub.value.(models.AnalysisEvent); event.Summary != "fine..." {
		t.Fatalf("unexpected summary %q", event.Summary)
	}
}
