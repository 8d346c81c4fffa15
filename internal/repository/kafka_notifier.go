package repository

import (
	"context"
	"fmt"

	"FinSight/internal/domain/models"
	applogger "FinSight/pkg/logger"
)

// summaryCap bounds the summary carried on the event stream; the full
// response stays with the HTTP caller only.
const summaryCap = 200

// publisher matches the kafka producer surface the notifier needs.
type publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaNotifier implements Notifier on top of the kafka producer.
type KafkaNotifier struct {
	producer publisher
	topic    string
	l        *applogger.Logger
}

func NewKafkaNotifier(producer publisher, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

// SetLogger injects a structured logger.
func (n *KafkaNotifier) SetLogger(l *applogger.Logger) { n.l = l }

// PublishAnalysisComplete publishes one completion event keyed by ticker.
func (n *KafkaNotifier) PublishAnalysisComplete(ctx context.Context, event models.AnalysisEvent) error {
	event.Summary = truncateSummary(event.Summary)

	if err := n.producer.Publish(ctx, n.topic, []byte(event.Ticker), event); err != nil {
		if n.l != nil {
			n.l.Error("analysis event publish error",
				applogger.String("topic", n.topic),
				applogger.String("ticker", event.Ticker),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("publish analysis event: %w", err)
	}
	return nil
}

func truncateSummary(s string) string {
	if len(s) > summaryCap {
		s = s[:summaryCap]
	}
	return s + "..."
}
