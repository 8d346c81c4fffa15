package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"FinSight/internal/domain/models"
	pkgch "FinSight/pkg/clickhouse"
	applogger "FinSight/pkg/logger"
	"FinSight/pkg/util"
)

// SchemaStatements returns the DDL applied at startup.
func SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS finsight.agent_logs (
			ticker String,
			agent String,
			status String,
			timestamp DateTime64(3, 'UTC')
		) ENGINE = MergeTree()
		ORDER BY (timestamp, ticker)`,
		`CREATE TABLE IF NOT EXISTS finsight.analysis_results (
			ticker String,
			agent String,
			summary String,
			data String,
			timestamp DateTime64(3, 'UTC')
		) ENGINE = MergeTree()
		ORDER BY (timestamp, ticker)`,
	}
}

// CHTelemetryStore implements ActivityLog and ResultStore backed by
// ClickHouse.
type CHTelemetryStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHTelemetryStore(ch *pkgch.Client) *CHTelemetryStore {
	return &CHTelemetryStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHTelemetryStore) SetLogger(l *applogger.Logger) { s.l = l }

// LogActivity records one start/completion row.
func (s *CHTelemetryStore) LogActivity(ctx context.Context, ticker, agent, status string) error {
	const q = `INSERT INTO finsight.agent_logs (ticker, agent, status, timestamp) VALUES (?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, q, ticker, agent, status, time.Now().UTC()); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse agent_logs insert error",
				applogger.String("ticker", ticker),
				applogger.String("status", status),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert agent log: %w", err)
	}
	return nil
}

// StoreAnalysisResult lands a completed analysis event. The full event is
// kept as JSON next to the flattened columns.
func (s *CHTelemetryStore) StoreAnalysisResult(ctx context.Context, event models.AnalysisEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal analysis event: %w", err)
	}

	ts := util.ParseTimeDefault(event.Timestamp, time.Now()).UTC()

	const q = `INSERT INTO finsight.analysis_results (ticker, agent, summary, data, timestamp) VALUES (?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, q, event.Ticker, event.Agent, event.Summary, string(payload), ts); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse analysis_results insert error",
				applogger.String("ticker", event.Ticker),
				applogger.String("agent", event.Agent),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert analysis result: %w", err)
	}
	return nil
}
