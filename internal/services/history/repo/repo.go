// Package repo stores attempt history in ClickHouse
package repo

import (
	"context"
	"strings"

	"callrota/internal/platform/store"
	"callrota/internal/services/history/domain"
)

// Table is the fully qualified attempts table
const Table = "callrota.apply_attempts"

// maxRawText bounds the stored dialog text
const maxRawText = 512

var ddl = []string{
	`CREATE DATABASE IF NOT EXISTS callrota`,
	`CREATE TABLE IF NOT EXISTS ` + Table + ` (
		at          DateTime64(3, 'UTC'),
		device_id   LowCardinality(String),
		apply_id    String,
		source      LowCardinality(String),
		trigger     LowCardinality(String),
		target_id   String,
		result_code LowCardinality(String),
		outcome     LowCardinality(String),
		raw_text    String,
		elapsed_ms  UInt32
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(at)
	ORDER BY (device_id, at)`,
}

// CH writes attempts through the store seam
type CH struct{ ch store.Clickhouse }

// NewCH binds the repo to a ClickHouse client
func NewCH(ch store.Clickhouse) *CH { return &CH{ch: ch} }

// EnsureSchema creates the database and table when missing
func (r *CH) EnsureSchema(ctx context.Context) error {
	for _, q := range ddl {
		if err := r.ch.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Insert appends a batch; column order follows the table definition
func (r *CH) Insert(ctx context.Context, xs []domain.Attempt) error {
	rows := make([][]any, 0, len(xs))
	for _, a := range xs {
		rows = append(rows, Row(a))
	}
	return r.ch.Insert(ctx, Table, rows)
}

// Row is the column tuple for a
func Row(a domain.Attempt) []any {
	raw := strings.TrimSpace(a.RawText)
	if len(raw) > maxRawText {
		raw = strings.ToValidUTF8(raw[:maxRawText], "")
	}
	ms := a.Elapsed.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return []any{
		a.At.UTC(), a.DeviceID, a.ApplyID, a.Source, a.Trigger,
		a.TargetID, a.ResultCode, a.Outcome, raw, uint32(ms),
	}
}
