package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the streamledger store (SQLite).
var Migrations = migrate.NewGroup("streamledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_streamledger_streams",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamledger_counters (
    name  TEXT PRIMARY KEY,
    value INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS streamledger_streams (
    id               INTEGER PRIMARY KEY,
    sender           TEXT NOT NULL DEFAULT '',
    token            TEXT NOT NULL DEFAULT '',
    token_decimals   INTEGER NOT NULL DEFAULT 0,
    total_amount     TEXT NOT NULL DEFAULT '0',
    withdrawn_amount TEXT NOT NULL DEFAULT '0',
    rate_per_second  TEXT NOT NULL DEFAULT '0',
    start_time       INTEGER NOT NULL DEFAULT 0,
    end_time         INTEGER NOT NULL DEFAULT 0,
    last_update_time INTEGER NOT NULL DEFAULT 0,
    cancelable       INTEGER NOT NULL DEFAULT 0,
    status           TEXT NOT NULL DEFAULT 'active',
    created_at       TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_streamledger_streams_sender ON streamledger_streams (sender);
CREATE INDEX IF NOT EXISTS idx_streamledger_streams_status ON streamledger_streams (status);
CREATE INDEX IF NOT EXISTS idx_streamledger_streams_token ON streamledger_streams (token);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS streamledger_streams; DROP TABLE IF EXISTS streamledger_counters`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_streamledger_stream_metrics",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamledger_stream_metrics (
    stream_id        INTEGER PRIMARY KEY,
    withdrawal_count INTEGER NOT NULL DEFAULT 0,
    total_withdrawn  TEXT NOT NULL DEFAULT '0',
    delegation_count INTEGER NOT NULL DEFAULT 0
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS streamledger_stream_metrics`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_streamledger_delegations",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamledger_delegates (
    stream_id INTEGER PRIMARY KEY,
    delegate  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS streamledger_delegation_grants (
    id         TEXT PRIMARY KEY,
    stream_id  INTEGER NOT NULL DEFAULT 0,
    delegate   TEXT NOT NULL DEFAULT '',
    granted_by TEXT NOT NULL DEFAULT '',
    granted_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_streamledger_grants_stream ON streamledger_delegation_grants (stream_id, granted_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS streamledger_delegation_grants; DROP TABLE IF EXISTS streamledger_delegates`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_streamledger_metrics",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamledger_protocol_metrics (
    id              INTEGER PRIMARY KEY,
    streams_created INTEGER NOT NULL DEFAULT 0,
    active_streams  INTEGER NOT NULL DEFAULT 0,
    delegations     INTEGER NOT NULL DEFAULT 0,
    withdrawals     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS streamledger_distributions (
    token TEXT PRIMARY KEY,
    total TEXT NOT NULL DEFAULT '0'
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS streamledger_distributions; DROP TABLE IF EXISTS streamledger_protocol_metrics`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_streamledger_fees",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamledger_fee_config (
    id         INTEGER PRIMARY KEY,
    bps        INTEGER NOT NULL DEFAULT 0,
    collector  TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS streamledger_accrued_fees (
    token TEXT PRIMARY KEY,
    total TEXT NOT NULL DEFAULT '0'
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS streamledger_accrued_fees; DROP TABLE IF EXISTS streamledger_fee_config`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_streamledger_events",
			Version: "20240101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamledger_events (
    id        TEXT PRIMARY KEY,
    stream_id INTEGER,
    kind      TEXT NOT NULL DEFAULT '',
    payload   TEXT NOT NULL DEFAULT '{}',
    at        TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_streamledger_events_stream ON streamledger_events (stream_id, at);
CREATE INDEX IF NOT EXISTS idx_streamledger_events_kind ON streamledger_events (kind);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS streamledger_events`)
				return err
			},
		},
	)
}
