package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the streamledger store.
var Migrations = migrate.NewGroup("streamledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_streamledger_streams",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE SEQUENCE IF NOT EXISTS streamledger_stream_ids MINVALUE 0 START 0;

CREATE TABLE IF NOT EXISTS streamledger_streams (
    id               BIGINT PRIMARY KEY,
    sender           TEXT NOT NULL DEFAULT '',
    token            TEXT NOT NULL DEFAULT '',
    token_decimals   SMALLINT NOT NULL DEFAULT 0,
    total_amount     TEXT NOT NULL DEFAULT '0',
    withdrawn_amount TEXT NOT NULL DEFAULT '0',
    rate_per_second  TEXT NOT NULL DEFAULT '0',
    start_time       BIGINT NOT NULL DEFAULT 0,
    end_time         BIGINT NOT NULL DEFAULT 0,
    last_update_time BIGINT NOT NULL DEFAULT 0,
    cancelable       BOOLEAN NOT NULL DEFAULT FALSE,
    status           TEXT NOT NULL DEFAULT 'active',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_streamledger_streams_sender ON streamledger_streams (sender);
CREATE INDEX IF NOT EXISTS idx_streamledger_streams_status ON streamledger_streams (status);
CREATE INDEX IF NOT EXISTS idx_streamledger_streams_token ON streamledger_streams (token);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS streamledger_streams; DROP SEQUENCE IF EXISTS streamledger_stream_ids`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_streamledger_stream_metrics",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamledger_stream_metrics (
    stream_id        BIGINT PRIMARY KEY,
    withdrawal_count BIGINT NOT NULL DEFAULT 0,
    total_withdrawn  TEXT NOT NULL DEFAULT '0',
    delegation_count BIGINT NOT NULL DEFAULT 0
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
    stream_id BIGINT PRIMARY KEY,
    delegate  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS streamledger_delegation_grants (
    id         TEXT PRIMARY KEY,
    stream_id  BIGINT NOT NULL DEFAULT 0,
    delegate   TEXT NOT NULL DEFAULT '',
    granted_by TEXT NOT NULL DEFAULT '',
    granted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    id              INT PRIMARY KEY,
    streams_created BIGINT NOT NULL DEFAULT 0,
    active_streams  BIGINT NOT NULL DEFAULT 0,
    delegations     BIGINT NOT NULL DEFAULT 0,
    withdrawals     BIGINT NOT NULL DEFAULT 0
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
    id         INT PRIMARY KEY,
    bps        INT NOT NULL DEFAULT 0,
    collector  TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    stream_id BIGINT,
    kind      TEXT NOT NULL DEFAULT '',
    payload   JSONB NOT NULL DEFAULT '{}',
    at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
