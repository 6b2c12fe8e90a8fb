package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the levels store.
var Migrations = migrate.NewGroup("levels")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_levels_accounts",
			Version: "20250301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS levels_accounts (
    id                 TEXT PRIMARY KEY,
    scope              TEXT NOT NULL DEFAULT '',
    subject            TEXT NOT NULL DEFAULT '',
    level              INT NOT NULL DEFAULT 1,
    xp                 BIGINT NOT NULL DEFAULT 0,
    bucket_start       BIGINT NOT NULL DEFAULT 0,
    bucket_messages    BIGINT NOT NULL DEFAULT 0,
    bucket_voice_units BIGINT NOT NULL DEFAULT 0,
    last_message_at    BIGINT NOT NULL DEFAULT 0,
    last_activity_at   BIGINT NOT NULL DEFAULT 0,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_levels_accounts_rank ON levels_accounts (scope, level DESC, xp DESC);
CREATE INDEX IF NOT EXISTS idx_levels_accounts_activity ON levels_accounts (scope, last_activity_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS levels_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_levels_monthly_activity",
			Version: "20250301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS levels_monthly_activity (
    id            TEXT PRIMARY KEY,
    scope         TEXT NOT NULL DEFAULT '',
    subject       TEXT NOT NULL DEFAULT '',
    period        TEXT NOT NULL DEFAULT '',
    messages      BIGINT NOT NULL DEFAULT 0,
    voice_minutes DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_levels_activity_period ON levels_monthly_activity (scope, period, messages DESC);
CREATE INDEX IF NOT EXISTS idx_levels_activity_subject ON levels_monthly_activity (scope, subject, period);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS levels_monthly_activity`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_levels_entitlement_rules",
			Version: "20250301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS levels_entitlement_rules (
    id             TEXT PRIMARY KEY,
    scope          TEXT NOT NULL DEFAULT '',
    level          INT NOT NULL DEFAULT 0,
    entitlement_id TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_levels_rules_scope_level ON levels_entitlement_rules (scope, level);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS levels_entitlement_rules`)
				return err
			},
		},
	)
}
