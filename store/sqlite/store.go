package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/activity"
	"github.com/xraph/levels/entitlement"
	levelsstore "github.com/xraph/levels/store"
)

// compile-time interface check
var _ levelsstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("levels/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("levels/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) LoadAccount(ctx context.Context, key account.Key) (*account.Record, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", key.ID()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("levels/sqlite: load account: %w", err)
	}
	return fromAccountModel(m), nil
}

// BulkMergeXP upserts the batch in a single statement. Level, XP and bucket
// are overwritten; activity timestamps keep the larger value.
func (s *Store) BulkMergeXP(ctx context.Context, records []*account.Record) error {
	if len(records) == 0 {
		return nil
	}

	t := now()
	models := make([]accountModel, len(records))
	for i, rec := range records {
		models[i] = toAccountModel(rec, t)
	}

	_, err := s.sdb.NewInsert(&models).
		OnConflict("(id) DO UPDATE").
		Set("level = excluded.level").
		Set("xp = excluded.xp").
		Set("bucket_start = excluded.bucket_start").
		Set("bucket_messages = excluded.bucket_messages").
		Set("bucket_voice_units = excluded.bucket_voice_units").
		Set("last_message_at = MAX(levels_accounts.last_message_at, excluded.last_message_at)").
		Set("last_activity_at = MAX(levels_accounts.last_activity_at, excluded.last_activity_at)").
		Set("updated_at = excluded.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("levels/sqlite: bulk merge xp: %w", err)
	}
	return nil
}

// ==================== Activity Store ====================

// BulkMergeActivity adds the batch counters to the stored ones.
func (s *Store) BulkMergeActivity(ctx context.Context, records []*activity.Record) error {
	if len(records) == 0 {
		return nil
	}

	t := now()
	models := make([]activityModel, len(records))
	for i, rec := range records {
		models[i] = toActivityModel(rec, t)
	}

	_, err := s.sdb.NewInsert(&models).
		OnConflict("(id) DO UPDATE").
		Set("messages = levels_monthly_activity.messages + excluded.messages").
		Set("voice_minutes = levels_monthly_activity.voice_minutes + excluded.voice_minutes").
		Set("updated_at = excluded.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("levels/sqlite: bulk merge activity: %w", err)
	}
	return nil
}

func (s *Store) GetActivity(ctx context.Context, key activity.Key) (*activity.Record, error) {
	m := new(activityModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", key.ID()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, activity.ErrNotFound
		}
		return nil, fmt.Errorf("levels/sqlite: get activity: %w", err)
	}
	return fromActivityModel(m), nil
}

// ==================== Entitlement Rules ====================

func (s *Store) ListRules(ctx context.Context, scope string) ([]entitlement.Rule, error) {
	var models []ruleModel
	err := s.sdb.NewSelect(&models).
		Where("scope = ?", scope).
		OrderExpr("level ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("levels/sqlite: list rules: %w", err)
	}

	rules := make([]entitlement.Rule, len(models))
	for i := range models {
		rules[i] = fromRuleModel(&models[i])
	}
	return rules, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
