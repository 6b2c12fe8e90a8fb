package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/activity"
	"github.com/xraph/levels/entitlement"
	levelsstore "github.com/xraph/levels/store"
)

// Collection name constants.
const (
	colAccounts = "levels_accounts"
	colActivity = "levels_monthly_activity"
	colRules    = "levels_entitlement_rules"
)

// compile-time interface check
var _ levelsstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all levels collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("levels/mongo: migrate %s indexes: %w", col, err)
		}
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
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": accountID(key)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("levels/mongo: load account: %w", err)
	}
	return fromAccountModel(&m), nil
}

// BulkMergeXP upserts every record in one unordered bulk write. Each
// document update is atomic; the batch as a whole is not.
func (s *Store) BulkMergeXP(ctx context.Context, records []*account.Record) error {
	if len(records) == 0 {
		return nil
	}

	t := now()
	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		filter, update := xpUpdate(rec, t)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(update).
			SetUpsert(true))
	}

	_, err := s.mdb.Collection(colAccounts).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("levels/mongo: bulk merge xp: %w", err)
	}
	return nil
}

// ==================== Activity Store ====================

func (s *Store) BulkMergeActivity(ctx context.Context, records []*activity.Record) error {
	if len(records) == 0 {
		return nil
	}

	t := now()
	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		filter, update := activityUpdate(rec, t)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(update).
			SetUpsert(true))
	}

	_, err := s.mdb.Collection(colActivity).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("levels/mongo: bulk merge activity: %w", err)
	}
	return nil
}

func (s *Store) GetActivity(ctx context.Context, key activity.Key) (*activity.Record, error) {
	var m activityModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": activityID(key)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, activity.ErrNotFound
		}
		return nil, fmt.Errorf("levels/mongo: get activity: %w", err)
	}
	return fromActivityModel(&m), nil
}

// ==================== Entitlement Rules ====================

func (s *Store) ListRules(ctx context.Context, scope string) ([]entitlement.Rule, error) {
	var models []ruleModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"scope": scope}).
		Sort(bson.D{{Key: "level", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("levels/mongo: list rules: %w", err)
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

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all levels collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{Keys: bson.D{{Key: "scope", Value: 1}, {Key: "level", Value: -1}, {Key: "xp", Value: -1}}},
			{Keys: bson.D{{Key: "scope", Value: 1}, {Key: "last_activity_at", Value: -1}}},
		},
		colActivity: {
			{Keys: bson.D{{Key: "scope", Value: 1}, {Key: "period", Value: 1}, {Key: "messages", Value: -1}}},
			{Keys: bson.D{{Key: "scope", Value: 1}, {Key: "subject", Value: 1}, {Key: "period", Value: -1}}},
		},
		colRules: {
			{
				Keys:    bson.D{{Key: "scope", Value: 1}, {Key: "level", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
