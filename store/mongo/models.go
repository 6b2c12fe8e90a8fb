package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/grove"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/activity"
	"github.com/xraph/levels/entitlement"
)

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:levels_accounts"`

	ID               string    `grove:"id,pk"              bson:"_id"`
	Scope            string    `grove:"scope"              bson:"scope"`
	Subject          string    `grove:"subject"            bson:"subject"`
	Level            int       `grove:"level"              bson:"level"`
	XP               int64     `grove:"xp"                 bson:"xp"`
	BucketStart      time.Time `grove:"bucket_start"       bson:"bucket_start,omitempty"`
	BucketMessages   int64     `grove:"bucket_messages"    bson:"bucket_messages"`
	BucketVoiceUnits int64     `grove:"bucket_voice_units" bson:"bucket_voice_units"`
	LastMessageAt    time.Time `grove:"last_message_at"    bson:"last_message_at,omitempty"`
	LastActivityAt   time.Time `grove:"last_activity_at"   bson:"last_activity_at,omitempty"`
	CreatedAt        time.Time `grove:"created_at"         bson:"created_at"`
	UpdatedAt        time.Time `grove:"updated_at"         bson:"updated_at"`
}

func accountID(key account.Key) string { return key.ID() }

func fromAccountModel(m *accountModel) *account.Record {
	return &account.Record{
		Key:   account.Key{Scope: m.Scope, Subject: m.Subject},
		Level: m.Level,
		XP:    m.XP,
		Bucket: account.Bucket{
			Start:      m.BucketStart,
			Messages:   m.BucketMessages,
			VoiceUnits: m.BucketVoiceUnits,
		},
		LastMessageAt:  m.LastMessageAt,
		LastActivityAt: m.LastActivityAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// xpUpdate builds the upsert for one drained account: level, XP and bucket
// are overwritten, timestamps only move forward.
func xpUpdate(rec *account.Record, t time.Time) (filter, update bson.M) {
	set := bson.M{
		"scope":              rec.Key.Scope,
		"subject":            rec.Key.Subject,
		"level":              rec.Level,
		"xp":                 rec.XP,
		"bucket_messages":    rec.Bucket.Messages,
		"bucket_voice_units": rec.Bucket.VoiceUnits,
		"updated_at":         t,
	}
	if !rec.Bucket.Start.IsZero() {
		set["bucket_start"] = rec.Bucket.Start.UTC()
	}

	update = bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": t},
	}

	maxes := bson.M{}
	if !rec.LastMessageAt.IsZero() {
		maxes["last_message_at"] = rec.LastMessageAt.UTC()
	}
	if !rec.LastActivityAt.IsZero() {
		maxes["last_activity_at"] = rec.LastActivityAt.UTC()
	}
	if len(maxes) > 0 {
		update["$max"] = maxes
	}

	return bson.M{"_id": accountID(rec.Key)}, update
}

// ==================== Activity models ====================

type activityModel struct {
	grove.BaseModel `grove:"table:levels_monthly_activity"`

	ID           string    `grove:"id,pk"         bson:"_id"`
	Scope        string    `grove:"scope"         bson:"scope"`
	Subject      string    `grove:"subject"       bson:"subject"`
	Period       string    `grove:"period"        bson:"period"`
	Messages     int64     `grove:"messages"      bson:"messages"`
	VoiceMinutes float64   `grove:"voice_minutes" bson:"voice_minutes"`
	CreatedAt    time.Time `grove:"created_at"    bson:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"    bson:"updated_at"`
}

func activityID(key activity.Key) string { return key.ID() }

func fromActivityModel(m *activityModel) *activity.Record {
	return &activity.Record{
		Key: activity.Key{
			Scope:   m.Scope,
			Subject: m.Subject,
			Period:  activity.Period(m.Period),
		},
		Messages:     m.Messages,
		VoiceMinutes: m.VoiceMinutes,
	}
}

// activityUpdate builds the additive upsert for one monthly record.
func activityUpdate(rec *activity.Record, t time.Time) (filter, update bson.M) {
	return bson.M{"_id": activityID(rec.Key)}, bson.M{
		"$inc": bson.M{
			"messages":      rec.Messages,
			"voice_minutes": rec.VoiceMinutes,
		},
		"$set": bson.M{"updated_at": t},
		"$setOnInsert": bson.M{
			"scope":      rec.Key.Scope,
			"subject":    rec.Key.Subject,
			"period":     string(rec.Key.Period),
			"created_at": t,
		},
	}
}

// ==================== Rule models ====================

type ruleModel struct {
	grove.BaseModel `grove:"table:levels_entitlement_rules"`

	ID            string    `grove:"id,pk"          bson:"_id"`
	Scope         string    `grove:"scope"          bson:"scope"`
	Level         int       `grove:"level"          bson:"level"`
	EntitlementID string    `grove:"entitlement_id" bson:"entitlement_id"`
	CreatedAt     time.Time `grove:"created_at"     bson:"created_at"`
}

func fromRuleModel(m *ruleModel) entitlement.Rule {
	return entitlement.Rule{Level: m.Level, EntitlementID: m.EntitlementID}
}
