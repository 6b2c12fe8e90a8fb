package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/activity"
	"github.com/xraph/levels/entitlement"
)

// ==================== Account models ====================

// Activity timestamps are stored as unix milliseconds so GREATEST() compares them
// numerically. Zero means unset.
type accountModel struct {
	grove.BaseModel `grove:"table:levels_accounts"`

	ID               string    `grove:"id,pk"`
	Scope            string    `grove:"scope"`
	Subject          string    `grove:"subject"`
	Level            int       `grove:"level"`
	XP               int64     `grove:"xp"`
	BucketStart      int64     `grove:"bucket_start"`
	BucketMessages   int64     `grove:"bucket_messages"`
	BucketVoiceUnits int64     `grove:"bucket_voice_units"`
	LastMessageAt    int64     `grove:"last_message_at"`
	LastActivityAt   int64     `grove:"last_activity_at"`
	CreatedAt        time.Time `grove:"created_at"`
	UpdatedAt        time.Time `grove:"updated_at"`
}

func toAccountModel(rec *account.Record, t time.Time) accountModel {
	return accountModel{
		ID:               rec.Key.ID(),
		Scope:            rec.Key.Scope,
		Subject:          rec.Key.Subject,
		Level:            rec.Level,
		XP:               rec.XP,
		BucketStart:      toMillis(rec.Bucket.Start),
		BucketMessages:   rec.Bucket.Messages,
		BucketVoiceUnits: rec.Bucket.VoiceUnits,
		LastMessageAt:    toMillis(rec.LastMessageAt),
		LastActivityAt:   toMillis(rec.LastActivityAt),
		CreatedAt:        t,
		UpdatedAt:        t,
	}
}

func fromAccountModel(m *accountModel) *account.Record {
	return &account.Record{
		Key:   account.Key{Scope: m.Scope, Subject: m.Subject},
		Level: m.Level,
		XP:    m.XP,
		Bucket: account.Bucket{
			Start:      fromMillis(m.BucketStart),
			Messages:   m.BucketMessages,
			VoiceUnits: m.BucketVoiceUnits,
		},
		LastMessageAt:  fromMillis(m.LastMessageAt),
		LastActivityAt: fromMillis(m.LastActivityAt),
		UpdatedAt:      m.UpdatedAt,
	}
}

// ==================== Activity models ====================

type activityModel struct {
	grove.BaseModel `grove:"table:levels_monthly_activity"`

	ID           string    `grove:"id,pk"`
	Scope        string    `grove:"scope"`
	Subject      string    `grove:"subject"`
	Period       string    `grove:"period"`
	Messages     int64     `grove:"messages"`
	VoiceMinutes float64   `grove:"voice_minutes"`
	CreatedAt    time.Time `grove:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"`
}

func toActivityModel(rec *activity.Record, t time.Time) activityModel {
	return activityModel{
		ID:           rec.Key.ID(),
		Scope:        rec.Key.Scope,
		Subject:      rec.Key.Subject,
		Period:       string(rec.Key.Period),
		Messages:     rec.Messages,
		VoiceMinutes: rec.VoiceMinutes,
		CreatedAt:    t,
		UpdatedAt:    t,
	}
}

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

// ==================== Rule models ====================

type ruleModel struct {
	grove.BaseModel `grove:"table:levels_entitlement_rules"`

	ID            string    `grove:"id,pk"`
	Scope         string    `grove:"scope"`
	Level         int       `grove:"level"`
	EntitlementID string    `grove:"entitlement_id"`
	CreatedAt     time.Time `grove:"created_at"`
}

func fromRuleModel(m *ruleModel) entitlement.Rule {
	return entitlement.Rule{Level: m.Level, EntitlementID: m.EntitlementID}
}

// ==================== Helpers ====================

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
