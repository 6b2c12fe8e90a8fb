package levels

import (
	"github.com/xraph/levels/account"
	"github.com/xraph/levels/curve"
	"github.com/xraph/levels/entitlement"
)

// Re-export common types for convenience so callers don't have to import
// the domain packages for everyday use.

// Kind is re-exported from the account package.
type Kind = account.Kind

// Standing is re-exported from the account package.
type Standing = account.Standing

// LevelChange is re-exported from the account package.
type LevelChange = account.LevelChange

// Progress is re-exported from the curve package.
type Progress = curve.Progress

// Rule is re-exported from the entitlement package.
type Rule = entitlement.Rule

// Re-export activity kinds
const (
	KindMessage = account.KindMessage
	KindVoice   = account.KindVoice
	KindManual  = account.KindManual
)

// Re-export curve helpers
var (
	DefaultCurve = curve.Default
	RequiredFor  = curve.RequiredFor
	ForLevelUp   = curve.ForLevelUp
	LevelFor     = curve.LevelFor
)
