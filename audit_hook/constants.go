package audithook

// Action constants for audit events.
const (
	// Level actions
	ActionLevelUp   = "level.up"
	ActionLevelDown = "level.down"

	// Entitlement actions
	ActionEntitlementsReconciled = "entitlements.reconciled"

	// Account actions
	ActionAccountInvalidated = "account.invalidated"

	// Flush actions
	ActionFlushFailed = "flush.failed"
)

// Resource constants for audit events.
const (
	ResourceAccount     = "account"
	ResourceEntitlement = "entitlement"
	ResourceFlush       = "flush"
)

// Category constants for audit events.
const (
	CategoryProgression = "progression"
	CategoryAccess      = "access"
	CategoryAdmin       = "admin"
	CategoryPersistence = "persistence"
)

// Severity levels for audit events.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
