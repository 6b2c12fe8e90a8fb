// Package levels provides a write-behind XP and activity accumulation engine
// for Go applications.
//
// Levels is designed as a library, not a service. Chat and voice event
// handlers call it once per event; it keeps the running totals in memory,
// resolves level changes synchronously and merges everything into the store
// on a fixed interval instead of writing per event. It provides:
//
//   - Per-subject XP with eager level-up and level-down resolution
//   - Monthly message and voice-minute counters
//   - Best-effort entitlement reconciliation on every level change
//   - Batched bulk merges with requeue on failure
//   - Mongo, PostgreSQL, SQLite and in-memory stores via Grove
//   - Plugin hooks, Prometheus metrics and an audit trail
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/levels"
//	    "github.com/xraph/levels/store/memory"
//	)
//
//	eng, err := levels.New(memory.New(),
//	    levels.WithNotifier(levels.NotifierFunc(announce)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
//	// On every accepted chat message:
//	_ = eng.AddXP(ctx, guildID, userID, 20, account.KindMessage)
//	_ = eng.AddMessage(guildID, userID)
//
// # Levels and XP
//
// An account stores its level and the XP earned within that level. The
// cumulative XP needed to reach level L is A·L² + B·L - (A+B), so reaching
// level 2 takes 200 XP with the default curve and each later level takes
// 100 more than the one before. A single delta may cross several levels;
// the notifier still fires once with the final level.
//
// # Flushing
//
// XP is written with set semantics: level, XP and bucket counters overwrite
// the stored values while last-message and last-activity timestamps keep
// whichever is newer. Monthly counters are added to what is stored.
//
// A failed flush puts its entries back into the cache. For XP the drained
// state is reinstated without being applied twice. For monthly counters a
// store that applied part of a batch before failing will see those counters
// again; this over-count is accepted.
//
// Between drain and acknowledgement an account is in flight: a new event for
// it continues from the drained state instead of reloading the stale stored
// value.
//
// # TypeID
//
// Flush batches and level changes carry TypeIDs:
//
//	batch_01h2xcejqtf2nbrexx3vqjhp41  // Flush batch
//	lvl_01h455vb4pex5vsknk084sn02q    // Level change
package levels
