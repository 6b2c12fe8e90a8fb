package levels_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/levels"
	"github.com/xraph/levels/entitlement"
	"github.com/xraph/levels/store/memory"
)

// TestDocumentationExamples verifies that the package documentation examples work.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()
		announced := 0

		eng, err := levels.New(memory.New(),
			levels.WithLogger(slog.New(slog.DiscardHandler)),
			levels.WithNotifier(levels.NotifierFunc(func(_ context.Context, _, _ string, _ int) error {
				announced++
				return nil
			})),
			levels.WithFlushIntervals(time.Minute, time.Minute),
		)
		if err != nil {
			t.Fatal(err)
		}
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop() //nolint:errcheck // memory store

		for range 10 {
			if err := eng.AddXP(ctx, "guild-1", "user-1", 20, levels.KindMessage); err != nil {
				t.Fatal(err)
			}
			if err := eng.AddMessage("guild-1", "user-1"); err != nil {
				t.Fatal(err)
			}
		}

		standing, err := eng.ReadCurrent(ctx, "guild-1", "user-1")
		if err != nil {
			t.Fatal(err)
		}
		if standing.Level != 2 || standing.XP != 0 || announced != 1 {
			t.Errorf("standing = %+v announced = %d", standing, announced)
		}
	})

	t.Run("CurveExample", func(t *testing.T) {
		if levels.RequiredFor(2) != 200 || levels.ForLevelUp(2) != 300 {
			t.Errorf("default curve thresholds changed")
		}
		if levels.LevelFor(500) != 3 {
			t.Errorf("LevelFor(500) = %d, want 3", levels.LevelFor(500))
		}
	})

	t.Run("StaticRulesExample", func(t *testing.T) {
		rules := entitlement.NewStaticRules(map[string][]levels.Rule{
			"guild-1": {{Level: 5, EntitlementID: "role-regular"}, {Level: 20, EntitlementID: "role-veteran"}},
		})

		got, err := rules.ListRules(context.Background(), "guild-1")
		if err != nil {
			t.Fatal(err)
		}
		res := entitlement.Resolve(7, got, []string{"role-veteran"})
		if res.ToGrant != "role-regular" || len(res.ToRevoke) != 1 {
			t.Errorf("resolution = %+v", res)
		}
	})
}
