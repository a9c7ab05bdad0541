package feed

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/plateful-backend/internal/data/repos/testutil"
	types "github.com/plateful/plateful-backend/internal/domain"
)

func TestApplyDeltaCreatesAndAccumulates(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRestaurantPrefStateRepo(db, testutil.Logger(t))
	ctx := context.Background()

	userID := uuid.New()
	testutil.SeedRestaurant(t, ctx, tx, 1, "korean")

	action := types.ActionSelect
	now := time.Now()
	row, err := repo.ApplyDelta(ctx, tx, userID, 1, StateDelta{
		PrefDelta:  0.80,
		LastAction: &action,
		ActionAt:   &now,
	})
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if row.PrefScore != 0.80 {
		t.Fatalf("pref score = %v, want 0.80", row.PrefScore)
	}
	if row.LastAction == nil || *row.LastAction != types.ActionSelect {
		t.Fatalf("last action not recorded: %+v", row)
	}

	row, err = repo.ApplyDelta(ctx, tx, userID, 1, StateDelta{PrefDelta: 0.10})
	if err != nil {
		t.Fatalf("apply second delta: %v", err)
	}
	if row.PrefScore != 0.90 {
		t.Fatalf("accumulated score = %v, want 0.90", row.PrefScore)
	}
	// a nil LastAction leaves the stored one alone
	if row.LastAction == nil || *row.LastAction != types.ActionSelect {
		t.Fatalf("last action overwritten by nil delta: %+v", row)
	}
}

func TestApplyDeltaClampsScoreBand(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRestaurantPrefStateRepo(db, testutil.Logger(t))
	ctx := context.Background()

	userID := uuid.New()
	testutil.SeedRestaurant(t, ctx, tx, 2, "korean")

	for i := 0; i < 15; i++ {
		if _, err := repo.ApplyDelta(ctx, tx, userID, 2, StateDelta{PrefDelta: 1.0}); err != nil {
			t.Fatalf("apply delta %d: %v", i, err)
		}
	}
	row, err := repo.Get(ctx, tx, userID, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.PrefScore != types.PrefScoreMax {
		t.Fatalf("score = %v, want clamp at %v", row.PrefScore, types.PrefScoreMax)
	}

	for i := 0; i < 30; i++ {
		if _, err := repo.ApplyDelta(ctx, tx, userID, 2, StateDelta{PrefDelta: -1.0}); err != nil {
			t.Fatalf("apply negative delta %d: %v", i, err)
		}
	}
	row, _ = repo.Get(ctx, tx, userID, 2)
	if row.PrefScore != types.PrefScoreMin {
		t.Fatalf("score = %v, want clamp at %v", row.PrefScore, types.PrefScoreMin)
	}
}

func TestApplyDeltaCooldownSurvivesLaterWrites(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRestaurantPrefStateRepo(db, testutil.Logger(t))
	ctx := context.Background()

	userID := uuid.New()
	testutil.SeedRestaurant(t, ctx, tx, 3, "korean")

	until := time.Now().Add(7 * 24 * time.Hour).Truncate(time.Millisecond)
	if _, err := repo.ApplyDelta(ctx, tx, userID, 3, StateDelta{PrefDelta: -1.0, CooldownUntil: &until}); err != nil {
		t.Fatalf("apply cooldown delta: %v", err)
	}
	if _, err := repo.ApplyDelta(ctx, tx, userID, 3, StateDelta{PrefDelta: 0.10, IncView: true}); err != nil {
		t.Fatalf("apply later delta: %v", err)
	}

	row, err := repo.Get(ctx, tx, userID, 3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.CooldownUntil == nil || !row.CooldownUntil.Truncate(time.Millisecond).Equal(until) {
		t.Fatalf("cooldown = %v, want %v", row.CooldownUntil, until)
	}
	if !row.OnCooldown(time.Now()) {
		t.Fatalf("pair must report on-cooldown")
	}
}

func TestApplyDeltaCounters(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRestaurantPrefStateRepo(db, testutil.Logger(t))
	ctx := context.Background()

	userID := uuid.New()
	testutil.SeedRestaurant(t, ctx, tx, 4, "korean")

	for i := 0; i < 3; i++ {
		if _, err := repo.ApplyDelta(ctx, tx, userID, 4, StateDelta{IncView: true}); err != nil {
			t.Fatalf("inc view %d: %v", i, err)
		}
	}
	row, err := repo.ApplyDelta(ctx, tx, userID, 4, StateDelta{IncShare: true})
	if err != nil {
		t.Fatalf("inc share: %v", err)
	}
	if row.ViewCount != 3 || row.ShareCount != 1 {
		t.Fatalf("counters = %d views %d shares, want 3 and 1", row.ViewCount, row.ShareCount)
	}
}

func TestApplyDeltaSavedFlagOnlyChangesWhenSet(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRestaurantPrefStateRepo(db, testutil.Logger(t))
	ctx := context.Background()

	userID := uuid.New()
	testutil.SeedRestaurant(t, ctx, tx, 5, "korean")

	saved := true
	if _, err := repo.ApplyDelta(ctx, tx, userID, 5, StateDelta{PrefDelta: 0.50, SetSaved: &saved}); err != nil {
		t.Fatalf("save: %v", err)
	}
	// a delta without SetSaved leaves the flag alone
	row, err := repo.ApplyDelta(ctx, tx, userID, 5, StateDelta{PrefDelta: 0.10})
	if err != nil {
		t.Fatalf("plain delta: %v", err)
	}
	if !row.IsSaved {
		t.Fatalf("saved flag lost by unrelated delta")
	}

	unsaved := false
	row, err = repo.ApplyDelta(ctx, tx, userID, 5, StateDelta{PrefDelta: -0.30, SetSaved: &unsaved})
	if err != nil {
		t.Fatalf("unsave: %v", err)
	}
	if row.IsSaved {
		t.Fatalf("unsave did not clear the flag")
	}
}

func TestSavedRestaurantIDsOrdering(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRestaurantPrefStateRepo(db, testutil.Logger(t))
	ctx := context.Background()

	userID := uuid.New()
	saved := true
	for _, id := range []int64{10, 11, 12} {
		testutil.SeedRestaurant(t, ctx, tx, id, "korean")
		if _, err := repo.ApplyDelta(ctx, tx, userID, id, StateDelta{PrefDelta: 0.50, SetSaved: &saved}); err != nil {
			t.Fatalf("save %d: %v", id, err)
		}
	}
	// touching 10 again moves it to the front
	if _, err := repo.ApplyDelta(ctx, tx, userID, 10, StateDelta{IncView: true}); err != nil {
		t.Fatalf("touch: %v", err)
	}

	ids, err := repo.SavedRestaurantIDs(ctx, tx, userID)
	if err != nil {
		t.Fatalf("saved ids: %v", err)
	}
	if len(ids) != 3 || ids[0] != 10 {
		t.Fatalf("saved ids = %v, want 10 first of 3", ids)
	}
}

// Runs outside a wrapping transaction so writers genuinely contend on
// the unique (user_id, restaurant_id) row.
func TestApplyDeltaConcurrentWriters(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRestaurantPrefStateRepo(db, testutil.Logger(t))
	ctx := context.Background()

	userID := uuid.New()
	restaurantID := int64(900000 + time.Now().UnixNano()%100000)
	testutil.SeedRestaurant(t, ctx, db, restaurantID, "korean")
	t.Cleanup(func() {
		db.Where("restaurant_id = ?", restaurantID).Delete(&types.RestaurantPrefState{})
		db.Where("id = ?", restaurantID).Delete(&types.Restaurant{})
	})

	const writers = 10
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func() {
			_, err := repo.ApplyDelta(ctx, nil, userID, restaurantID, StateDelta{PrefDelta: 0.5, IncView: true})
			errs <- err
		}()
	}
	for i := 0; i < writers; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent apply: %v", err)
		}
	}

	row, err := repo.Get(ctx, nil, userID, restaurantID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.PrefScore != 5.0 {
		t.Fatalf("score = %v, want 5.0 (no lost increments)", row.PrefScore)
	}
	if row.ViewCount != writers {
		t.Fatalf("view count = %d, want %d", row.ViewCount, writers)
	}
}

func TestGetMissingPairReturnsNil(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRestaurantPrefStateRepo(db, testutil.Logger(t))

	row, err := repo.Get(context.Background(), tx, uuid.New(), 999999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row != nil {
		t.Fatalf("missing pair = %+v, want nil", row)
	}
}

func TestMapByUserScopesToUser(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRestaurantPrefStateRepo(db, testutil.Logger(t))
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	testutil.SeedRestaurant(t, ctx, tx, 20, "korean")
	if _, err := repo.ApplyDelta(ctx, tx, alice, 20, StateDelta{PrefDelta: 1.0}); err != nil {
		t.Fatalf("alice delta: %v", err)
	}
	if _, err := repo.ApplyDelta(ctx, tx, bob, 20, StateDelta{PrefDelta: -1.0}); err != nil {
		t.Fatalf("bob delta: %v", err)
	}

	m, err := repo.MapByUser(ctx, tx, alice, []int64{20, 21})
	if err != nil {
		t.Fatalf("map by user: %v", err)
	}
	if len(m) != 1 || m[20] == nil || m[20].PrefScore != 1.0 {
		t.Fatalf("alice map = %+v, want only her row", m)
	}
}
