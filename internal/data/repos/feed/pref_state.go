package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/plateful/plateful-backend/internal/domain"
	"github.com/plateful/plateful-backend/internal/platform/logger"
)

// StateDelta is one conditional mutation of a (user, restaurant) pair.
// Nil pointer fields leave the stored column untouched.
type StateDelta struct {
	PrefDelta     float64
	LastAction    *string
	ActionAt      *time.Time
	CooldownUntil *time.Time
	SetSaved      *bool
	SetVisited    *bool
	IncView       bool
	IncShare      bool
}

type RestaurantPrefStateRepo interface {
	// ApplyDelta upserts the pair in one statement: the score is
	// clamped in SQL, cooldown/last-action/visited only overwrite when
	// provided, and counters increment server-side. Returns the row as
	// written, so concurrent writers each observe a consistent snapshot.
	ApplyDelta(ctx context.Context, tx *gorm.DB, userID uuid.UUID, restaurantID int64, d StateDelta) (*types.RestaurantPrefState, error)

	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, restaurantID int64) (*types.RestaurantPrefState, error)
	MapByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, restaurantIDs []int64) (map[int64]*types.RestaurantPrefState, error)
	SavedRestaurantIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]int64, error)
}

type prefStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRestaurantPrefStateRepo(db *gorm.DB, baseLog *logger.Logger) RestaurantPrefStateRepo {
	return &prefStateRepo{db: db, log: baseLog.With("repo", "RestaurantPrefStateRepo")}
}

const applyDeltaSQL = `
INSERT INTO restaurant_pref_state
  (user_id, restaurant_id, is_saved, last_action, last_action_at,
   cooldown_until, view_count, share_count, pref_score, is_visited,
   created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?,
        GREATEST(LEAST(?, 10.000), -10.000), ?, NOW(), NOW())
ON CONFLICT (user_id, restaurant_id) DO UPDATE SET
  pref_score     = GREATEST(LEAST(restaurant_pref_state.pref_score + ?, 10.000), -10.000),
  is_saved       = CASE WHEN ? THEN EXCLUDED.is_saved ELSE restaurant_pref_state.is_saved END,
  last_action    = COALESCE(EXCLUDED.last_action, restaurant_pref_state.last_action),
  last_action_at = COALESCE(EXCLUDED.last_action_at, restaurant_pref_state.last_action_at),
  cooldown_until = COALESCE(EXCLUDED.cooldown_until, restaurant_pref_state.cooldown_until),
  view_count     = restaurant_pref_state.view_count + ?,
  share_count    = restaurant_pref_state.share_count + ?,
  is_visited     = COALESCE(EXCLUDED.is_visited, restaurant_pref_state.is_visited),
  updated_at     = NOW()
RETURNING *`

func (pr *prefStateRepo) ApplyDelta(ctx context.Context, tx *gorm.DB, userID uuid.UUID, restaurantID int64, d StateDelta) (*types.RestaurantPrefState, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	insertSaved := d.SetSaved != nil && *d.SetSaved
	updateSaved := d.SetSaved != nil
	viewInc := 0
	if d.IncView {
		viewInc = 1
	}
	shareInc := 0
	if d.IncShare {
		shareInc = 1
	}

	var row types.RestaurantPrefState
	if err := transaction.WithContext(ctx).
		Raw(applyDeltaSQL,
			userID, restaurantID, insertSaved, d.LastAction, d.ActionAt,
			d.CooldownUntil, viewInc, shareInc, d.PrefDelta, d.SetVisited,
			d.PrefDelta, updateSaved, viewInc, shareInc,
		).
		Scan(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (pr *prefStateRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, restaurantID int64) (*types.RestaurantPrefState, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.RestaurantPrefState
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND restaurant_id = ?", userID, restaurantID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (pr *prefStateRepo) MapByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, restaurantIDs []int64) (map[int64]*types.RestaurantPrefState, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	out := make(map[int64]*types.RestaurantPrefState, len(restaurantIDs))
	if len(restaurantIDs) == 0 {
		return out, nil
	}

	var rows []*types.RestaurantPrefState
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND restaurant_id IN ?", userID, restaurantIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.RestaurantID] = r
	}
	return out, nil
}

func (pr *prefStateRepo) SavedRestaurantIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var ids []int64
	if err := transaction.WithContext(ctx).
		Model(&types.RestaurantPrefState{}).
		Where("user_id = ? AND is_saved = TRUE", userID).
		Order("updated_at DESC").
		Pluck("restaurant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
