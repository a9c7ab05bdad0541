package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/plateful/plateful-backend/internal/domain"
	"github.com/plateful/plateful-backend/internal/platform/logger"
)

type InteractionRepo interface {
	Append(ctx context.Context, tx *gorm.DB, event *types.RestaurantInteraction) error

	// LastSelected returns the most recent SELECT event whose pair has
	// no visit feedback yet, or nil when there is none.
	LastSelected(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.RestaurantInteraction, error)

	// RecentByUser returns the user's events since the given instant,
	// optionally narrowed to a restaurant set (nil means all).
	RecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, restaurantIDs []int64, since time.Time) ([]types.RestaurantInteraction, error)
}

type interactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInteractionRepo(db *gorm.DB, baseLog *logger.Logger) InteractionRepo {
	return &interactionRepo{db: db, log: baseLog.With("repo", "InteractionRepo")}
}

func (ir *interactionRepo) Append(ctx context.Context, tx *gorm.DB, event *types.RestaurantInteraction) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	return transaction.WithContext(ctx).Create(event).Error
}

const lastSelectedSQL = `
SELECT i.* FROM restaurant_interaction i
JOIN restaurant_pref_state s
  ON s.user_id = i.user_id AND s.restaurant_id = i.restaurant_id
WHERE i.user_id = ?
  AND i.event_type = ?
  AND s.is_visited IS NULL
ORDER BY i.created_at DESC
LIMIT 1`

func (ir *interactionRepo) LastSelected(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.RestaurantInteraction, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var rows []types.RestaurantInteraction
	if err := transaction.WithContext(ctx).
		Raw(lastSelectedSQL, userID, types.EventSelect).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (ir *interactionRepo) RecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, restaurantIDs []int64, since time.Time) ([]types.RestaurantInteraction, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	q := transaction.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since)
	if restaurantIDs != nil {
		if len(restaurantIDs) == 0 {
			return nil, nil
		}
		q = q.Where("restaurant_id IN ?", restaurantIDs)
	}

	var rows []types.RestaurantInteraction
	if err := q.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
