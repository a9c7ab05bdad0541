package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/plateful/plateful-backend/internal/domain"
	"github.com/plateful/plateful-backend/internal/platform/logger"
)

// NearbyRestaurant is a restaurant row annotated with its Haversine
// distance from the request point.
type NearbyRestaurant struct {
	types.Restaurant `gorm:"embedded"`
	DistanceM        float64 `gorm:"column:distance_m"`
}

type RestaurantRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Restaurant, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.Restaurant, error)
	Exists(ctx context.Context, tx *gorm.DB, id int64) (bool, error)

	// FindNearby returns restaurants within radiusM of (lat, lng)
	// ordered by distance. When userID is non-nil, pairs on an active
	// cooldown or with pref_score at or below scoreCutoff are excluded
	// in SQL.
	FindNearby(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, lat, lng, radiusM, scoreCutoff float64, limit int) ([]NearbyRestaurant, error)

	// TagsByRestaurant returns the full tag links including weight and
	// confidence; callers needing only ids project them out.
	TagsByRestaurant(ctx context.Context, tx *gorm.DB, restaurantIDs []int64) (map[int64][]types.RestaurantTag, error)
	HoursByRestaurant(ctx context.Context, tx *gorm.DB, restaurantIDs []int64) (map[int64][]types.RestaurantHour, error)
}

type restaurantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRestaurantRepo(db *gorm.DB, baseLog *logger.Logger) RestaurantRepo {
	return &restaurantRepo{db: db, log: baseLog.With("repo", "RestaurantRepo")}
}

func (rr *restaurantRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Restaurant, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var result types.Restaurant
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *restaurantRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.Restaurant, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.Restaurant
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *restaurantRepo) Exists(ctx context.Context, tx *gorm.DB, id int64) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Restaurant{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Haversine on an Earth radius of 6371000m. The alias cannot appear in
// WHERE, hence the wrapping subquery.
const nearbySelect = `
SELECT sub.* FROM (
  SELECT r.*,
    (6371000 * acos(least(1.0,
      cos(radians(?)) * cos(radians(r.latitude)) *
      cos(radians(r.longitude) - radians(?)) +
      sin(radians(?)) * sin(radians(r.latitude))
    ))) AS distance_m
  FROM restaurant r
) sub
WHERE sub.distance_m <= ?
ORDER BY sub.distance_m ASC
LIMIT ?`

const nearbyFilteredSelect = `
SELECT sub.* FROM (
  SELECT r.*,
    (6371000 * acos(least(1.0,
      cos(radians(?)) * cos(radians(r.latitude)) *
      cos(radians(r.longitude) - radians(?)) +
      sin(radians(?)) * sin(radians(r.latitude))
    ))) AS distance_m
  FROM restaurant r
  LEFT JOIN restaurant_pref_state s
    ON s.restaurant_id = r.id AND s.user_id = ?
  WHERE s.id IS NULL
     OR ((s.cooldown_until IS NULL OR s.cooldown_until <= NOW())
         AND s.pref_score > ?)
) sub
WHERE sub.distance_m <= ?
ORDER BY sub.distance_m ASC
LIMIT ?`

func (rr *restaurantRepo) FindNearby(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, lat, lng, radiusM, scoreCutoff float64, limit int) ([]NearbyRestaurant, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var rows []NearbyRestaurant
	var err error
	if userID == nil {
		err = transaction.WithContext(ctx).
			Raw(nearbySelect, lat, lng, lat, radiusM, limit).
			Scan(&rows).Error
	} else {
		err = transaction.WithContext(ctx).
			Raw(nearbyFilteredSelect, lat, lng, lat, *userID, scoreCutoff, radiusM, limit).
			Scan(&rows).Error
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (rr *restaurantRepo) TagsByRestaurant(ctx context.Context, tx *gorm.DB, restaurantIDs []int64) (map[int64][]types.RestaurantTag, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	out := make(map[int64][]types.RestaurantTag, len(restaurantIDs))
	if len(restaurantIDs) == 0 {
		return out, nil
	}

	var links []types.RestaurantTag
	if err := transaction.WithContext(ctx).
		Where("restaurant_id IN ?", restaurantIDs).
		Find(&links).Error; err != nil {
		return nil, err
	}
	for _, l := range links {
		out[l.RestaurantID] = append(out[l.RestaurantID], l)
	}
	return out, nil
}

func (rr *restaurantRepo) HoursByRestaurant(ctx context.Context, tx *gorm.DB, restaurantIDs []int64) (map[int64][]types.RestaurantHour, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	out := make(map[int64][]types.RestaurantHour, len(restaurantIDs))
	if len(restaurantIDs) == 0 {
		return out, nil
	}

	var hours []types.RestaurantHour
	if err := transaction.WithContext(ctx).
		Where("restaurant_id IN ?", restaurantIDs).
		Find(&hours).Error; err != nil {
		return nil, err
	}
	for _, h := range hours {
		out[h.RestaurantID] = append(out[h.RestaurantID], h)
	}
	return out, nil
}
