package feed

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/plateful/plateful-backend/internal/domain"
	"github.com/plateful/plateful-backend/internal/platform/logger"
)

// TagPrefDelta is the per-tag increment produced by one preference
// event. Score can move either way; confidence only grows and is
// capped at 1.0 in SQL.
type TagPrefDelta struct {
	Score      float64
	Confidence float64
}

type UserTagPrefRepo interface {
	// ApplyDeltas increments per-tag score and confidence for the user,
	// inserting rows on first touch. Each write is an independent
	// upsert; a tag delta is never lost to a concurrent writer.
	ApplyDeltas(ctx context.Context, tx *gorm.DB, userID uuid.UUID, deltas map[int64]TagPrefDelta) error

	MapByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[int64]types.TagPref, error)
}

type userTagPrefRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTagPrefRepo(db *gorm.DB, baseLog *logger.Logger) UserTagPrefRepo {
	return &userTagPrefRepo{db: db, log: baseLog.With("repo", "UserTagPrefRepo")}
}

func (tr *userTagPrefRepo) ApplyDeltas(ctx context.Context, tx *gorm.DB, userID uuid.UUID, deltas map[int64]TagPrefDelta) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	if len(deltas) == 0 {
		return nil
	}

	for tagID, delta := range deltas {
		row := &types.UserTagPref{
			UserID:     userID,
			TagID:      tagID,
			Score:      delta.Score,
			Confidence: delta.Confidence,
		}
		if err := transaction.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "tag_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"score":      gorm.Expr("user_tag_pref.score + EXCLUDED.score"),
					"confidence": gorm.Expr("LEAST(user_tag_pref.confidence + EXCLUDED.confidence, 1.0)"),
					"updated_at": gorm.Expr("NOW()"),
				}),
			}).Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (tr *userTagPrefRepo) MapByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[int64]types.TagPref, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var rows []types.UserTagPref
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]types.TagPref, len(rows))
	for _, r := range rows {
		out[r.TagID] = types.TagPref{Score: r.Score, Confidence: r.Confidence}
	}
	return out, nil
}
