package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plateful/plateful-backend/internal/data/repos"
	types "github.com/plateful/plateful-backend/internal/domain"
	"github.com/plateful/plateful-backend/internal/platform/apierr"
	"github.com/plateful/plateful-backend/internal/platform/logger"
)

// LastSelection is the most recent SELECT the user has not given visit
// feedback for yet; clients use it to prompt for feedback.
type LastSelection struct {
	Restaurant *types.Restaurant `json:"restaurant"`
	SelectedAt time.Time         `json:"selected_at"`
}

type PreferenceService interface {
	HandleSwipe(ctx context.Context, userID uuid.UUID, restaurantID int64, action string) (*types.RestaurantPrefState, error)
	AddBookmark(ctx context.Context, userID uuid.UUID, restaurantID int64) (*types.RestaurantPrefState, error)
	RemoveBookmark(ctx context.Context, userID uuid.UUID, restaurantID int64) (*types.RestaurantPrefState, error)
	HandleView(ctx context.Context, userID uuid.UUID, restaurantID int64) (*types.RestaurantPrefState, error)
	HandleShare(ctx context.Context, userID uuid.UUID, restaurantID int64) (*types.RestaurantPrefState, error)
	HandleVisitFeedback(ctx context.Context, userID uuid.UUID, restaurantID int64, isVisited bool, satisfaction string) (*types.RestaurantPrefState, error)

	LastSelected(ctx context.Context, userID uuid.UUID) (*LastSelection, error)
	SavedRestaurants(ctx context.Context, userID uuid.UUID) ([]*types.Restaurant, error)
}

type preferenceService struct {
	db  *gorm.DB
	log *logger.Logger

	restaurantRepo  repos.RestaurantRepo
	stateRepo       repos.RestaurantPrefStateRepo
	interactionRepo repos.InteractionRepo
	tagPrefRepo     repos.UserTagPrefRepo
}

func NewPreferenceService(
	db *gorm.DB,
	baseLog *logger.Logger,
	restaurantRepo repos.RestaurantRepo,
	stateRepo repos.RestaurantPrefStateRepo,
	interactionRepo repos.InteractionRepo,
	tagPrefRepo repos.UserTagPrefRepo,
) PreferenceService {
	return &preferenceService{
		db:              db,
		log:             baseLog.With("service", "PreferenceService"),
		restaurantRepo:  restaurantRepo,
		stateRepo:       stateRepo,
		interactionRepo: interactionRepo,
		tagPrefRepo:     tagPrefRepo,
	}
}

func (ps *preferenceService) HandleSwipe(ctx context.Context, userID uuid.UUID, restaurantID int64, action string) (*types.RestaurantPrefState, error) {
	switch action {
	case types.ActionSelect, types.ActionDislike, types.ActionHold:
	default:
		return nil, apierr.Invalid("invalid_swipe_action", fmt.Errorf("unknown swipe action %q", action))
	}

	if err := ps.requireRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}

	prior, err := ps.stateRepo.Get(ctx, nil, userID, restaurantID)
	if err != nil {
		return nil, repos.MapError("pref_state", err)
	}

	now := time.Now()
	delta, tag := swipeDelta(action, prior, now)
	return ps.applyMutation(ctx, userID, restaurantID, action, delta, tag)
}

func (ps *preferenceService) AddBookmark(ctx context.Context, userID uuid.UUID, restaurantID int64) (*types.RestaurantPrefState, error) {
	if err := ps.requireRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}

	prior, err := ps.stateRepo.Get(ctx, nil, userID, restaurantID)
	if err != nil {
		return nil, repos.MapError("pref_state", err)
	}
	if prior != nil && prior.IsSaved {
		// idempotent: re-saving moves no score
		return prior, nil
	}

	saved := true
	delta := repos.StateDelta{PrefDelta: deltaBookmarkAdd, SetSaved: &saved}
	return ps.applyMutation(ctx, userID, restaurantID, types.EventSave, delta, bookmarkTagDelta(true))
}

func (ps *preferenceService) RemoveBookmark(ctx context.Context, userID uuid.UUID, restaurantID int64) (*types.RestaurantPrefState, error) {
	if err := ps.requireRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}

	prior, err := ps.stateRepo.Get(ctx, nil, userID, restaurantID)
	if err != nil {
		return nil, repos.MapError("pref_state", err)
	}
	if prior == nil || !prior.IsSaved {
		return prior, nil
	}

	saved := false
	delta := repos.StateDelta{PrefDelta: deltaBookmarkRemove, SetSaved: &saved}
	return ps.applyMutation(ctx, userID, restaurantID, types.EventUnsave, delta, bookmarkTagDelta(false))
}

func (ps *preferenceService) HandleView(ctx context.Context, userID uuid.UUID, restaurantID int64) (*types.RestaurantPrefState, error) {
	if err := ps.requireRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}

	prior, err := ps.stateRepo.Get(ctx, nil, userID, restaurantID)
	if err != nil {
		return nil, repos.MapError("pref_state", err)
	}
	priorViews := 0
	if prior != nil {
		priorViews = prior.ViewCount
	}

	d := viewDelta(priorViews)
	delta := repos.StateDelta{PrefDelta: d, IncView: true}
	return ps.applyMutation(ctx, userID, restaurantID, types.EventView, delta, viewTagDelta(d))
}

func (ps *preferenceService) HandleShare(ctx context.Context, userID uuid.UUID, restaurantID int64) (*types.RestaurantPrefState, error) {
	if err := ps.requireRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}

	prior, err := ps.stateRepo.Get(ctx, nil, userID, restaurantID)
	if err != nil {
		return nil, repos.MapError("pref_state", err)
	}
	priorShares := 0
	if prior != nil {
		priorShares = prior.ShareCount
	}

	d := shareDelta(priorShares)
	delta := repos.StateDelta{PrefDelta: d, IncShare: true}
	return ps.applyMutation(ctx, userID, restaurantID, types.EventShare, delta, shareTagDelta(d))
}

func (ps *preferenceService) HandleVisitFeedback(ctx context.Context, userID uuid.UUID, restaurantID int64, isVisited bool, satisfaction string) (*types.RestaurantPrefState, error) {
	if err := ps.requireRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}

	delta, tag := visitDelta(isVisited, satisfaction, time.Now())
	return ps.applyMutation(ctx, userID, restaurantID, types.EventVisitFeedback, delta, tag)
}

func (ps *preferenceService) LastSelected(ctx context.Context, userID uuid.UUID) (*LastSelection, error) {
	event, err := ps.interactionRepo.LastSelected(ctx, nil, userID)
	if err != nil {
		return nil, repos.MapError("interaction", err)
	}
	if event == nil {
		return nil, nil
	}
	restaurant, err := ps.restaurantRepo.GetByID(ctx, nil, event.RestaurantID)
	if err != nil {
		return nil, repos.MapError("restaurant", err)
	}
	return &LastSelection{Restaurant: restaurant, SelectedAt: event.CreatedAt}, nil
}

func (ps *preferenceService) SavedRestaurants(ctx context.Context, userID uuid.UUID) ([]*types.Restaurant, error) {
	ids, err := ps.stateRepo.SavedRestaurantIDs(ctx, nil, userID)
	if err != nil {
		return nil, repos.MapError("pref_state", err)
	}
	restaurants, err := ps.restaurantRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, repos.MapError("restaurant", err)
	}
	// preserve saved-recency order from the id list
	byID := make(map[int64]*types.Restaurant, len(restaurants))
	for _, r := range restaurants {
		byID[r.ID] = r
	}
	out := make([]*types.Restaurant, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// applyMutation runs the event append, state upsert, and tag fan-out in
// one transaction and returns the post-write state snapshot.
func (ps *preferenceService) applyMutation(ctx context.Context, userID uuid.UUID, restaurantID int64, eventType string, delta repos.StateDelta, tag repos.TagPrefDelta) (*types.RestaurantPrefState, error) {
	var snapshot *types.RestaurantPrefState

	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ps.interactionRepo.Append(ctx, tx, &types.RestaurantInteraction{
			UserID:       userID,
			RestaurantID: restaurantID,
			EventType:    eventType,
		}); err != nil {
			return err
		}

		state, err := ps.stateRepo.ApplyDelta(ctx, tx, userID, restaurantID, delta)
		if err != nil {
			return err
		}
		snapshot = state

		if tag.Score != 0 || tag.Confidence != 0 {
			links, err := ps.restaurantRepo.TagsByRestaurant(ctx, tx, []int64{restaurantID})
			if err != nil {
				return err
			}
			tagIDs := make([]int64, 0, len(links[restaurantID]))
			for _, l := range links[restaurantID] {
				tagIDs = append(tagIDs, l.TagID)
			}
			if deltas := fanOutTags(tagIDs, tag); deltas != nil {
				if err := ps.tagPrefRepo.ApplyDeltas(ctx, tx, userID, deltas); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, repos.MapError("pref_mutation", err)
	}

	ps.log.Debug("preference mutated",
		"user_id", userID.String(),
		"restaurant_id", restaurantID,
		"event", eventType,
		"delta", delta.PrefDelta,
	)
	return snapshot, nil
}

func (ps *preferenceService) requireRestaurant(ctx context.Context, restaurantID int64) error {
	exists, err := ps.restaurantRepo.Exists(ctx, nil, restaurantID)
	if err != nil {
		return repos.MapError("restaurant", err)
	}
	if !exists {
		return apierr.NotFound("restaurant_not_found", fmt.Errorf("restaurant %d not found", restaurantID))
	}
	return nil
}
