package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plateful/plateful-backend/internal/data/repos"
	types "github.com/plateful/plateful-backend/internal/domain"
	"github.com/plateful/plateful-backend/internal/domain/feed"
	"github.com/plateful/plateful-backend/internal/platform/logger"
)

const (
	engagementWindow   = 14 * 24 * time.Hour
	recentSignalWindow = 30 * 24 * time.Hour
	engagementBoostCap = 0.25
	boostSelect        = 0.20
	boostSave          = 0.15
	boostShare         = 0.10
	boostFirstView     = 0.03
)

type CandidateService interface {
	// Collect retrieves and feature-assembles the candidate set for a
	// request. userID is nil for guests, which skips preference
	// filtering and per-pair features. Retrieval expands (radius x2,
	// cap +150) when too few candidates carry external rating signal.
	Collect(ctx context.Context, userID *uuid.UUID, fc types.FeedContext) ([]types.Candidate, error)
}

type candidateService struct {
	db  *gorm.DB
	log *logger.Logger

	restaurantRepo  repos.RestaurantRepo
	stateRepo       repos.RestaurantPrefStateRepo
	interactionRepo repos.InteractionRepo
}

func NewCandidateService(
	db *gorm.DB,
	baseLog *logger.Logger,
	restaurantRepo repos.RestaurantRepo,
	stateRepo repos.RestaurantPrefStateRepo,
	interactionRepo repos.InteractionRepo,
) CandidateService {
	return &candidateService{
		db:              db,
		log:             baseLog.With("service", "CandidateService"),
		restaurantRepo:  restaurantRepo,
		stateRepo:       stateRepo,
		interactionRepo: interactionRepo,
	}
}

func (cs *candidateService) Collect(ctx context.Context, userID *uuid.UUID, fc types.FeedContext) ([]types.Candidate, error) {
	fc = fc.Normalize()

	radius := fc.RadiusM
	maxCand := fc.MaxCandidates

	var rows []repos.NearbyRestaurant
	for round := 0; ; round++ {
		var err error
		rows, err = cs.restaurantRepo.FindNearby(ctx, nil, userID, fc.Latitude, fc.Longitude, radius, feed.PrefScoreCutoff, maxCand)
		if err != nil {
			return nil, repos.MapError("restaurant_nearby", err)
		}

		withSignal := 0
		for i := range rows {
			if rows[i].HasExternalSignal() {
				withSignal++
			}
		}
		if withSignal >= feed.MinSignalCand || round >= feed.ExpansionRounds {
			if round > 0 {
				cs.log.Debug("candidate retrieval expanded",
					"rounds", round, "radius_m", radius, "max_candidates", maxCand, "with_signal", withSignal)
			}
			break
		}

		radius *= 2
		maxCand += feed.ExpansionCandStep
		if maxCand > feed.MaxCandidateCap {
			maxCand = feed.MaxCandidateCap
		}
	}

	if len(rows) == 0 {
		return []types.Candidate{}, nil
	}

	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}

	tagsByRestaurant, err := cs.restaurantRepo.TagsByRestaurant(ctx, nil, ids)
	if err != nil {
		return nil, repos.MapError("restaurant_tags", err)
	}
	hoursByRestaurant, err := cs.restaurantRepo.HoursByRestaurant(ctx, nil, ids)
	if err != nil {
		return nil, repos.MapError("restaurant_hours", err)
	}

	now := time.Now()
	var states map[int64]*types.RestaurantPrefState
	var events []types.RestaurantInteraction
	if userID != nil {
		states, err = cs.stateRepo.MapByUser(ctx, nil, *userID, ids)
		if err != nil {
			return nil, repos.MapError("pref_state", err)
		}
		events, err = cs.interactionRepo.RecentByUser(ctx, nil, *userID, ids, now.Add(-recentSignalWindow))
		if err != nil {
			return nil, repos.MapError("interaction", err)
		}
	}
	recent := summarizeRecent(events, now)

	out := make([]types.Candidate, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		links := tagsByRestaurant[r.ID]
		tagIDs := make([]int64, 0, len(links))
		tagPref := make(map[int64]types.TagWeight, len(links))
		for _, l := range links {
			tagIDs = append(tagIDs, l.TagID)
			tagPref[l.TagID] = types.TagWeight{Weight: l.Weight, Confidence: l.Confidence}
		}
		cand := types.Candidate{
			RestaurantID: r.ID,
			Name:         r.Name,
			Category1:    r.Category1,
			Category2:    r.Category2,
			Category3:    r.Category3,
			TagIDs:       tagIDs,
			TagPref:      tagPref,
			Rating:       r.Rating,
			ReviewCount:  r.ReviewCount,
			PriceRange:   string(r.PriceRange),
			DistanceM:    r.DistanceM,
			IsOpen:       openNow(hoursByRestaurant[r.ID], now),
		}
		if state := states[r.ID]; state != nil {
			cand.PrefScore = state.PrefScore
		}
		if sig := recent[r.ID]; sig != nil {
			cand.HasInteractionRecent = sig.hasPositiveIn30d
			cand.EngagementBoost = sig.boost(states[r.ID])
		}
		out = append(out, cand)
	}
	return out, nil
}

func openNow(hours []types.RestaurantHour, now time.Time) bool {
	for i := range hours {
		if hours[i].OpenAt(now) {
			return true
		}
	}
	return false
}

// recentSignal condenses a restaurant's event history in the lookback
// windows into the features the scorer consumes.
type recentSignal struct {
	hasPositiveIn30d bool
	selectIn14d      bool
	saveIn14d        bool
	shareIn14d       bool
	viewIn14d        bool
}

// boost accumulates recency weights, capped. The first-view bonus only
// applies when the pair's single lifetime view happened inside the
// window.
func (rs *recentSignal) boost(state *types.RestaurantPrefState) float64 {
	var b float64
	if rs.selectIn14d {
		b += boostSelect
	}
	if rs.saveIn14d {
		b += boostSave
	}
	if rs.shareIn14d {
		b += boostShare
	}
	if rs.viewIn14d && state != nil && state.ViewCount == 1 {
		b += boostFirstView
	}
	if b > engagementBoostCap {
		b = engagementBoostCap
	}
	return b
}

func summarizeRecent(events []types.RestaurantInteraction, now time.Time) map[int64]*recentSignal {
	if len(events) == 0 {
		return nil
	}
	cutoff14d := now.Add(-engagementWindow)
	out := make(map[int64]*recentSignal)
	for i := range events {
		e := &events[i]
		sig := out[e.RestaurantID]
		if sig == nil {
			sig = &recentSignal{}
			out[e.RestaurantID] = sig
		}
		switch e.EventType {
		case types.EventSelect, types.EventSave, types.EventShare, types.EventView:
			sig.hasPositiveIn30d = true
		}
		if e.CreatedAt.Before(cutoff14d) {
			continue
		}
		switch e.EventType {
		case types.EventSelect:
			sig.selectIn14d = true
		case types.EventSave:
			sig.saveIn14d = true
		case types.EventShare:
			sig.shareIn14d = true
		case types.EventView:
			sig.viewIn14d = true
		}
	}
	return out
}
