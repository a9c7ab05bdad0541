package services

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	redisclient "github.com/plateful/plateful-backend/internal/clients/redis"
	"github.com/plateful/plateful-backend/internal/clients/scoreengine"
	"github.com/plateful/plateful-backend/internal/data/repos"
	types "github.com/plateful/plateful-backend/internal/domain"
	"github.com/plateful/plateful-backend/internal/platform/logger"
	"github.com/plateful/plateful-backend/internal/requestdata"
)

type FeedItem struct {
	Restaurant  *types.Restaurant `json:"restaurant"`
	DistanceM   float64           `json:"distance_m"`
	IsOpen      bool              `json:"is_open"`
	Explanation map[string]any    `json:"explanation,omitempty"`
}

type FeedPage struct {
	Items      []FeedItem `json:"items"`
	NextCursor *string    `json:"next_cursor"`
}

type PersonalFeed struct {
	Items       []types.ScoredItem `json:"items"`
	AlgoVersion string             `json:"algo_version"`
	ElapsedMs   int64              `json:"elapsed_ms"`
}

type FeedService interface {
	// GetFeed serves one page of the cached pool. Cursor zero (or
	// anything unparsable) always regenerates and overwrites the pool;
	// later pages read the cached pool so ordering stays immutable for
	// the lifetime of the cursor chain.
	GetFeed(ctx context.Context, rd *requestdata.RequestData, cursor string, fc types.FeedContext) (*FeedPage, error)

	// GetPersonal returns the top scored restaurants directly, without
	// touching the pool cache. Debug explanations pass through when
	// requested.
	GetPersonal(ctx context.Context, userID uuid.UUID, fc types.FeedContext, top int, debug bool) (*PersonalFeed, error)

	ClearPool(ctx context.Context, rd *requestdata.RequestData) error
}

type feedService struct {
	db  *gorm.DB
	log *logger.Logger

	candidateSvc   CandidateService
	restaurantRepo repos.RestaurantRepo
	tagPrefRepo    repos.UserTagPrefRepo
	scoreClient    scoreengine.Client
	cache          redisclient.PoolCache

	flight singleflight.Group
}

func NewFeedService(
	db *gorm.DB,
	baseLog *logger.Logger,
	candidateSvc CandidateService,
	restaurantRepo repos.RestaurantRepo,
	tagPrefRepo repos.UserTagPrefRepo,
	scoreClient scoreengine.Client,
	cache redisclient.PoolCache,
) FeedService {
	return &feedService{
		db:             db,
		log:            baseLog.With("service", "FeedService"),
		candidateSvc:   candidateSvc,
		restaurantRepo: restaurantRepo,
		tagPrefRepo:    tagPrefRepo,
		scoreClient:    scoreClient,
		cache:          cache,
	}
}

func (fs *feedService) GetFeed(ctx context.Context, rd *requestdata.RequestData, cursor string, fc types.FeedContext) (*FeedPage, error) {
	key := redisclient.DeriveKey(rd)
	offset := parseCursor(cursor)

	var pool []types.PoolEntry
	var err error
	if offset == 0 {
		pool, err = fs.regenerate(ctx, rd, key, fc)
	} else {
		pool, err = fs.cache.Get(ctx, key)
		switch {
		case err == nil:
		case errors.Is(err, redisclient.ErrCorrupt):
			fs.log.Warn("corrupt pool cache entry, regenerating", "key", key)
			if delErr := fs.cache.Delete(ctx, key); delErr != nil {
				fs.log.Warn("pool cache delete failed", "key", key, "error", delErr)
			}
			pool, err = fs.regenerate(ctx, rd, key, fc)
		case errors.Is(err, redisclient.ErrMiss):
			pool, err = fs.regenerate(ctx, rd, key, fc)
		default:
			fs.log.Warn("pool cache read failed, regenerating", "key", key, "error", err)
			pool, err = fs.regenerate(ctx, rd, key, fc)
		}
	}
	if err != nil {
		return nil, err
	}

	page, next := paginate(pool, offset, batchSize)
	items, err := fs.hydrate(ctx, page)
	if err != nil {
		return nil, err
	}
	return &FeedPage{Items: items, NextCursor: next}, nil
}

func (fs *feedService) GetPersonal(ctx context.Context, userID uuid.UUID, fc types.FeedContext, top int, debug bool) (*PersonalFeed, error) {
	if top <= 0 {
		top = batchSize
	}
	if top > poolSize {
		top = poolSize
	}

	candidates, err := fs.candidateSvc.Collect(ctx, &userID, fc)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &PersonalFeed{Items: []types.ScoredItem{}}, nil
	}

	tagPref, err := fs.tagPrefRepo.MapByUser(ctx, nil, userID)
	if err != nil {
		return nil, repos.MapError("tag_pref", err)
	}
	resp, err := fs.scoreClient.ScorePersonal(ctx, userID, tagPref, candidates, debug)
	if err != nil {
		return nil, err
	}

	items := resp.Scores
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if len(items) > top {
		items = items[:top]
	}
	if !debug {
		for i := range items {
			items[i].Debug = nil
		}
	}
	return &PersonalFeed{Items: items, AlgoVersion: resp.AlgoVersion, ElapsedMs: resp.ElapsedMs}, nil
}

func (fs *feedService) ClearPool(ctx context.Context, rd *requestdata.RequestData) error {
	return fs.cache.Delete(ctx, redisclient.DeriveKey(rd))
}

// regenerate coalesces concurrent pool builds per cache key; every
// waiter gets the winner's pool.
func (fs *feedService) regenerate(ctx context.Context, rd *requestdata.RequestData, key string, fc types.FeedContext) ([]types.PoolEntry, error) {
	v, err, _ := fs.flight.Do(key, func() (interface{}, error) {
		pool, err := fs.buildPool(ctx, rd, key, fc)
		if err != nil {
			return nil, err
		}
		if setErr := fs.cache.Set(ctx, key, pool, redisclient.TTLFor(rd)); setErr != nil {
			// serve the pool anyway; the next cursor-0 request rebuilds
			fs.log.Warn("pool cache write failed", "key", key, "error", setErr)
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.PoolEntry), nil
}

func (fs *feedService) buildPool(ctx context.Context, rd *requestdata.RequestData, key string, fc types.FeedContext) ([]types.PoolEntry, error) {
	var userID *uuid.UUID
	if rd.Authenticated() {
		id := rd.UserID
		userID = &id
	}

	candidates, err := fs.candidateSvc.Collect(ctx, userID, fc)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []types.PoolEntry{}, nil
	}

	var ranked []rankedCandidate
	if userID != nil {
		ranked, err = fs.rankScored(ctx, *userID, rd.Debug, candidates)
		if err != nil {
			return nil, err
		}
	} else {
		ranked = rankColdStart(candidates, key)
	}

	entries := make([]types.PoolEntry, 0, len(ranked))
	for i := range ranked {
		entry := types.PoolEntry{
			RestaurantID: ranked[i].RestaurantID,
			DistanceM:    ranked[i].DistanceM,
			IsOpen:       ranked[i].IsOpen,
		}
		if rd.Debug {
			entry.Explanation = ranked[i].Debug
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// rankScored runs the personal scorer and applies the diversity pass.
// A scoring failure is terminal: no partial pool is built or cached.
func (fs *feedService) rankScored(ctx context.Context, userID uuid.UUID, debug bool, candidates []types.Candidate) ([]rankedCandidate, error) {
	tagPref, err := fs.tagPrefRepo.MapByUser(ctx, nil, userID)
	if err != nil {
		return nil, repos.MapError("tag_pref", err)
	}

	resp, err := fs.scoreClient.ScorePersonal(ctx, userID, tagPref, candidates, debug)
	if err != nil {
		return nil, err
	}

	scoreByID := make(map[int64]types.ScoredItem, len(resp.Scores))
	for _, s := range resp.Scores {
		scoreByID[s.RestaurantID] = s
	}

	ranked := make([]rankedCandidate, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		s, ok := scoreByID[c.RestaurantID]
		if !ok {
			// engine chose not to score this candidate
			continue
		}
		ranked = append(ranked, rankedCandidate{
			RestaurantID: c.RestaurantID,
			Score:        s.Score,
			Debug:        s.Debug,
			Categories:   candidateCategories(c),
			TagIDs:       c.TagIDs,
			DistanceM:    c.DistanceM,
			IsOpen:       c.IsOpen,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > poolSize {
		ranked = ranked[:poolSize]
	}
	return applyDiversity(ranked), nil
}

// rankColdStart orders by external rating signal and shuffles within
// score bands, seeded on the cache key so one requester's order is
// stable across regenerations.
func rankColdStart(candidates []types.Candidate, key string) []rankedCandidate {
	items := make([]rankedCandidate, 0, len(candidates))
	ratings := make(map[int64]*float64, len(candidates))
	reviews := make(map[int64]int, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		items = append(items, rankedCandidate{
			RestaurantID: c.RestaurantID,
			Categories:   candidateCategories(c),
			TagIDs:       c.TagIDs,
			DistanceM:    c.DistanceM,
			IsOpen:       c.IsOpen,
		})
		ratings[c.RestaurantID] = c.Rating
		reviews[c.RestaurantID] = c.ReviewCount
	}

	ranked := coldStartRank(items, ratings, reviews)
	if len(ranked) > poolSize {
		ranked = ranked[:poolSize]
	}
	return bandShuffle(ranked, shuffleSeed(key))
}

func (fs *feedService) hydrate(ctx context.Context, page []types.PoolEntry) ([]FeedItem, error) {
	if len(page) == 0 {
		return []FeedItem{}, nil
	}

	ids := make([]int64, 0, len(page))
	for _, e := range page {
		ids = append(ids, e.RestaurantID)
	}
	restaurants, err := fs.restaurantRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, repos.MapError("restaurant", err)
	}
	byID := make(map[int64]*types.Restaurant, len(restaurants))
	for _, r := range restaurants {
		byID[r.ID] = r
	}

	// keep pool order; silently drop restaurants deleted since caching
	items := make([]FeedItem, 0, len(page))
	for _, e := range page {
		r, ok := byID[e.RestaurantID]
		if !ok {
			continue
		}
		items = append(items, FeedItem{
			Restaurant:  r,
			DistanceM:   e.DistanceM,
			IsOpen:      e.IsOpen,
			Explanation: e.Explanation,
		})
	}
	return items, nil
}
