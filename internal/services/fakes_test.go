package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisclient "github.com/plateful/plateful-backend/internal/clients/redis"
	"github.com/plateful/plateful-backend/internal/clients/scoreengine"
	"github.com/plateful/plateful-backend/internal/data/repos"
	types "github.com/plateful/plateful-backend/internal/domain"
)

type nearbyCall struct {
	userID      *uuid.UUID
	lat, lng    float64
	radiusM     float64
	scoreCutoff float64
	limit       int
}

type fakeRestaurantRepo struct {
	nearbyCalls   []nearbyCall
	nearbyByRound [][]repos.NearbyRestaurant
	restaurants   map[int64]*types.Restaurant
	tags          map[int64][]types.RestaurantTag
	hours         map[int64][]types.RestaurantHour
	exists        map[int64]bool
}

func (f *fakeRestaurantRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Restaurant, error) {
	if r, ok := f.restaurants[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRestaurantRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.Restaurant, error) {
	var out []*types.Restaurant
	for _, id := range ids {
		if r, ok := f.restaurants[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRestaurantRepo) Exists(ctx context.Context, tx *gorm.DB, id int64) (bool, error) {
	if f.exists != nil {
		return f.exists[id], nil
	}
	_, ok := f.restaurants[id]
	return ok, nil
}

func (f *fakeRestaurantRepo) FindNearby(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, lat, lng, radiusM, scoreCutoff float64, limit int) ([]repos.NearbyRestaurant, error) {
	round := len(f.nearbyCalls)
	f.nearbyCalls = append(f.nearbyCalls, nearbyCall{
		userID: userID, lat: lat, lng: lng, radiusM: radiusM, scoreCutoff: scoreCutoff, limit: limit,
	})
	if round < len(f.nearbyByRound) {
		return f.nearbyByRound[round], nil
	}
	if len(f.nearbyByRound) > 0 {
		return f.nearbyByRound[len(f.nearbyByRound)-1], nil
	}
	return nil, nil
}

func (f *fakeRestaurantRepo) TagsByRestaurant(ctx context.Context, tx *gorm.DB, restaurantIDs []int64) (map[int64][]types.RestaurantTag, error) {
	out := map[int64][]types.RestaurantTag{}
	for _, id := range restaurantIDs {
		if tags, ok := f.tags[id]; ok {
			out[id] = tags
		}
	}
	return out, nil
}

func (f *fakeRestaurantRepo) HoursByRestaurant(ctx context.Context, tx *gorm.DB, restaurantIDs []int64) (map[int64][]types.RestaurantHour, error) {
	out := map[int64][]types.RestaurantHour{}
	for _, id := range restaurantIDs {
		if hours, ok := f.hours[id]; ok {
			out[id] = hours
		}
	}
	return out, nil
}

type fakePrefStateRepo struct {
	states map[int64]*types.RestaurantPrefState
	saved  []int64

	applied []repos.StateDelta
}

func (f *fakePrefStateRepo) ApplyDelta(ctx context.Context, tx *gorm.DB, userID uuid.UUID, restaurantID int64, d repos.StateDelta) (*types.RestaurantPrefState, error) {
	f.applied = append(f.applied, d)
	state := f.states[restaurantID]
	if state == nil {
		state = &types.RestaurantPrefState{UserID: userID, RestaurantID: restaurantID}
		if f.states == nil {
			f.states = map[int64]*types.RestaurantPrefState{}
		}
		f.states[restaurantID] = state
	}
	state.PrefScore += d.PrefDelta
	if state.PrefScore > 10 {
		state.PrefScore = 10
	}
	if state.PrefScore < -10 {
		state.PrefScore = -10
	}
	if d.SetSaved != nil {
		state.IsSaved = *d.SetSaved
	}
	if d.LastAction != nil {
		state.LastAction = d.LastAction
		state.LastActionAt = d.ActionAt
	}
	if d.CooldownUntil != nil {
		state.CooldownUntil = d.CooldownUntil
	}
	if d.SetVisited != nil {
		state.IsVisited = d.SetVisited
	}
	if d.IncView {
		state.ViewCount++
	}
	if d.IncShare {
		state.ShareCount++
	}
	return state, nil
}

func (f *fakePrefStateRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, restaurantID int64) (*types.RestaurantPrefState, error) {
	return f.states[restaurantID], nil
}

func (f *fakePrefStateRepo) MapByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, restaurantIDs []int64) (map[int64]*types.RestaurantPrefState, error) {
	out := map[int64]*types.RestaurantPrefState{}
	for _, id := range restaurantIDs {
		if s, ok := f.states[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (f *fakePrefStateRepo) SavedRestaurantIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]int64, error) {
	return f.saved, nil
}

type fakeInteractionRepo struct {
	events       []types.RestaurantInteraction
	lastSelected *types.RestaurantInteraction
}

func (f *fakeInteractionRepo) Append(ctx context.Context, tx *gorm.DB, event *types.RestaurantInteraction) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeInteractionRepo) LastSelected(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.RestaurantInteraction, error) {
	return f.lastSelected, nil
}

func (f *fakeInteractionRepo) RecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, restaurantIDs []int64, since time.Time) ([]types.RestaurantInteraction, error) {
	var out []types.RestaurantInteraction
	for _, e := range f.events {
		if e.CreatedAt.Before(since) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type fakeTagPrefRepo struct {
	prefs         map[int64]types.TagPref
	appliedDeltas []map[int64]repos.TagPrefDelta
}

func (f *fakeTagPrefRepo) ApplyDeltas(ctx context.Context, tx *gorm.DB, userID uuid.UUID, deltas map[int64]repos.TagPrefDelta) error {
	f.appliedDeltas = append(f.appliedDeltas, deltas)
	return nil
}

func (f *fakeTagPrefRepo) MapByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[int64]types.TagPref, error) {
	return f.prefs, nil
}

type fakeScoreClient struct {
	resp        *scoreengine.ScoreResponse
	err         error
	calls       int
	lastTagPref map[int64]types.TagPref
}

func (f *fakeScoreClient) ScorePersonal(ctx context.Context, userID uuid.UUID, tagPref map[int64]types.TagPref, candidates []types.Candidate, debug bool) (*scoreengine.ScoreResponse, error) {
	f.calls++
	f.lastTagPref = tagPref
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeCandidateService struct {
	candidates []types.Candidate
	err        error
	calls      []*uuid.UUID
}

func (f *fakeCandidateService) Collect(ctx context.Context, userID *uuid.UUID, fc types.FeedContext) ([]types.Candidate, error) {
	f.calls = append(f.calls, userID)
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type fakePoolCache struct {
	pools   map[string][]types.PoolEntry
	getErr  error
	sets    int
	deletes int
	lastTTL time.Duration
}

func newFakePoolCache() *fakePoolCache {
	return &fakePoolCache{pools: map[string][]types.PoolEntry{}}
}

func (f *fakePoolCache) Get(ctx context.Context, key string) ([]types.PoolEntry, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	pool, ok := f.pools[key]
	if !ok {
		return nil, redisclient.ErrMiss
	}
	return pool, nil
}

func (f *fakePoolCache) Set(ctx context.Context, key string, entries []types.PoolEntry, ttl time.Duration) error {
	f.sets++
	f.lastTTL = ttl
	f.pools[key] = entries
	return nil
}

func (f *fakePoolCache) Delete(ctx context.Context, key string) error {
	f.deletes++
	delete(f.pools, key)
	return nil
}

func (f *fakePoolCache) Close() error { return nil }
