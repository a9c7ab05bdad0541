package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/plateful/plateful-backend/internal/clients/redis"
	"github.com/plateful/plateful-backend/internal/clients/scoreengine"
	"github.com/plateful/plateful-backend/internal/data/repos/testutil"
	types "github.com/plateful/plateful-backend/internal/domain"
	"github.com/plateful/plateful-backend/internal/platform/apierr"
	"github.com/plateful/plateful-backend/internal/requestdata"
)

func feedFixture(t *testing.T, n int) (*fakeCandidateService, *fakeRestaurantRepo, *fakeScoreClient, *fakePoolCache, FeedService) {
	t.Helper()

	candidates := make([]types.Candidate, 0, n)
	scores := make([]types.ScoredItem, 0, n)
	restaurants := make(map[int64]*types.Restaurant, n)
	for i := 1; i <= n; i++ {
		id := int64(i)
		candidates = append(candidates, types.Candidate{RestaurantID: id, Name: "place", Category1: "korean", DistanceM: float64(i)})
		// score grows with id so the ranked pool comes out reversed
		scores = append(scores, types.ScoredItem{RestaurantID: id, Score: float64(i)})
		restaurants[id] = &types.Restaurant{ID: id, Name: "place"}
	}

	candSvc := &fakeCandidateService{candidates: candidates}
	rr := &fakeRestaurantRepo{restaurants: restaurants}
	score := &fakeScoreClient{resp: &scoreengine.ScoreResponse{Scores: scores, AlgoVersion: "v2"}}
	cache := newFakePoolCache()
	svc := NewFeedService(nil, testutil.Logger(t), candSvc, rr, &fakeTagPrefRepo{}, score, cache)
	return candSvc, rr, score, cache, svc
}

func authRD() *requestdata.RequestData {
	return &requestdata.RequestData{UserID: uuid.New()}
}

func TestGetFeedFirstPageBuildsAndCachesPool(t *testing.T) {
	_, _, _, cache, svc := feedFixture(t, 15)
	rd := authRD()

	page, err := svc.GetFeed(context.Background(), rd, "", types.FeedContext{})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if len(page.Items) != batchSize {
		t.Fatalf("page size = %d, want %d", len(page.Items), batchSize)
	}
	// highest score first
	if page.Items[0].Restaurant.ID != 15 || page.Items[9].Restaurant.ID != 6 {
		t.Fatalf("page order = [%d..%d], want [15..6]", page.Items[0].Restaurant.ID, page.Items[9].Restaurant.ID)
	}
	if page.NextCursor == nil || *page.NextCursor != "10" {
		t.Fatalf("next cursor = %v, want \"10\"", page.NextCursor)
	}
	if cache.sets != 1 {
		t.Fatalf("cache writes = %d, want 1", cache.sets)
	}
	if cache.lastTTL != time.Hour {
		t.Fatalf("user pool ttl = %v, want 1h", cache.lastTTL)
	}
	if len(cache.pools[redisclient.DeriveKey(rd)]) != 15 {
		t.Fatalf("cached pool missing under derived key")
	}
}

func TestGetFeedCursorZeroAlwaysRegenerates(t *testing.T) {
	candSvc, _, _, cache, svc := feedFixture(t, 15)
	rd := authRD()
	cache.pools[redisclient.DeriveKey(rd)] = poolOf(25)

	page, err := svc.GetFeed(context.Background(), rd, "0", types.FeedContext{})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if len(candSvc.calls) != 1 {
		t.Fatalf("cursor 0 must rebuild the pool, retrieval calls = %d", len(candSvc.calls))
	}
	// the stale 25-entry pool was replaced by the fresh 15-entry one
	if len(cache.pools[redisclient.DeriveKey(rd)]) != 15 {
		t.Fatalf("stale pool survived a cursor-0 request")
	}
	if page.Items[0].Restaurant.ID != 15 {
		t.Fatalf("page served from stale pool")
	}
}

func TestGetFeedLaterCursorReadsCache(t *testing.T) {
	candSvc, rr, score, cache, svc := feedFixture(t, 15)
	rd := authRD()
	for i := 1; i <= 25; i++ {
		rr.restaurants[int64(i)] = &types.Restaurant{ID: int64(i), Name: "place"}
	}
	cache.pools[redisclient.DeriveKey(rd)] = poolOf(25)

	page, err := svc.GetFeed(context.Background(), rd, "10", types.FeedContext{})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if len(candSvc.calls) != 0 || score.calls != 0 {
		t.Fatalf("cursor page must not regenerate (retrieval=%d scoring=%d)", len(candSvc.calls), score.calls)
	}
	if page.Items[0].Restaurant.ID != 11 || page.Items[9].Restaurant.ID != 20 {
		t.Fatalf("page = [%d..%d], want [11..20]", page.Items[0].Restaurant.ID, page.Items[9].Restaurant.ID)
	}
	if page.NextCursor == nil || *page.NextCursor != "20" {
		t.Fatalf("next cursor = %v, want \"20\"", page.NextCursor)
	}
}

func TestGetFeedBeyondEndServesEmptyPage(t *testing.T) {
	_, _, _, cache, svc := feedFixture(t, 15)
	rd := authRD()
	cache.pools[redisclient.DeriveKey(rd)] = poolOf(25)

	page, err := svc.GetFeed(context.Background(), rd, "30", types.FeedContext{})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("beyond-end page has %d items, want 0", len(page.Items))
	}
	if page.NextCursor != nil {
		t.Fatalf("beyond-end next cursor = %q, want nil", *page.NextCursor)
	}
}

func TestGetFeedCorruptCacheEntryRegenerates(t *testing.T) {
	candSvc, _, _, cache, svc := feedFixture(t, 15)
	rd := authRD()
	cache.getErr = redisclient.ErrCorrupt

	page, err := svc.GetFeed(context.Background(), rd, "10", types.FeedContext{})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if cache.deletes != 1 {
		t.Fatalf("corrupt entry deletes = %d, want 1", cache.deletes)
	}
	if len(candSvc.calls) != 1 {
		t.Fatalf("corrupt entry must trigger a rebuild")
	}
	// offset 10 into the fresh 15-entry pool
	if len(page.Items) != 5 {
		t.Fatalf("page size after rebuild = %d, want 5", len(page.Items))
	}
}

func TestGetFeedCacheMissRegenerates(t *testing.T) {
	candSvc, _, _, cache, svc := feedFixture(t, 15)
	rd := authRD()

	if _, err := svc.GetFeed(context.Background(), rd, "10", types.FeedContext{}); err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if len(candSvc.calls) != 1 || cache.sets != 1 {
		t.Fatalf("miss must rebuild and cache (retrieval=%d sets=%d)", len(candSvc.calls), cache.sets)
	}
}

func TestGetFeedPassesTagVectorToScorer(t *testing.T) {
	candSvc, rr, score, cache, _ := feedFixture(t, 15)
	prefs := map[int64]types.TagPref{7: {Score: 0.45, Confidence: 0.6}}
	svc := NewFeedService(nil, testutil.Logger(t), candSvc, rr, &fakeTagPrefRepo{prefs: prefs}, score, cache)

	if _, err := svc.GetFeed(context.Background(), authRD(), "", types.FeedContext{}); err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if tp := score.lastTagPref[7]; tp.Score != 0.45 || tp.Confidence != 0.6 {
		t.Fatalf("scorer received tag pref %+v, want score 0.45 confidence 0.6", score.lastTagPref)
	}
}

func TestGetFeedScoringFailureBuildsNothing(t *testing.T) {
	_, _, score, cache, svc := feedFixture(t, 15)
	score.err = apierr.Upstream("score_engine_unavailable", nil)

	_, err := svc.GetFeed(context.Background(), authRD(), "", types.FeedContext{})
	if err == nil {
		t.Fatalf("scoring failure must fail the request")
	}
	if cache.sets != 0 {
		t.Fatalf("no pool may be cached on scoring failure, sets = %d", cache.sets)
	}
}

func TestGetFeedAnonymousColdStart(t *testing.T) {
	rating := 4.5
	candSvc, _, score, cache, svc := feedFixture(t, 15)
	for i := range candSvc.candidates {
		candSvc.candidates[i].Rating = &rating
		candSvc.candidates[i].ReviewCount = 100
	}
	rd := &requestdata.RequestData{AnonID: "tok-1"}

	page, err := svc.GetFeed(context.Background(), rd, "", types.FeedContext{})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if score.calls != 0 {
		t.Fatalf("guest feed must not call the score engine")
	}
	if len(candSvc.calls) != 1 || candSvc.calls[0] != nil {
		t.Fatalf("guest retrieval must pass a nil user id")
	}
	if len(page.Items) != batchSize {
		t.Fatalf("guest page size = %d, want %d", len(page.Items), batchSize)
	}
	if cache.lastTTL != 30*time.Minute {
		t.Fatalf("anon pool ttl = %v, want 30m", cache.lastTTL)
	}

	// same token, same seed, same order on rebuild
	again, err := svc.GetFeed(context.Background(), rd, "", types.FeedContext{})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	for i := range page.Items {
		if page.Items[i].Restaurant.ID != again.Items[i].Restaurant.ID {
			t.Fatalf("guest order not stable across regenerations at %d", i)
		}
	}
}

func TestGetFeedHydrateDropsDeletedRestaurants(t *testing.T) {
	_, rr, _, cache, svc := feedFixture(t, 15)
	rd := authRD()
	cache.pools[redisclient.DeriveKey(rd)] = poolOf(25)
	delete(rr.restaurants, 12)

	page, err := svc.GetFeed(context.Background(), rd, "10", types.FeedContext{})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	// entry 12 vanished; order of the survivors holds
	if len(page.Items) != 8 {
		t.Fatalf("page size = %d, want 8 after drops", len(page.Items))
	}
	if page.Items[0].Restaurant.ID != 11 || page.Items[1].Restaurant.ID != 13 {
		t.Fatalf("survivor order broken: %d then %d", page.Items[0].Restaurant.ID, page.Items[1].Restaurant.ID)
	}
}

func TestGetPersonalSortsClampsAndStripsDebug(t *testing.T) {
	_, _, score, _, svc := feedFixture(t, 5)
	for i := range score.resp.Scores {
		score.resp.Scores[i].Debug = map[string]any{"why": "because"}
	}

	out, err := svc.GetPersonal(context.Background(), uuid.New(), types.FeedContext{}, 3, false)
	if err != nil {
		t.Fatalf("get personal: %v", err)
	}
	if len(out.Items) != 3 {
		t.Fatalf("top = %d items, want 3", len(out.Items))
	}
	if out.Items[0].RestaurantID != 5 || out.Items[2].RestaurantID != 3 {
		t.Fatalf("order = [%d..%d], want [5..3]", out.Items[0].RestaurantID, out.Items[2].RestaurantID)
	}
	for _, item := range out.Items {
		if item.Debug != nil {
			t.Fatalf("debug payload must be stripped when not requested")
		}
	}
	if out.AlgoVersion != "v2" {
		t.Fatalf("algo version = %q, want v2", out.AlgoVersion)
	}
}

func TestGetPersonalKeepsDebugWhenRequested(t *testing.T) {
	_, _, score, _, svc := feedFixture(t, 3)
	score.resp.Scores[0].Debug = map[string]any{"distance_factor": 0.8}

	out, err := svc.GetPersonal(context.Background(), uuid.New(), types.FeedContext{}, 0, true)
	if err != nil {
		t.Fatalf("get personal: %v", err)
	}
	if out.Items[0].Debug == nil {
		t.Fatalf("debug payload must survive when requested")
	}
}

func TestClearPool(t *testing.T) {
	_, _, _, cache, svc := feedFixture(t, 5)
	rd := authRD()
	cache.pools[redisclient.DeriveKey(rd)] = poolOf(5)

	if err := svc.ClearPool(context.Background(), rd); err != nil {
		t.Fatalf("clear pool: %v", err)
	}
	if cache.deletes != 1 {
		t.Fatalf("cache deletes = %d, want 1", cache.deletes)
	}
	if _, ok := cache.pools[redisclient.DeriveKey(rd)]; ok {
		t.Fatalf("pool survived clear")
	}
}
