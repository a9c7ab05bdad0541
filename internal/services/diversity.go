package services

import (
	"hash/fnv"
	"math"
	"math/rand"
	"sort"

	types "github.com/plateful/plateful-backend/internal/domain"
)

// Feed pool shape. The first batchSize*highScoreBatches entries of a
// pool keep their pure score order; diversity only reorders the tail.
const (
	poolSize         = 100
	batchSize        = 10
	highScoreBatches = 2
	protectedHead    = batchSize * highScoreBatches
	lookbackWindow   = batchSize
	shuffleBandWidth = 0.5
)

// rankedCandidate couples a scored candidate with the attributes the
// diversity pass compares on.
type rankedCandidate struct {
	RestaurantID int64
	Score        float64
	Debug        map[string]any
	Categories   []string
	TagIDs       []int64
	DistanceM    float64
	IsOpen       bool
}

// applyDiversity reorders the tail of a score-descending list so that
// adjacent entries avoid repeating a category or sharing two or more
// tags with the recent window. When every remaining candidate
// overlaps, the highest-scored one is taken anyway.
func applyDiversity(items []rankedCandidate) []rankedCandidate {
	if len(items) <= protectedHead {
		return items
	}

	result := make([]rankedCandidate, 0, len(items))
	result = append(result, items[:protectedHead]...)

	remaining := make([]rankedCandidate, len(items)-protectedHead)
	copy(remaining, items[protectedHead:])

	for len(remaining) > 0 {
		idx := 0
		found := false
		for i := range remaining {
			if !overlapsRecent(remaining[i], result) {
				idx = i
				found = true
				break
			}
		}
		if !found {
			idx = 0 // fallback: highest score wins
		}
		result = append(result, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return result
}

func overlapsRecent(c rankedCandidate, selected []rankedCandidate) bool {
	window := lookbackWindow
	if window > len(selected) {
		window = len(selected)
	}
	for i := len(selected) - window; i < len(selected); i++ {
		if overlaps(c, selected[i]) {
			return true
		}
	}
	return false
}

// overlaps: any shared non-empty category, or two or more shared tags.
func overlaps(a, b rankedCandidate) bool {
	for _, ca := range a.Categories {
		if ca == "" {
			continue
		}
		for _, cb := range b.Categories {
			if ca == cb {
				return true
			}
		}
	}
	shared := 0
	for _, ta := range a.TagIDs {
		for _, tb := range b.TagIDs {
			if ta == tb {
				shared++
				if shared >= 2 {
					return true
				}
				break
			}
		}
	}
	return false
}

// confidence dampens ratings with few reviews: log-shaped, floored at
// 0.3, saturating at 200 reviews.
func confidence(reviewCount int) float64 {
	if reviewCount < 0 {
		reviewCount = 0
	}
	c := math.Log10(float64(reviewCount)+1) / math.Log10(201)
	if c < 0.3 {
		return 0.3
	}
	if c > 1.0 {
		return 1.0
	}
	return c
}

// coldStartRank orders candidates for callers with no preference
// signal: rating x review-confidence descending, with unrated
// restaurants appended in id order so the tail is stable.
func coldStartRank(items []rankedCandidate, ratings map[int64]*float64, reviewCounts map[int64]int) []rankedCandidate {
	rated := make([]rankedCandidate, 0, len(items))
	unrated := make([]rankedCandidate, 0)
	for _, it := range items {
		r := ratings[it.RestaurantID]
		if r != nil && *r > 0 {
			it.Score = *r * confidence(reviewCounts[it.RestaurantID])
			rated = append(rated, it)
		} else {
			it.Score = 0
			unrated = append(unrated, it)
		}
	}
	sort.SliceStable(rated, func(i, j int) bool { return rated[i].Score > rated[j].Score })
	sort.SliceStable(unrated, func(i, j int) bool { return unrated[i].RestaurantID < unrated[j].RestaurantID })
	return append(rated, unrated...)
}

// bandShuffle shuffles entries within score bands of fixed width, so a
// requester sees variety between pool regenerations without large rank
// jumps. The seed is derived from the cache key, keeping the order
// stable for one requester while it differs across requesters.
func bandShuffle(items []rankedCandidate, seed uint64) []rankedCandidate {
	if len(items) < 2 {
		return items
	}
	rng := rand.New(rand.NewSource(int64(seed)))

	out := make([]rankedCandidate, 0, len(items))
	start := 0
	for start < len(items) {
		end := start + 1
		for end < len(items) && items[start].Score-items[end].Score < shuffleBandWidth {
			end++
		}
		band := make([]rankedCandidate, end-start)
		copy(band, items[start:end])
		rng.Shuffle(len(band), func(i, j int) { band[i], band[j] = band[j], band[i] })
		out = append(out, band...)
		start = end
	}
	return out
}

// shuffleSeed hashes a cache key with FNV-1a.
func shuffleSeed(key string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return h.Sum64()
}

func candidateCategories(c *types.Candidate) []string {
	return []string{c.Category1, c.Category2, c.Category3}
}
