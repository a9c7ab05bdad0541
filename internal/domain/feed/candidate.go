package feed

// TagPref is one entry of the user's aggregated tag-preference vector
// as the score engine consumes it.
type TagPref struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// TagWeight is one entry of a restaurant's tag profile on the wire.
type TagWeight struct {
	Weight     float64 `json:"weight"`
	Confidence float64 `json:"confidence"`
}

// Candidate is the feature row assembled for one restaurant inside a
// retrieval pass. It is ephemeral: built per request, sent to the score
// engine, never persisted. TagIDs is the flat tag set kept for the
// diversity pass; the engine receives the weighted TagPref map instead.
type Candidate struct {
	RestaurantID int64               `json:"restaurant_id"`
	Name         string              `json:"name"`
	Category1    string              `json:"category1"`
	Category2    string              `json:"category2,omitempty"`
	Category3    string              `json:"category3,omitempty"`
	TagIDs       []int64             `json:"-"`
	TagPref      map[int64]TagWeight `json:"tag_pref"`
	Rating       *float64            `json:"rating,omitempty"`
	ReviewCount  int                 `json:"review_count"`
	PriceRange   string              `json:"price_range,omitempty"`

	DistanceM float64 `json:"distance_m"`
	IsOpen    bool    `json:"is_open"`

	PrefScore            float64 `json:"pref_score"`
	EngagementBoost      float64 `json:"engagement_boost"`
	HasInteractionRecent bool    `json:"has_interaction_recent"`
}

// ScoredItem pairs a candidate with the score engine's verdict.
type ScoredItem struct {
	RestaurantID int64          `json:"restaurant_id"`
	Score        float64        `json:"score"`
	Debug        map[string]any `json:"debug,omitempty"`
}

// PoolEntry is one element of the cached feed pool. The pool is
// immutable once written; pagination only slices it.
type PoolEntry struct {
	RestaurantID int64          `json:"restaurant_id"`
	DistanceM    float64        `json:"distance_m"`
	IsOpen       bool           `json:"is_open"`
	Explanation  map[string]any `json:"explanation,omitempty"`
}

// Retrieval defaults; the fallback location is the Gangnam station
// area used when a client sends no coordinates.
const (
	DefaultLatitude   = 37.5012767241426
	DefaultLongitude  = 127.039600248343
	DefaultRadiusM    = 5000.0
	DefaultMaxCand    = 200
	MaxCandidateCap   = 500
	PrefScoreCutoff   = -0.8
	MinSignalCand     = 100
	ExpansionRounds   = 2
	ExpansionCandStep = 150
)

// FeedContext is the validated retrieval context for one request.
// Zero or out-of-range fields are replaced with defaults by Normalize.
type FeedContext struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	RadiusM       float64 `json:"radius_m"`
	MaxCandidates int     `json:"max_candidates"`
}

// Normalize fills defaults and clamps ranges in place, returning the
// context for chaining.
func (fc FeedContext) Normalize() FeedContext {
	if fc.Latitude < -90 || fc.Latitude > 90 || fc.Latitude == 0 {
		fc.Latitude = DefaultLatitude
	}
	if fc.Longitude < -180 || fc.Longitude > 180 || fc.Longitude == 0 {
		fc.Longitude = DefaultLongitude
	}
	if fc.RadiusM <= 0 {
		fc.RadiusM = DefaultRadiusM
	}
	if fc.MaxCandidates <= 0 {
		fc.MaxCandidates = DefaultMaxCand
	}
	if fc.MaxCandidates > MaxCandidateCap {
		fc.MaxCandidates = MaxCandidateCap
	}
	return fc
}
