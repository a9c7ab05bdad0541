package services

import (
	"time"

	"github.com/plateful/plateful-backend/internal/data/repos"
	types "github.com/plateful/plateful-backend/internal/domain"
)

// Preference delta constants. These encode the product's taste model;
// changing one reshapes every user's feed over time.
const (
	deltaSelect          = 0.80
	repeatSelectBonus    = 1.10
	repeatSelectWindow   = 7 * 24 * time.Hour
	deltaDislike         = -1.00
	dislikeCooldown      = 7 * 24 * time.Hour
	deltaHold            = -0.05
	deltaBookmarkAdd     = 0.50
	deltaBookmarkRemove  = -0.30
	deltaViewFirst       = 0.10
	deltaViewEarly       = 0.03
	viewEarlyMax         = 3
	deltaShareFirst      = 0.30
	deltaShareEarly      = 0.10
	shareEarlyMax        = 3
	shareDeltaCap        = 0.80
	deltaVisitLike       = 1.00
	deltaVisitNeutral    = 0.10
	deltaVisitDislike    = -1.00
	visitDislikeCooldown = 30 * 24 * time.Hour
)

// Tag-vector deltas per event. Confidence grows faster on explicit
// actions (swipe, visit feedback) than on passive ones; views and
// shares scale with their own decaying pref delta.
const (
	tagSelectScore  = 0.15
	tagSelectConf   = 0.30
	tagDislikeScore = -0.20
	tagDislikeConf  = 0.20

	tagSaveScore   = 0.10
	tagSaveConf    = 0.20
	tagUnsaveScore = -0.10
	tagUnsaveConf  = 0.10

	tagViewScoreScale  = 0.5
	tagViewConfScale   = 0.3
	tagShareScoreScale = 0.8
	tagShareConfScale  = 0.6

	tagVisitLikeScore    = 0.20
	tagVisitLikeConf     = 0.20
	tagVisitNeutralScore = 0.02
	tagVisitDislikeScore = -0.20
	tagVisitDislikeConf  = 0.20
)

// swipeDelta computes the state mutation and the tag-vector delta for a
// swipe action given the pair's prior state (nil on first touch).
// HOLD nudges the pair score but moves no tag mass.
func swipeDelta(action string, prior *types.RestaurantPrefState, now time.Time) (repos.StateDelta, repos.TagPrefDelta) {
	d := repos.StateDelta{
		LastAction: strPtr(action),
		ActionAt:   &now,
	}
	var tag repos.TagPrefDelta
	switch action {
	case types.ActionSelect:
		d.PrefDelta = deltaSelect
		if prior != nil && prior.LastAction != nil && *prior.LastAction == types.ActionSelect &&
			prior.LastActionAt != nil && now.Sub(*prior.LastActionAt) <= repeatSelectWindow {
			d.PrefDelta = deltaSelect * repeatSelectBonus
		}
		tag = repos.TagPrefDelta{Score: tagSelectScore, Confidence: tagSelectConf}
	case types.ActionDislike:
		d.PrefDelta = deltaDislike
		until := now.Add(dislikeCooldown)
		d.CooldownUntil = &until
		tag = repos.TagPrefDelta{Score: tagDislikeScore, Confidence: tagDislikeConf}
	case types.ActionHold:
		d.PrefDelta = deltaHold
	}
	return d, tag
}

func bookmarkTagDelta(add bool) repos.TagPrefDelta {
	if add {
		return repos.TagPrefDelta{Score: tagSaveScore, Confidence: tagSaveConf}
	}
	return repos.TagPrefDelta{Score: tagUnsaveScore, Confidence: tagUnsaveConf}
}

// viewTagDelta and shareTagDelta scale with the event's pref delta, so
// a fourth view (pref delta 0) moves no tag mass either.
func viewTagDelta(prefDelta float64) repos.TagPrefDelta {
	return repos.TagPrefDelta{Score: prefDelta * tagViewScoreScale, Confidence: prefDelta * tagViewConfScale}
}

func shareTagDelta(prefDelta float64) repos.TagPrefDelta {
	return repos.TagPrefDelta{Score: prefDelta * tagShareScoreScale, Confidence: prefDelta * tagShareConfScale}
}

// viewDelta: first view rewards discovery, the next two barely count,
// after that repeat views carry no signal.
func viewDelta(priorViewCount int) float64 {
	switch {
	case priorViewCount == 0:
		return deltaViewFirst
	case priorViewCount < viewEarlyMax:
		return deltaViewEarly
	default:
		return 0
	}
}

// shareDelta follows the same decay, with a cap on the cumulative
// share-derived contribution.
func shareDelta(priorShareCount int) float64 {
	var d float64
	switch {
	case priorShareCount == 0:
		d = deltaShareFirst
	case priorShareCount < shareEarlyMax:
		d = deltaShareEarly
	default:
		return 0
	}
	accrued := deltaShareFirst
	if priorShareCount > 0 {
		accrued += float64(min(priorShareCount, shareEarlyMax)-1) * deltaShareEarly
	} else {
		accrued = 0
	}
	if accrued+d > shareDeltaCap {
		d = shareDeltaCap - accrued
		if d < 0 {
			d = 0
		}
	}
	return d
}

// visitDelta computes the mutation for visit feedback. A not-visited
// answer records the fact and nothing else; unknown satisfaction is
// treated as neutral.
func visitDelta(isVisited bool, satisfaction string, now time.Time) (repos.StateDelta, repos.TagPrefDelta) {
	visited := isVisited
	d := repos.StateDelta{SetVisited: &visited}
	var tag repos.TagPrefDelta
	if !isVisited {
		return d, tag
	}
	switch satisfaction {
	case types.SatisfactionLike:
		d.PrefDelta = deltaVisitLike
		tag = repos.TagPrefDelta{Score: tagVisitLikeScore, Confidence: tagVisitLikeConf}
	case types.SatisfactionDislike:
		d.PrefDelta = deltaVisitDislike
		until := now.Add(visitDislikeCooldown)
		d.CooldownUntil = &until
		tag = repos.TagPrefDelta{Score: tagVisitDislikeScore, Confidence: tagVisitDislikeConf}
	default:
		d.PrefDelta = deltaVisitNeutral
		tag = repos.TagPrefDelta{Score: tagVisitNeutralScore}
	}
	return d, tag
}

// fanOutTags spreads one tag delta equally onto every tag of the
// restaurant. Intentionally unnormalized: heavily tagged restaurants
// move more tag mass.
func fanOutTags(tagIDs []int64, delta repos.TagPrefDelta) map[int64]repos.TagPrefDelta {
	if (delta.Score == 0 && delta.Confidence == 0) || len(tagIDs) == 0 {
		return nil
	}
	out := make(map[int64]repos.TagPrefDelta, len(tagIDs))
	for _, id := range tagIDs {
		out[id] = delta
	}
	return out
}

func strPtr(s string) *string { return &s }
