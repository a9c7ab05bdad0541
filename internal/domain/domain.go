package domain

import (
	"github.com/plateful/plateful-backend/internal/domain/catalog"
	"github.com/plateful/plateful-backend/internal/domain/feed"
	"github.com/plateful/plateful-backend/internal/domain/user"
)

type User = user.User

type Restaurant = catalog.Restaurant
type Tag = catalog.Tag
type RestaurantTag = catalog.RestaurantTag
type RestaurantHour = catalog.RestaurantHour
type PriceRange = catalog.PriceRange

type RestaurantPrefState = feed.RestaurantPrefState
type RestaurantInteraction = feed.RestaurantInteraction
type UserTagPref = feed.UserTagPref

type Candidate = feed.Candidate
type TagPref = feed.TagPref
type TagWeight = feed.TagWeight
type ScoredItem = feed.ScoredItem
type PoolEntry = feed.PoolEntry
type FeedContext = feed.FeedContext

const (
	ActionSelect  = feed.ActionSelect
	ActionDislike = feed.ActionDislike
	ActionHold    = feed.ActionHold

	PrefScoreMin = feed.PrefScoreMin
	PrefScoreMax = feed.PrefScoreMax

	EventSelect        = feed.EventSelect
	EventDislike       = feed.EventDislike
	EventHold          = feed.EventHold
	EventSave          = feed.EventSave
	EventUnsave        = feed.EventUnsave
	EventView          = feed.EventView
	EventShare         = feed.EventShare
	EventVisitFeedback = feed.EventVisitFeedback

	SatisfactionLike    = feed.SatisfactionLike
	SatisfactionNeutral = feed.SatisfactionNeutral
	SatisfactionDislike = feed.SatisfactionDislike
)
