package repos

import (
	"github.com/plateful/plateful-backend/internal/data/repos/catalog"
	"github.com/plateful/plateful-backend/internal/data/repos/feed"
)

type RestaurantRepo = catalog.RestaurantRepo
type NearbyRestaurant = catalog.NearbyRestaurant

type RestaurantPrefStateRepo = feed.RestaurantPrefStateRepo
type StateDelta = feed.StateDelta
type TagPrefDelta = feed.TagPrefDelta
type InteractionRepo = feed.InteractionRepo
type UserTagPrefRepo = feed.UserTagPrefRepo

var NewRestaurantRepo = catalog.NewRestaurantRepo
var NewRestaurantPrefStateRepo = feed.NewRestaurantPrefStateRepo
var NewInteractionRepo = feed.NewInteractionRepo
var NewUserTagPrefRepo = feed.NewUserTagPrefRepo
