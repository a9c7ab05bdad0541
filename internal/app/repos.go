package app

import (
	"gorm.io/gorm"

	"github.com/plateful/plateful-backend/internal/data/repos"
	"github.com/plateful/plateful-backend/internal/platform/logger"
)

type Repos struct {
	Restaurant  repos.RestaurantRepo
	PrefState   repos.RestaurantPrefStateRepo
	Interaction repos.InteractionRepo
	TagPref     repos.UserTagPrefRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Restaurant:  repos.NewRestaurantRepo(db, log),
		PrefState:   repos.NewRestaurantPrefStateRepo(db, log),
		Interaction: repos.NewInteractionRepo(db, log),
		TagPref:     repos.NewUserTagPrefRepo(db, log),
	}
}
