package app

import (
	"gorm.io/gorm"

	"github.com/plateful/plateful-backend/internal/platform/logger"
	"github.com/plateful/plateful-backend/internal/services"
)

type Services struct {
	Candidate  services.CandidateService
	Feed       services.FeedService
	Preference services.PreferenceService
}

func wireServices(db *gorm.DB, log *logger.Logger, reposet Repos, clients Clients) Services {
	candidateSvc := services.NewCandidateService(db, log, reposet.Restaurant, reposet.PrefState, reposet.Interaction)
	feedSvc := services.NewFeedService(db, log, candidateSvc, reposet.Restaurant, reposet.TagPref, clients.ScoreEngine, clients.PoolCache)
	preferenceSvc := services.NewPreferenceService(db, log, reposet.Restaurant, reposet.PrefState, reposet.Interaction, reposet.TagPref)

	return Services{
		Candidate:  candidateSvc,
		Feed:       feedSvc,
		Preference: preferenceSvc,
	}
}
