package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	types "github.com/plateful/plateful-backend/internal/domain"
	"github.com/plateful/plateful-backend/internal/http/response"
	"github.com/plateful/plateful-backend/internal/platform/logger"
	"github.com/plateful/plateful-backend/internal/requestdata"
	"github.com/plateful/plateful-backend/internal/services"
)

type FeedHandler struct {
	log         *logger.Logger
	feedService services.FeedService
}

func NewFeedHandler(log *logger.Logger, feedService services.FeedService) *FeedHandler {
	return &FeedHandler{log: log.With("handler", "FeedHandler"), feedService: feedService}
}

// GET /feed?cursor=&lat=&lng=&radius_m=&max_candidates=&debug=
func (fh *FeedHandler) GetFeed(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	rd.Debug = c.Query("debug") == "true"

	fc := types.FeedContext{
		Latitude:      queryFloat(c, "lat"),
		Longitude:     queryFloat(c, "lng"),
		RadiusM:       queryFloat(c, "radius_m"),
		MaxCandidates: queryInt(c, "max_candidates"),
	}

	page, err := fh.feedService.GetFeed(c.Request.Context(), rd, c.Query("cursor"), fc)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /feed/personal?top=&debug= (authenticated)
func (fh *FeedHandler) GetPersonal(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())

	fc := types.FeedContext{
		Latitude:  queryFloat(c, "lat"),
		Longitude: queryFloat(c, "lng"),
		RadiusM:   queryFloat(c, "radius_m"),
	}
	top := queryInt(c, "top")
	debug := c.Query("debug") == "true"

	feed, err := fh.feedService.GetPersonal(c.Request.Context(), rd.UserID, fc, top, debug)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, feed)
}

// DELETE /feed/pool
func (fh *FeedHandler) ClearPool(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if err := fh.feedService.ClearPool(c.Request.Context(), rd); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func queryFloat(c *gin.Context, name string) float64 {
	v, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil {
		return 0
	}
	return v
}

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}
