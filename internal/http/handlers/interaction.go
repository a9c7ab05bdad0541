package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/plateful/plateful-backend/internal/http/response"
	"github.com/plateful/plateful-backend/internal/platform/apierr"
	"github.com/plateful/plateful-backend/internal/platform/logger"
	"github.com/plateful/plateful-backend/internal/requestdata"
	"github.com/plateful/plateful-backend/internal/services"
)

type InteractionHandler struct {
	log               *logger.Logger
	preferenceService services.PreferenceService
}

func NewInteractionHandler(log *logger.Logger, preferenceService services.PreferenceService) *InteractionHandler {
	return &InteractionHandler{
		log:               log.With("handler", "InteractionHandler"),
		preferenceService: preferenceService,
	}
}

// POST /restaurants/:id/swipe
// body: { "action": "SELECT" | "DISLIKE" | "HOLD" }
func (ih *InteractionHandler) Swipe(c *gin.Context) {
	restaurantID, ok := pathRestaurantID(c)
	if !ok {
		return
	}
	var req struct {
		Action string `json:"action"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Invalid("invalid_request", err))
		return
	}

	rd := requestdata.GetRequestData(c.Request.Context())
	state, err := ih.preferenceService.HandleSwipe(c.Request.Context(), rd.UserID, restaurantID, req.Action)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": state})
}

// POST /restaurants/:id/bookmark
func (ih *InteractionHandler) AddBookmark(c *gin.Context) {
	restaurantID, ok := pathRestaurantID(c)
	if !ok {
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	state, err := ih.preferenceService.AddBookmark(c.Request.Context(), rd.UserID, restaurantID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": state})
}

// DELETE /restaurants/:id/bookmark
func (ih *InteractionHandler) RemoveBookmark(c *gin.Context) {
	restaurantID, ok := pathRestaurantID(c)
	if !ok {
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	state, err := ih.preferenceService.RemoveBookmark(c.Request.Context(), rd.UserID, restaurantID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": state})
}

// POST /restaurants/:id/view
func (ih *InteractionHandler) View(c *gin.Context) {
	restaurantID, ok := pathRestaurantID(c)
	if !ok {
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	state, err := ih.preferenceService.HandleView(c.Request.Context(), rd.UserID, restaurantID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": state})
}

// POST /restaurants/:id/share
func (ih *InteractionHandler) Share(c *gin.Context) {
	restaurantID, ok := pathRestaurantID(c)
	if !ok {
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	state, err := ih.preferenceService.HandleShare(c.Request.Context(), rd.UserID, restaurantID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": state})
}

// POST /restaurants/:id/visit-feedback
// body: { "is_visited": bool, "satisfaction": "LIKE" | "NEUTRAL" | "DISLIKE" }
func (ih *InteractionHandler) VisitFeedback(c *gin.Context) {
	restaurantID, ok := pathRestaurantID(c)
	if !ok {
		return
	}
	var req struct {
		IsVisited    bool   `json:"is_visited"`
		Satisfaction string `json:"satisfaction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Invalid("invalid_request", err))
		return
	}

	rd := requestdata.GetRequestData(c.Request.Context())
	state, err := ih.preferenceService.HandleVisitFeedback(c.Request.Context(), rd.UserID, restaurantID, req.IsVisited, req.Satisfaction)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": state})
}

// GET /me/last-selected
func (ih *InteractionHandler) LastSelected(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	selection, err := ih.preferenceService.LastSelected(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"last_selected": selection})
}

// GET /me/bookmarks
func (ih *InteractionHandler) Bookmarks(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	restaurants, err := ih.preferenceService.SavedRestaurants(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"bookmarks": restaurants})
}

func pathRestaurantID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.RespondAPIError(c, apierr.Invalid("invalid_restaurant_id", fmt.Errorf("bad restaurant id %q", c.Param("id"))))
		return 0, false
	}
	return id, true
}
