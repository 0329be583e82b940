package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/willowdale/rota-api/internal/service"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
	"github.com/willowdale/rota-api/pkg/response"
)

// ActivityHandler manages activity type endpoints.
type ActivityHandler struct {
	activities *service.ActivityService
}

// NewActivityHandler constructs handler.
func NewActivityHandler(activities *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List godoc
// @Summary List activity types
// @Tags Activities
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /activity-types [get]
func (h *ActivityHandler) List(c *gin.Context) {
	activities, err := h.activities.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, nil)
}

// Create godoc
// @Summary Create an activity type
// @Tags Activities
// @Accept json
// @Produce json
// @Param payload body service.CreateActivityRequest true "Activity type payload"
// @Success 201 {object} response.Envelope
// @Router /activity-types [post]
func (h *ActivityHandler) Create(c *gin.Context) {
	var req service.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	activity, err := h.activities.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, activity)
}
