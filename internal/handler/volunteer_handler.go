package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/willowdale/rota-api/internal/service"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
	"github.com/willowdale/rota-api/pkg/response"
)

// VolunteerHandler manages volunteer roster endpoints.
type VolunteerHandler struct {
	volunteers *service.VolunteerService
}

// NewVolunteerHandler constructs handler.
func NewVolunteerHandler(volunteers *service.VolunteerService) *VolunteerHandler {
	return &VolunteerHandler{volunteers: volunteers}
}

// List godoc
// @Summary List volunteers
// @Tags Volunteers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /volunteers [get]
func (h *VolunteerHandler) List(c *gin.Context) {
	volunteers, err := h.volunteers.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, volunteers, nil)
}

// Create godoc
// @Summary Register a volunteer name
// @Tags Volunteers
// @Accept json
// @Produce json
// @Param payload body service.CreateVolunteerRequest true "Volunteer payload"
// @Success 201 {object} response.Envelope
// @Router /volunteers [post]
func (h *VolunteerHandler) Create(c *gin.Context) {
	var req service.CreateVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	volunteer, err := h.volunteers.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, volunteer)
}
