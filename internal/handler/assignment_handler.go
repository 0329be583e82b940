package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/willowdale/rota-api/internal/service"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
	"github.com/willowdale/rota-api/pkg/response"
)

// AssignmentHandler exposes self-service signup on feeding slots.
type AssignmentHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentHandler constructs handler.
func NewAssignmentHandler(assignments *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// Assign godoc
// @Summary Sign up for a feeding slot
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path int true "Slot ID"
// @Param payload body service.AssignRequest true "Volunteer"
// @Success 200 {object} response.Envelope
// @Router /schedule/slots/{id}/assign [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	id, ok := slotID(c)
	if !ok {
		return
	}
	var req service.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.assignments.Assign(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Unassign godoc
// @Summary Release a feeding slot
// @Tags Assignments
// @Produce json
// @Param id path int true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/slots/{id}/unassign [post]
func (h *AssignmentHandler) Unassign(c *gin.Context) {
	id, ok := slotID(c)
	if !ok {
		return
	}
	slot, err := h.assignments.Unassign(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}
