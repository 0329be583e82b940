package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/willowdale/rota-api/internal/models"
	"github.com/willowdale/rota-api/internal/service"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
	"github.com/willowdale/rota-api/pkg/response"
)

// ScheduleHandler manages schedule endpoints.
type ScheduleHandler struct {
	schedule  *service.ScheduleService
	provision *service.ProvisionService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(schedule *service.ScheduleService, provision *service.ProvisionService) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule, provision: provision}
}

// Weeks godoc
// @Summary Rolling week view of the schedule
// @Tags Schedule
// @Produce json
// @Param today query string false "Reference date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedule [get]
func (h *ScheduleHandler) Weeks(c *gin.Context) {
	today := time.Now().UTC()
	if raw := c.Query("today"); raw != "" {
		parsed, err := time.ParseInLocation(service.DateLayout, raw, time.UTC)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "today must be formatted as YYYY-MM-DD"))
			return
		}
		today = parsed
	}

	weeks, err := h.schedule.WeekView(c.Request.Context(), today)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, weeks, nil)
}

// ListSlots godoc
// @Summary List raw schedule slots
// @Tags Schedule
// @Produce json
// @Param activityType query string false "Filter by activity type"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /schedule/slots [get]
func (h *ScheduleHandler) ListSlots(c *gin.Context) {
	filter := models.SlotFilter{
		ActivityType: c.Query("activityType"),
		Status:       models.SlotStatus(c.Query("status")),
	}
	slots, err := h.schedule.ListSlots(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// GetSlot godoc
// @Summary Get one slot
// @Tags Schedule
// @Produce json
// @Param id path int true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/slots/{id} [get]
func (h *ScheduleHandler) GetSlot(c *gin.Context) {
	id, ok := slotID(c)
	if !ok {
		return
	}
	slot, err := h.schedule.GetSlot(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// CreateSlot godoc
// @Summary Create a slot
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.SlotPayload true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /schedule/slots [post]
func (h *ScheduleHandler) CreateSlot(c *gin.Context) {
	var req service.SlotPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.schedule.CreateSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// UpdateSlot godoc
// @Summary Update a slot (full record)
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path int true "Slot ID"
// @Param payload body service.SlotPayload true "Slot payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/slots/{id} [put]
func (h *ScheduleHandler) UpdateSlot(c *gin.Context) {
	id, ok := slotID(c)
	if !ok {
		return
	}
	var req service.SlotPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.schedule.UpdateSlot(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// DeleteSlot godoc
// @Summary Delete a slot
// @Tags Schedule
// @Param id path int true "Slot ID"
// @Success 204
// @Router /schedule/slots/{id} [delete]
func (h *ScheduleHandler) DeleteSlot(c *gin.Context) {
	id, ok := slotID(c)
	if !ok {
		return
	}
	if err := h.schedule.DeleteSlot(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Replace godoc
// @Summary Replace the full schedule
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.ReplaceScheduleRequest true "Full schedule"
// @Success 200 {object} response.Envelope
// @Router /schedule [put]
func (h *ScheduleHandler) Replace(c *gin.Context) {
	var req service.ReplaceScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slots, err := h.schedule.ReplaceSchedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// AutoManage godoc
// @Summary Extend the schedule horizon (maintenance tick)
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/auto-manage [post]
func (h *ScheduleHandler) AutoManage(c *gin.Context) {
	added, err := h.provision.AutoManageWeeks(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"slots_added": added}, nil)
}

func slotID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid slot id"))
		return 0, false
	}
	return id, true
}
