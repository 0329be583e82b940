package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/willowdale/rota-api/internal/service"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
	"github.com/willowdale/rota-api/pkg/response"
)

// BackupHandler manages schedule snapshot endpoints.
type BackupHandler struct {
	backups *service.BackupService
}

// NewBackupHandler constructs handler.
func NewBackupHandler(backups *service.BackupService) *BackupHandler {
	return &BackupHandler{backups: backups}
}

// List godoc
// @Summary List schedule backups, newest first
// @Tags Backups
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /backups [get]
func (h *BackupHandler) List(c *gin.Context) {
	backups, err := h.backups.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, backups, nil)
}

// Create godoc
// @Summary Snapshot the current schedule
// @Tags Backups
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /backups [post]
func (h *BackupHandler) Create(c *gin.Context) {
	backup, err := h.backups.Create(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, backup)
}

// Restore godoc
// @Summary Restore the schedule from a backup
// @Tags Backups
// @Produce json
// @Param id path int true "Backup ID"
// @Success 200 {object} response.Envelope
// @Router /backups/{id}/restore [post]
func (h *BackupHandler) Restore(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid backup id"))
		return
	}
	slots, restoreErr := h.backups.Restore(c.Request.Context(), id)
	if restoreErr != nil {
		response.Error(c, restoreErr)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
