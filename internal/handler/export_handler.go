package handler

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/willowdale/rota-api/internal/service"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
	"github.com/willowdale/rota-api/pkg/response"
)

// ExportHandler manages rota export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

type exportRequest struct {
	Format string `json:"format"`
}

// Request godoc
// @Summary Queue a rota export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body exportRequest true "Export format (csv or pdf)"
// @Success 202 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Request(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.exports.Request(c.Request.Context(), req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Get godoc
// @Summary Check export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Get(c *gin.Context) {
	job, err := h.exports.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download an export artifact via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, contentType, err := h.exports.Download(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(file.Name()))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
