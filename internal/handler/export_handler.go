package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/estudaia-api/internal/dto"
	"github.com/noah-isme/estudaia-api/pkg/response"
)

type exportService interface {
	Generate(ctx context.Context, format dto.ExportFormat) (*dto.CatalogExport, error)
}

// ExportHandler streams catalog exports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Catalog godoc
// @Summary Export catalog
// @Description Downloads courses and disciplines as CSV or PDF
// @Tags Catalog
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /catalog/export [get]
func (h *ExportHandler) Catalog(c *gin.Context) {
	format := dto.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(dto.ExportFormatCSV))))
	out, err := h.service.Generate(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, out.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, out.ContentType, out.Body)
}
