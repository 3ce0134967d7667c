package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stwalsh4118/loadcalc/api/internal/calc"
	apierrors "github.com/stwalsh4118/loadcalc/api/internal/errors"
	"github.com/stwalsh4118/loadcalc/api/internal/models"
	"github.com/stwalsh4118/loadcalc/api/internal/report"
	"github.com/stwalsh4118/loadcalc/api/internal/services"
)

// CalculationHandler serves the engine operations and calculation history.
type CalculationHandler struct {
	service services.CalculationService
}

// NewCalculationHandler creates a new CalculationHandler instance.
func NewCalculationHandler(service services.CalculationService) *CalculationHandler {
	return &CalculationHandler{service: service}
}

// CalculationQuery holds the query parameters shared by every calculation route.
type CalculationQuery struct {
	ProjectID string `form:"project_id" binding:"omitempty,max=120"`
}

// ListQuery holds the query parameters for history listings.
type ListQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ReportQuery holds the query parameters for report downloads.
type ReportQuery struct {
	ProjectID string `form:"project_id" binding:"omitempty,max=120"`
	Format    string `form:"format" binding:"omitempty,oneof=pdf xlsx"`
}

// CalculationResponse wraps an engine result. ID is set when the
// calculation was stored.
type CalculationResponse[T any] struct {
	ID     *uuid.UUID `json:"id,omitempty"`
	Result *T         `json:"result"`
}

// HistoryResponse lists stored calculations for a project.
type HistoryResponse struct {
	ProjectID    string               `json:"project_id"`
	Calculations []models.Calculation `json:"calculations"`
	Count        int                  `json:"count"`
}

// RegisterRoutes mounts the calculation, history and report routes on rg.
func (h *CalculationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	calcs := rg.Group("/calculations")
	calcs.POST("/dwelling", h.Dwelling)
	calcs.POST("/multi-family", h.MultiFamily)
	calcs.POST("/commercial", h.Commercial)
	calcs.POST("/feeder", h.Feeder)
	calcs.POST("/service-check", h.ServiceCheck)
	calcs.POST("/panel-utilization", h.Panel)
	calcs.GET("/:id", h.Get)

	rg.GET("/projects/:projectId/calculations", h.ListByProject)

	reports := rg.Group("/reports")
	reports.POST("/dwelling", h.DwellingReport)
	reports.POST("/multi-family", h.MultiFamilyReport)
	reports.POST("/commercial", h.CommercialReport)
}

// Dwelling handles POST /api/v1/calculations/dwelling.
func (h *CalculationHandler) Dwelling(c *gin.Context) {
	calculate(c, h.service.Dwelling)
}

// MultiFamily handles POST /api/v1/calculations/multi-family.
func (h *CalculationHandler) MultiFamily(c *gin.Context) {
	calculate(c, h.service.MultiFamily)
}

// Commercial handles POST /api/v1/calculations/commercial.
func (h *CalculationHandler) Commercial(c *gin.Context) {
	calculate(c, h.service.Commercial)
}

// Feeder handles POST /api/v1/calculations/feeder.
func (h *CalculationHandler) Feeder(c *gin.Context) {
	calculate(c, h.service.Feeder)
}

// ServiceCheck handles POST /api/v1/calculations/service-check.
func (h *CalculationHandler) ServiceCheck(c *gin.Context) {
	calculate(c, h.service.ServiceCheck)
}

// Panel handles POST /api/v1/calculations/panel-utilization.
func (h *CalculationHandler) Panel(c *gin.Context) {
	calculate(c, h.service.Panel)
}

// calculate binds the query and body, runs op and writes the result.
func calculate[In, Out any](c *gin.Context, op func(context.Context, string, In) (*services.Outcome[Out], error)) {
	var query CalculationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		apierrors.BindError(c, err)
		return
	}
	var in In
	if err := c.ShouldBindJSON(&in); err != nil {
		apierrors.BindError(c, err)
		return
	}

	out, err := op(c.Request.Context(), query.ProjectID, in)
	if err != nil {
		calculationError(c, err)
		return
	}
	c.JSON(http.StatusOK, CalculationResponse[Out]{ID: out.RecordID, Result: out.Result})
}

func calculationError(c *gin.Context, err error) {
	var verr *calc.ValidationError
	if errors.As(err, &verr) {
		apierrors.CalculationValidation(c, verr)
		return
	}
	if errors.Is(err, calc.ErrValidation) {
		apierrors.BadRequest(c, err.Error(), nil)
		return
	}
	apierrors.InternalServerError(c, "Calculation failed", err)
}

// Get handles GET /api/v1/calculations/:id.
func (h *CalculationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Calculation id must be a UUID", map[string]interface{}{"id": c.Param("id")})
		return
	}

	record, err := h.service.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrPersistenceDisabled):
		apierrors.ServiceUnavailable(c, "Calculation history is disabled")
	case errors.Is(err, services.ErrCalculationNotFound):
		apierrors.NotFound(c, "Calculation not found")
	case err != nil:
		apierrors.InternalServerError(c, "Failed to load calculation", err)
	default:
		c.JSON(http.StatusOK, record)
	}
}

// ListByProject handles GET /api/v1/projects/:projectId/calculations.
func (h *CalculationHandler) ListByProject(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		apierrors.BindError(c, err)
		return
	}
	projectID := c.Param("projectId")

	records, err := h.service.ListByProject(c.Request.Context(), projectID, query.Limit)
	switch {
	case errors.Is(err, services.ErrPersistenceDisabled):
		apierrors.ServiceUnavailable(c, "Calculation history is disabled")
	case err != nil:
		apierrors.InternalServerError(c, "Failed to list calculations", err)
	default:
		c.JSON(http.StatusOK, HistoryResponse{
			ProjectID:    projectID,
			Calculations: records,
			Count:        len(records),
		})
	}
}

// DwellingReport handles POST /api/v1/reports/dwelling.
func (h *CalculationHandler) DwellingReport(c *gin.Context) {
	renderReport(c, "dwelling", "Single-family dwelling load calculation", h.service.Dwelling,
		func(r *calc.LoadCalculationResult) (*calc.LoadCalculationResult, []calc.UnitTemplate) { return r, nil })
}

// MultiFamilyReport handles POST /api/v1/reports/multi-family.
func (h *CalculationHandler) MultiFamilyReport(c *gin.Context) {
	renderReport(c, "multi-family", "Multi-family dwelling load calculation", h.service.MultiFamily,
		func(r *calc.MultiUnitResult) (*calc.LoadCalculationResult, []calc.UnitTemplate) {
			return &r.LoadCalculationResult, r.Units
		})
}

// CommercialReport handles POST /api/v1/reports/commercial.
func (h *CalculationHandler) CommercialReport(c *gin.Context) {
	renderReport(c, "commercial", "Commercial load calculation", h.service.Commercial,
		func(r *calc.LoadCalculationResult) (*calc.LoadCalculationResult, []calc.UnitTemplate) { return r, nil })
}

// renderReport runs op and sends the result as a PDF (default) or XLSX
// attachment.
func renderReport[In, Out any](
	c *gin.Context,
	name, title string,
	op func(context.Context, string, In) (*services.Outcome[Out], error),
	content func(*Out) (*calc.LoadCalculationResult, []calc.UnitTemplate),
) {
	var query ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		apierrors.BindError(c, err)
		return
	}
	format := report.FormatPDF
	if query.Format != "" {
		format = report.Format(query.Format)
	}
	var in In
	if err := c.ShouldBindJSON(&in); err != nil {
		apierrors.BindError(c, err)
		return
	}

	out, err := op(c.Request.Context(), query.ProjectID, in)
	if err != nil {
		calculationError(c, err)
		return
	}

	res, units := content(out.Result)
	body, err := report.Render(format, report.Report{
		Title:       title,
		ProjectID:   query.ProjectID,
		GeneratedAt: time.Now(),
		Result:      res,
		Units:       units,
	})
	if err != nil {
		apierrors.InternalServerError(c, "Failed to render report", err)
		return
	}

	if out.RecordID != nil {
		c.Header("X-Calculation-ID", out.RecordID.String())
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"-load-calculation."+string(format)))
	c.Data(http.StatusOK, format.ContentType(), body)
}
