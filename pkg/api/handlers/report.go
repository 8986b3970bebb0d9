package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/jordanlanch/rivalscope/pkg/api/errors"
	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler handles report endpoints
type ReportHandler struct {
	reports   *report.Service
	validator *validator.Validate
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *report.Service) *ReportHandler {
	return &ReportHandler{
		reports:   reports,
		validator: apierrors.NewValidator(),
	}
}

// List godoc
// @Summary List reports
// @Description The current user's reports, newest first
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Report
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /reports [get]
func (h *ReportHandler) List(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	reports, err := h.reports.List(ctx, user.ID)
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, reports)
}

// Get godoc
// @Summary Get a report
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Success 200 {object} models.Report
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 403 {object} models.ErrorResponse "Owned by another user"
// @Failure 404 {object} models.ErrorResponse "Not found"
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}
	id, ok := parseID(c, "id")
	if !ok {
		return apierrors.NotFoundError(c, "Report")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	r, err := h.reports.Get(ctx, user.ID, id)
	if err != nil {
		return ownershipError(c, err, "Report")
	}
	return c.JSON(http.StatusOK, r)
}

// Create godoc
// @Summary Create a report
// @Description Attach a report to one of the current user's researches
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateReportRequest true "Report"
// @Success 201 {object} models.Report
// @Failure 400 {object} models.ErrorResponse "Validation error"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 403 {object} models.ErrorResponse "Research missing or owned by another user"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /reports [post]
func (h *ReportHandler) Create(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}

	var req models.CreateReportRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	created, err := h.reports.Create(ctx, user.ID, req)
	if err != nil {
		return ownershipError(c, err, "Research")
	}
	return c.JSON(http.StatusCreated, created)
}

// Export godoc
// @Summary Export a report
// @Description Download the report as an Excel workbook
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Success 200 {file} binary
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 403 {object} models.ErrorResponse "Owned by another user"
// @Failure 404 {object} models.ErrorResponse "Not found"
// @Router /reports/{id}/export [get]
func (h *ReportHandler) Export(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}
	id, ok := parseID(c, "id")
	if !ok {
		return apierrors.NotFoundError(c, "Report")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), exportTimeout)
	defer cancel()

	buf, filename, err := h.reports.Export(ctx, user.ID, id)
	if err != nil {
		return ownershipError(c, err, "Report")
	}

	c.Response().Header().Set("Content-Disposition", "attachment; filename="+filename)
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
