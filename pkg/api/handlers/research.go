package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/jordanlanch/rivalscope/pkg/api/errors"
	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/research"
)

// ResearchHandler handles research endpoints
type ResearchHandler struct {
	researches *research.Service
	validator  *validator.Validate
}

// NewResearchHandler creates a new research handler
func NewResearchHandler(researches *research.Service) *ResearchHandler {
	return &ResearchHandler{
		researches: researches,
		validator:  apierrors.NewValidator(),
	}
}

// List godoc
// @Summary List researches
// @Description The current user's researches, newest first
// @Tags Researches
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Research
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /researches [get]
func (h *ResearchHandler) List(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	researches, err := h.researches.List(ctx, user.ID)
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, researches)
}

// Get godoc
// @Summary Get a research
// @Tags Researches
// @Produce json
// @Security BearerAuth
// @Param id path int true "Research ID"
// @Success 200 {object} models.Research
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 403 {object} models.ErrorResponse "Owned by another user"
// @Failure 404 {object} models.ErrorResponse "Not found"
// @Router /researches/{id} [get]
func (h *ResearchHandler) Get(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}
	id, ok := parseID(c, "id")
	if !ok {
		return apierrors.NotFoundError(c, "Research")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	r, err := h.researches.Get(ctx, user.ID, id)
	if err != nil {
		return ownershipError(c, err, "Research")
	}
	return c.JSON(http.StatusOK, r)
}

// Create godoc
// @Summary Create a research
// @Description Stores a pending research. With autoFindCompetitors the
// @Description report is generated in the background.
// @Tags Researches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateResearchRequest true "Research"
// @Success 201 {object} models.Research
// @Failure 400 {object} models.ErrorResponse "Validation error"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 403 {object} models.ErrorResponse "Monthly quota exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /researches [post]
func (h *ResearchHandler) Create(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}

	var req models.CreateResearchRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	created, err := h.researches.Create(ctx, user, req)
	if err != nil {
		return ownershipError(c, err, "Research")
	}
	return c.JSON(http.StatusCreated, created)
}

// Update godoc
// @Summary Update a research
// @Description Merges the supplied fields. Status cannot be changed.
// @Tags Researches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Research ID"
// @Param request body models.UpdateResearchRequest true "Fields to change"
// @Success 200 {object} models.Research
// @Failure 400 {object} models.ErrorResponse "Validation error"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 403 {object} models.ErrorResponse "Owned by another user"
// @Failure 404 {object} models.ErrorResponse "Not found"
// @Router /researches/{id} [put]
func (h *ResearchHandler) Update(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}
	id, ok := parseID(c, "id")
	if !ok {
		return apierrors.NotFoundError(c, "Research")
	}

	var req models.UpdateResearchRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	updated, err := h.researches.Update(ctx, user.ID, id, req)
	if err != nil {
		return ownershipError(c, err, "Research")
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete godoc
// @Summary Delete a research
// @Description Deletes the research and its reports
// @Tags Researches
// @Security BearerAuth
// @Param id path int true "Research ID"
// @Success 204
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 403 {object} models.ErrorResponse "Owned by another user"
// @Failure 404 {object} models.ErrorResponse "Not found"
// @Router /researches/{id} [delete]
func (h *ResearchHandler) Delete(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}
	id, ok := parseID(c, "id")
	if !ok {
		return apierrors.NotFoundError(c, "Research")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.researches.Delete(ctx, user.ID, id); err != nil {
		return ownershipError(c, err, "Research")
	}
	return c.NoContent(http.StatusNoContent)
}

// GetReport godoc
// @Summary Get the report of a research
// @Tags Researches
// @Produce json
// @Security BearerAuth
// @Param id path int true "Research ID"
// @Success 200 {object} models.Report
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 403 {object} models.ErrorResponse "Owned by another user"
// @Failure 404 {object} models.ErrorResponse "Research or report not found"
// @Router /researches/{id}/report [get]
func (h *ResearchHandler) GetReport(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return apierrors.UnauthorizedError(c, "no user in context")
	}
	id, ok := parseID(c, "id")
	if !ok {
		return apierrors.NotFoundError(c, "Research")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	report, err := h.researches.GetReport(ctx, user.ID, id)
	if err != nil {
		return ownershipError(c, err, "Report")
	}
	return c.JSON(http.StatusOK, report)
}
