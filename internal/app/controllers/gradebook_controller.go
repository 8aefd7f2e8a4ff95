package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models/dto"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/services"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/middleware"
)

// RunAsHeader lets admins query on behalf of another user.
const RunAsHeader = "X-Run-As"

const (
	defaultWindowDays = 7
	maxWindowDays     = 60
)

// GradebookController serves the four cached dashboard read shapes
type GradebookController struct {
	gradebookService *services.GradebookService
	logger           zerolog.Logger
}

// NewGradebookController creates a new GradebookController
func NewGradebookController(gradebookService *services.GradebookService, logger zerolog.Logger) *GradebookController {
	return &GradebookController{
		gradebookService: gradebookService,
		logger:           logger,
	}
}

// runAsUserID parses the impersonation header. Zero means no impersonation;
// authorization is the identity resolver's job, not the controller's.
func runAsUserID(ctx *gin.Context) (int64, bool) {
	raw := ctx.GetHeader(RunAsHeader)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// windowDays parses the days query parameter with a default and an upper bound.
func windowDays(ctx *gin.Context) (int, bool) {
	raw := ctx.Query("days")
	if raw == "" {
		return defaultWindowDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxWindowDays {
		return 0, false
	}
	return days, true
}

// CurrentGrades returns the computed grade for every enrolled section
// @Summary Current grades across all sections
// @Description Computes the weighted course grade per section for the target user. Responses are cached briefly; source and cachedAt indicate freshness.
// @Tags grades
// @Produce json
// @Security BearerAuth
// @Param X-Run-As header int false "Admin-only: query on behalf of this user ID"
// @Success 200 {object} dto.APIResponse{data=dto.GradesResponse}
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 403 {object} dto.ErrorResponse "Impersonation denied"
// @Failure 502 {object} dto.ErrorResponse "Gradebook source unavailable"
// @Router /grades [get]
func (c *GradebookController) CurrentGrades(ctx *gin.Context) {
	runAs, ok := runAsUserID(ctx)
	if !ok {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid X-Run-As header")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	resp, err := c.gradebookService.CurrentGrades(ctx.Request.Context(), middleware.CurrentUserID(ctx), runAs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: resp, Timestamp: time.Now()})
}

// Assignments returns one section's assignments grouped by category
// @Summary Assignments for a section
// @Description Lists a section's assignments grouped into grading category buckets, with grade and comment attached where present.
// @Tags grades
// @Produce json
// @Security BearerAuth
// @Param sectionId query int true "Section ID"
// @Param X-Run-As header int false "Admin-only: query on behalf of this user ID"
// @Success 200 {object} dto.APIResponse{data=dto.AssignmentsResponse}
// @Failure 400 {object} dto.ErrorResponse "Missing or invalid sectionId"
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 502 {object} dto.ErrorResponse "Gradebook source unavailable"
// @Router /assignments [get]
func (c *GradebookController) Assignments(ctx *gin.Context) {
	sectionID, err := strconv.ParseInt(ctx.Query("sectionId"), 10, 64)
	if err != nil || sectionID <= 0 {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Missing or invalid sectionId").
			WithField("sectionId")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	runAs, ok := runAsUserID(ctx)
	if !ok {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid X-Run-As header")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	resp, err := c.gradebookService.AssignmentsBySection(ctx.Request.Context(), middleware.CurrentUserID(ctx), runAs, sectionID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: resp, Timestamp: time.Now()})
}

// Upcoming returns assignments due in the next N days
// @Summary Upcoming assignments
// @Description Lists assignments due within the next N days across all sections, soonest first.
// @Tags grades
// @Produce json
// @Security BearerAuth
// @Param days query int false "Window size in days (default 7, max 60)"
// @Param X-Run-As header int false "Admin-only: query on behalf of this user ID"
// @Success 200 {object} dto.APIResponse{data=dto.UpcomingResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid days parameter"
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 502 {object} dto.ErrorResponse "Gradebook source unavailable"
// @Router /upcoming [get]
func (c *GradebookController) Upcoming(ctx *gin.Context) {
	days, ok := windowDays(ctx)
	if !ok {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "days must be between 1 and 60").
			WithField("days")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	runAs, ok := runAsUserID(ctx)
	if !ok {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid X-Run-As header")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	resp, err := c.gradebookService.Upcoming(ctx.Request.Context(), middleware.CurrentUserID(ctx), runAs, days)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: resp, Timestamp: time.Now()})
}

// RecentActivity returns grades posted in the last N days
// @Summary Recently graded work
// @Description Lists grade records submitted within the last N days across all sections, newest first.
// @Tags grades
// @Produce json
// @Security BearerAuth
// @Param days query int false "Window size in days (default 7, max 60)"
// @Param X-Run-As header int false "Admin-only: query on behalf of this user ID"
// @Success 200 {object} dto.APIResponse{data=dto.ActivityResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid days parameter"
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 502 {object} dto.ErrorResponse "Gradebook source unavailable"
// @Router /recent-activity [get]
func (c *GradebookController) RecentActivity(ctx *gin.Context) {
	days, ok := windowDays(ctx)
	if !ok {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "days must be between 1 and 60").
			WithField("days")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	runAs, ok := runAsUserID(ctx)
	if !ok {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid X-Run-As header")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	resp, err := c.gradebookService.RecentActivity(ctx.Request.Context(), middleware.CurrentUserID(ctx), runAs, days)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: resp, Timestamp: time.Now()})
}
