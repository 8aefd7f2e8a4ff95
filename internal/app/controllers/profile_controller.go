package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models/dto"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/services"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/middleware"
)

// ProfileController handles viewer profile operations
type ProfileController struct {
	profileService *services.ProfileService
	logger         zerolog.Logger
}

// NewProfileController creates a new ProfileController
func NewProfileController(profileService *services.ProfileService, logger zerolog.Logger) *ProfileController {
	return &ProfileController{
		profileService: profileService,
		logger:         logger,
	}
}

// GetProfile returns the authenticated viewer's profile
// @Summary Get own profile
// @Description Returns the viewer's profile. Parent accounts include their linked children and the currently selected active child.
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse}
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Router /profile [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	viewerID := middleware.CurrentUserID(ctx)

	profile, err := c.profileService.GetProfile(ctx.Request.Context(), viewerID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: profile, Timestamp: time.Now()})
}

// SetActiveChild selects which linked child a parent is viewing
// @Summary Select the active child
// @Description Sets the child whose gradebook data subsequent queries return. Only parents may call this, and only for children linked to them.
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SetActiveChildRequest true "Child selection"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 403 {object} dto.ErrorResponse "Not a parent, or child not linked"
// @Router /profile/active-child [put]
func (c *ProfileController) SetActiveChild(ctx *gin.Context) {
	var req dto.SetActiveChildRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request format")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	viewerID := middleware.CurrentUserID(ctx)
	if err := c.profileService.SetActiveChild(ctx.Request.Context(), viewerID, req.ChildID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("parentID", viewerID).Int64("childID", req.ChildID).Msg("Active child selected")
	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.SuccessResponse{Message: "Active child updated"},
		Timestamp: time.Now(),
	})
}
