package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"capsulevault/internal/apperr"
	"capsulevault/internal/service"
)

// SocialHandler handles reaction and comment endpoints.
type SocialHandler struct {
	socialService service.SocialService
	authService   service.AuthService
}

// NewSocialHandler creates a new social handler.
func NewSocialHandler(socialService service.SocialService, authService service.AuthService) *SocialHandler {
	return &SocialHandler{socialService: socialService, authService: authService}
}

// ReactRequest selects the reaction type.
type ReactRequest struct {
	Type string `json:"type"`
}

// CommentRequest carries a new comment.
type CommentRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

// React godoc
// @Summary Toggle a reaction on a capsule
// @Tags social
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Capsule ID"
// @Param request body ReactRequest false "Reaction type"
// @Success 200 {array} model.Reaction
// @Failure 404 {object} apperr.ErrorResponse
// @Router /capsules/{id}/reactions [post]
func (h *SocialHandler) React(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	capsuleID, err := parseCapsuleID(c)
	if err != nil {
		return err
	}

	var req ReactRequest
	// Body is optional; an empty one means the default reaction.
	_ = c.Bind(&req)

	reactions, err := h.socialService.React(c.Request().Context(), capsuleID, userID, req.Type)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, reactions)
}

// Comment godoc
// @Summary Comment on a capsule
// @Tags social
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Capsule ID"
// @Param request body CommentRequest true "Comment text"
// @Success 201 {object} model.Comment
// @Failure 400 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /capsules/{id}/comments [post]
func (h *SocialHandler) Comment(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	capsuleID, err := parseCapsuleID(c)
	if err != nil {
		return err
	}

	var req CommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Snapshot the commenter's display name at post time.
	user, err := h.authService.GetUser(c.Request().Context(), userID)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	comment, err := h.socialService.Comment(c.Request().Context(), capsuleID, userID, user.DisplayName, req.Text)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, comment)
}

// ListComments godoc
// @Summary List a capsule's comments
// @Tags social
// @Produce json
// @Param id path string true "Capsule ID"
// @Success 200 {array} model.Comment
// @Failure 404 {object} apperr.ErrorResponse
// @Router /capsules/{id}/comments [get]
func (h *SocialHandler) ListComments(c echo.Context) error {
	capsuleID, err := parseCapsuleID(c)
	if err != nil {
		return err
	}

	comments, err := h.socialService.ListComments(c.Request().Context(), capsuleID)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, comments)
}
