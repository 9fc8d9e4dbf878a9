package handler

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"capsulevault/internal/apperr"
	"capsulevault/internal/model"
	"capsulevault/internal/service"
)

// CapsuleHandler handles capsule lifecycle endpoints.
type CapsuleHandler struct {
	capsuleService service.CapsuleService
}

// NewCapsuleHandler creates a new capsule handler.
func NewCapsuleHandler(capsuleService service.CapsuleService) *CapsuleHandler {
	return &CapsuleHandler{capsuleService: capsuleService}
}

// FileUpload is one attachment in a create request, base64 encoded.
type FileUpload struct {
	Name string `json:"name" validate:"required"`
	Data string `json:"data" validate:"required"`
	Type string `json:"type"`
}

// CreateCapsuleRequest represents a capsule creation request.
type CreateCapsuleRequest struct {
	Title      string       `json:"title" validate:"required"`
	Message    string       `json:"message" validate:"required"`
	OpenDate   time.Time    `json:"open_date" validate:"required"`
	IsGoal     bool         `json:"is_goal"`
	GoalTitles []string     `json:"goal_titles,omitempty"`
	VoiceNote  string       `json:"voice_note,omitempty"`
	Theme      string       `json:"theme,omitempty"`
	IsPublic   bool         `json:"is_public"`
	Files      []FileUpload `json:"files,omitempty"`
}

// VisibilityRequest toggles the public flag.
type VisibilityRequest struct {
	IsPublic bool `json:"is_public"`
}

// DraftRequest is the autosaved scratch capsule.
type DraftRequest struct {
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	OpenDate   *time.Time `json:"open_date,omitempty"`
	IsGoal     bool       `json:"is_goal"`
	GoalTitles string     `json:"goal_titles,omitempty"`
	Theme      string     `json:"theme,omitempty"`
}

// Create godoc
// @Summary Seal a new time capsule
// @Tags capsules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCapsuleRequest true "Capsule content"
// @Success 201 {object} model.Capsule
// @Failure 400 {object} apperr.ErrorResponse
// @Failure 401 {object} apperr.ErrorResponse
// @Router /capsules [post]
func (h *CapsuleHandler) Create(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req CreateCapsuleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	files := make([]service.CapsuleFileInput, 0, len(req.Files))
	for _, f := range req.Files {
		data, err := base64.StdEncoding.DecodeString(f.Data)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, apperr.ErrorResponse{
				Error: "file data must be base64 encoded",
				Code:  "VALIDATION_ERROR",
			})
		}
		files = append(files, service.CapsuleFileInput{
			Name:        f.Name,
			Data:        data,
			ContentType: f.Type,
		})
	}

	capsule, err := h.capsuleService.Create(c.Request().Context(), userID, service.CreateCapsuleInput{
		Title:      req.Title,
		Message:    req.Message,
		OpenDate:   req.OpenDate,
		IsGoal:     req.IsGoal,
		GoalTitles: req.GoalTitles,
		VoiceNote:  req.VoiceNote,
		Theme:      model.CapsuleTheme(req.Theme),
		IsPublic:   req.IsPublic,
		Files:      files,
	})
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusCreated, capsule)
}

// ListMine godoc
// @Summary List the current user's capsules
// @Tags capsules
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Capsule
// @Failure 401 {object} apperr.ErrorResponse
// @Router /capsules [get]
func (h *CapsuleHandler) ListMine(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	capsules, err := h.capsuleService.ListMine(c.Request().Context(), userID)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, capsules)
}

// Get godoc
// @Summary Get one capsule
// @Tags capsules
// @Produce json
// @Security BearerAuth
// @Param id path string true "Capsule ID"
// @Success 200 {object} model.Capsule
// @Failure 404 {object} apperr.ErrorResponse
// @Router /capsules/{id} [get]
func (h *CapsuleHandler) Get(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	capsuleID, err := parseCapsuleID(c)
	if err != nil {
		return err
	}

	capsule, err := h.capsuleService.Get(c.Request().Context(), capsuleID, userID)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, capsule)
}

// Open godoc
// @Summary Attempt to open a capsule
// @Description Transitions the capsule to opened when its date has passed.
// @Tags capsules
// @Produce json
// @Security BearerAuth
// @Param id path string true "Capsule ID"
// @Success 200 {object} model.Capsule
// @Failure 404 {object} apperr.ErrorResponse
// @Failure 423 {object} apperr.ErrorResponse
// @Router /capsules/{id}/open [post]
func (h *CapsuleHandler) Open(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	capsuleID, err := parseCapsuleID(c)
	if err != nil {
		return err
	}

	capsule, err := h.capsuleService.AttemptOpen(c.Request().Context(), capsuleID, userID)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, capsule)
}

// SetVisibility godoc
// @Summary Publish or unpublish an opened capsule
// @Tags capsules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Capsule ID"
// @Param request body VisibilityRequest true "Visibility"
// @Success 200 {object} model.Capsule
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /capsules/{id}/visibility [put]
func (h *CapsuleHandler) SetVisibility(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	capsuleID, err := parseCapsuleID(c)
	if err != nil {
		return err
	}

	var req VisibilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	capsule, err := h.capsuleService.SetPublic(c.Request().Context(), capsuleID, userID, req.IsPublic)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, capsule)
}

// Delete godoc
// @Summary Delete a capsule and everything attached to it
// @Tags capsules
// @Produce json
// @Security BearerAuth
// @Param id path string true "Capsule ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /capsules/{id} [delete]
func (h *CapsuleHandler) Delete(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	capsuleID, err := parseCapsuleID(c)
	if err != nil {
		return err
	}

	if err := h.capsuleService.Delete(c.Request().Context(), capsuleID, userID); err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "capsule deleted"})
}

// Feed godoc
// @Summary Community feed of publicly opened capsules
// @Tags capsules
// @Produce json
// @Success 200 {array} model.Capsule
// @Router /feed [get]
func (h *CapsuleHandler) Feed(c echo.Context) error {
	capsules, err := h.capsuleService.ListPublic(c.Request().Context())
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, capsules)
}

// SaveDraft godoc
// @Summary Autosave the in-progress capsule draft
// @Tags capsules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DraftRequest true "Draft content"
// @Success 200 {object} map[string]string
// @Failure 401 {object} apperr.ErrorResponse
// @Router /capsules/draft [put]
func (h *CapsuleHandler) SaveDraft(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req DraftRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	draft := &model.Draft{
		Title:      req.Title,
		Message:    req.Message,
		OpenDate:   req.OpenDate,
		IsGoal:     req.IsGoal,
		GoalTitles: req.GoalTitles,
		Theme:      model.CapsuleTheme(req.Theme),
	}
	if err := h.capsuleService.SaveDraft(c.Request().Context(), userID, draft); err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "draft saved"})
}

// GetDraft godoc
// @Summary Get the in-progress capsule draft
// @Tags capsules
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Draft
// @Success 204 "no draft"
// @Failure 401 {object} apperr.ErrorResponse
// @Router /capsules/draft [get]
func (h *CapsuleHandler) GetDraft(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	draft, err := h.capsuleService.GetDraft(c.Request().Context(), userID)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	if draft == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, draft)
}

func parseCapsuleID(c echo.Context) (uuid.UUID, error) {
	capsuleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, apperr.ErrorResponse{
			Error: "invalid capsule ID",
			Code:  "INVALID_UUID",
		})
	}
	return capsuleID, nil
}
