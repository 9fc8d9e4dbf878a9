package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"capsulevault/internal/apperr"
	"capsulevault/internal/model"
	"capsulevault/internal/service"
)

// GoalHandler handles goal endpoints.
type GoalHandler struct {
	goalService service.GoalService
}

// NewGoalHandler creates a new goal handler.
func NewGoalHandler(goalService service.GoalService) *GoalHandler {
	return &GoalHandler{goalService: goalService}
}

// CreateGoalsRequest carries the goal titles to attach.
type CreateGoalsRequest struct {
	Titles []string `json:"titles" validate:"required,min=1"`
}

// GoalListResponse bundles a goal list with its derived progress.
type GoalListResponse struct {
	Goals    []model.Goal       `json:"goals"`
	Progress model.GoalProgress `json:"progress"`
}

// CreateGoals godoc
// @Summary Attach goals to a goal-enabled capsule
// @Tags goals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Capsule ID"
// @Param request body CreateGoalsRequest true "Goal titles"
// @Success 201 {array} model.Goal
// @Failure 400 {object} apperr.ErrorResponse
// @Failure 409 {object} apperr.ErrorResponse
// @Router /capsules/{id}/goals [post]
func (h *GoalHandler) CreateGoals(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	capsuleID, err := parseCapsuleID(c)
	if err != nil {
		return err
	}

	var req CreateGoalsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	goals, err := h.goalService.CreateGoals(c.Request().Context(), capsuleID, userID, req.Titles)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, goals)
}

// List godoc
// @Summary List a capsule's goals with progress
// @Tags goals
// @Produce json
// @Security BearerAuth
// @Param id path string true "Capsule ID"
// @Success 200 {object} GoalListResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /capsules/{id}/goals [get]
func (h *GoalHandler) List(c echo.Context) error {
	if _, err := currentUserID(c); err != nil {
		return err
	}
	capsuleID, err := parseCapsuleID(c)
	if err != nil {
		return err
	}

	goals, progress, err := h.goalService.ListWithProgress(c.Request().Context(), capsuleID)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, GoalListResponse{Goals: goals, Progress: progress})
}

// Toggle godoc
// @Summary Toggle a goal's completion
// @Tags goals
// @Produce json
// @Security BearerAuth
// @Param id path string true "Goal ID"
// @Success 200 {object} model.Goal
// @Failure 404 {object} apperr.ErrorResponse
// @Failure 409 {object} apperr.ErrorResponse
// @Router /goals/{id}/toggle [post]
func (h *GoalHandler) Toggle(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	goalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, apperr.ErrorResponse{
			Error: "invalid goal ID",
			Code:  "INVALID_UUID",
		})
	}

	goal, err := h.goalService.Toggle(c.Request().Context(), goalID, userID)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, goal)
}
