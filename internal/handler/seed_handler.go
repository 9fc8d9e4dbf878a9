package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"capsulevault/internal/apperr"
	"capsulevault/internal/model"
	"capsulevault/internal/service"
)

// SeedHandler creates demo users and capsules for local development.
type SeedHandler struct {
	authService    service.AuthService
	capsuleService service.CapsuleService
}

// NewSeedHandler creates a new seed handler.
func NewSeedHandler(authService service.AuthService, capsuleService service.CapsuleService) *SeedHandler {
	return &SeedHandler{authService: authService, capsuleService: capsuleService}
}

type seedUser struct {
	Email       string
	Password    string
	DisplayName string
	Capsules    []seedCapsule
}

type seedCapsule struct {
	Title   string
	Message string
	OpenIn  time.Duration
	IsGoal  bool
	Goals   []string
	Theme   model.CapsuleTheme
}

var demoUsers = []seedUser{
	{
		Email:       "ava@example.com",
		Password:    "letmein-ava",
		DisplayName: "Ava",
		Capsules: []seedCapsule{
			{Title: "Letter to 2027 me", Message: "Dear future me, I hope the garden made it.", OpenIn: 365 * 24 * time.Hour, Theme: model.ThemeVintage},
			{Title: "Marathon goals", Message: "By the time this opens I want these done.", OpenIn: 90 * 24 * time.Hour, IsGoal: true, Goals: []string{"Run a half marathon", "Run a full marathon"}, Theme: model.ThemeModern},
		},
	},
	{
		Email:       "noah@example.com",
		Password:    "letmein-noah",
		DisplayName: "Noah",
		Capsules: []seedCapsule{
			{Title: "First apartment", Message: "Moving day photos and how it felt.", OpenIn: 30 * 24 * time.Hour, Theme: model.ThemeCosmic},
		},
	},
}

// SeedDemo godoc
// @Summary Seed demo users and capsules
// @Tags seed
// @Produce json
// @Success 200 {object} map[string]int
// @Failure 500 {object} apperr.ErrorResponse
// @Router /seed/demo [get]
func (h *SeedHandler) SeedDemo(c echo.Context) error {
	ctx := c.Request().Context()
	users, capsules := 0, 0

	for _, su := range demoUsers {
		_, _, user, err := h.authService.Register(ctx, su.Email, su.Password, su.DisplayName)
		if err != nil {
			if errors.Is(err, apperr.ErrDuplicateEmail) {
				continue // already seeded
			}
			httpErr := apperr.MapErrorToHTTP(err)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		users++

		for _, sc := range su.Capsules {
			_, err := h.capsuleService.Create(ctx, user.ID, service.CreateCapsuleInput{
				Title:      sc.Title,
				Message:    sc.Message,
				OpenDate:   time.Now().Add(sc.OpenIn),
				IsGoal:     sc.IsGoal,
				GoalTitles: sc.Goals,
				Theme:      sc.Theme,
			})
			if err != nil {
				httpErr := apperr.MapErrorToHTTP(err)
				return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			capsules++
		}
	}

	return c.JSON(http.StatusOK, map[string]int{
		"users_created":    users,
		"capsules_created": capsules,
	})
}
