package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"capsulevault/internal/config"
	"capsulevault/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	capsuleHandler *handler.CapsuleHandler,
	goalHandler *handler.GoalHandler,
	socialHandler *handler.SocialHandler,
	shareHandler *handler.ShareHandler,
	seedHandler *handler.SeedHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/seed/demo", seedHandler.SeedDemo)

	// Visitor-facing surfaces: the community feed, public comment lists,
	// public profiles and share-token resolution need no session.
	api.GET("/feed", capsuleHandler.Feed)
	api.GET("/capsules/:id/comments", socialHandler.ListComments)
	api.GET("/users/:id", authHandler.GetUser)
	api.GET("/shared/:token", shareHandler.Resolve)

	// Secured routes (require JWT authentication)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.JWTSecret),
		TokenLookup: "header:" + echo.HeaderAuthorization,
	}))

	secured.GET("/me", authHandler.Me)
	secured.PUT("/me", authHandler.UpdateProfile)

	// Capsule lifecycle
	secured.POST("/capsules", capsuleHandler.Create)
	secured.GET("/capsules", capsuleHandler.ListMine)
	secured.GET("/capsules/draft", capsuleHandler.GetDraft)
	secured.PUT("/capsules/draft", capsuleHandler.SaveDraft)
	secured.GET("/capsules/:id", capsuleHandler.Get)
	secured.DELETE("/capsules/:id", capsuleHandler.Delete)
	secured.POST("/capsules/:id/open", capsuleHandler.Open)
	secured.PUT("/capsules/:id/visibility", capsuleHandler.SetVisibility)

	// Goals
	secured.POST("/capsules/:id/goals", goalHandler.CreateGoals)
	secured.GET("/capsules/:id/goals", goalHandler.List)
	secured.POST("/goals/:id/toggle", goalHandler.Toggle)

	// Social
	secured.POST("/capsules/:id/reactions", socialHandler.React)
	secured.POST("/capsules/:id/comments", socialHandler.Comment)

	// Share links
	secured.POST("/capsules/:id/share", shareHandler.Mint)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
