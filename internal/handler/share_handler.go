package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"capsulevault/internal/apperr"
	"capsulevault/internal/service"
)

// ShareHandler handles share link endpoints.
type ShareHandler struct {
	shareService service.ShareService
}

// NewShareHandler creates a new share handler.
func NewShareHandler(shareService service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// ShareRequest optionally sets or clears the link password.
type ShareRequest struct {
	Password *string `json:"password,omitempty"`
}

// Mint godoc
// @Summary Mint or update a capsule's share link
// @Description First call mints the token; later calls keep it and only
// @Description replace the password.
// @Tags share
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Capsule ID"
// @Param request body ShareRequest false "Optional password"
// @Success 200 {object} service.ShareLink
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /capsules/{id}/share [post]
func (h *ShareHandler) Mint(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	capsuleID, err := parseCapsuleID(c)
	if err != nil {
		return err
	}

	var req ShareRequest
	_ = c.Bind(&req)

	link, err := h.shareService.MintOrRotate(c.Request().Context(), capsuleID, userID, req.Password)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, link)
}

// Resolve godoc
// @Summary Resolve a share token to its capsule
// @Description Visitor-facing: no session required. A password-protected
// @Description link needs the password before content is revealed.
// @Tags share
// @Produce json
// @Param token path string true "Share token"
// @Param password query string false "Link password"
// @Success 200 {object} model.Capsule
// @Failure 401 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /shared/{token} [get]
func (h *ShareHandler) Resolve(c echo.Context) error {
	token := c.Param("token")
	password := c.QueryParam("password")

	capsule, err := h.shareService.Resolve(c.Request().Context(), token, password)
	if err != nil {
		httpErr := apperr.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, capsule)
}
