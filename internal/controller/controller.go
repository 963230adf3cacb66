//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen --config=cfg.yaml openapi.yaml
package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/service"
	"github.com/rryowa/authsession/internal/util"
)

var _ ServerInterface = (*Controller)(nil)

type Controller struct {
	zapLogger   *zap.SugaredLogger
	authService *service.AuthService
	cookies     *util.CookieConfig
}

func NewController(logger *zap.SugaredLogger, authService *service.AuthService, cookies *util.CookieConfig) *Controller {
	return &Controller{
		zapLogger:   logger,
		authService: authService,
		cookies:     cookies,
	}
}

// (GET /api/ping).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

// (POST /api/auth/login).
func (c *Controller) Login(ctx echo.Context) error {
	var req models.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
	}

	issued, err := c.authService.Login(ctx.Request().Context(), req.Email, req.Password, deviceFrom(ctx))
	if err != nil {
		return err
	}

	c.setAuthCookies(ctx, issued)
	return ctx.JSON(http.StatusOK, tokenPairResponse(issued))
}

// (POST /api/auth/refresh).
// The refreshToken cookie wins over the body.
func (c *Controller) Refresh(ctx echo.Context) error {
	token := ""
	if cookie, err := ctx.Cookie(models.CookieRefreshToken); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req models.TokenRefreshRequest
		if err := ctx.Bind(&req); err != nil {
			return util.NewResponseError(http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		token = req.RefreshToken
	}

	issued, err := c.authService.Refresh(ctx.Request().Context(), token, deviceFrom(ctx))
	if err != nil {
		if _, _, known := service.Classify(err); known {
			c.clearAuthCookies(ctx)
		}
		return err
	}

	c.setAuthCookies(ctx, issued)
	return ctx.JSON(http.StatusOK, tokenPairResponse(issued))
}

// (POST /api/auth/logout).
func (c *Controller) Logout(ctx echo.Context) error {
	userID, sessionID := caller(ctx)
	if err := c.authService.Logout(ctx.Request().Context(), userID, sessionID); err != nil {
		return err
	}
	c.clearAuthCookies(ctx)
	return ctx.JSON(http.StatusOK, models.LogoutResponse{Success: true})
}

// (POST /api/auth/logout-all).
func (c *Controller) LogoutAll(ctx echo.Context) error {
	userID, _ := caller(ctx)
	if err := c.authService.LogoutAll(ctx.Request().Context(), userID); err != nil {
		return err
	}
	c.clearAuthCookies(ctx)
	return ctx.JSON(http.StatusOK, models.LogoutResponse{Success: true})
}

// (GET /api/auth/sessions).
func (c *Controller) ListSessions(ctx echo.Context) error {
	userID, sessionID := caller(ctx)
	sessions, err := c.authService.ListSessions(ctx.Request().Context(), userID)
	if err != nil {
		return err
	}

	views := make([]models.SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, models.SessionView{
			ID:             s.ID,
			Device:         s.Device,
			CreatedAt:      s.CreatedAt,
			LastActiveAt:   s.LastActiveAt,
			LastRotationAt: s.LastRotationAt,
			ExpiresAt:      s.Current.ExpiresAt,
			Current:        s.ID == sessionID,
		})
	}
	return ctx.JSON(http.StatusOK, views)
}

// (DELETE /api/auth/sessions/{id}).
func (c *Controller) RevokeSession(ctx echo.Context, target string) error {
	userID, sessionID := caller(ctx)

	if target == sessionID {
		return c.Logout(ctx)
	}
	if err := c.authService.RevokeOtherSession(ctx.Request().Context(), userID, target); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.LogoutResponse{Success: true})
}

// (POST /api/auth/audit).
func (c *Controller) Audit(ctx echo.Context) error {
	var req models.AuditRequest
	if err := ctx.Bind(&req); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
	}
	token := req.Token
	if token == "" {
		token, _ = ctx.Get(models.MwTokenKey).(string)
	}

	report, err := c.authService.Audit(ctx.Request().Context(), token)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func caller(ctx echo.Context) (userID, sessionID string) {
	userID, _ = ctx.Get(models.MwUserIDKey).(string)
	sessionID, _ = ctx.Get(models.MwSessionIDKey).(string)
	return userID, sessionID
}

func deviceFrom(ctx echo.Context) models.DeviceInfo {
	return service.NewDeviceInfo(ctx.Request().UserAgent(), ctx.RealIP())
}

func tokenPairResponse(issued *service.IssuedSession) models.TokenPairResponse {
	return models.TokenPairResponse{
		Success:      true,
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		User:         issued.User.View(),
	}
}
