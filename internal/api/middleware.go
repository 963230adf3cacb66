package api

import (
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/service"
)

// BearerAuthMiddleware проверяет access токен из заголовка Authorization или
// cookie "token" и кладет userID, sessionID и роль в контекст Echo.
// Проверяются только подпись и срок жизни, живость сессии проверяет IdleTimeoutMiddleware.
// Маршруты, для которых secured возвращает false, пропускаются.
func BearerAuthMiddleware(authService *service.AuthService, secured func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !secured(c) {
				return next(c)
			}

			token := bearerToken(c)
			if token == "" {
				return service.ErrNoToken
			}

			claims, err := authService.VerifyAccessToken(token)
			if err != nil {
				return err
			}

			c.Set(models.MwUserIDKey, claims.UserID)
			c.Set(models.MwSessionIDKey, claims.SessionID)
			c.Set(models.MwRoleKey, claims.Role)
			c.Set(models.MwTokenKey, token)

			return next(c)
		}
	}
}

// IdleTimeoutMiddleware must run after BearerAuthMiddleware.
func IdleTimeoutMiddleware(authService *service.AuthService, secured func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !secured(c) {
				return next(c)
			}

			userID, _ := c.Get(models.MwUserIDKey).(string)
			sessionID, _ := c.Get(models.MwSessionIDKey).(string)

			if err := authService.TrackActivity(c.Request().Context(), userID, sessionID); err != nil {
				return err
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
	}
	if cookie, err := c.Cookie(models.CookieAccessToken); err == nil {
		return cookie.Value
	}
	return ""
}

func GetLoggerMiddlewareConfig(a *API) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogError:    true,
		LogLatency:  true,
		LogRemoteIP: true,
		HandleError: true,

		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"ip", v.RemoteIP,
			}
			if userID, ok := c.Get(models.MwUserIDKey).(string); ok {
				fields = append(fields, "userID", userID)
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				a.log.Errorw("Request", fields...)
			} else {
				a.log.Infow("Request", fields...)
			}
			return nil
		},
	}
}
