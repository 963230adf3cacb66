package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/service"
)

func (c *Controller) setAuthCookies(ctx echo.Context, issued *service.IssuedSession) {
	now := c.authService.Now()
	ctx.SetCookie(c.cookie(models.CookieRefreshToken, issued.RefreshToken, issued.RefreshExpiresAt, now))
	ctx.SetCookie(c.cookie(models.CookieAccessToken, issued.AccessToken, issued.AccessExpiresAt, now))
}

func (c *Controller) clearAuthCookies(ctx echo.Context) {
	for _, name := range []string{models.CookieRefreshToken, models.CookieAccessToken} {
		cookie := c.cookie(name, "", time.Unix(0, 0), time.Time{})
		cookie.MaxAge = -1
		ctx.SetCookie(cookie)
	}
}

func (c *Controller) cookie(name, value string, expires, now time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.cookies.Path,
		Domain:   c.cookies.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.cookies.Secure,
		SameSite: c.cookies.SameSite,
	}
	if !now.IsZero() {
		cookie.MaxAge = int(expires.Sub(now).Seconds())
	}
	return cookie
}
