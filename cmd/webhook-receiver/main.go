// Command webhook-receiver is a local sink for IP-change notifications.
package main

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/rryowa/authsession/internal/service"
	"github.com/rryowa/authsession/internal/util"
)

const defaultAddr = ":9090"

func main() {
	logger := util.NewZapLogger()

	addr := os.Getenv("WEBHOOK_RECEIVER_ADDRESS")
	if addr == "" {
		addr = defaultAddr
	}

	e := echo.New()
	e.HideBanner = true
	e.POST("/", func(c echo.Context) error {
		var event service.IPChangeEvent
		if err := c.Bind(&event); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Error parsing JSON")
		}

		logger.Infow("Received webhook",
			"userID", event.UserID,
			"sessionID", event.SessionID,
			"oldIP", event.OldIP,
			"newIP", event.NewIP,
			"userAgent", event.UserAgent,
		)
		return c.String(http.StatusOK, "Webhook received!")
	})

	logger.Infof("Webhook receiver listening on %s", addr)
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
