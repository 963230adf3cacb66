package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/service"
	"github.com/rryowa/authsession/internal/util"
)

// ErrorHandler renders every failure as {message, code}. Session errors keep
// their stable codes; anything unclassified is logged and becomes a 500.
func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := errorResponse(err)
		if status == http.StatusInternalServerError {
			log.Errorw("unhandled error", "error", err, "uri", c.Request().RequestURI)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Errorw("failed to write json response", "error", err)
		}
	}
}

func errorResponse(err error) (int, models.ErrorResponse) {
	if status, code, ok := service.Classify(err); ok {
		return status, models.ErrorResponse{Message: service.PublicMessage(err), Code: code}
	}

	var respErr util.MyResponseError
	if errors.As(err, &respErr) {
		return respErr.Status, models.ErrorResponse{Message: respErr.Msg, Code: respErr.Code}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, models.ErrorResponse{Message: fmt.Sprint(he.Message), Code: statusCode(he.Code)}
	}

	return http.StatusInternalServerError, models.ErrorResponse{
		Message: "internal server error",
		Code:    service.CodeInternal,
	}
}

// statusCode turns 400 into BAD_REQUEST.
func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
