package response

import (
	"errors"
	"net/http"

	"github.com/bilawal506/online-mart/pkg/errs"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

type ErrorResponse struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func WriteSuccessResponse(c echo.Context, message string, data interface{}) error {
	resp := SuccessResponse{}
	resp.Status = "success"
	resp.Message = message
	resp.Data = data

	return c.JSON(http.StatusOK, resp)
}

func WriteErrorResponse(c echo.Context, err error) error {
	statusCode := errs.GetErrorStatusCode(err)
	if statusCode == errs.ErrStatusInternalServer {
		log.Ctx(c.Request().Context()).Error().Err(err).Str("component", "WriteErrorResponse").Msg("")
	}

	if statusCode == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}

	return c.JSON(statusCode, ErrorResponse{
		Status: statusCode,
		Detail: errs.PublicMessage(err),
	})
}

// HTTPErrorHandler renders errors raised by echo itself (unknown routes,
// method mismatch, oversized bodies) with the same body shape as handler errors.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		detail := http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			detail = msg
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(he.Code)
		} else {
			err = c.JSON(he.Code, ErrorResponse{Status: he.Code, Detail: detail})
		}
	} else {
		err = WriteErrorResponse(c, err)
	}

	if err != nil {
		log.Error().Err(err).Str("component", "HTTPErrorHandler").Msg("")
	}
}
