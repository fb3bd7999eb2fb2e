package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	errMissingToken  = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidToken  = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errRefreshExpire = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, res := errorResponse(err, translator)

		if code == http.StatusInternalServerError {
			args := []interface{}{errors.Wrap(err, res.Message)}
			if usr, ok := contextUser(ctx); ok {
				args = append(args, usr)
			}
			logger.Error(res.Message, args...)

			// shutting down...
			if core.IsShutdown(err) && signalShutdown != nil {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				res.Message = err.Error()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func errorResponse(err error, translator ut.Translator) (int, ErrorResponse) {
	res := ErrorResponse{Success: false}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		err = core.TranslateValidationErrors(vErrs, translator)
	}

	var (
		vErr *core.ValidationError
		cErr *core.ConstraintError
	)
	switch cause := errors.Cause(err); {
	case cause == core.ErrUnauthenticated:
		res.Message = "authentication required"
		return http.StatusUnauthorized, res
	case cause == core.ErrForbidden:
		res.Message = "permission denied"
		return http.StatusForbidden, res
	case cause == user.ErrAccountDeactivated:
		res.Message = cause.Error()
		return http.StatusForbidden, res
	case cause == core.ErrNotFound:
		res.Message = "not found"
		return http.StatusNotFound, res
	case cause == user.ErrInvalidCredentials:
		res.Message = cause.Error()
		return http.StatusBadRequest, res
	case errors.As(err, &vErr):
		res.Message = "invalid input"
		if vErr.Err != nil {
			res.Message = vErr.Err.Error()
		}
		if len(vErr.Fields) > 0 {
			res.Fields = make(map[string]string, len(vErr.Fields))
			for _, fErr := range vErr.Fields {
				res.Fields[fErr.Field] = fErr.Error
			}
		}
		return http.StatusBadRequest, res
	case errors.As(err, &cErr):
		res.Message = cErr.Error()
		if len(cErr.Fields) > 0 {
			res.Fields = make(map[string]string, len(cErr.Fields))
			for _, f := range cErr.Fields {
				res.Fields[f] = "already exists"
			}
		}
		return http.StatusConflict, res
	}

	var hErr *echo.HTTPError
	if errors.As(err, &hErr) {
		if hErr.Internal != nil {
			if herr, ok := hErr.Internal.(*echo.HTTPError); ok {
				hErr = herr
			}
		}
		if msg, ok := hErr.Message.(string); ok {
			res.Message = msg
		} else {
			res.Message = http.StatusText(hErr.Code)
		}
		return hErr.Code, res
	}

	// any other error is a server error
	res.Message = http.StatusText(http.StatusInternalServerError)
	return http.StatusInternalServerError, res
}
