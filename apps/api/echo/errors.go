package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/liveclass"
	"github.com/trezcool/darasa/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errInvalidCredentials = echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	errAccountSuspended   = echo.NewHTTPError(http.StatusForbidden, "account suspended")
	errAccountNotVerified = echo.NewHTTPError(http.StatusForbidden, "email address not verified")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
	errTooManyRequests    = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
)

// domainHTTPErrs maps core sentinel errors to their HTTP equivalents.
// Anything not listed here falls through to the type switch in the handler.
var domainHTTPErrs = map[error]*echo.HTTPError{
	user.ErrNotFound:        echo.NewHTTPError(http.StatusNotFound, user.ErrNotFound.Error()),
	user.ErrUserExists:      echo.NewHTTPError(http.StatusConflict, user.ErrUserExists.Error()),
	user.ErrAlreadyVerified: echo.NewHTTPError(http.StatusBadRequest, user.ErrAlreadyVerified.Error()),

	course.ErrNotFound:   echo.NewHTTPError(http.StatusNotFound, course.ErrNotFound.Error()),
	course.ErrSlugExists: echo.NewHTTPError(http.StatusConflict, course.ErrSlugExists.Error()),

	liveclass.ErrNotFound:           echo.NewHTTPError(http.StatusNotFound, liveclass.ErrNotFound.Error()),
	liveclass.ErrAttendanceNotFound: echo.NewHTTPError(http.StatusNotFound, liveclass.ErrAttendanceNotFound.Error()),
	liveclass.ErrClassPrivate:       echo.NewHTTPError(http.StatusForbidden, liveclass.ErrClassPrivate.Error()),
	liveclass.ErrClassFull:          echo.NewHTTPError(http.StatusConflict, liveclass.ErrClassFull.Error()),
	liveclass.ErrClassCancelled:     echo.NewHTTPError(http.StatusBadRequest, liveclass.ErrClassCancelled.Error()),
	liveclass.ErrClassCompleted:     echo.NewHTTPError(http.StatusBadRequest, liveclass.ErrClassCompleted.Error()),
	liveclass.ErrClassNotStarted:    echo.NewHTTPError(http.StatusBadRequest, liveclass.ErrClassNotStarted.Error()),
	liveclass.ErrClassEnded:         echo.NewHTTPError(http.StatusBadRequest, liveclass.ErrClassEnded.Error()),
	liveclass.ErrAttendanceClosed:   echo.NewHTTPError(http.StatusBadRequest, liveclass.ErrAttendanceClosed.Error()),
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// Every failure body is an {"error": ...} envelope holding either a message or a field->message map.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if herr, ok := domainHTTPErrs[cause]; ok {
			code = herr.Code
			message = herr.Message
		} else {
			switch origErr := cause.(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					code = http.StatusUnauthorized
					message = origErr.Message
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
				}
				code = http.StatusBadRequest
				message = fldErrs
			case *core.ValidationError:
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Username = claims.Username
					usr.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		message = echo.Map{"error": message}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
