package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/cielo/internal/auth/domain"
	"github.com/smallbiznis/cielo/internal/authorization"
	catalogdomain "github.com/smallbiznis/cielo/internal/catalog/domain"
	identitydomain "github.com/smallbiznis/cielo/internal/identity/domain"
	invoicedomain "github.com/smallbiznis/cielo/internal/invoice/domain"
	pointsdomain "github.com/smallbiznis/cielo/internal/points/domain"
	rewarddomain "github.com/smallbiznis/cielo/internal/reward/domain"
	storedomain "github.com/smallbiznis/cielo/internal/store/domain"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// mapError turns domain errors into the wire taxonomy: unauthenticated,
// permission_denied, invalid_argument, not_found, already_exists and
// failed_precondition.
func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_argument",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, identitydomain.ErrInvalidCredentials),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthenticated",
			Message: "authentication required",
		}

	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, userdomain.ErrPermissionDenied),
		errors.Is(err, storedomain.ErrPermissionDenied),
		errors.Is(err, invoicedomain.ErrPermissionDenied):
		return http.StatusForbidden, errorPayload{
			Type:    "permission_denied",
			Message: "permission denied",
		}

	case errors.Is(err, identitydomain.ErrEmailExists),
		errors.Is(err, userdomain.ErrAdminExists),
		errors.Is(err, invoicedomain.ErrDuplicate),
		errors.Is(err, storedomain.ErrCodeExists),
		errors.Is(err, storedomain.ErrCodeUsed):
		return http.StatusConflict, errorPayload{
			Type:    "already_exists",
			Message: err.Error(),
		}

	case errors.Is(err, invoicedomain.ErrNotPending),
		errors.Is(err, rewarddomain.ErrInvalidTransition),
		errors.Is(err, rewarddomain.ErrNotDelivered),
		errors.Is(err, rewarddomain.ErrInsufficientPoints),
		errors.Is(err, storedomain.ErrCodeInactive),
		errors.Is(err, storedomain.ErrCodeCountry):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "failed_precondition",
			Message: err.Error(),
		}

	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, identitydomain.ErrNotFound),
		errors.Is(err, storedomain.ErrNotFound),
		errors.Is(err, storedomain.ErrCodeNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, rewarddomain.ErrClaimNotFound),
		errors.Is(err, catalogdomain.ErrRewardNotFound),
		errors.Is(err, pointsdomain.ErrNotFound),
		errors.Is(err, pointsdomain.ErrStoreNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}

	case isInvalidArgument(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_argument",
			Message: err.Error(),
		}

	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isInvalidArgument(err error) bool {
	for _, candidate := range []error{
		ErrInvalidRequest,
		identitydomain.ErrInvalidEmail,
		identitydomain.ErrInvalidPassword,
		userdomain.ErrInvalidEmail,
		userdomain.ErrInvalidName,
		userdomain.ErrInvalidCountry,
		userdomain.ErrInvalidRole,
		userdomain.ErrNotCountryAdmin,
		catalogdomain.ErrInvalidSKU,
		catalogdomain.ErrInvalidName,
		catalogdomain.ErrInvalidCountry,
		catalogdomain.ErrInvalidPoints,
		pointsdomain.ErrInvalidArgument,
		invoicedomain.ErrInvalidArgument,
		invoicedomain.ErrReasonRequired,
		rewarddomain.ErrInvalidArgument,
		rewarddomain.ErrInvalidRating,
		rewarddomain.ErrInvalidQuantity,
		storedomain.ErrInvalidArgument,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}
