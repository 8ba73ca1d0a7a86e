package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/donare/internal/audit/domain"
	categorydomain "github.com/smallbiznis/donare/internal/category/domain"
	donationdomain "github.com/smallbiznis/donare/internal/donation/domain"
	impactdomain "github.com/smallbiznis/donare/internal/impact/domain"
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
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Errors    []ValidationError `json:"errors,omitempty"`
	Current   string            `json:"current_status,omitempty"`
	Requested string            `json:"requested_status,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
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

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
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

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var transitionErr *donationdomain.TransitionError
	if errors.As(err, &transitionErr) {
		return http.StatusConflict, errorPayload{
			Type:      "invalid_transition",
			Message:   "transition not allowed from the current status",
			Current:   string(transitionErr.Current),
			Requested: string(transitionErr.Requested),
		}
	}

	if field, code, ok := validationDetails(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   field,
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "not permitted",
		}
	case errors.Is(err, donationdomain.ErrConflict),
		errors.Is(err, categorydomain.ErrDuplicateName):
		return http.StatusConflict, errorPayload{
			Type:      "conflict",
			Message:   "resource was modified concurrently",
			Retryable: errors.Is(err, donationdomain.ErrConflict),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:      "rate_limited",
			Message:   "too many requests",
			Retryable: true,
		}
	case errors.Is(err, donationdomain.ErrInfrastructure),
		errors.Is(err, impactdomain.ErrSnapshotContended),
		errors.Is(err, impactdomain.ErrUnavailable),
		errors.Is(err, auditdomain.ErrUnavailable),
		errors.Is(err, categorydomain.ErrUnavailable),
		errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:      "infrastructure_error",
			Message:   "temporarily unavailable, retry later",
			Retryable: true,
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return vErr
	}
	return nil
}

// validationDetails resolves the field and code of a domain validation failure.
func validationDetails(err error) (string, string, bool) {
	var donationErr *donationdomain.ValidationError
	if errors.As(err, &donationErr) {
		return donationErr.Field, errorCode(donationErr.Err), true
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "request", "invalid_request", true
	case errors.Is(err, donationdomain.ErrInvalidAction):
		return "action", errorCode(err), true
	case errors.Is(err, categorydomain.ErrInvalidName):
		return "nome", errorCode(err), true
	case errors.Is(err, categorydomain.ErrInvalidColor):
		return "cor", errorCode(err), true
	case errors.Is(err, auditdomain.ErrInvalidOrder):
		return "order", errorCode(err), true
	case errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, donationdomain.ErrInvalidPageToken):
		return "page_token", "invalid_page_token", true
	case errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidTarget):
		return "request", errorCode(err), true
	}
	return "", "", false
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, donationdomain.ErrForbidden),
		errors.Is(err, categorydomain.ErrForbidden),
		errors.Is(err, impactdomain.ErrForbidden):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, donationdomain.ErrNotFound),
		errors.Is(err, categorydomain.ErrNotFound):
		return true
	default:
		return false
	}
}

// errorCode is the sentinel text of the innermost wrapped error.
func errorCode(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return strings.TrimSpace(err.Error())
		}
		err = next
	}
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_id":
		return "invalid id"
	case "invalid_page_token":
		return "invalid page token"
	default:
		return strings.ReplaceAll(code, "_", " ")
	}
}

// classifyErrorForLog returns the response type and code recorded on the request log line.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
