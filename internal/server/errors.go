package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	auditdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/audit/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/authorization"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/billing"
	clientdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/client/domain"
	lineitemdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/lineitem/domain"
	sddomain "github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/domain"
	timeentrydomain "github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/domain"
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
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
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

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidRole):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, clientdomain.ErrDuplicateSlug):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
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
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case errors.Is(err, billing.ErrInvalidDiscount),
		errors.Is(err, billing.ErrNonPositiveDiscount),
		errors.Is(err, billing.ErrDiscountTooLarge):
		return true
	case errors.Is(err, sddomain.ErrInvalidStatus),
		errors.Is(err, sddomain.ErrInvalidPeriod),
		errors.Is(err, sddomain.ErrEmptyTopicName),
		errors.Is(err, sddomain.ErrInvalidPricing),
		errors.Is(err, sddomain.ErrInvalidRetainer),
		errors.Is(err, sddomain.ErrDocumentFinalized),
		errors.Is(err, sddomain.ErrCannotDeleteFinalized),
		errors.Is(err, sddomain.ErrReorderConflict):
		return true
	case errors.Is(err, lineitemdomain.ErrEmptyDescription),
		errors.Is(err, lineitemdomain.ErrInvalidHours),
		errors.Is(err, lineitemdomain.ErrInvalidAmount),
		errors.Is(err, lineitemdomain.ErrInvalidWaiveMode),
		errors.Is(err, lineitemdomain.ErrTimeEntryMismatch),
		errors.Is(err, lineitemdomain.ErrReorderConflict):
		return true
	case errors.Is(err, timeentrydomain.ErrInvalidHours),
		errors.Is(err, timeentrydomain.ErrEmptyDescription):
		return true
	case errors.Is(err, clientdomain.ErrEmptyName),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, sddomain.ErrNotFound),
		errors.Is(err, sddomain.ErrTopicNotFound),
		errors.Is(err, sddomain.ErrClientNotFound),
		errors.Is(err, lineitemdomain.ErrItemNotFound),
		errors.Is(err, timeentrydomain.ErrNotFound),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog feeds the request logger a coarse bucket without
// rendering the response twice.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "internal", payload.Type
	case status >= 400:
		return "client", payload.Type
	default:
		return "", ""
	}
}
