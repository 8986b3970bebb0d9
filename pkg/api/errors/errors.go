package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jordanlanch/rivalscope/pkg/logger"
	"github.com/jordanlanch/rivalscope/pkg/models"
)

const genericValidationMessage = "Invalid request data. Please check your input and try again."

// NewValidator returns a validator that reports fields by their JSON names
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidationError returns 400 with one readable message per failed field,
// e.g. "title is required; aspectsToAnalyze must contain at least 1 item".
// Errors that are not validation failures get a generic message.
func ValidationError(c echo.Context, err error) error {
	logger.Get().Info("validation error",
		zap.String("path", c.Request().URL.Path),
		zap.Error(err))

	message := genericValidationMessage
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, describe(fe))
		}
		message = strings.Join(parts, "; ")
	}

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: message,
	})
}

// BadRequestError returns 400 for a malformed body
func BadRequestError(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request body",
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context, err error) error {
	logger.Get().Error("internal error",
		zap.String("path", c.Request().URL.Path),
		zap.Error(err))

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred. Please try again later.",
	})
}

// UnauthorizedError returns a generic unauthorized error
func UnauthorizedError(c echo.Context, reason string) error {
	logger.Get().Debug("unauthorized",
		zap.String("path", c.Request().URL.Path),
		zap.String("reason", reason))

	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: "You are not authorized to access this resource.",
	})
}

// InvalidCredentialsError returns 401 for a failed login
func InvalidCredentialsError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "invalid_credentials",
		Message: "Invalid username or password",
	})
}

// ForbiddenError returns a generic forbidden error
func ForbiddenError(c echo.Context, reason string) error {
	logger.Get().Debug("forbidden",
		zap.String("path", c.Request().URL.Path),
		zap.String("reason", reason))

	return c.JSON(http.StatusForbidden, models.ErrorResponse{
		Error:   "forbidden",
		Message: "You do not have permission to access this resource.",
	})
}

// QuotaExceededError returns 403 when the tier's monthly researches are used up
func QuotaExceededError(c echo.Context, tier models.SubscriptionTier) error {
	return c.JSON(http.StatusForbidden, models.ErrorResponse{
		Error:   "quota_exceeded",
		Message: fmt.Sprintf("The monthly research limit of the %s plan has been reached. Upgrade to continue.", tier),
	})
}

// NotFoundError returns a generic not found error
func NotFoundError(c echo.Context, resource string) error {
	message := "The requested resource was not found."
	if resource != "" {
		message = fmt.Sprintf("%s not found", resource)
	}
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: message,
	})
}

// ConflictError returns a generic conflict error
func ConflictError(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, models.ErrorResponse{
		Error:   "conflict",
		Message: message, // safe to expose, e.g. "User already exists"
	})
}

// ServiceUnavailableError returns 503 for a feature that is not configured
func ServiceUnavailableError(c echo.Context, message string) error {
	return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
		Error:   "service_unavailable",
		Message: message,
	})
}

func describe(fe validator.FieldError) string {
	field := fieldPath(fe)
	plural := func(n, unit string) string {
		if n == "1" {
			return n + " " + unit
		}
		return n + " " + unit + "s"
	}
	isList := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array || fe.Kind() == reflect.Map

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if isList {
			return fmt.Sprintf("%s must contain at least %s", field, plural(fe.Param(), "item"))
		}
		return fmt.Sprintf("%s must be at least %s long", field, plural(fe.Param(), "character"))
	case "max":
		if isList {
			return fmt.Sprintf("%s must contain at most %s", field, plural(fe.Param(), "item"))
		}
		return fmt.Sprintf("%s must be at most %s long", field, plural(fe.Param(), "character"))
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// fieldPath drops the root struct name from the namespace, so nested
// fields read like "content.conclusions.findings"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
