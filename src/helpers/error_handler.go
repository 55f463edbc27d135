package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"startpage-sync/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type SyncError struct {
	Message string
	Cause   error
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// NetworkError is a transport failure or timeout.
type NetworkError struct{ SyncError }

// UpstreamError is a response with a non-2xx status.
type UpstreamError struct {
	SyncError
	StatusCode int
}

// ValidationError is a malformed URL or a missing required field.
type ValidationError struct{ SyncError }

// NotFoundError is a referenced site or entity that does not exist.
type NotFoundError struct{ SyncError }

// ProviderDataError is an upstream payload with an unexpected or invalid shape.
type ProviderDataError struct{ SyncError }

// DatabaseError wraps store failures.
type DatabaseError struct{ SyncError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewNetworkError(msg string, cause error) error {
	return &NetworkError{SyncError{Message: msg, Cause: cause}}
}

func NewUpstreamError(statusCode int, url string) error {
	return &UpstreamError{
		SyncError:  SyncError{Message: fmt.Sprintf("upstream %s returned status %d", url, statusCode)},
		StatusCode: statusCode,
	}
}

func NewValidationError(format string, args ...any) error {
	return &ValidationError{SyncError{Message: fmt.Sprintf(format, args...)}}
}

func NewNotFoundError(format string, args ...any) error {
	return &NotFoundError{SyncError{Message: fmt.Sprintf(format, args...)}}
}

func NewProviderDataError(format string, args ...any) error {
	return &ProviderDataError{SyncError{Message: fmt.Sprintf(format, args...)}}
}

func NewDatabaseError(msg string, cause error) error {
	return &DatabaseError{SyncError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNetwork(err error) bool {
	var n *NetworkError
	var u *UpstreamError
	return errors.As(err, &n) || errors.As(err, &u)
}

// -----------------------------------------------------------------------------

// HTTPStatus maps an error to the status a single-item endpoint reports.
// The outermost classified error decides, so a component can rewrap a
// provider's failure without leaking the provider's status. Upstream
// failures keep the upstream status; anything unclassified is 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch e := outermost(err).(type) {
	case *ValidationError:
		return http.StatusBadRequest
	case *NotFoundError:
		return http.StatusNotFound
	case *UpstreamError:
		if e.StatusCode >= 400 {
			return e.StatusCode
		}
		return http.StatusBadGateway
	case *NetworkError, *ProviderDataError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// -----------------------------------------------------------------------------

// outermost walks the wrap chain depth first and returns the first error of
// the sync family, or nil.
func outermost(err error) error {
	for err != nil {
		switch err.(type) {
		case *NetworkError, *UpstreamError, *ValidationError,
			*NotFoundError, *ProviderDataError, *DatabaseError:
			return err
		}

		switch u := err.(type) {
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				if found := outermost(inner); found != nil {
					return found
				}
			}
			return nil
		default:
			return nil
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// PublicMessage is the error text safe to hand to a client. Unclassified
// errors are reported generically.
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler logs job-level failures and keeps a running count for health
// reporting. It never retries.
type ErrorHandler struct {
	Logger     *logger.Logger
	errorCount int
	mu         sync.Mutex
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}
	e.mu.Lock()
	e.errorCount++
	e.mu.Unlock()
	e.Logger.Error("Error in %s: %v", context, err)
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ErrorCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errorCount
}
