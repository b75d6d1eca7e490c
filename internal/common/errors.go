package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Machine-readable reasons carried by AppError.
const (
	CodeFileNotFound      = "FILE_NOT_FOUND"
	CodeFileUnreadable    = "FILE_UNREADABLE"
	CodeEmptyFile         = "EMPTY_FILE"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeNoItemsFound      = "NO_ITEMS_FOUND"
	CodeNoReadableContent = "NO_READABLE_CONTENT"
	CodeExtractionFailed  = "EXTRACTION_FAILED"
	CodeImportFailed      = "IMPORT_FAILED"
	CodeJobNotFound       = "JOB_NOT_FOUND"
	CodeJobNotPending     = "JOB_NOT_PENDING"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeConfig            = "CONFIG_ERROR"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
	Details map[string]any
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches diagnostic context (counts, file name, text preview).
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("state conflict")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf returns the AppError code in err's chain, or "" when there is none.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsClientError reports failures the caller caused and must not retry unchanged.
func IsClientError(err error) bool {
	switch CodeOf(err) {
	case CodeFileNotFound, CodeEmptyFile, CodeFileTooLarge, CodeUnsupportedFormat,
		CodeNoItemsFound, CodeNoReadableContent, CodeInvalidInput, CodeJobNotPending, CodeJobNotFound:
		return true
	}
	return errors.Is(err, ErrInvalidInput)
}

// GRPCCode maps an error onto a gRPC status code.
func GRPCCode(err error) codes.Code {
	switch CodeOf(err) {
	case CodeFileNotFound, CodeJobNotFound:
		return codes.NotFound
	case CodeEmptyFile, CodeUnsupportedFormat, CodeInvalidInput, CodeNoItemsFound, CodeNoReadableContent:
		return codes.InvalidArgument
	case CodeFileTooLarge:
		return codes.ResourceExhausted
	case CodeJobNotPending:
		return codes.FailedPrecondition
	case CodeExtractionFailed:
		return codes.Unavailable
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return codes.InvalidArgument
	case errors.Is(err, ErrConflict):
		return codes.FailedPrecondition
	}
	return codes.Internal
}

// HTTPStatus maps an error onto an HTTP status code.
func HTTPStatus(err error) int {
	switch GRPCCode(err) {
	case codes.NotFound:
		return http.StatusNotFound
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.ResourceExhausted:
		return http.StatusRequestEntityTooLarge
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.Unavailable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ToStatus converts err into a gRPC status error, keeping the AppError code in the message.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(GRPCCode(err), err.Error())
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}
