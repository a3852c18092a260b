package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors.
// Kind is one of the sentinel errors below; Cause is the underlying failure.
type AppError struct {
	Code    string
	Message string
	Kind    error
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 3)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
		if errors.Is(e.Cause, context.DeadlineExceeded) {
			errs = append(errs, ErrTimeout)
		}
	}
	return errs
}

// Pipeline error kinds
var (
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrExtraction           = errors.New("text extraction failed")
	ErrClassification       = errors.New("classification failed")
	ErrMalformedExtraction  = errors.New("malformed extraction")
	ErrSummary              = errors.New("summary failed")
	ErrCompletion           = errors.New("language model call failed")
	ErrEmbedding            = errors.New("embedding failed")
	ErrProcessorUnavailable = errors.New("processor unavailable")
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTimeout      = errors.New("operation timed out")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
)

const (
	CodeUnsupportedFormat    = "UNSUPPORTED_FORMAT"
	CodeExtraction           = "EXTRACTION_ERROR"
	CodeClassification       = "CLASSIFICATION_ERROR"
	CodeMalformedExtraction  = "MALFORMED_EXTRACTION"
	CodeSummary              = "SUMMARY_ERROR"
	CodeCompletion           = "COMPLETION_ERROR"
	CodeEmbedding            = "EMBEDDING_ERROR"
	CodeProcessorUnavailable = "PROCESSOR_UNAVAILABLE"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeConfig               = "CONFIG_ERROR"
	CodeDatabase             = "DATABASE_ERROR"
)

// NewAppError builds an AppError whose kind is the given sentinel.
func NewAppError(code, message string, kind error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

// WithCause attaches the underlying failure.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func UnsupportedFormatError(mimeType string) error {
	return NewAppError(CodeUnsupportedFormat, fmt.Sprintf("unsupported mime type %q", mimeType), ErrUnsupportedFormat)
}

func ExtractionError(message string, cause error) error {
	return NewAppError(CodeExtraction, message, ErrExtraction).WithCause(cause)
}

func ClassificationError(message string, cause error) error {
	return NewAppError(CodeClassification, message, ErrClassification).WithCause(cause)
}

func MalformedExtractionError(message string, cause error) error {
	return NewAppError(CodeMalformedExtraction, message, ErrMalformedExtraction).WithCause(cause)
}

func SummaryError(message string, cause error) error {
	return NewAppError(CodeSummary, message, ErrSummary).WithCause(cause)
}

func CompletionError(message string, cause error) error {
	return NewAppError(CodeCompletion, message, ErrCompletion).WithCause(cause)
}

func EmbeddingError(message string, cause error) error {
	return NewAppError(CodeEmbedding, message, ErrEmbedding).WithCause(cause)
}

func ProcessorUnavailableError(cause error) error {
	return NewAppError(CodeProcessorUnavailable, "document processor is not available", ErrProcessorUnavailable).WithCause(cause)
}

func InvalidInputError(message string) error {
	return NewAppError(CodeInvalidInput, message, ErrInvalidInput)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ToGRPCStatus maps pipeline errors onto gRPC status codes.
func ToGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrInvalidInput):
		code = codes.InvalidArgument
	case errors.Is(err, ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, ErrProcessorUnavailable), errors.Is(err, ErrCompletion):
		code = codes.Unavailable
	case errors.Is(err, ErrMalformedExtraction):
		code = codes.FailedPrecondition
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InvalidArgumentErrorf(format string, args ...any) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}
