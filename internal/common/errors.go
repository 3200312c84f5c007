package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
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

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
)

// Input failures. These abort an extraction before any phase starts.
var (
	ErrCorruptDocument   = errors.New("document is corrupt or not a pdf")
	ErrEncryptedDocument = errors.New("document is encrypted")
	ErrDocumentLoad      = errors.New("document could not be loaded")
)

// Error codes carried by AppError.
const (
	CodeConfig         = "CONFIG_ERROR"
	CodeInputCorrupt   = "INPUT_CORRUPT"
	CodeInputEncrypted = "INPUT_ENCRYPTED"
	CodeInputLoad      = "INPUT_LOAD"
	CodeOCRUnavailable = "OCR_UNAVAILABLE"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// InputError classifies a document failure under one of the input sentinels,
// keeping the underlying error reachable through errors.Is/As.
func InputError(sentinel error, path string, cause error) *AppError {
	code := CodeInputLoad
	switch sentinel {
	case ErrCorruptDocument:
		code = CodeInputCorrupt
	case ErrEncryptedDocument:
		code = CodeInputEncrypted
	}
	if cause == nil {
		return NewAppError(code, path, sentinel)
	}
	return NewAppError(code, path, fmt.Errorf("%w: %w", sentinel, cause))
}

// IsInputError reports whether err is one of the fatal input failures.
func IsInputError(err error) bool {
	return errors.Is(err, ErrCorruptDocument) ||
		errors.Is(err, ErrEncryptedDocument) ||
		errors.Is(err, ErrDocumentLoad)
}

// CodeOf returns the AppError code found in err's chain, or "".
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func AlreadyExistsError(message string) error {
	return status.Error(codes.AlreadyExists, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}
