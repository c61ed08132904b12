package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown normaliser or backend type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrForbidden indicates the acting user does not own the document.
	ErrForbidden = errors.New("forbidden")

	// Pipeline Errors.

	// ErrEmbeddingUnavailable indicates the embedding service failed or is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the answer service failed or is not configured.
	ErrLLMUnavailable = errors.New("answer service unavailable")

	// ErrDimensionMismatch indicates vectors of different lengths were compared.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrStorage indicates the chunk or document store failed.
	ErrStorage = errors.New("storage failure")

	// ErrProcessingFailed is reported to users when an ingestion aborts.
	// Stored chunks are left as they were before the attempt.
	ErrProcessingFailed = errors.New("processing failed, previous state unchanged")

	// ErrAnswerUnavailable is reported to users when a question cannot be answered.
	ErrAnswerUnavailable = errors.New("answer unavailable")
)

// InvalidInputError reports empty or malformed text, questions or identifiers.
// It is never retried.
type InvalidInputError struct {
	Field  string
	Reason string
}

// NewInvalidInput returns an InvalidInputError for field.
func NewInvalidInput(field, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: reason}
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Unwrap exposes ErrInvalidInput to errors.Is.
func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// EmbeddingServiceError reports an upstream embedding failure or timeout.
// Status is the HTTP status code when one was received, zero otherwise.
type EmbeddingServiceError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *EmbeddingServiceError) Error() string {
	return serviceErrorString("embedding", e.Provider, e.Status, e.Message, e.Err)
}

// Unwrap exposes ErrEmbeddingUnavailable and the underlying cause.
func (e *EmbeddingServiceError) Unwrap() []error {
	return unwrapPair(ErrEmbeddingUnavailable, e.Err)
}

// AnswerServiceError reports an upstream answer-generation failure or timeout.
type AnswerServiceError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *AnswerServiceError) Error() string {
	return serviceErrorString("answer", e.Provider, e.Status, e.Message, e.Err)
}

// Unwrap exposes ErrLLMUnavailable and the underlying cause.
func (e *AnswerServiceError) Unwrap() []error {
	return unwrapPair(ErrLLMUnavailable, e.Err)
}

// DimensionMismatchError reports a vector whose length differs from the
// vectors already stored. It is a configuration error and is fatal.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Unwrap exposes ErrDimensionMismatch to errors.Is.
func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}

// StorageError reports a persistence failure during Op.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a StorageError unless it already is one.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage: %s failed", e.Op)
	}
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

// Unwrap exposes ErrStorage and the underlying cause.
func (e *StorageError) Unwrap() []error {
	return unwrapPair(ErrStorage, e.Err)
}

// StageError records the retrieval state a request failed in.
type StageError struct {
	State RetrievalState
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func serviceErrorString(kind, provider string, status int, msg string, cause error) string {
	s := kind + " service"
	if provider != "" {
		s = provider + " " + s
	}
	if status != 0 {
		s = fmt.Sprintf("%s (status %d)", s, status)
	}
	switch {
	case msg != "":
		s += ": " + msg
	case cause != nil:
		s += ": " + cause.Error()
	default:
		s += ": failed"
	}
	return s
}

func unwrapPair(sentinel, cause error) []error {
	if cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, cause}
}
