package errors

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrInternalError      ErrorType = "internal error"
	ErrNotFound           ErrorType = "not found"
	ErrAlreadyExists      ErrorType = "already exists"
	ErrInvalidArgument    ErrorType = "invalid argument"
	ErrFailedPrecondition ErrorType = "failed precondition"
)

// DomainError is the error returned from the domain layers, the errType
// carries the kind of failure, entity names the domain object involved.
type DomainError struct {
	ErrorType  ErrorType
	Entity     string
	Message    string
	WrappedErr error
}

func NewError(errType ErrorType, entity, msg string) *DomainError {
	return &DomainError{
		ErrorType: errType,
		Entity:    entity,
		Message:   msg,
	}
}

func InvalidArgument(entity, msg string) *DomainError {
	return NewError(ErrInvalidArgument, entity, msg)
}

func NotFound(entity, msg string) *DomainError {
	return NewError(ErrNotFound, entity, msg)
}

func AlreadyExists(entity, msg string) *DomainError {
	return NewError(ErrAlreadyExists, entity, msg)
}

func FailedPrecondition(entity, msg string) *DomainError {
	return NewError(ErrFailedPrecondition, entity, msg)
}

func InternalError(entity, msg string, err error) *DomainError {
	return &DomainError{
		ErrorType:  ErrInternalError,
		Entity:     entity,
		Message:    msg,
		WrappedErr: err,
	}
}

func Wrap(entity, msg string, err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return &DomainError{
			ErrorType:  de.ErrorType,
			Entity:     entity,
			Message:    msg,
			WrappedErr: err,
		}
	}
	return InternalError(entity, msg, err)
}

// WrapIfErr is a convenience for deferred wrapping, returns nil when err is nil.
func WrapIfErr(entity, msg string, err error) error {
	if err == nil {
		return nil
	}
	return Wrap(entity, msg, err)
}

func AddErrContext(err error, entity, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(entity, msg, err)
}

func (e *DomainError) Error() string {
	if e.WrappedErr == nil {
		return fmt.Sprintf("%s for entity %s: %s", e.ErrorType, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s for entity %s: %s: %s", e.ErrorType, e.Entity, e.Message, e.WrappedErr.Error())
}

func (e *DomainError) Unwrap() error {
	return e.WrappedErr
}

func (e *DomainError) DebugString() string {
	var wrapped string
	if e.WrappedErr != nil {
		var de *DomainError
		if errors.As(e.WrappedErr, &de) {
			wrapped = de.DebugString()
		} else {
			wrapped = e.WrappedErr.Error()
		}
	}
	return fmt.Sprintf("%s (%s) %s: %s", e.Message, e.ErrorType, e.Entity, wrapped)
}

func IsErrorType(err error, errType ErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.ErrorType == errType
	}
	return false
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func New(msg string) error {
	return errors.New(msg) //nolint: goerr113
}
