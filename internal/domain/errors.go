package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError - ошибки, которые сопоставляются с HTTP-статусом
type HTTPError interface {
	error
	StatusCode() int
}

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrExternalService = errors.New("external service error")
)

type (
	// NotFoundError - идентификатор отсутствует в ожидаемой коллекции
	NotFoundError struct {
		Message string
	}

	// ValidationError - некорректный ввод, отклоняется до любых изменений
	ValidationError struct {
		Message string
	}

	// ConflictError - операция нарушила бы инвариант хранилища
	ConflictError struct {
		Message string
	}

	// ExternalServiceError - сбой внешнего сервиса публикации
	ExternalServiceError struct {
		Service string
		Err     error
	}
)

func (e *NotFoundError) Error() string   { return e.Message }
func (e *ValidationError) Error() string { return e.Message }
func (e *ConflictError) Error() string   { return e.Message }

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *NotFoundError) StatusCode() int        { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int      { return http.StatusBadRequest }
func (e *ConflictError) StatusCode() int        { return http.StatusConflict }
func (e *ExternalServiceError) StatusCode() int { return http.StatusBadGateway }

func (e *NotFoundError) Is(target error) bool        { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool      { return target == ErrValidation }
func (e *ConflictError) Is(target error) bool        { return target == ErrConflict }
func (e *ExternalServiceError) Is(target error) bool { return target == ErrExternalService }

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func NewNotFound(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

func NewValidation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func NewConflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
