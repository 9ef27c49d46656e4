package domain

import (
	"errors"
	"strings"
)

var (
	ErrEmployeeNotFound = errors.New("employee: not found")
	ErrDuplicateEmail   = errors.New("employee: email already exists")
)

// ValidationError lists every rule an input violated.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// StorageError is an unexpected failure of the durable medium.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err unless it is nil or already part of the taxonomy.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var se *StorageError
	if errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrDuplicateEmail) ||
		errors.As(err, &ve) || errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
