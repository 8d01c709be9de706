package service

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidInput wraps validation failures of caller supplied data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyCompleted is returned when completing a task that is already done.
	ErrAlreadyCompleted = errors.New("task already completed")
)
