package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput rejects a run whose input is missing or blank.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState means a stage ran without the fields it needs.
	ErrInvalidState = errors.New("invalid state")
)

// StageError names the stage that failed a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
