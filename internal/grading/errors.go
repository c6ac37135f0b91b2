package grading

import (
	"errors"
	"fmt"
)

var (
	// ErrValidationFailed indicates invalid input detected before any stage ran.
	ErrValidationFailed = errors.New("validation failed")
	// ErrExtractionFailed indicates structure, key or answer extraction failed.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrGradingFailed indicates the grader could not score the answers.
	ErrGradingFailed = errors.New("grading failed")
)

// Stage names a pipeline stage.
type Stage string

const (
	StageStructure Stage = "structure"
	StageKey       Stage = "key"
	StageAnswers   Stage = "answers"
	StageGrade     Stage = "grade"
)

// Kind returns the error class a failure of this stage belongs to.
func (s Stage) Kind() error {
	if s == StageGrade {
		return ErrGradingFailed
	}
	return ErrExtractionFailed
}

// StageError reports which stage of the pipeline failed.
type StageError struct {
	Stage Stage
	Err   error
}

// NewStageError wraps err as a failure of stage.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s stage: %s", e.Stage, e.Stage.Kind())
	}
	return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Stage.Kind(), e.Err)
}

// Unwrap exposes both the error class and the underlying cause.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Stage.Kind()}
	}
	return []error{e.Stage.Kind(), e.Err}
}

// Validationf builds an ErrValidationFailed with a message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}
