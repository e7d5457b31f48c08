package contracts

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when no data exists for an instrument.
// 오케스트레이터는 이를 해당 단계 제외 사유로 처리 (치명적 에러 아님)
var ErrNotFound = errors.New("not found")

// ValidationError is a schema violation in an input record (결측/형식 오류)
type ValidationError struct {
	Symbol  string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation: %s: %s: %s", e.Symbol, e.Field, e.Message)
}

// DataInsufficientError means the record is valid but too short (신규 상장 등)
type DataInsufficientError struct {
	Symbol    string
	What      string
	Required  int
	Available int
}

func (e *DataInsufficientError) Error() string {
	return fmt.Sprintf("data insufficient: %s: %s needs %d, have %d", e.Symbol, e.What, e.Required, e.Available)
}

// ConfigurationError aborts a run before any instrument is processed
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Message)
}

// EvaluationError attaches instrument and stage context to an unexpected failure
type EvaluationError struct {
	Symbol string
	Stage  Stage
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage.ShortName(), e.Symbol, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// IsDataInsufficient reports whether err carries a DataInsufficientError
func IsDataInsufficient(err error) bool {
	var target *DataInsufficientError
	return errors.As(err, &target)
}

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConfiguration reports whether err carries a ConfigurationError
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
