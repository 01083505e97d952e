package engine

import (
	"errors"
	"fmt"
)

// Ошибки построения pipeline.
var (
	// ErrEmptySteps — pipeline не содержит шагов.
	ErrEmptySteps = errors.New("pipeline has no steps")

	// ErrEmptyStepID — шаг не имеет ID.
	ErrEmptyStepID = errors.New("step has empty ID")

	// ErrDuplicateStepID — несколько шагов с одинаковым ID.
	ErrDuplicateStepID = errors.New("duplicate step ID")

	// ErrNilStep — в списке шагов оказался nil.
	ErrNilStep = errors.New("nil step")
)

// Ошибки выполнения pipeline.
var (
	// ErrContractViolation — вход или выход шага не соответствует контракту.
	ErrContractViolation = errors.New("step contract violation")

	// ErrOutputExists — результат шага уже записан в контекст.
	ErrOutputExists = errors.New("step output already recorded")

	// ErrStepNotFound — в контексте нет результата шага с таким ID.
	ErrStepNotFound = errors.New("step output not found")

	// ErrPipelineCancelled — context отменён между шагами.
	ErrPipelineCancelled = errors.New("pipeline cancelled")

	// ErrTransformPanic — паника в трансформации Map.
	ErrTransformPanic = errors.New("transform panicked")
)

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")

	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = errors.New("template parse failed")
)

// ValidationError — нарушение контракта шага.
//
// errors.Is(err, ErrContractViolation) истинно для любой ValidationError,
// а Unwrap отдаёт исходную ошибку валидатора.
type ValidationError struct {
	StepID  string // ID шага, где произошла ошибка
	Field   string // "input" или "output"
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.StepID != "" {
		return "step " + e.StepID + ": invalid " + e.Field + ": " + e.Message
	}
	return "invalid " + e.Field + ": " + e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is сопоставляет ValidationError с ErrContractViolation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrContractViolation
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(stepID, field, message string, err error) *ValidationError {
	return &ValidationError{
		StepID:  stepID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// StepError — ошибка операции шага, остановившая pipeline.
type StepError struct {
	StepID string
	Err    error
}

// Error реализует интерфейс error.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.StepID, e.Err)
}

// Unwrap возвращает ошибку операции.
func (e *StepError) Unwrap() error {
	return e.Err
}
