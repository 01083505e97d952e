package engine

import (
	"context"
	"fmt"
	"reflect"
)

// Stage — элемент pipeline: шаг или трансформация.
//
// Run получает результат предыдущего элемента (для первого — initiation payload)
// и контекст pipeline.
type Stage interface {
	// ID возвращает идентификатор, уникальный в пределах pipeline.
	ID() string

	// Run выполняет элемент и возвращает Continue или Terminate.
	Run(ctx context.Context, input any, pc *Context) (Outcome, error)
}

// Outcome — результат элемента pipeline: Continue(output) | Terminate(final).
type Outcome struct {
	value    any
	terminal bool
}

// Continue передаёт output следующему шагу.
func Continue(output any) Outcome {
	return Outcome{value: output}
}

// Terminate останавливает pipeline и делает final его итоговым результатом.
// Это не ошибка: final не проверяется на совместимость с последующими шагами.
func Terminate(final any) Outcome {
	return Outcome{value: final, terminal: true}
}

// Terminal возвращает true для Terminate.
func (o Outcome) Terminal() bool {
	return o.terminal
}

// Value возвращает output (Continue) или final (Terminate).
func (o Outcome) Value() any {
	return o.value
}

// Validator — контракт формы данных. Выход шага, реализующий Validator,
// проверяется автоматически.
type Validator interface {
	Validate() error
}

// StepResult — типизированный результат шага.
// Создаётся через Next или Bail.
type StepResult[Out any] struct {
	output Out
	final  any
	bail   bool
}

// Next возвращает обычный результат шага.
func Next[Out any](output Out) StepResult[Out] {
	return StepResult[Out]{output: output}
}

// Bail завершает pipeline с итоговым результатом final.
// Побочные эффекты шага к этому моменту уже должны быть выполнены.
func Bail[Out any](final any) StepResult[Out] {
	return StepResult[Out]{final: final, bail: true}
}

// StepFunc — асинхронная операция шага.
type StepFunc[In, Out any] func(ctx context.Context, input In, pc *Context) (StepResult[Out], error)

// Step — именованная единица работы с контрактами входа и выхода.
//
// Контракт входа — тип In. Контракт выхода — тип Out плюс Validate(),
// если Out реализует Validator, плюс дополнительные проверки из WithCheck.
type Step[In, Out any] struct {
	id     string
	fn     StepFunc[In, Out]
	checks []func(Out) error
}

// NewStep создаёт шаг.
func NewStep[In, Out any](id string, fn StepFunc[In, Out]) *Step[In, Out] {
	return &Step[In, Out]{id: id, fn: fn}
}

// WithCheck добавляет проверку выхода шага.
func (s *Step[In, Out]) WithCheck(check func(Out) error) *Step[In, Out] {
	s.checks = append(s.checks, check)
	return s
}

// ID возвращает идентификатор шага.
func (s *Step[In, Out]) ID() string {
	return s.id
}

// Run проверяет вход, выполняет операцию и проверяет выход.
func (s *Step[In, Out]) Run(ctx context.Context, input any, pc *Context) (Outcome, error) {
	in, ok := input.(In)
	if !ok {
		return Outcome{}, NewValidationError(s.id, "input",
			fmt.Sprintf("expected %s, got %T", reflect.TypeFor[In](), input), nil)
	}

	res, err := s.fn(ctx, in, pc)
	if err != nil {
		return Outcome{}, err
	}

	if res.bail {
		return Terminate(res.final), nil
	}

	if err := s.validate(res.output); err != nil {
		return Outcome{}, NewValidationError(s.id, "output", err.Error(), err)
	}

	return Continue(res.output), nil
}

// validate применяет контракт выхода.
func (s *Step[In, Out]) validate(out Out) error {
	if v, ok := any(out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	for _, check := range s.checks {
		if err := check(out); err != nil {
			return err
		}
	}
	return nil
}

// mapStage — чистая трансформация без внешних эффектов.
type mapStage[In, Out any] struct {
	id string
	fn func(In, *Context) Out
}

// Map создаёт трансформацию между шагами.
//
// Проверяется только совместимость формы входа; сама функция не должна
// иметь побочных эффектов и не может вернуть ошибку.
func Map[In, Out any](id string, fn func(input In, pc *Context) Out) Stage {
	return &mapStage[In, Out]{id: id, fn: fn}
}

func (m *mapStage[In, Out]) ID() string {
	return m.id
}

// Run применяет трансформацию. Паника функции (ошибка программиста)
// превращается в ErrTransformPanic.
func (m *mapStage[In, Out]) Run(_ context.Context, input any, pc *Context) (outcome Outcome, err error) {
	in, ok := input.(In)
	if !ok {
		return Outcome{}, NewValidationError(m.id, "input",
			fmt.Sprintf("expected %s, got %T", reflect.TypeFor[In](), input), nil)
	}

	defer func() {
		if r := recover(); r != nil {
			outcome, err = Outcome{}, fmt.Errorf("%w: %v", ErrTransformPanic, r)
		}
	}()
	return Continue(m.fn(in, pc)), nil
}
