package engine

import (
	"fmt"
	"reflect"
	"sync"
)

// Context — контекст выполнения pipeline (PipelineContext).
//
// Содержит неизменяемый initiation payload и результаты выполненных шагов
// по их ID. Контекст только дополняется: записанный результат шага больше
// не меняется и не перезаписывается.
type Context struct {
	mu      sync.RWMutex
	payload any
	outputs map[string]any
	order   []string
}

// NewContext создаёт контекст с initiation payload.
func NewContext(payload any) *Context {
	return &Context{
		payload: payload,
		outputs: make(map[string]any),
	}
}

// Payload возвращает initiation payload.
func (c *Context) Payload() any {
	return c.payload
}

// Output возвращает результат шага по ID.
func (c *Context) Output(stepID string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.outputs[stepID]
	return v, ok
}

// StepIDs возвращает ID шагов в порядке записи результатов.
func (c *Context) StepIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	return ids
}

// Len возвращает количество записанных результатов.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// record записывает результат шага.
func (c *Context) record(stepID string, output any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.outputs[stepID]; exists {
		return fmt.Errorf("%w: %s", ErrOutputExists, stepID)
	}
	c.outputs[stepID] = output
	c.order = append(c.order, stepID)
	return nil
}

// Lookup возвращает результат шага, приведённый к типу T.
func Lookup[T any](c *Context, stepID string) (T, error) {
	var zero T
	v, ok := c.Output(stepID)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: output of %s is %T, not %s",
			ErrContractViolation, stepID, v, reflect.TypeFor[T]())
	}
	return typed, nil
}

// PayloadAs возвращает initiation payload, приведённый к типу T.
func PayloadAs[T any](c *Context) (T, error) {
	typed, ok := c.payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: payload is %T, not %s",
			ErrContractViolation, c.payload, reflect.TypeFor[T]())
	}
	return typed, nil
}
