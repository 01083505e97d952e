package planner

import (
	"context"

	"github.com/shaiso/Preflight/internal/domain"
)

// Generator превращает ссылку на review request в тест-план.
type Generator interface {
	Generate(ctx context.Context, ref domain.ReviewRequest) (domain.TestPlan, error)
}

// GeneratorFunc — адаптер функции к Generator.
type GeneratorFunc func(ctx context.Context, ref domain.ReviewRequest) (domain.TestPlan, error)

// Generate вызывает f.
func (f GeneratorFunc) Generate(ctx context.Context, ref domain.ReviewRequest) (domain.TestPlan, error) {
	return f(ctx, ref)
}

// Static возвращает Generator, который всегда отдаёт один и тот же план.
func Static(plan domain.TestPlan) Generator {
	return GeneratorFunc(func(context.Context, domain.ReviewRequest) (domain.TestPlan, error) {
		return plan, nil
	})
}
