// Package engine содержит движок выполнения pipeline.
//
// Включает:
//   - pipeline.go — Pipeline: последовательное выполнение шагов, bail, прерывание по ошибке
//   - step.go     — Stage, Step[In, Out], Map, Outcome (Continue | Terminate)
//   - context.go  — Context: initiation payload + результаты шагов (только дополняется)
//   - template.go — рендеринг Go templates с функциями sprig
//
// Пример:
//
//	plan := engine.NewStep("generate-plan",
//	    func(ctx context.Context, ref domain.ReviewRequest, pc *engine.Context) (engine.StepResult[domain.TestPlan], error) {
//	        p, err := gen.Generate(ctx, ref)
//	        if err != nil {
//	            return engine.StepResult[domain.TestPlan]{}, err
//	        }
//	        return engine.Next(p), nil
//	    })
//
//	p, err := engine.New(engine.Config{Name: "validation", Stages: []engine.Stage{plan, ...}})
//	res, err := p.Run(ctx, ref)
//
// Шаг может вместо результата вернуть engine.Bail(final): pipeline
// останавливается и возвращает final как итог (Result.Terminated == true).
package engine
