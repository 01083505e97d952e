package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки валидации тест-плана.
var (
	// ErrInvalidTestPlan — тест-план нарушает инварианты.
	ErrInvalidTestPlan = errors.New("invalid test plan")
)

// TestCase — один сценарий ручной проверки, который выполняется
// удалённым браузерным агентом против preview-окружения.
type TestCase struct {
	// Title — короткое название сценария. Используется в отчёте.
	Title string `json:"title" jsonschema:"description=Short human readable name of the scenario"`

	// Description — шаги и ожидаемый результат.
	Description string `json:"description" jsonschema:"description=Step by step instructions and the expected outcome"`
}

// TestPlan — результат генерации плана тестирования для review request.
//
// Инвариант: если NeedsTesting == false, TestCases пустой.
// План создаётся один раз шагом generate-plan и дальше только читается.
type TestPlan struct {
	// NeedsTesting — требует ли изменение проверки на preview.
	NeedsTesting bool `json:"needsTesting" jsonschema:"description=False when the change cannot affect runtime behaviour"`

	// TestCases — упорядоченный список сценариев.
	TestCases []TestCase `json:"testCases" jsonschema:"description=Ordered scenarios; must be empty when needsTesting is false"`
}

// NoTestingPlan возвращает план, для которого тестирование не требуется.
func NoTestingPlan() TestPlan {
	return TestPlan{NeedsTesting: false, TestCases: []TestCase{}}
}

// Validate проверяет инварианты плана.
func (p TestPlan) Validate() error {
	if !p.NeedsTesting && len(p.TestCases) > 0 {
		return fmt.Errorf("%w: %d test cases while needsTesting is false", ErrInvalidTestPlan, len(p.TestCases))
	}
	for i, tc := range p.TestCases {
		if strings.TrimSpace(tc.Title) == "" {
			return fmt.Errorf("%w: test case %d has empty title", ErrInvalidTestPlan, i)
		}
	}
	return nil
}

// Titles возвращает названия сценариев в исходном порядке.
func (p TestPlan) Titles() []string {
	titles := make([]string, len(p.TestCases))
	for i, tc := range p.TestCases {
		titles[i] = tc.Title
	}
	return titles
}
