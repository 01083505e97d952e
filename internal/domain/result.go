package domain

// TestCaseResult — результат выполнения одного тест-кейса.
//
// Создаётся executor'ом строго по одному на каждый входной TestCase,
// в том же порядке, и после создания не изменяется.
type TestCaseResult struct {
	Title  string     `json:"title"`
	Status TestStatus `json:"status"`
}

// Summary — итоговый результат pipeline.
//
// Используется и как bail payload ({success: true, needsTesting: false, testCases: []}),
// и как результат шага publish-report.
type Summary struct {
	Success      bool             `json:"success"`
	NeedsTesting bool             `json:"needsTesting"`
	TestCases    []TestCaseResult `json:"testCases"`
}

// NoTestingSummary возвращает bail payload для плана без тестов.
func NoTestingSummary() Summary {
	return Summary{
		Success:      true,
		NeedsTesting: false,
		TestCases:    []TestCaseResult{},
	}
}

// NewSummary строит итог по результатам тест-кейсов.
// Success == true, только если все кейсы прошли.
func NewSummary(results []TestCaseResult) Summary {
	success := true
	for _, r := range results {
		if r.Status != TestStatusSuccess {
			success = false
			break
		}
	}
	if results == nil {
		results = []TestCaseResult{}
	}
	return Summary{
		Success:      success,
		NeedsTesting: true,
		TestCases:    results,
	}
}

// Passed возвращает количество успешных кейсов.
func (s Summary) Passed() int {
	n := 0
	for _, r := range s.TestCases {
		if r.Status == TestStatusSuccess {
			n++
		}
	}
	return n
}
