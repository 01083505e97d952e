// Package report формирует тексты комментариев к review request.
//
// Форматы читаются внешними системами и должны совпадать побайтно.
package report

import (
	"strings"

	"github.com/shaiso/Preflight/internal/domain"
)

// Заголовки и глифы комментариев.
const (
	TestPlanHeading   = "## Test Plan"
	TestReportHeading = "## Test Report"

	// NoTestingComment — комментарий для плана без тестов.
	NoTestingComment = "## No testing needed"

	SuccessGlyph = "✅"
	FailureGlyph = "❌"
)

// TestPlanComment формирует комментарий "Test Plan":
//
//	## Test Plan
//
//	### {title}
//	{description}
//
//	### {title}
//	{description}
func TestPlanComment(plan domain.TestPlan) string {
	sections := make([]string, len(plan.TestCases))
	for i, tc := range plan.TestCases {
		sections[i] = "### " + tc.Title + "\n" + tc.Description
	}
	return TestPlanHeading + "\n\n" + strings.Join(sections, "\n\n")
}

// TestReportComment формирует комментарий "Test Report":
//
//	## Test Report
//
//	✅ **{title}**
//	❌ **{title}**
func TestReportComment(results []domain.TestCaseResult) string {
	return TestReportHeading + "\n\n" + strings.Join(ReportLines(results), "\n")
}

// ReportLines возвращает строки отчёта по одной на тест-кейс.
func ReportLines(results []domain.TestCaseResult) []string {
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = Glyph(r.Status) + " **" + r.Title + "**"
	}
	return lines
}

// Glyph возвращает глиф статуса: успех только для success.
func Glyph(status domain.TestStatus) string {
	if status == domain.TestStatusSuccess {
		return SuccessGlyph
	}
	return FailureGlyph
}

// PlanComment выбирает комментарий для опубликованного плана:
// NoTestingComment тогда и только тогда, когда NeedsTesting == false.
func PlanComment(plan domain.TestPlan) string {
	if !plan.NeedsTesting {
		return NoTestingComment
	}
	return TestPlanComment(plan)
}
