// Package validation собирает pipeline проверки review request:
//
//	generate-plan → publish-plan → wait-preview → prepare-execution → execute-tests → publish-report
//
// publish-plan публикует комментарий с планом. Если тестирование не
// требуется, он публикует "## No testing needed" и завершает pipeline
// через bail с итогом {success: true, needsTesting: false, testCases: []}.
//
// Таймаут ожидания preview прерывает pipeline: отчёт в этом случае не
// публикуется. Сбои отдельных тест-кейсов не прерывают pipeline, они
// попадают в отчёт как ❌.
package validation
