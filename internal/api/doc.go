// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go            — Handler с зависимостями (хранилище runs, publisher, logger)
//   - routes.go             — регистрация маршрутов
//   - middleware.go         — middleware (request id, logging, recovery)
//   - response.go           — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                — Data Transfer Objects (request/response)
//   - validation_handler.go — обработчики для /validations
//   - webhook_handler.go    — приём событий pull_request от review host
//
// Запрос на проверку создаёт run в статусе PENDING и публикует
// validation.requested; сам pipeline выполняет оркестратор.
package api
