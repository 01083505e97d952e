// Package mq — инфраструктура RabbitMQ для очереди validation runs.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация запросов на проверку
//   - consumer.go   — потребление запросов оркестратором
//
// API создаёт run в статусе PENDING и публикует validation.requested;
// оркестратор потребляет validations.requested и запускает pipeline.
// Сообщения, которые не удалось обработать повторно, уходят в dlq.validations.
package mq
