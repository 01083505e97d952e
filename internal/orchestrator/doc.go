// Package orchestrator — фоновое выполнение validation runs.
//
// Orchestrator отвечает за:
//   - получение запросов на проверку из очереди RabbitMQ
//   - периодический поиск PENDING runs в БД (fallback, если сообщение потеряно)
//   - запуск validation pipeline для run и запись итога (SUCCEEDED/FAILED)
//
// Для одного run одновременно выполняется не больше одного pipeline:
// переход PENDING → RUNNING атомарен в БД, а активные runs отслеживаются
// в памяти процесса.
package orchestrator
