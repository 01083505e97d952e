// Package cli реализует инструмент командной строки Preflight.
//
// # Команды
//
//   - run owner/repo#N — выполнить проверку в текущем процессе
//   - config check     — загрузить конфигурацию и показать итоговые параметры
//   - validation list|show|request — работа с сервисом через HTTP API
//
// run и config check читают окружение через config.Load; команды
// validation работают только через HTTP и не требуют учётных данных.
//
// # Output
//
// Данные выводятся в stdout таблицей (text/tabwriter) или JSON (--json),
// сообщения — в stderr:
//
//	preflight validation list --json | jq .
//
// Группы команд создаются фабриками (NewRunCmd и т.д.), которые
// принимают замыкания для ленивого создания Client и Output после
// разбора PersistentFlags.
package cli
