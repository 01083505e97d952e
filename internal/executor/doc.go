// Package executor параллельно выполняет тест-кейсы в удалённом сервисе
// браузерной автоматизации.
//
// Для каждого тест-кейса создаётся одна удалённая задача, после чего её
// статус опрашивается через poll.Until со своим MaxWait (по умолчанию
// 5 минут). Все задачи выполняются одновременно (fan-out), Run возвращает
// управление, когда каждая из них пришла к финальному исходу (join).
//
// Сбой одной задачи (ошибка сервиса, некорректный ответ, таймаут)
// превращается в результат fail для этого тест-кейса и не влияет на
// остальные. Результаты пишутся в слот по индексу входного тест-кейса,
// поэтому порядок выхода всегда совпадает с порядком входа.
//
// Таймаут — локальный отказ от ожидания: удалённая задача не отменяется
// и может продолжать работать после того, как кейс отмечен как fail.
package executor
