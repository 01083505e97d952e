// Package planner генерирует тест-план для review request.
//
// Generator — капабилити "review request → TestPlan". Оркестрация не
// зависит от того, как именно план получен: в тестах используется
// GeneratorFunc, в сервисах — LLMGenerator.
//
// LLMGenerator собирает контекст (метаданные и diff из review host,
// связанные задачи из tracker), строит prompt с JSON-схемой TestPlan,
// вызывает chat-модель eino и разбирает JSON из ответа.
package planner
