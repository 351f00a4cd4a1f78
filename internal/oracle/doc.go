// Package oracle — клиент рассуждающей модели (Anthropic API).
//
// Роутер использует оракула в четырёх точках: валидация запроса,
// построение плана, анализ достаточности результатов и агрегация
// финального ответа. Каждый вызов — единичный запрос completion
// с системным промптом, ограниченный таймаутом.
package oracle
