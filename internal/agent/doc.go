// Package agent — HTTP-клиент вызова удалённого агента: одна task
// отправляется одним запросом к шлюзу агентов, ответ агента целиком
// становится результатом task. Ошибки транспорта, таймаут и
// HTTP-статусы ≥ 400 различимы через сентинельные ошибки.
package agent
