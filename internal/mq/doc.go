// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - session.pending  — новая session ожидает обработки
//   - session.decision — по плану session принято внешнее решение
//
// Exchanges:
//   - dirigent.sessions — события sessions
//   - dirigent.dlq      — dead letter queue
//
// События — только сигнал «проснись»: данные роутер всегда читает из БД,
// поэтому потеря события компенсируется polling-fallback.
package mq
