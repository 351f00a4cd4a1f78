package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeSessions Exchange = "dirigent.sessions"
	ExchangeDLQ      Exchange = "dirigent.dlq"
)

// Queues — имена очередей.
const (
	QueueSessionsPending  Queue = "sessions.pending"
	QueueSessionsDecision Queue = "sessions.decision"
	QueueDLQSessions      Queue = "dlq.sessions"
)

// Routing keys.
const (
	RoutingKeyPending     RoutingKey = "pending"
	RoutingKeyDecision    RoutingKey = "decision"
	RoutingKeyDLQSessions RoutingKey = "sessions"
)

// SetupTopology декларирует обменники, очереди и привязки.
// Идемпотентна: повторный вызов на живом брокере безопасен.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		if err := bindQueues(ch); err != nil {
			return err
		}
		return nil
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeSessions, "direct"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Непарсящиеся сообщения session-очередей уходят в DLQ.
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQSessions),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueSessionsPending, dlqArgs},
		{QueueSessionsDecision, dlqArgs},
		{QueueDLQSessions, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueSessionsPending, RoutingKeyPending, ExchangeSessions},
		{QueueSessionsDecision, RoutingKeyDecision, ExchangeSessions},
		{QueueDLQSessions, RoutingKeyDLQSessions, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Dirigent RabbitMQ Topology:

    dirigent.sessions (direct)
    ├── sessions.pending [routing: pending]
    │       Consumer: Router
    │       DLQ: dlq.sessions
    └── sessions.decision [routing: decision]
            Consumer: Router
            DLQ: dlq.sessions

    dirigent.dlq (direct)
    └── dlq.sessions [routing: sessions]
            Manual processing
  `
}
