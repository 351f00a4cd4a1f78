package router

import (
	"context"
	"errors"
	"time"

	"github.com/shaiso/Dirigent/internal/mq"
)

// handleSessionPending обрабатывает событие о новой session.
func (r *Router) handleSessionPending(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.SessionPendingPayload](&delivery.Message)
	if err != nil {
		r.logger.Error("failed to parse session.pending payload", "error", err)
		return err
	}

	r.logger.Debug("received session.pending event", "session_id", payload.SessionID)

	if err := r.processSession(ctx, payload.SessionID); err != nil {
		// Ожидаемые ситуации — ack, повтор не нужен.
		if errors.Is(err, ErrSessionNotPending) || errors.Is(err, ErrSessionActive) {
			r.logger.Debug("session not processed", "session_id", payload.SessionID, "reason", err)
			return nil
		}
		r.logger.Error("failed to process session", "session_id", payload.SessionID, "error", err)
		return err
	}

	return nil
}

// handleSessionDecision обрабатывает событие о внешнем решении по плану.
func (r *Router) handleSessionDecision(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.SessionDecisionPayload](&delivery.Message)
	if err != nil {
		r.logger.Error("failed to parse session.decision payload", "error", err)
		return err
	}

	r.logger.Debug("received session.decision event", "session_id", payload.SessionID)

	if err := r.resumeSession(ctx, payload.SessionID); err != nil {
		if errors.Is(err, ErrSessionNotAwaiting) || errors.Is(err, ErrSessionActive) || errors.Is(err, ErrNoDecision) {
			r.logger.Debug("session not resumed", "session_id", payload.SessionID, "reason", err)
			return nil
		}
		r.logger.Error("failed to resume session", "session_id", payload.SessionID, "error", err)
		return err
	}

	return nil
}

// pollLoop опрашивает БД: страховка на случай потерянных событий
// и единственный источник работы без RabbitMQ.
func (r *Router) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.poll(ctx)
		}
	}
}

// poll подбирает PENDING sessions и sessions с записанным решением.
func (r *Router) poll(ctx context.Context) {
	pending, err := r.store.ListPending(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("failed to list pending sessions", "error", err)
	} else {
		for _, s := range pending {
			id := s.ID
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				if err := r.processSession(ctx, id); err != nil &&
					!errors.Is(err, ErrSessionNotPending) && !errors.Is(err, ErrSessionActive) {
					r.logger.Error("failed to process polled session", "session_id", id, "error", err)
				}
			}()
		}
	}

	awaiting, err := r.store.ListAwaitingDecision(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("failed to list sessions awaiting decision", "error", err)
		return
	}
	for _, s := range awaiting {
		id := s.ID
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.resumeSession(ctx, id); err != nil &&
				!errors.Is(err, ErrSessionNotAwaiting) && !errors.Is(err, ErrSessionActive) && !errors.Is(err, ErrNoDecision) {
				r.logger.Error("failed to resume polled session", "session_id", id, "error", err)
			}
		}()
	}
}
