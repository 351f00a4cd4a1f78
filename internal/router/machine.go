package router

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/telemetry"
)

// processSession берёт PENDING session и ведёт её по машине состояний
// до терминального статуса или приостановки на одобрении.
func (r *Router) processSession(ctx context.Context, id uuid.UUID) error {
	if !r.tryAcquire(id) {
		return ErrSessionActive
	}
	defer r.release(id)

	sess, err := r.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess.Status != domain.SessionStatusPending {
		return fmt.Errorf("%w: status %s", ErrSessionNotPending, sess.Status)
	}

	telemetry.SessionsStarted.Inc()
	sess.MarkStarted()
	sess.Status = domain.SessionStatusValidating
	if err := r.store.Update(ctx, sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	r.logger.Info("session started", "session_id", sess.ID, "mode", sess.Mode)

	return r.run(ctx, sess)
}

// resumeSession возобновляет session, ожидающую решения по плану.
func (r *Router) resumeSession(ctx context.Context, id uuid.UUID) error {
	if !r.tryAcquire(id) {
		return ErrSessionActive
	}
	defer r.release(id)

	sess, err := r.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess.Status != domain.SessionStatusAwaitingApproval {
		return fmt.Errorf("%w: status %s", ErrSessionNotAwaiting, sess.Status)
	}

	decision, err := r.store.GetDecision(ctx, id)
	if err != nil {
		return ErrNoDecision
	}

	r.logger.Info("session resumed",
		"session_id", sess.ID,
		"decision", decision.Type,
	)

	switch decision.Type {
	case domain.DecisionApproved:
		sess.AddMessage(domain.RoleUser, "Plan approved.")
		sess.Status = domain.SessionStatusExecuting

	case domain.DecisionModified:
		if decision.Plan != nil {
			// Приложенный план заменяет текущий целиком; задачи с
			// неизвестными агентами отбрасываются как и при парсинге.
			plan := r.sanitizeExternalPlan(sess, decision.Plan)
			sess.Plan = plan
			sess.AddMessage(domain.RoleUser, "Plan modified:\n"+plan.Summary())
			sess.Status = domain.SessionStatusExecuting
			break
		}
		// Без приложенного плана — обратная связь для перепланирования.
		sess.AddMessage(domain.RoleUser, "Plan needs changes: "+decision.Reason)
		sess.ReplanReason = "plan modification requested: " + decision.Reason
		sess.Status = domain.SessionStatusPlanning

	default: // DecisionRejected
		sess.AddMessage(domain.RoleUser, "Plan rejected: "+decision.Reason)
		sess.ReplanReason = "plan rejected by reviewer: " + decision.Reason
		sess.Status = domain.SessionStatusPlanning
	}

	// Update очищает записанное решение вместе с переходом статуса.
	if err := r.store.Update(ctx, sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	return r.run(ctx, sess)
}

// run крутит машину состояний до терминального статуса или
// приостановки. Каждый переход фиксируется в хранилище.
func (r *Router) run(ctx context.Context, sess *domain.Session) error {
	for !sess.IsFinished() {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch sess.Status {
		case domain.SessionStatusValidating:
			r.stepValidate(ctx, sess)

		case domain.SessionStatusPlanning:
			suspended := r.stepPlan(ctx, sess)
			if suspended {
				if err := r.store.Update(ctx, sess); err != nil {
					return fmt.Errorf("persist session: %w", err)
				}
				r.logger.Info("session suspended for approval", "session_id", sess.ID)
				return nil
			}

		case domain.SessionStatusExecuting:
			r.stepExecute(ctx, sess)

		case domain.SessionStatusAnalyzing:
			r.stepAnalyze(ctx, sess)

		case domain.SessionStatusAggregating:
			r.stepAggregate(ctx, sess)

		default:
			return fmt.Errorf("unexpected session status %s", sess.Status)
		}

		if err := r.store.Update(ctx, sess); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}

	outcome := "completed"
	if sess.Status == domain.SessionStatusRejected {
		outcome = "rejected"
	}
	telemetry.SessionsCompleted.WithLabelValues(outcome).Inc()

	r.logger.Info("session finished",
		"session_id", sess.ID,
		"status", sess.Status,
		"replans", sess.ReplanCount,
		"tasks", len(sess.Results),
	)

	return nil
}

// stepValidate — стадия валидации: guardrail-проверка запроса и сборка
// реестра агентов.
func (r *Router) stepValidate(ctx context.Context, sess *domain.Session) {
	valid, reason := r.validate(ctx, sess)
	if !valid {
		response := r.rejectionMessage(reason)
		sess.AddMessage(domain.RoleAssistant, response)
		sess.MarkRejected(reason, response)
		r.logger.Info("session rejected", "session_id", sess.ID, "reason", reason)
		return
	}

	sess.IsValid = true

	// Реестр собирается один раз на session; снимок хранится в session
	// и переживает приостановку. Недоступность discovery деградирует
	// в пустой реестр — session завершится честным ответом.
	reg, err := r.registry.Build(ctx)
	if err != nil {
		r.logger.Error("failed to build agent registry", "session_id", sess.ID, "error", err)
		sess.Agents = nil
	} else {
		sess.Agents = reg.List()
	}

	sess.Status = domain.SessionStatusPlanning
}

// stepPlan — стадия планирования. Возвращает true, если session
// приостановлена в ожидании внешнего решения.
func (r *Router) stepPlan(ctx context.Context, sess *domain.Session) (suspended bool) {
	plan := r.buildPlan(ctx, sess)
	sess.Plan = plan

	r.logger.Info("plan built",
		"session_id", sess.ID,
		"tasks", len(plan.Tasks),
		"strategy", plan.Strategy,
		"replan", sess.ReplanCount,
	)

	switch sess.Mode {
	case domain.ModeInteractive:
		sess.AddMessage(domain.RoleAssistant,
			plan.Summary()+"\nDo you approve this plan? (approve / modify / reject)")
		sess.Status = domain.SessionStatusAwaitingApproval
		return true

	case domain.ModeReview:
		sess.AddMessage(domain.RoleAssistant,
			plan.Summary()+"\nPlan auto-approved (review mode).")
		sess.Status = domain.SessionStatusExecuting
		return false

	default: // ModeAuto
		sess.Status = domain.SessionStatusExecuting
		return false
	}
}

// stepExecute — стадия выполнения плана.
func (r *Router) stepExecute(ctx context.Context, sess *domain.Session) {
	prior := sess.CompletedResults()

	var results []domain.Task
	if !sess.Plan.IsEmpty() {
		results = r.executor.Execute(ctx, sess.Request, sess.Plan.Tasks, prior)
		sess.Plan.Tasks = results
	}

	// В накопитель попадают только результаты этого прохода;
	// перенесённые из prior уже там.
	for _, t := range results {
		if p, ok := prior[t.ID]; ok && p.Status == domain.TaskStatusCompleted {
			continue
		}
		sess.Results = append(sess.Results, t)
	}

	sess.Status = domain.SessionStatusAnalyzing
}

// stepAnalyze — стадия анализа достаточности результатов.
func (r *Router) stepAnalyze(ctx context.Context, sess *domain.Session) {
	needReplan, reason := r.analyze(ctx, sess)
	if needReplan && sess.CanReplan() {
		sess.RecordReplan(reason)
		telemetry.ReplansTotal.Inc()
		r.logger.Info("replanning",
			"session_id", sess.ID,
			"replan", sess.ReplanCount,
			"max_replans", sess.MaxReplans,
			"reason", reason,
		)
		sess.Status = domain.SessionStatusPlanning
		return
	}

	sess.Status = domain.SessionStatusAggregating
}

// stepAggregate — стадия агрегации финального ответа.
func (r *Router) stepAggregate(ctx context.Context, sess *domain.Session) {
	response := r.aggregate(ctx, sess)
	sess.AddMessage(domain.RoleAssistant, response)
	sess.MarkCompleted(response)
}

// sanitizeExternalPlan чистит приложенный извне план: задачи без ID
// получают сгенерированный, задачи с неизвестным агентом отбрасываются.
func (r *Router) sanitizeExternalPlan(sess *domain.Session, plan *domain.Plan) *domain.Plan {
	known := make(map[string]bool, len(sess.Agents))
	for _, a := range sess.Agents {
		known[a.AgentID] = true
	}

	kept := make([]domain.Task, 0, len(plan.Tasks))
	for _, t := range plan.Tasks {
		if !known[t.AgentID] {
			r.logger.Warn("dropping task with unknown agent from modified plan",
				"session_id", sess.ID, "agent_id", t.AgentID)
			continue
		}
		if t.ID == "" {
			t.ID = newTaskID()
		}
		t.Status = domain.TaskStatusPending
		kept = append(kept, t)
	}

	return domain.NewPlan(dropDanglingDeps(kept, r.logger), plan.Strategy, plan.Analysis)
}
