package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/oracle"
	"github.com/shaiso/Dirigent/internal/telemetry"
)

// planPayload — ожидаемая форма ответа оракула на планирование.
type planPayload struct {
	Analysis          string        `json:"analysis"`
	ExecutionStrategy string        `json:"execution_strategy"`
	Tasks             []taskPayload `json:"tasks"`
}

type taskPayload struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	AgentID     string   `json:"agent_id"`
	AgentName   string   `json:"agent_name"`
	Rationale   string   `json:"rationale"`
	DependsOn   []string `json:"depends_on"`
}

// buildPlan строит план через оракула. Любая деградация — пустой план
// с пояснением в Analysis: машина состояний продолжает работать.
func (r *Router) buildPlan(ctx context.Context, sess *domain.Session) *domain.Plan {
	if len(sess.Agents) == 0 {
		r.logger.Warn("no agents available for planning", "session_id", sess.ID)
		return domain.NewPlan(nil, domain.StrategySequential,
			"No agents are available to handle this request.")
	}

	telemetry.OracleCalls.WithLabelValues("plan").Inc()

	raw, err := r.completer.Complete(ctx, planSystem, planPrompt(sess))
	if err != nil {
		telemetry.OracleErrors.WithLabelValues("plan").Inc()
		r.logger.Error("planning oracle failed", "session_id", sess.ID, "error", err)
		return domain.NewPlan(nil, domain.StrategySequential,
			"Planning failed: the reasoning backend was unavailable.")
	}

	return r.parsePlan(sess, raw)
}

// parsePlan разбирает ответ оракула в план. Задачи с неизвестными
// агентами и висячие зависимости отбрасываются с предупреждением;
// полностью негодный ответ даёт пустой план.
func (r *Router) parsePlan(sess *domain.Session, raw string) *domain.Plan {
	extracted := oracle.ExtractJSON(raw)
	if extracted == "" {
		r.logger.Warn("plan response contains no JSON", "session_id", sess.ID)
		return domain.NewPlan(nil, domain.StrategySequential,
			"Planning failed: the plan could not be parsed.")
	}

	var payload planPayload
	if err := json.Unmarshal([]byte(extracted), &payload); err != nil {
		r.logger.Warn("failed to decode plan", "session_id", sess.ID, "error", err)
		return domain.NewPlan(nil, domain.StrategySequential,
			"Planning failed: the plan could not be parsed.")
	}

	known := make(map[string]domain.AgentCapability, len(sess.Agents))
	for _, a := range sess.Agents {
		known[a.AgentID] = a
	}

	// Локальные ID оракула переименовываются в уникальные; рёбра
	// зависимостей переносятся по карте соответствия.
	idMap := make(map[string]string, len(payload.Tasks))
	tasks := make([]domain.Task, 0, len(payload.Tasks))

	for _, tp := range payload.Tasks {
		agentCard, ok := known[tp.AgentID]
		if !ok {
			r.logger.Warn("dropping task with unknown agent",
				"session_id", sess.ID, "agent_id", tp.AgentID, "description", tp.Description)
			continue
		}
		if strings.TrimSpace(tp.Description) == "" {
			r.logger.Warn("dropping task without description", "session_id", sess.ID)
			continue
		}

		id := newTaskID()
		if tp.ID != "" {
			idMap[tp.ID] = id
		}

		name := tp.AgentName
		if name == "" {
			name = agentCard.Name
		}

		tasks = append(tasks, domain.Task{
			ID:          id,
			Description: tp.Description,
			AgentID:     tp.AgentID,
			AgentName:   name,
			Rationale:   tp.Rationale,
			Status:      domain.TaskStatusPending,
			DependsOn:   tp.DependsOn,
		})
	}

	// Переносим рёбра на новые ID; ссылки на отброшенные задачи и
	// самозависимости выпадают.
	for i := range tasks {
		var deps []string
		for _, dep := range tasks[i].DependsOn {
			mapped, ok := idMap[dep]
			if !ok || mapped == tasks[i].ID {
				r.logger.Warn("dropping unresolvable dependency",
					"session_id", sess.ID, "task_id", tasks[i].ID, "dep", dep)
				continue
			}
			deps = append(deps, mapped)
		}
		tasks[i].DependsOn = deps
	}

	strategy := domain.Strategy(payload.ExecutionStrategy)
	if strategy != domain.StrategyParallel && strategy != domain.StrategySequential {
		strategy = domain.StrategySequential
	}

	return domain.NewPlan(tasks, strategy, payload.Analysis)
}

// dropDanglingDeps выбрасывает зависимости на задачи вне набора.
func dropDanglingDeps(tasks []domain.Task, logger *slog.Logger) []domain.Task {
	ids := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		ids[t.ID] = true
	}
	for i := range tasks {
		var deps []string
		for _, dep := range tasks[i].DependsOn {
			if !ids[dep] || dep == tasks[i].ID {
				logger.Warn("dropping unresolvable dependency", "task_id", tasks[i].ID, "dep", dep)
				continue
			}
			deps = append(deps, dep)
		}
		tasks[i].DependsOn = deps
	}
	return tasks
}

// newTaskID генерирует ID вида task_<8 hex>.
func newTaskID() string {
	return "task_" + uuid.New().String()[:8]
}
