package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shaiso/Dirigent/internal/agent"
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/engine"
	"github.com/shaiso/Dirigent/internal/telemetry"
)

// Invoker выполняет одну task на удалённом агенте.
type Invoker interface {
	Invoke(ctx context.Context, req agent.InvokeRequest) (string, error)
}

// maxDependencyResultChars — лимит результата зависимости в контексте.
const maxDependencyResultChars = 2000

// Config — конфигурация планировщика.
type Config struct {
	// Invoker — клиент вызова агентов.
	Invoker Invoker

	// Logger — логгер. nil — slog.Default().
	Logger *slog.Logger
}

// Scheduler — планировщик выполнения задач по графу зависимостей.
type Scheduler struct {
	invoker Invoker
	logger  *slog.Logger
}

// New создаёт планировщик.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		invoker: cfg.Invoker,
		logger:  logger.With("component", "executor"),
	}
}

// Execute выполняет задачи плана и возвращает их с терминальными
// статусами. Работает на копии: входной слайс не мутирует. prior —
// успешные результаты предыдущих проходов (replan); задачи с ID из
// prior не выполняются повторно, их результат переносится.
func (s *Scheduler) Execute(ctx context.Context, request string, tasks []domain.Task, prior map[string]domain.Task) []domain.Task {
	work := make([]domain.Task, len(tasks))
	copy(work, tasks)

	g, err := engine.Build(work)
	if err != nil {
		// Структурно негодный план: выполнять нечего, весь план падает.
		s.logger.Error("plan graph is invalid", "error", err)
		for i := range work {
			if !work[i].IsFinished() {
				work[i].MarkFailed(fmt.Sprintf("invalid plan: %v", err))
			}
		}
		return work
	}

	completed := make(map[string]bool, len(work))
	failed := make(map[string]bool)

	// Переносим уже готовые результаты предыдущих проходов.
	for i := range work {
		t := &work[i]
		if done, ok := prior[t.ID]; ok && done.Status == domain.TaskStatusCompleted {
			t.Status = domain.TaskStatusCompleted
			t.Result = done.Result
			t.StartedAt = done.StartedAt
			t.FinishedAt = done.FinishedAt
			completed[t.ID] = true
		}
	}

	byID := make(map[string]*domain.Task, len(work))
	for i := range work {
		byID[work[i].ID] = &work[i]
	}

	// Потолок раундов: даже строгая цепочка укладывается в len(tasks)
	// раундов, +1 — страховка от зависания на неразрешимом графе.
	maxRounds := len(work) + 1

	for round := 1; round <= maxRounds; round++ {
		if g.IsComplete(completed, failed) {
			break
		}

		// Задачи с упавшей зависимостью падают без dispatch.
		for _, node := range g.BlockedByFailure(completed, failed) {
			node.Task.MarkFailed(fmt.Sprintf("dependency failed: %s", failedDeps(node, failed)))
			failed[node.ID] = true
			telemetry.TasksFailed.Inc()
			s.logger.Warn("task skipped", "task_id", node.ID, "error", node.Task.Error)
		}

		ready := g.ReadyNodes(completed, failed, nil)
		if len(ready) == 0 {
			break
		}

		s.logger.Info("dispatching round",
			"round", round,
			"ready", len(ready),
			"completed", len(completed),
			"failed", len(failed),
		)

		// Fan-out: каждая готовая task — своя goroutine, раунд
		// закрывается после завершения всех. Ошибка одной task не
		// отменяет остальные.
		var wg sync.WaitGroup
		for _, node := range ready {
			t := node.Task
			t.MarkInProgress()
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.runTask(ctx, request, t, byID)
			}()
		}
		wg.Wait()

		for _, node := range ready {
			switch node.Task.Status {
			case domain.TaskStatusCompleted:
				completed[node.ID] = true
			default:
				failed[node.ID] = true
			}
		}
	}

	// Остаток после исчерпания раундов или пустого множества готовых —
	// неразрешимые зависимости (цикл или незакрываемый граф).
	for i := range work {
		if !work[i].IsFinished() {
			work[i].MarkFailed("unresolved dependency: task never became ready")
			telemetry.TasksFailed.Inc()
			s.logger.Warn("task never became ready", "task_id", work[i].ID)
		}
	}

	return work
}

// runTask выполняет одну task на агенте и помечает её результат.
func (s *Scheduler) runTask(ctx context.Context, request string, t *domain.Task, byID map[string]*domain.Task) {
	telemetry.TasksDispatched.Inc()
	start := time.Now()

	result, err := s.invoker.Invoke(ctx, agent.InvokeRequest{
		AgentID: t.AgentID,
		TaskID:  t.ID,
		Request: request,
		Task:    t.Description,
		Context: dependencyContext(t, byID),
	})

	telemetry.TaskDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		t.MarkFailed(err.Error())
		telemetry.TasksFailed.Inc()
		s.logger.Warn("task failed",
			"task_id", t.ID,
			"agent_id", t.AgentID,
			"duration", time.Since(start),
			"error", err,
		)
		return
	}

	t.MarkCompleted(result)
	s.logger.Info("task completed",
		"task_id", t.ID,
		"agent_id", t.AgentID,
		"duration", time.Since(start),
	)
}

// dependencyContext собирает результаты прямых зависимостей task.
// Пустая строка, если зависимостей нет.
func dependencyContext(t *domain.Task, byID map[string]*domain.Task) string {
	if len(t.DependsOn) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Context from previous tasks:\n")
	for _, depID := range t.DependsOn {
		dep, ok := byID[depID]
		if !ok || dep.Status != domain.TaskStatusCompleted {
			continue
		}
		result := dep.Result
		if len(result) > maxDependencyResultChars {
			result = result[:maxDependencyResultChars] + "..."
		}
		fmt.Fprintf(&b, "- %s: %s\n", dep.Description, result)
	}
	return b.String()
}

// failedDeps перечисляет упавшие зависимости узла.
func failedDeps(node *engine.Node, failed map[string]bool) string {
	var ids []string
	for _, dep := range node.DependsOn {
		if failed[dep.ID] {
			ids = append(ids, dep.ID)
		}
	}
	return strings.Join(ids, ", ")
}
