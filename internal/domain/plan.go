package domain

import (
	"fmt"
	"strings"
	"time"
)

// Task — единица работы плана, адресованная конкретному агенту.
type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	AgentID     string     `json:"agent_id"`
	AgentName   string     `json:"agent_name,omitempty"`
	Rationale   string     `json:"rationale,omitempty"`
	Status      TaskStatus `json:"status"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	DependsOn   []string   `json:"depends_on,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// MarkInProgress переводит task в IN_PROGRESS.
func (t *Task) MarkInProgress() {
	t.Status = TaskStatusInProgress
	now := time.Now()
	t.StartedAt = &now
}

// MarkCompleted переводит task в COMPLETED с результатом агента.
func (t *Task) MarkCompleted(result string) {
	t.Status = TaskStatusCompleted
	t.Result = result
	now := time.Now()
	t.FinishedAt = &now
}

// MarkFailed переводит task в FAILED с текстом ошибки.
func (t *Task) MarkFailed(errMsg string) {
	t.Status = TaskStatusFailed
	t.Error = errMsg
	now := time.Now()
	t.FinishedAt = &now
}

// IsFinished возвращает true, если task в терминальном статусе.
func (t *Task) IsFinished() bool {
	return t.Status.IsTerminal()
}

// Plan — набор задач с зависимостями, построенный для session.
type Plan struct {
	Tasks     []Task    `json:"tasks"`
	Strategy  Strategy  `json:"execution_strategy,omitempty"`
	Analysis  string    `json:"analysis,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPlan создаёт план с текущей меткой времени.
func NewPlan(tasks []Task, strategy Strategy, analysis string) *Plan {
	return &Plan{
		Tasks:     tasks,
		Strategy:  strategy,
		Analysis:  analysis,
		CreatedAt: time.Now(),
	}
}

// IsEmpty возвращает true, если в плане нет задач.
// Пустой план — валидное вырожденное состояние: выполнение завершается
// мгновенно, ответ собирается из того, что есть.
func (p *Plan) IsEmpty() bool {
	return p == nil || len(p.Tasks) == 0
}

// Task возвращает task по ID или nil.
func (p *Plan) Task(id string) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}

// Summary строит текстовое описание плана для показа при одобрении.
func (p *Plan) Summary() string {
	var b strings.Builder
	b.WriteString("Execution plan:\n")
	if p.Analysis != "" {
		fmt.Fprintf(&b, "\n%s\n", p.Analysis)
	}
	fmt.Fprintf(&b, "\nStrategy: %s\n\n", p.Strategy)
	for i, t := range p.Tasks {
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, t.agentLabel(), t.Description)
		if len(t.DependsOn) > 0 {
			fmt.Fprintf(&b, " (after: %s)", strings.Join(t.DependsOn, ", "))
		}
		b.WriteString("\n")
		if t.Rationale != "" {
			fmt.Fprintf(&b, "   Why: %s\n", t.Rationale)
		}
	}
	return b.String()
}

// agentLabel возвращает человекочитаемую метку агента.
func (t *Task) agentLabel() string {
	if t.AgentName != "" {
		return t.AgentName
	}
	return t.AgentID
}
