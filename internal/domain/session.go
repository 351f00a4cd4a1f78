package domain

import (
	"time"

	"github.com/google/uuid"
)

// Роли сообщений в переписке session.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message — запись переписки session.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Decision — внешнее решение по плану, ожидающему одобрения.
type Decision struct {
	Type   DecisionType `json:"type"`
	Reason string       `json:"reason,omitempty"`
	// Plan — заменяющий план для DecisionModified. nil означает возврат
	// на перепланирование с Reason в качестве обратной связи.
	Plan *Plan `json:"plan,omitempty"`
}

// Session — корневой агрегат: один пользовательский запрос и весь путь
// его обработки от валидации до финального ответа.
type Session struct {
	ID      uuid.UUID `json:"id"`
	Request string    `json:"request"`
	Mode    Mode      `json:"mode"`
	Status  SessionStatus `json:"status"`

	Messages []Message `json:"messages,omitempty"`

	IsValid         bool   `json:"is_valid"`
	RejectionReason string `json:"rejection_reason,omitempty"`

	// Agents — снимок реестра, собранный при старте session.
	// Не мутирует до завершения; resume переиспользует его.
	Agents []AgentCapability `json:"agents,omitempty"`

	Plan *Plan `json:"plan,omitempty"`

	// Results — накопленные результаты задач за все проходы выполнения,
	// включая предыдущие планы при replan.
	Results []Task `json:"results,omitempty"`

	ReplanCount  int    `json:"replan_count"`
	MaxReplans   int    `json:"max_replans"`
	ReplanReason string `json:"replan_reason,omitempty"`

	FinalResponse string `json:"final_response,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewSession создаёт session в статусе PENDING с первым сообщением
// переписки — исходным запросом.
func NewSession(request string, mode Mode, maxReplans int) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.New(),
		Request:    request,
		Mode:       mode,
		Status:     SessionStatusPending,
		MaxReplans: maxReplans,
		Messages: []Message{
			{Role: RoleUser, Content: request, CreatedAt: now},
		},
		CreatedAt: now,
	}
}

// MarkStarted фиксирует начало обработки.
func (s *Session) MarkStarted() {
	now := time.Now()
	s.StartedAt = &now
}

// MarkCompleted переводит session в COMPLETED с финальным ответом.
func (s *Session) MarkCompleted(response string) {
	s.Status = SessionStatusCompleted
	s.FinalResponse = response
	now := time.Now()
	s.FinishedAt = &now
}

// MarkRejected переводит session в REJECTED с причиной и текстом отказа.
func (s *Session) MarkRejected(reason, response string) {
	s.Status = SessionStatusRejected
	s.IsValid = false
	s.RejectionReason = reason
	s.FinalResponse = response
	now := time.Now()
	s.FinishedAt = &now
}

// IsFinished возвращает true, если session в терминальном статусе.
func (s *Session) IsFinished() bool {
	return s.Status.IsTerminal()
}

// AddMessage добавляет запись в переписку.
func (s *Session) AddMessage(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
}

// CanReplan возвращает true, если бюджет перепланирований не исчерпан.
func (s *Session) CanReplan() bool {
	return s.ReplanCount < s.MaxReplans
}

// RecordReplan увеличивает счётчик перепланирований и запоминает причину.
// Счётчик монотонный, за пределы MaxReplans не выходит — вызывать только
// после проверки CanReplan.
func (s *Session) RecordReplan(reason string) {
	s.ReplanCount++
	s.ReplanReason = reason
}

// MergeResults дописывает результаты прохода выполнения в накопитель.
func (s *Session) MergeResults(tasks []Task) {
	s.Results = append(s.Results, tasks...)
}

// CompletedResults возвращает успешные результаты по ID task.
func (s *Session) CompletedResults() map[string]Task {
	out := make(map[string]Task)
	for _, t := range s.Results {
		if t.Status == TaskStatusCompleted {
			out[t.ID] = t
		}
	}
	return out
}

// FailedResultCount возвращает число упавших задач за все проходы.
func (s *Session) FailedResultCount() int {
	n := 0
	for _, t := range s.Results {
		if t.Status == TaskStatusFailed {
			n++
		}
	}
	return n
}
