package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
)

// Session DTOs

// CreateSessionRequest — запрос на создание session.
type CreateSessionRequest struct {
	Request    string `json:"request"`
	Mode       string `json:"mode,omitempty"`
	MaxReplans *int   `json:"max_replans,omitempty"`
}

// SessionResponse — ответ с session.
type SessionResponse struct {
	ID              uuid.UUID        `json:"id"`
	Request         string           `json:"request"`
	Mode            string           `json:"mode"`
	Status          string           `json:"status"`
	IsValid         bool             `json:"is_valid"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	Plan            *PlanResponse    `json:"plan,omitempty"`
	Messages        []domain.Message `json:"messages,omitempty"`
	ReplanCount     int              `json:"replan_count"`
	MaxReplans      int              `json:"max_replans"`
	FinalResponse   string           `json:"final_response,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	FinishedAt      *time.Time       `json:"finished_at,omitempty"`
}

// SessionFromDomain конвертирует domain.Session в SessionResponse.
func SessionFromDomain(s domain.Session) SessionResponse {
	resp := SessionResponse{
		ID:              s.ID,
		Request:         s.Request,
		Mode:            string(s.Mode),
		Status:          string(s.Status),
		IsValid:         s.IsValid,
		RejectionReason: s.RejectionReason,
		Messages:        s.Messages,
		ReplanCount:     s.ReplanCount,
		MaxReplans:      s.MaxReplans,
		FinalResponse:   s.FinalResponse,
		CreatedAt:       s.CreatedAt,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
	}
	if s.Plan != nil {
		plan := PlanFromDomain(*s.Plan)
		resp.Plan = &plan
	}
	return resp
}

// Plan DTOs

// PlanResponse — ответ с планом.
type PlanResponse struct {
	Tasks     []TaskResponse `json:"tasks"`
	Strategy  string         `json:"execution_strategy,omitempty"`
	Analysis  string         `json:"analysis,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// PlanFromDomain конвертирует domain.Plan в PlanResponse.
func PlanFromDomain(p domain.Plan) PlanResponse {
	tasks := make([]TaskResponse, len(p.Tasks))
	for i, t := range p.Tasks {
		tasks[i] = TaskFromDomain(t)
	}
	return PlanResponse{
		Tasks:     tasks,
		Strategy:  string(p.Strategy),
		Analysis:  p.Analysis,
		CreatedAt: p.CreatedAt,
	}
}

// Task DTOs

// TaskResponse — ответ с task.
type TaskResponse struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	AgentID     string     `json:"agent_id"`
	AgentName   string     `json:"agent_name,omitempty"`
	Rationale   string     `json:"rationale,omitempty"`
	Status      string     `json:"status"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	DependsOn   []string   `json:"depends_on,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// TaskFromDomain конвертирует domain.Task в TaskResponse.
func TaskFromDomain(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Description: t.Description,
		AgentID:     t.AgentID,
		AgentName:   t.AgentName,
		Rationale:   t.Rationale,
		Status:      string(t.Status),
		Result:      t.Result,
		Error:       t.Error,
		DependsOn:   t.DependsOn,
		StartedAt:   t.StartedAt,
		FinishedAt:  t.FinishedAt,
	}
}

// Decision DTOs

// DecisionRequest — внешнее решение по плану.
type DecisionRequest struct {
	Decision string       `json:"decision"`
	Reason   string       `json:"reason,omitempty"`
	Plan     *domain.Plan `json:"plan,omitempty"`
}

// Agent DTOs

// AgentResponse — карточка обнаруженного агента.
type AgentResponse struct {
	AgentID      string   `json:"agent_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Skills       []string `json:"skills,omitempty"`
}

// AgentFromDomain конвертирует domain.AgentCapability в AgentResponse.
func AgentFromDomain(a domain.AgentCapability) AgentResponse {
	return AgentResponse{
		AgentID:      a.AgentID,
		Name:         a.Name,
		Description:  a.Description,
		Capabilities: a.Capabilities,
		Skills:       a.Skills,
	}
}
