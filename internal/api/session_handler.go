package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/repo"
)

// ListSessions возвращает список sessions с фильтрацией.
// GET /api/v1/sessions?status=...&limit=...&offset=...
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	filter := repo.SessionFilter{Limit: 50}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.SessionStatus(status)
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = int(mustParseInt(limitStr, 50))
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = int(mustParseInt(offsetStr, 0))
	}

	sessions, err := h.sessionRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		result[i] = SessionFromDomain(s)
	}

	List(w, result, len(result))
}

// CreateSession создаёт новую session и будит роутер событием.
// POST /api/v1/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Request) == "" {
		BadRequest(w, "request text is required")
		return
	}

	maxReplans := h.maxReplans
	if req.MaxReplans != nil && *req.MaxReplans >= 0 {
		maxReplans = *req.MaxReplans
	}

	sess := domain.NewSession(req.Request, domain.ParseMode(req.Mode), maxReplans)

	if err := h.sessionRepo.Create(r.Context(), sess); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	// Публикуем событие; при недоступном MQ session подхватит polling.
	if h.publisher != nil {
		if err := h.publisher.PublishSessionPending(r.Context(), sess.ID); err != nil {
			h.logger.Warn("failed to publish session.pending", "session_id", sess.ID, "error", err)
		}
	}

	Created(w, SessionFromDomain(*sess))
}

// GetSession возвращает session по ID.
// GET /api/v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid session id")
		return
	}

	sess, err := h.sessionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "session not found") {
		return
	}

	Success(w, SessionFromDomain(*sess))
}

// ListSessionTasks возвращает накопленные результаты задач session.
// GET /api/v1/sessions/{id}/tasks
func (h *Handler) ListSessionTasks(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid session id")
		return
	}

	sess, err := h.sessionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "session not found") {
		return
	}

	tasks := sess.Results
	// Текущий план может содержать ещё не выполненные задачи.
	if sess.Plan != nil {
		seen := make(map[string]bool, len(tasks))
		for _, t := range tasks {
			seen[t.ID] = true
		}
		for _, t := range sess.Plan.Tasks {
			if !seen[t.ID] {
				tasks = append(tasks, t)
			}
		}
	}

	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = TaskFromDomain(t)
	}

	List(w, result, len(result))
}

// SubmitDecision записывает внешнее решение по плану session.
// POST /api/v1/sessions/{id}/decision
func (h *Handler) SubmitDecision(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid session id")
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Decision == "" {
		BadRequest(w, "decision is required")
		return
	}

	sess, err := h.sessionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "session not found") {
		return
	}
	if sess.Status != domain.SessionStatusAwaitingApproval {
		InvalidState(w, "session is not awaiting approval")
		return
	}

	decision := &domain.Decision{
		Type:   domain.ParseDecisionType(req.Decision),
		Reason: req.Reason,
		Plan:   req.Plan,
	}

	if err := h.sessionRepo.SetDecision(r.Context(), id, decision); err != nil {
		if HandleRepoError(w, h.logger, err, "session not found") {
			return
		}
	}

	if h.publisher != nil {
		if err := h.publisher.PublishSessionDecision(r.Context(), id); err != nil {
			h.logger.Warn("failed to publish session.decision", "session_id", id, "error", err)
		}
	}

	Success(w, map[string]string{
		"session_id": id.String(),
		"decision":   string(decision.Type),
	})
}

// mustParseInt парсит строку в int64 с дефолтным значением.
func mustParseInt(s string, defaultVal int64) int64 {
	if n, err := json.Number(s).Int64(); err == nil {
		return n
	}
	return defaultVal
}
