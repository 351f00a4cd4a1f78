package api

import (
	"net/http"
)

// ListAgents выполняет ad-hoc discovery и возвращает карточки агентов.
// GET /api/v1/agents
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registry.Build(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	agents := reg.List()
	result := make([]AgentResponse, len(agents))
	for i, a := range agents {
		result[i] = AgentFromDomain(a)
	}

	List(w, result, len(result))
}
