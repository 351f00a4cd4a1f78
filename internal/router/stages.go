package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/oracle"
	"github.com/shaiso/Dirigent/internal/telemetry"
)

// maxResultCharsInPrompt — лимит результата task в промптах анализа
// и агрегации.
const maxResultCharsInPrompt = 3000

// validateVerdict — ожидаемая форма ответа оракула на валидацию.
type validateVerdict struct {
	IsValid   bool   `json:"is_valid"`
	Reasoning string `json:"reasoning"`
}

// validate проверяет, входит ли запрос в зону ответственности
// платформы. Fail-closed: недоступность или непарсящийся ответ
// оракула — запрос отклоняется.
func (r *Router) validate(ctx context.Context, sess *domain.Session) (bool, string) {
	telemetry.OracleCalls.WithLabelValues("validate").Inc()

	raw, err := r.completer.Complete(ctx, validateSystem, validatePrompt(sess.Request, r.scope))
	if err != nil {
		telemetry.OracleErrors.WithLabelValues("validate").Inc()
		r.logger.Error("validation oracle failed", "session_id", sess.ID, "error", err)
		return false, "the request could not be validated"
	}

	var verdict validateVerdict
	if err := json.Unmarshal([]byte(oracle.ExtractJSON(raw)), &verdict); err != nil {
		r.logger.Warn("failed to decode validation verdict", "session_id", sess.ID, "error", err)
		return false, "the request could not be validated"
	}

	return verdict.IsValid, verdict.Reasoning
}

// rejectionMessage строит текст отказа с перечислением поддерживаемых
// категорий запросов.
func (r *Router) rejectionMessage(reason string) string {
	return fmt.Sprintf(
		"This request cannot be handled by the platform.\n\nReason: %s\n\nSupported request categories: %s.",
		reason, r.scope)
}

// analyzeVerdict — ожидаемая форма ответа оракула на анализ.
type analyzeVerdict struct {
	IsSufficient   bool   `json:"is_sufficient"`
	Reasoning      string `json:"reasoning"`
	ReplanStrategy string `json:"replan_strategy"`
}

// analyze оценивает достаточность накопленных результатов.
// Возвращает (нужен ли replan, причина). Fail-open: при недоступности
// оракула результаты считаются достаточными — session завершается.
func (r *Router) analyze(ctx context.Context, sess *domain.Session) (bool, string) {
	// Бюджет исчерпан — оракула не спрашиваем.
	if !sess.CanReplan() {
		r.logger.Info("replan budget exhausted, proceeding to aggregation",
			"session_id", sess.ID, "replans", sess.ReplanCount)
		return false, ""
	}

	telemetry.OracleCalls.WithLabelValues("analyze").Inc()

	raw, err := r.completer.Complete(ctx, analyzeSystem, analyzePrompt(sess))
	if err != nil {
		telemetry.OracleErrors.WithLabelValues("analyze").Inc()
		r.logger.Error("analysis oracle failed, accepting results", "session_id", sess.ID, "error", err)
		return false, ""
	}

	var verdict analyzeVerdict
	if err := json.Unmarshal([]byte(oracle.ExtractJSON(raw)), &verdict); err != nil {
		r.logger.Warn("failed to decode analysis verdict, accepting results",
			"session_id", sess.ID, "error", err)
		return false, ""
	}

	if verdict.IsSufficient {
		return false, ""
	}

	reason := verdict.ReplanStrategy
	if reason == "" {
		reason = verdict.Reasoning
	}
	return true, reason
}

// aggregate синтезирует финальный ответ. Ответ выдаётся всегда: при
// недоступности оракула — детерминированная склейка результатов.
func (r *Router) aggregate(ctx context.Context, sess *domain.Session) string {
	if len(sess.Results) == 0 {
		if len(sess.Agents) == 0 {
			return "No agents were available to handle this request, so no work could be performed."
		}
		return "No tasks were executed for this request."
	}

	telemetry.OracleCalls.WithLabelValues("aggregate").Inc()

	response, err := r.completer.Complete(ctx, aggregateSystem, aggregatePrompt(sess))
	if err != nil {
		telemetry.OracleErrors.WithLabelValues("aggregate").Inc()
		r.logger.Error("aggregation oracle failed, falling back to concatenation",
			"session_id", sess.ID, "error", err)
		response = fallbackResponse(sess)
	}

	if failed := sess.FailedResultCount(); failed > 0 {
		response += fmt.Sprintf(
			"\n\nNote: %d task(s) failed during execution, so parts of this answer may be incomplete.",
			failed)
	}

	return response
}

// fallbackResponse — детерминированная склейка успешных результатов.
func fallbackResponse(sess *domain.Session) string {
	var b strings.Builder
	b.WriteString("Here are the results of the executed tasks:\n")
	any := false
	for _, t := range sess.Results {
		if t.Status != domain.TaskStatusCompleted {
			continue
		}
		any = true
		fmt.Fprintf(&b, "\n## %s\n%s\n", t.Description, t.Result)
	}
	if !any {
		return "All tasks failed during execution; no results are available."
	}
	return b.String()
}
