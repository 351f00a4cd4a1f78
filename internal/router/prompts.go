package router

import (
	"fmt"
	"strings"

	"github.com/shaiso/Dirigent/internal/domain"
)

// Системные промпты стадий. Все ответы оракула — строго JSON;
// устойчивость к код-фенсам и прозе обеспечивает oracle.ExtractJSON.

const validateSystem = `You are a request validator for an agent orchestration platform.
Decide whether the user's request falls within the platform's scope and can be
worked on by specialized agents. Harmful, illegal or clearly out-of-scope
requests are invalid.
Respond with JSON only:
{"is_valid": true|false, "reasoning": "<one short sentence>"}`

const planSystem = `You are a planning assistant for an agent orchestration platform.
Decompose the user's request into tasks for the available agents.
Rules:
- Use only agents from the provided list, referenced by their agent_id.
- Give every task a short local id ("t1", "t2", ...), a clear self-contained
  description, and a rationale for the agent choice.
- List dependencies in depends_on using the local ids of other tasks.
  Only add a dependency when a task genuinely needs another task's output.
- Prefer independent tasks: they run concurrently.
Respond with JSON only:
{"analysis": "<how you understood the request>",
 "execution_strategy": "parallel|sequential",
 "tasks": [{"id": "t1", "description": "...", "agent_id": "...",
            "agent_name": "...", "rationale": "...", "depends_on": []}]}`

const analyzeSystem = `You are a quality analyst for an agent orchestration platform.
Given the user's request and the collected task results, decide whether the
results are sufficient to compose a final answer. Request another planning
round only when a concrete gap can still be closed by the available agents.
Respond with JSON only:
{"is_sufficient": true|false, "reasoning": "<one short sentence>",
 "replan_strategy": "<what the next plan should do differently, if insufficient>"}`

const aggregateSystem = `You are composing the final answer for the user of an agent
orchestration platform. Synthesize the task results into a single coherent
response to the original request. Answer directly, do not mention tasks,
agents or the orchestration process. Respond with plain text.`

// validatePrompt — промпт валидации запроса.
func validatePrompt(request, scope string) string {
	return fmt.Sprintf("Platform scope: %s.\n\nUser request:\n%s", scope, request)
}

// planPrompt — промпт планирования: возможности агентов плюс, при
// перепланировании, накопленные результаты и причина replan.
func planPrompt(sess *domain.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User request:\n%s\n\nAvailable agents:\n", sess.Request)
	for _, a := range sess.Agents {
		fmt.Fprintf(&b, "- agent_id: %s\n  name: %s\n", a.AgentID, a.Name)
		if a.Description != "" {
			fmt.Fprintf(&b, "  description: %s\n", a.Description)
		}
		if len(a.Capabilities) > 0 {
			fmt.Fprintf(&b, "  capabilities: %s\n", strings.Join(a.Capabilities, ", "))
		}
		if len(a.Skills) > 0 {
			fmt.Fprintf(&b, "  skills: %s\n", strings.Join(a.Skills, "; "))
		}
	}

	if sess.ReplanCount > 0 || sess.ReplanReason != "" {
		fmt.Fprintf(&b, "\nThis is planning attempt %d.\n", sess.ReplanCount+1)
		if sess.ReplanReason != "" {
			fmt.Fprintf(&b, "Reason for replanning: %s\n", sess.ReplanReason)
		}
		if results := resultsSection(sess); results != "" {
			fmt.Fprintf(&b, "\nResults collected so far (do not repeat completed work):\n%s", results)
		}
	}

	return b.String()
}

// analyzePrompt — промпт анализа достаточности результатов.
func analyzePrompt(sess *domain.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User request:\n%s\n\nCollected task results:\n%s",
		sess.Request, resultsSection(sess))

	remaining := sess.MaxReplans - sess.ReplanCount
	fmt.Fprintf(&b, "\nPlanning attempts used: %d of %d.\n", sess.ReplanCount, sess.MaxReplans)
	if remaining <= 1 {
		b.WriteString("This is the last chance to replan: be lenient and prefer " +
			"accepting the results unless they are unusable.\n")
	}

	return b.String()
}

// aggregatePrompt — промпт агрегации финального ответа.
func aggregatePrompt(sess *domain.Session) string {
	return fmt.Sprintf("User request:\n%s\n\nTask results:\n%s",
		sess.Request, resultsSection(sess))
}

// resultsSection перечисляет накопленные результаты session.
func resultsSection(sess *domain.Session) string {
	var b strings.Builder
	for _, t := range sess.Results {
		switch t.Status {
		case domain.TaskStatusCompleted:
			result := t.Result
			if len(result) > maxResultCharsInPrompt {
				result = result[:maxResultCharsInPrompt] + "..."
			}
			fmt.Fprintf(&b, "- %s [completed]:\n%s\n", t.Description, result)
		case domain.TaskStatusFailed:
			fmt.Fprintf(&b, "- %s [failed]: %s\n", t.Description, t.Error)
		}
	}
	return b.String()
}
