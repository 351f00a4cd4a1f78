package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/registry"
)

// fakeStore — хранилище sessions в памяти.
type fakeStore struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*domain.Session
	decisions map[uuid.UUID]*domain.Decision
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:  make(map[uuid.UUID]*domain.Session),
		decisions: make(map[uuid.UUID]*domain.Decision),
	}
}

func (f *fakeStore) put(s *domain.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return s, nil
}

func (f *fakeStore) Update(ctx context.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	delete(f.decisions, s.ID)
	return nil
}

func (f *fakeStore) ListPending(ctx context.Context, limit int) ([]domain.Session, error) {
	return nil, nil
}

func (f *fakeStore) ListAwaitingDecision(ctx context.Context, limit int) ([]domain.Session, error) {
	return nil, nil
}

func (f *fakeStore) GetDecision(ctx context.Context, id uuid.UUID) (*domain.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.decisions[id]
	if !ok {
		return nil, errors.New("no decision")
	}
	return d, nil
}

func (f *fakeStore) setDecision(id uuid.UUID, d *domain.Decision) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions[id] = d
}

// fakeCompleter отвечает по системному промпту стадии.
type fakeCompleter struct {
	mu sync.Mutex

	validateResp  string
	validateErr   error
	planResp      string
	planErr       error
	analyzeResp   string
	analyzeErr    error
	aggregateResp string
	aggregateErr  error

	calls map[string]int
}

func newFakeCompleter() *fakeCompleter {
	return &fakeCompleter{
		validateResp:  `{"is_valid": true, "reasoning": "in scope"}`,
		analyzeResp:   `{"is_sufficient": true, "reasoning": "done"}`,
		aggregateResp: "FINAL ANSWER",
		calls:         make(map[string]int),
	}
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch system {
	case validateSystem:
		f.calls["validate"]++
		return f.validateResp, f.validateErr
	case planSystem:
		f.calls["plan"]++
		return f.planResp, f.planErr
	case analyzeSystem:
		f.calls["analyze"]++
		return f.analyzeResp, f.analyzeErr
	case aggregateSystem:
		f.calls["aggregate"]++
		return f.aggregateResp, f.aggregateErr
	default:
		return "", errors.New("unknown system prompt")
	}
}

func (f *fakeCompleter) callCount(stage string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[stage]
}

// fakeExecutor завершает все задачи успешно.
type fakeExecutor struct {
	mu    sync.Mutex
	runs  int
	tasks []domain.Task
}

func (f *fakeExecutor) Execute(ctx context.Context, request string, tasks []domain.Task, prior map[string]domain.Task) []domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++

	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		if done, ok := prior[out[i].ID]; ok && done.Status == domain.TaskStatusCompleted {
			out[i] = done
			continue
		}
		out[i].MarkCompleted("result of " + out[i].Description)
	}
	f.tasks = append(f.tasks, out...)
	return out
}

// staticRegistry отдаёт фиксированный набор агентов.
type staticRegistry struct {
	agents []domain.AgentCapability
	err    error
}

func (s *staticRegistry) Build(ctx context.Context) (*registry.Registry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return registry.FromCapabilities(s.agents), nil
}

func twoAgentPlan() string {
	return `{"analysis": "split into research and summary",
		"execution_strategy": "sequential",
		"tasks": [
			{"id": "t1", "description": "research the topic", "agent_id": "a1", "rationale": "searcher"},
			{"id": "t2", "description": "summarize findings", "agent_id": "a2", "depends_on": ["t1"]}
		]}`
}

type routerFixture struct {
	router    *Router
	store     *fakeStore
	completer *fakeCompleter
	executor  *fakeExecutor
}

func newFixture(agents []domain.AgentCapability) *routerFixture {
	store := newFakeStore()
	completer := newFakeCompleter()
	completer.planResp = twoAgentPlan()
	exec := &fakeExecutor{}

	r := New(Config{
		Store:     store,
		Completer: completer,
		Executor:  exec,
		Registry:  &staticRegistry{agents: agents},
	})

	return &routerFixture{router: r, store: store, completer: completer, executor: exec}
}

func defaultAgents() []domain.AgentCapability {
	return []domain.AgentCapability{
		{AgentID: "a1", Name: "Researcher", Capabilities: []string{"web_search"}},
		{AgentID: "a2", Name: "Writer", Capabilities: []string{"summarization"}},
	}
}

func startSession(t *testing.T, fx *routerFixture, mode domain.Mode) *domain.Session {
	t.Helper()
	sess := domain.NewSession("what is the population of France", mode, 2)
	fx.store.put(sess)
	if err := fx.router.processSession(context.Background(), sess.ID); err != nil {
		t.Fatalf("processSession() error: %v", err)
	}
	return sess
}

func TestAutoModeFullFlow(t *testing.T) {
	fx := newFixture(defaultAgents())

	sess := startSession(t, fx, domain.ModeAuto)

	if sess.Status != domain.SessionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", sess.Status)
	}
	if sess.FinalResponse != "FINAL ANSWER" {
		t.Errorf("final response = %q", sess.FinalResponse)
	}
	if len(sess.Results) != 2 {
		t.Errorf("results = %d, want 2", len(sess.Results))
	}
	if sess.ReplanCount != 0 {
		t.Errorf("replan count = %d, want 0", sess.ReplanCount)
	}
	if fx.executor.runs != 1 {
		t.Errorf("executor runs = %d, want 1", fx.executor.runs)
	}
	last := sess.Messages[len(sess.Messages)-1]
	if last.Role != domain.RoleAssistant || last.Content != "FINAL ANSWER" {
		t.Errorf("last message = %+v, want final answer from assistant", last)
	}
}

func TestRejectionSkipsPlanning(t *testing.T) {
	fx := newFixture(defaultAgents())
	fx.completer.validateResp = `{"is_valid": false, "reasoning": "request is out of scope"}`

	sess := startSession(t, fx, domain.ModeAuto)

	if sess.Status != domain.SessionStatusRejected {
		t.Fatalf("status = %s, want REJECTED", sess.Status)
	}
	if sess.RejectionReason != "request is out of scope" {
		t.Errorf("rejection reason = %q", sess.RejectionReason)
	}
	if !strings.Contains(sess.FinalResponse, "Supported request categories") {
		t.Errorf("rejection response lacks scope listing: %q", sess.FinalResponse)
	}
	if fx.completer.callCount("plan") != 0 {
		t.Error("planning stage must not run for rejected session")
	}
	if fx.executor.runs != 0 {
		t.Error("executor must not run for rejected session")
	}
}

func TestValidationFailsClosed(t *testing.T) {
	fx := newFixture(defaultAgents())
	fx.completer.validateErr = errors.New("oracle down")

	sess := startSession(t, fx, domain.ModeAuto)

	if sess.Status != domain.SessionStatusRejected {
		t.Errorf("status = %s, want REJECTED on validation failure", sess.Status)
	}
}

func TestReplanBudgetBoundsLoop(t *testing.T) {
	fx := newFixture(defaultAgents())
	fx.completer.analyzeResp = `{"is_sufficient": false, "reasoning": "gaps remain", "replan_strategy": "try other agents"}`

	sess := startSession(t, fx, domain.ModeAuto)

	if sess.Status != domain.SessionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED despite insatiable analyzer", sess.Status)
	}
	if sess.ReplanCount != sess.MaxReplans {
		t.Errorf("replan count = %d, want %d", sess.ReplanCount, sess.MaxReplans)
	}
	// Первый план + по одному на каждый replan.
	if got := fx.completer.callCount("plan"); got != sess.MaxReplans+1 {
		t.Errorf("plan calls = %d, want %d", got, sess.MaxReplans+1)
	}
	// После исчерпания бюджета анализатор не вызывается.
	if got := fx.completer.callCount("analyze"); got != sess.MaxReplans {
		t.Errorf("analyze calls = %d, want %d", got, sess.MaxReplans)
	}
}

func TestAnalysisFailsOpen(t *testing.T) {
	fx := newFixture(defaultAgents())
	fx.completer.analyzeErr = errors.New("oracle down")

	sess := startSession(t, fx, domain.ModeAuto)

	if sess.Status != domain.SessionStatusCompleted {
		t.Errorf("status = %s, want COMPLETED when analysis unavailable", sess.Status)
	}
	if sess.ReplanCount != 0 {
		t.Errorf("replan count = %d, want 0", sess.ReplanCount)
	}
}

func TestEmptyRegistryCompletesHonestly(t *testing.T) {
	fx := newFixture(nil)

	sess := startSession(t, fx, domain.ModeAuto)

	if sess.Status != domain.SessionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", sess.Status)
	}
	if fx.executor.runs != 0 {
		t.Errorf("executor runs = %d, want 0 with empty plan", fx.executor.runs)
	}
	if !strings.Contains(sess.FinalResponse, "No agents were available") {
		t.Errorf("final response = %q", sess.FinalResponse)
	}
}

func TestDiscoveryOutageDegradesToEmptyRegistry(t *testing.T) {
	fx := newFixture(nil)
	fx.router.registry = &staticRegistry{err: errors.New("discovery down")}

	sess := startSession(t, fx, domain.ModeAuto)

	if sess.Status != domain.SessionStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", sess.Status)
	}
	if len(sess.Agents) != 0 {
		t.Errorf("agents = %d, want 0", len(sess.Agents))
	}
}

func TestAggregationFallbackConcatenates(t *testing.T) {
	fx := newFixture(defaultAgents())
	fx.completer.aggregateErr = errors.New("oracle down")

	sess := startSession(t, fx, domain.ModeAuto)

	if sess.Status != domain.SessionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", sess.Status)
	}
	if sess.FinalResponse == "" {
		t.Fatal("final response must never be empty")
	}
	if !strings.Contains(sess.FinalResponse, "result of research the topic") {
		t.Errorf("fallback response lacks task results: %q", sess.FinalResponse)
	}
}

func TestInteractiveSuspendsAndApproveResumes(t *testing.T) {
	fx := newFixture(defaultAgents())

	sess := startSession(t, fx, domain.ModeInteractive)

	if sess.Status != domain.SessionStatusAwaitingApproval {
		t.Fatalf("status = %s, want AWAITING_APPROVAL", sess.Status)
	}
	if fx.executor.runs != 0 {
		t.Fatal("executor must not run before approval")
	}
	if sess.Plan == nil || len(sess.Plan.Tasks) != 2 {
		t.Fatalf("plan not recorded before suspension: %+v", sess.Plan)
	}

	fx.store.setDecision(sess.ID, &domain.Decision{Type: domain.DecisionApproved})
	if err := fx.router.resumeSession(context.Background(), sess.ID); err != nil {
		t.Fatalf("resumeSession() error: %v", err)
	}

	if sess.Status != domain.SessionStatusCompleted {
		t.Errorf("status after approve = %s, want COMPLETED", sess.Status)
	}
	if fx.executor.runs != 1 {
		t.Errorf("executor runs = %d, want 1", fx.executor.runs)
	}
}

func TestRejectedDecisionReplansAndSuspendsAgain(t *testing.T) {
	fx := newFixture(defaultAgents())

	sess := startSession(t, fx, domain.ModeInteractive)

	fx.store.setDecision(sess.ID, &domain.Decision{
		Type:   domain.DecisionRejected,
		Reason: "wrong agents picked",
	})
	if err := fx.router.resumeSession(context.Background(), sess.ID); err != nil {
		t.Fatalf("resumeSession() error: %v", err)
	}

	if sess.Status != domain.SessionStatusAwaitingApproval {
		t.Fatalf("status = %s, want AWAITING_APPROVAL after replan", sess.Status)
	}
	if got := fx.completer.callCount("plan"); got != 2 {
		t.Errorf("plan calls = %d, want 2", got)
	}
	if !strings.Contains(sess.ReplanReason, "wrong agents picked") {
		t.Errorf("replan reason = %q, want reviewer feedback", sess.ReplanReason)
	}
	if fx.executor.runs != 0 {
		t.Error("executor must not run for rejected plan")
	}
}

func TestModifiedDecisionReplacesPlan(t *testing.T) {
	fx := newFixture(defaultAgents())

	sess := startSession(t, fx, domain.ModeInteractive)

	replacement := domain.NewPlan([]domain.Task{
		{ID: "m1", Description: "manual task", AgentID: "a1"},
		{ID: "m2", Description: "bogus task", AgentID: "ghost"},
	}, domain.StrategyParallel, "reviewer's plan")

	fx.store.setDecision(sess.ID, &domain.Decision{
		Type: domain.DecisionModified,
		Plan: replacement,
	})
	if err := fx.router.resumeSession(context.Background(), sess.ID); err != nil {
		t.Fatalf("resumeSession() error: %v", err)
	}

	if sess.Status != domain.SessionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", sess.Status)
	}
	if len(sess.Results) != 1 || sess.Results[0].Description != "manual task" {
		t.Errorf("results = %+v, want only the task with a known agent", sess.Results)
	}
}

func TestReviewModeAutoApproves(t *testing.T) {
	fx := newFixture(defaultAgents())

	sess := startSession(t, fx, domain.ModeReview)

	if sess.Status != domain.SessionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", sess.Status)
	}
	var sawSummary bool
	for _, m := range sess.Messages {
		if strings.Contains(m.Content, "auto-approved") {
			sawSummary = true
		}
	}
	if !sawSummary {
		t.Error("review mode must record the plan summary in the transcript")
	}
}

func TestConcurrentProcessingGuard(t *testing.T) {
	fx := newFixture(defaultAgents())
	sess := domain.NewSession("request", domain.ModeAuto, 2)
	fx.store.put(sess)

	if !fx.router.tryAcquire(sess.ID) {
		t.Fatal("first acquire must succeed")
	}
	err := fx.router.processSession(context.Background(), sess.ID)
	if !errors.Is(err, ErrSessionActive) {
		t.Errorf("processSession() error = %v, want ErrSessionActive", err)
	}
	fx.router.release(sess.ID)
}

func TestParsePlanFencedJSON(t *testing.T) {
	fx := newFixture(defaultAgents())
	sess := domain.NewSession("req", domain.ModeAuto, 2)
	sess.Agents = defaultAgents()

	raw := "Here is the plan:\n```json\n" + twoAgentPlan() + "\n```"
	plan := fx.router.parsePlan(sess, raw)

	if len(plan.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(plan.Tasks))
	}
	for _, task := range plan.Tasks {
		if !strings.HasPrefix(task.ID, "task_") || len(task.ID) != len("task_")+8 {
			t.Errorf("task ID %q, want task_<8 hex>", task.ID)
		}
	}
	// Зависимость t2 → t1 перенесена на новые ID.
	second := plan.Tasks[1]
	if len(second.DependsOn) != 1 || second.DependsOn[0] != plan.Tasks[0].ID {
		t.Errorf("dependency not remapped: %+v", second.DependsOn)
	}
}

func TestParsePlanDropsUnknownAgent(t *testing.T) {
	fx := newFixture(defaultAgents())
	sess := domain.NewSession("req", domain.ModeAuto, 2)
	sess.Agents = defaultAgents()

	raw := `{"analysis": "a", "execution_strategy": "parallel", "tasks": [
		{"id": "t1", "description": "ok", "agent_id": "a1"},
		{"id": "t2", "description": "bad", "agent_id": "ghost"},
		{"id": "t3", "description": "depends on dropped", "agent_id": "a2", "depends_on": ["t2"]}
	]}`
	plan := fx.router.parsePlan(sess, raw)

	if len(plan.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2 (unknown agent dropped)", len(plan.Tasks))
	}
	// Зависимость на отброшенную задачу выброшена.
	if len(plan.Tasks[1].DependsOn) != 0 {
		t.Errorf("dangling dependency kept: %+v", plan.Tasks[1].DependsOn)
	}
}

func TestParsePlanGarbageYieldsEmptyPlan(t *testing.T) {
	fx := newFixture(defaultAgents())
	sess := domain.NewSession("req", domain.ModeAuto, 2)
	sess.Agents = defaultAgents()

	for _, raw := range []string{"no json at all", `{"tasks": "not a list"}`} {
		plan := fx.router.parsePlan(sess, raw)
		if !plan.IsEmpty() {
			t.Errorf("parsePlan(%q) produced %d tasks, want empty plan", raw, len(plan.Tasks))
		}
	}
}

func TestReplanPromptCarriesPriorResults(t *testing.T) {
	sess := domain.NewSession("req", domain.ModeAuto, 2)
	sess.Agents = defaultAgents()
	sess.Results = []domain.Task{
		{ID: "task_1", Description: "first pass", Status: domain.TaskStatusCompleted, Result: "prior knowledge"},
	}
	sess.RecordReplan("missing details")

	prompt := planPrompt(sess)
	for _, part := range []string{"planning attempt 2", "missing details", "prior knowledge"} {
		if !strings.Contains(prompt, part) {
			t.Errorf("replan prompt missing %q:\n%s", part, prompt)
		}
	}
}

func TestAggregateAppendsFailureFooter(t *testing.T) {
	fx := newFixture(defaultAgents())
	sess := domain.NewSession("req", domain.ModeAuto, 2)
	sess.Results = []domain.Task{
		{ID: "t1", Description: "ok", Status: domain.TaskStatusCompleted, Result: "fine"},
		{ID: "t2", Description: "broken", Status: domain.TaskStatusFailed, Error: "timeout"},
	}

	got := fx.router.aggregate(context.Background(), sess)
	if !strings.Contains(got, "1 task(s) failed") {
		t.Errorf("aggregate response lacks failure note: %q", got)
	}
}

func TestTaskIDFormat(t *testing.T) {
	id := newTaskID()
	if !strings.HasPrefix(id, "task_") {
		t.Fatalf("id = %q", id)
	}
	suffix := strings.TrimPrefix(id, "task_")
	if len(suffix) != 8 {
		t.Errorf("suffix %q, want 8 chars", suffix)
	}
	if _, err := fmt.Sscanf(suffix, "%x", new(uint64)); err != nil {
		t.Errorf("suffix %q is not hex: %v", suffix, err)
	}
}
