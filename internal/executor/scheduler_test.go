package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shaiso/Dirigent/internal/agent"
	"github.com/shaiso/Dirigent/internal/domain"
)

// fakeInvoker выполняет задачи в памяти, записывая порядок вызовов.
type fakeInvoker struct {
	mu          sync.Mutex
	calls       []agent.InvokeRequest
	failIDs     map[string]bool
	results     map[string]string
	inflight    int
	maxInflight int
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{
		failIDs: make(map[string]bool),
		results: make(map[string]string),
	}
}

func (f *fakeInvoker) Invoke(ctx context.Context, req agent.InvokeRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	fail := f.failIDs[req.TaskID]
	result, ok := f.results[req.TaskID]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if fail {
		return "", errors.New("agent error")
	}
	if !ok {
		result = "result of " + req.TaskID
	}
	return result, nil
}

func (f *fakeInvoker) invokedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.TaskID
	}
	return out
}

func task(id string, deps ...string) domain.Task {
	return domain.Task{
		ID:          id,
		Description: "do " + id,
		AgentID:     "agent-" + id,
		Status:      domain.TaskStatusPending,
		DependsOn:   deps,
	}
}

func indexByID(tasks []domain.Task) map[string]domain.Task {
	out := make(map[string]domain.Task, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t
	}
	return out
}

func TestExecuteIndependentTasksSingleRound(t *testing.T) {
	inv := newFakeInvoker()
	s := New(Config{Invoker: inv})

	got := s.Execute(context.Background(), "req", []domain.Task{task("a"), task("b")}, nil)

	byID := indexByID(got)
	for _, id := range []string{"a", "b"} {
		if byID[id].Status != domain.TaskStatusCompleted {
			t.Errorf("task %s status = %s, want COMPLETED", id, byID[id].Status)
		}
	}
	if len(inv.invokedIDs()) != 2 {
		t.Errorf("invocations = %v, want both tasks", inv.invokedIDs())
	}
}

func TestExecuteChainOrdering(t *testing.T) {
	inv := newFakeInvoker()
	s := New(Config{Invoker: inv})

	tasks := []domain.Task{task("c", "b"), task("a"), task("b", "a")}
	got := s.Execute(context.Background(), "req", tasks, nil)

	ids := inv.invokedIDs()
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("invocation order = %v, want [a b c]", ids)
	}
	for _, g := range got {
		if g.Status != domain.TaskStatusCompleted {
			t.Errorf("task %s status = %s", g.ID, g.Status)
		}
	}
}

func TestExecuteDependencyContextPassed(t *testing.T) {
	inv := newFakeInvoker()
	inv.results["a"] = "42 is the answer"
	s := New(Config{Invoker: inv})

	s.Execute(context.Background(), "req", []domain.Task{task("a"), task("b", "a")}, nil)

	var bCall *agent.InvokeRequest
	for i := range inv.calls {
		if inv.calls[i].TaskID == "b" {
			bCall = &inv.calls[i]
		}
	}
	if bCall == nil {
		t.Fatal("task b was not invoked")
	}
	if !strings.Contains(bCall.Context, "do a: 42 is the answer") {
		t.Errorf("dependency context = %q", bCall.Context)
	}
}

func TestExecuteFailedDependencySkipsDependents(t *testing.T) {
	inv := newFakeInvoker()
	inv.failIDs["a"] = true
	s := New(Config{Invoker: inv})

	tasks := []domain.Task{task("a"), task("b", "a"), task("c", "b"), task("d")}
	got := s.Execute(context.Background(), "req", tasks, nil)

	byID := indexByID(got)
	if byID["a"].Status != domain.TaskStatusFailed {
		t.Errorf("a status = %s, want FAILED", byID["a"].Status)
	}
	for _, id := range []string{"b", "c"} {
		if byID[id].Status != domain.TaskStatusFailed {
			t.Errorf("%s status = %s, want FAILED", id, byID[id].Status)
		}
		if !strings.Contains(byID[id].Error, "dependency failed") {
			t.Errorf("%s error = %q, want dependency failed", id, byID[id].Error)
		}
	}
	if byID["d"].Status != domain.TaskStatusCompleted {
		t.Errorf("d status = %s, want COMPLETED (independent of failure)", byID["d"].Status)
	}

	// b и c не должны были уходить агентам.
	for _, id := range inv.invokedIDs() {
		if id == "b" || id == "c" {
			t.Errorf("task %s was dispatched despite failed dependency", id)
		}
	}
}

func TestExecuteSiblingsNotCancelledOnFailure(t *testing.T) {
	inv := newFakeInvoker()
	inv.failIDs["a"] = true
	s := New(Config{Invoker: inv})

	got := s.Execute(context.Background(), "req", []domain.Task{task("a"), task("b"), task("c")}, nil)

	byID := indexByID(got)
	if byID["b"].Status != domain.TaskStatusCompleted || byID["c"].Status != domain.TaskStatusCompleted {
		t.Errorf("siblings of failed task must complete: b=%s c=%s", byID["b"].Status, byID["c"].Status)
	}
}

func TestExecuteCyclicPlanAllTerminal(t *testing.T) {
	inv := newFakeInvoker()
	s := New(Config{Invoker: inv})

	tasks := []domain.Task{task("a", "b"), task("b", "a")}
	got := s.Execute(context.Background(), "req", tasks, nil)

	for _, g := range got {
		if g.Status != domain.TaskStatusFailed {
			t.Errorf("task %s status = %s, want FAILED", g.ID, g.Status)
		}
	}
	if len(inv.invokedIDs()) != 0 {
		t.Errorf("cyclic plan must not dispatch, got %v", inv.invokedIDs())
	}
}

func TestExecuteAllTasksTerminal(t *testing.T) {
	inv := newFakeInvoker()
	inv.failIDs["b"] = true
	s := New(Config{Invoker: inv})

	tasks := []domain.Task{
		task("a"), task("b"), task("c", "a", "b"), task("d", "c"), task("e", "a"),
	}
	got := s.Execute(context.Background(), "req", tasks, nil)

	for _, g := range got {
		if !g.Status.IsTerminal() {
			t.Errorf("task %s left in status %s", g.ID, g.Status)
		}
	}
}

func TestExecutePriorResultsNotReinvoked(t *testing.T) {
	inv := newFakeInvoker()
	s := New(Config{Invoker: inv})

	done := task("a")
	done.Status = domain.TaskStatusCompleted
	done.Result = "cached"
	prior := map[string]domain.Task{"a": done}

	got := s.Execute(context.Background(), "req", []domain.Task{task("a"), task("b", "a")}, prior)

	byID := indexByID(got)
	if byID["a"].Result != "cached" {
		t.Errorf("a result = %q, want prior result carried over", byID["a"].Result)
	}
	ids := inv.invokedIDs()
	if len(ids) != 1 || ids[0] != "b" {
		t.Errorf("invocations = %v, want only [b]", ids)
	}
}

func TestExecuteParallelFanOut(t *testing.T) {
	inv := newFakeInvoker()
	s := New(Config{Invoker: inv})

	// Без зависимостей все задачи уходят одним раундом.
	tasks := []domain.Task{task("a"), task("b"), task("c"), task("d")}
	s.Execute(context.Background(), "req", tasks, nil)

	if len(inv.invokedIDs()) != 4 {
		t.Fatalf("invocations = %d, want 4", len(inv.invokedIDs()))
	}
}

func TestExecuteDoesNotMutateInput(t *testing.T) {
	inv := newFakeInvoker()
	s := New(Config{Invoker: inv})

	tasks := []domain.Task{task("a")}
	s.Execute(context.Background(), "req", tasks, nil)

	if tasks[0].Status != domain.TaskStatusPending {
		t.Errorf("input slice mutated: status = %s", tasks[0].Status)
	}
}
