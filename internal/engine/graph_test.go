package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Dirigent/internal/domain"
)

func task(id string, deps ...string) domain.Task {
	return domain.Task{
		ID:          id,
		Description: "task " + id,
		AgentID:     "agent-1",
		Status:      domain.TaskStatusPending,
		DependsOn:   deps,
	}
}

func TestBuildEmpty(t *testing.T) {
	g, err := Build(nil)
	if err != nil {
		t.Fatalf("Build(nil) error: %v", err)
	}
	if g.Size() != 0 {
		t.Errorf("Size() = %d, want 0", g.Size())
	}
	if !g.IsComplete(nil, nil) {
		t.Error("empty graph must be complete")
	}
}

func TestBuildChain(t *testing.T) {
	tasks := []domain.Task{
		task("a"),
		task("b", "a"),
		task("c", "b"),
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if len(g.Roots) != 1 || g.Roots[0].ID != "a" {
		t.Errorf("Roots = %v, want [a]", rootIDs(g))
	}
	if len(g.Order) != 3 {
		t.Fatalf("len(Order) = %d, want 3", len(g.Order))
	}
	pos := orderPositions(g)
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] {
		t.Errorf("topological order violated: %v", pos)
	}
}

func TestBuildDiamond(t *testing.T) {
	tasks := []domain.Task{
		task("a"),
		task("b", "a"),
		task("c", "a"),
		task("d", "b", "c"),
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	d := g.Node("d")
	if d.InDegree != 2 {
		t.Errorf("d.InDegree = %d, want 2", d.InDegree)
	}
	if len(g.Node("a").Dependents) != 2 {
		t.Errorf("a.Dependents = %d, want 2", len(g.Node("a").Dependents))
	}
}

func TestBuildDuplicateDependencyDeduplicated(t *testing.T) {
	tasks := []domain.Task{
		task("a"),
		task("b", "a", "a"),
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if g.Node("b").InDegree != 1 {
		t.Errorf("b.InDegree = %d, want 1", g.Node("b").InDegree)
	}
}

func TestBuildCycle(t *testing.T) {
	tasks := []domain.Task{
		task("a", "c"),
		task("b", "a"),
		task("c", "b"),
	}

	_, err := Build(tasks)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("Build() error = %v, want ErrCyclicDependency", err)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name  string
		tasks []domain.Task
		want  error
	}{
		{"empty id", []domain.Task{task("")}, ErrEmptyTaskID},
		{"duplicate id", []domain.Task{task("a"), task("a")}, ErrDuplicateTaskID},
		{"self dependency", []domain.Task{task("a", "a")}, ErrSelfDependency},
		{"missing dependency", []domain.Task{task("a", "ghost")}, ErrMissingDependency},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.tasks)
			if !errors.Is(err, tc.want) {
				t.Errorf("Validate() error = %v, want %v", err, tc.want)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Validate() error is not *ValidationError: %v", err)
			}
		})
	}
}

func TestReadyNodes(t *testing.T) {
	tasks := []domain.Task{
		task("a"),
		task("b"),
		task("c", "a", "b"),
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	ready := g.ReadyNodes(nil, nil, nil)
	if len(ready) != 2 {
		t.Fatalf("initial ready = %v, want [a b]", nodeIDs(ready))
	}

	completed := map[string]bool{"a": true}
	running := map[string]bool{"b": true}
	ready = g.ReadyNodes(completed, nil, running)
	if len(ready) != 0 {
		t.Errorf("ready while b running = %v, want none", nodeIDs(ready))
	}

	completed["b"] = true
	ready = g.ReadyNodes(completed, nil, nil)
	if len(ready) != 1 || ready[0].ID != "c" {
		t.Errorf("ready = %v, want [c]", nodeIDs(ready))
	}
}

func TestBlockedByFailureTransitive(t *testing.T) {
	tasks := []domain.Task{
		task("a"),
		task("b", "a"),
		task("c", "b"),
		task("d"),
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	failed := map[string]bool{"a": true}
	blocked := g.BlockedByFailure(nil, failed)
	got := nodeIDs(blocked)
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("BlockedByFailure = %v, want [b c]", got)
	}
}

func TestIsComplete(t *testing.T) {
	tasks := []domain.Task{task("a"), task("b", "a")}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	completed := map[string]bool{"a": true}
	failed := map[string]bool{"b": true}
	if g.IsComplete(completed, nil) {
		t.Error("IsComplete = true with b unresolved")
	}
	if !g.IsComplete(completed, failed) {
		t.Error("IsComplete = false with all tasks terminal")
	}
}

func rootIDs(g *Graph) []string {
	return nodeIDs(g.Roots)
}

func nodeIDs(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func orderPositions(g *Graph) map[string]int {
	pos := make(map[string]int, len(g.Order))
	for i, n := range g.Order {
		pos[n.ID] = i
	}
	return pos
}
