package engine

import (
	"fmt"

	"github.com/shaiso/Dirigent/internal/domain"
)

// Node — узел графа зависимостей.
type Node struct {
	// Task — ссылка на task плана (слайс вызывающего).
	Task *domain.Task

	// ID task для быстрого доступа.
	ID string

	// InDegree — число входящих рёбер (незавершённых зависимостей
	// на момент построения).
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел.
	DependsOn []*Node

	// Dependents — узлы, зависящие от этого узла.
	Dependents []*Node
}

// Graph — граф зависимостей задач плана.
type Graph struct {
	// Nodes — все узлы по ID task.
	Nodes map[string]*Node

	// Roots — узлы без зависимостей.
	Roots []*Node

	// Order — топологический порядок узлов.
	Order []*Node
}

// Build строит граф из задач плана и валидирует его структуру.
// Пустой набор задач даёт пустой граф — это не ошибка.
func Build(tasks []domain.Task) (*Graph, error) {
	if err := Validate(tasks); err != nil {
		return nil, err
	}

	g := &Graph{
		Nodes: make(map[string]*Node, len(tasks)),
	}

	// Первый проход: создаём узлы.
	for i := range tasks {
		t := &tasks[i]
		g.Nodes[t.ID] = &Node{
			Task: t,
			ID:   t.ID,
		}
	}

	// Второй проход: связываем рёбра.
	for _, node := range g.Nodes {
		for _, depID := range node.Task.DependsOn {
			dep := g.Nodes[depID]
			addEdge(dep, node)
		}
	}

	g.Roots = findRoots(g.Nodes)

	order, err := topologicalSort(g)
	if err != nil {
		return nil, err
	}
	g.Order = order

	return g, nil
}

// addEdge добавляет ребро from → to с дедупликацией.
func addEdge(from, to *Node) {
	for _, existing := range to.DependsOn {
		if existing.ID == from.ID {
			return
		}
	}
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
	from.Dependents = append(from.Dependents, to)
}

// findRoots возвращает узлы без входящих рёбер.
func findRoots(nodes map[string]*Node) []*Node {
	var roots []*Node
	for _, node := range nodes {
		if node.InDegree == 0 {
			roots = append(roots, node)
		}
	}
	return roots
}

// topologicalSort сортирует узлы алгоритмом Кана.
// Если отсортировать все узлы не удалось — в графе цикл.
func topologicalSort(g *Graph) ([]*Node, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	for id, node := range g.Nodes {
		inDegree[id] = node.InDegree
	}

	var queue []*Node
	for _, node := range g.Nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node)
		}
	}

	var order []*Node
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dep := range node.Dependents {
			inDegree[dep.ID]--
			if inDegree[dep.ID] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		var cycled []string
		for id, deg := range inDegree {
			if deg > 0 {
				cycled = append(cycled, id)
			}
		}
		return nil, fmt.Errorf("%w: tasks %v", ErrCyclicDependency, cycled)
	}

	return order, nil
}

// Size возвращает число узлов.
func (g *Graph) Size() int {
	return len(g.Nodes)
}

// Node возвращает узел по ID или nil.
func (g *Graph) Node(id string) *Node {
	return g.Nodes[id]
}

// ReadyNodes возвращает узлы, готовые к запуску: не завершённые, не
// упавшие, не выполняющиеся, все зависимости которых завершены успешно.
func (g *Graph) ReadyNodes(completed, failed, running map[string]bool) []*Node {
	var ready []*Node
	// Обходим в топологическом порядке для детерминизма.
	for _, node := range g.Order {
		if completed[node.ID] || failed[node.ID] || running[node.ID] {
			continue
		}
		ok := true
		for _, dep := range node.DependsOn {
			if !completed[dep.ID] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, node)
		}
	}
	return ready
}

// BlockedByFailure возвращает (в топологическом порядке) незавершённые
// узлы, хотя бы одна зависимость которых входит в failed — напрямую или
// транзитивно через другие заблокированные узлы.
func (g *Graph) BlockedByFailure(completed, failed map[string]bool) []*Node {
	blocked := make(map[string]bool, len(failed))
	for id := range failed {
		blocked[id] = true
	}

	var out []*Node
	for _, node := range g.Order {
		if completed[node.ID] || failed[node.ID] {
			continue
		}
		for _, dep := range node.DependsOn {
			if blocked[dep.ID] {
				blocked[node.ID] = true
				out = append(out, node)
				break
			}
		}
	}
	return out
}

// IsComplete возвращает true, если все узлы учтены как завершённые
// или упавшие.
func (g *Graph) IsComplete(completed, failed map[string]bool) bool {
	for id := range g.Nodes {
		if !completed[id] && !failed[id] {
			return false
		}
	}
	return true
}
