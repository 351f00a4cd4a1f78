package engine

import (
	"fmt"

	"github.com/shaiso/Dirigent/internal/domain"
)

// Validate проверяет структурную корректность набора задач:
// непустые уникальные ID, разрешимость зависимостей, отсутствие
// самозависимостей. Циклы ловит топологическая сортировка в Build.
func Validate(tasks []domain.Task) error {
	ids := make(map[string]bool, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if t.ID == "" {
			return NewValidationError("", fmt.Sprintf("task #%d has empty id", i), ErrEmptyTaskID)
		}
		if ids[t.ID] {
			return NewValidationError(t.ID, "duplicate task id", ErrDuplicateTaskID)
		}
		ids[t.ID] = true
	}

	for i := range tasks {
		t := &tasks[i]
		for _, depID := range t.DependsOn {
			if depID == t.ID {
				return NewValidationError(t.ID, "task depends on itself", ErrSelfDependency)
			}
			if !ids[depID] {
				return NewValidationError(t.ID,
					fmt.Sprintf("depends on unknown task %q", depID), ErrMissingDependency)
			}
		}
	}

	return nil
}
