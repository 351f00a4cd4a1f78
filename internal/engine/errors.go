package engine

import (
	"errors"
	"fmt"
)

// Ошибки валидации графа задач.
var (
	// ErrEmptyTaskID — task без ID.
	ErrEmptyTaskID = errors.New("task id is empty")

	// ErrDuplicateTaskID — дублирующийся ID task в плане.
	ErrDuplicateTaskID = errors.New("duplicate task id")

	// ErrMissingDependency — зависимость ссылается на несуществующую task.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrSelfDependency — task зависит сама от себя.
	ErrSelfDependency = errors.New("task depends on itself")

	// ErrCyclicDependency — в графе зависимостей есть цикл.
	ErrCyclicDependency = errors.New("cyclic dependency detected")
)

// ValidationError — ошибка валидации с контекстом конкретной task.
type ValidationError struct {
	TaskID  string
	Message string
	Err     error
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("task %q: %s", e.TaskID, e.Message)
	}
	return e.Message
}

// Unwrap возвращает обёрнутую ошибку для errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт ValidationError.
func NewValidationError(taskID, message string, err error) *ValidationError {
	return &ValidationError{
		TaskID:  taskID,
		Message: message,
		Err:     err,
	}
}
