package domain

// SessionStatus — статус обработки session.
//
// Жизненный цикл (машина состояний контроллера):
//
//	PENDING → VALIDATING → PLANNING → EXECUTING → ANALYZING → AGGREGATING → COMPLETED
//	               ↓           ↓↑          ↑
//	           REJECTED  AWAITING_APPROVAL┘  (replan: ANALYZING → PLANNING, ограничен max_replans)
type SessionStatus string

const (
	// SessionStatusPending — session создана, роутер ещё не начал обработку.
	SessionStatusPending SessionStatus = "PENDING"

	// SessionStatusValidating — запрос проверяется на входимость в зону ответственности.
	SessionStatusValidating SessionStatus = "VALIDATING"

	// SessionStatusPlanning — строится план выполнения.
	SessionStatusPlanning SessionStatus = "PLANNING"

	// SessionStatusAwaitingApproval — план ожидает внешнего решения.
	// Единственная точка приостановки неограниченной длительности:
	// снимок session лежит в БД и восстанавливается при resume.
	SessionStatusAwaitingApproval SessionStatus = "AWAITING_APPROVAL"

	// SessionStatusExecuting — задачи плана выполняются агентами.
	SessionStatusExecuting SessionStatus = "EXECUTING"

	// SessionStatusAnalyzing — результаты оцениваются на достаточность.
	SessionStatusAnalyzing SessionStatus = "ANALYZING"

	// SessionStatusAggregating — синтезируется финальный ответ.
	SessionStatusAggregating SessionStatus = "AGGREGATING"

	// SessionStatusCompleted — финальный ответ готов.
	SessionStatusCompleted SessionStatus = "COMPLETED"

	// SessionStatusRejected — запрос отклонён на этапе валидации.
	SessionStatusRejected SessionStatus = "REJECTED"
)

// IsTerminal возвращает true, если статус финальный.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusRejected:
		return true
	default:
		return false
	}
}

// TaskStatus — статус выполнения task.
//
// Жизненный цикл:
//
//	PENDING → IN_PROGRESS → COMPLETED | FAILED
//	PENDING → FAILED (упавшая или неразрешимая зависимость, без dispatch)
type TaskStatus string

const (
	// TaskStatusPending — task ожидает выполнения.
	TaskStatusPending TaskStatus = "PENDING"

	// TaskStatusInProgress — task отправлена агенту.
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"

	// TaskStatusCompleted — агент успешно завершил task.
	TaskStatusCompleted TaskStatus = "COMPLETED"

	// TaskStatusFailed — task завершилась с ошибкой: таймаут, транспорт,
	// ошибка агента или непроходимая зависимость.
	TaskStatusFailed TaskStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Mode — режим обработки session.
type Mode string

const (
	// ModeAuto — план выполняется без одобрения.
	ModeAuto Mode = "auto"

	// ModeInteractive — план требует явного внешнего решения.
	ModeInteractive Mode = "interactive"

	// ModeReview — план фиксируется в переписке и одобряется автоматически.
	ModeReview Mode = "review"
)

// ParseMode парсит строку в Mode. Неизвестные значения трактуются как auto.
func ParseMode(s string) Mode {
	switch s {
	case string(ModeInteractive):
		return ModeInteractive
	case string(ModeReview):
		return ModeReview
	default:
		return ModeAuto
	}
}

// DecisionType — вердикт внешнего решения по плану.
type DecisionType string

const (
	// DecisionApproved — план одобрен, выполняем как есть.
	DecisionApproved DecisionType = "APPROVED"

	// DecisionModified — план заменён приложенным новым планом; без
	// приложенного плана трактуется как возврат на перепланирование
	// с обратной связью.
	DecisionModified DecisionType = "MODIFIED"

	// DecisionRejected — план отклонён, возврат на перепланирование.
	DecisionRejected DecisionType = "REJECTED"
)

// ParseDecisionType парсит строку в DecisionType.
// Неизвестные значения трактуются как REJECTED.
func ParseDecisionType(s string) DecisionType {
	switch s {
	case "APPROVED", "approved":
		return DecisionApproved
	case "MODIFIED", "modified":
		return DecisionModified
	default:
		return DecisionRejected
	}
}

// Strategy — рекомендательная стратегия выполнения плана.
// Фактический параллелизм всегда выводится из графа зависимостей,
// стратегия лишь описывает характер плана.
type Strategy string

const (
	// StrategyParallel — задачи преимущественно независимы.
	StrategyParallel Strategy = "parallel"

	// StrategySequential — задачи выстроены цепочкой зависимостей.
	StrategySequential Strategy = "sequential"
)
