package router

import "errors"

// Ошибки контроллера session.
var (
	// ErrSessionNotPending — session уже не в статусе PENDING.
	ErrSessionNotPending = errors.New("session is not pending")

	// ErrSessionNotAwaiting — session не ожидает решения по плану.
	ErrSessionNotAwaiting = errors.New("session is not awaiting approval")

	// ErrSessionActive — session уже обрабатывается этим процессом.
	ErrSessionActive = errors.New("session is already being processed")

	// ErrNoDecision — решение по плану ещё не записано.
	ErrNoDecision = errors.New("no decision recorded")
)
