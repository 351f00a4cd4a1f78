package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Dirigent/internal/domain"
)

// SessionRepo — репозиторий sessions.
//
// Скалярные колонки (status, mode, replan_count) дублируют снимок для
// фильтрации; полное состояние session лежит в JSONB-колонке state —
// это контрольная точка для resume после AWAITING_APPROVAL и рестарта
// процесса. Внешнее решение по плану хранится в отдельной колонке
// decision: событие MQ лишь будит роутер, данные читаются отсюда.
type SessionRepo struct {
	pool *pgxpool.Pool
}

// NewSessionRepo создаёт репозиторий sessions.
func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// SessionFilter — фильтр списка sessions.
type SessionFilter struct {
	Status domain.SessionStatus
	Limit  int
	Offset int
}

// Create сохраняет новую session.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	state, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO sessions (id, status, mode, request, replan_count, max_replans, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		s.ID, string(s.Status), string(s.Mode), s.Request, s.ReplanCount, s.MaxReplans, state, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID возвращает session по ID.
func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT status, state FROM sessions WHERE id = $1`, id)

	var status string
	var state []byte
	if err := row.Scan(&status, &state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	var s domain.Session
	if err := json.Unmarshal(state, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	// Колонка авторитетна: снимок мог отстать на один переход.
	s.Status = domain.SessionStatus(status)

	return &s, nil
}

// Update перезаписывает снимок session и скалярные колонки.
// Колонка decision очищается: любой переход статуса гасит
// отложенное решение.
func (r *SessionRepo) Update(ctx context.Context, s *domain.Session) error {
	state, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET status = $2, replan_count = $3, state = $4, decision = NULL,
		    finished_at = $5, updated_at = $6
		WHERE id = $1`,
		s.ID, string(s.Status), s.ReplanCount, state, s.FinishedAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List возвращает sessions по фильтру, новые первыми.
func (r *SessionRepo) List(ctx context.Context, filter SessionFilter) ([]domain.Session, error) {
	query := `SELECT status, state FROM sessions`
	args := []any{}

	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}

	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(` LIMIT %d OFFSET %d`, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// ListPending возвращает sessions в статусе PENDING, старые первыми —
// polling-fallback подбирает их в порядке поступления.
func (r *SessionRepo) ListPending(ctx context.Context, limit int) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, state FROM sessions
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`,
		string(domain.SessionStatusPending), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// ListAwaitingDecision возвращает sessions в AWAITING_APPROVAL,
// по которым уже записано внешнее решение.
func (r *SessionRepo) ListAwaitingDecision(ctx context.Context, limit int) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, state FROM sessions
		WHERE status = $1 AND decision IS NOT NULL
		ORDER BY updated_at ASC
		LIMIT $2`,
		string(domain.SessionStatusAwaitingApproval), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list awaiting decision: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// SetDecision записывает внешнее решение по плану session.
// Допустимо только в статусе AWAITING_APPROVAL.
func (r *SessionRepo) SetDecision(ctx context.Context, id uuid.UUID, d *domain.Decision) error {
	decision, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions SET decision = $2, updated_at = $3
		WHERE id = $1 AND status = $4`,
		id, decision, time.Now(), string(domain.SessionStatusAwaitingApproval),
	)
	if err != nil {
		return fmt.Errorf("set decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// GetDecision возвращает записанное решение или ErrNotFound.
func (r *SessionRepo) GetDecision(ctx context.Context, id uuid.UUID) (*domain.Decision, error) {
	row := r.pool.QueryRow(ctx, `SELECT decision FROM sessions WHERE id = $1`, id)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan decision: %w", err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}

	var d domain.Decision
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("unmarshal decision: %w", err)
	}
	return &d, nil
}

// scanSessions разворачивает строки результата в sessions.
func scanSessions(rows pgx.Rows) ([]domain.Session, error) {
	var out []domain.Session
	for rows.Next() {
		var status string
		var state []byte
		if err := rows.Scan(&status, &state); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		var s domain.Session
		if err := json.Unmarshal(state, &s); err != nil {
			return nil, fmt.Errorf("unmarshal session state: %w", err)
		}
		s.Status = domain.SessionStatus(status)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}
