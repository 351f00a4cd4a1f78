package api

import (
	"log/slog"

	"github.com/shaiso/Dirigent/internal/mq"
	"github.com/shaiso/Dirigent/internal/registry"
	"github.com/shaiso/Dirigent/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	sessionRepo *repo.SessionRepo
	registry    *registry.Builder
	publisher   *mq.Publisher
	maxReplans  int
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	SessionRepo *repo.SessionRepo
	Registry    *registry.Builder
	Publisher   *mq.Publisher

	// MaxReplans — дефолтный бюджет перепланирований новых sessions.
	MaxReplans int

	Logger *slog.Logger
}

// DefaultMaxReplans — дефолтный бюджет перепланирований.
const DefaultMaxReplans = 2

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	maxReplans := cfg.MaxReplans
	if maxReplans <= 0 {
		maxReplans = DefaultMaxReplans
	}
	return &Handler{
		sessionRepo: cfg.SessionRepo,
		registry:    cfg.Registry,
		publisher:   cfg.Publisher,
		maxReplans:  maxReplans,
		logger:      cfg.Logger,
	}
}
