package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shaiso/Dirigent/internal/domain"
)

// Ошибки реестра.
var (
	// ErrCardNotFound — у агента нет карточки возможностей.
	ErrCardNotFound = errors.New("agent card not found")

	// ErrDiscoveryUnavailable — discovery-сервис недоступен целиком.
	ErrDiscoveryUnavailable = errors.New("discovery unavailable")
)

// AgentRef — ссылка на агента из discovery-сервиса.
type AgentRef struct {
	ID    string
	Graph string
}

// Discovery — источник списка агентов и их карточек.
type Discovery interface {
	// ListAgents возвращает всех зарегистрированных агентов.
	ListAgents(ctx context.Context) ([]AgentRef, error)

	// FetchCard возвращает карточку возможностей агента.
	// Отсутствие карточки — ErrCardNotFound.
	FetchCard(ctx context.Context, ref AgentRef) (domain.AgentCapability, error)
}

// Registry — неизменяемый снимок карточек агентов.
type Registry struct {
	agents map[string]domain.AgentCapability
}

// FromCapabilities создаёт реестр из готового набора карточек
// (восстановление снимка session).
func FromCapabilities(caps []domain.AgentCapability) *Registry {
	agents := make(map[string]domain.AgentCapability, len(caps))
	for _, c := range caps {
		agents[c.AgentID] = c
	}
	return &Registry{agents: agents}
}

// Get возвращает карточку агента по ID.
func (r *Registry) Get(agentID string) (domain.AgentCapability, bool) {
	c, ok := r.agents[agentID]
	return c, ok
}

// Len возвращает число агентов в реестре.
func (r *Registry) Len() int {
	return len(r.agents)
}

// IsEmpty возвращает true, если в реестре нет агентов.
func (r *Registry) IsEmpty() bool {
	return len(r.agents) == 0
}

// List возвращает карточки, отсортированные по AgentID —
// детерминированный порядок для промптов и вывода.
func (r *Registry) List() []domain.AgentCapability {
	out := make([]domain.AgentCapability, 0, len(r.agents))
	for _, c := range r.agents {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// BuilderConfig — конфигурация сборщика реестра.
type BuilderConfig struct {
	// Discovery — источник агентов.
	Discovery Discovery

	// SelfGraph — graph самого роутера; исключается из реестра.
	SelfGraph string

	// Fallback — карточки-дополнения для агентов, чьи карточки не
	// содержат деталей возможностей. Ключ — graph агента.
	Fallback map[string]domain.AgentCapability

	// Logger — логгер. nil — slog.Default().
	Logger *slog.Logger
}

// Builder собирает реестр через discovery.
type Builder struct {
	discovery Discovery
	selfGraph string
	fallback  map[string]domain.AgentCapability
	logger    *slog.Logger
}

// NewBuilder создаёт сборщик реестра.
func NewBuilder(cfg BuilderConfig) *Builder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		discovery: cfg.Discovery,
		selfGraph: cfg.SelfGraph,
		fallback:  cfg.Fallback,
		logger:    logger.With("component", "registry"),
	}
}

// Build опрашивает discovery и собирает реестр. Недоступность
// discovery целиком — ошибка; недоступность карточки отдельного
// агента — пропуск с warning.
func (b *Builder) Build(ctx context.Context) (*Registry, error) {
	refs, err := b.discovery.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscoveryUnavailable, err)
	}

	agents := make(map[string]domain.AgentCapability)
	for _, ref := range refs {
		if b.selfGraph != "" && ref.Graph == b.selfGraph {
			continue
		}

		card, err := b.discovery.FetchCard(ctx, ref)
		if err != nil {
			if errors.Is(err, ErrCardNotFound) {
				b.logger.Warn("agent has no card, skipping", "agent_id", ref.ID, "graph", ref.Graph)
			} else {
				b.logger.Warn("failed to fetch agent card, skipping",
					"agent_id", ref.ID, "graph", ref.Graph, "error", err)
			}
			continue
		}

		// Карточка без деталей — дополняем из fallback-метаданных.
		if len(card.Capabilities) == 0 {
			if fb, ok := b.fallback[ref.Graph]; ok {
				if card.Name == "" {
					card.Name = fb.Name
				}
				if card.Description == "" {
					card.Description = fb.Description
				}
				card.Capabilities = fb.Capabilities
				if len(card.Skills) == 0 {
					card.Skills = fb.Skills
				}
			}
		}

		agents[card.AgentID] = card
	}

	b.logger.Info("registry built", "agents", len(agents), "discovered", len(refs))

	return &Registry{agents: agents}, nil
}
