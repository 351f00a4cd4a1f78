package router

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/mq"
	"github.com/shaiso/Dirigent/internal/registry"
)

// SessionStore — хранилище sessions. Реализуется repo.SessionRepo.
type SessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Update(ctx context.Context, s *domain.Session) error
	ListPending(ctx context.Context, limit int) ([]domain.Session, error)
	ListAwaitingDecision(ctx context.Context, limit int) ([]domain.Session, error)
	GetDecision(ctx context.Context, id uuid.UUID) (*domain.Decision, error)
}

// Completer — рассуждающий оракул. Реализуется oracle.Client.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Executor — планировщик выполнения задач. Реализуется executor.Scheduler.
type Executor interface {
	Execute(ctx context.Context, request string, tasks []domain.Task, prior map[string]domain.Task) []domain.Task
}

// RegistrySource — сборщик реестра агентов. Реализуется registry.Builder.
type RegistrySource interface {
	Build(ctx context.Context) (*registry.Registry, error)
}

// Дефолты контроллера.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultBatchSize    = 10
	DefaultScope        = "research, analysis, content generation and software engineering tasks"
)

// Config — конфигурация контроллера session.
type Config struct {
	// Store — хранилище sessions.
	Store SessionStore

	// Completer — оракул.
	Completer Completer

	// Executor — планировщик выполнения.
	Executor Executor

	// Registry — сборщик реестра агентов.
	Registry RegistrySource

	// Conn — соединение с RabbitMQ. nil — работаем только на polling.
	Conn *mq.Connection

	// PollInterval — период опроса БД.
	PollInterval time.Duration

	// BatchSize — лимит sessions за один опрос.
	BatchSize int

	// Scope — описание зоны ответственности платформы; используется
	// промптами валидации и текстом отказа.
	Scope string

	// Logger — логгер. nil — slog.Default().
	Logger *slog.Logger
}

// Router — контроллер session.
type Router struct {
	store     SessionStore
	completer Completer
	executor  Executor
	registry  RegistrySource

	conn      *mq.Connection
	consumers []*mq.Consumer

	pollInterval time.Duration
	batchSize    int
	scope        string

	// active — sessions, обрабатываемые этим процессом; защита от
	// двойной обработки при одновременном событии и опросе.
	mu     sync.Mutex
	active map[uuid.UUID]struct{}

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
}

// New создаёт контроллер session.
func New(cfg Config) *Router {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	scope := cfg.Scope
	if scope == "" {
		scope = DefaultScope
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		store:        cfg.Store,
		completer:    cfg.Completer,
		executor:     cfg.Executor,
		registry:     cfg.Registry,
		conn:         cfg.Conn,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		scope:        scope,
		active:       make(map[uuid.UUID]struct{}),
		logger:       logger.With("component", "router"),
	}
}

// Start запускает consumers и polling-цикл. Неблокирующий.
func (r *Router) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel

	if r.conn != nil {
		pending := mq.NewConsumer(r.conn, r.logger, mq.ConsumerConfig{
			Queue:   string(mq.QueueSessionsPending),
			Handler: r.handleSessionPending,
		})
		decision := mq.NewConsumer(r.conn, r.logger, mq.ConsumerConfig{
			Queue:   string(mq.QueueSessionsDecision),
			Handler: r.handleSessionDecision,
		})
		r.consumers = []*mq.Consumer{pending, decision}

		for _, c := range r.consumers {
			consumer := c
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
					r.logger.Error("consumer stopped", "error", err)
				}
			}()
		}
	} else {
		r.logger.Warn("mq connection not available, running on polling only")
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.pollLoop(ctx)
	}()

	r.logger.Info("router started",
		"poll_interval", r.pollInterval,
		"batch_size", r.batchSize,
		"event_driven", r.conn != nil,
	)

	return nil
}

// Stop останавливает контроллер и дожидается обработчиков.
func (r *Router) Stop() {
	if r.stopped {
		return
	}
	r.stopped = true

	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	for _, c := range r.consumers {
		c.Stop()
	}
	r.wg.Wait()

	r.logger.Info("router stopped")
}

// tryAcquire помечает session активной. false — уже обрабатывается.
func (r *Router) tryAcquire(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[id]; ok {
		return false
	}
	r.active[id] = struct{}{}
	return true
}

// release снимает пометку активности.
func (r *Router) release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}
