package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Ошибки вызова агента.
var (
	// ErrInvokeTimeout — агент не ответил за отведённое время.
	ErrInvokeTimeout = errors.New("agent invocation timed out")

	// ErrAgentStatus — агент ответил HTTP-статусом ≥ 400.
	ErrAgentStatus = errors.New("agent returned error status")

	// ErrEmptyResult — агент ответил без единого сообщения.
	ErrEmptyResult = errors.New("agent returned empty result")
)

// DefaultInvokeTimeout — дефолтный таймаут одного вызова агента.
const DefaultInvokeTimeout = 5 * time.Minute

// maxErrorBodySize — лимит тела ответа в тексте ошибки.
const maxErrorBodySize = 512

// InvokeRequest — параметры вызова агента для одной task.
type InvokeRequest struct {
	// AgentID — идентификатор агента.
	AgentID string

	// TaskID — ID task; используется как thread вызова.
	TaskID string

	// Request — исходный пользовательский запрос.
	Request string

	// Task — описание конкретной task.
	Task string

	// Context — результаты прямых зависимостей (может быть пустым).
	Context string
}

// Config — конфигурация клиента агентов.
type Config struct {
	// BaseURL — адрес шлюза агентов.
	BaseURL string

	// Timeout — таймаут одного вызова. 0 — DefaultInvokeTimeout.
	Timeout time.Duration

	// Logger — логгер. nil — slog.Default().
	Logger *slog.Logger
}

// Client — HTTP-клиент вызова агентов.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient создаёт клиента вызова агентов.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultInvokeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{},
		timeout: timeout,
		logger:  logger.With("component", "agent_client"),
	}
}

// invokePayload — тело запроса к агенту.
type invokePayload struct {
	Input struct {
		Messages []invokeMessage `json:"messages"`
	} `json:"input"`
	Config struct {
		Configurable struct {
			ThreadID string `json:"thread_id"`
		} `json:"configurable"`
	} `json:"config"`
	StreamMode string `json:"stream_mode"`
}

type invokeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// invokeResponse — тело ответа агента.
type invokeResponse struct {
	Messages []struct {
		Content string `json:"content"`
	} `json:"messages"`
}

// Invoke отправляет task агенту и возвращает текст его ответа.
// Таймаут вызова ограничен сверху таймаутом клиента; переданный
// context может отменить вызов раньше.
func (c *Client) Invoke(ctx context.Context, req InvokeRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := invokePayload{StreamMode: "values"}
	payload.Input.Messages = []invokeMessage{
		{Role: "user", Content: buildAgentMessage(req)},
	}
	payload.Config.Configurable.ThreadID = "router_" + req.TaskID

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal invoke payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/a2a/%s", c.baseURL, url.PathEscape(req.AgentID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create invoke request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrInvokeTimeout, c.timeout)
		}
		return "", fmt.Errorf("invoke agent %s: %w", req.AgentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrAgentStatus, resp.StatusCode, string(respBody))
	}

	var decoded invokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode agent response: %w", err)
	}
	if len(decoded.Messages) == 0 {
		return "", ErrEmptyResult
	}

	result := decoded.Messages[len(decoded.Messages)-1].Content

	c.logger.Debug("agent invoked",
		"agent_id", req.AgentID,
		"task_id", req.TaskID,
		"duration", time.Since(start),
		"result_len", len(result),
	)

	return result, nil
}

// buildAgentMessage собирает текст сообщения агенту: исходный запрос,
// конкретная task и контекст зависимостей.
func buildAgentMessage(req InvokeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original user request: %s\n\n", req.Request)
	fmt.Fprintf(&b, "Your task: %s", req.Task)
	if req.Context != "" {
		fmt.Fprintf(&b, "\n\n%s", req.Context)
	}
	return b.String()
}
