package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// SessionResponse — session из API.
type SessionResponse struct {
	ID              string         `json:"id"`
	Request         string         `json:"request"`
	Mode            string         `json:"mode"`
	Status          string         `json:"status"`
	IsValid         bool           `json:"is_valid"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	Plan            *PlanResponse  `json:"plan,omitempty"`
	Messages        []MessageEntry `json:"messages,omitempty"`
	ReplanCount     int            `json:"replan_count"`
	MaxReplans      int            `json:"max_replans"`
	FinalResponse   string         `json:"final_response,omitempty"`
	CreatedAt       string         `json:"created_at"`
	StartedAt       string         `json:"started_at,omitempty"`
	FinishedAt      string         `json:"finished_at,omitempty"`
}

// MessageEntry — запись в transcript session.
type MessageEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// PlanResponse — план из API.
type PlanResponse struct {
	Tasks     []TaskResponse `json:"tasks"`
	Strategy  string         `json:"execution_strategy,omitempty"`
	Analysis  string         `json:"analysis,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// TaskResponse — task из API.
type TaskResponse struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	AgentID     string   `json:"agent_id"`
	AgentName   string   `json:"agent_name,omitempty"`
	Rationale   string   `json:"rationale,omitempty"`
	Status      string   `json:"status"`
	Result      string   `json:"result,omitempty"`
	Error       string   `json:"error,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty"`
	StartedAt   string   `json:"started_at,omitempty"`
	FinishedAt  string   `json:"finished_at,omitempty"`
}

// AgentResponse — карточка агента из API.
type AgentResponse struct {
	AgentID      string   `json:"agent_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Skills       []string `json:"skills,omitempty"`
}

// --- Request types ---

// CreateSessionRequest — создание session.
type CreateSessionRequest struct {
	Request    string `json:"request"`
	Mode       string `json:"mode,omitempty"`
	MaxReplans *int   `json:"max_replans,omitempty"`
}

// DecisionRequest — решение по плану session.
type DecisionRequest struct {
	Decision string          `json:"decision"`
	Reason   string          `json:"reason,omitempty"`
	Plan     json.RawMessage `json:"plan,omitempty"`
}

// DecisionResult — подтверждение принятого решения.
type DecisionResult struct {
	SessionID string `json:"session_id"`
	Decision  string `json:"decision"`
}

// ListSessionsOpts — параметры фильтрации sessions.
type ListSessionsOpts struct {
	Status string
	Limit  int
	Offset int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Dirigent API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Sessions ---

// ListSessions возвращает список sessions с фильтрацией.
func (c *Client) ListSessions(opts ListSessionsOpts) ([]SessionResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", fmt.Sprintf("%d", opts.Offset))
	}

	var sessions []SessionResponse
	err := c.list("/api/v1/sessions", params, &sessions)
	return sessions, err
}

// CreateSession создаёт новую session.
func (c *Client) CreateSession(req CreateSessionRequest) (*SessionResponse, error) {
	var sess SessionResponse
	err := c.post("/api/v1/sessions", req, &sess)
	return &sess, err
}

// GetSession возвращает session по ID.
func (c *Client) GetSession(id string) (*SessionResponse, error) {
	var sess SessionResponse
	err := c.get("/api/v1/sessions/"+id, &sess)
	return &sess, err
}

// ListSessionTasks возвращает tasks для session.
func (c *Client) ListSessionTasks(id string) ([]TaskResponse, error) {
	var tasks []TaskResponse
	err := c.list("/api/v1/sessions/"+id+"/tasks", nil, &tasks)
	return tasks, err
}

// SubmitDecision отправляет решение по плану session.
func (c *Client) SubmitDecision(id string, req DecisionRequest) (*DecisionResult, error) {
	var result DecisionResult
	err := c.post("/api/v1/sessions/"+id+"/decision", req, &result)
	return &result, err
}

// --- Agents ---

// ListAgents возвращает карточки обнаруженных агентов.
func (c *Client) ListAgents() ([]AgentResponse, error) {
	var agents []AgentResponse
	err := c.list("/api/v1/agents", nil, &agents)
	return agents, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
