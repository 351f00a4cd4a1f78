package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shaiso/Dirigent/internal/domain"
)

// DefaultDiscoveryTimeout — таймаут одного discovery-запроса.
const DefaultDiscoveryTimeout = 10 * time.Second

// HTTPDiscovery — discovery через HTTP API шлюза агентов:
// поиск зарегистрированных агентов плюс well-known карточка каждого.
type HTTPDiscovery struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPDiscovery создаёт HTTP discovery для шлюза агентов.
func NewHTTPDiscovery(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPDiscovery {
	if timeout <= 0 {
		timeout = DefaultDiscoveryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPDiscovery{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With("component", "discovery"),
	}
}

// assistantRef — элемент ответа поиска агентов.
type assistantRef struct {
	AssistantID string `json:"assistant_id"`
	GraphID     string `json:"graph_id"`
}

// agentCard — well-known карточка агента.
type agentCard struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Skills      []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"skills"`
}

// ListAgents возвращает всех зарегистрированных агентов.
// POST {base}/assistants/search
func (d *HTTPDiscovery) ListAgents(ctx context.Context) ([]AgentRef, error) {
	body := bytes.NewBufferString(`{}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/assistants/search", body)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search agents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search agents: HTTP %d", resp.StatusCode)
	}

	var refs []assistantRef
	if err := json.NewDecoder(resp.Body).Decode(&refs); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]AgentRef, len(refs))
	for i, r := range refs {
		out[i] = AgentRef{ID: r.AssistantID, Graph: r.GraphID}
	}
	return out, nil
}

// FetchCard возвращает карточку возможностей агента.
// GET {base}/.well-known/agent-card.json?assistant_id=...
func (d *HTTPDiscovery) FetchCard(ctx context.Context, ref AgentRef) (domain.AgentCapability, error) {
	u := fmt.Sprintf("%s/.well-known/agent-card.json?assistant_id=%s",
		d.baseURL, url.QueryEscape(ref.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.AgentCapability{}, fmt.Errorf("create card request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return domain.AgentCapability{}, fmt.Errorf("fetch card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.AgentCapability{}, ErrCardNotFound
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.AgentCapability{}, fmt.Errorf("fetch card: HTTP %d: %s", resp.StatusCode, string(b))
	}

	var card agentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return domain.AgentCapability{}, fmt.Errorf("decode card: %w", err)
	}

	out := domain.AgentCapability{
		AgentID:     ref.ID,
		Name:        card.Name,
		Description: card.Description,
	}
	if out.Name == "" {
		out.Name = ref.Graph
	}
	for _, skill := range card.Skills {
		out.Capabilities = append(out.Capabilities, skill.Name)
		if skill.Description != "" {
			out.Skills = append(out.Skills, skill.Description)
		}
	}
	return out, nil
}
