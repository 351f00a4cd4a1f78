package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shaiso/Dirigent/internal/domain"
)

// newDiscoveryServer поднимает httptest-сервер с поиском агентов и
// well-known карточками. cards: assistant_id → карточка (nil — 404).
func newDiscoveryServer(t *testing.T, refs []assistantRef, cards map[string]*agentCard) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /assistants/search", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(refs)
	})
	mux.HandleFunc("GET /.well-known/agent-card.json", func(w http.ResponseWriter, r *http.Request) {
		card, ok := cards[r.URL.Query().Get("assistant_id")]
		if !ok || card == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(card)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBuildExcludesSelfAndCardless(t *testing.T) {
	refs := []assistantRef{
		{AssistantID: "a1", GraphID: "researcher"},
		{AssistantID: "a2", GraphID: "router"},
		{AssistantID: "a3", GraphID: "writer"},
	}
	cards := map[string]*agentCard{
		"a1": {Name: "Researcher", Description: "searches the web",
			Skills: []struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}{{Name: "web_search", Description: "search and summarize"}}},
		// a3 без карточки.
	}
	srv := newDiscoveryServer(t, refs, cards)

	b := NewBuilder(BuilderConfig{
		Discovery: NewHTTPDiscovery(srv.URL, 0, nil),
		SelfGraph: "router",
	})

	reg, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}
	card, ok := reg.Get("a1")
	if !ok {
		t.Fatal("agent a1 missing from registry")
	}
	if card.Name != "Researcher" || len(card.Capabilities) != 1 || card.Capabilities[0] != "web_search" {
		t.Errorf("unexpected card: %+v", card)
	}
	if _, ok := reg.Get("a2"); ok {
		t.Error("router's own graph must be excluded")
	}
	if _, ok := reg.Get("a3"); ok {
		t.Error("cardless agent must be skipped")
	}
}

func TestBuildEmptyRegistryIsNotAnError(t *testing.T) {
	srv := newDiscoveryServer(t, nil, nil)

	b := NewBuilder(BuilderConfig{Discovery: NewHTTPDiscovery(srv.URL, 0, nil)})

	reg, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !reg.IsEmpty() {
		t.Errorf("Len() = %d, want empty", reg.Len())
	}
}

func TestBuildDiscoveryUnavailable(t *testing.T) {
	srv := newDiscoveryServer(t, nil, nil)
	url := srv.URL
	srv.Close()

	b := NewBuilder(BuilderConfig{Discovery: NewHTTPDiscovery(url, 0, nil)})

	_, err := b.Build(context.Background())
	if !errors.Is(err, ErrDiscoveryUnavailable) {
		t.Errorf("Build() error = %v, want ErrDiscoveryUnavailable", err)
	}
}

func TestBuildFallbackMetadata(t *testing.T) {
	refs := []assistantRef{{AssistantID: "a1", GraphID: "coder"}}
	cards := map[string]*agentCard{
		"a1": {}, // пустая карточка без skills
	}
	srv := newDiscoveryServer(t, refs, cards)

	b := NewBuilder(BuilderConfig{
		Discovery: NewHTTPDiscovery(srv.URL, 0, nil),
		Fallback: map[string]domain.AgentCapability{
			"coder": {
				Name:         "Coder",
				Description:  "writes code",
				Capabilities: []string{"code_generation"},
			},
		},
	})

	reg, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	card, ok := reg.Get("a1")
	if !ok {
		t.Fatal("agent a1 missing")
	}
	if card.Name != "Coder" || len(card.Capabilities) != 1 {
		t.Errorf("fallback not applied: %+v", card)
	}
}

func TestFromCapabilitiesAndList(t *testing.T) {
	reg := FromCapabilities([]domain.AgentCapability{
		{AgentID: "b", Name: "B"},
		{AgentID: "a", Name: "A"},
	})
	list := reg.List()
	if len(list) != 2 || list[0].AgentID != "a" || list[1].AgentID != "b" {
		t.Errorf("List() not sorted by AgentID: %+v", list)
	}
}
