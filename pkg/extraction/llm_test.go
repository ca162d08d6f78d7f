package extraction

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, content string, failFirstN int32) *httptest.Server {
	t.Helper()
	var calls int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= failFirstN {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		resp := chatResponse{}
		resp.Choices = []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{{}}
		resp.Choices[0].Message.Content = content
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestLLMStrategyParsesSuccessfulResponse(t *testing.T) {
	body := `{"world_facts":[{"source":"Bob","relation":"works_at","target":"Acme"}],"partner_stance":[{"source":"Bob","relation":"supports","target":"UBI","sentiment":0.7}],"self_reaction":[],"overall_sentiment":0.5,"entities":["Bob","Acme","UBI"]}`
	srv := newChatServer(t, body, 0)
	defer srv.Close()

	strategy, err := NewLLMStrategy(LLMConfig{Endpoint: srv.URL, APIKey: "test-key", Model: "test-model"}, nil)
	require.NoError(t, err)

	result, err := strategy.Extract(t.Context(), "Bob works at Acme and supports UBI.", "Bob", "Agent")
	require.NoError(t, err)
	require.Equal(t, "llm", result.Mode)
	require.Len(t, result.WorldFacts, 1)
	require.Equal(t, "Acme", result.WorldFacts[0].Target)
	require.Len(t, result.PartnerStance, 1)
	require.InDelta(t, 0.5, result.OverallSentiment, 1e-9)
}

func TestLLMStrategyRetriesTransientFailure(t *testing.T) {
	body := `{"world_facts":[],"partner_stance":[],"self_reaction":[],"overall_sentiment":0,"entities":[]}`
	srv := newChatServer(t, body, 2)
	defer srv.Close()

	strategy, err := NewLLMStrategy(LLMConfig{Endpoint: srv.URL, APIKey: "test-key"}, nil)
	require.NoError(t, err)

	result, err := strategy.Extract(t.Context(), "hello", "Bob", "Agent")
	require.NoError(t, err)
	require.Equal(t, "llm", result.Mode)
}

func TestLLMStrategyExhaustsRetriesAndFails(t *testing.T) {
	srv := newChatServer(t, "{}", 10)
	defer srv.Close()

	strategy, err := NewLLMStrategy(LLMConfig{Endpoint: srv.URL, APIKey: "test-key", MaxRetries: 2}, nil)
	require.NoError(t, err)

	_, err = strategy.Extract(t.Context(), "hello", "Bob", "Agent")
	require.Error(t, err)
}

func TestLLMStrategyRepairsMalformedJSON(t *testing.T) {
	// Trailing comma — invalid strict JSON, recoverable by jsonrepair.
	body := `{"world_facts":[],"partner_stance":[],"self_reaction":[],"overall_sentiment":0.1,"entities":["Bob",],}`
	srv := newChatServer(t, body, 0)
	defer srv.Close()

	strategy, err := NewLLMStrategy(LLMConfig{Endpoint: srv.URL, APIKey: "test-key"}, nil)
	require.NoError(t, err)

	result, err := strategy.Extract(t.Context(), "hello", "Bob", "Agent")
	require.NoError(t, err)
	require.Contains(t, result.Entities, "Bob")
}

func TestNewLLMStrategyRequiresAPIKey(t *testing.T) {
	_, err := NewLLMStrategy(LLMConfig{}, nil)
	require.Error(t, err)
}
