package inference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockRankerDeterministic(t *testing.T) {
	ranker := New(DefaultConfig())

	req := Request{Context: "ctx", Candidates: []string{"A", "B"}}
	first := ranker.RankAndExplain(context.Background(), req)
	second := ranker.RankAndExplain(context.Background(), req)

	require.Equal(t, 0, first.SelectedIndex)
	require.Equal(t, first, second)
	require.Contains(t, first.Explanation, "deterministic baseline")
}

func TestMockRankerEmptyCandidates(t *testing.T) {
	ranker := New(DefaultConfig())
	resp := ranker.RankAndExplain(context.Background(), Request{})
	require.Equal(t, 0, resp.SelectedIndex)
	require.Equal(t, "no candidate decisions available", resp.Explanation)
}

func openAIConfig(endpoint string) Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendOpenAICompatible
	cfg.Endpoint = endpoint
	cfg.TimeoutMs = 2000
	return cfg
}

func TestOpenAIRankerSelectsCandidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant",
			"content":"{\"selected_index\": 1, \"explanation\": \"保守方案更稳妥\"}"}}]}`))
	}))
	defer server.Close()

	ranker := New(openAIConfig(server.URL))
	resp := ranker.RankAndExplain(context.Background(), Request{
		Context:    "[t=1000] 武器开火: 武器=howitzer，目标=F-1",
		Candidates: []string{"A", "B"},
	})

	require.Equal(t, 1, resp.SelectedIndex)
	require.Equal(t, "保守方案更稳妥", resp.Explanation)
}

func TestOpenAIRankerFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"http error",
			func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			"empty choices",
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
		},
		{
			"content without JSON",
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"no verdict here"}}]}`))
			},
		},
		{
			"missing selected_index",
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"explanation\":\"x\"}"}}]}`))
			},
		},
		{
			"out of range index",
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"selected_index\":7,\"explanation\":\"x\"}"}}]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			ranker := New(openAIConfig(server.URL))
			resp := ranker.RankAndExplain(context.Background(), Request{Candidates: []string{"A", "B"}})

			require.Equal(t, 0, resp.SelectedIndex)
			require.Contains(t, resp.Explanation, "fallback to candidate 0")
		})
	}
}

func TestOpenAIRankerUnreachableEndpoint(t *testing.T) {
	cfg := openAIConfig("http://127.0.0.1:1/v1/chat/completions")
	cfg.TimeoutMs = 100

	ranker := New(cfg)
	resp := ranker.RankAndExplain(context.Background(), Request{Candidates: []string{"A"}})
	require.Equal(t, 0, resp.SelectedIndex)
	require.Contains(t, resp.Explanation, "fallback to candidate 0")
}

func TestBuildPromptNumbersCandidates(t *testing.T) {
	prompt := buildPrompt(Request{
		Context:    "[t=1] 战术标签: stable_contact",
		Candidates: []string{"aggressive", "conservative"},
	})
	require.Contains(t, prompt, "0. aggressive")
	require.Contains(t, prompt, "1. conservative")
	require.Contains(t, prompt, "战场记忆")
}

func TestExtractVerdict(t *testing.T) {
	verdict, err := extractVerdict(`leading text {"selected_index": 0, "explanation": "ok"} trailing`)
	require.NoError(t, err)
	require.NotNil(t, verdict.SelectedIndex)
	require.Equal(t, 0, *verdict.SelectedIndex)
	require.Equal(t, "ok", verdict.Explanation)

	_, err = extractVerdict("nothing to parse")
	require.Error(t, err)
}
