// Package inference defines the candidate-ranking contract between the
// decision pipeline and an external model backend. Backends never fail
// the pipeline: every error path degrades to selecting candidate 0 with
// a diagnostic explanation.
package inference

import "context"

// Backend selects the ranker implementation.
type Backend string

const (
	BackendMock             Backend = "mock"
	BackendOpenAICompatible Backend = "openai"
)

// Config selects and parameterizes a ranker backend.
type Config struct {
	Backend   Backend
	ModelName string
	MaxTokens int
	Endpoint  string
	APIKey    string
	TimeoutMs int
}

// DefaultConfig returns the mock backend with the stock local model
// parameters.
func DefaultConfig() Config {
	return Config{
		Backend:   BackendMock,
		ModelName: "Qwen1.5-1.8B-Chat",
		MaxTokens: 192,
		Endpoint:  "http://127.0.0.1:8000/v1/chat/completions",
		TimeoutMs: 250,
	}
}

// Request carries the memory context and the candidate summaries to
// rank. Candidates is never empty when sent by the pipeline.
type Request struct {
	Context    string
	Candidates []string
}

// Response is the ranker verdict. SelectedIndex is always a valid index
// into the request's candidate list.
type Response struct {
	SelectedIndex int
	Explanation   string
}

// Ranker is the capability the pipeline holds. Implementations must be
// total: any internal failure maps to a fallback response, not an error.
type Ranker interface {
	RankAndExplain(ctx context.Context, req Request) Response
}

// New builds the ranker selected by the configuration.
func New(cfg Config) Ranker {
	if cfg.Backend == BackendOpenAICompatible {
		return newOpenAIRanker(cfg)
	}
	return &MockRanker{cfg: cfg}
}
