package inference

import (
	"context"
	"fmt"
)

// MockRanker deterministically selects candidate 0. It anchors tests
// and keeps replays reproducible without a model server.
type MockRanker struct {
	cfg Config
}

// RankAndExplain implements Ranker.
func (m *MockRanker) RankAndExplain(_ context.Context, req Request) Response {
	if len(req.Candidates) == 0 {
		return Response{SelectedIndex: 0, Explanation: "no candidate decisions available"}
	}
	return Response{
		SelectedIndex: 0,
		Explanation:   fmt.Sprintf("selected candidate 0 with deterministic baseline; model=%s", m.cfg.ModelName),
	}
}
