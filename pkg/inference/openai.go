package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const systemPrompt = "你是战场决策评估助手。根据战场记忆与候选方案，选择最合理的方案，" +
	"并以JSON回答：{\"selected_index\": <序号>, \"explanation\": \"<理由>\"}"

// openAIRanker calls an OpenAI-compatible chat-completions endpoint.
// Any transport, parse, or schema failure falls back to candidate 0 so
// the pipeline never observes a ranker error.
type openAIRanker struct {
	cfg        Config
	httpClient *http.Client
}

func newOpenAIRanker(cfg Config) *openAIRanker {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}
	return &openAIRanker{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type rankerVerdict struct {
	SelectedIndex *int   `json:"selected_index"`
	Explanation   string `json:"explanation"`
}

// RankAndExplain implements Ranker.
func (r *openAIRanker) RankAndExplain(ctx context.Context, req Request) Response {
	if len(req.Candidates) == 0 {
		return Response{SelectedIndex: 0, Explanation: "no candidate decisions available"}
	}

	content, err := r.complete(ctx, buildPrompt(req))
	if err != nil {
		return fallback(fmt.Sprintf("ranker call failed: %v", err))
	}

	verdict, err := extractVerdict(content)
	if err != nil {
		return fallback(fmt.Sprintf("ranker response unparseable: %v", err))
	}
	if verdict.SelectedIndex == nil || *verdict.SelectedIndex < 0 || *verdict.SelectedIndex >= len(req.Candidates) {
		return fallback("ranker returned out-of-range selected_index")
	}

	explanation := verdict.Explanation
	if explanation == "" {
		explanation = "ranker returned no explanation"
	}
	return Response{SelectedIndex: *verdict.SelectedIndex, Explanation: explanation}
}

// complete performs the chat-completions POST and returns the first
// choice's content.
func (r *openAIRanker) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: r.cfg.ModelName,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   r.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if r.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(payload))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty completion")
	}
	return parsed.Choices[0].Message.Content, nil
}

// buildPrompt embeds the memory context and a numbered candidate list.
func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("战场记忆:\n")
	if req.Context == "" {
		b.WriteString("(无)\n")
	} else {
		b.WriteString(req.Context)
		if !strings.HasSuffix(req.Context, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("候选方案:\n")
	for i, candidate := range req.Candidates {
		fmt.Fprintf(&b, "%d. %s\n", i, candidate)
	}
	b.WriteString("请选择最优方案。")
	return b.String()
}

// extractVerdict pulls the embedded JSON object out of the completion
// content and unmarshals the verdict fields.
func extractVerdict(content string) (rankerVerdict, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return rankerVerdict{}, fmt.Errorf("no JSON object in content")
	}

	var verdict rankerVerdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &verdict); err != nil {
		return rankerVerdict{}, err
	}
	return verdict, nil
}

func fallback(reason string) Response {
	return Response{SelectedIndex: 0, Explanation: "fallback to candidate 0: " + reason}
}
