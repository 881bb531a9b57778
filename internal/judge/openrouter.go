package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/calloway/ledgersieve/internal/common"
)

const defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

// Config holds configuration for the OpenRouter-backed judge.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Referer     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenRouterJudge implements Judge against the OpenRouter chat completions API.
type OpenRouterJudge struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	referer     string
	temperature float64
	maxTokens   int
}

// NewOpenRouterJudge creates a new OpenRouter API judge.
func NewOpenRouterJudge(cfg Config) (*OpenRouterJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenRouter API key", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "openai/gpt-4o-mini"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.1
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 50
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &OpenRouterJudge{
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     baseURL,
		referer:     cfg.Referer,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Judge sends a single-rule judgment request and parses the decision.
func (j *OpenRouterJudge) Judge(ctx context.Context, req Request) (Response, error) {
	if req.Prompt == "" {
		return Response{Decision: DecisionDoNotApply, Explanation: "no prompt provided"}, nil
	}

	requestBody := map[string]any{
		"model": j.model,
		"messages": []map[string]string{
			{
				"role": "system",
				"content": "You are a financial transaction categorization assistant. Your task is to decide if a transaction should be categorized based on the given information. " +
					"You MUST respond with ONLY a valid JSON object containing a \"decision\" field whose value is either \"apply\" or \"do_not_apply\", and an optional \"explanation\" field. Start your response directly with { and end with }.",
			},
			{
				"role":    "user",
				"content": j.buildPrompt(req),
			},
		},
		"temperature": j.temperature,
		"max_tokens":  j.maxTokens,
		"stream":      false,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL, strings.NewReader(string(jsonBody)))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+j.apiKey)
	if j.referer != "" {
		httpReq.Header.Set("HTTP-Referer", j.referer)
	}

	resp, err := j.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("OpenRouter API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response openRouterResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return Response{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return Response{}, fmt.Errorf("no completion choices returned")
	}

	return parseDecision(response.Choices[0].Message.Content)
}

// buildPrompt creates the user message for a judgment request.
func (j *OpenRouterJudge) buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Analyze this transaction:\n")
	fmt.Fprintf(&b, "- Description: %s\n", req.TransactionDescription)
	fmt.Fprintf(&b, "- Amount: %s\n", req.TransactionAmount)
	fmt.Fprintf(&b, "- Date: %s\n\n", req.TransactionDate)
	b.WriteString("For this category:\n")
	fmt.Fprintf(&b, "- Name: %s\n", req.CategoryName)
	if req.CategoryDescription != "" {
		fmt.Fprintf(&b, "- Description: %s\n", req.CategoryDescription)
	}
	b.WriteString("\nUsing this rule:\n")
	b.WriteString(req.Prompt)
	b.WriteString("\n\nRespond only with a JSON object containing a \"decision\" field with value \"apply\" or \"do_not_apply\".")
	return b.String()
}

// parseDecision extracts the decision from the model's response content.
func parseDecision(content string) (Response, error) {
	content = stripMarkdownFences(content)

	var jsonResp struct {
		Decision    string `json:"decision"`
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(content), &jsonResp); err != nil {
		return Response{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	// The upstream service has used both spellings over time.
	switch strings.ToLower(strings.TrimSpace(jsonResp.Decision)) {
	case "apply":
		return Response{Decision: DecisionApply, Explanation: jsonResp.Explanation}, nil
	case "do_not_apply", "do not apply":
		return Response{Decision: DecisionDoNotApply, Explanation: jsonResp.Explanation}, nil
	}

	return Response{}, fmt.Errorf("unrecognized decision %q in response", jsonResp.Decision)
}

// stripMarkdownFences removes ```json fences some models wrap around output.
func stripMarkdownFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}

// openRouterResponse represents the OpenRouter API response structure.
type openRouterResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
