package rerank

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"cipher_workbench/internal/detect"
	"cipher_workbench/internal/engine"
	"cipher_workbench/internal/prompts"
	"cipher_workbench/internal/solver"
)

// OpenAIReranker ranks candidate decryptions through the OpenAI chat API or
// any compatible endpoint. Same failure discipline as the Ollama provider.
type OpenAIReranker struct {
	client *openai.Client
	model  string
	gate   failureGate
}

func NewOpenAIReranker(apiKey, baseURL, model string) *OpenAIReranker {
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	}
	return &OpenAIReranker{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (r *OpenAIReranker) Name() string {
	return "openai:" + r.model
}

func (r *OpenAIReranker) Rerank(ctx context.Context, det detect.Result, shortlist []solver.Candidate) ([]engine.Verdict, error) {
	if err := r.gate.disabled(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prompt := prompts.RerankPrompt(detectionSummary(det), candidateBlock(shortlist))

	req := openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You respond with strict JSON only."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		r.gate.fail(err)
		return nil, err
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("openai returned no choices")
		r.gate.fail(err)
		return nil, err
	}

	verdicts, err := parseVerdicts(resp.Choices[0].Message.Content)
	if err != nil {
		r.gate.fail(err)
		return nil, err
	}
	r.gate.ok()
	return verdicts, nil
}
