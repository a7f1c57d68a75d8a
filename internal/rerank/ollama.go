package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cipher_workbench/internal/detect"
	"cipher_workbench/internal/engine"
	"cipher_workbench/internal/prompts"
	"cipher_workbench/internal/solver"
)

// OllamaReranker ranks candidate decryptions with a local Ollama model. It
// retries each call a few times and disables itself after repeated hard
// failures so the engine falls back to statistical order quickly.
type OllamaReranker struct {
	endpoint string
	model    string
	client   *http.Client
	gate     failureGate
}

func NewOllamaReranker(baseURL, model string, timeout time.Duration) *OllamaReranker {
	if strings.TrimSpace(model) == "" {
		model = "llama3.1:8b"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaReranker{
		endpoint: generateEndpoint(baseURL),
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *OllamaReranker) Name() string {
	return "ollama:" + r.model
}

func (r *OllamaReranker) Rerank(ctx context.Context, det detect.Result, shortlist []solver.Candidate) ([]engine.Verdict, error) {
	if err := r.gate.disabled(); err != nil {
		return nil, err
	}
	prompt := prompts.RerankPrompt(detectionSummary(det), candidateBlock(shortlist))

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		// Cancellation is the caller's doing, not a provider failure; it
		// must not count toward disabling the endpoint.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		verdicts, err := r.generate(ctx, prompt)
		if err == nil {
			r.gate.ok()
			return verdicts, nil
		}
		lastErr = err
	}
	r.gate.fail(lastErr)
	return nil, lastErr
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (r *OllamaReranker) generate(ctx context.Context, prompt string) ([]engine.Verdict, error) {
	payload := map[string]any{
		"model":   r.model,
		"prompt":  prompt,
		"stream":  false,
		"format":  "json",
		"options": map[string]any{"temperature": 0},
	}
	raw, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out ollamaResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return parseVerdicts(out.Response)
}

func generateEndpoint(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return "http://127.0.0.1:11434/api/generate"
	}
	if strings.Contains(base, "/api/generate") {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/api/generate"
}
