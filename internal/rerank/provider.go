package rerank

import (
	"strings"

	"cipher_workbench/internal/config"
	"cipher_workbench/internal/engine"
)

// FromConfig builds the configured provider. "none", an empty provider, or an
// unknown name yields nil, which the engine reads as "keep the statistical
// order"; an openai provider without a key also degrades to nil rather than
// making calls that can only fail.
func FromConfig(rc config.RerankConfig) engine.Reranker {
	switch strings.ToLower(strings.TrimSpace(rc.Provider)) {
	case "ollama":
		return NewOllamaReranker(rc.OllamaURL, rc.OllamaModel, rc.Timeout())
	case "openai":
		key := rc.OpenAIKey()
		if key == "" {
			return nil
		}
		return NewOpenAIReranker(key, rc.OpenAIBaseURL, rc.OpenAIModel)
	}
	return nil
}
