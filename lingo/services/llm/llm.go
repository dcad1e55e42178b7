// lingo/services/llm/llm.go
package llm

import (
	"fmt"
	"strings"

	"lingo/lingo/config"
)

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewProvider picks the streaming client named by cfg.LLMProvider.
func NewProvider(cfg config.Config, tc config.TranslatorConfig) (*GPTClient, error) {
	switch strings.ToLower(cfg.LLMProvider) {
	case "", "openai":
		return NewGPTClient(cfg.LLMBaseURL, cfg.LLMAPIKey, tc.Model, tc.Temperature), nil
	case "groq":
		return NewGroqClient(cfg.LLMAPIKey, tc.Model, tc.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}
