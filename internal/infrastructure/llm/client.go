package llm

import (
	"strings"

	"github.com/sashabaranov/go-openai"
)

// newOpenAIClient builds a client for the OpenAI API or a compatible endpoint
func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimRight(baseURL, "/"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}
