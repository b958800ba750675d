package factory

import (
	"fmt"

	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/llm/ollama"
	"ai-chat-be/pkg/llm/openai"
)

func NewStreamProvider(providerType, modelName, baseURL, apiKey string) (llm.StreamProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "openai", "deepseek":
		if apiKey == "" {
			return nil, fmt.Errorf("api key required for provider %q", providerType)
		}
		if providerType == "deepseek" && baseURL == "" {
			baseURL = "https://api.deepseek.com/v1"
		}
		return openai.NewOpenAIProvider(apiKey, modelName, baseURL), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
