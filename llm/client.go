package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Config selects and configures a provider path.
type Config struct {
	// Provider routes the client: "" or "openai" for any OpenAI-compatible
	// endpoint, "gollm:<name>" (e.g. "gollm:anthropic") for a gollm-native
	// provider.
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Logger   *zap.Logger
}

// New builds the ChatClient for the configured provider.
func New(cfg Config) (ChatClient, error) {
	provider := strings.TrimSpace(cfg.Provider)
	switch {
	case provider == "" || provider == "openai":
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Logger), nil
	case strings.HasPrefix(provider, "gollm:"):
		name := strings.TrimPrefix(provider, "gollm:")
		if name == "" {
			return nil, &ConfigurationError{SDKError: SDKError{Message: "gollm provider name is empty"}}
		}
		return NewGollmClient(name, cfg.APIKey, cfg.Model)
	default:
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("unknown provider %q", cfg.Provider),
		}}
	}
}
