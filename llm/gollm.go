package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teilomillet/gollm"
)

// GollmClient adapts a gollm.LLM to the ChatClient contract for providers
// gollm speaks natively (anthropic, openai, ollama, groq). The message
// list is flattened into a single prompt with the system text attached;
// retries stay with this package, so gollm's own retry is disabled.
type GollmClient struct {
	provider string
	llm      gollm.LLM
	retry    RetryPolicy
}

// NewGollmClient builds an adapter for provider. An empty apiKey lets
// gollm read its provider-specific environment variable.
func NewGollmClient(provider, apiKey, model string) (*GollmClient, error) {
	if model == "" {
		model = DefaultModel()
	}
	opts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(ResolveModel(model)),
		gollm.SetMaxTokens(4096),
		gollm.SetTemperature(0.2),
		gollm.SetMaxRetries(0),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		opts = append(opts, gollm.SetAPIKey(apiKey))
	}
	inner, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("create gollm client for provider %s", provider), Cause: err,
		}}
	}
	return &GollmClient{provider: provider, llm: inner, retry: DefaultRetryPolicy()}, nil
}

// NewGollmClientFromLLM wraps an existing gollm.LLM, mainly for tests.
func NewGollmClientFromLLM(provider string, inner gollm.LLM) *GollmClient {
	return &GollmClient{provider: provider, llm: inner, retry: DefaultRetryPolicy()}
}

// Complete flattens the conversation into a gollm prompt and returns the
// generated text.
func (c *GollmClient) Complete(ctx context.Context, messages []Message, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	prompt := c.flatten(messages)

	return Retry(ctx, c.retry, func(ctx context.Context) (string, error) {
		text, err := c.llm.Generate(ctx, prompt)
		if err != nil {
			return "", c.classifyError(err)
		}
		if strings.TrimSpace(text) == "" {
			return "", &EmptyCompletionError{SDKError: SDKError{Message: "provider returned empty completion"}}
		}
		return text, nil
	})
}

// flatten joins the conversation into one prompt: system text becomes the
// gollm system prompt, the rest a role-tagged transcript.
func (c *GollmClient) flatten(messages []Message) *gollm.Prompt {
	var system string
	var parts []string
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += msg.Content
		case RoleAssistant:
			if msg.Content != "" {
				parts = append(parts, "[Assistant]: "+msg.Content)
			}
		default:
			parts = append(parts, msg.Content)
		}
	}
	text := strings.Join(parts, "\n")
	if text == "" {
		text = "Continue."
	}

	var opts []gollm.PromptOption
	if system != "" {
		opts = append(opts, gollm.WithSystemPrompt(strings.TrimSpace(system), gollm.CacheTypeEphemeral))
	}
	return gollm.NewPrompt(text, opts...)
}

// classifyError maps a gollm error onto the shared taxonomy by message
// content, the only signal gollm exposes.
func (c *GollmClient) classifyError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	pe := ProviderError{
		SDKError: SDKError{Message: msg, Cause: err},
		Provider: c.provider,
	}
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		pe.StatusCode = 401
		return &AuthenticationError{ProviderError: pe}
	case strings.Contains(lower, "403") || strings.Contains(lower, "forbidden"):
		pe.StatusCode = 403
		return &AccessDeniedError{ProviderError: pe}
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found"):
		pe.StatusCode = 404
		return &NotFoundError{ProviderError: pe}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		pe.StatusCode = 429
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		pe.StatusCode = 413
		return &ContextLengthError{ProviderError: pe}
	case strings.Contains(lower, "500") || strings.Contains(lower, "internal server"):
		pe.StatusCode = 500
		pe.Retryable = true
		return &ServerError{ProviderError: pe}
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return &RequestTimeoutError{SDKError: SDKError{Message: msg, Cause: err}}
	default:
		pe.Retryable = true
		return &pe
	}
}

var _ ChatClient = (*GollmClient)(nil)
