package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OpenAIClient speaks the OpenAI chat-completions wire format against any
// compatible base URL, which covers Groq, OpenAI, and local gateways. It
// prefers a JSON-object response format and falls back once, without the
// hint, when the provider rejects it.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	retry      RetryPolicy
	logger     *zap.Logger
}

// NewOpenAIClient builds a client for the given endpoint. Empty baseURL
// targets Groq; empty model uses the catalog default; nil logger is a nop.
func NewOpenAIClient(baseURL, apiKey, model string, logger *zap.Logger) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      ResolveModel(model),
		httpClient: &http.Client{},
		retry:      DefaultRetryPolicy(),
		logger:     logger,
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete sends the conversation and returns the assistant text.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, timeout time.Duration) (string, error) {
	if c.apiKey == "" {
		return "", &ConfigurationError{SDKError: SDKError{Message: "no API key configured"}}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	requestID := uuid.New().String()[:8]
	jsonMode := true
	if info := GetModelInfo(c.model); info != nil && !info.SupportsJSON {
		jsonMode = false
	}

	return Retry(ctx, c.retry, func(ctx context.Context) (string, error) {
		text, err := c.call(ctx, messages, jsonMode, requestID)
		if err != nil && jsonMode && mentionsResponseFormat(err) {
			// Provider rejected the json_object hint; retry once bare and
			// remember for the remaining attempts.
			jsonMode = false
			c.logger.Debug("retrying without response_format",
				zap.String("requestId", requestID))
			text, err = c.call(ctx, messages, false, requestID)
		}
		return text, err
	})
}

func (c *OpenAIClient) call(ctx context.Context, messages []Message, jsonMode bool, requestID string) (string, error) {
	payload := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.2,
	}
	if jsonMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &SDKError{Message: "encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &SDKError{Message: "build request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", &RequestTimeoutError{SDKError: SDKError{Message: "chat completion timed out", Cause: err}}
		}
		return "", &NetworkError{SDKError: SDKError{Message: "chat completion request failed", Cause: err}}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{SDKError: SDKError{Message: "read response body", Cause: err}}
	}
	c.logger.Debug("chat completion",
		zap.String("requestId", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := providerMessage(raw)
		return "", ErrorFromStatusCode(resp.StatusCode, message, "openai", retryAfterSeconds(resp))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &SDKError{Message: "decode response", Cause: err}
	}
	if out.Error != nil {
		return "", &ProviderError{
			SDKError: SDKError{Message: out.Error.Message},
			Provider: "openai",
		}
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", &EmptyCompletionError{SDKError: SDKError{Message: "provider returned empty completion"}}
	}
	return out.Choices[0].Message.Content, nil
}

// providerMessage digs the error message out of an error body, falling
// back to the raw body.
func providerMessage(raw []byte) string {
	var body struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

func retryAfterSeconds(resp *http.Response) *float64 {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return nil
	}
	if secs, err := strconv.ParseFloat(header, 64); err == nil {
		return &secs
	}
	return nil
}

func mentionsResponseFormat(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "response_format")
}

var _ ChatClient = (*OpenAIClient)(nil)
