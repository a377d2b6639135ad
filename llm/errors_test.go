package llm

import (
	"errors"
	"testing"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
		check     func(error) bool
	}{
		{400, false, func(err error) bool { var e *InvalidRequestError; return errors.As(err, &e) }},
		{401, false, func(err error) bool { var e *AuthenticationError; return errors.As(err, &e) }},
		{403, false, func(err error) bool { var e *AccessDeniedError; return errors.As(err, &e) }},
		{404, false, func(err error) bool { var e *NotFoundError; return errors.As(err, &e) }},
		{408, true, func(err error) bool { var e *RequestTimeoutError; return errors.As(err, &e) }},
		{413, false, func(err error) bool { var e *ContextLengthError; return errors.As(err, &e) }},
		{422, false, func(err error) bool { var e *InvalidRequestError; return errors.As(err, &e) }},
		{429, true, func(err error) bool { var e *RateLimitError; return errors.As(err, &e) }},
		{500, true, func(err error) bool { var e *ServerError; return errors.As(err, &e) }},
		{503, true, func(err error) bool { var e *ServerError; return errors.As(err, &e) }},
		{418, true, func(err error) bool { var e *ProviderError; return errors.As(err, &e) }},
	}
	for _, tt := range tests {
		err := ErrorFromStatusCode(tt.status, "boom", "openai", nil)
		if !tt.check(err) {
			t.Errorf("status %d: wrong kind: %T", tt.status, err)
		}
		if IsRetryable(err) != tt.retryable {
			t.Errorf("status %d: IsRetryable = %v, want %v", tt.status, IsRetryable(err), tt.retryable)
		}
	}
}

func TestIsRetryableDefaults(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
	if !IsRetryable(errors.New("mystery")) {
		t.Error("unknown errors default to retryable")
	}
	if IsRetryable(&ConfigurationError{SDKError: SDKError{Message: "no key"}}) {
		t.Error("configuration errors are terminal")
	}
	if !IsRetryable(&EmptyCompletionError{SDKError: SDKError{Message: "empty"}}) {
		t.Error("empty completions are worth retrying")
	}
}

func TestSDKErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &SDKError{Message: "wrapper", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap chain broken")
	}
	if err.Error() != "wrapper: root cause" {
		t.Errorf("Error() = %q", err.Error())
	}
}
