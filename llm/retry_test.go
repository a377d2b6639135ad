package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyDelay(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 1.0, BackoffMultiplier: 2.0, MaxDelay: 60.0}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, expected := range want {
		if got := policy.Delay(i); got != expected {
			t.Errorf("attempt %d: delay = %v, want %v", i, got, expected)
		}
	}
}

func TestRetryPolicyDelayCap(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 1.0, BackoffMultiplier: 2.0, MaxDelay: 5.0}
	if got := policy.Delay(10); got != 5*time.Second {
		t.Errorf("delay = %v, want capped 5s", got)
	}
}

func TestRetryPolicyJitterRange(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 1.0, BackoffMultiplier: 2.0, MaxDelay: 60.0, Jitter: true}
	for i := 0; i < 100; i++ {
		got := policy.Delay(0)
		if got < 500*time.Millisecond || got > 1500*time.Millisecond {
			t.Fatalf("jittered delay out of range: %v", got)
		}
	}
}

func TestRetryRecovers(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: 0.001, MaxDelay: 0.001, BackoffMultiplier: 1}

	calls := 0
	result, err := Retry(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &ServerError{ProviderError: ProviderError{
				SDKError: SDKError{Message: "server error"}, Retryable: true,
			}}
		}
		return "success", nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if result != "success" || calls != 3 {
		t.Errorf("result=%q calls=%d", result, calls)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: 0.001, MaxDelay: 0.001, BackoffMultiplier: 1}

	calls := 0
	_, err := Retry(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		return "", &AuthenticationError{ProviderError: ProviderError{
			SDKError: SDKError{Message: "invalid key"},
		}}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 1, BaseDelay: 10, MaxDelay: 60, BackoffMultiplier: 1}
	after := 0.01

	calls := 0
	start := time.Now()
	_, err := Retry(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		return "", &RateLimitError{ProviderError: ProviderError{
			SDKError: SDKError{Message: "slow down"}, Retryable: true, RetryAfter: &after,
		}}
	})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	// Retry-After (10ms) should have replaced the 10s base delay.
	if took := time.Since(start); took > 2*time.Second {
		t.Errorf("retry waited %v; Retry-After not honored", took)
	}
}

func TestRetryRetryAfterBeyondMaxDelayFailsFast(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: 0.001, MaxDelay: 0.05, BackoffMultiplier: 1}
	after := 10.0

	calls := 0
	_, err := Retry(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		return "", &RateLimitError{ProviderError: ProviderError{
			SDKError: SDKError{Message: "slow down"}, Retryable: true, RetryAfter: &after,
		}}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want immediate return", calls)
	}
}

func TestRetryCancelled(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, BaseDelay: 1.0, MaxDelay: 1.0, BackoffMultiplier: 1}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Retry(ctx, policy, func(ctx context.Context) (string, error) {
		return "", &ServerError{ProviderError: ProviderError{
			SDKError: SDKError{Message: "server error"}, Retryable: true,
		}}
	})
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("expected AbortError, got %v", err)
	}
}
