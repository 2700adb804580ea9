package llm

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy controls the backoff schedule of a retrying provider.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// retryingProvider retries Generate on transient upstream failures with
// exponential backoff. A Retry-After hint from a rate-limiting upstream
// replaces the computed wait. Health and model listing pass through.
//
// Only non-interactive call sites (bulk generation, final report) should
// wrap their provider; the per-turn interview path fails fast instead.
type retryingProvider struct {
	Provider
	policy RetryPolicy
	sleep  func(time.Duration)
	jitter func(max time.Duration) time.Duration
}

// WithRetry wraps p with the shared retry policy.
func WithRetry(p Provider, policy RetryPolicy) Provider {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}
	return &retryingProvider{
		Provider: p,
		policy:   policy,
		sleep:    time.Sleep,
		jitter: func(max time.Duration) time.Duration {
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

func (r *retryingProvider) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		text, err := r.Provider.Generate(ctx, prompt, opts)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == r.policy.MaxAttempts {
			break
		}

		wait := r.policy.BaseDelay << attempt // 1000ms * 2^attempt
		var ue *UpstreamError
		if errors.As(err, &ue) && ue.RateLimited() {
			if ue.RetryAfter > 0 {
				wait = time.Duration(ue.RetryAfter) * time.Second
			}
			r.sleep(wait + r.jitter(300*time.Millisecond))
			continue
		}
		r.sleep(wait + r.jitter(200*time.Millisecond))
	}
	return "", lastErr
}
