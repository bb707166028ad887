package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// RetryProvider repeats completions that failed for transient reasons:
// rate limits, overloaded or failing upstreams, dropped connections.
// Waits double from the base delay up to a ceiling.
type RetryProvider struct {
	inner     Provider
	retries   int
	baseDelay time.Duration
	maxDelay  time.Duration
	log       *zap.Logger
}

type RetryOption func(*RetryProvider)

func WithRetryLogger(l *zap.Logger) RetryOption {
	return func(r *RetryProvider) {
		if l != nil {
			r.log = l
		}
	}
}

func WithRetryDelays(base, ceiling time.Duration) RetryOption {
	return func(r *RetryProvider) { r.baseDelay, r.maxDelay = base, ceiling }
}

// WithRetry wraps p. retries is the number of extra attempts; zero disables
// retrying.
func WithRetry(p Provider, retries int, opts ...RetryOption) *RetryProvider {
	r := &RetryProvider{
		inner:     p,
		retries:   max(retries, 0),
		baseDelay: 500 * time.Millisecond,
		maxDelay:  30 * time.Second,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *RetryProvider) Name() string      { return r.inner.Name() }
func (r *RetryProvider) ModelName() string { return r.inner.ModelName() }

func (r *RetryProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	for attempt := 0; ; attempt++ {
		out, err := r.inner.Complete(ctx, req)
		if err == nil || !transient(err) || ctx.Err() != nil {
			return out, err
		}
		if attempt == r.retries {
			return Completion{}, fmt.Errorf("provider %s: gave up after %d attempts: %w", r.inner.Name(), attempt+1, err)
		}

		wait := r.delay(attempt)
		r.log.Warn("completion failed, retrying",
			zap.String("provider", r.inner.Name()),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))
		if !sleep(ctx, wait) {
			return Completion{}, err
		}
	}
}

func (r *RetryProvider) delay(attempt int) time.Duration {
	d := r.baseDelay
	for i := 0; i < attempt && d < r.maxDelay; i++ {
		d *= 2
	}
	return min(d, r.maxDelay)
}

// transient reports whether another attempt may succeed.
func transient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests, 529:
			return true
		}
		return se.StatusCode >= 500 && se.StatusCode != http.StatusNotImplemented
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
