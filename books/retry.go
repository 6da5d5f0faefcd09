package books

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryPolicy controls re-running a store read that failed with ErrBusy.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// EnvBusyRetries opts into retrying busy-store reads. Its value is the
// total number of attempts; unset, 0 or 1 disables retries.
const EnvBusyRetries = "APPLE_BOOKS_BUSY_RETRIES"

// DefaultRetryBackoff is the linear backoff step between busy-store attempts.
const DefaultRetryBackoff = 50 * time.Millisecond

// RetryPolicyFromEnv reads EnvBusyRetries. The zero policy means one attempt.
func RetryPolicyFromEnv(getenv func(string) string) (RetryPolicy, error) {
	raw := strings.TrimSpace(getenv(EnvBusyRetries))
	if raw == "" {
		return RetryPolicy{}, nil
	}
	attempts, err := strconv.Atoi(raw)
	if err != nil || attempts < 0 {
		return RetryPolicy{}, fmt.Errorf("%w: %s must be a non-negative integer, got %q", ErrInvalidArgument, EnvBusyRetries, raw)
	}
	if attempts <= 1 {
		return RetryPolicy{}, nil
	}
	return RetryPolicy{MaxAttempts: attempts, Backoff: DefaultRetryBackoff}, nil
}

// Enabled reports whether the policy allows more than one attempt.
func (p RetryPolicy) Enabled() bool {
	return p.MaxAttempts > 1
}

// RetryingLibrary wraps a Library and repeats calls that fail with ErrBusy.
// Every other outcome, including ErrNotFound, is returned unchanged.
type RetryingLibrary struct {
	next   Library
	policy RetryPolicy
	log    *logrus.Entry
}

var _ Library = (*RetryingLibrary)(nil)

// NewRetryingLibrary wraps next. A nil logger uses the logrus standard logger.
func NewRetryingLibrary(next Library, policy RetryPolicy, log *logrus.Entry) *RetryingLibrary {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &RetryingLibrary{
		next:   next,
		policy: normalizeRetryPolicy(policy),
		log:    log,
	}
}

func (r *RetryingLibrary) ListCollections(ctx context.Context) ([]Collection, error) {
	return withRetry(ctx, r, "ListCollections", func(ctx context.Context) ([]Collection, error) {
		return r.next.ListCollections(ctx)
	})
}

func (r *RetryingLibrary) GetCollection(ctx context.Context, id string) (Collection, error) {
	return withRetry(ctx, r, "GetCollection", func(ctx context.Context) (Collection, error) {
		return r.next.GetCollection(ctx, id)
	})
}

func (r *RetryingLibrary) ListBooks(ctx context.Context) ([]Book, error) {
	return withRetry(ctx, r, "ListBooks", func(ctx context.Context) ([]Book, error) {
		return r.next.ListBooks(ctx)
	})
}

func (r *RetryingLibrary) GetBook(ctx context.Context, id string) (Book, error) {
	return withRetry(ctx, r, "GetBook", func(ctx context.Context) (Book, error) {
		return r.next.GetBook(ctx, id)
	})
}

func (r *RetryingLibrary) ListAnnotations(ctx context.Context, opts ListOptions) ([]Annotation, error) {
	return withRetry(ctx, r, "ListAnnotations", func(ctx context.Context) ([]Annotation, error) {
		return r.next.ListAnnotations(ctx, opts)
	})
}

func (r *RetryingLibrary) GetAnnotation(ctx context.Context, id string) (Annotation, error) {
	return withRetry(ctx, r, "GetAnnotation", func(ctx context.Context) (Annotation, error) {
		return r.next.GetAnnotation(ctx, id)
	})
}

func (r *RetryingLibrary) AnnotationsByColor(ctx context.Context, color string) ([]Annotation, error) {
	return withRetry(ctx, r, "AnnotationsByColor", func(ctx context.Context) ([]Annotation, error) {
		return r.next.AnnotationsByColor(ctx, color)
	})
}

func (r *RetryingLibrary) SearchHighlightedText(ctx context.Context, text string) ([]Annotation, error) {
	return withRetry(ctx, r, "SearchHighlightedText", func(ctx context.Context) ([]Annotation, error) {
		return r.next.SearchHighlightedText(ctx, text)
	})
}

func (r *RetryingLibrary) SearchNotes(ctx context.Context, text string) ([]Annotation, error) {
	return withRetry(ctx, r, "SearchNotes", func(ctx context.Context) ([]Annotation, error) {
		return r.next.SearchNotes(ctx, text)
	})
}

func (r *RetryingLibrary) SearchText(ctx context.Context, text string) ([]Annotation, error) {
	return withRetry(ctx, r, "SearchText", func(ctx context.Context) ([]Annotation, error) {
		return r.next.SearchText(ctx, text)
	})
}

func withRetry[T any](ctx context.Context, r *RetryingLibrary, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if attempt >= r.policy.MaxAttempts || !errors.Is(err, ErrBusy) {
			return zero, err
		}
		r.log.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
		}).WithError(err).Debug("store busy, retrying")

		wait := retryBackoffDuration(r.policy, attempt)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

func normalizeRetryPolicy(policy RetryPolicy) RetryPolicy {
	out := policy
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 1
	}
	if out.Backoff < 0 {
		out.Backoff = 0
	}
	return out
}

// retryBackoffDuration grows linearly with the attempt number.
func retryBackoffDuration(policy RetryPolicy, attempt int) time.Duration {
	if policy.Backoff <= 0 || attempt <= 0 {
		return 0
	}
	return policy.Backoff * time.Duration(attempt)
}
