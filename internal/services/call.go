package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-wine-scanner/internal/ai"
)

// CallPolicy bounds every external call: a deadline per attempt and at most
// one retry.
type CallPolicy struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

func (p CallPolicy) normalized() CallPolicy {
	if p.Timeout <= 0 {
		p.Timeout = 20 * time.Second
	}
	if p.Retries < 0 {
		p.Retries = 0
	}
	if p.Retries > 1 {
		p.Retries = 1
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

// callStage runs fn under policy. Each attempt gets its own deadline.
// Provider errors that cannot succeed on retry, and cancellation of the
// parent context, stop immediately. Returns ErrCanceled when ctx is done,
// otherwise an *UpstreamError on failure.
func callStage[T any](ctx context.Context, p CallPolicy, stage string, fn func(context.Context) (T, error)) (T, error) {
	p = p.normalized()
	attempts := 0

	op := func() (T, error) {
		attempts++
		actx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()
		actx = zerolog.Ctx(ctx).With().Str("stage", stage).Logger().WithContext(actx)

		start := time.Now()
		out, err := fn(actx)
		upstreamLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return out, backoff.Permanent(ctx.Err())
		}
		zerolog.Ctx(ctx).Warn().
			Str("stage", stage).
			Int("attempt", attempts).
			Err(err).
			Msg("upstream call failed")
		if ai.IsPermanent(err) {
			return out, backoff.Permanent(err)
		}
		return out, err
	}

	out, err := backoff.Retry(ctx, op,
		backoff.WithMaxTries(uint(p.Retries+1)),
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Backoff)),
		backoff.WithMaxElapsedTime(0),
	)
	if err == nil {
		return out, nil
	}
	var zero T
	if ctx.Err() != nil {
		return zero, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return zero, &UpstreamError{Stage: stage, Attempts: attempts, Err: err}
}

// withDeadline bounds a whole request by d. Zero means no bound beyond ctx.
func withDeadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// deadlineError reports err as ErrDeadline when the request deadline on ctx
// ended the work while parent is still live.
func deadlineError(parent, ctx context.Context, err error) error {
	if err == nil || parent.Err() != nil || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrCanceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrDeadline, context.DeadlineExceeded)
	}
	return err
}

// generateJSON sends req through c and decodes the JSON object in the reply
// into a fresh T. A reply that cannot be decoded counts as a failed attempt.
func generateJSON[T any](c ai.Client, req ai.Request) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var out T
		res, err := c.Generate(ctx, req)
		if err != nil {
			return out, err
		}
		logUsage(ctx, c, req, res)
		if err := ai.DecodeJSON(res.Text, &out); err != nil {
			return out, err
		}
		return out, nil
	}
}

// logUsage records the token counts of one answered model call.
func logUsage(ctx context.Context, c ai.Client, req ai.Request, res *ai.Response) {
	zerolog.Ctx(ctx).Info().
		Str("provider", c.Name()).
		Str("model", req.Model).
		Int64("input_tokens", res.Usage.InputTokens).
		Int64("output_tokens", res.Usage.OutputTokens).
		Msg("model call")
}
