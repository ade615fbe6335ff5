package inference

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultInterval = 3 * time.Second
	DefaultMaxWait  = 300 * time.Second
)

// RunOptions bounds the polling loop. Zero values take the defaults.
type RunOptions struct {
	Interval time.Duration
	MaxWait  time.Duration
	Logger   *zap.Logger
}

func (o RunOptions) withDefaults() RunOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultMaxWait
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Run submits job to p and polls until it succeeds, fails, or the wait
// limit passes. It returns the result URL.
func Run(ctx context.Context, p Provider, job Job, opts RunOptions) (string, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With(zap.String("provider", p.Name()), zap.Stringer("kind", job.Kind))

	h, err := p.Submit(ctx, job)
	if err != nil {
		return "", err
	}
	if h.Done {
		log.Info("inference job finished on submit", zap.String("id", h.ID))
		return resultOf(p, h.ID, h.Output)
	}
	log.Info("inference job submitted", zap.String("id", h.ID))

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, opts.MaxWait)
	defer cancel()

	// First poll goes out after one interval.
	limiter := rate.NewLimiter(rate.Every(opts.Interval), 1)
	limiter.Allow()

	for {
		if err := limiter.Wait(ctx); err != nil {
			return "", waitError(parent, p, h, opts.MaxWait)
		}
		st, err := p.Poll(ctx, h)
		if err != nil {
			if ctx.Err() != nil || parent.Err() != nil {
				return "", waitError(parent, p, h, opts.MaxWait)
			}
			return "", err
		}
		switch st.State {
		case Succeeded:
			log.Info("inference job succeeded", zap.String("id", h.ID))
			return resultOf(p, h.ID, st.Output)
		case Failed:
			reason := st.Err
			if reason == "" {
				reason = "unknown error"
			}
			return "", fmt.Errorf("%s: job %s: %s: %w", p.Name(), h.ID, reason, ErrJobFailed)
		}
		log.Debug("inference job pending", zap.String("id", h.ID))
	}
}

func resultOf(p Provider, id, output string) (string, error) {
	if output == "" {
		return "", fmt.Errorf("%s: job %s returned no output: %w", p.Name(), id, ErrJobFailed)
	}
	return output, nil
}

// waitError separates the caller giving up from the wait limit expiring.
// The limiter refuses to wait past the deadline without the context being
// done yet, so anything but a done parent counts as a timeout.
func waitError(parent context.Context, p Provider, h Handle, limit time.Duration) error {
	if perr := parent.Err(); perr != nil {
		return fmt.Errorf("%s: job %s: %w", p.Name(), h.ID, perr)
	}
	return fmt.Errorf("%s: job %s after %s: %w", p.Name(), h.ID, limit, ErrJobTimeout)
}
