package renderer

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/jobs"
	"github.com/spigell/job-board/internal/logger"
)

// Fetcher returns the raw HTML of a page.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}

// Chain tries its strategies in order and returns the first page obtained.
type Chain struct {
	fetchers []Fetcher
	logger   *zap.Logger
}

func NewChain(log *zap.Logger, fetchers ...Fetcher) *Chain {
	kept := make([]Fetcher, 0, len(fetchers))
	for _, f := range fetchers {
		if f != nil {
			kept = append(kept, f)
		}
	}

	return &Chain{fetchers: kept, logger: logger.OrNop(log)}
}

func (c *Chain) Name() string { return "chain" }

// Strategies lists the strategy names in the order they are tried.
func (c *Chain) Strategies() []string {
	names := make([]string, 0, len(c.fetchers))
	for _, f := range c.fetchers {
		names = append(names, f.Name())
	}
	return names
}

// Fetch returns the first successful result. When every strategy fails the
// returned error wraps jobs.ErrFetch and each strategy's error.
func (c *Chain) Fetch(ctx context.Context, url string) (string, error) {
	if len(c.fetchers) == 0 {
		return "", fmt.Errorf("%w: no fetch strategies configured", jobs.ErrFetch)
	}

	var errs error
	for _, f := range c.fetchers {
		html, err := f.Fetch(ctx, url)
		if err == nil {
			c.logger.Debug("page fetched",
				zap.String(logger.FieldURL, url),
				zap.String("strategy", f.Name()),
				zap.Int("html_length", len(html)),
			)
			return html, nil
		}

		c.logger.Warn("fetch strategy failed",
			zap.String(logger.FieldURL, url),
			zap.String("strategy", f.Name()),
			zap.Error(err),
		)
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", f.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("%w: %w", jobs.ErrFetch, errs)
}
