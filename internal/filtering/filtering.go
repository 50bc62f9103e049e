// Package filtering narrows the bookmarked URL list before it reaches the pipeline.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Filter represents a single filtering step applied to candidate URLs.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, urls []string) ([]string, Step, error)
}

// Stored answers whether a job for the URL is already persisted.
type Stored interface {
	Exists(ctx context.Context, url string) (bool, error)
}

// Failures answers whether a URL failed in an earlier run.
type Failures interface {
	Failed(url string) bool
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger   *zap.Logger
	Store    Stored
	Failures Failures
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	ExcludeHosts []string
	// SkipPreviousFailures drops URLs present in the failure ledger.
	SkipPreviousFailures bool
	// Include lists URLs that are kept even if they failed before.
	Include []string
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Default returns the standard filter chain in execution order.
func Default() []Filter {
	return []Filter{
		NewHTTPOnly(),
		NewExcludedHosts(),
		NewAlreadyStored(),
		NewKnownFailures(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and returns the URLs left.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, urls []string) ([]string, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Info("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		next, info, err := step.Apply(ctx, deps, urls)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		urls = next
	}

	return urls, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// exclude splits urls into those kept and those drop reports true for.
func exclude(urls []string, drop func(string) (bool, error)) ([]string, []string, error) {
	kept := make([]string, 0, len(urls))
	var dropped []string
	for _, u := range urls {
		remove, err := drop(u)
		if err != nil {
			return nil, nil, err
		}
		if remove {
			dropped = append(dropped, u)
			continue
		}
		kept = append(kept, u)
	}
	return kept, dropped, nil
}
