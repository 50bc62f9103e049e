package filtering

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type httpOnlyFilter struct{}

// NewHTTPOnly creates a filter that keeps unique absolute http(s) URLs.
func NewHTTPOnly() Filter {
	return &httpOnlyFilter{}
}

func (f *httpOnlyFilter) Name() string { return "http_only" }

func (f *httpOnlyFilter) Disable(string) {}

func (f *httpOnlyFilter) IsEnabled() bool { return true }

func (f *httpOnlyFilter) Validate(*Config) error { return nil }

func (f *httpOnlyFilter) Apply(_ context.Context, deps Deps, urls []string) ([]string, Step, error) {
	initial := len(urls)
	seen := make(map[string]struct{}, len(urls))

	kept, dropped, _ := exclude(urls, func(raw string) (bool, error) {
		if _, ok := seen[raw]; ok {
			return true, nil
		}
		seen[raw] = struct{}{}

		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return true, nil
		}
		return u.Scheme != "http" && u.Scheme != "https", nil
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding non http or duplicate bookmarks",
			zap.Strings("excluded_urls", dropped),
			zap.Int("urls_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

type excludedHostsFilter struct {
	hosts []string
}

// NewExcludedHosts creates a filter that removes URLs on configured hosts.
// A configured host also matches its subdomains.
func NewExcludedHosts() Filter {
	return &excludedHostsFilter{}
}

func (f *excludedHostsFilter) Name() string { return "excluded_hosts" }

func (f *excludedHostsFilter) Disable(string) {}

func (f *excludedHostsFilter) IsEnabled() bool { return true }

func (f *excludedHostsFilter) Validate(cfg *Config) error {
	f.hosts = nil
	if cfg == nil {
		return nil
	}
	for _, h := range cfg.ExcludeHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			f.hosts = append(f.hosts, h)
		}
	}
	return nil
}

func (f *excludedHostsFilter) Apply(_ context.Context, deps Deps, urls []string) ([]string, Step, error) {
	initial := len(urls)
	if len(f.hosts) == 0 {
		return urls, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept, dropped, _ := exclude(urls, func(raw string) (bool, error) {
		u, err := url.Parse(raw)
		if err != nil {
			return false, nil
		}
		return f.matches(strings.ToLower(u.Hostname())), nil
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding urls by host",
			zap.Strings("excluded_hosts", f.hosts),
			zap.Strings("excluded_urls", dropped),
			zap.Int("urls_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *excludedHostsFilter) matches(host string) bool {
	for _, h := range f.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (f *excludedHostsFilter) Status() Status {
	details := map[string]string{}
	if len(f.hosts) > 0 {
		details["hosts"] = strings.Join(f.hosts, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type alreadyStoredFilter struct {
	disabled bool
	reason   string
}

// NewAlreadyStored creates a filter that removes URLs already saved as jobs.
func NewAlreadyStored() Filter {
	return &alreadyStoredFilter{}
}

func (f *alreadyStoredFilter) Name() string { return "already_stored" }

func (f *alreadyStoredFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *alreadyStoredFilter) IsEnabled() bool { return !f.disabled }

func (f *alreadyStoredFilter) Validate(*Config) error { return nil }

func (f *alreadyStoredFilter) Apply(ctx context.Context, deps Deps, urls []string) ([]string, Step, error) {
	initial := len(urls)
	if deps.Store == nil {
		return urls, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept, dropped, err := exclude(urls, func(u string) (bool, error) {
		return deps.Store.Exists(ctx, u)
	})
	if err != nil {
		return urls, Step{}, err
	}

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding already stored jobs",
			zap.Int("excluded", len(dropped)),
			zap.Int("urls_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *alreadyStoredFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type knownFailuresFilter struct {
	skip    bool
	include map[string]struct{}
}

// NewKnownFailures creates a filter that removes URLs which failed before,
// when skipping previous failures is requested.
func NewKnownFailures() Filter {
	return &knownFailuresFilter{}
}

func (f *knownFailuresFilter) Name() string { return "known_failures" }

func (f *knownFailuresFilter) Disable(string) {}

func (f *knownFailuresFilter) IsEnabled() bool { return true }

func (f *knownFailuresFilter) Validate(cfg *Config) error {
	f.skip = false
	f.include = map[string]struct{}{}
	if cfg == nil {
		return nil
	}
	f.skip = cfg.SkipPreviousFailures
	for _, u := range cfg.Include {
		if u = strings.TrimSpace(u); u != "" {
			f.include[u] = struct{}{}
		}
	}
	return nil
}

func (f *knownFailuresFilter) Apply(_ context.Context, deps Deps, urls []string) ([]string, Step, error) {
	initial := len(urls)
	if !f.skip || deps.Failures == nil {
		return urls, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept, dropped, _ := exclude(urls, func(u string) (bool, error) {
		if _, ok := f.include[u]; ok {
			return false, nil
		}
		return deps.Failures.Failed(u), nil
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding previously failed urls",
			zap.Strings("excluded_urls", dropped),
			zap.Int("urls_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *knownFailuresFilter) Status() Status {
	details := map[string]string{
		"skip_previous_failures": strconv.FormatBool(f.skip),
	}
	if len(f.include) > 0 {
		details["included"] = strconv.Itoa(len(f.include))
	}
	reason := ""
	if !f.skip {
		reason = "previous failures are retried"
	}
	return Status{Name: f.Name(), Enabled: true, Reason: reason, Details: details}
}
