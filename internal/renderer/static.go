package renderer

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/logger"
)

const (
	StrategyStatic = "static"

	DefaultUserAgent = "Mozilla/5.0 (compatible; JobScraper/1.0)"

	defaultTimeout  = 30 * time.Second
	defaultMaxTries = 3
	maxBodySize     = 10 << 20
	acceptEncoding  = "gzip"
	acceptHTML      = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status: %s", e.Status)
}

// StaticConfig configures the plain HTTP strategy.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
	MaxTries  uint
	// Rate is the number of requests per second allowed per host.
	Rate float64
}

// Static fetches pages with a plain HTTP GET. It cannot run JavaScript.
type Static struct {
	HTTPClient *http.Client
	UserAgent  string

	maxTries uint
	limiter  *HostLimiter
	logger   *zap.Logger
	// initialInterval is the first retry delay.
	initialInterval time.Duration
}

func NewStatic(cfg StaticConfig, log *zap.Logger) *Static {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	maxTries := cfg.MaxTries
	if maxTries == 0 {
		maxTries = defaultMaxTries
	}

	return &Static{
		HTTPClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("stopped after 10 redirects")
				}
				return nil
			},
		},
		UserAgent:       userAgent,
		maxTries:        maxTries,
		limiter:         NewHostLimiter(cfg.Rate, 1),
		logger:          logger.OrNop(log),
		initialInterval: time.Second,
	}
}

func (s *Static) Name() string { return StrategyStatic }

func (s *Static) Fetch(ctx context.Context, url string) (string, error) {
	operation := func() (string, error) {
		if err := s.limiter.WaitURL(ctx, url); err != nil {
			return "", backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", backoff.Permanent(err)
		}

		req.Header.Set("User-Agent", s.UserAgent)
		req.Header.Set("Accept", acceptHTML)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept-Encoding", acceptEncoding)

		s.logger.Debug("make request", zap.String(logger.FieldURL, url))
		resp, err := s.HTTPClient.Do(req)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			statusErr := &StatusError{Code: resp.StatusCode, Status: resp.Status}
			if !isRetryableStatus(resp.StatusCode) {
				return "", backoff.Permanent(statusErr)
			}
			if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
				return "", fmt.Errorf("%w: %w", statusErr, backoff.RetryAfter(seconds))
			}
			return "", statusErr
		}

		body, err := readBody(resp)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}

		return string(body), nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.initialInterval
	bo.MaxInterval = 10 * time.Second

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(s.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Debug("retrying request",
				zap.String(logger.FieldURL, url),
				zap.Duration("next", next),
				zap.Error(err),
			)
		}),
	)
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}

	return io.ReadAll(io.LimitReader(reader, maxBodySize))
}
