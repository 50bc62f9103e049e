package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/logger"
)

const (
	StrategyBrowser = "browser"

	defaultNavigationTimeout = 30 * time.Second
)

// BrowserConfig configures the headless browser strategy.
type BrowserConfig struct {
	Timeout   time.Duration
	ExecPath  string
	UserAgent string
}

// Browser renders pages in headless Chrome. A browser process is started and
// shut down inside every Fetch call.
type Browser struct {
	timeout   time.Duration
	execPath  string
	userAgent string
	logger    *zap.Logger
}

func NewBrowser(cfg BrowserConfig, log *zap.Logger) *Browser {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultNavigationTimeout
	}

	return &Browser{
		timeout:   timeout,
		execPath:  cfg.ExecPath,
		userAgent: cfg.UserAgent,
		logger:    logger.OrNop(log),
	}
}

func (b *Browser) Name() string { return StrategyBrowser }

func (b *Browser) Fetch(ctx context.Context, url string) (string, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}
	if b.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.userAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Start the browser before the navigation deadline begins.
	if err := chromedp.Run(browserCtx); err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}

	navCtx, cancelNav := context.WithTimeout(browserCtx, b.timeout)
	defer cancelNav()

	b.logger.Debug("rendering page", zap.String(logger.FieldURL, url), zap.Duration("timeout", b.timeout))

	var html string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}

	return html, nil
}
