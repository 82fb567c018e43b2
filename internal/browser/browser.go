package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultNavigationTimeout bounds how long a page may take to finish
// loading. Consent scripts are injected early, so a page that exceeds this
// is still inspected with whatever rendered rather than abandoned; the
// original prototype behaved the same way with its Selenium driver.
const DefaultNavigationTimeout = 30 * time.Second

// Config holds browser settings.
type Config struct {
	// Headless runs Chromium without a display. Always true in normal
	// operation; disable for debugging fingerprint issues.
	Headless bool

	// Bin is an explicit Chromium binary path. Empty means let the
	// launcher resolve (downloading a managed revision if necessary).
	Bin string

	// NavigationTimeout is the per-page load deadline. Zero means
	// DefaultNavigationTimeout.
	NavigationTimeout time.Duration
}

// DefaultConfig returns the settings used by normal crawl runs.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		NavigationTimeout: DefaultNavigationTimeout,
	}
}

// Provider owns the browser process for a run. It is not safe for
// concurrent use; the crawl loop is strictly sequential.
type Provider struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      Config
	logger   *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets a custom logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New launches a browser process and connects to it.
func New(cfg Config, opts ...Option) (*Provider, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}

	p := &Provider{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	l := launcher.New().Headless(cfg.Headless)
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	p.browser = b
	p.launcher = l
	p.logger.Debug("browser launched", "headless", cfg.Headless)
	return p, nil
}

// Close shuts the browser process down. Safe to call once per Provider.
func (p *Provider) Close() error {
	err := p.browser.Close()
	p.launcher.Cleanup()
	return err
}

// Load navigates a fresh page to url and waits for it to load. The page
// is returned even when the load deadline is hit, because consent tags
// are typically present long before slow third-party assets finish.
// Callers must Close the page on every exit path.
func (p *Provider) Load(ctx context.Context, url string) (*Page, error) {
	page, err := p.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigationTimeout)
	defer cancel()

	scoped := page.Context(loadCtx)
	if err := scoped.Navigate(url); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := scoped.WaitLoad(); err != nil {
		if errors.Is(loadCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			p.logger.Warn("page load timed out, continuing with partial render", "url", url)
		} else {
			_ = page.Close()
			return nil, fmt.Errorf("failed to load %s: %w", url, err)
		}
	}

	return &Page{page: page, url: url, logger: p.logger}, nil
}

// Page is one rendered page. It exposes exactly the capabilities the CMP
// adapters need: the rendered HTML, a parsed document for selector
// queries, and read-only script evaluation.
type Page struct {
	page   *rod.Page
	url    string
	logger *slog.Logger

	html string
	doc  *goquery.Document
}

// URL returns the URL the page was navigated to.
func (pg *Page) URL() string {
	return pg.url
}

// HTML returns the rendered page source. The snapshot is taken once and
// cached: adapters run several regexes over it and the DOM does not
// change meaningfully between detection attempts.
func (pg *Page) HTML() (string, error) {
	if pg.html != "" {
		return pg.html, nil
	}
	html, err := pg.page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page source: %w", err)
	}
	pg.html = html
	return html, nil
}

// Document returns the rendered source parsed for selector queries.
func (pg *Page) Document() (*goquery.Document, error) {
	if pg.doc != nil {
		return pg.doc, nil
	}
	html, err := pg.HTML()
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page source: %w", err)
	}
	pg.doc = doc
	return doc, nil
}

// Eval evaluates a JavaScript expression in the page and returns the
// result serialized as JSON. The expression must be a pure read; the
// fetcher uses this for consent objects the platform exposes on the page
// itself instead of on its CDN.
func (pg *Page) Eval(ctx context.Context, expr string) (string, error) {
	res, err := pg.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: fmt.Sprintf(`() => JSON.stringify(%s)`, expr),
	})
	if err != nil {
		return "", fmt.Errorf("failed to evaluate expression: %w", err)
	}
	if res.Value.Nil() {
		return "", fmt.Errorf("expression %q evaluated to nothing", expr)
	}
	return res.Value.Str(), nil
}

// Close releases the page. Must run on every exit path of a target so a
// long batch never accumulates open pages.
func (pg *Page) Close() error {
	return pg.page.Close()
}
