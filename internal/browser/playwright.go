package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/playwright-community/playwright-go"

	"github.com/nbenliogludev/go-nav-guide/internal/agent"
	"github.com/nbenliogludev/go-nav-guide/internal/snapshot"
)

const (
	LoadStateLoad             = "load"
	LoadStateDomcontentloaded = "domcontentloaded"
	LoadStateNetworkidle      = "networkidle"
)

// Manager drives a persistent Chromium profile through Playwright.
type Manager struct {
	pw        *playwright.Playwright
	Context   playwright.BrowserContext
	Page      playwright.Page
	extractor *snapshot.Extractor
	loadTour  string
}

// Once a tour runs, driver.css disables pointer events on everything but
// the highlighted element, so Playwright's hit-target check would never
// pass for later steps. The click is dispatched like the CDP driver does.
var forceClick = playwright.LocatorClickOptions{Force: playwright.Bool(true)}

func NewManager(opts Options) (*Manager, error) {
	opts = opts.withDefaults()

	if err := playwright.Install(); err != nil {
		return nil, fmt.Errorf("install pw failed: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start pw failed: %w", err)
	}

	userDataDir := opts.UserDataDir
	if userDataDir == "" {
		wd, _ := os.Getwd()
		userDataDir = filepath.Join(wd, ".playwright_data")
	}

	bctx, err := pw.Chromium.LaunchPersistentContext(
		userDataDir,
		playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(opts.Headless),
			Viewport: &playwright.Size{Width: 1280, Height: 720},
			Args: []string{
				"--disable-blink-features=AutomationControlled",
			},
		},
	)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}

	var page playwright.Page
	pages := bctx.Pages()
	if len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = bctx.NewPage()
		if err != nil {
			_ = bctx.Close()
			_ = pw.Stop()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	timeoutMs := float64(opts.Timeout.Milliseconds())
	page.SetDefaultTimeout(timeoutMs)
	page.SetDefaultNavigationTimeout(timeoutMs)

	return &Manager{
		pw:        pw,
		Context:   bctx,
		Page:      page,
		extractor: opts.Extractor,
		loadTour:  loadDriverScript(opts.TourStyleURL, opts.TourScriptURL),
	}, nil
}

func (m *Manager) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.Page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("could not navigate to %s: %w", url, err)
	}
	state := playwright.LoadState(LoadStateNetworkidle)
	// Some pages never go idle; the snapshot is still usable.
	_ = m.Page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: &state})
	return nil
}

// Capture snapshots the current page content.
func (m *Manager) Capture(ctx context.Context) (*snapshot.PageSnapshot, error) {
	if m == nil || m.Page == nil {
		return nil, fmt.Errorf("page is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	html, err := m.Page.Content()
	if err != nil {
		return nil, fmt.Errorf("read page content: %w", err)
	}

	snap := m.extractor.Extract(m.Page.URL(), html)
	if title, err := m.Page.Title(); err == nil && title != "" {
		snap.Title = title
	}
	return snap, nil
}

func (m *Manager) Exists(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n, err := m.Page.Locator(selector).Count()
	if err != nil {
		return false, fmt.Errorf("count %s: %w", selector, err)
	}
	return n > 0, nil
}

func (m *Manager) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := m.Page.Locator(selector).First()
	if err := loc.ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return loc.Click(forceClick)
}

// Show loads driver.js into the page and starts the tour. If the library
// cannot be loaded the first step is outlined instead.
func (m *Manager) Show(ctx context.Context, tour agent.Tour) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(tour.Steps) == 0 {
		return nil
	}

	if _, err := m.Page.Evaluate(m.loadTour); err != nil {
		slog.Warn("driver.js unavailable, falling back to outline", "error", err)
		_, herr := m.Page.Evaluate(highlightScript(tour.Steps[0].Element))
		return herr
	}

	script, err := startTourScript(tour)
	if err != nil {
		return err
	}
	if _, err := m.Page.Evaluate(script); err != nil {
		return fmt.Errorf("start tour: %w", err)
	}
	return nil
}

func (m *Manager) Close() {
	if m.Context != nil {
		_ = m.Context.Close()
	}
	if m.pw != nil {
		_ = m.pw.Stop()
	}
}
