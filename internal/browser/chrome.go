package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/nbenliogludev/go-nav-guide/internal/agent"
	"github.com/nbenliogludev/go-nav-guide/internal/snapshot"
)

// CDPSession drives a Chrome tab directly over the DevTools protocol.
type CDPSession struct {
	Ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	timeout     time.Duration
	extractor   *snapshot.Extractor
	loadTour    string
}

func NewCDPSession(opts Options) (*CDPSession, error) {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 720),
	)
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Starts the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome failed: %w", err)
	}

	return &CDPSession{
		Ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		timeout:     opts.Timeout,
		extractor:   opts.Extractor,
		loadTour:    loadDriverScript(opts.TourStyleURL, opts.TourScriptURL),
	}, nil
}

// WithTimeout derives a context bound to the tab.
func (s *CDPSession) WithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.Ctx, d)
}

// run executes actions on the tab, stopping early if ctx is cancelled.
func (s *CDPSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := s.WithTimeout(s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(runCtx, actions...)
}

func (s *CDPSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("could not navigate to %s: %w", url, err)
	}
	return nil
}

func (s *CDPSession) Capture(ctx context.Context) (*snapshot.PageSnapshot, error) {
	var html, url, title string
	err := s.run(ctx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&url),
		chromedp.Title(&title),
	)
	if err != nil {
		return nil, fmt.Errorf("read page content: %w", err)
	}

	snap := s.extractor.Extract(url, html)
	if title != "" {
		snap.Title = title
	}
	return snap, nil
}

func (s *CDPSession) Exists(ctx context.Context, selector string) (bool, error) {
	nodes, err := s.query(ctx, selector)
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

func (s *CDPSession) Click(ctx context.Context, selector string) error {
	nodes, err := s.query(ctx, selector)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("no element matches %s", selector)
	}
	backendNodeID := nodes[0].BackendNodeID

	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().
			WithBackendNodeID(backendNodeID).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node failed: %w", err)
		}
		if obj == nil || obj.ObjectID == "" {
			return fmt.Errorf("object id is empty (node might be detached)")
		}

		_, exc, err := runtime.CallFunctionOn(clickFunction).
			WithObjectID(obj.ObjectID).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("click threw: %s", exc.Text)
		}
		return nil
	}))
}

func (s *CDPSession) query(ctx context.Context, selector string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	return nodes, nil
}

func (s *CDPSession) Show(ctx context.Context, tour agent.Tour) error {
	if len(tour.Steps) == 0 {
		return nil
	}

	var loaded bool
	err := s.run(ctx, chromedp.Evaluate(s.loadTour, &loaded, awaitPromise))
	if err != nil {
		slog.Warn("driver.js unavailable, falling back to outline", "error", err)
		var ok bool
		return s.run(ctx, chromedp.Evaluate(highlightScript(tour.Steps[0].Element), &ok))
	}

	script, err := startTourScript(tour)
	if err != nil {
		return err
	}
	var started bool
	if err := s.run(ctx, chromedp.Evaluate(script, &started)); err != nil {
		return fmt.Errorf("start tour: %w", err)
	}
	return nil
}

func (s *CDPSession) Close() {
	if s.cancelTab != nil {
		s.cancelTab()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}
