package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nbenliogludev/go-nav-guide/internal/agent"
	"github.com/nbenliogludev/go-nav-guide/internal/browser"
	"github.com/nbenliogludev/go-nav-guide/internal/llm"
	"github.com/nbenliogludev/go-nav-guide/internal/snapshot"
)

type guideFlags struct {
	url      string
	auto     bool
	driver   string
	headless bool
}

func newGuideCommand(a *app) *cobra.Command {
	f := &guideFlags{}

	cmd := &cobra.Command{
		Use:   "guide",
		Short: "Open a page and answer navigation questions about it",
		Long: `Opens the page, snapshots it once, then reads questions from stdin.
Each answer is printed as numbered steps and highlighted on the page.

Commands inside the session:
  /auto on|off   toggle clicking through the steps
  /quit          end the session

Ctrl+C aborts the running walkthrough; a second Ctrl+C ends the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.url == "" {
				return errors.New("--url is required")
			}
			if cmd.Flags().Changed("auto") {
				a.cfg.Executor.AutoInteract = f.auto
			}
			if cmd.Flags().Changed("driver") {
				a.cfg.Browser.Driver = f.driver
			}
			if cmd.Flags().Changed("headless") {
				a.cfg.Browser.Headless = f.headless
			}
			return a.runGuide(cmd.Context(), f.url, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&f.url, "url", "", "page to open")
	cmd.Flags().BoolVar(&f.auto, "auto", false, "click through the steps after highlighting them")
	cmd.Flags().StringVar(&f.driver, "driver", browser.DriverPlaywright, "browser driver: playwright or chromedp")
	cmd.Flags().BoolVar(&f.headless, "headless", false, "run the browser without a window")
	return cmd
}

func (a *app) runGuide(ctx context.Context, url string, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	scfg := a.cfg.SnapshotConfig()
	scfg.Logger = a.logger
	bopts := a.cfg.BrowserOptions()
	bopts.Extractor = snapshot.NewExtractor(scfg)

	driver, err := browser.Open(a.cfg.Browser.Driver, bopts)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer driver.Close()

	sess, err := browser.OpenPage(ctx, driver, url)
	if err != nil {
		return err
	}

	if a.cfg.MetricsAddr != "" {
		go a.serveMetrics(a.cfg.MetricsAddr)
	}

	gateway := llm.NewGateway(store, llm.DefaultFactories(a.cfg.Models), a.logger)

	reporter := agent.NewReporter(out, !color.NoColor)
	transcript := agent.NewTranscript()
	reporter.Attach(transcript)

	exec := agent.NewExecutor(sess.Snapshot, agent.Deps{
		Generator:  gateway,
		Overlay:    sess.Driver,
		Document:   sess.Driver,
		Transcript: transcript,
		Logger:     a.logger,
	}, a.cfg.ExecutorOptions())
	defer exec.Close()

	signals := agent.NewSignalController(exec)
	defer signals.Close()

	fmt.Fprintf(out, "%s %s\n", bold("Page:"), sess.Snapshot.Title)
	fmt.Fprintln(out, gray("Ask how to do something on this page. /quit to exit."))

	stop := make(chan struct{})
	defer close(stop)
	lines := readLines(in, stop)

	defer reporter.Summary(transcript)

	for {
		fmt.Fprint(out, "> ")

		var line string
		var ok bool
		select {
		case <-signals.Quit():
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case strings.HasPrefix(line, "/auto"):
			a.toggleAuto(exec, strings.TrimSpace(strings.TrimPrefix(line, "/auto")), out)
			continue
		}

		signals.Reset()
		done := make(chan error, 1)
		go func() { done <- exec.Submit(ctx, line) }()

		select {
		case <-signals.Quit():
			exec.Close()
			a.awaitQuery(done, shutdownGrace)
			return nil
		case err := <-done:
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(out, gray("walkthrough aborted"))
			} else if err != nil {
				a.logger.Debug("query failed", "error", err)
			}
		}
	}
}

// shutdownGrace bounds how long quitting waits for the running query to
// reach its next delay before the browser is torn down.
const shutdownGrace = 3 * time.Second

func (a *app) awaitQuery(done <-chan error, grace time.Duration) {
	select {
	case <-done:
	case <-time.After(grace):
		a.logger.Warn("query still running at shutdown", "grace", grace)
	}
}

// readLines feeds stdin lines to the REPL until stop is closed.
func readLines(in io.Reader, stop <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			}
		}
	}()
	return lines
}

func (a *app) toggleAuto(exec *agent.Executor, arg string, out io.Writer) {
	switch arg {
	case "on":
		exec.SetAutoInteract(true)
	case "off":
		exec.SetAutoInteract(false)
	default:
		fmt.Fprintln(out, gray("usage: /auto on|off"))
		return
	}
	fmt.Fprintf(out, "auto-interaction %s\n", arg)
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		a.logger.Error("metrics server stopped", "error", err)
	}
}
