package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nbenliogludev/go-nav-guide/internal/llm"
	"github.com/nbenliogludev/go-nav-guide/internal/snapshot"
)

// Overlay renders a guided tour. It owns its own stepping once started.
type Overlay interface {
	Show(ctx context.Context, tour Tour) error
}

// Document is the live page the auto-interaction phase acts on.
type Document interface {
	Exists(ctx context.Context, selector string) (bool, error)
	Click(ctx context.Context, selector string) error
}

type Tour struct {
	Steps        []TourStep `json:"steps"`
	ShowProgress bool       `json:"showProgress"`
}

type TourStep struct {
	Element string  `json:"element"`
	Popover Popover `json:"popover"`
}

type Popover struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func BuildTour(plan llm.StepPlan) Tour {
	steps := make([]TourStep, 0, len(plan))
	for i, s := range plan {
		steps = append(steps, TourStep{
			Element: s.Selector,
			Popover: Popover{
				Title:       fmt.Sprintf("Step %d", i+1),
				Description: s.Instruction,
			},
		})
	}
	return Tour{Steps: steps, ShowProgress: true}
}

type Options struct {
	AutoInteract    bool
	StreamDelay     time.Duration
	SettleDelay     time.Duration
	AfterClickDelay time.Duration
	PromptBudget    int
}

func DefaultOptions() Options {
	return Options{
		StreamDelay:     500 * time.Millisecond,
		SettleDelay:     1000 * time.Millisecond,
		AfterClickDelay: 500 * time.Millisecond,
		PromptBudget:    llm.DefaultPromptBudget,
	}
}

type Deps struct {
	Generator  llm.Generator
	Overlay    Overlay
	Document   Document
	Clock      Clock
	Transcript *Transcript
	Logger     *slog.Logger
}

// Executor runs one navigation query at a time against a fixed page
// snapshot: Idle -> Dispatching -> Parsing -> Executing -> Idle.
type Executor struct {
	gen        llm.Generator
	overlay    Overlay
	doc        Document
	clock      Clock
	transcript *Transcript
	logger     *slog.Logger
	builder    llm.PromptBuilder
	opts       Options
	snap       *snapshot.PageSnapshot

	mu           sync.Mutex
	state        State
	exec         ExecutionState
	autoInteract bool
	cancel       context.CancelFunc
	closed       bool
}

func NewExecutor(snap *snapshot.PageSnapshot, deps Deps, opts Options) *Executor {
	if deps.Clock == nil {
		deps.Clock = RealClock()
	}
	if deps.Transcript == nil {
		deps.Transcript = NewTranscript()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if snap == nil {
		snap = &snapshot.PageSnapshot{}
	}
	return &Executor{
		gen:          deps.Generator,
		overlay:      deps.Overlay,
		doc:          deps.Document,
		clock:        deps.Clock,
		transcript:   deps.Transcript,
		logger:       deps.Logger,
		builder:      llm.NewPromptBuilder(opts.PromptBudget),
		opts:         opts,
		snap:         snap,
		autoInteract: opts.AutoInteract,
	}
}

func (e *Executor) Transcript() *Transcript { return e.transcript }

func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Executor) ExecutionState() ExecutionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exec
}

// SetAutoInteract changes the preference picked up by the next query.
func (e *Executor) SetAutoInteract(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoInteract = on
}

// Abort stops the running walkthrough at its next delay. The model call, if
// one is in flight, still runs to completion.
func (e *Executor) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Close aborts any walkthrough and rejects further queries.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.cancel != nil {
		e.cancel()
	}
}

// Submit runs text through the whole pipeline. It returns ErrBusy without
// side effects if another query is running. Pipeline failures are reported
// to the user as one assistant message and returned for diagnostics; the
// executor is back in Idle either way.
func (e *Executor) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runCtx, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer e.finish()

	e.transcript.Append(SenderUser, text)

	plan, err := e.plan(ctx, text)
	if err != nil {
		e.fail(err)
		return err
	}

	e.setState(StateExecuting)
	if err := e.execute(runCtx, plan); err != nil {
		queriesTotal.WithLabelValues("aborted").Inc()
		e.logger.Info("walkthrough aborted", "error", err)
		return fmt.Errorf("walkthrough aborted: %w", err)
	}

	queriesTotal.WithLabelValues(outcomeOf(nil)).Inc()
	return nil
}

func (e *Executor) begin(ctx context.Context) (context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if e.state != StateIdle {
		return nil, ErrBusy
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.state = StateDispatching
	e.exec = ExecutionState{InFlight: true, AutoInteractEnabled: e.autoInteract}
	return runCtx, nil
}

func (e *Executor) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.state = StateIdle
	e.exec.InFlight = false
}

func (e *Executor) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
}

func (e *Executor) plan(ctx context.Context, text string) (llm.StepPlan, error) {
	prompt := e.builder.Build(llm.NavigationQuery{
		Text:     text,
		PageURL:  e.snap.URL,
		Snapshot: e.snap.Text,
	})

	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	e.setState(StateParsing)
	plan, err := llm.ParsePlan(raw)
	if err != nil {
		var malformed *llm.MalformedResponseError
		if errors.As(err, &malformed) {
			e.logger.Warn("model response rejected", "error", err, "raw", malformed.Raw)
		}
		return nil, err
	}

	e.logger.Info("plan ready", "steps", len(plan), "url", e.snap.URL)
	return plan, nil
}

func (e *Executor) fail(err error) {
	queriesTotal.WithLabelValues(outcomeOf(err)).Inc()
	e.logger.Error("query failed", "outcome", outcomeOf(err), "error", err)
	e.transcript.Append(SenderAssistant, userMessage(err))
}

func (e *Executor) execute(ctx context.Context, plan llm.StepPlan) error {
	for i, step := range plan {
		if err := e.clock.Sleep(ctx, e.opts.StreamDelay); err != nil {
			return err
		}
		e.transcript.Append(SenderAssistant, fmt.Sprintf("Step %d: %s", i+1, step.Instruction))
	}

	if len(plan) == 0 {
		e.logger.Info("empty plan, nothing to show")
		return nil
	}

	if e.overlay != nil {
		if err := e.overlay.Show(ctx, BuildTour(plan)); err != nil {
			e.logger.Warn("overlay failed", "error", err)
		}
	}

	if !e.ExecutionState().AutoInteractEnabled || e.doc == nil {
		return nil
	}
	return e.interact(ctx, plan)
}

// interact clicks through the plan in order. Selectors that no longer match
// anything are skipped; the page may have changed since the snapshot.
func (e *Executor) interact(ctx context.Context, plan llm.StepPlan) error {
	for i, step := range plan {
		if err := e.clock.Sleep(ctx, e.opts.SettleDelay); err != nil {
			return err
		}

		found, err := e.doc.Exists(ctx, step.Selector)
		if err != nil {
			stepsTotal.WithLabelValues("failed").Inc()
			e.logger.Warn("resolve selector failed", "step", i+1, "selector", step.Selector, "error", err)
			continue
		}
		if !found {
			stepsTotal.WithLabelValues("skipped").Inc()
			e.logger.Debug("element not found, skipping", "step", i+1, "selector", step.Selector)
			continue
		}

		if err := e.doc.Click(ctx, step.Selector); err != nil {
			stepsTotal.WithLabelValues("failed").Inc()
			e.logger.Warn("click failed", "step", i+1, "selector", step.Selector, "error", err)
		} else {
			stepsTotal.WithLabelValues("clicked").Inc()
		}

		if err := e.clock.Sleep(ctx, e.opts.AfterClickDelay); err != nil {
			return err
		}
	}
	return nil
}
