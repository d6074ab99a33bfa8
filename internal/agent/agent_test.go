package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-nav-guide/internal/credentials"
	"github.com/nbenliogludev/go-nav-guide/internal/llm"
	"github.com/nbenliogludev/go-nav-guide/internal/snapshot"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeClock struct {
	rec     *recorder
	calls   int
	onSleep func(n int, d time.Duration)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.calls++
	c.rec.add("sleep %s", d)
	if c.onSleep != nil {
		c.onSleep(c.calls, d)
	}
	return ctx.Err()
}

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
	block   chan struct{}
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.block != nil {
		<-g.block
	}
	return g.reply, g.err
}

type fakeOverlay struct {
	rec   *recorder
	tours []Tour
	err   error
}

func (o *fakeOverlay) Show(_ context.Context, tour Tour) error {
	o.tours = append(o.tours, tour)
	o.rec.add("tour %d", len(tour.Steps))
	return o.err
}

type fakeDocument struct {
	rec       *recorder
	present   map[string]bool
	existsErr map[string]error
	clicks    []string
}

func (d *fakeDocument) Exists(_ context.Context, selector string) (bool, error) {
	d.rec.add("exists %s", selector)
	if err := d.existsErr[selector]; err != nil {
		return false, err
	}
	return d.present[selector], nil
}

func (d *fakeDocument) Click(_ context.Context, selector string) error {
	d.rec.add("click %s", selector)
	d.clicks = append(d.clicks, selector)
	return nil
}

type harness struct {
	rec     *recorder
	clock   *fakeClock
	gen     *fakeGenerator
	overlay *fakeOverlay
	doc     *fakeDocument
	exec    *Executor
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(reply string, auto bool, present ...string) *harness {
	rec := &recorder{}
	h := &harness{
		rec:     rec,
		clock:   &fakeClock{rec: rec},
		gen:     &fakeGenerator{reply: reply},
		overlay: &fakeOverlay{rec: rec},
		doc:     &fakeDocument{rec: rec, present: map[string]bool{}},
	}
	for _, sel := range present {
		h.doc.present[sel] = true
	}

	snap := snapshot.NewExtractor(snapshot.Config{}).Extract("https://example.com/login",
		`<input id="user"><button id="submit">Log In</button>`)

	opts := DefaultOptions()
	opts.AutoInteract = auto

	h.exec = NewExecutor(snap, Deps{
		Generator: h.gen,
		Overlay:   h.overlay,
		Document:  h.doc,
		Clock:     h.clock,
		Logger:    quietLogger(),
	}, opts)

	h.exec.Transcript().Subscribe(func(m ChatMessage) {
		rec.add("msg %s: %s", m.Sender, m.Text)
	})
	return h
}

const loginReply = "Sure, here are the steps:\n```json\n" + `{"steps":[
  {"selector":"#user","instruction":"Enter your username","type":"id","details":{"tag":"input","id":"user"}},
  {"selector":"#submit","instruction":"Click Log In","type":"id","details":{"tag":"button","id":"submit","text":"Log In"}}
]}` + "\n```"

func TestLoginScenarioWithAutoInteraction(t *testing.T) {
	h := newHarness(loginReply, true, "#user", "#submit")

	require.NoError(t, h.exec.Submit(context.Background(), "log in"))

	assert.Equal(t, []string{
		"msg user: log in",
		"sleep 500ms",
		"msg assistant: Step 1: Enter your username",
		"sleep 500ms",
		"msg assistant: Step 2: Click Log In",
		"tour 2",
		"sleep 1s",
		"exists #user",
		"click #user",
		"sleep 500ms",
		"sleep 1s",
		"exists #submit",
		"click #submit",
		"sleep 500ms",
	}, h.rec.list())

	require.Len(t, h.overlay.tours, 1)
	assert.Equal(t, Tour{
		ShowProgress: true,
		Steps: []TourStep{
			{Element: "#user", Popover: Popover{Title: "Step 1", Description: "Enter your username"}},
			{Element: "#submit", Popover: Popover{Title: "Step 2", Description: "Click Log In"}},
		},
	}, h.overlay.tours[0])

	msgs := h.exec.Transcript().Messages()
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, int64(i+1), m.ID)
	}
	assert.Equal(t, StateIdle, h.exec.State())
	assert.False(t, h.exec.ExecutionState().InFlight)
}

func TestPromptCarriesSnapshotAndURL(t *testing.T) {
	h := newHarness(`{"steps":[]}`, false)

	require.NoError(t, h.exec.Submit(context.Background(), "find the login button"))

	require.Len(t, h.gen.prompts, 1)
	p := h.gen.prompts[0]
	assert.Contains(t, p, "User Query: find the login button")
	assert.Contains(t, p, "Website URL: https://example.com/login")
	assert.Contains(t, p, `"id":"submit"`)
}

func TestWithoutAutoInteractionDocumentIsUntouched(t *testing.T) {
	h := newHarness(loginReply, false, "#user", "#submit")

	require.NoError(t, h.exec.Submit(context.Background(), "log in"))

	assert.Empty(t, h.doc.clicks)
	assert.Len(t, h.overlay.tours, 1)
	assert.Equal(t, "tour 2", h.rec.list()[len(h.rec.list())-1])
}

func TestMessagesPrecedeOverlayHandoff(t *testing.T) {
	reply := `{"steps":[
		{"selector":"#a","instruction":"one"},
		{"selector":"#b","instruction":"two"},
		{"selector":"#c","instruction":"three"}]}`
	h := newHarness(reply, false)

	require.NoError(t, h.exec.Submit(context.Background(), "go"))

	var assistant []string
	for _, e := range h.rec.list() {
		if e == "tour 3" {
			break
		}
		if len(e) > 14 && e[:14] == "msg assistant:" {
			assistant = append(assistant, e)
		}
	}
	assert.Equal(t, []string{
		"msg assistant: Step 1: one",
		"msg assistant: Step 2: two",
		"msg assistant: Step 3: three",
	}, assistant)
}

func TestMissingElementsAreSkipped(t *testing.T) {
	reply := `{"steps":[
		{"selector":"#gone","instruction":"one"},
		{"selector":"#here","instruction":"two"},
		{"selector":"#broken","instruction":"three"},
		{"selector":"#also-here","instruction":"four"}]}`
	h := newHarness(reply, true, "#here", "#also-here")
	h.doc.existsErr = map[string]error{"#broken": errors.New("node detached")}

	require.NoError(t, h.exec.Submit(context.Background(), "go"))

	assert.Equal(t, []string{"#here", "#also-here"}, h.doc.clicks)

	var checked []string
	for _, e := range h.rec.list() {
		if len(e) > 7 && e[:7] == "exists " {
			checked = append(checked, e[7:])
		}
	}
	assert.Equal(t, []string{"#gone", "#here", "#broken", "#also-here"}, checked)
	assert.Equal(t, StateIdle, h.exec.State())
}

func TestMalformedResponseAppendsOneGenericMessage(t *testing.T) {
	h := newHarness("```json\n{\"steps\": [ {\"selector\": \"#a\" \n```", true, "#a")

	err := h.exec.Submit(context.Background(), "log in")
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrMalformedResponse))

	msgs := h.exec.Transcript().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, SenderUser, msgs[0].Sender)
	assert.Equal(t, SenderAssistant, msgs[1].Sender)
	assert.Equal(t, genericFailureMessage, msgs[1].Text)
	assert.NotContains(t, msgs[1].Text, "selector")

	assert.Empty(t, h.overlay.tours)
	assert.Empty(t, h.doc.clicks)
	assert.Equal(t, StateIdle, h.exec.State())

	h.gen.reply = loginReply
	h.doc.present["#user"] = true
	require.NoError(t, h.exec.Submit(context.Background(), "log in"))
	assert.Len(t, h.exec.Transcript().Messages(), 5)
}

func TestModelFailureAppendsOneGenericMessage(t *testing.T) {
	h := newHarness("", true)
	h.gen.err = &llm.InvocationError{Backend: llm.BackendGroq, Err: errors.New("quota exceeded")}

	err := h.exec.Submit(context.Background(), "log in")
	assert.True(t, errors.Is(err, llm.ErrModelInvocation))

	msgs := h.exec.Transcript().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, genericFailureMessage, msgs[1].Text)
	assert.Equal(t, StateIdle, h.exec.State())
}

func TestMissingCredentialPromptsForSetup(t *testing.T) {
	rec := &recorder{}
	store := credentials.NewMemoryStore()
	factoryCalled := false
	gw := llm.NewGateway(store, map[string]llm.BackendFactory{
		llm.BackendGroq: func(context.Context, string) (llm.Backend, error) {
			factoryCalled = true
			return nil, errors.New("unreachable")
		},
	}, quietLogger())

	exec := NewExecutor(nil, Deps{
		Generator: gw,
		Clock:     &fakeClock{rec: rec},
		Logger:    quietLogger(),
	}, DefaultOptions())

	err := exec.Submit(context.Background(), "log in")
	assert.True(t, errors.Is(err, llm.ErrMissingCredential))
	assert.False(t, factoryCalled)

	msgs := exec.Transcript().Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Text, "navguide key set groq")
	assert.Equal(t, StateIdle, exec.State())
}

func TestEmptyPlanIsNoOp(t *testing.T) {
	h := newHarness("```json\n{\"steps\": []}\n```", true)

	require.NoError(t, h.exec.Submit(context.Background(), "something impossible"))

	assert.Len(t, h.exec.Transcript().Messages(), 1)
	assert.Empty(t, h.overlay.tours)
	assert.Equal(t, StateIdle, h.exec.State())
}

func TestBlankQueryIsIgnored(t *testing.T) {
	h := newHarness(loginReply, false)

	require.NoError(t, h.exec.Submit(context.Background(), "   "))
	assert.Empty(t, h.gen.prompts)
	assert.Zero(t, h.exec.Transcript().Len())
}

func TestConcurrentSubmitIsRejected(t *testing.T) {
	h := newHarness(loginReply, false)
	h.gen.block = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- h.exec.Submit(context.Background(), "first") }()

	require.Eventually(t, func() bool {
		return h.exec.State() == StateDispatching
	}, time.Second, time.Millisecond)
	assert.True(t, h.exec.ExecutionState().InFlight)

	err := h.exec.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	close(h.gen.block)
	require.NoError(t, <-done)

	for _, m := range h.exec.Transcript().Messages() {
		assert.NotEqual(t, "second", m.Text)
	}
	assert.Equal(t, StateIdle, h.exec.State())
}

func TestAbortStopsAutoInteraction(t *testing.T) {
	reply := `{"steps":[
		{"selector":"#a","instruction":"one"},
		{"selector":"#b","instruction":"two"},
		{"selector":"#c","instruction":"three"}]}`
	h := newHarness(reply, true, "#a", "#b", "#c")

	settles := 0
	h.clock.onSleep = func(_ int, d time.Duration) {
		if d == time.Second {
			settles++
			if settles == 2 {
				h.exec.Abort()
			}
		}
	}

	err := h.exec.Submit(context.Background(), "go")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	assert.Equal(t, []string{"#a"}, h.doc.clicks)
	assert.Equal(t, StateIdle, h.exec.State())

	h.clock.onSleep = nil
	require.NoError(t, h.exec.Submit(context.Background(), "again"))
	assert.Equal(t, []string{"#a", "#a", "#b", "#c"}, h.doc.clicks)
}

func TestCloseRejectsFurtherQueries(t *testing.T) {
	h := newHarness(loginReply, false)
	h.exec.Close()

	err := h.exec.Submit(context.Background(), "log in")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, h.exec.Transcript().Len())
}

func TestSetAutoInteractAppliesToNextQuery(t *testing.T) {
	h := newHarness(loginReply, false, "#user", "#submit")

	require.NoError(t, h.exec.Submit(context.Background(), "log in"))
	assert.Empty(t, h.doc.clicks)

	h.exec.SetAutoInteract(true)
	require.NoError(t, h.exec.Submit(context.Background(), "log in"))
	assert.Equal(t, []string{"#user", "#submit"}, h.doc.clicks)
}

func TestOverlayFailureDoesNotStopExecution(t *testing.T) {
	h := newHarness(loginReply, true, "#user", "#submit")
	h.overlay.err = errors.New("driver.js not loaded")

	require.NoError(t, h.exec.Submit(context.Background(), "log in"))
	assert.Equal(t, []string{"#user", "#submit"}, h.doc.clicks)
}
