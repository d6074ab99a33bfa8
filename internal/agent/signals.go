package agent

import (
	"os"
	"os/signal"
	"sync"
)

// Aborter is the part of the executor an interrupt acts on.
type Aborter interface {
	Abort()
}

// SignalController turns Ctrl+C into walkthrough control: the first
// interrupt aborts the running walkthrough, a second one before Reset asks
// the session to quit.
type SignalController struct {
	ch     chan os.Signal
	target Aborter
	quit   chan struct{}

	mu       sync.Mutex
	armed    bool
	quitOnce sync.Once
	stopOnce sync.Once
}

func NewSignalController(target Aborter) *SignalController {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return newSignalController(ch, target)
}

func newSignalController(ch chan os.Signal, target Aborter) *SignalController {
	s := &SignalController{ch: ch, target: target, quit: make(chan struct{})}
	go s.loop()
	return s
}

func (s *SignalController) loop() {
	for range s.ch {
		s.mu.Lock()
		second := s.armed
		s.armed = true
		s.mu.Unlock()

		if second {
			s.quitOnce.Do(func() { close(s.quit) })
			continue
		}
		s.target.Abort()
	}
}

// Quit is closed on the second interrupt.
func (s *SignalController) Quit() <-chan struct{} { return s.quit }

// Reset disarms the controller, so the next interrupt aborts again.
func (s *SignalController) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = false
}

func (s *SignalController) Close() {
	s.stopOnce.Do(func() {
		signal.Stop(s.ch)
		close(s.ch)
	})
}
