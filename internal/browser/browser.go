package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/nbenliogludev/go-nav-guide/internal/agent"
	"github.com/nbenliogludev/go-nav-guide/internal/snapshot"
)

const (
	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"
)

// Driver is a live browser page: it can be snapshotted, highlighted and
// clicked.
type Driver interface {
	agent.Document
	agent.Overlay
	Navigate(ctx context.Context, url string) error
	Capture(ctx context.Context) (*snapshot.PageSnapshot, error)
	Close()
}

type Options struct {
	Headless    bool
	UserDataDir string
	Timeout     time.Duration
	Extractor   *snapshot.Extractor

	// Where the tour library is loaded from. Defaults to the jsDelivr CDN.
	TourScriptURL string
	TourStyleURL  string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.Extractor == nil {
		o.Extractor = snapshot.NewExtractor(snapshot.Config{})
	}
	if o.TourScriptURL == "" {
		o.TourScriptURL = DefaultTourScriptURL
	}
	if o.TourStyleURL == "" {
		o.TourStyleURL = DefaultTourStyleURL
	}
	return o
}

// Open starts the driver named by kind.
func Open(kind string, opts Options) (Driver, error) {
	switch kind {
	case "", DriverPlaywright:
		return NewManager(opts)
	case DriverChromedp:
		return NewCDPSession(opts)
	default:
		return nil, fmt.Errorf("unknown browser driver %q", kind)
	}
}
