package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nbenliogludev/go-nav-guide/internal/snapshot"
)

// Session pairs a live page with the snapshot taken when it was opened.
type Session struct {
	Driver   Driver
	Snapshot *snapshot.PageSnapshot
}

// OpenPage navigates d to url and captures the snapshot the session will use
// for every query until the page is reloaded.
func OpenPage(ctx context.Context, d Driver, url string) (*Session, error) {
	if err := d.Navigate(ctx, url); err != nil {
		return nil, err
	}

	snap, err := d.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot failed: %w", err)
	}

	slog.Info("page snapshot captured",
		"url", snap.URL,
		"title", snap.Title,
		"elements", len(snap.Elements),
		"chars", len(snap.Text),
		"truncated", snap.Truncated,
	)

	return &Session{Driver: d, Snapshot: snap}, nil
}
