// Package browser defines the page-automation capability the pipeline
// consumes, plus its headless-Chrome implementation. The pipeline and
// extraction code depend only on the interfaces here, so tests drive
// them with static snapshots.
package browser

import (
	"context"
	"time"
)

// Page is a loaded page handle. Query methods read the rendered DOM;
// APIResponses drains the JSON bodies captured from network responses
// matching the session's API path pattern. Capture is collect-then-
// parse: bodies buffer while the page loads and are drained
// synchronously afterwards.
type Page interface {
	// Text returns the text content of the first node matching sel,
	// or "" when nothing matches.
	Text(sel string) (string, error)
	// Attr returns an attribute of the first node matching sel and
	// whether it was present.
	Attr(sel, name string) (string, bool, error)
	// HTML returns the full rendered document.
	HTML() (string, error)
	// WaitVisible blocks until sel is visible or the timeout expires.
	WaitVisible(sel string, timeout time.Duration) error
	// Click clicks the first node matching sel.
	Click(sel string) error
	// URL returns the page's current location.
	URL() (string, error)
	// APIResponses drains and returns the captured response bodies.
	APIResponses() [][]byte
	// Close releases the page.
	Close()
}

// Browser is one browsing session. Sessions are cheap enough to
// discard and re-acquire when the governor rotates them.
type Browser interface {
	Open(ctx context.Context, url string) (Page, error)
	Close() error
}

// Factory creates fresh browsing sessions.
type Factory interface {
	New(ctx context.Context) (Browser, error)
}
