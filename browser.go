package orderscraper

import "context"

// Key names accepted by Browser.Press.
const (
	KeyEnter = "Enter"
)

// Browser is the automation capability the establisher and the extractor drive.
// Every blocking method is bounded by the configured timeout and returns
// WaitTimeoutError when it runs out.
type Browser interface {
	// Navigate opens url and waits for the document to load.
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	// Count returns the number of elements matching the CSS selector without waiting.
	Count(ctx context.Context, selector string) (int, error)
	WaitVisible(ctx context.Context, selector string) error
	// Fill clears the first matching input and types value into it.
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Press(ctx context.Context, selector, key string) error
	// WaitNetworkIdle blocks until no requests have been in flight for a short quiet window.
	WaitNetworkIdle(ctx context.Context) error
	// OuterHTML returns the HTML of the first element matching selector.
	OuterHTML(ctx context.Context, selector string) (string, error)
	// SaveSessionState snapshots cookies and storage of the current session to path, overwriting it.
	SaveSessionState(ctx context.Context, path string) error
}
