package orderscraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// NetworkIdleWindow is how long no request may be in flight before the network counts as idle.
const NetworkIdleWindow = 500 * time.Millisecond

type NewChromeOptions struct {
	Headless         bool
	Timeout          time.Duration // bound of every single wait
	Locale           string
	NoSandbox        bool
	UserDataDir      string
	SessionStatePath string // loaded before the first navigation if the file exists
	ExtraOptions     []chromedp.ExecAllocatorOption
}

// ChromeBrowser implements Browser with chromedp.
type ChromeBrowser struct {
	ctx     context.Context
	timeout time.Duration
	log     Logger
	network *networkTracker
	state   *SessionState // as loaded; localStorage of other origins is kept when saving
}

func allocatorOptions(options NewChromeOptions) []chromedp.ExecAllocatorOption {
	allocOptions := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	}
	if options.Locale != "" {
		allocOptions = append(allocOptions, chromedp.Flag("lang", options.Locale))
	}
	if options.Headless {
		allocOptions = append(allocOptions,
			chromedp.Headless,
			chromedp.DisableGPU,
		)
	}
	if options.NoSandbox {
		allocOptions = append(allocOptions,
			chromedp.NoSandbox,
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}
	if options.UserDataDir != "" {
		allocOptions = append(allocOptions, chromedp.UserDataDir(options.UserDataDir))
	}
	return append(allocOptions, options.ExtraOptions...)
}

// NewChrome launches a browser and opens a tab. The returned cancel func closes both
// and must be called on every path, including when err is not nil.
func NewChrome(options NewChromeOptions, log Logger) (*ChromeBrowser, context.CancelFunc, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(options)...)
	ctxt, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))
	cancelFunc := func() {
		cancel()
		allocCancel()
	}

	timeout := options.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	browser := &ChromeBrowser{
		ctx:     ctxt,
		timeout: timeout,
		log:     log,
		network: newNetworkTracker(),
		state:   &SessionState{LocalStorage: map[string]map[string]string{}},
	}
	chromedp.ListenTarget(ctxt, browser.network.listen)

	actions := []chromedp.Action{network.Enable()}
	if options.Locale != "" {
		actions = append(actions,
			emulation.SetLocaleOverride().WithLocale(options.Locale),
			network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": options.Locale}),
		)
	}
	if state := loadSessionStateOrNothing(options.SessionStatePath, log); state != nil {
		browser.state = state
		actions = append(actions, applySessionState(state))
	}

	// the first Run allocates the browser on ctxt; a deadline here would kill it afterwards
	if err := chromedp.Run(ctxt, actions...); err != nil {
		return nil, cancelFunc, fmt.Errorf("starting browser: %w", err)
	}
	return browser, cancelFunc, nil
}

// loadSessionStateOrNothing returns the saved state at path, or nil when there is none or it can't be read.
// An unreadable state only costs the reuse; the other authentication paths still run.
func loadSessionStateOrNothing(path string, log Logger) *SessionState {
	if !SessionStateExists(path) {
		return nil
	}
	state, err := LoadSessionState(path)
	if err != nil {
		log.Printf("ignoring session state: %v", err)
		return nil
	}
	log.Printf("session state loaded from %v (%d cookies)", path, len(state.Cookies))
	return state
}

// run executes actions bounded by the browser timeout and by the caller's context.
func (b *ChromeBrowser) run(ctx context.Context, operation string, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return WaitTimeoutError{Operation: operation, Err: err}
	}
	return fmt.Errorf("%v: %w", operation, err)
}

func (b *ChromeBrowser) Navigate(ctx context.Context, url string) error {
	return b.run(ctx, "navigating to "+url, chromedp.Navigate(url))
}

func (b *ChromeBrowser) CurrentURL(ctx context.Context) (string, error) {
	var location string
	err := b.run(ctx, "reading location", chromedp.Location(&location))
	return location, err
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (b *ChromeBrowser) Count(ctx context.Context, selector string) (int, error) {
	var n int
	err := b.run(ctx, "counting "+selector,
		chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector)), &n))
	return n, err
}

func (b *ChromeBrowser) WaitVisible(ctx context.Context, selector string) error {
	return b.run(ctx, "waiting for "+selector, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (b *ChromeBrowser) Fill(ctx context.Context, selector, value string) error {
	return b.run(ctx, "filling "+selector,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (b *ChromeBrowser) Click(ctx context.Context, selector string) error {
	return b.run(ctx, "clicking "+selector, chromedp.Click(selector, chromedp.ByQuery))
}

var keyNames = map[string]string{
	KeyEnter: kb.Enter,
}

func (b *ChromeBrowser) Press(ctx context.Context, selector, key string) error {
	keys, ok := keyNames[key]
	if !ok {
		return fmt.Errorf("unknown key %#v", key)
	}
	return b.run(ctx, "pressing "+key+" on "+selector, chromedp.SendKeys(selector, keys, chromedp.ByQuery))
}

func (b *ChromeBrowser) WaitNetworkIdle(ctx context.Context) error {
	return b.run(ctx, "waiting for network idle", chromedp.ActionFunc(func(ctx context.Context) error {
		return b.network.waitIdle(ctx, NetworkIdleWindow)
	}))
}

func (b *ChromeBrowser) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	err := b.run(ctx, "reading "+selector, chromedp.OuterHTML(selector, &html, chromedp.ByQuery))
	return html, err
}

func (b *ChromeBrowser) SaveSessionState(ctx context.Context, path string) error {
	var cookies []*network.Cookie
	var storage struct {
		Origin string            `json:"origin"`
		Items  map[string]string `json:"items"`
	}
	err := b.run(ctx, "capturing session state",
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
		chromedp.Evaluate(`(function() {
			const items = {};
			try {
				for (let i = 0; i < localStorage.length; i++) {
					const k = localStorage.key(i);
					if (k !== null) { items[k] = localStorage.getItem(k); }
				}
			} catch (e) { /* storage disabled */ }
			return { origin: location.origin, items: items };
		})()`, &storage),
	)
	if err != nil {
		return err
	}

	state := &SessionState{LocalStorage: map[string]map[string]string{}}
	for origin, items := range b.state.LocalStorage {
		state.LocalStorage[origin] = items
	}
	if storage.Origin != "" && storage.Origin != "null" {
		state.LocalStorage[storage.Origin] = storage.Items
	}
	for _, c := range cookies {
		state.Cookies = append(state.Cookies, cookieFromCDP(c))
	}
	if err := state.Save(path); err != nil {
		return err
	}
	b.state = state
	return nil
}

func applySessionState(state *SessionState) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		params := make([]*network.CookieParam, 0, len(state.Cookies))
		for _, c := range state.Cookies {
			params = append(params, cookieToCDP(c))
		}
		if len(params) > 0 {
			if err := network.SetCookies(params).Do(ctx); err != nil {
				return err
			}
		}
		if len(state.LocalStorage) == 0 {
			return nil
		}
		data, err := json.Marshal(state.LocalStorage)
		if err != nil {
			return err
		}
		// existing values win, a stale snapshot must not clobber a fresh login
		script := fmt.Sprintf(`(function() {
			const items = (%s)[location.origin];
			if (!items) { return; }
			try {
				for (const k in items) {
					if (localStorage.getItem(k) === null) { localStorage.setItem(k, items[k]); }
				}
			} catch (e) { /* storage disabled */ }
		})()`, data)
		_, err = page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
		return err
	})
}

var sameSiteToCDP = map[http.SameSite]network.CookieSameSite{
	http.SameSiteStrictMode: network.CookieSameSiteStrict,
	http.SameSiteLaxMode:    network.CookieSameSiteLax,
	http.SameSiteNoneMode:   network.CookieSameSiteNone,
}

func cookieFromCDP(c *network.Cookie) *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	if !c.Session && c.Expires > 0 {
		sec := int64(c.Expires)
		cookie.Expires = time.Unix(sec, int64((c.Expires-float64(sec))*1e9))
	}
	for sameSite, cdpSameSite := range sameSiteToCDP {
		if c.SameSite == cdpSameSite {
			cookie.SameSite = sameSite
		}
	}
	return cookie
}

// cookieToCDP keeps the scope of the cookie: a Domain with a leading dot is a domain cookie,
// anything else is bound to its host through URL.
func cookieToCDP(c *http.Cookie) *network.CookieParam {
	param := &network.CookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HttpOnly,
	}
	if strings.HasPrefix(c.Domain, ".") {
		param.Domain = c.Domain
	} else {
		u, _ := cookieOrigin(c)
		param.URL = u.String()
	}
	if !c.Expires.IsZero() {
		expires := cdp.TimeSinceEpoch(c.Expires)
		param.Expires = &expires
	}
	if sameSite, ok := sameSiteToCDP[c.SameSite]; ok {
		param.SameSite = sameSite
	}
	return param
}

// networkTracker counts requests in flight on the tab.
type networkTracker struct {
	mu         sync.Mutex
	inflight   map[network.RequestID]struct{}
	lastChange time.Time
}

func newNetworkTracker() *networkTracker {
	return &networkTracker{
		inflight:   map[network.RequestID]struct{}{},
		lastChange: time.Now(),
	}
}

func (t *networkTracker) listen(ev interface{}) {
	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.update(ev.RequestID, true)
	case *network.EventLoadingFinished:
		t.update(ev.RequestID, false)
	case *network.EventLoadingFailed:
		t.update(ev.RequestID, false)
	}
}

func (t *networkTracker) update(id network.RequestID, started bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if started {
		t.inflight[id] = struct{}{}
	} else {
		delete(t.inflight, id)
	}
	t.lastChange = time.Now()
}

// idleFor reports whether nothing has been in flight for window.
func (t *networkTracker) idleFor(window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && time.Since(t.lastChange) >= window
}

func (t *networkTracker) waitIdle(ctx context.Context, window time.Duration) error {
	ticker := time.NewTicker(window / 10)
	defer ticker.Stop()
	for !t.idleFor(window) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
