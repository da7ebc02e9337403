package orderscraper

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Establisher drives the browser from whatever page it lands on to the authenticated orders view.
type Establisher struct {
	Browser      Browser
	Config       Config
	Log          Logger
	SubmitGrace  time.Duration // how long a submit click may take to start navigating
	PollInterval time.Duration // manual login polling interval

	loginAttempted bool
}

func NewEstablisher(browser Browser, config Config, log Logger) *Establisher {
	return &Establisher{
		Browser:      browser,
		Config:       config,
		Log:          log,
		SubmitGrace:  DefaultSubmitGrace,
		PollInterval: ManualLoginPollInterval,
	}
}

// authStrategy is one way to get past a challenge page. The first strategy whose
// precondition holds is the only one that runs.
type authStrategy struct {
	name    string
	applies func(e *Establisher, state AuthState) bool
	run     func(e *Establisher, ctx context.Context, state AuthState) (AuthState, error)
}

var challengeStrategies = []authStrategy{
	{
		name: "credentials",
		applies: func(e *Establisher, state AuthState) bool {
			return state == ChallengePending && e.Config.Credentials.Present()
		},
		run: (*Establisher).credentialStrategy,
	},
	{
		name: "manual",
		applies: func(e *Establisher, state AuthState) bool {
			return state == ChallengePending && e.Config.ManualLogin && e.Config.HumanVisible()
		},
		run: (*Establisher).manualStrategy,
	},
	{
		name: "missing-credentials",
		applies: func(e *Establisher, state AuthState) bool {
			return state == ChallengePending
		},
		run: func(e *Establisher, ctx context.Context, state AuthState) (AuthState, error) {
			return state, MissingCredentialsError{}
		},
	},
}

// Establish returns nil once the orders table is reachable, or one of
// MissingCredentialsError, AuthenticationRejectedError, ManualLoginTimeoutError, WaitTimeoutError.
func (e *Establisher) Establish(ctx context.Context) error {
	if e.Config.Credentials.Present() {
		if err := e.credentialLogin(ctx); err != nil {
			return err
		}
	}

	e.Log.Printf("navigate: %v", e.Config.OrdersURL())
	if err := e.Browser.Navigate(ctx, e.Config.OrdersURL()); err != nil {
		return err
	}

	state, probe, err := classify(ctx, e.Browser, e.Config.Selectors)
	if err != nil {
		return err
	}
	if state == ChallengePending {
		e.Log.Printf("challenge page detected: %v", probe.URL)
		for _, strategy := range challengeStrategies {
			if !strategy.applies(e, state) {
				continue
			}
			e.Log.Printf("auth strategy: %v", strategy.name)
			if state, err = strategy.run(e, ctx, state); err != nil {
				return err
			}
			break
		}
	}

	// post-login redirects may land anywhere, so look at the orders view once more
	if err := e.Browser.Navigate(ctx, e.Config.OrdersURL()); err != nil {
		return err
	}
	if err := e.Browser.WaitNetworkIdle(ctx); err != nil {
		return err
	}
	state, probe, err = classify(ctx, e.Browser, e.Config.Selectors)
	if err != nil {
		return err
	}
	if state != Authenticated {
		return AuthenticationRejectedError{URL: probe.URL}
	}
	e.Log.Printf("authenticated: %v", probe.URL)

	if e.Config.SessionStatePath != "" {
		if err := e.Browser.SaveSessionState(ctx, e.Config.SessionStatePath); err != nil {
			return err
		}
		e.Log.Printf("session state saved to %v", e.Config.SessionStatePath)
	}
	return nil
}

func (e *Establisher) credentialStrategy(ctx context.Context, state AuthState) (AuthState, error) {
	if e.loginAttempted {
		// already tried once; the final check reports the rejection
		return state, nil
	}
	if err := e.credentialLogin(ctx); err != nil {
		return state, err
	}
	return Unauthenticated, nil
}

// credentialLogin fills the login form once.
func (e *Establisher) credentialLogin(ctx context.Context) error {
	e.loginAttempted = true
	selectors := e.Config.Selectors

	e.Log.Printf("login: %v", e.Config.LoginURL())
	if err := e.Browser.Navigate(ctx, e.Config.LoginURL()); err != nil {
		return err
	}
	if err := e.Browser.WaitVisible(ctx, selectors.Identifier); err != nil {
		return err
	}
	if err := e.Browser.WaitVisible(ctx, selectors.Secret); err != nil {
		return err
	}
	if err := e.Browser.Fill(ctx, selectors.Identifier, e.Config.Credentials.Identifier); err != nil {
		return err
	}
	if err := e.Browser.Fill(ctx, selectors.Secret, e.Config.Credentials.Secret); err != nil {
		return err
	}

	submitted, err := e.clickSubmit(ctx)
	if err != nil {
		return err
	}
	if !submitted {
		// the secret field may already be gone if the form submitted without a URL change
		n, err := e.Browser.Count(ctx, selectors.Secret)
		if err != nil {
			return err
		}
		if n > 0 {
			e.Log.Printf("login: no navigation after click, pressing %v", KeyEnter)
			if err := e.Browser.Press(ctx, selectors.Secret, KeyEnter); err != nil {
				return err
			}
		}
	}
	return e.Browser.WaitNetworkIdle(ctx)
}

// clickSubmit clicks the submit control if there is one and reports whether a navigation followed within SubmitGrace.
func (e *Establisher) clickSubmit(ctx context.Context) (bool, error) {
	submit := e.Config.Selectors.Submit
	if submit == "" {
		return false, nil
	}
	n, err := e.Browser.Count(ctx, submit)
	if err != nil || n == 0 {
		return false, err
	}
	before, err := e.Browser.CurrentURL(ctx)
	if err != nil {
		return false, err
	}
	if err := e.Browser.Click(ctx, submit); err != nil {
		return false, err
	}
	return e.waitURLChange(ctx, before, e.SubmitGrace)
}

// urlPollStep is how often the URL is read while waiting for a submit to navigate.
const urlPollStep = 100 * time.Millisecond

var (
	errURLUnchanged = errors.New("url unchanged")
	errLoginPending = errors.New("orders table not visible yet")
)

// pollBackOff retries every interval until maxElapsed has passed or ctx is done.
// A non-positive maxElapsed allows a single attempt.
func pollBackOff(ctx context.Context, interval, maxElapsed time.Duration) backoff.BackOff {
	if maxElapsed <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	return backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(interval),
		backoff.WithMaxInterval(interval),
		backoff.WithRandomizationFactor(0),
		backoff.WithMultiplier(1),
		backoff.WithMaxElapsedTime(maxElapsed),
	), ctx)
}

func (e *Establisher) waitURLChange(ctx context.Context, before string, grace time.Duration) (bool, error) {
	operation := func() error {
		current, err := e.Browser.CurrentURL(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if current == before {
			return errURLUnchanged
		}
		return nil
	}
	err := backoff.Retry(operation, pollBackOff(ctx, min(urlPollStep, grace), grace))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errURLUnchanged):
		return false, nil
	default:
		return false, err
	}
}

// manualStrategy waits for a human to finish the login in the visible window.
func (e *Establisher) manualStrategy(ctx context.Context, state AuthState) (AuthState, error) {
	e.Log.Printf("Manual login mode: complete login/2FA in opened browser window...")
	operation := func() error {
		current, probe, err := classify(ctx, e.Browser, e.Config.Selectors)
		if err != nil {
			// the page is usually mid-navigation while the human is typing
			e.Log.Printf("manual login: probe failed: %v", err)
			return err
		}
		if current != Authenticated || probe.Tables == 0 {
			return errLoginPending
		}
		return nil
	}
	err := backoff.Retry(operation, pollBackOff(ctx, e.PollInterval, e.Config.Timeout))
	switch {
	case err == nil:
		e.Log.Printf("manual login completed")
		return Authenticated, nil
	case ctx.Err() != nil:
		return state, ctx.Err()
	default:
		return state, ManualLoginTimeoutError{Timeout: e.Config.Timeout}
	}
}
