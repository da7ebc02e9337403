package orderscraper

import (
	"context"
	"strings"
)

type AuthState int

const (
	Unauthenticated  AuthState = iota // nothing checked yet
	ChallengePending                  // login, 2FA or verification page shown
	Authenticated                     // orders table visible
)

func (state AuthState) String() string {
	switch state {
	case Unauthenticated:
		return "Unauthenticated"
	case ChallengePending:
		return "ChallengePending"
	case Authenticated:
		return "Authenticated"
	default:
		return "AuthState(?)"
	}
}

// PageProbe is what the login detector needs to know about the current page.
type PageProbe struct {
	URL              string
	Tables           int
	SecretInputs     int
	IdentifierInputs int
}

// ClassifyPage is the login-page detector. A table on the page always wins over login-like inputs,
// which may be decorative or hidden.
func ClassifyPage(probe PageProbe, loginPath string) AuthState {
	if probe.Tables > 0 {
		return Authenticated
	}
	isLoginURL := loginPath != "" && strings.Contains(probe.URL, loginPath)
	hasLoginForm := probe.SecretInputs > 0 && probe.IdentifierInputs > 0
	if isLoginURL || hasLoginForm {
		return ChallengePending
	}
	return Authenticated
}

// probePage collects a PageProbe from the browser.
func probePage(ctx context.Context, browser Browser, selectors Selectors) (PageProbe, error) {
	var probe PageProbe
	var err error
	if probe.URL, err = browser.CurrentURL(ctx); err != nil {
		return probe, err
	}
	if probe.Tables, err = browser.Count(ctx, selectors.Table); err != nil {
		return probe, err
	}
	if probe.SecretInputs, err = browser.Count(ctx, selectors.Secret); err != nil {
		return probe, err
	}
	if probe.IdentifierInputs, err = browser.Count(ctx, selectors.Identifier); err != nil {
		return probe, err
	}
	return probe, nil
}

func classify(ctx context.Context, browser Browser, selectors Selectors) (AuthState, PageProbe, error) {
	probe, err := probePage(ctx, browser, selectors)
	if err != nil {
		return Unauthenticated, probe, err
	}
	return ClassifyPage(probe, LoginPath), probe, nil
}
