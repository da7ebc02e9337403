package orderscraper

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the application that serves the orders table.
	DefaultBaseURL = "https://web.roapp.io"
	// LoginPath is the path segment of the login endpoint; a URL containing it is a challenge page.
	LoginPath  = "/login"
	OrdersPath = "/orders/table"

	// DefaultTimeout bounds every single wait on the browser
	DefaultTimeout = 45 * time.Second
	// DefaultSubmitGrace is how long a submit click may take to start a navigation before Enter is pressed instead
	DefaultSubmitGrace = 3 * time.Second
	// ManualLoginPollInterval is the interval between checks while a human completes the login
	ManualLoginPollInterval = 1 * time.Second

	DefaultOutputPath = "orders.csv"
	DefaultLocale     = "ru-RU"
)

type Credentials struct {
	Identifier string
	Secret     string
}

// Present reports whether both parts are given.
func (c Credentials) Present() bool {
	return strings.TrimSpace(c.Identifier) != "" && strings.TrimSpace(c.Secret) != ""
}

// Selectors are the CSS selectors the login detector and the credential flow look for.
type Selectors struct {
	Table      string
	Identifier string // identifier-style inputs (login/email)
	Secret     string // secret-style inputs (password)
	Submit     string
}

var DefaultSelectors = Selectors{
	Table:      "table",
	Identifier: `input#login, input[type="email"], input[name*="email" i], input[name*="login" i]`,
	Secret:     `input#password, input[type="password"], input[name*="password" i]`,
	Submit:     `button[type="submit"], input[type="submit"]`,
}

// Config is built once at process start and passed to every component.
type Config struct {
	Credentials      Credentials
	OutputPath       string
	OutputEncoding   string // charset of the output file; empty means UTF-8
	Headless         bool
	ManualLogin      bool
	Timeout          time.Duration
	SessionStatePath string // empty disables session reuse
	BaseURL          string
	Locale           string
	NoSandbox        bool // needed when running as root or inside containers
	Selectors        Selectors
}

func DefaultConfig() Config {
	return Config{
		OutputPath: DefaultOutputPath,
		Headless:   true,
		Timeout:    DefaultTimeout,
		BaseURL:    DefaultBaseURL,
		Locale:     DefaultLocale,
		Selectors:  DefaultSelectors,
	}
}

func (config Config) LoginURL() string {
	return strings.TrimSuffix(config.BaseURL, "/") + LoginPath
}

func (config Config) OrdersURL() string {
	return strings.TrimSuffix(config.BaseURL, "/") + OrdersPath
}

// HumanVisible reports whether a person can interact with the browser window.
func (config Config) HumanVisible() bool {
	return !config.Headless
}

func (config Config) Validate() error {
	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %v", config.Timeout)
	}
	if strings.TrimSpace(config.OutputPath) == "" {
		return errors.New("output path is empty")
	}
	if strings.TrimSpace(config.BaseURL) == "" {
		return errors.New("base url is empty")
	}
	if _, err := outputEncoding(config.OutputEncoding); err != nil {
		return err
	}
	if config.Selectors.Table == "" || config.Selectors.Identifier == "" || config.Selectors.Secret == "" {
		return errors.New("table, identifier and secret selectors are required")
	}
	return nil
}
