package orderscraper

import (
	"context"
	"fmt"
)

// Run opens a browser, authenticates, extracts the orders table and writes it to config.OutputPath.
// The browser is closed on every path. Use ExitCode to turn the error into a process exit code.
func Run(ctx context.Context, config Config, log Logger) ([]Record, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	browser, cancel, err := NewChrome(NewChromeOptions{
		Headless:         config.Headless,
		Timeout:          config.Timeout,
		Locale:           config.Locale,
		NoSandbox:        config.NoSandbox,
		SessionStatePath: config.SessionStatePath,
	}, log)
	defer cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return RunWithBrowser(ctx, browser, config, log)
}

// RunWithBrowser is Run on an already opened browser.
func RunWithBrowser(ctx context.Context, browser Browser, config Config, log Logger) ([]Record, error) {
	establisher := NewEstablisher(browser, config, log)
	if err := establisher.Establish(ctx); err != nil {
		return nil, err
	}
	records, err := ExtractOrders(ctx, browser, config, log)
	if err != nil {
		return nil, err
	}
	if err := WriteRecords(config.OutputPath, records, config.OutputEncoding); err != nil {
		return nil, err
	}
	log.Printf("Saved %d rows to %v", len(records), config.OutputPath)
	return records, nil
}
