package orderscraper

import (
	"context"
)

// ExtractOrders reads the first table on the current page into records.
// The page must already be authenticated.
func ExtractOrders(ctx context.Context, browser Browser, config Config, log Logger) ([]Record, error) {
	selector := config.Selectors.Table
	if err := browser.WaitVisible(ctx, selector); err != nil {
		return nil, err
	}
	html, err := browser.OuterHTML(ctx, selector)
	if err != nil {
		return nil, err
	}
	pageUrl, err := browser.CurrentURL(ctx)
	if err != nil {
		return nil, err
	}

	page, err := NewPage(html, pageUrl, log)
	if err != nil {
		return nil, err
	}
	table, err := page.FirstTable("table")
	if err != nil {
		return nil, err
	}
	records, headers := ParseTable(table)
	log.Printf("table: %d columns %q, %d records", len(headers), headers, len(records))
	return records, nil
}
