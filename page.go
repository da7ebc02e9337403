package orderscraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is an HTML snapshot taken from the browser.
type Page struct {
	*goquery.Document
	BaseUrl *url.URL
	Logger  Logger
}

func NewPage(html string, pageUrl string, logger Logger) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	baseUrl, err := url.Parse(pageUrl)
	if err != nil {
		return nil, err
	}
	doc.Url = baseUrl
	return &Page{doc, baseUrl, logger}, nil
}

// FirstTable returns the first element matching selector.
func (page *Page) FirstTable(selector string) (*goquery.Selection, error) {
	table := page.Find(selector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%v '%v': found 0 items", page.BaseUrl, selector)
	}
	return table, nil
}
