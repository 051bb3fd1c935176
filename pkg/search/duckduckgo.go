package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/NullRecords/nullrecords-cms/pkg/fetch"
	"github.com/PuerkitoBio/goquery"
)

const duckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the HTML results page.
type DuckDuckGo struct {
	Client    Doer
	BaseURL   string   // defaults to the public HTML endpoint
	Blocklist []string // defaults to DefaultBlocklist
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string, max int) ([]Result, error) {
	base := d.BaseURL
	if base == "" {
		base = duckDuckGoURL
	}
	block := d.Blocklist
	if block == nil {
		block = DefaultBlocklist
	}

	page, err := d.Client.Do(ctx, fetch.Request{URL: base + "?q=" + url.QueryEscape(query)})
	if err != nil {
		return nil, fmt.Errorf("duckduckgo %q: %w", query, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo %q: parse results: %w", query, err)
	}

	var raw []Result
	// DDG HTML results: <a class="result__a" href="...">
	doc.Find("a.result__a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		raw = append(raw, Result{
			URL:   decodeRedirect(strings.TrimSpace(href)),
			Title: strings.TrimSpace(a.Text()),
		})
	})
	return filter(raw, block, max), nil
}

// decodeRedirect unwraps /l/?uddg=<target> links.
func decodeRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if uddg := u.Query().Get("uddg"); uddg != "" {
		return uddg
	}
	return href
}
