package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/NullRecords/nullrecords-cms/pkg/fetch"
	"github.com/tidwall/gjson"
)

const braveURL = "https://api.search.brave.com/res/v1/web/search"

// Brave queries the Brave Search JSON API.
type Brave struct {
	Client    Doer
	Token     string
	BaseURL   string
	Blocklist []string
}

func (b *Brave) Name() string { return "brave" }

func (b *Brave) Search(ctx context.Context, query string, max int) ([]Result, error) {
	base := b.BaseURL
	if base == "" {
		base = braveURL
	}
	block := b.Blocklist
	if block == nil {
		block = DefaultBlocklist
	}
	count := max
	if count <= 0 || count > 20 {
		count = 20
	}

	page, err := b.Client.Do(ctx, fetch.Request{
		URL: base + "?q=" + url.QueryEscape(query) + "&count=" + strconv.Itoa(count),
		Headers: []fetch.Header{
			{Name: "Accept", Value: "application/json"},
			{Name: "X-Subscription-Token", Value: b.Token},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("brave %q: %w", query, err)
	}
	if !gjson.Valid(page.Body) {
		return nil, fmt.Errorf("brave %q: invalid JSON response", query)
	}

	var raw []Result
	gjson.Get(page.Body, "web.results").ForEach(func(_, v gjson.Result) bool {
		raw = append(raw, Result{URL: v.Get("url").String(), Title: v.Get("title").String()})
		return true
	})
	return filter(raw, block, max), nil
}
