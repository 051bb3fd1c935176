// Package search finds candidate music sites for discovery.
package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/NullRecords/nullrecords-cms/pkg/fetch"
)

// Result is one search hit.
type Result struct {
	URL   string
	Title string
}

// Engine runs a web search.
type Engine interface {
	Name() string
	Search(ctx context.Context, query string, max int) ([]Result, error)
}

// Doer performs an HTTP GET. *fetch.Fetcher satisfies it.
type Doer interface {
	Do(ctx context.Context, req fetch.Request) (*fetch.Page, error)
}

// DefaultBlocklist holds hosts that never yield a useful outreach contact.
var DefaultBlocklist = []string{
	"duckduckgo.com",
	"facebook.com",
	"instagram.com",
	"twitter.com",
	"x.com",
	"youtube.com",
	"tiktok.com",
	"reddit.com",
	"wikipedia.org",
	"amazon.com",
}

// New returns the engine called name.
func New(name string, client Doer, braveToken string) (Engine, error) {
	switch strings.ToLower(name) {
	case "", "duckduckgo", "ddg":
		return &DuckDuckGo{Client: client}, nil
	case "brave":
		if braveToken == "" {
			return nil, fmt.Errorf("brave search needs an API token")
		}
		return &Brave{Client: client, Token: braveToken}, nil
	}
	return nil, fmt.Errorf("unknown search engine %q", name)
}

// filter keeps absolute http(s) URLs on non-blocked hosts, dropping
// duplicates, up to max results.
func filter(in []Result, blocklist []string, max int) []Result {
	seen := make(map[string]bool, len(in))
	out := make([]Result, 0, len(in))
	for _, r := range in {
		if max > 0 && len(out) >= max {
			break
		}
		u, err := url.Parse(r.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if isBlocked(host, blocklist) || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}

func isBlocked(host string, blocklist []string) bool {
	for _, b := range blocklist {
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}
