// Package extract pulls outreach details out of a scraped HTML page.
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/PuerkitoBio/goquery"
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

const (
	maxNameLen        = 50
	maxDescriptionLen = 200
	maxGenres         = 3
)

// Info is everything discovery needs from a single page.
type Info struct {
	Name           string
	Description    string
	Email          string
	ContactFormURL string
	Type           contact.Type
	Genres         []string
	// Text is the visible page text, used for scoring.
	Text string
}

// HasChannel reports whether the page yielded an email or a contact form.
func (i *Info) HasChannel() bool {
	return i.Email != "" || i.ContactFormURL != ""
}

var (
	emailRe     = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	aboutRe     = regexp.MustCompile(`(?i)about|music|blog|publication`)
	spaceRe     = regexp.MustCompile(`\s+`)
	preferEmail = []string{"contact", "info", "submit", "music", "editor", "demo"}
	formHints   = []string{"contact", "submit", "demo", "music-submission"}
	assetSuffix = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}
)

// Page parses body, fetched from pageURL.
func Page(pageURL, body string) (*Info, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	doc.Find("script, style, noscript, template").Remove()

	text := spaceRe.ReplaceAllString(doc.Text(), " ")
	info := &Info{
		Name:           siteName(doc, pageURL),
		Description:    description(doc),
		Email:          email(text),
		ContactFormURL: contactForm(doc, pageURL),
		Type:           Classify(text, pageURL),
		Genres:         Genres(text),
		Text:           strings.TrimSpace(text),
	}
	return info, nil
}

func siteName(doc *goquery.Document, pageURL string) string {
	if title := doc.Find("title").First(); title.Length() > 0 {
		name := strings.TrimSpace(title.Text())
		name = strings.SplitN(name, "|", 2)[0]
		name = strings.TrimSpace(strings.SplitN(name, "-", 2)[0])
		if name != "" && len([]rune(name)) < maxNameLen {
			return name
		}
	}
	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		if name := strings.TrimSpace(spaceRe.ReplaceAllString(h1.Text(), " ")); name != "" {
			return truncate(name, maxNameLen)
		}
	}
	return DomainLabel(pageURL)
}

// DomainLabel returns the registrable name of a URL's host, title-cased:
// "https://blog.example.co.uk/x" becomes "Example".
func DomainLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	label := strings.Split(host, ".")[0]
	if domain, err := publicsuffix.Domain(host); err == nil {
		label = strings.Split(domain, ".")[0]
	}
	return titleCase(label)
}

func description(doc *goquery.Document) string {
	if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		return truncate(strings.TrimSpace(content), maxDescriptionLen)
	}
	var out string
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		own := strings.TrimSpace(s.Contents().Not("*").Text())
		if own != "" && aboutRe.MatchString(own) {
			out = truncate(spaceRe.ReplaceAllString(own, " "), maxDescriptionLen)
			return false
		}
		return true
	})
	return out
}

func email(text string) string {
	var found []string
	for _, m := range emailRe.FindAllString(text, -1) {
		if !isAsset(m) {
			found = append(found, m)
		}
	}
	for _, e := range found {
		lower := strings.ToLower(e)
		for _, k := range preferEmail {
			if strings.Contains(lower, k) {
				return e
			}
		}
	}
	if len(found) > 0 {
		return found[0]
	}
	return ""
}

func isAsset(s string) bool {
	lower := strings.ToLower(s)
	for _, suf := range assetSuffix {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}

func contactForm(doc *goquery.Document, pageURL string) string {
	base, _ := url.Parse(pageURL)
	var out string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		lowerHref := strings.ToLower(strings.TrimSpace(href))
		if lowerHref == "" || strings.HasPrefix(lowerHref, "mailto:") || strings.HasPrefix(lowerHref, "javascript:") {
			return true
		}
		lowerText := strings.ToLower(s.Text())
		for _, k := range formHints {
			if strings.Contains(lowerHref, k) || strings.Contains(lowerText, k) {
				out = resolve(base, strings.TrimSpace(href))
				return false
			}
		}
		return true
	})
	return out
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func titleCase(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
