// Package listing extracts structured fields from search-results and detail
// pages. Every entry point is defensive: malformed or missing markup yields
// partial results with defaulted fields, never an error for the pipeline.
package listing

import (
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"leadgen-engine/internal/domain"
)

// Verbose turns on per-element parse-gap logging. Scraped markup is messy
// enough that these are noise in a normal run.
var Verbose bool

func debugf(format string, args ...any) {
	if Verbose {
		log.Printf("[debug] "+format, args...)
	}
}

// Summary is the minimal lead identity found on a results page.
type Summary struct {
	URL   string
	Title string
}

// ContactReply is the fixed label recorded when a detail page carries a
// reply-style contact affordance.
const ContactReply = "Reply Button"

// ParseResultsPage extracts candidate listings from one search-results page.
// Listings with relative URLs are dropped: identity requires an absolute URL.
// maxItems <= 0 means no cap.
func ParseResultsPage(html string, maxItems int) []Summary {
	var out []Summary
	if html == "" {
		return out
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Printf("[parse] results page unreadable: %v", err)
		return out
	}

	doc.Find("div.cl-search-result").EachWithBreak(func(_ int, result *goquery.Selection) bool {
		if maxItems > 0 && len(out) >= maxItems {
			return false
		}

		a := result.Find("a.posting-title").First()
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return true
		}
		if !strings.HasPrefix(strings.ToLower(href), "http") {
			debugf("dropping relative listing url: %s", href)
			return true
		}

		title := CleanText(a.Find("span.label").First().Text())
		if title == "" {
			title = CleanText(a.Text())
		}

		out = append(out, Summary{URL: href, Title: title})
		return true
	})

	return out
}

// ParseDetailPage merges a results-page summary with the fields only the
// detail page has: description, posting time and contact affordance.
// Missing elements default (nil date, empty contact) rather than failing.
func ParseDetailPage(html string, base Summary) domain.Lead {
	lead := domain.Lead{
		URL:       base.URL,
		Title:     base.Title,
		ScrapedAt: time.Now().UTC(),
	}
	if html == "" {
		return lead
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Printf("[parse] detail page unreadable url=%s err=%v", base.URL, err)
		return lead
	}

	if body := doc.Find("#postingbody").First(); body.Length() > 0 {
		// the QR-code blurb is boilerplate, not description
		body.Find("div.print-qrcode-container").Remove()
		lead.Description = CleanText(body.Text())
	}

	if tt := doc.Find("time.date.timeago").First(); tt.Length() > 0 {
		if raw, ok := tt.Attr("datetime"); ok {
			if t, err := parsePostingTime(raw); err == nil {
				lead.PostedAt = &t
			}
		}
	}

	if doc.Find("button.reply-button").Length() > 0 {
		lead.ContactMethod = ContactReply
	}

	return lead
}

// FindNextPageLink returns the href of the next-page affordance, or "" when
// the category is exhausted for this region.
func FindNextPageLink(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if href, ok := doc.Find("a.button.next").First().Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	return ""
}

func parsePostingTime(raw string) (t time.Time, err error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02 15:04"} {
		if t, err = time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// CleanText collapses whitespace and NBSPs the way scraped markup needs.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}
