package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadgen-engine/internal/domain"
	"leadgen-engine/internal/fetch"
	"leadgen-engine/internal/prefilter"
	"leadgen-engine/internal/store"
)

// countingGrader records which URLs were sent for grading and returns a
// fixed score for each.
type countingGrader struct {
	mu   sync.Mutex
	urls []string
}

func (g *countingGrader) Grade(_ context.Context, lead domain.Lead) domain.Grade {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.urls = append(g.urls, lead.URL)
	isJunk := false
	score := 5
	return domain.Grade{IsJunk: &isJunk, Score: &score}
}

func resultsPage(listings map[string]string) string {
	page := "<html><body>"
	for u, title := range listings {
		page += fmt.Sprintf(
			`<div class="cl-search-result"><a class="posting-title" href=%q><span class="label">%s</span></a></div>`,
			u, title)
	}
	return page + "</body></html>"
}

func detailPage(description string, postedAt time.Time) string {
	return fmt.Sprintf(
		`<html><body>
		<section id="postingbody">%s</section>
		<time class="date timeago" datetime=%q></time>
		<button class="reply-button">reply</button>
		</body></html>`,
		description, postedAt.Format(time.RFC3339))
}

// TestOrchestratorEndToEnd drives the full pipeline against a local HTTP
// server and a real on-disk store. Two regions share one listing URL, one
// URL is already in the store from a previous run, and two listings are
// blacklisted, one by title and one only by its description. Expectations:
// every distinct clean URL is stored once, only new URLs are graded,
// blacklisted listings never reach the grader or the store, and the
// checkpoint lands on the last region.
func TestOrchestratorEndToEnd(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, store.Migrate(db.Pool))

	var baseURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/alpha/search/web", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, resultsPage(map[string]string{
			baseURL + "/post/u1.html": "website refresh for a bakery",
			baseURL + "/post/u2.html": "need a landing page built",
			baseURL + "/post/u5.html": "hiring a full time web designer",
		}))
	})
	mux.HandleFunc("/beta/search/web", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, resultsPage(map[string]string{
			baseURL + "/post/u2.html": "need a landing page built",
			baseURL + "/post/u3.html": "logo and brand identity wanted",
			baseURL + "/post/u4.html": "shopify store setup help",
			baseURL + "/post/u6.html": "brochure design project",
		}))
	})
	// u6 looks clean on the results page; only its description is disqualifying
	mux.HandleFunc("/post/u6.html", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, detailPage("we are hiring an in-house designer", time.Now().UTC().Add(-24*time.Hour)))
	})
	mux.HandleFunc("/post/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, detailPage("project details here", time.Now().UTC().Add(-24*time.Hour)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	baseURL = srv.URL

	// u1 was stored by an earlier run; rediscovering it must not re-grade it
	_, err = db.InsertLeadIgnore(context.Background(), domain.Lead{
		URL:       baseURL + "/post/u1.html",
		Title:     "website refresh for a bakery",
		Region:    "alpha",
		Category:  "web",
		ScrapedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	client, err := fetch.NewClient(fetch.Config{
		MaxRetries:    2,
		Timeout:       5 * time.Second,
		HostReqPerSec: 1000,
		HostBurst:     100,
	})
	require.NoError(t, err)

	grader := &countingGrader{}
	orch := NewOrchestrator(Options{
		Regions:             []string{"alpha", "beta"},
		Categories:          []string{"web"},
		SearchURL:           baseURL + "/%s/search/%s",
		MaxPagesPerCategory: 1,
		InnerWorkers:        4,
		OuterLimit:          1, // sequential regions, so cross-region dedup is deterministic
		Resume:              true,
	}, db, client, prefilter.New([]string{"hiring"}, 0), grader)

	require.NoError(t, orch.Run(context.Background()))

	ctx := context.Background()
	n, err := db.CountLeads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "u1..u4 each stored exactly once")

	assert.Len(t, grader.urls, 3, "only u2, u3, u4 are new and graded")
	for _, u := range grader.urls {
		assert.NotEqual(t, baseURL+"/post/u1.html", u, "pre-seeded URL must skip grading")
		assert.NotEqual(t, baseURL+"/post/u5.html", u, "blacklisted title must never be graded")
		assert.NotEqual(t, baseURL+"/post/u6.html", u, "blacklisted description must never be graded")
	}

	for _, u := range []string{baseURL + "/post/u5.html", baseURL + "/post/u6.html"} {
		seen, err := db.HasLead(ctx, u)
		require.NoError(t, err)
		assert.False(t, seen, "blacklisted listing must never be stored: %s", u)
	}

	cp, err := db.LastCompletedRegion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "beta", cp)

	// a second run resumes past both regions and does nothing
	grader2 := &countingGrader{}
	orch2 := NewOrchestrator(Options{
		Regions:             []string{"alpha", "beta"},
		Categories:          []string{"web"},
		SearchURL:           baseURL + "/%s/search/%s",
		MaxPagesPerCategory: 1,
		InnerWorkers:        4,
		OuterLimit:          1,
		Resume:              true,
	}, db, client, prefilter.New([]string{"hiring"}, 0), grader2)
	require.NoError(t, orch2.Run(context.Background()))
	assert.Empty(t, grader2.urls)

	n, err = db.CountLeads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestSameRegionHostGuard(t *testing.T) {
	o := NewOrchestrator(Options{HostPattern: "%s.craigslist.org"}, nil, nil, nil, nil)

	assert.True(t, o.sameRegionHost("newyork", "https://newyork.craigslist.org/web/1.html"))
	assert.False(t, o.sameRegionHost("newyork", "https://chicago.craigslist.org/web/1.html"))

	// no pattern disables the guard
	open := NewOrchestrator(Options{}, nil, nil, nil, nil)
	assert.True(t, open.sameRegionHost("newyork", "https://anything.example/x"))
}
