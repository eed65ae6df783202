package crawl

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"leadgen-engine/internal/listing"
)

// crawlRegion drains every (category x page) for one region: discover
// candidates, pre-filter, fetch details concurrently, grade, persist.
// It returns only on context cancellation or when the whole region is done;
// per-item failures are logged and skipped.
func (o *Orchestrator) crawlRegion(ctx context.Context, region string) error {
	for _, category := range o.opts.Categories {
		if err := o.crawlCategory(ctx, region, category); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// a dead category doesn't kill the region
			log.Printf("[region:%s] category %s: %v", region, category, err)
		}
	}
	return ctx.Err()
}

func (o *Orchestrator) crawlCategory(ctx context.Context, region, category string) error {
	pageURL := fmt.Sprintf(o.opts.SearchURL, region, category)

	for page := 1; page <= o.opts.MaxPagesPerCategory; page++ {
		item := WorkItem{Region: region, Category: category, Page: page}

		body, _, err := o.fetch.Get(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// fetch layer already retried; skip the rest of this category
			return fmt.Errorf("search page %d: %w", page, err)
		}

		summaries := listing.ParseResultsPage(body, o.opts.MaxLeadsPerPage)
		log.Printf("[region:%s] %s page %d: %d candidates", region, category, page, len(summaries))

		var survivors []listing.Summary
		for _, s := range summaries {
			if keep, why := o.filter.PassesTitle(s.Title); !keep {
				log.Printf("[region:%s] skipped (%s) title=%q url=%q", region, why, s.Title, s.URL)
				continue
			}
			if !o.sameRegionHost(region, s.URL) {
				log.Printf("[region:%s] skipped (cross_region) url=%q", region, s.URL)
				continue
			}
			survivors = append(survivors, s)
		}

		if len(survivors) > 0 {
			var g errgroup.Group
			g.SetLimit(o.opts.InnerWorkers)
			for _, s := range survivors {
				s := s
				g.Go(func() error {
					o.processLead(ctx, item, s)
					return nil
				})
			}
			// join before pagination: the region checkpoint must never run
			// ahead of in-flight detail work
			_ = g.Wait()
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		next := listing.FindNextPageLink(body)
		if next == "" {
			return nil // category exhausted
		}
		pageURL = resolveNext(pageURL, next)
	}
	return nil
}

// processLead runs the per-candidate tail of the pipeline. Every failure
// path is soft: log, drop this one lead, keep the region going.
func (o *Orchestrator) processLead(ctx context.Context, item WorkItem, s listing.Summary) {
	body, _, err := o.fetch.Get(ctx, s.URL)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("[region:%s] detail unavailable url=%q err=%v", item.Region, s.URL, err)
		return
	}

	lead := listing.ParseDetailPage(body, s)
	lead.Region = item.Region
	lead.Category = item.Category

	if keep, why := o.filter.Passes(lead); !keep {
		log.Printf("[region:%s] skipped (%s) url=%q", item.Region, why, lead.URL)
		return
	}

	// Dedup probe before the expensive grading call. InsertLeadIgnore below
	// stays the authoritative gate.
	if seen, err := o.db.HasLead(ctx, lead.URL); err != nil {
		log.Printf("[region:%s] dedup probe failed url=%q err=%v", item.Region, lead.URL, err)
	} else if seen {
		log.Printf("[region:%s] duplicate url=%q", item.Region, lead.URL)
		return
	}

	if o.grader != nil {
		lead.Grade = o.grader.Grade(ctx, lead)
	}

	added, err := o.db.InsertLeadIgnore(ctx, lead)
	if err != nil {
		log.Printf("[region:%s] insert failed url=%q err=%v", item.Region, lead.URL, err)
		return
	}
	if !added {
		log.Printf("[region:%s] duplicate at insert url=%q", item.Region, lead.URL)
		return
	}

	if lead.Grade.Score != nil {
		log.Printf("[region:%s] added lead (score %d): %s", item.Region, *lead.Grade.Score, lead.URL)
	} else {
		log.Printf("[region:%s] added lead (ungraded): %s", item.Region, lead.URL)
	}
}

// sameRegionHost guards against a results page linking into another region's
// listings. Disabled when no host pattern is configured.
func (o *Orchestrator) sameRegionHost(region, rawURL string) bool {
	if o.opts.HostPattern == "" {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, fmt.Sprintf(o.opts.HostPattern, region))
}

func resolveNext(current, next string) string {
	base, err := url.Parse(current)
	if err != nil {
		return next
	}
	ref, err := url.Parse(next)
	if err != nil {
		return next
	}
	return base.ResolveReference(ref).String()
}
