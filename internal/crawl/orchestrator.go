// Package crawl ties work enumeration, fetching, parsing, filtering, grading
// and persistence into the per-region pipeline, and owns the two-level
// concurrency model: one bounded worker per region, a bounded detail pool
// inside each region.
package crawl

import (
	"context"
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"

	"leadgen-engine/internal/domain"
	"leadgen-engine/internal/prefilter"
	"leadgen-engine/internal/store"
)

// Fetcher is the retrying page getter. *fetch.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) (body string, status int, err error)
}

// Grader is the enrichment call. *grade.Engine satisfies it.
type Grader interface {
	Grade(ctx context.Context, lead domain.Lead) domain.Grade
}

type Options struct {
	Regions             []string
	Categories          []string
	SearchURL           string // printf pattern: region, category
	HostPattern         string // optional cross-region guard: %s = region; "" disables
	MaxPagesPerCategory int
	MaxLeadsPerPage     int // 0 = unlimited
	InnerWorkers        int
	OuterMultiplier     int
	OuterLimit          int // 0 = NumCPU * OuterMultiplier
	Resume              bool
}

type Orchestrator struct {
	opts   Options
	db     *store.DB
	fetch  Fetcher
	filter *prefilter.Filter
	grader Grader // nil when grading is disabled
}

func NewOrchestrator(opts Options, db *store.DB, f Fetcher, pf *prefilter.Filter, g Grader) *Orchestrator {
	if opts.MaxPagesPerCategory <= 0 {
		opts.MaxPagesPerCategory = 5
	}
	if opts.InnerWorkers <= 0 {
		opts.InnerWorkers = 8
	}
	if opts.OuterMultiplier <= 0 {
		opts.OuterMultiplier = 2
	}
	return &Orchestrator{opts: opts, db: db, fetch: f, filter: pf, grader: g}
}

// Run crawls every remaining region. Region failures are soft: a region that
// errors is abandoned for this run (no checkpoint) and the rest continue.
// The only errors surfaced are context cancellation.
func (o *Orchestrator) Run(ctx context.Context) error {
	last := ""
	if o.opts.Resume {
		v, err := o.db.LastCompletedRegion(ctx)
		if err != nil {
			log.Printf("[resume] checkpoint unreadable, starting fresh: %v", err)
		} else {
			last = v
		}
	}

	remaining := Remaining(o.opts.Regions, last)
	if len(remaining) == 0 {
		log.Printf("[crawl] nothing to do, all %d regions completed", len(o.opts.Regions))
		return nil
	}
	if last != "" && len(remaining) < len(o.opts.Regions) {
		log.Printf("[resume] skipping %d completed regions, resuming after %q",
			len(o.opts.Regions)-len(remaining), last)
	}

	outer := o.opts.OuterLimit
	if outer <= 0 {
		outer = runtime.NumCPU() * o.opts.OuterMultiplier
	}
	if outer > len(remaining) {
		outer = len(remaining)
	}
	log.Printf("[crawl] %d regions, %d in flight, %d detail workers each",
		len(remaining), outer, o.opts.InnerWorkers)

	tracker := newCheckpointTracker(remaining)

	var g errgroup.Group
	g.SetLimit(outer)

	for _, region := range remaining {
		region := region
		g.Go(func() error {
			if err := o.crawlRegion(ctx, region); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// soft failure: next run redoes this region from scratch
				log.Printf("[region:%s] abandoned: %v", region, err)
				return nil
			}

			if cp, ok := tracker.complete(region); ok {
				if err := o.db.SetLastCompletedRegion(ctx, cp); err != nil {
					log.Printf("[region:%s] checkpoint write failed: %v", region, err)
				} else {
					log.Printf("[region:%s] done, checkpoint now %q", region, cp)
				}
			} else {
				log.Printf("[region:%s] done, checkpoint held back by an earlier region", region)
			}
			return nil
		})
	}

	return g.Wait()
}
