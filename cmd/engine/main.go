package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"leadgen-engine/internal/config"
	"leadgen-engine/internal/crawl"
	"leadgen-engine/internal/export"
	"leadgen-engine/internal/fetch"
	"leadgen-engine/internal/grade"
	"leadgen-engine/internal/listing"
	"leadgen-engine/internal/prefilter"
	"leadgen-engine/internal/secrets"
	"leadgen-engine/internal/store"
)

func main() {
	var (
		flagConfig   = flag.String("config", "", "path to config.yml (default: <data dir>/config.yml)")
		flagRegions  = flag.String("regions", "", "optional regions yaml overriding crawl.regions")
		flagCats     = flag.String("categories", "", "comma-separated category codes overriding crawl.categories")
		flagVerbose  = flag.Bool("v", false, "verbose parse-gap logging")
		flagMaxPages = flag.Int("max-pages", 0, "max pages per category (overrides config)")
		flagWorkers  = flag.Int("workers", 0, "inner detail-pool size (overrides config)")
		flagResume   = flag.Bool("resume", true, "resume from the last completed region")
		flagExport   = flag.String("export", "", "leads JSON output path (overrides config)")
	)
	flag.Parse()

	// .env is optional; real deployments use the environment or the keyring.
	_ = godotenv.Load()

	dataDir := os.Getenv("LEADGEN_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	cfgPath := *flagConfig
	if cfgPath == "" {
		p, err := config.EnsureUserConfig(dataDir, filepath.Join("config", "config.yml"))
		if err != nil {
			log.Fatalf("config bootstrap failed: %v", err)
		}
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", cfgPath, err)
	}
	if *flagRegions != "" {
		if err := config.OverlayRegions(&cfg, *flagRegions); err != nil {
			log.Fatalf("regions overlay failed: %v", err)
		}
	}
	if *flagCats != "" {
		cfg.Crawl.Categories = strings.Split(*flagCats, ",")
	}
	config.NormalizeLists(&cfg)
	if err := config.Validate(cfg); err != nil {
		log.Fatal(err)
	}

	listing.Verbose = cfg.App.Verbose || *flagVerbose

	// the config file can relocate the data dir; the environment still wins
	if resolved := config.DataDir(cfg); resolved != dataDir {
		dataDir = resolved
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			log.Fatal(err)
		}
	}

	// CLI-level controls win over the config file.
	if *flagMaxPages > 0 {
		cfg.Crawl.MaxPagesPerCategory = *flagMaxPages
	}
	if *flagWorkers > 0 {
		cfg.Crawl.InnerWorkers = *flagWorkers
	}
	cfg.Crawl.Resume = *flagResume
	if *flagExport != "" {
		cfg.Export.Path = *flagExport
	}

	dbPath := filepath.Join(dataDir, "leads.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("store open failed (%s): %v", dbPath, err)
	}
	defer db.Close()

	if err := store.Migrate(db.Pool); err != nil {
		log.Fatalf("store migrate failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if n, err := db.CountLeads(ctx); err == nil {
		log.Printf("[engine] %d leads in store (db=%s)", n, dbPath)
	}

	client, err := fetch.NewClient(fetch.Config{
		ProxyEndpoint: cfg.Proxy.Endpoint,
		ProxyUsername: cfg.Proxy.Username,
		ProxyPassword: secrets.ProxyPassword(cfg.Proxy.Password),
		MaxRetries:    cfg.Fetch.MaxRetries,
		Timeout:       time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		HostReqPerSec: cfg.Fetch.HostReqPerSec,
		HostBurst:     cfg.Fetch.HostBurst,
	})
	if err != nil {
		log.Fatalf("fetch client setup failed: %v", err)
	}

	filter := prefilter.New(cfg.PreFilter.BlacklistTerms, cfg.PreFilter.MaxAgeDays)

	var grader crawl.Grader
	if cfg.Grading.Enabled {
		keys := secrets.GradingAPIKeys(cfg.Grading.APIKeys)
		if len(keys) == 0 {
			log.Printf("[engine] grading enabled but no API keys found; leads will be stored ungraded")
		} else {
			grader = grade.NewEngine(grade.Config{
				APIKeys:   keys,
				Model:     cfg.Grading.Model,
				MaxTokens: cfg.Grading.MaxTokens,
				Cooldown:  time.Duration(cfg.Grading.CooldownMinutes) * time.Minute,
				MaxWait:   time.Duration(cfg.Grading.MaxWaitSeconds) * time.Second,
			})
			log.Printf("[engine] grading with %d credential(s), model=%s", len(keys), cfg.Grading.Model)
		}
	}

	orch := crawl.NewOrchestrator(crawl.Options{
		Regions:             cfg.Crawl.Regions,
		Categories:          cfg.Crawl.Categories,
		SearchURL:           cfg.Site.SearchURL,
		HostPattern:         cfg.Site.Host,
		MaxPagesPerCategory: cfg.Crawl.MaxPagesPerCategory,
		MaxLeadsPerPage:     cfg.Crawl.MaxLeadsPerPage,
		InnerWorkers:        cfg.Crawl.InnerWorkers,
		OuterMultiplier:     cfg.Crawl.OuterMultiplier,
		Resume:              cfg.Crawl.Resume,
	}, db, client, filter, grader)

	start := time.Now()
	if err := orch.Run(ctx); err != nil {
		// Cancellation is the expected shutdown path: the checkpoint covers
		// every fully-drained region and URL dedup covers the rest.
		log.Printf("[engine] crawl stopped: %v", err)
	}
	log.Printf("[engine] crawl finished in %s", time.Since(start).Round(time.Second))

	if cfg.Export.Path != "" {
		// Export what we have even after an interrupted run.
		leads, err := db.ListLeads(context.Background())
		if err != nil {
			log.Fatalf("list leads for export failed: %v", err)
		}
		if err := export.WriteLeadsJSON(cfg.Export.Path, leads); err != nil {
			log.Fatalf("export failed: %v", err)
		}
		log.Printf("[engine] exported %d leads to %s", len(leads), cfg.Export.Path)
	}
}
