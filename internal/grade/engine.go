// Package grade runs the AI enrichment call with credential-pool rotation
// and cooldown. Grading never fails the pipeline: on total exhaustion a lead
// comes back ungraded, not dropped.
package grade

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"leadgen-engine/internal/domain"
)

const systemPrompt = `You are an expert lead evaluator for a web/graphic design agency specializing in website development, graphic design, branding, Photoshop services, and Google Ads (AdWords/PPC) management. Your task is to analyze classified-ad posts to identify potential clients seeking these specific services.

Respond ONLY with a valid JSON object containing the following keys:
- "is_junk": boolean. Set to true if the post is spam, selling unrelated items/services, offering jobs at other companies, or is not clearly a request for web design, graphic design, Photoshop, or Google Ads/AdWords/PPC services. Set to false ONLY if the post appears to be a genuine request seeking the agency's services.
- "profitability_score": integer (1-10, higher means more profitable potential) or null (if is_junk is true). Base the score on clarity of the service request, mention of budget, direct relevance to the agency's core services, specificity of needs, and perceived professionalism of the poster.
- "reasoning": string (a brief explanation for the score and junk status).

Example valid JSON output:
{"is_junk": false, "profitability_score": 7, "reasoning": "Clear request for a new business website, mentions specific features needed."}
{"is_junk": true, "profitability_score": null, "reasoning": "Post is selling used design software, not seeking services."}`

const maxDescriptionChars = 2000

type Config struct {
	APIKeys   []string
	Model     string
	MaxTokens int
	Cooldown  time.Duration // per-credential cooldown after a rate limit
	MaxWait   time.Duration // ceiling on the all-cooling wait
}

type Engine struct {
	pool     *keyPool
	provider provider
}

func NewEngine(cfg Config) *Engine {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 20 * time.Minute
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 2 * time.Minute
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 300
	}
	return &Engine{
		pool:     newKeyPool(cfg.APIKeys, cfg.Cooldown, cfg.MaxWait),
		provider: newAnthropicProvider(cfg.Model, cfg.MaxTokens),
	}
}

// Grade evaluates one lead. It never returns an error: any unrecoverable
// failure yields the ungraded sentinel (all fields nil) and the caller
// persists the lead as not-yet-graded.
func (e *Engine) Grade(ctx context.Context, lead domain.Lead) domain.Grade {
	if e == nil || e.pool.size() == 0 {
		return domain.Grade{}
	}

	user := userPrompt(lead)

	// At most one attempt per configured credential for a single lead;
	// rotation must never loop forever.
	for attempt := 0; attempt < e.pool.size(); attempt++ {
		idx, key, err := e.pool.acquire(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Printf("[grade] no credential for %q: %v", lead.Title, err)
			}
			return domain.Grade{}
		}

		body, err := e.provider.Complete(ctx, key, systemPrompt, user)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				log.Printf("[grade] credential %d rate limited, rotating", idx)
				e.pool.markCooling(idx)
				continue
			}
			log.Printf("[grade] provider failure for %q: %v", lead.Title, err)
			return domain.Grade{}
		}

		g, ok := decodeGrade(body)
		if !ok {
			// A parser gap is not a rate limit; don't cool the credential
			// and don't burn more credentials on the same lead.
			log.Printf("[grade] malformed response for %q", lead.Title)
			return domain.Grade{}
		}
		return g
	}

	log.Printf("[grade] all credentials exhausted for %q", lead.Title)
	return domain.Grade{}
}

func userPrompt(lead domain.Lead) string {
	desc := lead.Description
	if len(desc) > maxDescriptionChars {
		desc = desc[:maxDescriptionChars]
	}
	return fmt.Sprintf(`Please evaluate the following classified post based strictly on whether it represents a potential client seeking web design, graphic design, Photoshop, or Google Ads/AdWords/PPC services:

Title: %s
Description: %s

Provide your evaluation ONLY in the specified JSON format.`, lead.Title, desc)
}
