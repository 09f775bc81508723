// Package metadata is the Metadata Enricher: a scraper-like component
// specialized for identity (title/year/aka-titles/ratings/images) rather
// than streams, merging results from several read-only HTTP JSON
// providers (IMDb-style Cinemeta, TMDB, TVDB, Jikan, Kitsu).
package metadata

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/mediafusion/core/internal/model"
)

// Request identifies the media item to enrich.
type Request struct {
	ExternalID string
	Kind       model.Kind
	Title      string
	Year       int
}

// Provider is one identity source. Lookup reports found=false (not an
// error) when the provider simply has no record for req, so a miss at one
// provider never aborts the others.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, req Request) (model.Media, bool, error)
}

// Enricher queries every configured provider concurrently and merges their
// results into one Media, first-provider-in-priority-order wins per
// scalar field, with genres/aka-titles/ratings/images unioned across every
// provider that answered.
type Enricher struct {
	providers []Provider // priority order: first with a hit sets scalar fields
}

func New(providers ...Provider) *Enricher {
	return &Enricher{providers: providers}
}

func (e *Enricher) Enrich(ctx context.Context, req Request) (model.Media, error) {
	type result struct {
		provider string
		media    model.Media
		found    bool
	}

	results := make([]result, len(e.providers))
	var wg sync.WaitGroup
	for i, p := range e.providers {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, found, err := p.Lookup(ctx, req)
			if err != nil {
				log.Warnf("metadata: provider %s lookup failed for %s: %v", p.Name(), req.ExternalID, err)
				return
			}
			results[i] = result{provider: p.Name(), media: m, found: found}
		}()
	}
	wg.Wait()

	merged := model.Media{
		ExternalID: req.ExternalID,
		Kind:       req.Kind,
		Title:      req.Title,
		Year:       req.Year,
		Ratings:    map[string]float64{},
		Images:     map[string]string{},
	}
	genres := map[string]bool{}
	akaTitles := map[string]bool{}
	haveScalars := false

	for _, r := range results {
		if !r.found {
			continue
		}
		if !haveScalars {
			if r.media.Title != "" {
				merged.Title = r.media.Title
			}
			if r.media.Year != 0 {
				merged.Year = r.media.Year
			}
			if r.media.EndYear != 0 {
				merged.EndYear = r.media.EndYear
			}
			if r.media.Description != "" {
				merged.Description = r.media.Description
			}
			haveScalars = true
		}
		for _, g := range r.media.Genres {
			genres[g] = true
		}
		for _, a := range r.media.AKATitles {
			akaTitles[a] = true
		}
		for provider, score := range r.media.Ratings {
			merged.Ratings[provider] = score
		}
		for role, url := range r.media.Images {
			if _, exists := merged.Images[role]; !exists {
				merged.Images[role] = url
			}
		}
	}

	merged.Genres = setToSlice(genres)
	merged.AKATitles = setToSlice(akaTitles)
	return merged, nil
}

func setToSlice(s map[string]bool) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// DefaultTimeout is a per-provider request timeout; the provider
// constructors take their timeout as an argument and do not read it.
const DefaultTimeout = 10 * time.Second
