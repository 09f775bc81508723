package addon

import (
	"github.com/mediafusion/core/internal/blobstore"
	"github.com/mediafusion/core/internal/cache"
	"github.com/mediafusion/core/internal/debrid"
	"github.com/mediafusion/core/internal/debrid/availability"
	"github.com/mediafusion/core/internal/metadata"
	"github.com/mediafusion/core/internal/orchestrator"
	"github.com/mediafusion/core/internal/store"
)

func WithID(id string) Option {
	return func(a *Addon) { a.id = id }
}

func WithName(name string) Option {
	return func(a *Addon) { a.name = name }
}

func WithVersion(version string) Option {
	return func(a *Addon) { a.version = version }
}

// WithOrchestrator wires the Scraper Orchestrator the stream handler fans
// out through on every live request.
func WithOrchestrator(o *orchestrator.Orchestrator) Option {
	return func(a *Addon) { a.orchestrator = o }
}

// WithStore wires the Stream Store the stream handler reads persisted
// candidates from.
func WithStore(s *store.Store) Option {
	return func(a *Addon) { a.store = s }
}

// WithProvider registers a debrid provider under its own Name(), reachable
// by a UserData.ChosenProvider or a /cache/{status,submit} `service` field.
func WithProvider(p debrid.Provider) Option {
	return func(a *Addon) { a.providers[p.Name()] = p }
}

// WithAvailability wires the Availability Cache the resolve and
// /cache/status handlers read through.
func WithAvailability(c *availability.Cache) Option {
	return func(a *Addon) { a.availability = c }
}

// WithCacheStore wires the raw cache namespace for ad hoc lookups outside
// the availability cache's own namespace.
func WithCacheStore(c cache.Store) Option {
	return func(a *Addon) { a.cache = c }
}

// WithDefaultAdultContentRegex sets the deployment-wide fallback pattern the
// Filter/Sort Engine applies when a request's UserPreferenceVector leaves
// AdultContentRegex unset.
func WithDefaultAdultContentRegex(pattern string) Option {
	return func(a *Addon) { a.defaultAdultContentRegex = pattern }
}

// WithMetadataEnricher wires identity lookups (title/year resolution) for
// synthetic media ids that arrive without a canonical external id.
func WithMetadataEnricher(e *metadata.Enricher) Option {
	return func(a *Addon) { a.metadata = e }
}

// WithBlobStore wires the NZB blob backend the /nzb/:guid route serves
// from, local disk or S3 depending on config.BlobConfig.
func WithBlobStore(b blobstore.Store) Option {
	return func(a *Addon) { a.blobStore = b }
}
