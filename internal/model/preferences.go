package model

import "time"

// SortKey enumerates the fields the Filter/Sort Engine may order on.
type SortKey string

const (
	SortResolution SortKey = "resolution"
	SortQuality    SortKey = "quality"
	SortLanguage   SortKey = "language"
	SortSize       SortKey = "size"
	SortSeeders    SortKey = "seeders"
	SortCreatedAt  SortKey = "created_at"
	SortVoteScore  SortKey = "vote_score"
	SortPlayback   SortKey = "playback_count"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortRule is one entry of the ordered sorting_priority list.
type SortRule struct {
	Key       SortKey
	Direction SortDirection
}

// NameFilterMode controls how StreamNameFilter.Patterns are applied.
type NameFilterMode string

const (
	NameFilterDisabled NameFilterMode = "disabled"
	NameFilterInclude  NameFilterMode = "include"
	NameFilterExclude  NameFilterMode = "exclude"
)

// StreamNameFilter is the {mode, patterns, is_regex} preference.
type StreamNameFilter struct {
	Mode     NameFilterMode
	Patterns []string
	IsRegex  bool
}

// UserPreferenceVector is the per-request input to the Filter/Sort Engine.
// It is not persisted by the core; callers (the out-of-scope routing layer)
// resolve it from whatever profile/URL-secret storage they use and pass it
// in whole.
type UserPreferenceVector struct {
	Version int

	SelectedResolutions []string // empty = allow all
	QualityFilter       []string // empty = allow all
	Languages           []string // ordered by preference

	MaxSizeBytes uint64 // 0 = unbounded
	MinSizeBytes uint64 // 0 = unbounded

	MaxStreamsPerResolution int // 0 = unbounded
	MaxTotalStreams         int // 0 = return nothing

	SortingPriority []SortRule

	StreamNameFilter StreamNameFilter

	AdultContentRegex string
}

// DefaultPreferenceVector mirrors the teacher's NewUserDataWithDefaults: a
// usable set of defaults so a request can be served with no configuration
// at all (environment-configured deployments, smoke tests).
func DefaultPreferenceVector() UserPreferenceVector {
	return UserPreferenceVector{
		Version:                 1,
		SelectedResolutions:     []string{"2160p", "1080p", "720p"},
		QualityFilter:           nil,
		Languages:               nil,
		MinSizeBytes:            100 * 1 << 20,
		MaxSizeBytes:            30 * 1 << 30,
		MaxStreamsPerResolution: 5,
		MaxTotalStreams:         20,
		SortingPriority: []SortRule{
			{Key: SortResolution, Direction: SortDesc},
			{Key: SortSize, Direction: SortDesc},
		},
		StreamNameFilter: StreamNameFilter{Mode: NameFilterDisabled},
	}
}

// CacheEntry is the (key, value, expiry) tuple the Cache/Availability Layer
// operates on; components talk to internal/cache.Store, which takes and
// returns plain keys and byte values, not this struct.
type CacheEntry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time
}

// AvailabilityRecord is the per-(provider, info-hash) cached-on-provider
// boolean with its own expiry, as read/written by the Availability Cache.
type AvailabilityRecord struct {
	Provider  string
	InfoHash  string
	Cached    bool
	ExpiresAt time.Time
}
