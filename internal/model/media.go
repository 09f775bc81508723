// Package model holds the persistent entities the stream aggregation core
// reads and writes: Media, Stream, StreamFile, FileMediaLink, Season and
// Episode, plus the per-request UserPreferenceVector and the cache-adjacent
// CacheEntry/AvailabilityRecord value types.
package model

import "time"

// Kind is the media kind a Stream or Media belongs to.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
	KindTV     Kind = "tv"
	KindEvent  Kind = "event"
)

// Media is the identifiable work a Stream is linked to.
type Media struct {
	ID          int64
	ExternalID  string // "tt\d+" or synthetic "mf{hash}"
	Kind        Kind
	Title       string
	Year        int
	EndYear     int
	Description string
	Genres      []string
	Ratings     map[string]float64
	Images      map[string]string
	AKATitles   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsSynthetic reports whether the Media was created without a canonical
// external id and is identified instead by (title, year, kind).
func (m *Media) IsSynthetic() bool {
	return len(m.ExternalID) < 2 || m.ExternalID[:2] != "tt"
}

// Season is series substructure: (media, season number).
type Season struct {
	MediaID      int64
	SeasonNumber int
	ReleaseDate  time.Time
	Title        string
	Thumbnail    string
}

// Episode is series substructure: (media, season, episode number).
type Episode struct {
	MediaID      int64
	SeasonNumber int
	EpisodeNum   int
	ReleaseDate  time.Time
	Title        string
	Thumbnail    string
}
