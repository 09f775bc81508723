package model

import "time"

// Payload discriminates the kind-specific body of a Stream.
type Payload string

const (
	PayloadTorrent    Payload = "torrent"
	PayloadUsenetNZB  Payload = "usenet-nzb"
	PayloadDirectURL  Payload = "direct-url"
	PayloadAceStream  Payload = "ace-stream"
	PayloadLiveM3U8   Payload = "live-m3u8"
	PayloadTelegram   Payload = "telegram-file"
)

// Stream is a single playable candidate, deduplicated by InfoHash.
type Stream struct {
	InfoHash    string // 40-hex lowercase, primary dedup key
	DisplayName string
	Source      []string // scraper tags that contributed this stream
	Payload     Payload
	SourceURL   string // direct-url/live-m3u8/ace-stream payloads: the URL itself, not a torrent

	SizeBytes uint64 // 0 = unknown

	Resolution string // one canonical value, see titleparser
	Quality    []string
	Audio      []string
	HDR        []string
	Channels   []string
	Languages  []string

	Remux    bool
	Proper   bool
	Repack   bool
	Extended bool
	Dubbed   bool
	Subbed   bool
	Complete bool

	Seeders   *uint
	Trackers  []string

	CreatedAt time.Time
	UpdatedAt time.Time
	IsActive  bool
	IsBlocked bool
	VoteScore int

	PlaybackCount int
}

// ValidInfoHash reports whether h is 40 lowercase hex characters.
func ValidInfoHash(h string) bool {
	if len(h) != 40 {
		return false
	}
	for _, r := range h {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

// MediaType distinguishes a StreamFile's role inside a multi-file torrent.
type MediaType string

const (
	MediaTypeVideo    MediaType = "video"
	MediaTypeSubtitle MediaType = "subtitle"
	MediaTypeOther    MediaType = "other"
)

// StreamFile is a file inside a multi-file torrent, owned by its Stream.
type StreamFile struct {
	InfoHash      string
	FileName      string
	SizeBytes     uint64
	IndexInTorrent int
	MediaType     MediaType
	ParsedSeason  int
	ParsedEpisode int
	ParsedTitle   string
}

// FileMediaLink maps a StreamFile to a (media, season, episode) triple so a
// season pack contributes to episode-specific queries without re-parsing.
type FileMediaLink struct {
	InfoHash   string
	FileIndex  int
	MediaID    int64
	Season     int
	Episode    int
}
