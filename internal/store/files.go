package store

import "context"

// UpsertStreamFile records one file inside a multi-file torrent, keyed by
// (info_hash, file_index).
func (s *Store) UpsertStreamFile(ctx context.Context, f StreamFile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stream_files (info_hash, file_index, file_name, size_bytes, media_type, parsed_season, parsed_episode, parsed_title)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(info_hash, file_index) DO UPDATE SET
			file_name = excluded.file_name, size_bytes = excluded.size_bytes, media_type = excluded.media_type,
			parsed_season = excluded.parsed_season, parsed_episode = excluded.parsed_episode, parsed_title = excluded.parsed_title`,
		f.InfoHash, f.FileIndex, f.FileName, f.SizeBytes, f.MediaType, f.ParsedSeason, f.ParsedEpisode, f.ParsedTitle)
	return err
}

// LinkFileToMedia records that a specific file within a season-pack torrent
// resolves a given (media, season, episode) triple, so later lookups for
// that episode don't need to re-parse the torrent's file list.
func (s *Store) LinkFileToMedia(ctx context.Context, infoHash string, fileIndex int, mediaID int64, season, episode int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_media_links (info_hash, file_index, media_id, season, episode)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		infoHash, fileIndex, mediaID, season, episode)
	return err
}

// StreamFile mirrors model.StreamFile with the DB column name for its
// in-torrent index, since model.StreamFile's IndexInTorrent is exported
// under a different name than the column it maps to.
type StreamFile struct {
	InfoHash      string
	FileIndex     int
	FileName      string
	SizeBytes     uint64
	MediaType     string
	ParsedSeason  int
	ParsedEpisode int
	ParsedTitle   string
}
