package store

import (
	"context"
	"database/sql"

	"github.com/mediafusion/core/internal/model"
)

// StreamsFor resolves every active, non-blocked stream for a media item.
// season and episode are nil for movies. For series it resolves in three
// tiers, first match wins per info hash:
//
//  1. FileMediaLink: a file inside a multi-file torrent was explicitly
//     linked to this (media, season, episode) by a previous parse.
//  2. StreamFile direct match: the file-level parse already recorded this
//     season/episode on one of the torrent's files, no link row yet.
//  3. Season-pack fallback: a file whose parse recognized the season but
//     not a specific episode (a whole-season file, parsed_episode = 0),
//     linked to the media directly.
//
// A stream present in more than one tier is returned once, keeping the
// first (most specific) tier's result.
func (s *Store) StreamsFor(ctx context.Context, mediaID int64, season, episode *int) ([]model.Stream, error) {
	if season == nil || episode == nil {
		return s.streamsDirect(ctx, mediaID)
	}

	seen := make(map[string]bool)
	var out []model.Stream

	linked, err := s.streamsViaFileMediaLink(ctx, mediaID, *season, *episode)
	if err != nil {
		return nil, err
	}
	appendNew(&out, seen, linked)

	direct, err := s.streamsViaParsedFile(ctx, mediaID, *season, *episode, false)
	if err != nil {
		return nil, err
	}
	appendNew(&out, seen, direct)

	packs, err := s.streamsViaParsedFile(ctx, mediaID, *season, 0, true)
	if err != nil {
		return nil, err
	}
	appendNew(&out, seen, packs)

	return out, nil
}

func appendNew(out *[]model.Stream, seen map[string]bool, streams []model.Stream) {
	for _, st := range streams {
		if seen[st.InfoHash] {
			continue
		}
		seen[st.InfoHash] = true
		*out = append(*out, st)
	}
}

func (s *Store) streamsDirect(ctx context.Context, mediaID int64) ([]model.Stream, error) {
	rows, err := s.db.QueryContext(ctx, streamSelect+`
		FROM streams st
		JOIN stream_media_links l ON l.info_hash = st.info_hash
		WHERE l.media_id = ? AND st.is_active = 1 AND st.is_blocked = 0`, mediaID)
	if err != nil {
		return nil, err
	}
	return scanStreams(rows)
}

func (s *Store) streamsViaFileMediaLink(ctx context.Context, mediaID int64, season, episode int) ([]model.Stream, error) {
	rows, err := s.db.QueryContext(ctx, streamSelect+`
		FROM streams st
		JOIN file_media_links fml ON fml.info_hash = st.info_hash
		WHERE fml.media_id = ? AND fml.season = ? AND fml.episode = ? AND st.is_active = 1 AND st.is_blocked = 0`,
		mediaID, season, episode)
	if err != nil {
		return nil, err
	}
	return scanStreams(rows)
}

// streamsViaParsedFile matches stream_files whose own parse recognized the
// season (and, unless wantSeasonPack, the episode). wantSeasonPack selects
// whole-season files (parsed_episode = 0) instead.
func (s *Store) streamsViaParsedFile(ctx context.Context, mediaID int64, season, episode int, wantSeasonPack bool) ([]model.Stream, error) {
	episodeCond := "sf.parsed_episode = ?"
	if wantSeasonPack {
		episodeCond = "sf.parsed_episode = 0"
	}
	args := []any{mediaID, season}
	if !wantSeasonPack {
		args = append(args, episode)
	}

	rows, err := s.db.QueryContext(ctx, streamSelect+`
		FROM streams st
		JOIN stream_files sf ON sf.info_hash = st.info_hash
		JOIN stream_media_links l ON l.info_hash = st.info_hash
		WHERE l.media_id = ? AND sf.parsed_season = ? AND `+episodeCond+` AND st.is_active = 1 AND st.is_blocked = 0`,
		args...)
	if err != nil {
		return nil, err
	}
	return scanStreams(rows)
}

const streamSelect = `SELECT st.info_hash, st.display_name, st.source, st.payload, st.size_bytes, st.resolution, st.quality,
	st.audio, st.hdr, st.channels, st.languages, st.remux, st.proper, st.repack, st.extended, st.dubbed, st.subbed,
	st.complete, st.seeders, st.trackers, st.created_at, st.updated_at, st.is_active, st.is_blocked, st.vote_score,
	st.playback_count, st.source_url `

func scanStreams(rows *sql.Rows) ([]model.Stream, error) {
	defer rows.Close()
	var out []model.Stream
	for rows.Next() {
		st, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
