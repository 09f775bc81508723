package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/mediafusion/core/internal/errs"
	"github.com/mediafusion/core/internal/model"
)

// UpsertStream inserts stream or merges it into the existing row for the
// same info hash: seeders take the max of old and new, languages/quality
// tags union, last-seen (updated_at) advances to now. A stream already
// marked blocked stays blocked regardless of what a later scrape carries —
// blocking is a moderation decision the ingest path must never undo.
func (s *Store) UpsertStream(ctx context.Context, stream model.Stream, mediaID int64) error {
	if !model.ValidInfoHash(stream.InfoHash) {
		return errs.New(errs.KindDataIntegrity, "invalid info hash: "+stream.InfoHash, nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing, found, err := loadStreamRow(ctx, tx, stream.InfoHash)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	merged := stream
	if found {
		merged = mergeStream(existing, stream)
	} else {
		merged.CreatedAt = now
	}
	merged.UpdatedAt = now

	if err := writeStreamRow(ctx, tx, merged); err != nil {
		return err
	}

	if mediaID != 0 {
		linked, err := linkStreamToMedia(ctx, tx, merged.InfoHash, mediaID)
		if err != nil {
			return err
		}
		if linked {
			if _, err := tx.ExecContext(ctx, `UPDATE media SET total_streams = total_streams + 1, last_stream_added = ? WHERE id = ?`, now, mediaID); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func linkStreamToMedia(ctx context.Context, tx *sql.Tx, infoHash string, mediaID int64) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM stream_media_links WHERE info_hash = ? AND media_id = ?`, infoHash, mediaID).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO stream_media_links (info_hash, media_id) VALUES (?, ?)`, infoHash, mediaID)
	return err == nil, err
}

func mergeStream(old, next model.Stream) model.Stream {
	merged := next
	merged.CreatedAt = old.CreatedAt
	merged.Seeders = maxSeeders(old.Seeders, next.Seeders)
	merged.Languages = unionStrings(old.Languages, next.Languages)
	merged.Quality = unionStrings(old.Quality, next.Quality)
	merged.Audio = unionStrings(old.Audio, next.Audio)
	merged.HDR = unionStrings(old.HDR, next.HDR)
	merged.Channels = unionStrings(old.Channels, next.Channels)
	merged.Trackers = unionStrings(old.Trackers, next.Trackers)
	merged.Source = unionStrings(old.Source, next.Source)
	merged.VoteScore = old.VoteScore
	merged.PlaybackCount = old.PlaybackCount
	if old.IsBlocked {
		merged.IsBlocked = true
	}
	return merged
}

func maxSeeders(a, b *uint) *uint {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a > *b {
		return a
	}
	return b
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func loadStreamRow(ctx context.Context, tx *sql.Tx, infoHash string) (model.Stream, bool, error) {
	row := tx.QueryRowContext(ctx, `SELECT info_hash, display_name, source, payload, size_bytes, resolution, quality,
		audio, hdr, channels, languages, remux, proper, repack, extended, dubbed, subbed, complete, seeders,
		trackers, created_at, updated_at, is_active, is_blocked, vote_score, playback_count, source_url
		FROM streams WHERE info_hash = ?`, infoHash)
	st, err := scanStream(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Stream{}, false, nil
	}
	if err != nil {
		return model.Stream{}, false, err
	}
	return st, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStream(row scanner) (model.Stream, error) {
	var st model.Stream
	var source, quality, audio, hdr, channels, languages, trackers string
	var payload string
	var seeders sql.NullInt64

	err := row.Scan(&st.InfoHash, &st.DisplayName, &source, &payload, &st.SizeBytes, &st.Resolution, &quality,
		&audio, &hdr, &channels, &languages, &st.Remux, &st.Proper, &st.Repack, &st.Extended, &st.Dubbed,
		&st.Subbed, &st.Complete, &seeders, &trackers, &st.CreatedAt, &st.UpdatedAt, &st.IsActive, &st.IsBlocked,
		&st.VoteScore, &st.PlaybackCount, &st.SourceURL)
	if err != nil {
		return model.Stream{}, err
	}

	st.Payload = model.Payload(payload)
	_ = json.Unmarshal([]byte(source), &st.Source)
	_ = json.Unmarshal([]byte(quality), &st.Quality)
	_ = json.Unmarshal([]byte(audio), &st.Audio)
	_ = json.Unmarshal([]byte(hdr), &st.HDR)
	_ = json.Unmarshal([]byte(channels), &st.Channels)
	_ = json.Unmarshal([]byte(languages), &st.Languages)
	_ = json.Unmarshal([]byte(trackers), &st.Trackers)
	if seeders.Valid {
		v := uint(seeders.Int64)
		st.Seeders = &v
	}
	return st, nil
}

func writeStreamRow(ctx context.Context, tx *sql.Tx, st model.Stream) error {
	source, _ := json.Marshal(st.Source)
	quality, _ := json.Marshal(st.Quality)
	audio, _ := json.Marshal(st.Audio)
	hdr, _ := json.Marshal(st.HDR)
	channels, _ := json.Marshal(st.Channels)
	languages, _ := json.Marshal(st.Languages)
	trackers, _ := json.Marshal(st.Trackers)

	var seeders any
	if st.Seeders != nil {
		seeders = int64(*st.Seeders)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO streams (info_hash, display_name, source, payload, size_bytes, resolution, quality, audio,
			hdr, channels, languages, remux, proper, repack, extended, dubbed, subbed, complete, seeders,
			trackers, created_at, updated_at, is_active, is_blocked, vote_score, playback_count, source_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(info_hash) DO UPDATE SET
			display_name = excluded.display_name, source = excluded.source, payload = excluded.payload,
			size_bytes = excluded.size_bytes, resolution = excluded.resolution, quality = excluded.quality,
			audio = excluded.audio, hdr = excluded.hdr, channels = excluded.channels, languages = excluded.languages,
			remux = excluded.remux, proper = excluded.proper, repack = excluded.repack, extended = excluded.extended,
			dubbed = excluded.dubbed, subbed = excluded.subbed, complete = excluded.complete, seeders = excluded.seeders,
			trackers = excluded.trackers, updated_at = excluded.updated_at, is_active = excluded.is_active,
			is_blocked = excluded.is_blocked, source_url = excluded.source_url`,
		st.InfoHash, st.DisplayName, string(source), string(st.Payload), st.SizeBytes, st.Resolution, string(quality),
		string(audio), string(hdr), string(channels), string(languages), st.Remux, st.Proper, st.Repack, st.Extended,
		st.Dubbed, st.Subbed, st.Complete, seeders, string(trackers), st.CreatedAt, st.UpdatedAt, st.IsActive,
		st.IsBlocked, st.VoteScore, st.PlaybackCount, st.SourceURL)
	return err
}

// BlockStream marks an info hash blocked; once set, UpsertStream can never
// clear it again. Blocking decrements total_streams and recomputes
// last_stream_added on every media row the stream is linked to, mirroring
// the increment UpsertStream performs on link. Idempotent: blocking an
// already-blocked hash does not decrement twice.
func (s *Store) BlockStream(ctx context.Context, infoHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var alreadyBlocked bool
	err = tx.QueryRowContext(ctx, `SELECT is_blocked FROM streams WHERE info_hash = ?`, infoHash).Scan(&alreadyBlocked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if alreadyBlocked {
		return tx.Commit()
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE streams SET is_blocked = 1, updated_at = ? WHERE info_hash = ?`, now, infoHash); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `SELECT media_id FROM stream_media_links WHERE info_hash = ?`, infoHash)
	if err != nil {
		return err
	}
	mediaIDs, err := scanInt64s(rows)
	if err != nil {
		return err
	}

	for _, mediaID := range mediaIDs {
		if _, err := tx.ExecContext(ctx, `UPDATE media SET total_streams = MAX(total_streams - 1, 0) WHERE id = ?`, mediaID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE media SET last_stream_added = (
				SELECT MAX(s.updated_at) FROM streams s
				JOIN stream_media_links l ON l.info_hash = s.info_hash
				WHERE l.media_id = media.id AND s.is_blocked = 0
			) WHERE id = ?`, mediaID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func scanInt64s(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
