package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/mediafusion/core/internal/model"
)

// UpsertMedia finds the Media row matching m's identity (external id when
// present, otherwise the synthetic title+year+kind key) or creates one,
// merging in any non-empty fields m carries. It returns the row id.
func (s *Store) UpsertMedia(ctx context.Context, m model.Media) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	id, found, err := findMedia(ctx, tx, m)
	if err != nil {
		return 0, err
	}

	genres, _ := json.Marshal(m.Genres)
	ratings, _ := json.Marshal(m.Ratings)
	images, _ := json.Marshal(m.Images)
	aka, _ := json.Marshal(m.AKATitles)
	now := time.Now().UTC()

	if !found {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO media (external_id, kind, title, year, end_year, description, genres, ratings, images, aka_titles, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ExternalID, string(m.Kind), m.Title, m.Year, m.EndYear, m.Description, string(genres), string(ratings), string(images), string(aka), now, now)
		if err != nil {
			return 0, err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
		return id, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE media SET description = CASE WHEN ? != '' THEN ? ELSE description END,
			genres = CASE WHEN ? NOT IN ('[]', 'null') THEN ? ELSE genres END,
			ratings = CASE WHEN ? NOT IN ('{}', 'null') THEN ? ELSE ratings END,
			images = CASE WHEN ? NOT IN ('{}', 'null') THEN ? ELSE images END,
			aka_titles = CASE WHEN ? NOT IN ('[]', 'null') THEN ? ELSE aka_titles END,
			end_year = CASE WHEN ? != 0 THEN ? ELSE end_year END,
			updated_at = ?
		WHERE id = ?`,
		m.Description, m.Description,
		string(genres), string(genres),
		string(ratings), string(ratings),
		string(images), string(images),
		string(aka), string(aka),
		m.EndYear, m.EndYear,
		now, id)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// FindMediaID looks up an existing media row by external id without
// creating one, for read paths (stream lookup) that must not fabricate a
// media row out of a request that never matched anything.
func (s *Store) FindMediaID(ctx context.Context, externalID string, kind model.Kind) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM media WHERE external_id = ? AND kind = ?`, externalID, string(kind)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func findMedia(ctx context.Context, tx *sql.Tx, m model.Media) (int64, bool, error) {
	var id int64
	var err error
	if m.ExternalID != "" {
		err = tx.QueryRowContext(ctx, `SELECT id FROM media WHERE external_id = ? AND kind = ?`, m.ExternalID, string(m.Kind)).Scan(&id)
	} else {
		err = tx.QueryRowContext(ctx, `SELECT id FROM media WHERE title = ? AND year = ? AND kind = ? AND external_id = ''`, m.Title, m.Year, string(m.Kind)).Scan(&id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// ListStaleMedia returns up to limit media rows ordered by least-recently
// updated, the feed the scheduled-ingest scheduler uses to pick what to
// re-scrape next.
func (s *Store) ListStaleMedia(ctx context.Context, limit int) ([]model.Media, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_id, kind, title, year FROM media
		ORDER BY updated_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Media
	for rows.Next() {
		var m model.Media
		var kind string
		if err := rows.Scan(&m.ID, &m.ExternalID, &kind, &m.Title, &m.Year); err != nil {
			return nil, err
		}
		m.Kind = model.Kind(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertSeason inserts or replaces season metadata.
func (s *Store) UpsertSeason(ctx context.Context, season model.Season) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seasons (media_id, season_number, release_date, title, thumbnail)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(media_id, season_number) DO UPDATE SET
			release_date = excluded.release_date, title = excluded.title, thumbnail = excluded.thumbnail`,
		season.MediaID, season.SeasonNumber, season.ReleaseDate, season.Title, season.Thumbnail)
	return err
}

// UpsertEpisode inserts or replaces episode metadata.
func (s *Store) UpsertEpisode(ctx context.Context, ep model.Episode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (media_id, season_number, episode_num, release_date, title, thumbnail)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(media_id, season_number, episode_num) DO UPDATE SET
			release_date = excluded.release_date, title = excluded.title, thumbnail = excluded.thumbnail`,
		ep.MediaID, ep.SeasonNumber, ep.EpisodeNum, ep.ReleaseDate, ep.Title, ep.Thumbnail)
	return err
}
