package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediafusion/core/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func hash(suffix string) string {
	base := "0123456789abcdef0123456789abcdef0123456"
	return base[:40-len(suffix)] + suffix
}

func TestUpsertStream_IdempotentIngest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mediaID, err := s.UpsertMedia(ctx, model.Media{ExternalID: "tt1234567", Kind: model.KindMovie, Title: "Example", Year: 2020})
	require.NoError(t, err)

	seeders1 := uint(10)
	st := model.Stream{
		InfoHash: hash("1"), DisplayName: "Example 2020 1080p", Payload: model.PayloadTorrent,
		Resolution: "1080p", Languages: []string{"en"}, Seeders: &seeders1, IsActive: true,
	}
	require.NoError(t, s.UpsertStream(ctx, st, mediaID))

	seeders2 := uint(5)
	st2 := st
	st2.Seeders = &seeders2
	st2.Languages = []string{"fr"}
	require.NoError(t, s.UpsertStream(ctx, st2, mediaID))

	streams, err := s.StreamsFor(ctx, mediaID, nil, nil)
	require.NoError(t, err)
	require.Len(t, streams, 1, "same info hash must not duplicate")
	assert.EqualValues(t, 10, *streams[0].Seeders, "seeders should take the max across merges")
	assert.ElementsMatch(t, []string{"en", "fr"}, streams[0].Languages, "languages should union across merges")

	var totalStreams int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT total_streams FROM media WHERE id = ?`, mediaID).Scan(&totalStreams))
	assert.Equal(t, 1, totalStreams, "re-ingesting the same hash must not double-count total_streams")
}

func TestBlockStream_StaysBlockedAcrossReingest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mediaID, err := s.UpsertMedia(ctx, model.Media{ExternalID: "tt7654321", Kind: model.KindMovie, Title: "Blocked", Year: 2021})
	require.NoError(t, err)

	st := model.Stream{InfoHash: hash("2"), DisplayName: "Blocked Movie", Payload: model.PayloadTorrent, IsActive: true}
	require.NoError(t, s.UpsertStream(ctx, st, mediaID))
	require.NoError(t, s.BlockStream(ctx, st.InfoHash))

	require.NoError(t, s.UpsertStream(ctx, st, mediaID))

	streams, err := s.StreamsFor(ctx, mediaID, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, streams, "blocked stream must never resurface from StreamsFor")
}

func TestUpsertStream_RejectsInvalidInfoHash(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	err := s.UpsertStream(ctx, model.Stream{InfoHash: "too-short"}, 0)
	assert.Error(t, err)
}

func TestStreamsFor_SeasonPackFallback(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mediaID, err := s.UpsertMedia(ctx, model.Media{ExternalID: "tt1111111", Kind: model.KindSeries, Title: "Packed Show", Year: 2019})
	require.NoError(t, err)

	packHash := hash("3")
	st := model.Stream{InfoHash: packHash, DisplayName: "Packed Show S02 Complete", Payload: model.PayloadTorrent, Complete: true, IsActive: true}
	require.NoError(t, s.UpsertStream(ctx, st, mediaID))

	require.NoError(t, s.UpsertStreamFile(ctx, StreamFile{
		InfoHash: packHash, FileIndex: 0, FileName: "S02E01.mkv", MediaType: "video", ParsedSeason: 2, ParsedEpisode: 0,
	}))

	season, episode := 2, 3
	streams, err := s.StreamsFor(ctx, mediaID, &season, &episode)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, packHash, streams[0].InfoHash)
}

func TestStreamsFor_FileMediaLinkTakesPriority(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mediaID, err := s.UpsertMedia(ctx, model.Media{ExternalID: "tt2222222", Kind: model.KindSeries, Title: "Linked Show", Year: 2022})
	require.NoError(t, err)

	linkedHash := hash("4")
	require.NoError(t, s.UpsertStream(ctx, model.Stream{InfoHash: linkedHash, DisplayName: "S01E02", Payload: model.PayloadTorrent, IsActive: true}, mediaID))
	require.NoError(t, s.UpsertStreamFile(ctx, StreamFile{InfoHash: linkedHash, FileIndex: 0, FileName: "S01E02.mkv", ParsedSeason: 1, ParsedEpisode: 2}))
	require.NoError(t, s.LinkFileToMedia(ctx, linkedHash, 0, mediaID, 1, 2))

	season, episode := 1, 2
	streams, err := s.StreamsFor(ctx, mediaID, &season, &episode)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, linkedHash, streams[0].InfoHash)
}

func TestUpsertMedia_SyntheticIdentityDedups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id1, err := s.UpsertMedia(ctx, model.Media{Kind: model.KindMovie, Title: "No External Id", Year: 2023})
	require.NoError(t, err)
	id2, err := s.UpsertMedia(ctx, model.Media{Kind: model.KindMovie, Title: "No External Id", Year: 2023, Description: "now with a description"})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}
