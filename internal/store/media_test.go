package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediafusion/core/internal/model"
)

func TestFindMediaID_MissReturnsNotFoundWithoutCreating(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, found, err := s.FindMediaID(ctx, "tt0000000", model.KindMovie)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindMediaID_HitAfterUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mediaID, err := s.UpsertMedia(ctx, model.Media{ExternalID: "tt1234567", Kind: model.KindMovie, Title: "Example", Year: 2020})
	require.NoError(t, err)

	found, ok, err := s.FindMediaID(ctx, "tt1234567", model.KindMovie)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mediaID, found)
}

func TestFindMediaID_KindMismatchMisses(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.UpsertMedia(ctx, model.Media{ExternalID: "tt1234567", Kind: model.KindMovie, Title: "Example", Year: 2020})
	require.NoError(t, err)

	_, ok, err := s.FindMediaID(ctx, "tt1234567", model.KindSeries)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListStaleMedia_OrdersByLeastRecentlyUpdated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	idA, err := s.UpsertMedia(ctx, model.Media{ExternalID: "tt0000001", Kind: model.KindMovie, Title: "First", Year: 2001})
	require.NoError(t, err)
	idB, err := s.UpsertMedia(ctx, model.Media{ExternalID: "tt0000002", Kind: model.KindMovie, Title: "Second", Year: 2002})
	require.NoError(t, err)

	// Touch A again so it becomes the most recently updated; B should sort first.
	_, err = s.UpsertMedia(ctx, model.Media{ExternalID: "tt0000001", Kind: model.KindMovie, Description: "updated"})
	require.NoError(t, err)

	stale, err := s.ListStaleMedia(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, idB, stale[0].ID)
	assert.Equal(t, idA, stale[1].ID)
}

func TestListStaleMedia_RespectsLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.UpsertMedia(ctx, model.Media{ExternalID: hash(string(rune('a' + i))), Kind: model.KindMovie, Title: "X", Year: 2000 + i})
		require.NoError(t, err)
	}

	stale, err := s.ListStaleMedia(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, stale, 2)
}
