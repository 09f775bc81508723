package blobstore

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutThenGetRoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewLocal(fs, "data/nzb", "/blobs/nzb")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "guid-1", []byte("nzb contents"))
	require.NoError(t, err)
	assert.Equal(t, "/blobs/nzb/guid-1.nzb", url)

	data, err := store.Get(context.Background(), "guid-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("nzb contents"), data)
}

func TestLocalStore_GetMissingReturnsError(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewLocal(fs, "data/nzb", "/blobs/nzb")
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing")
	assert.Error(t, err)
}
