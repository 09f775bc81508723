package blobstore

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
)

// LocalStore writes NZB blobs under dir/{guid}.nzb on an afero.Fs, backed
// by the real OS filesystem in production and afero.NewMemMapFs in tests.
type LocalStore struct {
	fs         afero.Fs
	dir        string
	publicBase string // prefix of the URL Put returns, e.g. "/blobs/nzb"
}

func NewLocal(fs afero.Fs, dir, publicBase string) (*LocalStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create dir: %w", err)
	}
	return &LocalStore{fs: fs, dir: dir, publicBase: publicBase}, nil
}

func (s *LocalStore) path(guid string) string {
	return s.dir + "/" + guid + ".nzb"
}

func (s *LocalStore) Put(_ context.Context, guid string, data []byte) (string, error) {
	if err := afero.WriteFile(s.fs, s.path(guid), data, 0o644); err != nil {
		return "", fmt.Errorf("blobstore: write %s: %w", guid, err)
	}
	return s.publicBase + "/" + guid + ".nzb", nil
}

func (s *LocalStore) Get(_ context.Context, guid string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(guid))
	if err != nil {
		return nil, fmt.Errorf("blobstore: read %s: %w", guid, err)
	}
	return data, nil
}
