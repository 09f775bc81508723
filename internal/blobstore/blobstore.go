// Package blobstore stores the raw .nzb payloads behind PayloadUsenetNZB
// streams, outside the relational Stream Store, behind a Store interface
// with a local-filesystem backend and an S3-compatible backend.
package blobstore

import "context"

// Store persists NZB blobs keyed by guid and returns a URL the player's
// usenet client can fetch them from.
type Store interface {
	Put(ctx context.Context, guid string, data []byte) (url string, err error)
	Get(ctx context.Context, guid string) ([]byte, error)
}
