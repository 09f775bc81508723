// Package p2p implements the debrid.Provider contract as a no-op
// pass-through: the "P2P (no provider)" variant of spec.md §4.5. There is
// no cloud backend, no auth, and no submit/poll cycle — Resolve returns
// the magnet URI itself and the player's own torrent engine does the
// rest. Every hash is trivially "available" since P2P has no cache
// concept.
package p2p

import (
	"context"

	"github.com/mediafusion/core/internal/debrid"
)

type Client struct{}

func New() *Client { return &Client{} }

func (c *Client) Name() string                     { return "p2p" }
func (c *Client) AuthStrategy() debrid.AuthStrategy { return debrid.AuthNone }

func (c *Client) Check(_ context.Context, infoHashes []string) (map[string]bool, error) {
	out := make(map[string]bool, len(infoHashes))
	for _, h := range infoHashes {
		out[h] = true
	}
	return out, nil
}

// Submit is a no-op: there is nothing to upload to, the magnet is the
// artifact itself.
func (c *Client) Submit(_ context.Context, infoHash, _ string) (string, error) {
	return infoHash, nil
}

// Resolve returns the magnet URI unchanged so the client's own torrent
// engine can take over playback.
func (c *Client) Resolve(_ context.Context, infoHash, _ string) (string, error) {
	return "magnet:?xt=urn:btih:" + infoHash, nil
}

func (c *Client) ListActive(context.Context) ([]debrid.ActiveTorrent, error) {
	return nil, nil
}
