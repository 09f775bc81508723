// Package webdav implements the debrid.Provider contract for a
// local/self-hosted backend speaking qBittorrent's WebUI API behind a
// WebDAV-served download directory: Submit adds a magnet through
// qBittorrent's torrent-add endpoint, Resolve returns the WebDAV URL of
// the resulting file once qBittorrent reports it complete and a transient
// error before that. This is the
// "local/self-hosted" variant spec.md §4.5 lists alongside the hosted
// debrid providers.
package webdav

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mediafusion/core/internal/debrid"
	"github.com/mediafusion/core/internal/errs"
)

type Client struct {
	api      *resty.Client
	davBase  string
}

// New builds a Client against a qBittorrent WebUI at apiBaseURL and a
// WebDAV share at davBaseURL serving the same download directory.
func New(apiBaseURL, davBaseURL, username, password string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	api := resty.New().
		SetBaseURL(apiBaseURL).
		SetBasicAuth(username, password).
		SetTimeout(timeout)
	return &Client{api: api, davBase: strings.TrimRight(davBaseURL, "/")}
}

func (c *Client) Name() string                     { return "webdav" }
func (c *Client) AuthStrategy() debrid.AuthStrategy { return debrid.AuthWebDAV }

type torrentInfo struct {
	Hash     string  `json:"hash"`
	Name     string  `json:"name"`
	Progress float64 `json:"progress"`
	State    string  `json:"state"`
	SavePath string  `json:"save_path"`
}

func (c *Client) list(ctx context.Context) ([]torrentInfo, error) {
	var torrents []torrentInfo
	resp, err := c.api.R().SetContext(ctx).SetResult(&torrents).Get("/api/v2/torrents/info")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "webdav torrents info", err)
	}
	if resp.IsError() {
		return nil, errs.New(errs.KindTransientSource, "webdav: torrents info failed", nil)
	}
	return torrents, nil
}

// Check reports a hash "cached" if the local client already has it added
// and fully downloaded; there is no external cloud cache to probe since
// this provider downloads to local/self-hosted storage.
func (c *Client) Check(ctx context.Context, infoHashes []string) (map[string]bool, error) {
	torrents, err := c.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(infoHashes))
	for _, h := range infoHashes {
		for _, t := range torrents {
			if strings.EqualFold(t.Hash, h) && t.State == "uploading" {
				out[h] = true
			}
		}
	}
	return out, nil
}

func (c *Client) Submit(ctx context.Context, infoHash, magnet string) (string, error) {
	if magnet == "" {
		magnet = "magnet:?xt=urn:btih:" + infoHash
	}
	resp, err := c.api.R().
		SetContext(ctx).
		SetFormData(map[string]string{"urls": magnet}).
		Post("/api/v2/torrents/add")
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "webdav torrents add", err)
	}
	if resp.IsError() {
		return "", errs.New(errs.KindProviderContent, "webdav: add rejected", nil)
	}
	return infoHash, nil
}

// Resolve looks the torrent up in the local client: an unknown hash is
// submitted and, like a torrent that is not complete yet, returns a
// transient error; a complete one yields a WebDAV URL built from the
// torrent's name (or fileHint when given).
func (c *Client) Resolve(ctx context.Context, infoHash, fileHint string) (string, error) {
	torrents, err := c.list(ctx)
	if err != nil {
		return "", err
	}

	var match *torrentInfo
	for i := range torrents {
		if strings.EqualFold(torrents[i].Hash, infoHash) {
			match = &torrents[i]
			break
		}
	}
	if match == nil {
		if _, err := c.Submit(ctx, infoHash, ""); err != nil {
			return "", err
		}
		return "", errs.New(errs.KindTransientSource, "webdav: torrent submitted, not ready yet", nil)
	}
	if match.State != "uploading" && match.State != "pausedUP" && match.State != "stoppedUP" {
		return "", errs.New(errs.KindTransientSource, "webdav: not ready", nil)
	}

	name := match.Name
	if fileHint != "" {
		name = fileHint
	}
	return c.davBase + "/" + strings.TrimPrefix(name, "/"), nil
}

func (c *Client) ListActive(ctx context.Context) ([]debrid.ActiveTorrent, error) {
	torrents, err := c.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]debrid.ActiveTorrent, 0, len(torrents))
	for _, t := range torrents {
		out = append(out, debrid.ActiveTorrent{InfoHash: t.Hash, Status: t.State, Progress: t.Progress * 100})
	}
	return out, nil
}
