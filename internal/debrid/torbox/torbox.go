// Package torbox implements the debrid.Provider contract for TorBox, a
// token-only AuthStrategy backend authenticated with a bearer API key.
package torbox

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mediafusion/core/internal/debrid"
	"github.com/mediafusion/core/internal/errs"
)

type Client struct {
	client *resty.Client
}

func New(apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL("https://api.torbox.app/v1/api").
		SetAuthScheme("Bearer").
		SetAuthToken(apiKey).
		SetTimeout(timeout)
	return &Client{client: client}
}

func (c *Client) Name() string                     { return "torbox" }
func (c *Client) AuthStrategy() debrid.AuthStrategy { return debrid.AuthToken }

type envelope struct {
	Success bool            `json:"success"`
	Detail  string          `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) checkCached(ctx context.Context, hashes []string) (map[string]bool, error) {
	var env envelope
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("hash", strings.Join(hashes, ",")).
		SetQueryParam("format", "list").
		SetResult(&env).
		Get("/torrents/checkcached")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "torbox checkcached", err)
	}
	if resp.IsError() || !env.Success {
		return nil, mapStatus(resp.StatusCode(), env.Detail)
	}

	var entries []struct {
		Hash string `json:"hash"`
	}
	_ = json.Unmarshal(env.Data, &entries)
	out := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		out[h] = false
	}
	for _, e := range entries {
		out[e.Hash] = true
	}
	return out, nil
}

func (c *Client) Check(ctx context.Context, infoHashes []string) (map[string]bool, error) {
	if len(infoHashes) == 0 {
		return map[string]bool{}, nil
	}
	return c.checkCached(ctx, infoHashes)
}

func (c *Client) Submit(ctx context.Context, infoHash, magnet string) (string, error) {
	if magnet == "" {
		magnet = "magnet:?xt=urn:btih:" + infoHash
	}
	var env envelope
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"magnet": magnet}).
		SetResult(&env).
		Post("/torrents/createtorrent")
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "torbox createtorrent", err)
	}
	if resp.IsError() || !env.Success {
		return "", mapStatus(resp.StatusCode(), env.Detail)
	}
	var created struct {
		TorrentID int64 `json:"torrent_id"`
	}
	_ = json.Unmarshal(env.Data, &created)
	return strconv.FormatInt(created.TorrentID, 10), nil
}

type torrentInfo struct {
	ID           int64  `json:"id"`
	Hash         string `json:"hash"`
	DownloadFini bool   `json:"download_finished"`
	Progress     float64 `json:"progress"`
	Files        []struct {
		ID        int64  `json:"id"`
		ShortName string `json:"short_name"`
	} `json:"files"`
}

func (c *Client) myTorrents(ctx context.Context) ([]torrentInfo, error) {
	var env envelope
	resp, err := c.client.R().SetContext(ctx).SetResult(&env).Get("/torrents/mylist")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "torbox mylist", err)
	}
	if resp.IsError() || !env.Success {
		return nil, mapStatus(resp.StatusCode(), env.Detail)
	}
	var torrents []torrentInfo
	_ = json.Unmarshal(env.Data, &torrents)
	return torrents, nil
}

func (c *Client) Resolve(ctx context.Context, infoHash, fileHint string) (string, error) {
	torrents, err := c.myTorrents(ctx)
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
		return "", errs.New(errs.KindTransientSource, "torbox: torrent submitted, not ready yet", nil)
	}
	if !match.DownloadFini {
		return "", errs.New(errs.KindTransientSource, "torbox: torrent not ready", nil)
	}

	fileID := int64(-1)
	for _, f := range match.Files {
		if fileHint == "" || strings.Contains(f.ShortName, fileHint) {
			fileID = f.ID
			break
		}
	}
	if fileID == -1 {
		return "", errs.New(errs.KindDataIntegrity, "torbox: no matching file", nil)
	}

	var env envelope
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("torrent_id", strconv.FormatInt(match.ID, 10)).
		SetQueryParam("file_id", strconv.FormatInt(fileID, 10)).
		SetResult(&env).
		Get("/torrents/requestdl")
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "torbox requestdl", err)
	}
	if resp.IsError() || !env.Success {
		return "", mapStatus(resp.StatusCode(), env.Detail)
	}
	var link string
	_ = json.Unmarshal(env.Data, &link)
	return link, nil
}

func (c *Client) ListActive(ctx context.Context) ([]debrid.ActiveTorrent, error) {
	torrents, err := c.myTorrents(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]debrid.ActiveTorrent, 0, len(torrents))
	for _, t := range torrents {
		status := "downloading"
		if t.DownloadFini {
			status = "downloaded"
		}
		out = append(out, debrid.ActiveTorrent{InfoHash: t.Hash, Status: status, Progress: t.Progress * 100})
	}
	return out, nil
}

func mapStatus(status int, detail string) error {
	switch status {
	case 401, 403:
		return errs.New(errs.KindProviderAuth, "torbox: "+detail, nil)
	case 429:
		return errs.New(errs.KindProviderQuota, "torbox: "+detail, nil)
	case 400, 404, 422:
		return errs.New(errs.KindPermanentSource, "torbox: "+detail, nil)
	default:
		return errs.New(errs.KindTransientSource, "torbox: "+detail, nil)
	}
}
