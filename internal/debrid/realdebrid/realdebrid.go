// Package realdebrid implements the debrid.Provider contract for
// RealDebrid, adapted from the teacher's original REST client: the same
// addMagnet/selectFiles/unrestrict-link flow, generalized behind
// Check/Submit/Resolve/ListActive and the device-code AuthStrategy.
package realdebrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/oauth2"

	"github.com/mediafusion/core/internal/debrid"
	"github.com/mediafusion/core/internal/errs"
)

var (
	ErrNoTorrentFound  = errors.New("realdebrid: no torrent found")
	ErrNoFileFound     = errors.New("realdebrid: no file found")
	ErrTorrentNotReady = errors.New("realdebrid: torrent is not ready yet")
)

// DeviceCodeEndpoint is RealDebrid's OAuth device-authorization endpoint,
// used by the out-of-scope pairing flow to mint the bearer token this
// provider is constructed with. Kept here (rather than buried in a
// handler) so the AuthStrategy the provider advertises matches the actual
// oauth2.Endpoint a caller would use.
var DeviceCodeEndpoint = oauth2.Endpoint{
	AuthURL:  "https://api.real-debrid.com/oauth/v2/device/code",
	TokenURL: "https://api.real-debrid.com/oauth/v2/token",
}

type Client struct {
	client    *resty.Client
	ipAddress string
}

// New builds a Client authorized with a bearer token obtained out-of-band
// via the device-code flow (DeviceCodeEndpoint).
func New(apiToken, ipAddress string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL("https://api.real-debrid.com/rest/1.0").
		SetHeader("Accept", "application/json").
		SetAuthScheme("Bearer").
		SetAuthToken(apiToken).
		SetTimeout(timeout)

	return &Client{client: client, ipAddress: ipAddress}
}

func (c *Client) Name() string                     { return "realdebrid" }
func (c *Client) AuthStrategy() debrid.AuthStrategy { return debrid.AuthDeviceCode }

type instantAvailability map[string][]map[string]*file

type file struct {
	ID       string
	FileName string `json:"filename"`
	FileSize uint64 `json:"filesize"`
}

// Check implements debrid.Provider.Check via RealDebrid's
// instantAvailability endpoint, batched across all requested hashes.
func (c *Client) Check(ctx context.Context, infoHashes []string) (map[string]bool, error) {
	if len(infoHashes) == 0 {
		return map[string]bool{}, nil
	}

	var result map[string]instantAvailability
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/torrents/instantAvailability/" + strings.Join(infoHashes, "/"))
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "realdebrid instantAvailability", err)
	}
	if resp.IsError() {
		return nil, mapStatusError(resp.StatusCode(), resp.String())
	}

	out := make(map[string]bool, len(infoHashes))
	for _, h := range infoHashes {
		variants, ok := result[h]
		out[h] = ok && len(variants) > 0
	}
	return out, nil
}

type addMagnetResponse struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

// Submit implements debrid.Provider.Submit via addMagnet; idempotent
// because RealDebrid itself dedups by hash on its side.
func (c *Client) Submit(ctx context.Context, infoHash, magnet string) (string, error) {
	if magnet == "" {
		magnet = "magnet:?xt=urn:btih:" + infoHash
	}
	result := &addMagnetResponse{}
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"magnet": magnet}).
		SetResult(result).
		Post("/torrents/addMagnet")
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "realdebrid addMagnet", err)
	}
	if resp.IsError() {
		return "", mapStatusError(resp.StatusCode(), resp.String())
	}
	return result.ID, nil
}

type torrent struct {
	ID       string        `json:"id"`
	Hash     string        `json:"hash"`
	Status   string        `json:"status"`
	Progress float64       `json:"progress"`
	FileName string        `json:"filename"`
	Files    []torrentFile `json:"files"`
	Links    []string      `json:"links"`
}

type torrentFile struct {
	ID       int    `json:"id"`
	Path     string `json:"path"`
	Selected int    `json:"selected"`
}

// Resolve implements debrid.Provider.Resolve: find or submit the torrent,
// select files, return ErrTorrentNotReady unless it has finished
// downloading, then unrestrict the hoster link for fileHint (a path
// substring; empty means "first file").
func (c *Client) Resolve(ctx context.Context, infoHash, fileHint string) (string, error) {
	t, err := c.findTorrentByHash(ctx, infoHash)
	if err != nil && !errors.Is(err, ErrNoTorrentFound) {
		return "", err
	}
	if t == nil {
		id, err := c.Submit(ctx, infoHash, "")
		if err != nil {
			return "", err
		}
		t, err = c.getTorrent(ctx, id)
		if err != nil {
			return "", err
		}
	}

	if t.Status == "waiting_files_selection" {
		if err := c.selectFiles(ctx, t.ID); err != nil {
			return "", err
		}
		t, err = c.getTorrent(ctx, t.ID)
		if err != nil {
			return "", err
		}
	}

	if t.Status != "downloaded" {
		return "", ErrTorrentNotReady
	}

	idx := linkIndexForFile(t, fileHint)
	if idx == -1 || idx >= len(t.Links) {
		return "", ErrNoFileFound
	}

	return c.unrestrict(ctx, t.Links[idx])
}

func (c *Client) findTorrentByHash(ctx context.Context, infoHash string) (*torrent, error) {
	var torrents []torrent
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&torrents).
		SetQueryParam("limit", "200").
		SetQueryParam("filter", "active").
		Get("/torrents")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "realdebrid list torrents", err)
	}
	if resp.IsError() {
		return nil, mapStatusError(resp.StatusCode(), resp.String())
	}
	for i := range torrents {
		if strings.EqualFold(torrents[i].Hash, infoHash) {
			return c.getTorrent(ctx, torrents[i].ID)
		}
	}
	return nil, ErrNoTorrentFound
}

func (c *Client) getTorrent(ctx context.Context, id string) (*torrent, error) {
	t := &torrent{}
	resp, err := c.client.R().SetContext(ctx).SetResult(t).Get("/torrents/info/" + id)
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "realdebrid get torrent", err)
	}
	if resp.IsError() {
		return nil, mapStatusError(resp.StatusCode(), resp.String())
	}
	return t, nil
}

func (c *Client) selectFiles(ctx context.Context, torrentID string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"files": "all"}).
		Post("/torrents/selectFiles/" + torrentID)
	if err != nil {
		return errs.New(errs.KindTransientSource, "realdebrid select files", err)
	}
	if resp.IsError() {
		return mapStatusError(resp.StatusCode(), resp.String())
	}
	return nil
}

type unrestrictResponse struct {
	Download string `json:"download"`
}

func (c *Client) unrestrict(ctx context.Context, hosterLink string) (string, error) {
	result := &unrestrictResponse{}
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(result).
		SetFormData(map[string]string{"link": hosterLink}).
		Post("/unrestrict/link")
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "realdebrid unrestrict", err)
	}
	if resp.IsError() {
		return "", mapStatusError(resp.StatusCode(), resp.String())
	}
	return result.Download, nil
}

// ListActive implements debrid.Provider.ListActive for the UI listing
// endpoint.
func (c *Client) ListActive(ctx context.Context) ([]debrid.ActiveTorrent, error) {
	var torrents []torrent
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&torrents).
		SetQueryParam("limit", "200").
		Get("/torrents")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "realdebrid list active", err)
	}
	if resp.IsError() {
		return nil, mapStatusError(resp.StatusCode(), resp.String())
	}

	out := make([]debrid.ActiveTorrent, 0, len(torrents))
	for _, t := range torrents {
		out = append(out, debrid.ActiveTorrent{InfoHash: t.Hash, Status: t.Status, Progress: t.Progress})
	}
	return out, nil
}

func linkIndexForFile(t *torrent, fileHint string) int {
	index := 0
	for _, f := range t.Files {
		if f.Selected == 0 {
			continue
		}
		if fileHint == "" || strings.Contains(f.Path, fileHint) {
			return index
		}
		index++
	}
	if fileHint == "" && index > 0 {
		return 0
	}
	return -1
}

type apiError struct {
	ErrTxt    string `json:"error"`
	ErrorCode int    `json:"error_code"`
}

func (e apiError) Error() string { return fmt.Sprintf("realdebrid: %s (%d)", e.ErrTxt, e.ErrorCode) }

// mapStatusError translates RealDebrid's HTTP status into the errs
// taxonomy so callers (the resolution state machine) can tell auth,
// quota, and content rejection apart, per spec.md §7.
func mapStatusError(status int, body string) error {
	var ae apiError
	_ = json.Unmarshal([]byte(body), &ae)

	switch status {
	case 401, 403:
		return errs.New(errs.KindProviderAuth, "realdebrid unauthorized", ae)
	case 429:
		return errs.New(errs.KindProviderQuota, "realdebrid rate limited", ae)
	case 503:
		return errs.New(errs.KindProviderContent, "realdebrid content unavailable", ae)
	case 400, 404:
		return errs.New(errs.KindPermanentSource, "realdebrid bad request", ae)
	default:
		log.Warnf("realdebrid: unexpected status %d: %s", status, body)
		return errs.New(errs.KindTransientSource, "realdebrid unexpected status", ae)
	}
}
