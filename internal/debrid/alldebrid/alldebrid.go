// Package alldebrid implements the debrid.Provider contract for AllDebrid,
// a token-only AuthStrategy backend (spec.md §4.5). Grounded on the same
// resty-client shape as the teacher's realdebrid.go, adapted to
// AllDebrid's magnet-centric REST API (v4, apikey query param auth).
package alldebrid

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
		SetBaseURL("https://api.alldebrid.com/v4").
		SetQueryParam("agent", "mediafusion").
		SetQueryParam("apikey", apiKey).
		SetTimeout(timeout)
	return &Client{client: client}
}

func (c *Client) Name() string                     { return "alldebrid" }
func (c *Client) AuthStrategy() debrid.AuthStrategy { return debrid.AuthToken }

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, params map[string]string, out any) error {
	req := c.client.R().SetContext(ctx)
	if params != nil {
		req.SetQueryParams(params)
	}
	env := &envelope{}
	req.SetResult(env)

	var resp *resty.Response
	var err error
	if method == "POST" {
		resp, err = req.Post(path)
	} else {
		resp, err = req.Get(path)
	}
	if err != nil {
		return errs.New(errs.KindTransientSource, "alldebrid request", err)
	}
	if resp.IsError() || env.Status != "success" {
		return mapError(resp.StatusCode(), env)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func mapError(status int, env *envelope) error {
	code := ""
	msg := "alldebrid error"
	if env.Error != nil {
		code, msg = env.Error.Code, env.Error.Message
	}
	switch {
	case status == 401 || code == "AUTH_BAD_APIKEY":
		return errs.New(errs.KindProviderAuth, msg, nil)
	case code == "MAGNET_MUST_BE_PREMIUM" || status == 429:
		return errs.New(errs.KindProviderQuota, msg, nil)
	case code == "MAGNET_INVALID" || code == "MAGNET_NO_URI":
		return errs.New(errs.KindProviderContent, msg, nil)
	default:
		return errs.New(errs.KindTransientSource, msg, nil)
	}
}

type magnetInstant struct {
	Hash    string `json:"hash"`
	Instant bool   `json:"instant"`
}

// Check uses AllDebrid's magnet/instant endpoint, one request per hash
// since the API takes a single magnet per call; callers normally hit this
// through internal/debrid/availability which already batches at the cache
// layer.
func (c *Client) Check(ctx context.Context, infoHashes []string) (map[string]bool, error) {
	out := make(map[string]bool, len(infoHashes))
	for _, h := range infoHashes {
		var result struct {
			Magnets []magnetInstant `json:"magnets"`
		}
		err := c.do(ctx, "GET", "/magnet/instant", map[string]string{"magnets[]": "magnet:?xt=urn:btih:" + h}, &result)
		if err != nil {
			out[h] = false
			continue
		}
		for _, m := range result.Magnets {
			out[h] = out[h] || m.Instant
		}
	}
	return out, nil
}

type uploadedMagnet struct {
	ID   int64  `json:"id"`
	Hash string `json:"hash"`
	Name string `json:"filename"`
}

func (c *Client) Submit(ctx context.Context, infoHash, magnet string) (string, error) {
	if magnet == "" {
		magnet = "magnet:?xt=urn:btih:" + infoHash
	}
	var result struct {
		Magnets []uploadedMagnet `json:"magnets"`
	}
	if err := c.do(ctx, "POST", "/magnet/upload", map[string]string{"magnets[]": magnet}, &result); err != nil {
		return "", err
	}
	if len(result.Magnets) == 0 {
		return "", errs.New(errs.KindProviderContent, "alldebrid: magnet rejected", nil)
	}
	return strconv.FormatInt(result.Magnets[0].ID, 10), nil
}

type magnetStatus struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Progress int    `json:"progress"` // 0-1000, per mille
	Hash     string `json:"hash"`
	Links    []struct {
		Filename string `json:"filename"`
		Link     string `json:"link"`
	} `json:"links"`
}

func (c *Client) Resolve(ctx context.Context, infoHash, fileHint string) (string, error) {
	var result struct {
		Magnets magnetStatus `json:"magnets"`
	}
	id, err := c.magnetIDForHash(ctx, infoHash)
	if err != nil {
		return "", err
	}
	if err := c.do(ctx, "GET", "/magnet/status", map[string]string{"id": id}, &result); err != nil {
		return "", err
	}
	if result.Magnets.Status != "Ready" {
		return "", errs.New(errs.KindTransientSource, "alldebrid: torrent not ready", nil)
	}
	for _, l := range result.Magnets.Links {
		if fileHint == "" || strings.Contains(l.Filename, fileHint) {
			return c.unlock(ctx, l.Link)
		}
	}
	return "", errs.New(errs.KindDataIntegrity, "alldebrid: no matching file", nil)
}

func (c *Client) magnetIDForHash(ctx context.Context, infoHash string) (string, error) {
	var result struct {
		Magnets []magnetStatus `json:"magnets"`
	}
	if err := c.do(ctx, "GET", "/magnet/status", nil, &result); err != nil {
		return "", err
	}
	for _, m := range result.Magnets {
		if m.Hash == infoHash {
			return strconv.FormatInt(m.ID, 10), nil
		}
	}
	jobID, err := c.Submit(ctx, infoHash, "")
	return jobID, err
}

func (c *Client) unlock(ctx context.Context, link string) (string, error) {
	var result struct {
		Link string `json:"link"`
	}
	if err := c.do(ctx, "GET", "/link/unlock", map[string]string{"link": link}, &result); err != nil {
		return "", err
	}
	return result.Link, nil
}

func (c *Client) ListActive(ctx context.Context) ([]debrid.ActiveTorrent, error) {
	var result struct {
		Magnets []magnetStatus `json:"magnets"`
	}
	if err := c.do(ctx, "GET", "/magnet/status", nil, &result); err != nil {
		return nil, err
	}
	out := make([]debrid.ActiveTorrent, 0, len(result.Magnets))
	for _, m := range result.Magnets {
		out = append(out, debrid.ActiveTorrent{InfoHash: m.Hash, Status: m.Status, Progress: float64(m.Progress) / 10})
	}
	return out, nil
}

