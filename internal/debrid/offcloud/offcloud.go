// Package offcloud implements the debrid.Provider contract for Offcloud, a
// token-only AuthStrategy backend authenticated with an api_key query
// parameter.
package offcloud

import (
	"context"
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
		SetBaseURL("https://offcloud.com/api").
		SetQueryParam("key", apiKey).
		SetTimeout(timeout)
	return &Client{client: client}
}

func (c *Client) Name() string                     { return "offcloud" }
func (c *Client) AuthStrategy() debrid.AuthStrategy { return debrid.AuthToken }

// Check uses Offcloud's /cache endpoint, one hash per call.
func (c *Client) Check(ctx context.Context, infoHashes []string) (map[string]bool, error) {
	out := make(map[string]bool, len(infoHashes))
	for _, h := range infoHashes {
		var result struct {
			CachedItems []string `json:"cachedItems"`
		}
		resp, err := c.client.R().
			SetContext(ctx).
			SetBody(map[string]any{"hashes": []string{h}}).
			SetResult(&result).
			Post("/cache")
		if err != nil || resp.IsError() {
			out[h] = false
			continue
		}
		for _, ci := range result.CachedItems {
			if strings.EqualFold(ci, h) {
				out[h] = true
			}
		}
	}
	return out, nil
}

type cloudResponse struct {
	RequestId string `json:"requestId"`
	Status    string `json:"status"`
}

func (c *Client) Submit(ctx context.Context, infoHash, magnet string) (string, error) {
	if magnet == "" {
		magnet = "magnet:?xt=urn:btih:" + infoHash
	}
	result := &cloudResponse{}
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"url": magnet}).
		SetResult(result).
		Post("/cloud")
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "offcloud cloud submit", err)
	}
	if resp.IsError() {
		return "", mapStatus(resp.StatusCode())
	}
	return result.RequestId, nil
}

type historyEntry struct {
	RequestId  string `json:"requestId"`
	Status     string `json:"status"`
	FileName   string `json:"fileName"`
	OriginalLink string `json:"originalLink"`
}

func (c *Client) Resolve(ctx context.Context, infoHash, fileHint string) (string, error) {
	id, err := c.Submit(ctx, infoHash, "")
	if err != nil {
		return "", err
	}

	entry := &historyEntry{}
	resp, err := c.client.R().SetContext(ctx).SetResult(entry).Get("/cloud/status/" + id)
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "offcloud status", err)
	}
	if resp.IsError() {
		return "", mapStatus(resp.StatusCode())
	}
	if entry.Status != "downloaded" {
		return "", errs.New(errs.KindTransientSource, "offcloud: not ready", nil)
	}

	var dl struct {
		Url string `json:"url"`
	}
	resp, err = c.client.R().SetContext(ctx).SetResult(&dl).Get("/cloud/explore/" + id)
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "offcloud explore", err)
	}
	if resp.IsError() {
		return "", mapStatus(resp.StatusCode())
	}
	return dl.Url, nil
}

func (c *Client) ListActive(ctx context.Context) ([]debrid.ActiveTorrent, error) {
	var history []historyEntry
	resp, err := c.client.R().SetContext(ctx).SetResult(&history).Get("/cloud/history")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "offcloud history", err)
	}
	if resp.IsError() {
		return nil, mapStatus(resp.StatusCode())
	}
	out := make([]debrid.ActiveTorrent, 0, len(history))
	for _, h := range history {
		out = append(out, debrid.ActiveTorrent{Status: h.Status})
	}
	return out, nil
}

func mapStatus(status int) error {
	switch status {
	case 401, 403:
		return errs.New(errs.KindProviderAuth, "offcloud unauthorized", nil)
	case 429:
		return errs.New(errs.KindProviderQuota, "offcloud rate limited", nil)
	case 400, 404:
		return errs.New(errs.KindPermanentSource, "offcloud bad request", nil)
	default:
		return errs.New(errs.KindTransientSource, "offcloud unexpected status", nil)
	}
}
