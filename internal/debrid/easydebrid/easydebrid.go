// Package easydebrid implements the debrid.Provider contract for
// EasyDebrid, a token-only AuthStrategy backend with a minimal
// link-resolution API (no separate submit/poll cycle: it resolves a
// magnet directly to a download link in one call when cached, and errors
// otherwise).
package easydebrid

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
		SetBaseURL("https://easydebrid.com/api/v1").
		SetAuthScheme("Bearer").
		SetAuthToken(apiKey).
		SetTimeout(timeout)
	return &Client{client: client}
}

func (c *Client) Name() string                     { return "easydebrid" }
func (c *Client) AuthStrategy() debrid.AuthStrategy { return debrid.AuthToken }

type linkCheckResult struct {
	Hash      string `json:"hash"`
	Available bool   `json:"available"`
}

func (c *Client) Check(ctx context.Context, infoHashes []string) (map[string]bool, error) {
	urls := make([]string, len(infoHashes))
	for i, h := range infoHashes {
		urls[i] = "magnet:?xt=urn:btih:" + h
	}
	var results []linkCheckResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"urls": urls}).
		SetResult(&results).
		Post("/link/lookup")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "easydebrid lookup", err)
	}
	if resp.IsError() {
		return nil, mapStatus(resp.StatusCode())
	}
	out := make(map[string]bool, len(infoHashes))
	for _, r := range results {
		out[r.Hash] = r.Available
	}
	return out, nil
}

// Submit is a no-op for EasyDebrid: there is no separate upload step, a
// magnet is resolved directly by Resolve. It returns the info-hash itself
// as a synthetic job id for interface consistency.
func (c *Client) Submit(_ context.Context, infoHash, _ string) (string, error) {
	return infoHash, nil
}

type generateResult struct {
	Files []struct {
		Filename string `json:"filename"`
		URL      string `json:"url"`
	} `json:"files"`
}

func (c *Client) Resolve(ctx context.Context, infoHash, fileHint string) (string, error) {
	result := &generateResult{}
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"url": "magnet:?xt=urn:btih:" + infoHash}).
		SetResult(result).
		Post("/link/generate")
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "easydebrid generate", err)
	}
	if resp.IsError() {
		return "", mapStatus(resp.StatusCode())
	}
	if len(result.Files) == 0 {
		return "", errs.New(errs.KindProviderContent, "easydebrid: not cached", nil)
	}
	for _, f := range result.Files {
		if fileHint == "" || strings.Contains(f.Filename, fileHint) {
			return f.URL, nil
		}
	}
	return result.Files[0].URL, nil
}

// ListActive is unsupported by EasyDebrid's API (it has no persistent
// cloud state to list); returns an empty slice rather than an error since
// a missing list is normal here, not a failure.
func (c *Client) ListActive(context.Context) ([]debrid.ActiveTorrent, error) {
	return nil, nil
}

func mapStatus(status int) error {
	switch status {
	case 401, 403:
		return errs.New(errs.KindProviderAuth, "easydebrid unauthorized", nil)
	case 429:
		return errs.New(errs.KindProviderQuota, "easydebrid rate limited", nil)
	default:
		return errs.New(errs.KindTransientSource, "easydebrid unexpected status", nil)
	}
}
