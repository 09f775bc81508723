// Package debridlink implements the debrid.Provider contract for
// DebridLink, a device-code OAuth AuthStrategy backend (same family as
// RealDebrid and Premiumize).
package debridlink

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/mediafusion/core/internal/debrid"
	"github.com/mediafusion/core/internal/errs"
)

// DeviceCodeEndpoint is DebridLink's OAuth device-authorization endpoint.
var DeviceCodeEndpoint = oauth2.Endpoint{
	AuthURL:  "https://debrid-link.com/api/oauth/device/code",
	TokenURL: "https://debrid-link.com/api/oauth/token",
}

type Client struct {
	client *resty.Client
}

func New(accessToken string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL("https://debrid-link.com/api/v2").
		SetAuthScheme("Bearer").
		SetAuthToken(accessToken).
		SetTimeout(timeout)
	return &Client{client: client}
}

func (c *Client) Name() string                     { return "debridlink" }
func (c *Client) AuthStrategy() debrid.AuthStrategy { return debrid.AuthDeviceCode }

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type cacheCheckResponse struct {
	envelope
	Value map[string]struct {
		Name string `json:"name"`
	} `json:"value"`
}

func (c *Client) Check(ctx context.Context, infoHashes []string) (map[string]bool, error) {
	if len(infoHashes) == 0 {
		return map[string]bool{}, nil
	}
	result := &cacheCheckResponse{}
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("url", strings.Join(infoHashes, ",")).
		SetResult(result).
		Get("/seedbox/cached")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "debridlink cached", err)
	}
	if resp.IsError() || !result.Success {
		return nil, mapStatus(resp.StatusCode(), result.Error)
	}
	out := make(map[string]bool, len(infoHashes))
	for _, h := range infoHashes {
		_, out[h] = result.Value[h]
	}
	return out, nil
}

type addResponse struct {
	envelope
	Value struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"value"`
}

func (c *Client) Submit(ctx context.Context, infoHash, magnet string) (string, error) {
	if magnet == "" {
		magnet = "magnet:?xt=urn:btih:" + infoHash
	}
	result := &addResponse{}
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"url": magnet}).
		SetResult(result).
		Post("/seedbox/add")
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "debridlink add", err)
	}
	if resp.IsError() || !result.Success {
		return "", mapStatus(resp.StatusCode(), result.Error)
	}
	return result.Value.ID, nil
}

type seedboxInfo struct {
	envelope
	Value []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Status   int    `json:"status"`
		Progress int    `json:"downloadPercent"`
		Files    []struct {
			Name        string `json:"name"`
			DownloadUrl string `json:"downloadUrl"`
		} `json:"files"`
	} `json:"value"`
}

func (c *Client) Resolve(ctx context.Context, infoHash, fileHint string) (string, error) {
	id, err := c.Submit(ctx, infoHash, "")
	if err != nil {
		return "", err
	}
	result := &seedboxInfo{}
	resp, err := c.client.R().SetContext(ctx).SetResult(result).Get("/seedbox/list")
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "debridlink list", err)
	}
	if resp.IsError() || !result.Success {
		return "", mapStatus(resp.StatusCode(), result.Error)
	}
	for _, s := range result.Value {
		if s.ID != id {
			continue
		}
		if s.Status != 100 {
			return "", errs.New(errs.KindTransientSource, "debridlink: not ready", nil)
		}
		for _, f := range s.Files {
			if fileHint == "" || strings.Contains(f.Name, fileHint) {
				return f.DownloadUrl, nil
			}
		}
	}
	return "", errs.New(errs.KindDataIntegrity, "debridlink: no matching file", nil)
}

func (c *Client) ListActive(ctx context.Context) ([]debrid.ActiveTorrent, error) {
	result := &seedboxInfo{}
	resp, err := c.client.R().SetContext(ctx).SetResult(result).Get("/seedbox/list")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "debridlink list", err)
	}
	if resp.IsError() || !result.Success {
		return nil, mapStatus(resp.StatusCode(), result.Error)
	}
	out := make([]debrid.ActiveTorrent, 0, len(result.Value))
	for _, s := range result.Value {
		out = append(out, debrid.ActiveTorrent{Status: strings.TrimSpace(s.Name), Progress: float64(s.Progress)})
	}
	return out, nil
}

func mapStatus(status int, msg string) error {
	switch status {
	case 401, 403:
		return errs.New(errs.KindProviderAuth, "debridlink: "+msg, nil)
	case 429:
		return errs.New(errs.KindProviderQuota, "debridlink: "+msg, nil)
	case 400, 404:
		return errs.New(errs.KindPermanentSource, "debridlink: "+msg, nil)
	default:
		return errs.New(errs.KindTransientSource, "debridlink: "+msg, nil)
	}
}
