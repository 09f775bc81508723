// Package premiumize implements the debrid.Provider contract for
// Premiumize, a device-code OAuth AuthStrategy backend.
package premiumize

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/mediafusion/core/internal/debrid"
	"github.com/mediafusion/core/internal/errs"
)

// DeviceCodeEndpoint is Premiumize's OAuth device-authorization endpoint.
var DeviceCodeEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.premiumize.me/authorize",
	TokenURL: "https://www.premiumize.me/token",
}

type Client struct {
	client *resty.Client
}

func New(accessToken string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL("https://www.premiumize.me/api").
		SetQueryParam("access_token", accessToken).
		SetTimeout(timeout)
	return &Client{client: client}
}

func (c *Client) Name() string                     { return "premiumize" }
func (c *Client) AuthStrategy() debrid.AuthStrategy { return debrid.AuthDeviceCode }

type cacheCheckResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Response   []bool `json:"response"`
	Filename   []string `json:"filename"`
}

func (c *Client) Check(ctx context.Context, infoHashes []string) (map[string]bool, error) {
	if len(infoHashes) == 0 {
		return map[string]bool{}, nil
	}
	magnets := make([]string, len(infoHashes))
	for i, h := range infoHashes {
		magnets[i] = "magnet:?xt=urn:btih:" + h
	}
	result := &cacheCheckResponse{}
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("items[]", strings.Join(magnets, ",")).
		SetResult(result).
		Get("/cache/check")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "premiumize cache check", err)
	}
	if resp.IsError() || result.Status != "success" {
		return nil, mapStatus(resp.StatusCode(), result.Message)
	}
	out := make(map[string]bool, len(infoHashes))
	for i, h := range infoHashes {
		if i < len(result.Response) {
			out[h] = result.Response[i]
		}
	}
	return out, nil
}

type transferCreateResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	Message string `json:"message"`
}

func (c *Client) Submit(ctx context.Context, infoHash, magnet string) (string, error) {
	if magnet == "" {
		magnet = "magnet:?xt=urn:btih:" + infoHash
	}
	result := &transferCreateResponse{}
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"src": magnet}).
		SetResult(result).
		Post("/transfer/create")
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "premiumize transfer create", err)
	}
	if resp.IsError() || result.Status != "success" {
		return "", mapStatus(resp.StatusCode(), result.Message)
	}
	return result.ID, nil
}

type transferListResponse struct {
	Status    string `json:"status"`
	Transfers []struct {
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		Status   string  `json:"status"`
		Progress float64 `json:"progress"`
		FolderID string  `json:"folder_id"`
		FileID   string  `json:"file_id"`
	} `json:"transfers"`
}

type itemDetailsResponse struct {
	Status string `json:"status"`
	Link   string `json:"link"`
	Name   string `json:"name"`
}

func (c *Client) Resolve(ctx context.Context, infoHash, fileHint string) (string, error) {
	id, err := c.Submit(ctx, infoHash, "")
	if err != nil {
		return "", err
	}

	list := &transferListResponse{}
	resp, err := c.client.R().SetContext(ctx).SetResult(list).Get("/transfer/list")
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "premiumize transfer list", err)
	}
	if resp.IsError() || list.Status != "success" {
		return "", mapStatus(resp.StatusCode(), "")
	}

	for _, t := range list.Transfers {
		if t.ID != id {
			continue
		}
		if t.Status != "finished" || t.FileID == "" {
			return "", errs.New(errs.KindTransientSource, "premiumize: not ready", nil)
		}
		item := &itemDetailsResponse{}
		resp, err := c.client.R().SetContext(ctx).SetResult(item).Get("/item/details?id=" + t.FileID)
		if err != nil {
			return "", errs.New(errs.KindTransientSource, "premiumize item details", err)
		}
		if resp.IsError() || item.Status != "success" {
			return "", mapStatus(resp.StatusCode(), "")
		}
		_ = fileHint
		return item.Link, nil
	}
	return "", errs.New(errs.KindDataIntegrity, "premiumize: transfer not found", nil)
}

func (c *Client) ListActive(ctx context.Context) ([]debrid.ActiveTorrent, error) {
	list := &transferListResponse{}
	resp, err := c.client.R().SetContext(ctx).SetResult(list).Get("/transfer/list")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "premiumize transfer list", err)
	}
	if resp.IsError() || list.Status != "success" {
		return nil, mapStatus(resp.StatusCode(), "")
	}
	out := make([]debrid.ActiveTorrent, 0, len(list.Transfers))
	for _, t := range list.Transfers {
		out = append(out, debrid.ActiveTorrent{Status: t.Status, Progress: t.Progress * 100})
	}
	return out, nil
}

func mapStatus(status int, msg string) error {
	switch status {
	case 401, 403:
		return errs.New(errs.KindProviderAuth, "premiumize: "+msg, nil)
	case 429:
		return errs.New(errs.KindProviderQuota, "premiumize: "+msg, nil)
	case 400, 404:
		return errs.New(errs.KindPermanentSource, "premiumize: "+msg, nil)
	default:
		return errs.New(errs.KindTransientSource, "premiumize: "+msg, nil)
	}
}
