// Package seedr implements the debrid.Provider contract for Seedr, a
// username+password AuthStrategy backend using HTTP basic auth rather
// than a bearer token.
package seedr

import (
	"context"
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

func New(username, password string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL("https://www.seedr.cc/api").
		SetBasicAuth(username, password).
		SetTimeout(timeout)
	return &Client{client: client}
}

func (c *Client) Name() string                     { return "seedr" }
func (c *Client) AuthStrategy() debrid.AuthStrategy { return debrid.AuthUserPassword }

// Check has no availability-probe endpoint; Seedr always accepts a
// magnet add and reports progress, so "cached" is approximated by
// scanning existing folders for a matching name, same limitation pattern
// as pikpak's Check.
func (c *Client) Check(ctx context.Context, infoHashes []string) (map[string]bool, error) {
	folders, err := c.listFolders(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(infoHashes))
	for _, h := range infoHashes {
		for _, f := range folders {
			if strings.Contains(strings.ToLower(f.Name), h) {
				out[h] = true
			}
		}
	}
	return out, nil
}

type folder struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"play_audio"`
}

type foldersResponse struct {
	Folders []folder `json:"folders"`
	Files   []struct {
		ID       int64  `json:"folder_file_id"`
		Name     string `json:"name"`
		FolderID int64  `json:"folder_id"`
	} `json:"files"`
}

func (c *Client) listFolders(ctx context.Context) ([]folder, error) {
	result := &foldersResponse{}
	resp, err := c.client.R().SetContext(ctx).SetResult(result).SetQueryParam("func", "get_folder").Get("/folder")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "seedr list folders", err)
	}
	if resp.IsError() {
		return nil, mapStatus(resp.StatusCode())
	}
	return result.Folders, nil
}

func (c *Client) Submit(ctx context.Context, infoHash, magnet string) (string, error) {
	if magnet == "" {
		magnet = "magnet:?xt=urn:btih:" + infoHash
	}
	var result struct {
		Result bool  `json:"result"`
		UserID int64 `json:"user_id"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"func": "add_torrent", "torrent_magnet": magnet}).
		SetResult(&result).
		Post("/folder")
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "seedr add torrent", err)
	}
	if resp.IsError() || !result.Result {
		return "", errs.New(errs.KindProviderContent, "seedr: magnet rejected", nil)
	}
	return infoHash, nil
}

func (c *Client) Resolve(ctx context.Context, infoHash, fileHint string) (string, error) {
	if _, err := c.Submit(ctx, infoHash, ""); err != nil {
		return "", err
	}
	folders, err := c.listFolders(ctx)
	if err != nil {
		return "", err
	}
	for _, f := range folders {
		if !strings.Contains(strings.ToLower(f.Name), infoHash[:8]) {
			continue
		}
		files, err := c.listFiles(ctx, f.ID)
		if err != nil {
			return "", err
		}
		for _, file := range files {
			if fileHint == "" || strings.Contains(file.Name, fileHint) {
				return c.fetchFileURL(ctx, file.ID)
			}
		}
	}
	return "", errs.New(errs.KindTransientSource, "seedr: not ready", nil)
}

type seedrFile struct {
	ID   int64  `json:"folder_file_id"`
	Name string `json:"name"`
}

func (c *Client) listFiles(ctx context.Context, folderID int64) ([]seedrFile, error) {
	var result struct {
		Files []seedrFile `json:"files"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("func", "get_folder").
		SetQueryParam("content_id", strconv.FormatInt(folderID, 10)).
		SetResult(&result).
		Get("/folder")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "seedr list files", err)
	}
	if resp.IsError() {
		return nil, mapStatus(resp.StatusCode())
	}
	return result.Files, nil
}

func (c *Client) fetchFileURL(ctx context.Context, fileID int64) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("func", "fetch_file").
		SetQueryParam("folder_file_id", strconv.FormatInt(fileID, 10)).
		SetResult(&result).
		Get("/folder")
	if err != nil {
		return "", errs.New(errs.KindTransientSource, "seedr fetch file", err)
	}
	if resp.IsError() {
		return "", mapStatus(resp.StatusCode())
	}
	return result.URL, nil
}

func (c *Client) ListActive(ctx context.Context) ([]debrid.ActiveTorrent, error) {
	folders, err := c.listFolders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]debrid.ActiveTorrent, 0, len(folders))
	for _, f := range folders {
		out = append(out, debrid.ActiveTorrent{Status: "downloaded"})
	}
	return out, nil
}

func mapStatus(status int) error {
	switch status {
	case 401, 403:
		return errs.New(errs.KindProviderAuth, "seedr unauthorized", nil)
	case 429:
		return errs.New(errs.KindProviderQuota, "seedr rate limited", nil)
	default:
		return errs.New(errs.KindTransientSource, "seedr unexpected status", nil)
	}
}
