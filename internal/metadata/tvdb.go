package metadata

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mediafusion/core/internal/model"
)

// TVDB authenticates once per process (a login token, not a static key)
// and looks series up by their IMDb remote id.
type TVDB struct {
	client  *resty.Client
	apiKey  string
	token   string
}

func NewTVDB(apiKey string, timeout time.Duration) *TVDB {
	return &TVDB{
		client: resty.New().SetBaseURL("https://api4.thetvdb.com/v4").SetTimeout(timeout),
		apiKey: apiKey,
	}
}

func (t *TVDB) Name() string { return "tvdb" }

type tvdbLoginResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

type tvdbSearchResponse struct {
	Data []struct {
		Name        string  `json:"name"`
		Overview    string  `json:"overview"`
		Year        string  `json:"year"`
		ImageURL    string  `json:"image_url"`
		Score       float64 `json:"score"`
	} `json:"data"`
}

func (t *TVDB) ensureToken(ctx context.Context) error {
	if t.token != "" {
		return nil
	}
	var out tvdbLoginResponse
	_, err := t.client.R().SetContext(ctx).SetBody(map[string]string{"apikey": t.apiKey}).SetResult(&out).Post("/login")
	if err != nil {
		return err
	}
	t.token = out.Data.Token
	return nil
}

func (t *TVDB) Lookup(ctx context.Context, req Request) (model.Media, bool, error) {
	if req.ExternalID == "" {
		return model.Media{}, false, nil
	}
	if err := t.ensureToken(ctx); err != nil {
		return model.Media{}, false, err
	}

	var out tvdbSearchResponse
	_, err := t.client.R().SetContext(ctx).
		SetAuthToken(t.token).
		SetQueryParam("remote_id", req.ExternalID).
		SetResult(&out).
		Get("/search")
	if err != nil {
		return model.Media{}, false, err
	}
	if len(out.Data) == 0 {
		return model.Media{}, false, nil
	}

	top := out.Data[0]
	year := 0
	if len(top.Year) >= 4 {
		year = parseTMDBYear(top.Year + "-01-01")
	}

	m := model.Media{
		ExternalID:  req.ExternalID,
		Kind:        req.Kind,
		Title:       top.Name,
		Year:        year,
		Description: top.Overview,
		Ratings:     map[string]float64{"tvdb": top.Score},
		Images:      map[string]string{},
	}
	if top.ImageURL != "" {
		m.Images["poster"] = top.ImageURL
	}
	return m, true, nil
}
