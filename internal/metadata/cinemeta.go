package metadata

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mediafusion/core/internal/model"
)

// Cinemeta is the IMDb-backed provider, grounded on Stremio's own Cinemeta
// addon — the teacher's sole metadata source, generalized here into one
// Provider among several instead of the only identity lookup available.
type Cinemeta struct {
	client *resty.Client
}

func NewCinemeta(baseURL string, timeout time.Duration) *Cinemeta {
	return &Cinemeta{client: resty.New().SetBaseURL(baseURL).SetTimeout(timeout)}
}

func (c *Cinemeta) Name() string { return "cinemeta" }

type cinemetaResponse struct {
	Meta struct {
		Name        string   `json:"name"`
		Year        string   `json:"year"`
		IMDBID      string   `json:"imdb_id"`
		Description string   `json:"description"`
		Genres      []string `json:"genres"`
		Poster      string   `json:"poster"`
		Background  string   `json:"background"`
	} `json:"meta"`
}

func (c *Cinemeta) Lookup(ctx context.Context, req Request) (model.Media, bool, error) {
	kind := "movie"
	if req.Kind == model.KindSeries {
		kind = "series"
	}
	if req.ExternalID == "" {
		return model.Media{}, false, nil
	}

	var out cinemetaResponse
	resp, err := c.client.R().SetContext(ctx).SetResult(&out).Get("/meta/" + kind + "/" + req.ExternalID + ".json")
	if err != nil {
		return model.Media{}, false, err
	}
	if resp.StatusCode() == 404 || out.Meta.Name == "" {
		return model.Media{}, false, nil
	}

	fromYear, toYear := parseCinemetaYear(out.Meta.Year)
	m := model.Media{
		ExternalID:  req.ExternalID,
		Kind:        req.Kind,
		Title:       out.Meta.Name,
		Year:        fromYear,
		EndYear:     toYear,
		Description: out.Meta.Description,
		Genres:      out.Meta.Genres,
		Images:      map[string]string{},
	}
	if out.Meta.Poster != "" {
		m.Images["poster"] = out.Meta.Poster
	}
	if out.Meta.Background != "" {
		m.Images["background"] = out.Meta.Background
	}
	return m, true, nil
}

// parseCinemetaYear handles both a single movie year ("2020") and a
// series range ("2020–2023" or an open-ended "2020–").
func parseCinemetaYear(raw string) (from, to int) {
	parts := strings.Split(raw, "–")
	from, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	to = from
	if len(parts) > 1 {
		if v, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			to = v
		}
	}
	return from, to
}
