package metadata

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mediafusion/core/internal/model"
)

// Jikan is the unofficial MyAnimeList API. Anime titles rarely carry a
// usable IMDb id, so unlike Cinemeta/TMDB/TVDB this provider matches by
// title+year text search instead of req.ExternalID.
type Jikan struct {
	client *resty.Client
}

func NewJikan(timeout time.Duration) *Jikan {
	return &Jikan{client: resty.New().SetBaseURL("https://api.jikan.moe/v4").SetTimeout(timeout)}
}

func (j *Jikan) Name() string { return "jikan" }

type jikanSearchResponse struct {
	Data []struct {
		Title    string `json:"title"`
		Synopsis string `json:"synopsis"`
		Score    float64 `json:"score"`
		Year     int     `json:"year"`
		Images   struct {
			JPG struct {
				LargeImageURL string `json:"large_image_url"`
			} `json:"jpg"`
		} `json:"images"`
		TitleSynonyms []string `json:"title_synonyms"`
	} `json:"data"`
}

func (j *Jikan) Lookup(ctx context.Context, req Request) (model.Media, bool, error) {
	if req.Title == "" {
		return model.Media{}, false, nil
	}

	var out jikanSearchResponse
	_, err := j.client.R().SetContext(ctx).
		SetQueryParam("q", req.Title).
		SetQueryParam("limit", "1").
		SetResult(&out).
		Get("/anime")
	if err != nil {
		return model.Media{}, false, err
	}
	if len(out.Data) == 0 {
		return model.Media{}, false, nil
	}

	top := out.Data[0]
	m := model.Media{
		ExternalID:  req.ExternalID,
		Kind:        req.Kind,
		Title:       top.Title,
		Year:        top.Year,
		Description: top.Synopsis,
		Ratings:     map[string]float64{"mal": top.Score},
		Images:      map[string]string{},
		AKATitles:   top.TitleSynonyms,
	}
	if top.Images.JPG.LargeImageURL != "" {
		m.Images["poster"] = top.Images.JPG.LargeImageURL
	}
	return m, true, nil
}
