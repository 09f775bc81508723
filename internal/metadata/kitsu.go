package metadata

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mediafusion/core/internal/model"
)

// Kitsu is an alternate anime database, queried the same way as Jikan (by
// title text search) and kept as a separate provider since its coverage
// and ratings don't always agree with MAL's.
type Kitsu struct {
	client *resty.Client
}

func NewKitsu(timeout time.Duration) *Kitsu {
	return &Kitsu{client: resty.New().SetBaseURL("https://kitsu.io/api/edge").SetTimeout(timeout)}
}

func (k *Kitsu) Name() string { return "kitsu" }

type kitsuSearchResponse struct {
	Data []struct {
		Attributes struct {
			CanonicalTitle string             `json:"canonicalTitle"`
			Synopsis       string             `json:"synopsis"`
			StartDate      string             `json:"startDate"`
			AverageRating  string             `json:"averageRating"`
			AbbreviatedTitles []string        `json:"abbreviatedTitles"`
			PosterImage    struct {
				Original string `json:"original"`
			} `json:"posterImage"`
		} `json:"attributes"`
	} `json:"data"`
}

func (k *Kitsu) Lookup(ctx context.Context, req Request) (model.Media, bool, error) {
	if req.Title == "" {
		return model.Media{}, false, nil
	}

	var out kitsuSearchResponse
	_, err := k.client.R().SetContext(ctx).
		SetQueryParam("filter[text]", req.Title).
		SetQueryParam("page[limit]", "1").
		SetResult(&out).
		Get("/anime")
	if err != nil {
		return model.Media{}, false, err
	}
	if len(out.Data) == 0 {
		return model.Media{}, false, nil
	}

	attrs := out.Data[0].Attributes
	var rating float64
	if attrs.AverageRating != "" {
		rating = kitsuRatingToTen(attrs.AverageRating)
	}

	m := model.Media{
		ExternalID:  req.ExternalID,
		Kind:        req.Kind,
		Title:       attrs.CanonicalTitle,
		Year:        parseTMDBYear(attrs.StartDate),
		Description: attrs.Synopsis,
		Ratings:     map[string]float64{"kitsu": rating},
		Images:      map[string]string{},
		AKATitles:   attrs.AbbreviatedTitles,
	}
	if attrs.PosterImage.Original != "" {
		m.Images["poster"] = attrs.PosterImage.Original
	}
	return m, true, nil
}

// kitsuRatingToTen converts Kitsu's 0-100 averageRating string to the same
// 0-10 scale the other providers report.
func kitsuRatingToTen(raw string) float64 {
	hundred, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return hundred / 10
}
