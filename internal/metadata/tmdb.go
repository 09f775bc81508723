package metadata

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mediafusion/core/internal/model"
)

// TMDB looks identity up by IMDb id via TMDB's /find endpoint, since the
// core's canonical external id is IMDb-shaped, not a TMDB numeric id.
type TMDB struct {
	client *resty.Client
}

func NewTMDB(apiKey string, timeout time.Duration) *TMDB {
	return &TMDB{
		client: resty.New().
			SetBaseURL("https://api.themoviedb.org/3").
			SetTimeout(timeout).
			SetQueryParam("api_key", apiKey).
			SetQueryParam("external_source", "imdb_id"),
	}
}

func (t *TMDB) Name() string { return "tmdb" }

type tmdbFindResponse struct {
	MovieResults []tmdbResult `json:"movie_results"`
	TVResults    []tmdbResult `json:"tv_results"`
}

type tmdbResult struct {
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
}

func (t *TMDB) Lookup(ctx context.Context, req Request) (model.Media, bool, error) {
	if req.ExternalID == "" {
		return model.Media{}, false, nil
	}

	var out tmdbFindResponse
	_, err := t.client.R().SetContext(ctx).SetResult(&out).Get("/find/" + req.ExternalID)
	if err != nil {
		return model.Media{}, false, err
	}

	var r tmdbResult
	switch {
	case len(out.MovieResults) > 0:
		r = out.MovieResults[0]
	case len(out.TVResults) > 0:
		r = out.TVResults[0]
	default:
		return model.Media{}, false, nil
	}

	title := r.Title
	if title == "" {
		title = r.Name
	}
	year := parseTMDBYear(r.ReleaseDate)
	if year == 0 {
		year = parseTMDBYear(r.FirstAirDate)
	}

	m := model.Media{
		ExternalID:  req.ExternalID,
		Kind:        req.Kind,
		Title:       title,
		Year:        year,
		Description: r.Overview,
		Ratings:     map[string]float64{"tmdb": r.VoteAverage},
		Images:      map[string]string{},
	}
	if r.PosterPath != "" {
		m.Images["poster"] = "https://image.tmdb.org/t/p/original" + r.PosterPath
	}
	if r.BackdropPath != "" {
		m.Images["background"] = "https://image.tmdb.org/t/p/original" + r.BackdropPath
	}
	return m, true, nil
}

func parseTMDBYear(date string) int {
	y, _ := strconv.Atoi(strings.SplitN(date, "-", 2)[0])
	return y
}
