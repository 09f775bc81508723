package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediafusion/core/internal/model"
)

type stubProvider struct {
	name  string
	media model.Media
	found bool
	err   error
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Lookup(context.Context, Request) (model.Media, bool, error) {
	return s.media, s.found, s.err
}

func TestEnrich_FirstProviderWinsScalars(t *testing.T) {
	primary := &stubProvider{name: "cinemeta", found: true, media: model.Media{Title: "Primary Title", Year: 2020, Genres: []string{"Action"}}}
	secondary := &stubProvider{name: "tmdb", found: true, media: model.Media{Title: "Secondary Title", Year: 1999, Genres: []string{"Drama"}, Ratings: map[string]float64{"tmdb": 7.5}}}

	e := New(primary, secondary)
	m, err := e.Enrich(context.Background(), Request{ExternalID: "tt1234567", Kind: model.KindMovie})
	require.NoError(t, err)

	assert.Equal(t, "Primary Title", m.Title)
	assert.Equal(t, 2020, m.Year)
	assert.ElementsMatch(t, []string{"Action", "Drama"}, m.Genres, "genres union across every provider that answered")
	assert.Equal(t, 7.5, m.Ratings["tmdb"])
}

func TestEnrich_MissAtOneProviderDoesNotBlockOthers(t *testing.T) {
	miss := &stubProvider{name: "tvdb", found: false}
	hit := &stubProvider{name: "cinemeta", found: true, media: model.Media{Title: "Found", Year: 2021}}

	e := New(miss, hit)
	m, err := e.Enrich(context.Background(), Request{ExternalID: "tt7654321", Kind: model.KindSeries})
	require.NoError(t, err)
	assert.Equal(t, "Found", m.Title)
}

func TestEnrich_NoHitsFallsBackToRequestFields(t *testing.T) {
	e := New(&stubProvider{name: "cinemeta", found: false})
	m, err := e.Enrich(context.Background(), Request{ExternalID: "tt0000000", Kind: model.KindMovie, Title: "Unknown", Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, "Unknown", m.Title)
	assert.Equal(t, 2024, m.Year)
}

func TestParseCinemetaYear_SeriesRangeAndOpenEnded(t *testing.T) {
	from, to := parseCinemetaYear("2015–2019")
	assert.Equal(t, 2015, from)
	assert.Equal(t, 2019, to)

	from, to = parseCinemetaYear("2021–")
	assert.Equal(t, 2021, from)
	assert.Equal(t, 2021, to)

	from, to = parseCinemetaYear("2018")
	assert.Equal(t, 2018, from)
	assert.Equal(t, 2018, to)
}
