package filtersort

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediafusion/core/internal/model"
)

func sampleStreams() []model.Stream {
	now := time.Now()
	mk := func(hash, res string, size uint64, lang string, seeders uint) model.Stream {
		return model.Stream{
			InfoHash:    hash,
			DisplayName: hash + " " + res,
			Resolution:  res,
			Quality:     []string{"WEB/HD"},
			Languages:   []string{lang},
			SizeBytes:   size,
			Seeders:     &seeders,
			CreatedAt:   now,
		}
	}
	return []model.Stream{
		mk("h1", "1080p", 2*1<<30, "English", 100),
		mk("h2", "1080p", 4*1<<30, "English", 50),
		mk("h3", "720p", 1*1<<30, "English", 20),
		mk("h4", "4k", 20*1<<30, "English", 10),
		mk("h5", "4k", 25*1<<30, "Tamil", 5),
	}
}

func basePrefs() model.UserPreferenceVector {
	return model.UserPreferenceVector{
		SelectedResolutions: []string{"1080p", "720p"},
		Languages:           []string{"English"},
		MaxTotalStreams:     10,
		SortingPriority: []model.SortRule{
			{Key: model.SortResolution, Direction: model.SortDesc},
			{Key: model.SortSize, Direction: model.SortDesc},
		},
	}
}

func TestApply_S1SimpleMovieLookup(t *testing.T) {
	streams := sampleStreams()
	prefs := basePrefs()
	prefs.MaxTotalStreams = 5

	ranked, hist := Apply(streams, prefs, "tt0133093")

	require.Len(t, ranked, 3)
	assert.Equal(t, "h2", ranked[0].InfoHash) // 1080p, bigger size first
	assert.Equal(t, "h1", ranked[1].InfoHash)
	assert.Equal(t, "h3", ranked[2].InfoHash)
	assert.Equal(t, 2, hist[ReasonResolution])
}

func TestApply_BlockedNeverSurfaces(t *testing.T) {
	streams := sampleStreams()
	streams[0].IsBlocked = true
	ranked, _ := Apply(streams, basePrefs(), "")
	for _, s := range ranked {
		assert.NotEqual(t, "h1", s.InfoHash)
	}
}

func TestApply_EmptySelectedResolutionsAllowsAll(t *testing.T) {
	prefs := basePrefs()
	prefs.SelectedResolutions = nil
	ranked, hist := Apply(sampleStreams(), prefs, "")
	assert.Len(t, ranked, 4) // h5 dropped for language, not resolution
	assert.Equal(t, 0, hist[ReasonResolution])
}

func TestApply_MaxStreamsZeroReturnsEmptyImmediately(t *testing.T) {
	prefs := basePrefs()
	prefs.MaxTotalStreams = 0
	ranked, hist := Apply(sampleStreams(), prefs, "")
	assert.Empty(t, ranked)
	assert.Empty(t, hist)
}

func TestApply_SizeZeroIsUnknownNotFiltered(t *testing.T) {
	streams := []model.Stream{{
		InfoHash:   "h0",
		Resolution: "1080p",
		Languages:  []string{"English"},
		SizeBytes:  0,
	}}
	prefs := basePrefs()
	prefs.MinSizeBytes = 1 << 30
	ranked, hist := Apply(streams, prefs, "")
	require.Len(t, ranked, 1)
	assert.Equal(t, 0, hist[ReasonMinSize])
}

func TestApply_FilterMonotonicity(t *testing.T) {
	streams := sampleStreams()
	wide := basePrefs()
	wide.SelectedResolutions = []string{"1080p", "720p", "4k"}

	narrow := wide
	narrow.SelectedResolutions = []string{"1080p"}

	wideRanked, _ := Apply(streams, wide, "")
	narrowRanked, _ := Apply(streams, narrow, "")

	assert.LessOrEqual(t, len(narrowRanked), len(wideRanked))
}

func TestApply_SortDeterminism(t *testing.T) {
	streams := sampleStreams()
	prefs := basePrefs()

	first, _ := Apply(streams, prefs, "")
	second, _ := Apply(streams, prefs, "")

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].InfoHash, second[i].InfoHash)
	}
}

func TestApply_MaxStreamsPerResolution(t *testing.T) {
	streams := sampleStreams()
	prefs := basePrefs()
	prefs.SelectedResolutions = nil
	prefs.Languages = nil
	prefs.MaxStreamsPerResolution = 1

	ranked, _ := Apply(streams, prefs, "")

	counts := map[string]int{}
	for _, s := range ranked {
		counts[s.Resolution]++
	}
	for res, n := range counts {
		assert.LessOrEqualf(t, n, 1, "resolution %s exceeded cap", res)
	}
}

func TestApply_NameFilterIncludeExclude(t *testing.T) {
	streams := []model.Stream{
		{InfoHash: "a", DisplayName: "Movie.REMUX.2160p", Resolution: "2160p"},
		{InfoHash: "b", DisplayName: "Movie.CAM", Resolution: "2160p"},
	}
	prefs := model.UserPreferenceVector{
		MaxTotalStreams: 10,
		StreamNameFilter: model.StreamNameFilter{
			Mode:     model.NameFilterExclude,
			Patterns: []string{"cam"},
		},
	}
	ranked, hist := Apply(streams, prefs, "")
	require.Len(t, ranked, 1)
	assert.Equal(t, "a", ranked[0].InfoHash)
	assert.Equal(t, 1, hist[ReasonNameFilter])
}

func TestApply_InfoHashBoundary(t *testing.T) {
	assert.True(t, model.ValidInfoHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	assert.False(t, model.ValidInfoHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))  // 39
	assert.False(t, model.ValidInfoHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")) // 41
}
