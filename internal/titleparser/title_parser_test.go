package titleparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasicMovie(t *testing.T) {
	mi := Parse("The.Matrix.1999.1080p.BluRay.x264.DTS-HD.5.1-GROUP")

	assert.Equal(t, 1999, mi.Year)
	assert.Equal(t, 1080, mi.Resolution)
	assert.Equal(t, "bluray", mi.Quality)
	assert.Equal(t, "x264", mi.Codec)
	assert.Contains(t, mi.Audio, "dts")
	assert.Equal(t, "GROUP", mi.ReleaseGroup)
	assert.Equal(t, "The Matrix", mi.Title)
}

func TestResolutionLabel(t *testing.T) {
	assert.Equal(t, "4k", ResolutionLabel(2160))
	assert.Equal(t, "1080p", ResolutionLabel(1080))
	assert.Equal(t, "", ResolutionLabel(0))
	assert.Equal(t, "", ResolutionLabel(999))
}

func TestParseSeasonEpisode(t *testing.T) {
	mi := Parse("Breaking.Bad.S03E07.720p.WEB-DL.AAC2.0.H.264")

	require.Len(t, mi.Seasons, 1)
	require.Len(t, mi.Episodes, 1)
	assert.Equal(t, 3, mi.Seasons[0])
	assert.Equal(t, 7, mi.Episodes[0])
	assert.Equal(t, 720, mi.Resolution)
}

func TestParseSeasonRange(t *testing.T) {
	mi := Parse("Some.Show.S01-S03.COMPLETE.1080p")

	require.Len(t, mi.Seasons, 3)
	assert.Equal(t, 1, mi.FromSeason())
	assert.Equal(t, 3, mi.ToSeason())
	assert.True(t, mi.Complete)
}

func TestParseFlagsAndHDR(t *testing.T) {
	mi := Parse("Movie.Name.2021.2160p.UHD.BluRay.HDR10.Atmos.REPACK.PROPER")

	assert.True(t, mi.Repack)
	assert.True(t, mi.Proper)
	assert.Contains(t, mi.HDR, "HDR10")
	assert.Contains(t, mi.Audio, "atmos")
	assert.Equal(t, 2160, mi.Resolution)
}

func TestParseNeverFails(t *testing.T) {
	mi := Parse("")
	assert.Equal(t, "", mi.Title)

	mi = Parse("just some random words with no tags at all")
	assert.NotEmpty(t, mi.Title)
}

func TestQualityGroup(t *testing.T) {
	assert.Equal(t, "BluRay/UHD", QualityGroup("bluray"))
	assert.Equal(t, "CAM/Screener", QualityGroup("cam"))
	assert.Equal(t, "", QualityGroup("nonsense"))
}

func TestDetectSportsCategory(t *testing.T) {
	assert.Equal(t, CategoryFormula1, DetectSportsCategory("Formula1.2023.Round12.British.GP.SkyF1HD.1080P"))
	assert.Equal(t, CategoryWWE, DetectSportsCategory("WWE.Raw.2023.10.02.HDTV.x264"))
	assert.Equal(t, CategoryMotoGP, DetectSportsCategory("MotoGP.2023x14.Qualifying.1080p"))
	assert.Equal(t, CategoryUnknown, DetectSportsCategory("The.Matrix.1999.1080p"))
}

func TestParseSportsFormula1Round(t *testing.T) {
	sm := ParseSports("Formula1.2023.Round12.British.GP.SkyF1HD.1080P")

	assert.Equal(t, CategoryFormula1, sm.Category)
	assert.Equal(t, 12, sm.Round)
	assert.Equal(t, "1080p", sm.Resolution)
	assert.Contains(t, sm.Broadcaster, "SkyF1")
	assert.NotContains(t, sm.EventTitle, "SkyF1")
	assert.NotContains(t, sm.EventTitle, "1080")
}

func TestParseSportsEventDateFormats(t *testing.T) {
	sm := ParseSports("WWE.Raw.02.10.2023.HDTV.x264")
	require.False(t, sm.EventDate.IsZero())
	assert.Equal(t, 2023, sm.EventDate.Year())

	sm = ParseSports("UFC.290.2023-07-08.PPV.WEB-DL")
	require.False(t, sm.EventDate.IsZero())
	assert.Equal(t, 2023, sm.EventDate.Year())

	sm = ParseSports("Formula1.2023x12.Round.British.GP.F1TV.1080p")
	require.False(t, sm.EventDate.IsZero())
	assert.Equal(t, 2023, sm.EventDate.Year())
}
