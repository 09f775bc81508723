package workerpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTitles_PreservesOrder(t *testing.T) {
	titles := []string{
		"Movie.One.2020.1080p.BluRay.x264-GROUP",
		"Movie.Two.2021.720p.WEB-DL.x264-GROUP",
		"Movie.Three.2022.2160p.UHD.BluRay.x265-GROUP",
	}

	results := ParseTitles(titles, 2)
	require.Len(t, results, len(titles))
	for i, r := range results {
		require.NotNil(t, r, "title %d should have parsed", i)
	}
	assert.Equal(t, 1080, results[0].Resolution)
	assert.Equal(t, 2160, results[2].Resolution)
}

func TestParseTitles_DefaultsWorkersWhenZero(t *testing.T) {
	results := ParseTitles([]string{"Movie.2020.1080p.WEB-DL"}, 0)
	require.Len(t, results, 1)
	assert.Equal(t, 1080, results[0].Resolution)
}
