package livetv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediafusion/core/internal/model"
	"github.com/mediafusion/core/internal/scraper"
)

const samplePlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXTINF:10.0,
segment0.ts
#EXT-X-ENDLIST
`

// newTestServer wires a full schedule -> channel page -> playlist chain,
// with the channel page's embedded source pointing back at the same
// server's own playlist route (its URL isn't known until the server
// starts, so the server is started first and the handlers are attached to
// its mux afterwards).
func newTestServer(t *testing.T, channelName string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewUnstartedServer(mux)
	srv.Start()

	mux.HandleFunc("/schedule.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"channels":[{"channel_name":"` + channelName + `","page_url":"/channel/1","referer":"https://example.test/"}]}`))
	})
	mux.HandleFunc("/channel/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<script>var config = {source: '` + srv.URL + `/playlist.m3u8'};</script>`))
	})
	mux.HandleFunc("/playlist.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePlaylist))
	})
	return srv
}

func TestScrape_MatchesChannelAndVerifiesPlaylist(t *testing.T) {
	srv := newTestServer(t, "ESPN HD")
	defer srv.Close()

	c := New("dlhd", srv.URL, "/schedule.json", time.Minute)

	out, err := c.Scrape(context.Background(), scraper.Request{Title: "espn"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.PayloadLiveM3U8, out[0].Payload)
	assert.Equal(t, "ESPN HD", out[0].DisplayName)
	assert.True(t, model.ValidInfoHash(out[0].InfoHash))
}

func TestScrape_NoMatchReturnsEmpty(t *testing.T) {
	srv := newTestServer(t, "BBC One")
	defer srv.Close()

	c := New("dlhd", srv.URL, "/schedule.json", time.Minute)
	out, err := c.Scrape(context.Background(), scraper.Request{Title: "does-not-exist"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestScrape_DashSourceIsSkipped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/schedule.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"channels":[{"channel_name":"DASH Channel","page_url":"/channel/1"}]}`))
	})
	mux.HandleFunc("/channel/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<script>source: "stream.mpd"</script>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("dlhd", srv.URL, "/schedule.json", time.Minute)
	out, err := c.Scrape(context.Background(), scraper.Request{})
	require.NoError(t, err)
	assert.Empty(t, out, "a source pointing at a DASH manifest must not be returned")
}

func TestSyntheticInfoHash_StableAndValid(t *testing.T) {
	h1 := syntheticInfoHash("dlhd", "ESPN HD")
	h2 := syntheticInfoHash("dlhd", "ESPN HD")
	h3 := syntheticInfoHash("dlhd", "ESPN 2")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.True(t, model.ValidInfoHash(h1))
	assert.False(t, strings.Contains(h1, " "))
}
