package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cablecast/cablecast/internal/sessions"
	"github.com/cablecast/cablecast/internal/upstream"
)

func TestRewritePlaylistRewritesSegmentsAndStripsStartTimeTicks(t *testing.T) {
	s := NewServer(&upstream.FakeClient{}, sessions.NewRegistry(), "device1", 0, zerolog.Nop())

	body := []byte("#EXTM3U\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=1000\n" +
		"http://upstream.example/videos/abc/main.m3u8?MediaSourceId=abc\n" +
		"segment1.ts?StartTimeTicks=50000000\n" +
		"sub.vtt\n")

	out := string(s.rewritePlaylist(body, "sess-1"))
	lines := strings.Split(out, "\n")

	assert.Equal(t, "#EXTM3U", lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "/api/stream/proxy/videos/abc/main.m3u8?"))
	assert.Contains(t, lines[2], "PlaySessionId=sess-1")
	assert.Contains(t, lines[2], "DeviceId=device1")

	assert.True(t, strings.HasPrefix(lines[3], "/api/stream/proxy/segment1.ts?"))
	assert.NotContains(t, lines[3], "StartTimeTicks")
	assert.Contains(t, lines[3], "PlaySessionId=sess-1")

	assert.True(t, strings.HasPrefix(lines[4], "/api/stream/proxy/sub.vtt?"))
}

func TestRewritePlaylistLeavesTagLinesAlone(t *testing.T) {
	s := NewServer(&upstream.FakeClient{}, sessions.NewRegistry(), "device1", 0, zerolog.Nop())
	body := []byte("#EXTM3U\n#EXT-X-VERSION:3\n")
	out := string(s.rewritePlaylist(body, "sess-1"))
	assert.Equal(t, string(body), out)
}

func TestMasterCleansUpSessionOnFetchFailure(t *testing.T) {
	client := &upstream.FakeClient{}
	reg := sessions.NewRegistry()
	s := NewServer(client, reg, "device1", 0, zerolog.Nop())

	rec := httptest.NewRecorder()
	err := s.Master(context.Background(), rec, "item1", 0)
	// FakeClient's URL points at a non-routable host; fetch will fail, which is still a
	// valid, observable code path (cleanup + 500).
	require.Error(t, err)
	_, ok := reg.Get("item1")
	assert.False(t, ok, "failed fetch should clean up the tracked session")
}

func TestProxyPropagates5xxAsBadGatewayAndCleansUpSession(t *testing.T) {
	var hits int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	client := &upstream.FakeClient{}
	reg := sessions.NewRegistry()
	reg.Track("item1", "sess1", "src1")
	s := NewServer(client, reg, "device1", 0, zerolog.Nop())

	rec := httptest.NewRecorder()
	err := s.Proxy(context.Background(), rec, backend.URL+"/videos/item1/seg.ts", "item1", "sess1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	_, ok := reg.Get("item1")
	assert.False(t, ok)
	assert.Contains(t, client.StoppedSessions, "sess1")
	assert.Contains(t, client.DeletedJobs, "sess1")
}

func TestProxyForwards4xxAsIs(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer backend.Close()

	s := NewServer(&upstream.FakeClient{}, sessions.NewRegistry(), "device1", 0, zerolog.Nop())
	rec := httptest.NewRecorder()
	err := s.Proxy(context.Background(), rec, backend.URL+"/x.ts", "item1", "sess1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStopIsBestEffort(t *testing.T) {
	client := &upstream.FakeClient{}
	reg := sessions.NewRegistry()
	reg.Track("item1", "sess1", "src1")
	s := NewServer(client, reg, "device1", 0, zerolog.Nop())

	s.Stop(context.Background(), "item1", "sess1", 1_000_000)

	_, ok := reg.Get("item1")
	assert.False(t, ok)
	assert.Contains(t, client.StoppedSessions, "sess1")
}
