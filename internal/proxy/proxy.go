// Package proxy implements HLSProxy: master playlist construction, child
// playlist/segment proxying with in-flight coalescing, and session
// teardown, per spec.md §4.7.
package proxy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/cablecast/cablecast/internal/metrics"
	"github.com/cablecast/cablecast/internal/sessions"
	"github.com/cablecast/cablecast/internal/upstream"
)

// releaseDelay is how long after a fetch returns the proxy waits before
// calling Forget on its singleflight key. singleflight already drops a key
// when its call returns, so only requests that arrive while the fetch is in
// flight share its result; a completed result is not reused for later
// retries.
const releaseDelay = 100 * time.Millisecond

// rewriteExt matches playlist/segment/subtitle URLs that need rewriting to
// route back through this proxy.
var rewriteExt = regexp.MustCompile(`\.(m3u8|ts|vtt)(\?.*)?$`)

// Server is the HLSProxy.
type Server struct {
	client   upstream.Client
	registry *sessions.Registry
	deviceID string
	httpc    *http.Client
	logger   zerolog.Logger

	sfg          singleflight.Group
	startLimiter *semaphore.Weighted
}

// NewServer builds a Server. maxConcurrentStarts bounds how many transcode
// sessions may be in the middle of starting at once (0 disables the
// limiter) — a new master() call blocks on this, not proxy()/stop().
func NewServer(client upstream.Client, registry *sessions.Registry, deviceID string, maxConcurrentStarts int64, logger zerolog.Logger) *Server {
	s := &Server{
		client:   client,
		registry: registry,
		deviceID: deviceID,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
	if maxConcurrentStarts > 0 {
		s.startLimiter = semaphore.NewWeighted(maxConcurrentStarts)
	}
	return s
}

// Master implements the master flow: acquire a session, register it,
// fetch the master.m3u8, rewrite it, and write the result to w.
func (s *Server) Master(ctx context.Context, w http.ResponseWriter, itemID string, startTicks int64) error {
	if s.startLimiter != nil {
		if err := s.startLimiter.Acquire(ctx, 1); err != nil {
			http.Error(w, "too many concurrent stream starts", http.StatusServiceUnavailable)
			return err
		}
		defer s.startLimiter.Release(1)
	}

	info, err := s.client.GetHlsStreamUrl(ctx, itemID, startTicks)
	if err != nil {
		metrics.HLSProxyRequestsTotal.WithLabelValues("master", "fetch_error").Inc()
		return writeUpstreamErr(w, err)
	}
	s.registry.Track(itemID, info.PlaySessionID, info.MediaSourceID)
	metrics.ActiveSessions.Set(float64(len(s.registry.All())))

	body, status, contentType, err := s.fetch(ctx, info.URL)
	if err != nil {
		metrics.HLSProxyRequestsTotal.WithLabelValues("master", "fetch_error").Inc()
		s.cleanupSession(itemID, info.PlaySessionID)
		http.Error(w, "upstream unreachable", http.StatusInternalServerError)
		return err
	}
	if status >= 500 {
		metrics.HLSProxyRequestsTotal.WithLabelValues("master", "upstream_error").Inc()
		s.cleanupSession(itemID, info.PlaySessionID)
		http.Error(w, "upstream error", http.StatusBadGateway)
		return nil
	}
	if status >= 400 {
		metrics.HLSProxyRequestsTotal.WithLabelValues("master", "client_error").Inc()
		w.WriteHeader(status)
		_, _ = w.Write(body)
		return nil
	}

	metrics.HLSProxyRequestsTotal.WithLabelValues("master", "ok").Inc()
	rewritten := s.rewritePlaylist(body, info.PlaySessionID)
	w.Header().Set("Content-Type", contentType)
	_, err = w.Write(rewritten)
	return err
}

// Proxy implements the proxy flow for a child playlist or segment request
// at upstreamURL (already resolved by the caller from subpath+query).
func (s *Server) Proxy(ctx context.Context, w http.ResponseWriter, upstreamURL, itemID, playSessionID string) error {
	v, err, _ := s.sfg.Do(upstreamURL, func() (any, error) {
		body, status, contentType, ferr := s.fetch(ctx, upstreamURL)
		go func() {
			time.Sleep(releaseDelay)
			s.sfg.Forget(upstreamURL)
		}()
		if ferr != nil {
			return nil, ferr
		}
		return fetchResult{body: body, status: status, contentType: contentType}, nil
	})

	if err != nil {
		metrics.HLSProxyRequestsTotal.WithLabelValues("proxy", "fetch_error").Inc()
		http.Error(w, "upstream unreachable", http.StatusInternalServerError)
		return err
	}
	res := v.(fetchResult)

	if res.status >= 500 {
		metrics.HLSProxyRequestsTotal.WithLabelValues("proxy", "upstream_error").Inc()
		s.cleanupSession(itemID, playSessionID)
		http.Error(w, "upstream error", http.StatusBadGateway)
		return nil
	}
	if res.status >= 400 {
		metrics.HLSProxyRequestsTotal.WithLabelValues("proxy", "client_error").Inc()
		w.WriteHeader(res.status)
		_, _ = w.Write(res.body)
		return nil
	}

	metrics.HLSProxyRequestsTotal.WithLabelValues("proxy", "ok").Inc()
	s.registry.Get(itemID) // touches last_activity as a side effect

	body := res.body
	if isPlaylist(res.contentType, upstreamURL) {
		body = s.rewritePlaylist(body, playSessionID)
	}
	w.Header().Set("Content-Type", res.contentType)
	_, err = w.Write(body)
	return err
}

// Stop implements the stop flow: best-effort session teardown.
func (s *Server) Stop(ctx context.Context, itemID, playSessionID string, finalPositionTicks int64) {
	if err := s.client.ReportPlaybackStopped(ctx, itemID, playSessionID, finalPositionTicks); err != nil {
		s.logger.Warn().Err(err).Str("item_id", itemID).Msg("report playback stopped failed")
	}
	s.cleanupSession(itemID, playSessionID)
}

func (s *Server) cleanupSession(itemID, playSessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.client.StopPlaybackSession(ctx, playSessionID); err != nil {
		s.logger.Warn().Err(err).Str("item_id", itemID).Msg("stop playback session failed")
	}
	if err := s.client.DeleteTranscodingJob(ctx, playSessionID); err != nil {
		s.logger.Warn().Err(err).Str("item_id", itemID).Msg("delete transcoding job failed")
	}
	s.registry.Drop(itemID)
	metrics.ActiveSessions.Set(float64(len(s.registry.All())))
}

type fetchResult struct {
	body        []byte
	status      int
	contentType string
}

func (s *Server) fetch(ctx context.Context, rawURL string) ([]byte, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, "", err
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, "", err
	}
	return body, resp.StatusCode, resp.Header.Get("Content-Type"), nil
}

func isPlaylist(contentType, rawURL string) bool {
	if strings.Contains(contentType, "mpegurl") || strings.Contains(contentType, "text/plain") {
		return true
	}
	return strings.HasSuffix(strings.SplitN(rawURL, "?", 2)[0], ".m3u8")
}

// rewritePlaylist rewrites every line matching \.(m3u8|ts|vtt) into a proxy
// URL: normalize absolute URLs to path+query, prepend /api/stream/proxy,
// ensure PlaySessionId/DeviceId, and strip StartTimeTicks from segments
// (spec.md §4.7).
func (s *Server) rewritePlaylist(body []byte, playSessionID string) []byte {
	lines := bytes.Split(body, []byte("\n"))
	for i, line := range lines {
		trimmed := strings.TrimRight(string(line), "\r")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !rewriteExt.MatchString(trimmed) {
			continue
		}
		lines[i] = []byte(s.rewriteLine(trimmed, playSessionID))
	}
	return bytes.Join(lines, []byte("\n"))
}

func (s *Server) rewriteLine(line, playSessionID string) string {
	pathAndQuery := line
	if u, err := url.Parse(line); err == nil && u.IsAbs() {
		pathAndQuery = u.Path
		if u.RawQuery != "" {
			pathAndQuery += "?" + u.RawQuery
		}
	}

	parts := strings.SplitN(pathAndQuery, "?", 2)
	path := parts[0]
	q := url.Values{}
	if len(parts) == 2 {
		q, _ = url.ParseQuery(parts[1])
	}

	if q.Get("PlaySessionId") == "" {
		q.Set("PlaySessionId", playSessionID)
	}
	if q.Get("DeviceId") == "" {
		q.Set("DeviceId", s.deviceID)
	}
	if strings.HasSuffix(path, ".ts") {
		q.Del("StartTimeTicks")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return "/api/stream/proxy" + path + "?" + q.Encode()
}

func writeUpstreamErr(w http.ResponseWriter, err error) error {
	http.Error(w, "upstream unreachable", http.StatusBadGateway)
	return err
}
