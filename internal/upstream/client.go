// Package upstream talks to the Upstream media server: authentication,
// library listing, playback session lifecycle, and transcode job control.
// Upstream is treated as an opaque origin per spec.md §1 — its own
// transcoding/HLS internals are never reimplemented here, only driven
// through its REST surface (Jellyfin-flavored: PlaySessionId, DeviceId,
// RunTimeTicks, master.m3u8).
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cablecast/cablecast/internal/cablecasterr"
	"github.com/cablecast/cablecast/internal/model"
)

const defaultTimeout = 30 * time.Second

// AuthResult is returned by Authenticate.
type AuthResult struct {
	AccessToken string
	UserID      string
}

// HLSStreamInfo is returned by GetHlsStreamUrl.
type HLSStreamInfo struct {
	URL           string
	PlaySessionID string
	MediaSourceID string
	IsHDRSource   bool
}

// Client is the UpstreamClient surface from spec.md §4.9.
type Client interface {
	Authenticate(ctx context.Context, baseURL, user, pass string) (AuthResult, error)
	TestConnection(ctx context.Context, baseURL string) error
	SyncLibrary(ctx context.Context, progress func(done, total int)) ([]model.LibraryItem, error)
	GetItem(ctx context.Context, itemID string) (model.LibraryItem, error)
	GetCollections(ctx context.Context) ([]model.LibraryItem, error)
	GetPlaylists(ctx context.Context) ([]model.LibraryItem, error)
	GetPlaybackInfo(ctx context.Context, itemID string) (json.RawMessage, error)
	GetHlsStreamUrl(ctx context.Context, itemID string, startTicks int64) (HLSStreamInfo, error)
	StopPlaybackSession(ctx context.Context, playSessionID string) error
	DeleteTranscodingJob(ctx context.Context, playSessionID string) error
	ReportPlaybackStart(ctx context.Context, itemID, playSessionID string) error
	ReportPlaybackProgress(ctx context.Context, itemID, playSessionID string, positionTicks int64) error
	ReportPlaybackStopped(ctx context.Context, itemID, playSessionID string, positionTicks int64) error
}

// HTTPClient is the default Client implementation.
type HTTPClient struct {
	baseURL     string
	accessToken string
	userID      string
	deviceID    string
	httpc       *http.Client

	onUnauthorized func()
}

// NewHTTPClient constructs a client bound to one Upstream server connection.
func NewHTTPClient(baseURL, accessToken, userID, deviceID string) *HTTPClient {
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		userID:      userID,
		deviceID:    deviceID,
		httpc:       &http.Client{Timeout: defaultTimeout},
	}
}

// OnUnauthorized registers a callback invoked when Upstream returns 401;
// per spec.md §4.9 the cached API/token should be cleared and callers must
// not retry automatically.
func (c *HTTPClient) OnUnauthorized(fn func()) { c.onUnauthorized = fn }

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("X-Emby-Token", c.accessToken)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, cablecasterr.Wrap(cablecasterr.KindUpstreamUnreachable, "upstream request failed", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		_ = resp.Body.Close()
		return nil, cablecasterr.New(cablecasterr.KindUpstreamUnauthorized, "upstream authentication expired")
	}
	if resp.StatusCode >= 500 {
		_ = resp.Body.Close()
		return nil, cablecasterr.New(cablecasterr.KindUpstreamTranscodeFault, fmt.Sprintf("upstream returned %d", resp.StatusCode))
	}
	return resp, nil
}

func (c *HTTPClient) Authenticate(ctx context.Context, baseURL, user, pass string) (AuthResult, error) {
	c.baseURL = strings.TrimRight(baseURL, "/")
	resp, err := c.do(ctx, http.MethodPost, "/Users/AuthenticateByName", nil, map[string]string{
		"Username": user,
		"Pw":       pass,
	})
	if err != nil {
		return AuthResult{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		AccessToken string `json:"AccessToken"`
		User        struct {
			ID string `json:"Id"`
		} `json:"User"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return AuthResult{}, cablecasterr.Wrap(cablecasterr.KindUpstreamUnreachable, "decode auth response", err)
	}
	c.accessToken = payload.AccessToken
	c.userID = payload.User.ID
	return AuthResult{AccessToken: payload.AccessToken, UserID: payload.User.ID}, nil
}

func (c *HTTPClient) TestConnection(ctx context.Context, baseURL string) error {
	target := c.baseURL
	if baseURL != "" {
		target = strings.TrimRight(baseURL, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"/System/Ping", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindUpstreamUnreachable, "test connection", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return cablecasterr.New(cablecasterr.KindUpstreamUnreachable, fmt.Sprintf("ping returned %d", resp.StatusCode))
	}
	return nil
}

// itemsPageSize matches spec.md §4.9's standard paginated fetch size.
const itemsPageSize = 1000

var itemFields = []string{"Genres", "Overview", "Studios", "DateCreated", "Tags", "People", "UserData"}

// SyncLibrary attempts a one-shot full fetch and falls back to paginated
// fetching, per spec.md §4.9.
func (c *HTTPClient) SyncLibrary(ctx context.Context, progress func(done, total int)) ([]model.LibraryItem, error) {
	q := url.Values{
		"Recursive":        {"true"},
		"Fields":           {strings.Join(itemFields, ",")},
		"IncludeItemTypes": {"Movie,Episode"},
		"UserId":           {c.userID},
	}
	items, total, err := c.fetchItemsPage(ctx, q, 0, 0)
	if err == nil && len(items) >= total {
		if progress != nil {
			progress(len(items), total)
		}
		return items, nil
	}

	var all []model.LibraryItem
	start := 0
	for {
		page, total, err := c.fetchItemsPage(ctx, q, start, itemsPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if progress != nil {
			progress(len(all), total)
		}
		if len(page) < itemsPageSize || len(all) >= total {
			break
		}
		start += itemsPageSize
	}
	return all, nil
}

func (c *HTTPClient) fetchItemsPage(ctx context.Context, base url.Values, start, limit int) ([]model.LibraryItem, int, error) {
	q := url.Values{}
	for k, v := range base {
		q[k] = v
	}
	if limit > 0 {
		q.Set("StartIndex", strconv.Itoa(start))
		q.Set("Limit", strconv.Itoa(limit))
	}
	resp, err := c.do(ctx, http.MethodGet, "/Items", q, nil)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var payload struct {
		Items            []rawItem `json:"Items"`
		TotalRecordCount int       `json:"TotalRecordCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, 0, cablecasterr.Wrap(cablecasterr.KindUpstreamUnreachable, "decode items page", err)
	}
	items := make([]model.LibraryItem, 0, len(payload.Items))
	for _, ri := range payload.Items {
		items = append(items, ri.toModel())
	}
	return items, payload.TotalRecordCount, nil
}

func (c *HTTPClient) GetItem(ctx context.Context, itemID string) (model.LibraryItem, error) {
	resp, err := c.do(ctx, http.MethodGet, "/Users/"+c.userID+"/Items/"+itemID, nil, nil)
	if err != nil {
		return model.LibraryItem{}, err
	}
	defer resp.Body.Close()
	var ri rawItem
	if err := json.NewDecoder(resp.Body).Decode(&ri); err != nil {
		return model.LibraryItem{}, cablecasterr.Wrap(cablecasterr.KindUpstreamUnreachable, "decode item", err)
	}
	return ri.toModel(), nil
}

func (c *HTTPClient) GetCollections(ctx context.Context) ([]model.LibraryItem, error) {
	return c.fetchTypedList(ctx, "BoxSet")
}

func (c *HTTPClient) GetPlaylists(ctx context.Context) ([]model.LibraryItem, error) {
	return c.fetchTypedList(ctx, "Playlist")
}

func (c *HTTPClient) fetchTypedList(ctx context.Context, itemType string) ([]model.LibraryItem, error) {
	q := url.Values{
		"IncludeItemTypes": {itemType},
		"Recursive":        {"true"},
		"Fields":           {strings.Join(itemFields, ",")},
		"UserId":           {c.userID},
	}
	items, _, err := c.fetchItemsPage(ctx, q, 0, 0)
	return items, err
}

func (c *HTTPClient) GetPlaybackInfo(ctx context.Context, itemID string) (json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, "/Items/"+itemID+"/PlaybackInfo", url.Values{"UserId": {c.userID}}, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// GetHlsStreamUrl builds the Upstream master.m3u8 URL with the fixed
// transcode profile from spec.md §4.7: h264/aac/ts,
// break_on_non_key_frames=true, starting at startTicks if given.
func (c *HTTPClient) GetHlsStreamUrl(ctx context.Context, itemID string, startTicks int64) (HLSStreamInfo, error) {
	playSessionID := newPlaySessionID()
	q := url.Values{
		"VideoCodec":               {"h264"},
		"AudioCodec":               {"aac"},
		"SegmentContainer":         {"ts"},
		"BreakOnNonKeyFrames":      {"true"},
		"PlaySessionId":            {playSessionID},
		"DeviceId":                 {c.deviceID},
		"UserId":                   {c.userID},
	}
	if startTicks > 0 {
		q.Set("StartTimeTicks", strconv.FormatInt(startTicks, 10))
	}
	if err := c.TestConnection(ctx, ""); err != nil {
		return HLSStreamInfo{}, err
	}
	return HLSStreamInfo{
		URL:           fmt.Sprintf("%s/videos/%s/master.m3u8?%s", c.baseURL, itemID, q.Encode()),
		PlaySessionID: playSessionID,
		MediaSourceID: itemID,
	}, nil
}

func (c *HTTPClient) StopPlaybackSession(ctx context.Context, playSessionID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/Sessions/Playing", nil, map[string]string{"PlaySessionId": playSessionID})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (c *HTTPClient) DeleteTranscodingJob(ctx context.Context, playSessionID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/Videos/ActiveEncodings", url.Values{"PlaySessionId": {playSessionID}}, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (c *HTTPClient) ReportPlaybackStart(ctx context.Context, itemID, playSessionID string) error {
	resp, err := c.do(ctx, http.MethodPost, "/Sessions/Playing", nil, map[string]string{"ItemId": itemID, "PlaySessionId": playSessionID})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (c *HTTPClient) ReportPlaybackProgress(ctx context.Context, itemID, playSessionID string, positionTicks int64) error {
	resp, err := c.do(ctx, http.MethodPost, "/Sessions/Playing/Progress", nil, map[string]any{
		"ItemId": itemID, "PlaySessionId": playSessionID, "PositionTicks": positionTicks,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (c *HTTPClient) ReportPlaybackStopped(ctx context.Context, itemID, playSessionID string, positionTicks int64) error {
	resp, err := c.do(ctx, http.MethodPost, "/Sessions/Playing/Stopped", nil, map[string]any{
		"ItemId": itemID, "PlaySessionId": playSessionID, "PositionTicks": positionTicks,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

var _ Client = (*HTTPClient)(nil)
