package upstream

import (
	"context"
	"encoding/json"

	"github.com/cablecast/cablecast/internal/model"
)

// FakeClient is an in-memory Client used by tests that need an Upstream
// double without a network dependency.
type FakeClient struct {
	Items          []model.LibraryItem
	Collections    []model.LibraryItem
	Playlists      []model.LibraryItem
	StoppedSessions []string
	DeletedJobs     []string
}

func (f *FakeClient) Authenticate(ctx context.Context, baseURL, user, pass string) (AuthResult, error) {
	return AuthResult{AccessToken: "fake-token", UserID: "fake-user"}, nil
}

func (f *FakeClient) TestConnection(ctx context.Context, baseURL string) error { return nil }

func (f *FakeClient) SyncLibrary(ctx context.Context, progress func(done, total int)) ([]model.LibraryItem, error) {
	if progress != nil {
		progress(len(f.Items), len(f.Items))
	}
	return f.Items, nil
}

func (f *FakeClient) GetItem(ctx context.Context, itemID string) (model.LibraryItem, error) {
	for _, it := range f.Items {
		if it.ID == itemID {
			return it, nil
		}
	}
	return model.LibraryItem{}, errNotFound
}

func (f *FakeClient) GetCollections(ctx context.Context) ([]model.LibraryItem, error) { return f.Collections, nil }
func (f *FakeClient) GetPlaylists(ctx context.Context) ([]model.LibraryItem, error)   { return f.Playlists, nil }

func (f *FakeClient) GetPlaybackInfo(ctx context.Context, itemID string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (f *FakeClient) GetHlsStreamUrl(ctx context.Context, itemID string, startTicks int64) (HLSStreamInfo, error) {
	return HLSStreamInfo{URL: "http://upstream.example/videos/" + itemID + "/master.m3u8", PlaySessionID: "sess-" + itemID, MediaSourceID: itemID}, nil
}

func (f *FakeClient) StopPlaybackSession(ctx context.Context, playSessionID string) error {
	f.StoppedSessions = append(f.StoppedSessions, playSessionID)
	return nil
}

func (f *FakeClient) DeleteTranscodingJob(ctx context.Context, playSessionID string) error {
	f.DeletedJobs = append(f.DeletedJobs, playSessionID)
	return nil
}

func (f *FakeClient) ReportPlaybackStart(ctx context.Context, itemID, playSessionID string) error { return nil }
func (f *FakeClient) ReportPlaybackProgress(ctx context.Context, itemID, playSessionID string, positionTicks int64) error {
	return nil
}
func (f *FakeClient) ReportPlaybackStopped(ctx context.Context, itemID, playSessionID string, positionTicks int64) error {
	return nil
}

var errNotFound = &fakeErr{"item not found"}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }

var _ Client = (*FakeClient)(nil)
