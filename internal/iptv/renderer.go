package iptv

import (
	"context"
	"time"

	"github.com/cablecast/cablecast/internal/clock"
	"github.com/cablecast/cablecast/internal/model"
)

// ChannelLister is the subset of Store iptv needs beyond the per-channel
// window lookup.
type ChannelLister interface {
	ListChannels(ctx context.Context) ([]model.Channel, error)
}

// Renderer produces cached M3U/XMLTV documents over a Store.
type Renderer struct {
	channels  ChannelLister
	store     Store
	alignment clock.Alignment
	cache     *Cache
}

func NewRenderer(channels ChannelLister, store Store, alignment clock.Alignment) *Renderer {
	return &Renderer{channels: channels, store: store, alignment: alignment, cache: NewCache()}
}

// Playlist returns the M3U document, generating it fresh (the playlist
// itself carries no time-windowed content, so it is not cache-gated by
// (channel_count, hours, base_url) the way the EPG is).
func (r *Renderer) Playlist(ctx context.Context, baseURL string) ([]byte, error) {
	channels, err := r.channels.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	epgURL := baseURL + "/api/iptv/epg.xml"
	return GenerateM3U(channels, baseURL, epgURL), nil
}

// EPG returns the XMLTV document covering the next `hours` hours,
// reusing a cached rendering keyed by (channel_count, hours, base_url)
// for up to CacheTTL (spec.md §6).
func (r *Renderer) EPG(ctx context.Context, baseURL string, hours int, now time.Time) ([]byte, error) {
	channels, err := r.channels.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	if cached, ok := r.cache.Get(len(channels), hours, baseURL, now); ok {
		return cached, nil
	}

	programsByChannel := make(map[int][]model.ScheduleProgram, len(channels))
	for _, ch := range channels {
		progs, err := ProgramsInWindow(ctx, r.store, r.alignment, ch.Number, now, hours)
		if err != nil {
			return nil, err
		}
		programsByChannel[ch.Number] = progs
	}

	tv := GenerateXMLTV(channels, programsByChannel)
	data, err := MarshalXMLTV(tv)
	if err != nil {
		return nil, err
	}

	r.cache.Set(len(channels), hours, baseURL, data, now)
	return data, nil
}
