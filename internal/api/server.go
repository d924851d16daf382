// Package api wires the HTTP surface from spec.md §6: server/channel/
// schedule CRUD, the tune/stream endpoints, settings, IPTV serializers,
// and the websocket push channel.
package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/cablecast/cablecast/internal/broadcaster"
	"github.com/cablecast/cablecast/internal/clock"
	"github.com/cablecast/cablecast/internal/cryptoutil"
	"github.com/cablecast/cablecast/internal/iptv"
	"github.com/cablecast/cablecast/internal/library"
	"github.com/cablecast/cablecast/internal/model"
	"github.com/cablecast/cablecast/internal/proxy"
	"github.com/cablecast/cablecast/internal/sessions"
	"github.com/cablecast/cablecast/internal/tuner"
	"github.com/cablecast/cablecast/internal/upstream"
)

// Store is the subset of internal/store.Store the API layer needs.
type Store interface {
	CreateServer(ctx context.Context, srv model.Server) (model.Server, error)
	GetServer(ctx context.Context, id string) (model.Server, error)
	GetActiveServer(ctx context.Context) (model.Server, error)
	ListServers(ctx context.Context) ([]model.Server, error)
	UpdateServer(ctx context.Context, srv model.Server) error
	ActivateServer(ctx context.Context, id string) error
	DeleteServer(ctx context.Context, id string) error

	CreateChannel(ctx context.Context, ch model.Channel) (model.Channel, error)
	GetChannel(ctx context.Context, number int) (model.Channel, error)
	ListChannels(ctx context.Context) ([]model.Channel, error)
	ExistingChannelNames(ctx context.Context) (map[string]struct{}, error)
	UpdateChannel(ctx context.Context, ch model.Channel) error
	DeleteChannel(ctx context.Context, number int) error
	DeleteChannelsByKind(ctx context.Context, kinds ...model.ChannelKind) error

	GetScheduleBlock(ctx context.Context, channelID int, blockStart time.Time) (model.ScheduleBlock, error)
	ListChannelBlocks(ctx context.Context, channelID int) ([]model.ScheduleBlock, error)
	ItemsScheduledSince(ctx context.Context, channelID int, since time.Time) (map[string]struct{}, error)
	AllBlocksSince(ctx context.Context, since time.Time) ([]model.ScheduleBlock, error)
	UpsertScheduleBlock(ctx context.Context, b model.ScheduleBlock) error
	CleanOldScheduleBlocks(ctx context.Context, cutoff time.Time) (int64, error)

	SetSetting(ctx context.Context, key string, value any) error
	GetSetting(ctx context.Context, key string, out any) error
	ListSettings(ctx context.Context) (map[string]json.RawMessage, error)

	FactoryReset(ctx context.Context) error
}

// Server bundles every dependency the HTTP handlers need.
type Server struct {
	store     Store
	idx       *library.Index
	client    upstream.Client
	cipher    *cryptoutil.Cipher
	alignment clock.Alignment

	resolver *tuner.Resolver
	streams  *proxy.Server
	sessions *sessions.Registry
	hub      *broadcaster.Hub
	renderer *iptv.Renderer

	deviceID string
	apiKeyFn func() string
	logger   zerolog.Logger
}

// Deps bundles the constructor inputs.
type Deps struct {
	Store     Store
	Index     *library.Index
	Client    upstream.Client
	Cipher    *cryptoutil.Cipher
	Alignment clock.Alignment
	Resolver  *tuner.Resolver
	Streams   *proxy.Server
	Sessions  *sessions.Registry
	Hub       *broadcaster.Hub
	Renderer  *iptv.Renderer
	DeviceID  string
	APIKeyFn  func() string
	Logger    zerolog.Logger
}

func New(d Deps) *Server {
	return &Server{
		store:     d.Store,
		idx:       d.Index,
		client:    d.Client,
		cipher:    d.Cipher,
		alignment: d.Alignment,
		resolver:  d.Resolver,
		streams:   d.Streams,
		sessions:  d.Sessions,
		hub:       d.Hub,
		renderer:  d.Renderer,
		deviceID:  d.DeviceID,
		apiKeyFn:  d.APIKeyFn,
		logger:    d.Logger,
	}
}

func (s *Server) apiKey() string {
	if s.apiKeyFn == nil {
		return ""
	}
	return s.apiKeyFn()
}
