// Command server runs cablecast: the channel scheduler, HLS proxy, and
// HTTP API described in spec.md.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/cablecast/cablecast/internal/api"
	"github.com/cablecast/cablecast/internal/broadcaster"
	"github.com/cablecast/cablecast/internal/clock"
	"github.com/cablecast/cablecast/internal/config"
	"github.com/cablecast/cablecast/internal/cryptoutil"
	"github.com/cablecast/cablecast/internal/iptv"
	"github.com/cablecast/cablecast/internal/library"
	"github.com/cablecast/cablecast/internal/logging"
	"github.com/cablecast/cablecast/internal/proxy"
	"github.com/cablecast/cablecast/internal/sessions"
	"github.com/cablecast/cablecast/internal/store"
	"github.com/cablecast/cablecast/internal/supervisor"
	"github.com/cablecast/cablecast/internal/tuner"
	"github.com/cablecast/cablecast/internal/upstream"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (YAML)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logging.Configure(logging.Config{Level: "info", Service: "cablecast", Version: version})
	logger := logging.Component("main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("data_dir", cfg.DataDir).Msg("failed to create data directory")
	}

	st, err := store.Open(cfg.DataDir + "/cablecast.db")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	cipher, err := cryptoutil.NewFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize cryptoutil cipher")
	}

	idx := library.New()
	deviceID := uuid.NewString()
	alignment := clock.Alignment{DayStartHour: cfg.ScheduleDayStartHour, BlockHours: cfg.ScheduleBlockHours}

	// Start with an unbound client, rebuilt below if an active server is
	// already stored. Authenticate rebinds baseURL/accessToken/userID in
	// place, so the same *HTTPClient handed to every subsystem below follows
	// a server added or re-authenticated through /api/servers. Activating a
	// stored server only updates the store and does not rebind the client.
	client := upstream.NewHTTPClient("", "", "", deviceID)
	if srv, err := st.GetActiveServer(ctx); err == nil {
		if token, derr := cipher.Decrypt(srv.AccessTokenEnc); derr == nil {
			client = upstream.NewHTTPClient(srv.BaseURL, token, srv.UpstreamUserID, deviceID)
			if items, serr := client.SyncLibrary(ctx, nil); serr == nil {
				idx.Replace(items)
				logger.Info().Int("item_count", len(items)).Msg("library synced at boot")
			} else {
				logger.Warn().Err(serr).Msg("initial library sync failed, starting with an empty index")
			}
		} else {
			logger.Warn().Err(derr).Msg("failed to decrypt stored access token")
		}
	} else {
		logger.Info().Msg("no active server configured yet")
	}

	// maxConcurrentTranscodeStarts bounds how many new HLS transcodes can be
	// kicked off at once; spec.md doesn't pin a number, so this mirrors the
	// teacher's own conservative default for a single Upstream server.
	const maxConcurrentTranscodeStarts = 4

	registry := sessions.NewRegistry()
	streams := proxy.NewServer(client, registry, deviceID, maxConcurrentTranscodeStarts, logger)
	resolver := tuner.NewResolver(st, alignment)
	hub := broadcaster.NewHub(logger)
	renderer := iptv.NewRenderer(st, st, alignment)

	apiKey := cfg.APIKey
	apiServer := api.New(api.Deps{
		Store:     st,
		Index:     idx,
		Client:    client,
		Cipher:    cipher,
		Alignment: alignment,
		Resolver:  resolver,
		Streams:   streams,
		Sessions:  registry,
		Hub:       hub,
		Renderer:  renderer,
		DeviceID:  deviceID,
		APIKeyFn:  func() string { return apiKey },
		Logger:    logger,
	})

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: apiServer.Routes(),
	}

	holder := config.NewHolder(cfg, *configPath)

	sup := supervisor.New(supervisor.Deps{
		HTTPServer: httpSrv,
		Holder:     holder,
		Hub:        hub,
		Sessions:   registry,
		Client:     client,
		Store:      st,
		Index:      idx,
		Alignment:  alignment,
		Logger:     logger,
	})

	logger.Info().Int("port", cfg.Port).Msg("cablecast starting")
	if err := sup.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("cablecast exited with error")
	}
}
