package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Meet/internal/adapters/auth"
	router "github.com/dkeye/Meet/internal/adapters/http"
	wssignal "github.com/dkeye/Meet/internal/adapters/signal"
	"github.com/dkeye/Meet/internal/adapters/store"
	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	db, err := store.Open(cfg.BadgerPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open meeting store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("close meeting store")
		}
	}()

	reg := app.NewRegistry()
	auditor := app.NewAuditor(store.NewMeetingStore(db), app.AuditConfig{
		Workers:   cfg.AuditWorkers,
		QueueSize: cfg.AuditQueueSize,
		Timeout:   cfg.AuditTimeout,
	})
	rooms := app.NewRoomManager(reg, auditor)
	auditor.OnMeetingKnown(rooms.SetMeetingID)

	var identity core.Identity
	if cfg.JWTSecret != "" {
		identity = auth.NewJWTIdentity(cfg.JWTSecret, cfg.JWTIssuer)
	} else {
		log.Warn().Msg("jwt_secret not set, every connection is a guest")
	}

	o := &orch.Orchestrator{
		Registry:          reg,
		Rooms:             rooms,
		Waiting:           app.NewWaitingPool(),
		Policy:            app.SimplePolicy{},
		Identity:          identity,
		ICEServers:        cfg.WebRTCICEServers(),
		ValidateSignaling: cfg.ValidateSignaling,
	}
	ctrl := wssignal.NewSignalWSController(o, wssignal.NewRateLimiter(cfg.JoinRateLimit, cfg.JoinRateInterval), wssignal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	})

	r := router.SetupRouter(ctx, cfg, o, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The auditor outlives the server so that the final leaves get written.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	auditDone := make(chan error, 1)
	go func() { auditDone <- auditor.Run(auditCtx) }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Meet server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return app.Janitor{Rooms: rooms, Horizon: cfg.RoomIdleHorizon, Interval: cfg.JanitorInterval}.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
	}

	waitForDisconnects(reg, 2*time.Second)
	flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.AuditTimeout)
	if err := auditor.Flush(flushCtx); err != nil {
		log.Warn().Err(err).Msg("audit flush incomplete")
	}
	flushCancel()
	stopAudit()
	<-auditDone
	log.Info().Msg("Server exited gracefully")
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// waitForDisconnects gives hijacked websocket connections a moment to run
// their leave path before the audit trail is flushed.
func waitForDisconnects(reg *app.Registry, limit time.Duration) {
	deadline := time.Now().Add(limit)
	for reg.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
}
