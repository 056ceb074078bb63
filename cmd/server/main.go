package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"asteroids-server/internal/config"
	"asteroids-server/internal/logging"
	"asteroids-server/internal/metrics"
	"asteroids-server/internal/room"
	"asteroids-server/internal/server"
	"asteroids-server/internal/store"
)

func main() {
	fs := config.Flags()
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		boot := logging.New(os.Stderr, "info", true)
		boot.Fatal().Err(err).Msg("load config")
	}

	log := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Pretty)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		board  server.Leaderboard
		scores room.ScoreRecorder
	)
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		rec := store.NewRecorder(st, cfg.Store.FlushInterval, cfg.Store.BatchSize, log)
		defer rec.Stop()
		board, scores = st, rec
		log.Info().Str("path", cfg.Store.Path).Msg("score store enabled")
	}

	opts := room.OptionsFromConfig(cfg)
	opts.Log = log
	opts.Scores = scores

	// rooms is assigned below; the gauge callback only runs on collection
	var rooms *room.Registry
	m, err := metrics.New(func() int { return rooms.Len() })
	if err != nil {
		return err
	}
	defer m.Close()
	opts.Metrics = m
	rooms = room.NewRegistry(opts, cfg.Room.MaxRooms)
	defer rooms.Shutdown()

	hub := server.NewHub(rooms, cfg.Server, log, m)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.SetupRoutes(hub, board, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Int("tickRate", cfg.Room.TickRate).
			Int("snapshotRate", cfg.Room.SnapshotRate).
			Int("maxRooms", cfg.Room.MaxRooms).
			Msg("server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
