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

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/squadfire/internal/config"
	"github.com/DoyleJ11/squadfire/internal/httpapi"
	"github.com/DoyleJ11/squadfire/internal/match"
	"github.com/DoyleJ11/squadfire/internal/server"
	"github.com/DoyleJ11/squadfire/internal/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := newLogger(cfg.Production())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("bye")
}

func newLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func serverConfig(cfg config.ServerConfig) server.Config {
	sc := server.DefaultConfig()
	sc.ListenAddr = cfg.ListenAddr
	sc.MaxPlayers = cfg.MaxPlayers
	sc.WSOrigins = cfg.WSOrigins
	sc.Timing.ReadyWindow = cfg.ReadyWindow
	sc.Timing.Banner = cfg.RoundBanner
	sc.Timing.WinsToEndGame = cfg.WinsToEndGame
	sc.Combat.Damage = cfg.MissileDamage
	sc.Combat.SpawnProtection = cfg.SpawnProtection
	sc.Objects.ObjectDamage = cfg.MissileDamage
	return sc
}

func run(ctx context.Context, cfg config.ServerConfig, log *zap.Logger) (err error) {
	var (
		opts    []match.Option
		history httpapi.History
	)
	if cfg.DatabaseURL != "" {
		st, openErr := store.Open(cfg.DatabaseURL, log.Named("store"))
		if openErr != nil {
			return openErr
		}
		defer func() { err = multierr.Append(err, st.Close()) }()
		opts = append(opts, match.WithRecorder(st))
		history = st
	} else {
		log.Info("match history disabled")
	}

	srv := server.New(serverConfig(cfg), log, opts...)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(srv, history, log.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx) })
	g.Go(func() error {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})
	return g.Wait()
}
