// Command client is a headless player: it joins, keeps the reconciled
// world up to date, respawns when killed and logs what it sees.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/squadfire/internal/client"
	"github.com/DoyleJ11/squadfire/internal/config"
	"github.com/DoyleJ11/squadfire/internal/protocol"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.PlayerName == "" {
		fmt.Fprintln(os.Stderr, "SQUADFIRE_PLAYER_NAME is required")
		os.Exit(2)
	}

	var log *zap.Logger
	if cfg.Env == "production" {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("player", cfg.PlayerName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("client stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ClientConfig, log *zap.Logger) error {
	character := cfg.Character
	if character == "" {
		s, err := config.LoadSettings(cfg.SettingsPath)
		if err != nil {
			log.Warn("ignoring settings", zap.Error(err))
		}
		character = s.Character
	}

	conn, err := client.Dial(ctx, cfg.ServerAddr, log.Named("conn"))
	if err != nil {
		return err
	}
	if err := conn.Join(cfg.PlayerName, character); err != nil {
		_ = conn.Close()
		return fmt.Errorf("join: %w", err)
	}

	gcfg := client.DefaultConfig(cfg.PlayerName)
	gcfg.Character = character
	gcfg.TickInterval = cfg.TickInterval
	gcfg.LobbyReturnDelay = cfg.LobbyReturnDelay
	gcfg.Timing.ReadyWindow = cfg.ReadyWindow
	gcfg.StatusInterval = 5 * time.Second

	game := client.New(gcfg, conn, log.Named("game"),
		client.WithLoader(client.FileLoader{Dir: cfg.MapsDir}),
		client.WithCharacterSaved(func(id string) {
			if err := config.SaveSettings(cfg.SettingsPath, config.Settings{Character: id}); err != nil {
				log.Warn("save settings", zap.Error(err))
			}
		}),
	)

	in := make(chan protocol.Message, 256)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return conn.Receive(gctx, in) })
	g.Go(func() error {
		err := game.Run(gctx, in)
		if errors.Is(err, client.ErrDisconnected) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		return conn.Quit()
	})

	err = g.Wait()
	if errors.Is(err, client.ErrDisconnected) {
		log.Info("server closed the connection")
		return nil
	}
	return err
}
