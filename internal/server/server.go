package server

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/squadfire/internal/combat"
	"github.com/DoyleJ11/squadfire/internal/engine"
	"github.com/DoyleJ11/squadfire/internal/lobby"
	"github.com/DoyleJ11/squadfire/internal/match"
	"github.com/DoyleJ11/squadfire/internal/objects"
	"github.com/DoyleJ11/squadfire/internal/session"
)

type Config struct {
	ListenAddr   string
	MaxPlayers   int
	OutboxSize   int
	WriteTimeout time.Duration
	// WSOrigins are extra Origin host patterns accepted by the websocket
	// transport. Same-host origins are always accepted.
	WSOrigins []string

	Timing  engine.Timing
	Combat  combat.Config
	Objects objects.Config
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:   ":7777",
		MaxPlayers:   session.DefaultMaxPlayers,
		OutboxSize:   256,
		WriteTimeout: 5 * time.Second,
		Timing:       engine.DefaultTiming(),
		Combat:       combat.DefaultConfig(),
		Objects:      objects.DefaultConfig(),
	}
}

// Server wires the game components together and owns the accept loop.
type Server struct {
	cfg Config
	log *zap.Logger

	Registry *session.Registry
	Lobby    *lobby.Lobby
	Match    *match.Match
	Combat   *combat.Authority
	Field    *objects.Field
}

func New(cfg Config, log *zap.Logger, opts ...match.Option) *Server {
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = 256
	}
	reg := session.NewRegistry(cfg.MaxPlayers, log.Named("registry"))
	lb := lobby.New(reg, log.Named("lobby"))
	m := match.New(reg, lb, cfg.Timing, log.Named("match"), opts...)
	auth := combat.NewAuthority(reg, cfg.Combat, log.Named("combat"), combat.WithObserver(m))
	field := objects.NewField(reg, auth, cfg.Objects, log.Named("objects"))
	m.OnRoundStart(field.Reset)

	return &Server{
		cfg:      cfg,
		log:      log,
		Registry: reg,
		Lobby:    lb,
		Match:    m,
		Combat:   auth,
		Field:    field,
	}
}

func (s *Server) Config() Config { return s.cfg }

// ListenAndServe listens on cfg.ListenAddr and serves until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the match loop, the object field and the accept loop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Match.Run(ctx) })
	g.Go(func() error { return s.Field.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	g.Go(func() error { return s.accept(ctx, ln) })

	err := g.Wait()
	if cerr := s.Registry.CloseAll(); cerr != nil {
		s.log.Debug("closing sessions", zap.Error(cerr))
	}
	return err
}

func (s *Server) accept(ctx context.Context, ln net.Listener) error {
	s.log.Info("listening", zap.String("addr", ln.Addr().String()), zap.Int("max_players", s.Registry.Max()))
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("accept", zap.Error(err))
			continue
		}
		go s.Handle(ctx, NewTCPTransport(c, s.cfg.WriteTimeout))
	}
}
