package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/squadfire/internal/characters"
	"github.com/DoyleJ11/squadfire/internal/engine"
	"github.com/DoyleJ11/squadfire/internal/protocol"
	"github.com/DoyleJ11/squadfire/internal/session"
)

var errQuit = errors.New("client quit")

// client is the state of one connection goroutine.
type client struct {
	srv  *Server
	t    Transport
	peer *peer
	s    *session.Session
	log  *zap.Logger
}

// Handle runs one connection until it closes, quits or ctx ends. Both the
// TCP listener and the websocket endpoint feed connections through here.
func (srv *Server) Handle(ctx context.Context, t Transport) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = t.Close()
	}()

	log := srv.log.With(zap.String("remote", t.RemoteAddr()))
	if srv.Registry.Full() {
		reject(t, log, session.ErrServerFull)
		return
	}

	c := &client{srv: srv, t: t, peer: newPeer(t, srv.cfg.OutboxSize), log: log}
	defer c.cleanup()

	for {
		raw, err := t.ReadFrame()
		if err != nil {
			if c.s != nil {
				c.log.Info("connection lost", zap.Error(err))
			}
			return
		}
		msg, err := protocol.Decode(raw)
		if err != nil {
			c.log.Debug("dropping frame", zap.String("raw", raw), zap.Error(err))
			continue
		}
		if err := c.dispatch(ctx, msg); err != nil {
			if !errors.Is(err, errQuit) {
				c.log.Info("closing connection", zap.Error(err))
			}
			return
		}
	}
}

func reject(t Transport, log *zap.Logger, reason error) {
	log.Info("rejecting connection", zap.Error(reason))
	_ = t.WriteFrame(protocol.Encode(protocol.CmdReject, reason.Error()))
	_ = t.Close()
}

func (c *client) cleanup() {
	if c.s == nil {
		_ = c.t.Close()
		return
	}
	name := c.s.Name
	c.srv.Registry.Remove(name)
	c.srv.Lobby.Broadcast()
	c.srv.Match.PlayerLeft(name)
	_ = c.peer.Close()
	c.log.Info("player left", zap.String("player", name))
}

func (c *client) dispatch(ctx context.Context, msg protocol.Message) error {
	if c.s == nil {
		switch msg.Command {
		case protocol.CmdJoin:
			return c.join(msg.Payload)
		case protocol.CmdQuit:
			return errQuit
		default:
			c.log.Debug("ignoring command before JOIN", zap.String("cmd", msg.Command))
			return nil
		}
	}

	name := c.s.Name
	f := protocol.Split(msg.Payload)
	switch msg.Command {
	case protocol.CmdTeam:
		n, ok := f.Int(0)
		team, err := engine.ParseTeam(n)
		if !ok || err != nil {
			c.log.Warn("bad team", zap.String("payload", msg.Payload))
			return nil
		}
		return c.quiet(c.srv.Lobby.SetTeam(name, team))

	case protocol.CmdCharacterSelect:
		c.selectCharacter(ctx, msg.Payload)

	case protocol.CmdReady:
		return c.quiet(c.srv.Lobby.SetReady(name, true))

	case protocol.CmdUnready:
		return c.quiet(c.srv.Lobby.SetReady(name, false))

	case protocol.CmdStart:
		if err := c.srv.Lobby.CheckStart(name); err != nil {
			return nil
		}
		if err := c.srv.Match.Start(ctx, name); err != nil {
			c.send(protocol.Encode(protocol.CmdStartDenied, err.Error()))
		}

	case protocol.CmdPos:
		x, okX := f.Float(0)
		y, okY := f.Float(1)
		if !okX || !okY {
			c.log.Warn("bad position", zap.String("payload", msg.Payload))
			return nil
		}
		_, _, dir := c.s.Position()
		c.s.SetPosition(x, y, f.IntOr(2, dir))
		c.broadcast(c.s.Player().Encode(), name)
		c.srv.Field.PlayerMoved(name)

	case protocol.CmdShoot:
		shot, ok := protocol.ParseShotRequest(name, msg.Payload)
		if !ok {
			c.log.Warn("bad shot", zap.String("payload", msg.Payload))
			return nil
		}
		if c.s.Alive() {
			c.broadcast(shot.Encode(), name)
		}

	case protocol.CmdHit:
		_, err := c.srv.Combat.Hit(name, strings.TrimSpace(msg.Payload))
		c.ignored("hit", err)

	case protocol.CmdHitMe:
		_, err := c.srv.Combat.HitMe(name, strings.TrimSpace(msg.Payload))
		c.ignored("hitme", err)

	case protocol.CmdHitObj:
		id, ok := f.Int(0)
		if !ok {
			return nil
		}
		c.ignored("hit_obj", c.srv.Field.HitObject(name, id))

	case protocol.CmdDeath:
		c.ignored("death", c.srv.Combat.Death(name))

	case protocol.CmdRespawn:
		x, okX := f.Float(0)
		y, okY := f.Float(1)
		if !okX || !okY {
			c.log.Warn("bad respawn", zap.String("payload", msg.Payload))
			return nil
		}
		c.ignored("respawn", c.srv.Combat.Respawn(name, x, y))

	case protocol.CmdChat:
		c.broadcast(protocol.Encode(protocol.CmdChat, name+": "+msg.Payload))

	case protocol.CmdSkill:
		sk, ok := protocol.ParseSkillRequest(name, msg.Payload)
		if !ok {
			c.log.Warn("bad skill", zap.String("payload", msg.Payload))
			return nil
		}
		c.srv.Field.UseSkill(sk)

	case protocol.CmdQuit:
		return errQuit

	case protocol.CmdJoin:
		c.log.Debug("duplicate JOIN ignored")

	default:
		c.log.Warn("unknown command", zap.String("cmd", msg.Command))
	}
	return nil
}

// join admits the player and runs the welcome sequence: WELCOME to the
// joiner, a join notice to everyone else, the existing players' state to
// the joiner, the joiner's stats to everyone, then the roster.
func (c *client) join(payload string) error {
	rawName, charID, hasChar := strings.Cut(payload, ":")
	name := protocol.Clean(rawName)

	s, err := c.srv.Registry.Join(name, c.peer, charID)
	if err != nil {
		reject(c.t, c.log, err)
		return fmt.Errorf("join %q: %w", name, err)
	}
	if hasChar && characters.Known(charID) {
		s.SelectCharacter(charID)
	}
	c.s = s
	c.log = c.log.With(zap.String("player", name))
	c.peer.start()
	c.log.Info("player joined", zap.String("character", s.CharacterID()), zap.Int("players", c.srv.Registry.Len()))

	c.send(protocol.Encode(protocol.CmdWelcome, "Welcome, "+name+"!"))
	c.broadcast(protocol.Encode(protocol.CmdChat, name+" joined"), name)
	for _, other := range c.srv.Registry.Sessions() {
		if other == s {
			continue
		}
		c.send(other.Stats().Encode())
		if other.HasSelected() {
			c.send(protocol.EncodeFields(protocol.CmdCharacterSelect, other.Name, other.CharacterID()))
		}
		c.send(other.Player().Encode())
	}
	c.broadcast(s.Stats().Encode())
	c.srv.Lobby.Broadcast()
	return nil
}

func (c *client) selectCharacter(ctx context.Context, payload string) {
	id := characters.Normalize(payload)
	if !characters.Known(id) {
		c.send(protocol.Encode(protocol.CmdCharacterDenied, "unknown character "+protocol.Clean(payload)))
		return
	}
	if err := c.srv.Match.ChangeCharacter(ctx, c.s.Name); err != nil {
		c.log.Info("character change denied", zap.String("character", id), zap.Error(err))
		c.send(protocol.Encode(protocol.CmdCharacterDenied, err.Error()))
		return
	}
	ch := c.s.SelectCharacter(id)
	c.broadcast(protocol.EncodeFields(protocol.CmdCharacterSelect, c.s.Name, ch.ID))
	c.broadcast(c.s.Stats().Encode())
	c.srv.Lobby.Broadcast()
}

func (c *client) send(msg string) {
	if err := c.peer.Send(msg); err != nil {
		c.log.Debug("send failed", zap.Error(err))
	}
}

func (c *client) broadcast(msg string, exclude ...string) {
	if err := c.srv.Registry.Broadcast(msg, exclude...); err != nil {
		c.log.Debug("broadcast incomplete", zap.Error(err))
	}
}

func (c *client) ignored(what string, err error) {
	if err != nil {
		c.log.Debug(what+" ignored", zap.Error(err))
	}
}

// quiet logs lobby errors without ending the connection.
func (c *client) quiet(err error) error {
	c.ignored("lobby update", err)
	return nil
}
