package client

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/squadfire/internal/characters"
	"github.com/DoyleJ11/squadfire/internal/engine"
	"github.com/DoyleJ11/squadfire/internal/protocol"
)

// Dispatch applies one server message. Malformed payloads are logged and
// dropped; nothing here blocks.
func (g *Game) Dispatch(msg protocol.Message) {
	switch msg.Command {
	case protocol.CmdWelcome:
		g.Welcome = msg.Payload
		g.appendChat(msg.Payload)
	case protocol.CmdReject:
		g.Rejected = msg.Payload
		g.log.Warn("server rejected us", zap.String("reason", msg.Payload))
	case protocol.CmdChat:
		g.appendChat(msg.Payload)
	case protocol.CmdTeamRoster:
		g.onRoster(msg.Payload)
	case protocol.CmdGameStart:
		g.Phase = PhaseMatch
		g.lobbyAt = time.Time{}
		g.log.Info("game start")
	case protocol.CmdStartDenied:
		g.appendChat("[start] " + msg.Payload)
		g.log.Warn("start denied", zap.String("reason", msg.Payload))
	case protocol.CmdCharacterDenied:
		g.appendChat("[character] " + msg.Payload)
		g.log.Warn("character denied", zap.String("reason", msg.Payload))
	case protocol.CmdCharacterSelect:
		g.onCharacterSelect(msg.Payload)
	case protocol.CmdPlayer:
		g.onPlayer(msg.Payload)
	case protocol.CmdRemove:
		name := strings.TrimSpace(msg.Payload)
		g.Store.RemovePlayer(name)
		g.Effects.Remove(name)
	case protocol.CmdKill:
		g.appendChat(">>> you eliminated " + msg.Payload)
	case protocol.CmdStats:
		g.onStats(msg.Payload)
	case protocol.CmdSkill:
		g.onSkill(msg.Payload)
	case protocol.CmdShoot:
		g.onShoot(msg.Payload)
	case protocol.CmdMissile:
		g.onMissile(msg.Payload)
	case protocol.CmdHit:
		g.onHit(msg.Payload)
	case protocol.CmdObj:
		g.onObject(msg.Payload)
	case protocol.CmdObjDestroy:
		g.onObjectDestroy(msg.Payload)
	case protocol.CmdBuff:
		g.onBuff(msg.Payload)
	case protocol.CmdUnbuff:
		g.Self.MoveMul, g.Self.AttackMul = 1, 1
	case protocol.CmdStrike:
		g.onStrike(msg.Payload)
	case protocol.CmdStrikeImpact:
		if id, ok := protocol.Split(msg.Payload).Int(0); ok {
			g.Store.RemoveStrike(id)
		}
	case protocol.CmdTurretShoot:
		g.onTurretShoot(msg.Payload)
	case protocol.CmdRoundStart:
		g.onRoundStart(msg.Payload)
	case protocol.CmdRoundEnd:
		g.onRoundEnd(msg.Payload)
	case protocol.CmdGameEnd:
		g.onGameEnd(msg.Payload)
	default:
		g.log.Warn("unknown command", zap.String("command", msg.Command))
	}
}

func (g *Game) malformed(cmd, payload string) {
	g.log.Warn("malformed message", zap.String("command", cmd), zap.String("payload", payload))
}

func (g *Game) onRoster(payload string) {
	g.Roster = protocol.ParseRoster(payload)
	for _, e := range g.Roster {
		if e.Name != g.Self.Name {
			continue
		}
		if team, err := engine.ParseTeam(e.Team); err == nil {
			g.Self.Team = team
		}
		g.Self.Ready = e.Ready
	}
}

func (g *Game) onCharacterSelect(payload string) {
	f := protocol.Split(payload)
	name, _ := f.String(0)
	id, _ := f.String(1)
	if name == "" || id == "" {
		g.malformed(protocol.CmdCharacterSelect, payload)
		return
	}
	c := characters.Lookup(id)
	if name != g.Self.Name {
		g.Store.SelectCharacter(name, c.ID)
		g.appendChat(fmt.Sprintf("[character] %s -> %s", name, c.Name))
		return
	}
	g.Self.CharacterID = c.ID
	g.Self.MaxHP, g.Self.HP = c.Health, c.Health
	if g.Phase == PhaseMatch {
		_ = g.Round.ChangeCharacter(g.Self.Name, g.now())
	}
	g.saved(c.ID)
	g.appendChat("[character] now playing " + c.Name)
}

func (g *Game) onPlayer(payload string) {
	p, ok := protocol.ParsePlayer(payload)
	if !ok {
		g.malformed(protocol.CmdPlayer, payload)
		return
	}
	if p.Name == g.Self.Name {
		return
	}
	if g.Store.ApplyPlayer(p) {
		g.log.Debug("new remote player", zap.String("player", p.Name), zap.Int("team", p.Team))
	}
}

func (g *Game) onStats(payload string) {
	st, ok := protocol.ParseStats(payload)
	if !ok {
		g.malformed(protocol.CmdStats, payload)
		return
	}
	if st.Name != g.Self.Name {
		g.Store.ApplyStats(st)
		return
	}
	g.Self.Kills, g.Self.Deaths, g.Self.HP = st.Kills, st.Deaths, st.HP
	g.Self.MaxHP = characters.Lookup(g.Self.CharacterID).Health
	if g.Self.HP <= 0 {
		g.respawn()
	}
}

func (g *Game) onSkill(payload string) {
	sk, ok := protocol.ParseSkill(payload)
	if !ok {
		g.malformed(protocol.CmdSkill, payload)
		return
	}
	if sk.User == g.Self.Name {
		return
	}
	g.Effects.Add(sk.User, sk.AbilityID, characters.AbilityType(strings.ToUpper(sk.Type)), sk.Duration, MinRemoteEffectDuration)
	if p, ok := g.Store.Player(sk.User); ok && p.Team == g.Self.Team {
		g.Effects.ShareTeam(sk.AbilityID, sk.Duration)
	}
}

// remoteMissileRange is the owner's basic attack range, or unlimited for
// players we have not seen yet.
func (g *Game) remoteMissileRange(owner string) (engine.Team, float64, bool) {
	p, ok := g.Store.Player(owner)
	if !ok {
		return 0, 0, false
	}
	return p.Team, characters.Lookup(p.CharacterID).Basic().Range, true
}

func (g *Game) onShoot(payload string) {
	shot, ok := protocol.ParseShot(payload)
	if !ok {
		g.malformed(protocol.CmdShoot, payload)
		return
	}
	if shot.Owner == g.Self.Name {
		return
	}
	team, rng, known := g.remoteMissileRange(shot.Owner)
	if !known {
		team = g.Self.Team.Opponent()
	}
	g.Store.AddMissile(float64(shot.X), float64(shot.Y), float64(shot.DX), float64(shot.DY), team, shot.Owner, rng)
}

func (g *Game) onMissile(payload string) {
	m, ok := protocol.ParseMissile(payload)
	if !ok {
		g.malformed(protocol.CmdMissile, payload)
		return
	}
	team, err := engine.ParseTeam(m.Team)
	if err != nil {
		g.malformed(protocol.CmdMissile, payload)
		return
	}
	_, rng, _ := g.remoteMissileRange(m.Owner)
	g.Store.AddMissile(float64(m.X), float64(m.Y), float64(m.DX), float64(m.DY), team, m.Owner, rng)
}

func (g *Game) onHit(payload string) {
	f := protocol.Split(payload)
	dmg, ok := f.Int(2)
	if !ok {
		g.malformed(protocol.CmdHit, payload)
		return
	}
	g.appendChat(fmt.Sprintf("hit! %d damage at (%d, %d)", dmg, f.IntOr(0, 0), f.IntOr(1, 0)))
}

func (g *Game) onObject(payload string) {
	o, ok := protocol.ParseObject(payload)
	if !ok {
		g.malformed(protocol.CmdObj, payload)
		return
	}
	g.Store.PutObject(o)
}

func (g *Game) onObjectDestroy(payload string) {
	id, ok := protocol.Split(payload).Int(0)
	if !ok {
		g.malformed(protocol.CmdObjDestroy, payload)
		return
	}
	if o, ok := g.Store.RemoveObject(id); ok {
		g.appendChat("[object] " + o.Type + " destroyed")
	}
}

func (g *Game) onBuff(payload string) {
	b, ok := protocol.ParseBuff(payload)
	if !ok {
		g.malformed(protocol.CmdBuff, payload)
		return
	}
	g.Self.MoveMul, g.Self.AttackMul = b.Move, b.Attack
	if b.Move > 1 || b.Attack > 1 {
		g.appendChat("[buff] " + b.Type + " active")
	}
}

func (g *Game) onStrike(payload string) {
	st, ok := protocol.ParseStrike(payload)
	if !ok {
		g.malformed(protocol.CmdStrike, payload)
		return
	}
	g.Store.AddStrike(st, g.now())
	g.appendChat(fmt.Sprintf("[warning] air strike incoming at (%d, %d)", st.X, st.Y))
}

// onTurretShoot spawns the turret's missile aimed at the target position.
func (g *Game) onTurretShoot(payload string) {
	ts, ok := protocol.ParseTurretShoot(payload)
	if !ok {
		g.malformed(protocol.CmdTurretShoot, payload)
		return
	}
	o, ok := g.Store.Object(ts.ID)
	if !ok {
		return
	}
	dx, dy := float64(ts.X)-o.X, float64(ts.Y)-o.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return
	}
	vx := math.Trunc(dx / dist * TurretMissileSpeed)
	vy := math.Trunc(dy / dist * TurretMissileSpeed)
	g.Store.AddMissile(o.X, o.Y, vx, vy, o.Team, o.Owner, 0)
}

func (g *Game) onRoundStart(payload string) {
	rs, ok := protocol.ParseRoundStart(payload)
	if !ok {
		g.malformed(protocol.CmdRoundStart, payload)
		return
	}
	now := g.now()
	g.Phase = PhaseMatch
	g.lobbyAt = time.Time{}
	g.Store.ClearRound()
	g.Round.Start(rs.Round, rs.MapID, now)
	if rs.MapID != "" && rs.MapID != g.MapID {
		g.MapID = rs.MapID
		g.loadMap(rs.MapID)
	}
	for _, p := range rs.Players {
		if p.Name == g.Self.Name {
			g.Self.CharacterID = characters.Lookup(p.CharacterID).ID
			g.Self.HP, g.Self.MaxHP = p.HP, p.MaxHP
			continue
		}
		if !g.Store.InitRound(p) {
			g.log.Debug("round start for unknown player", zap.String("player", p.Name))
		}
	}
	g.appendChat(fmt.Sprintf("[round %d] starts in %s", rs.Round, g.cfg.Timing.ReadyWindow))
}

func (g *Game) onRoundEnd(payload string) {
	re, ok := protocol.ParseRoundEnd(payload)
	if !ok {
		g.malformed(protocol.CmdRoundEnd, payload)
		return
	}
	winner, err := engine.TeamFromName(re.Winner)
	if err != nil {
		g.malformed(protocol.CmdRoundEnd, payload)
		return
	}
	g.Round.Mirror(winner, re.RedWins, re.BlueWins, g.now())
	g.appendChat(fmt.Sprintf("[round] %s wins (%d : %d)", winner, re.RedWins, re.BlueWins))
}

func (g *Game) onGameEnd(payload string) {
	g.appendChat("[game over] " + payload + " team wins the match")
	g.lobbyAt = g.now().Add(g.cfg.LobbyReturnDelay)
	g.log.Info("game end", zap.String("winner", payload))
}
