package client

import (
	"errors"
	"math"

	"github.com/DoyleJ11/squadfire/internal/characters"
	"github.com/DoyleJ11/squadfire/internal/engine"
	"github.com/DoyleJ11/squadfire/internal/protocol"
)

var (
	ErrDead           = errors.New("local player is dead")
	ErrNoDirection    = errors.New("shot has no direction")
	ErrUnknownAbility = errors.New("ability not available to this character")
	ErrUnknownChar    = errors.New("unknown character")
)

// Move sets the local position and reports it.
func (g *Game) Move(x, y float64, direction int) {
	w, h := g.terrain.Bounds()
	g.Self.X = math.Max(0, math.Min(x, w))
	g.Self.Y = math.Max(0, math.Min(y, h))
	g.Self.Direction = direction
	g.sendPos()
}

func (g *Game) sendPos() {
	g.send(protocol.EncodeFields(protocol.CmdPos,
		protocol.Itoa(int(g.Self.X)), protocol.Itoa(int(g.Self.Y)), protocol.Itoa(g.Self.Direction)))
}

// Shoot fires the basic attack toward (tx,ty). The missile is simulated
// locally and announced so other clients can simulate it too.
func (g *Game) Shoot(tx, ty float64) (*Missile, error) {
	if !g.Self.Alive() {
		return nil, ErrDead
	}
	dx, dy := tx-g.Self.X, ty-g.Self.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return nil, ErrNoDirection
	}
	vx := math.Trunc(dx / dist * ShotSpeed)
	vy := math.Trunc(dy / dist * ShotSpeed)
	if vx == 0 && vy == 0 {
		return nil, ErrNoDirection
	}
	rng := characters.Lookup(g.Self.CharacterID).Basic().Range
	m := g.Store.AddMissile(g.Self.X, g.Self.Y, vx, vy, g.Self.Team, g.Self.Name, rng)
	g.send(protocol.EncodeFields(protocol.CmdShoot,
		protocol.Itoa(int(g.Self.X)), protocol.Itoa(int(g.Self.Y)), protocol.Itoa(int(vx)), protocol.Itoa(int(vy))))
	return m, nil
}

// UseSkill activates one of the local character's abilities, optionally
// targeted at (x,y).
func (g *Game) UseSkill(abilityID string, x, y float64, targeted bool) error {
	a, ok := characters.Lookup(g.Self.CharacterID).Ability(abilityID)
	if !ok || a.Type == characters.Basic {
		return ErrUnknownAbility
	}
	if !g.Self.Alive() {
		return ErrDead
	}
	g.Effects.Add(g.Self.Name, a.ID, a.Type, a.Duration, MinEffectDuration)
	g.Effects.ShareTeam(a.ID, a.Duration)
	fields := []string{a.ID, string(a.Type), protocol.Ftoa(a.Duration)}
	if targeted {
		fields = append(fields, protocol.Itoa(int(x)), protocol.Itoa(int(y)))
	}
	g.send(protocol.EncodeFields(protocol.CmdSkill, fields...))
	return nil
}

// SelectCharacter asks the server for a character change. During a match
// the local round mirror pre-checks the change window.
func (g *Game) SelectCharacter(id string) error {
	if !characters.Known(id) {
		return ErrUnknownChar
	}
	if g.Phase == PhaseMatch {
		if err := g.Round.CanChangeCharacter(g.Self.Name, g.now()); err != nil {
			return err
		}
	}
	g.send(protocol.Encode(protocol.CmdCharacterSelect, characters.Normalize(id)))
	return nil
}

func (g *Game) SetTeam(t engine.Team) {
	g.send(protocol.Encode(protocol.CmdTeam, protocol.Itoa(int(t))))
}

func (g *Game) SetReady(ready bool) {
	if ready {
		g.send(protocol.CmdReady)
		return
	}
	g.send(protocol.CmdUnready)
}

func (g *Game) RequestStart() { g.send(protocol.CmdStart) }

func (g *Game) Say(text string) { g.send(protocol.Encode(protocol.CmdChat, text)) }
