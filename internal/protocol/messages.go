package protocol

import (
	"strings"
)

const DefaultCharacter = "raven"

type Stats struct {
	Name        string
	Kills       int
	Deaths      int
	HP          int
	CharacterID string
}

func (s Stats) Encode() string {
	fields := []string{s.Name, Itoa(s.Kills), Itoa(s.Deaths), Itoa(s.HP)}
	if s.CharacterID != "" {
		fields = append(fields, s.CharacterID)
	}
	return EncodeFields(CmdStats, fields...)
}

func ParseStats(payload string) (Stats, bool) {
	f := Split(payload)
	if f.Len() < 4 {
		return Stats{}, false
	}
	name, _ := f.String(0)
	kills, ok1 := f.Int(1)
	deaths, ok2 := f.Int(2)
	hp, ok3 := f.Int(3)
	if name == "" || !ok1 || !ok2 || !ok3 {
		return Stats{}, false
	}
	return Stats{Name: name, Kills: kills, Deaths: deaths, HP: hp, CharacterID: f.StringOr(4, "")}, true
}

type Player struct {
	Name        string
	X, Y        int
	Team        int
	HP          int
	CharacterID string
	Direction   int
}

func (p Player) Encode() string {
	return EncodeFields(CmdPlayer, p.Name, Itoa(p.X), Itoa(p.Y), Itoa(p.Team), Itoa(p.HP), p.CharacterID, Itoa(p.Direction))
}

func ParsePlayer(payload string) (Player, bool) {
	f := Split(payload)
	if f.Len() < 5 {
		return Player{}, false
	}
	name, _ := f.String(0)
	x, okX := f.Int(1)
	y, okY := f.Int(2)
	if name == "" || !okX || !okY {
		return Player{}, false
	}
	return Player{
		Name:        name,
		X:           x,
		Y:           y,
		Team:        f.IntOr(3, 0),
		HP:          f.IntOr(4, 0),
		CharacterID: f.StringOr(5, DefaultCharacter),
		Direction:   f.IntOr(6, 0),
	}, true
}

type RosterEntry struct {
	Name        string
	Team        int
	Ready       bool
	CharacterID string
}

func EncodeRoster(entries []RosterEntry) string {
	recs := make([]string, 0, len(entries))
	for _, e := range entries {
		recs = append(recs, strings.Join([]string{
			e.Name, Itoa(e.Team), boolString(e.Ready), e.CharacterID,
		}, FieldSep))
	}
	return Encode(CmdTeamRoster, strings.Join(recs, RecordSep))
}

// ParseRoster skips records that are malformed.
func ParseRoster(payload string) []RosterEntry {
	var out []RosterEntry
	for _, rec := range Records(payload) {
		f := Split(rec)
		name, _ := f.String(0)
		team, ok := f.Int(1)
		if name == "" || !ok {
			continue
		}
		ready, _ := f.Bool(2)
		out = append(out, RosterEntry{
			Name:        name,
			Team:        team,
			Ready:       ready,
			CharacterID: f.StringOr(3, DefaultCharacter),
		})
	}
	return out
}

type RoundPlayer struct {
	Name        string
	CharacterID string
	HP          int
	MaxHP       int
}

type RoundStart struct {
	Round   int
	MapID   string
	Players []RoundPlayer
}

func (r RoundStart) Encode() string {
	head := Itoa(r.Round)
	if r.MapID != "" {
		head += FieldSep + r.MapID
	}
	recs := []string{head, Itoa(len(r.Players))}
	for _, p := range r.Players {
		recs = append(recs, strings.Join([]string{p.Name, p.CharacterID, Itoa(p.HP), Itoa(p.MaxHP)}, FieldSep))
	}
	return Encode(CmdRoundStart, strings.Join(recs, RecordSep))
}

// ParseRoundStart needs a valid round number; player records that fail to
// parse are skipped individually.
func ParseRoundStart(payload string) (RoundStart, bool) {
	recs := Records(payload)
	if len(recs) == 0 {
		return RoundStart{}, false
	}
	head := Split(recs[0])
	round, ok := head.Int(0)
	if !ok {
		return RoundStart{}, false
	}
	rs := RoundStart{Round: round, MapID: head.StringOr(1, "")}
	if len(recs) < 2 {
		return rs, true
	}
	count, ok := Split(recs[1]).Int(0)
	if !ok {
		return rs, true
	}
	for i := 2; i < len(recs) && i-2 < count; i++ {
		f := Split(recs[i])
		name, _ := f.String(0)
		charID, _ := f.String(1)
		hp, okHP := f.Int(2)
		maxHP, okMax := f.Int(3)
		if name == "" || charID == "" || !okHP || !okMax {
			continue
		}
		rs.Players = append(rs.Players, RoundPlayer{Name: name, CharacterID: charID, HP: hp, MaxHP: maxHP})
	}
	return rs, true
}

type RoundEnd struct {
	Winner   string
	RedWins  int
	BlueWins int
}

func (r RoundEnd) Encode() string {
	return EncodeFields(CmdRoundEnd, r.Winner, Itoa(r.RedWins), Itoa(r.BlueWins))
}

func ParseRoundEnd(payload string) (RoundEnd, bool) {
	f := Split(payload)
	winner, _ := f.String(0)
	red, ok1 := f.Int(1)
	blue, ok2 := f.Int(2)
	if winner == "" || !ok1 || !ok2 {
		return RoundEnd{}, false
	}
	return RoundEnd{Winner: winner, RedWins: red, BlueWins: blue}, true
}

type Skill struct {
	User      string
	AbilityID string
	Type      string
	Duration  float64
	X, Y      int
	HasPos    bool
}

// Encode renders the server broadcast form, SKILL:user,abilityId,type,duration[,x,y].
func (s Skill) Encode() string {
	fields := []string{s.User, s.AbilityID, s.Type, Ftoa(s.Duration)}
	if s.HasPos {
		fields = append(fields, Itoa(s.X), Itoa(s.Y))
	}
	return EncodeFields(CmdSkill, fields...)
}

// ParseSkillRequest reads the client form, SKILL:abilityId,type,duration[,x,y].
func ParseSkillRequest(user, payload string) (Skill, bool) {
	return parseSkill(user, Split(payload))
}

// ParseSkill reads the broadcast form.
func ParseSkill(payload string) (Skill, bool) {
	f := Split(payload)
	user, _ := f.String(0)
	if user == "" || f.Len() < 4 {
		return Skill{}, false
	}
	return parseSkill(user, f[1:])
}

func parseSkill(user string, f Fields) (Skill, bool) {
	id, _ := f.String(0)
	if id == "" {
		return Skill{}, false
	}
	s := Skill{
		User:      user,
		AbilityID: id,
		Type:      f.StringOr(1, "TACTICAL"),
		Duration:  f.FloatOr(2, 0),
	}
	x, okX := f.Int(3)
	y, okY := f.Int(4)
	if okX && okY {
		s.X, s.Y, s.HasPos = x, y, true
	}
	return s, true
}

type Object struct {
	ID    int
	Type  string
	X, Y  int
	HP    int
	MaxHP int
	Owner string
	Team  int
}

func (o Object) Encode() string {
	return EncodeFields(CmdObj, Itoa(o.ID), o.Type, Itoa(o.X), Itoa(o.Y), Itoa(o.HP), Itoa(o.MaxHP), o.Owner, Itoa(o.Team))
}

func ParseObject(payload string) (Object, bool) {
	f := Split(payload)
	if f.Len() < 8 {
		return Object{}, false
	}
	id, ok1 := f.Int(0)
	typ, _ := f.String(1)
	x, ok2 := f.Int(2)
	y, ok3 := f.Int(3)
	hp, ok4 := f.Int(4)
	maxHP, ok5 := f.Int(5)
	owner, _ := f.String(6)
	team, ok6 := f.Int(7)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) || typ == "" {
		return Object{}, false
	}
	return Object{ID: id, Type: typ, X: x, Y: y, HP: hp, MaxHP: maxHP, Owner: owner, Team: team}, true
}

type Strike struct {
	ID   int
	X, Y int
}

func (s Strike) Encode() string {
	return EncodeFields(CmdStrike, Itoa(s.ID), Itoa(s.X), Itoa(s.Y))
}

func ParseStrike(payload string) (Strike, bool) {
	f := Split(payload)
	id, ok1 := f.Int(0)
	x, ok2 := f.Int(1)
	y, ok3 := f.Int(2)
	if !(ok1 && ok2 && ok3) {
		return Strike{}, false
	}
	return Strike{ID: id, X: x, Y: y}, true
}

type TurretShoot struct {
	ID     int
	X, Y   int
	Target string
}

func (t TurretShoot) Encode() string {
	return EncodeFields(CmdTurretShoot, Itoa(t.ID), Itoa(t.X), Itoa(t.Y), t.Target)
}

func ParseTurretShoot(payload string) (TurretShoot, bool) {
	f := Split(payload)
	id, ok1 := f.Int(0)
	x, ok2 := f.Int(1)
	y, ok3 := f.Int(2)
	if !(ok1 && ok2 && ok3) {
		return TurretShoot{}, false
	}
	return TurretShoot{ID: id, X: x, Y: y, Target: f.StringOr(3, "")}, true
}

type Buff struct {
	Type   string
	Move   float64
	Attack float64
}

func (b Buff) Encode() string {
	return EncodeFields(CmdBuff, b.Type, Ftoa(b.Move), Ftoa(b.Attack))
}

func ParseBuff(payload string) (Buff, bool) {
	f := Split(payload)
	typ, _ := f.String(0)
	move, ok1 := f.Float(1)
	attack, ok2 := f.Float(2)
	if typ == "" || !ok1 || !ok2 {
		return Buff{}, false
	}
	return Buff{Type: typ, Move: move, Attack: attack}, true
}

// Shot is a projectile launch. On the wire from a client it is
// SHOOT:x,y,dx,dy; the server relays SHOOT:name,x,y,dx,dy.
type Shot struct {
	Owner  string
	X, Y   int
	DX, DY int
}

func (s Shot) Encode() string {
	return EncodeFields(CmdShoot, s.Owner, Itoa(s.X), Itoa(s.Y), Itoa(s.DX), Itoa(s.DY))
}

func ParseShotRequest(owner, payload string) (Shot, bool) {
	f := Split(payload)
	x, ok1 := f.Int(0)
	y, ok2 := f.Int(1)
	dx, ok3 := f.Int(2)
	dy, ok4 := f.Int(3)
	if !(ok1 && ok2 && ok3 && ok4) {
		return Shot{}, false
	}
	return Shot{Owner: owner, X: x, Y: y, DX: dx, DY: dy}, true
}

func ParseShot(payload string) (Shot, bool) {
	owner, rest, ok := strings.Cut(payload, FieldSep)
	if !ok || owner == "" {
		return Shot{}, false
	}
	return ParseShotRequest(owner, rest)
}

// Missile is the MISSILE:x,y,dx,dy,team,owner form.
type Missile struct {
	X, Y   int
	DX, DY int
	Team   int
	Owner  string
}

func ParseMissile(payload string) (Missile, bool) {
	f := Split(payload)
	if f.Len() < 6 {
		return Missile{}, false
	}
	x, ok1 := f.Int(0)
	y, ok2 := f.Int(1)
	dx, ok3 := f.Int(2)
	dy, ok4 := f.Int(3)
	team, ok5 := f.Int(4)
	owner, _ := f.String(5)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return Missile{}, false
	}
	return Missile{X: x, Y: y, DX: dx, DY: dy, Team: team, Owner: owner}, true
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
