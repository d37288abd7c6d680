package client

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/squadfire/internal/characters"
	"github.com/DoyleJ11/squadfire/internal/engine"
	"github.com/DoyleJ11/squadfire/internal/protocol"
)

const mapLoadTimeout = 30 * time.Second

type Phase int

const (
	PhaseLobby Phase = iota
	PhaseMatch
)

func (p Phase) String() string {
	if p == PhaseMatch {
		return "MATCH"
	}
	return "LOBBY"
}

type Config struct {
	Name             string
	Character        string
	TickInterval     time.Duration
	LobbyReturnDelay time.Duration
	Timing           engine.Timing
	// StatusInterval logs a world summary this often; 0 disables it.
	StatusInterval   time.Duration
}

func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		Character:        characters.DefaultID,
		TickInterval:     16 * time.Millisecond,
		LobbyReturnDelay: 5 * time.Second,
		Timing:           engine.DefaultTiming(),
	}
}

// Self is the local player.
type Self struct {
	Name        string
	X, Y        float64
	Direction   int
	Team        engine.Team
	Ready       bool
	HP, MaxHP   int
	Kills       int
	Deaths      int
	CharacterID string
	MoveMul     float64
	AttackMul   float64
}

func (s Self) Alive() bool { return s.HP > 0 }

type mapLoaded struct {
	mapID   string
	terrain Terrain
	err     error
}

// Game is the client-side world. Everything except Run's channels is
// owned by the goroutine running Run; tests drive Dispatch and Tick
// directly.
type Game struct {
	cfg    Config
	log    *zap.Logger
	out    Sender
	loader MapLoader
	now    func() time.Time
	saved  func(characterID string)

	Self    Self
	Store   *Store
	Effects *Effects
	Round   *engine.Round
	Roster  []protocol.RosterEntry
	Phase   Phase
	MapID   string
	Welcome string
	// Rejected holds the server's reason when it refused us.
	Rejected string

	terrain    Terrain
	chat       []string
	mapLoads   chan mapLoaded
	cancelLoad context.CancelFunc
	lobbyAt    time.Time
}

type Option func(*Game)

func WithLoader(l MapLoader) Option { return func(g *Game) { g.loader = l } }

func WithClock(now func() time.Time) Option { return func(g *Game) { g.now = now } }

// WithCharacterSaved registers a callback for every confirmed character
// change of the local player.
func WithCharacterSaved(fn func(string)) Option { return func(g *Game) { g.saved = fn } }

func New(cfg Config, out Sender, log *zap.Logger, opts ...Option) *Game {
	c := characters.Lookup(cfg.Character)
	g := &Game{
		cfg:    cfg,
		log:    log,
		out:    out,
		loader: FlatLoader{},
		now:    time.Now,
		saved:  func(string) {},
		Self: Self{
			Name:        cfg.Name,
			HP:          c.Health,
			MaxHP:       c.Health,
			CharacterID: c.ID,
			MoveMul:     1,
			AttackMul:   1,
		},
		Store:    NewStore(),
		Effects:  NewEffects(),
		Round:    engine.NewRound(cfg.Timing),
		terrain:  DefaultTerrain(),
		mapLoads: make(chan mapLoaded, 1),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Run owns the world: it applies incoming messages, finished map loads
// and fixed-rate ticks until ctx ends or in is closed.
func (g *Game) Run(ctx context.Context, in <-chan protocol.Message) error {
	ticker := time.NewTicker(g.cfg.TickInterval)
	defer ticker.Stop()
	defer g.stopLoad()

	var status <-chan time.Time
	if g.cfg.StatusInterval > 0 {
		st := time.NewTicker(g.cfg.StatusInterval)
		defer st.Stop()
		status = st.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-in:
			if !ok {
				return ErrDisconnected
			}
			g.Dispatch(msg)
		case res := <-g.mapLoads:
			g.applyMap(res)
		case <-ticker.C:
			g.Tick(TickDT)
		case <-status:
			g.logStatus()
		}
	}
}

func (g *Game) logStatus() {
	g.log.Info("world",
		zap.Stringer("phase", g.Phase),
		zap.Int("round", g.Round.Count),
		zap.Stringer("state", g.Round.State),
		zap.Int("red_wins", g.Round.RedWins),
		zap.Int("blue_wins", g.Round.BlueWins),
		zap.String("character", g.Self.CharacterID),
		zap.Int("hp", g.Self.HP),
		zap.Int("kills", g.Self.Kills),
		zap.Int("deaths", g.Self.Deaths),
		zap.Int("players", len(g.Store.players)),
		zap.Int("missiles", len(g.Store.missiles)),
		zap.Int("objects", len(g.Store.objects)),
	)
}

// Tick advances the simulation by dt seconds.
func (g *Game) Tick(dt float64) {
	now := g.now()
	if g.Round.Advance(now) {
		g.log.Info("round live", zap.Int("round", g.Round.Count))
	}
	g.Store.Interpolate()
	g.Store.StepMissiles(g.terrain)
	g.collide()
	g.Store.ExpireStrikes(now)
	g.Effects.Tick(dt)

	if !g.lobbyAt.IsZero() && !now.Before(g.lobbyAt) {
		g.returnToLobby()
	}
}

// collide resolves missiles against the local player and, for our own
// missiles, against enemies. Only two reports leave the client: HITME when
// an enemy missile reaches us and HIT_OBJ when ours reaches an enemy object.
func (g *Game) collide() {
	self := g.Self
	g.Store.RemoveMissiles(func(m *Missile) bool {
		if m.Team != self.Team {
			if !self.Alive() || math.Hypot(m.X-self.X, m.Y-self.Y) >= MissileHitRadius {
				return false
			}
			if m.Owner == "" {
				g.send(protocol.CmdDeath)
			} else if m.Owner != self.Name {
				g.send(protocol.Encode(protocol.CmdHitMe, m.Owner))
			}
			return true
		}
		if m.Owner != self.Name {
			return false
		}
		for _, p := range g.Store.players {
			if p.Team != self.Team && p.HP > 0 && math.Hypot(m.X-p.X, m.Y-p.Y) < MissileHitRadius {
				return true
			}
		}
		for _, o := range g.Store.objects {
			if o.Team != self.Team && o.HP > 0 && math.Hypot(m.X-o.X, m.Y-o.Y) < ObjectHitRadius {
				g.send(protocol.Encode(protocol.CmdHitObj, protocol.Itoa(o.ID)))
				return true
			}
		}
		return false
	})
}

// Chat returns the recent chat lines, oldest first.
func (g *Game) Chat() []string { return append([]string(nil), g.chat...) }

func (g *Game) Terrain() Terrain { return g.terrain }

// Center is the banner text to show right now.
func (g *Game) Center() string { return g.Round.Center(g.now()) }

func (g *Game) appendChat(line string) {
	g.chat = append(g.chat, line)
	if len(g.chat) > chatHistory {
		g.chat = g.chat[len(g.chat)-chatHistory:]
	}
}

func (g *Game) send(msg string) {
	if err := g.out.Send(msg); err != nil {
		g.log.Warn("send failed", zap.String("msg", msg), zap.Error(err))
	}
}

// loadMap hands the map to the loader off the tick goroutine. The result
// comes back through mapLoads.
func (g *Game) loadMap(mapID string) {
	g.stopLoad()
	ctx, cancel := context.WithTimeout(context.Background(), mapLoadTimeout)
	g.cancelLoad = cancel
	loader := g.loader
	go func() {
		t, err := loader.Load(ctx, mapID)
		select {
		case g.mapLoads <- mapLoaded{mapID: mapID, terrain: t, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (g *Game) stopLoad() {
	if g.cancelLoad != nil {
		g.cancelLoad()
		g.cancelLoad = nil
	}
}

func (g *Game) applyMap(res mapLoaded) {
	if res.mapID != g.MapID {
		return
	}
	if res.err != nil {
		g.log.Error("map load failed", zap.String("map", res.mapID), zap.Error(res.err))
		return
	}
	g.terrain = res.terrain
	g.appendChat("[map] switched to " + res.mapID)
	g.log.Info("map loaded", zap.String("map", res.mapID))
}

// PendingMap blocks until the in-flight map load finishes and applies it.
// It is meant for tests and tools that do not run the loop.
func (g *Game) PendingMap(ctx context.Context) error {
	select {
	case res := <-g.mapLoads:
		g.applyMap(res)
		return res.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Game) respawn() {
	x, y := g.terrain.Spawn(g.Self.Team)
	g.Self.X, g.Self.Y = x, y
	g.Self.HP = g.Self.MaxHP
	g.send(protocol.EncodeFields(protocol.CmdRespawn, protocol.Itoa(int(x)), protocol.Itoa(int(y))))
	g.sendPos()
	g.log.Info("respawn", zap.Float64("x", x), zap.Float64("y", y))
}

func (g *Game) returnToLobby() {
	g.lobbyAt = time.Time{}
	g.Phase = PhaseLobby
	g.Round.Reset()
	g.Store.Reset()
	g.Effects.Reset()
	g.Self.Ready = false
	g.Self.MoveMul, g.Self.AttackMul = 1, 1
	g.appendChat("[lobby] back in the lobby")
	g.log.Info("returned to lobby")
}
