package client

import (
	"image/color"
	"math"
	"slices"

	"github.com/DoyleJ11/squadfire/internal/characters"
)

// Shape tells a renderer how an effect's radius evolves.
type Shape int

const (
	ShapeRing  Shape = iota // fixed radius
	ShapePulse              // base + sin(elapsed*freq)*amp
	ShapeGrow               // base + progress*amp
	ShapeWave               // base + sin(progress*2π)*amp
)

// Descriptor is the per-ability visual recipe.
type Descriptor struct {
	Shape     Shape
	Color     color.RGBA
	Base      float64
	Amplitude float64
	Frequency float64
}

var descriptors = map[string]Descriptor{
	"raven_dash":       {Shape: ShapeGrow, Color: rgb(80, 190, 255), Base: 30, Amplitude: 15},
	"raven_overcharge": {Shape: ShapePulse, Color: rgb(255, 120, 80), Base: 34, Amplitude: 5, Frequency: 6},
	"piper_mark":       {Shape: ShapeWave, Color: rgb(100, 220, 255), Base: 28, Amplitude: 4},
	"piper_thermal":    {Shape: ShapePulse, Color: rgb(255, 170, 60), Base: ThermalBaseRadius, Amplitude: ThermalPulseAmplitude, Frequency: ThermalPulseFrequency},
	"gen_aura":         {Shape: ShapePulse, Color: rgb(70, 140, 255), Base: 34, Amplitude: 5, Frequency: 4},
	"bull_barrage":     {Shape: ShapePulse, Color: rgb(255, 140, 50), Base: 45, Amplitude: 8, Frequency: 5},
	"bull_cover":       {Shape: ShapeRing, Color: rgb(100, 100, 255), Base: 40},
	"gen_strike":       {Shape: ShapePulse, Color: rgb(255, 80, 80), Base: 40, Amplitude: 6, Frequency: 3},
	"wild_berserk":     {Shape: ShapePulse, Color: rgb(255, 70, 70), Base: 34, Amplitude: 6, Frequency: 7},
	"wild_breach":      {Shape: ShapeRing, Color: rgb(200, 200, 200), Base: 30},
	"steam_reset":      {Shape: ShapeRing, Color: rgb(0, 255, 100), Base: 30},
	"ghost_cloak":      {Shape: ShapeRing, Color: rgb(110, 150, 255), Base: 30},
	"ghost_nullify":    {Shape: ShapeRing, Color: rgb(170, 120, 255), Base: 34},
	"skull_adrenaline": {Shape: ShapePulse, Color: rgb(90, 220, 120), Base: 30, Amplitude: 4, Frequency: 6},
	"skull_ammo":       {Shape: ShapeRing, Color: rgb(255, 205, 90), Base: 36},
	"steam_emp":        {Shape: ShapePulse, Color: rgb(90, 180, 255), Base: 32, Amplitude: 4, Frequency: 8},
	"tech_mine":        {Shape: ShapeRing, Color: rgb(255, 200, 80), Base: 24},
	"tech_turret":      {Shape: ShapeRing, Color: rgb(160, 200, 255), Base: 34},
	"sage_heal":        {Shape: ShapeRing, Color: rgb(90, 230, 200), Base: 34},
	"sage_revive":      {Shape: ShapePulse, Color: rgb(120, 255, 230), Base: 36, Amplitude: 5, Frequency: 6},
}

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 255} }

// LookupDescriptor reports the visual recipe for an ability, if it has one.
func LookupDescriptor(abilityID string) (Descriptor, bool) {
	d, ok := descriptors[abilityID]
	return d, ok
}

func (d Descriptor) Radius(elapsed, progress float64) float64 {
	switch d.Shape {
	case ShapePulse:
		return d.Base + math.Sin(elapsed*d.Frequency)*d.Amplitude
	case ShapeGrow:
		return d.Base + progress*d.Amplitude
	case ShapeWave:
		return d.Base + math.Sin(progress*2*math.Pi)*d.Amplitude
	}
	return d.Base
}

// CategoryColor is the HUD colour for an ability category.
func CategoryColor(category characters.AbilityType) color.RGBA {
	switch category {
	case characters.Basic:
		return rgb(100, 200, 100)
	case characters.Ultimate:
		return rgb(255, 100, 100)
	}
	return rgb(100, 150, 255)
}

// ThermalRadius is the pulsing reveal radius elapsed seconds into a
// thermal scan.
func ThermalRadius(elapsed float64) float64 {
	return ThermalBaseRadius + math.Sin(elapsed*ThermalPulseFrequency)*ThermalPulseAmplitude
}

type ActiveEffect struct {
	AbilityID string
	Category  characters.AbilityType
	Total     float64
	Remaining float64
	Color     color.RGBA
}

func (e ActiveEffect) Elapsed() float64 { return e.Total - e.Remaining }

// Progress runs from 0 at activation to 1 at expiry.
func (e ActiveEffect) Progress() float64 {
	if e.Total <= 0 {
		return 1
	}
	return e.Elapsed() / e.Total
}

// Radius is the effect's current ring radius, or 0 when the ability has
// no visual.
func (e ActiveEffect) Radius() float64 {
	d, ok := descriptors[e.AbilityID]
	if !ok {
		return 0
	}
	return d.Radius(e.Elapsed(), e.Progress())
}

// Effects tracks per-player ability timers and the team-shared piper
// reveals. Owned by the tick goroutine.
type Effects struct {
	byPlayer    map[string][]ActiveEffect
	teamThermal float64
	teamMark    float64
	thermalAge  float64
}

func NewEffects() *Effects {
	return &Effects{byPlayer: make(map[string][]ActiveEffect)}
}

// Add starts a timer for player. Durations shorter than minDuration are
// raised to it.
func (e *Effects) Add(player, abilityID string, category characters.AbilityType, duration, minDuration float64) ActiveEffect {
	d := math.Max(minDuration, duration)
	fx := ActiveEffect{
		AbilityID: abilityID,
		Category:  category,
		Total:     d,
		Remaining: d,
		Color:     CategoryColor(category),
	}
	e.byPlayer[player] = append(e.byPlayer[player], fx)
	return fx
}

// ShareTeam extends the team-wide reveal timers when a teammate uses a
// piper ability.
func (e *Effects) ShareTeam(abilityID string, duration float64) {
	switch abilityID {
	case "piper_thermal":
		if duration > e.teamThermal {
			e.teamThermal = duration
			e.thermalAge = 0
		}
	case "piper_mark":
		e.teamMark = math.Max(e.teamMark, duration)
	}
}

// Tick advances every timer by dt seconds and drops expired ones.
func (e *Effects) Tick(dt float64) {
	for name, list := range e.byPlayer {
		list = slices.DeleteFunc(list, func(fx ActiveEffect) bool { return fx.Remaining-dt <= 0 })
		for i := range list {
			list[i].Remaining -= dt
		}
		if len(list) == 0 {
			delete(e.byPlayer, name)
			continue
		}
		e.byPlayer[name] = list
	}
	if e.teamThermal > 0 {
		e.thermalAge += dt
	}
	e.teamThermal = math.Max(0, e.teamThermal-dt)
	e.teamMark = math.Max(0, e.teamMark-dt)
}

func (e *Effects) For(player string) []ActiveEffect {
	return slices.Clone(e.byPlayer[player])
}

func (e *Effects) Remove(player string) { delete(e.byPlayer, player) }

func (e *Effects) TeamThermal() float64 { return e.teamThermal }
func (e *Effects) TeamMark() float64    { return e.teamMark }

// TeamThermalRadius is 0 when no scan is active.
func (e *Effects) TeamThermalRadius() float64 {
	if e.teamThermal <= 0 {
		return 0
	}
	return ThermalRadius(e.thermalAge)
}

func (e *Effects) Reset() {
	clear(e.byPlayer)
	e.teamThermal, e.teamMark, e.thermalAge = 0, 0, 0
}
