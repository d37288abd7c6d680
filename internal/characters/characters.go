package characters

import (
	"strings"

	"golang.org/x/text/cases"
)

type AbilityType string

const (
	Basic    AbilityType = "BASIC"
	Tactical AbilityType = "TACTICAL"
	Ultimate AbilityType = "ULTIMATE"
)

type Ability struct {
	ID       string
	Name     string
	Type     AbilityType
	Cooldown float64 // seconds
	Duration float64 // seconds
	Range    float64 // pixels
	Damage   float64 // negative heals
}

type Character struct {
	ID        string
	Name      string
	Health    int
	Speed     float64
	Abilities []Ability
}

const DefaultID = "raven"

// Basic returns the character's primary attack, or the generic fallback.
func (c Character) Basic() Ability {
	for _, a := range c.Abilities {
		if a.Type == Basic {
			return a
		}
	}
	return defaultBasic
}

func (c Character) Ability(id string) (Ability, bool) {
	for _, a := range c.Abilities {
		if a.ID == id {
			return a, true
		}
	}
	return Ability{}, false
}

// Normalize trims and case-folds a character id. Casers carry state, so
// each call builds its own.
func Normalize(id string) string {
	return cases.Fold().String(strings.TrimSpace(id))
}

// Lookup finds a character by id. Unknown ids fall back to raven.
func Lookup(id string) Character {
	if c, ok := table[Normalize(id)]; ok {
		return c
	}
	return table[DefaultID]
}

// Known reports whether id names a playable character.
func Known(id string) bool {
	_, ok := table[Normalize(id)]
	return ok
}

var defaultBasic = Ability{ID: "default_basic", Name: "Basic Attack", Type: Basic, Cooldown: 0.5, Range: 400, Damage: 20}

var table = map[string]Character{
	"raven": {ID: "raven", Name: "Raven", Health: 100, Speed: 6.5, Abilities: []Ability{
		{ID: "raven_basic", Name: "Rapid Fire", Type: Basic, Cooldown: 0.3, Range: 500, Damage: 15},
		{ID: "raven_dash", Name: "Dash", Type: Tactical, Cooldown: 5, Duration: 0.5, Range: 200},
		{ID: "raven_overcharge", Name: "Overcharge", Type: Ultimate, Cooldown: 20, Duration: 6},
	}},
	"piper": {ID: "piper", Name: "Piper", Health: 80, Speed: 5.5, Abilities: []Ability{
		{ID: "piper_basic", Name: "Sniper Shot", Type: Basic, Cooldown: 1.2, Range: 1000, Damage: 80},
		{ID: "piper_mark", Name: "Mark", Type: Tactical, Cooldown: 8, Duration: 5, Range: 800},
		{ID: "piper_thermal", Name: "Thermal Vision", Type: Ultimate, Cooldown: 30, Duration: 8},
	}},
	"technician": {ID: "technician", Name: "Technician", Health: 100, Speed: 5, Abilities: []Ability{
		{ID: "tech_basic", Name: "Rifle", Type: Basic, Cooldown: 0.4, Range: 400, Damage: 20},
		{ID: "tech_mine", Name: "Mine", Type: Tactical, Cooldown: 20, Duration: 30, Range: 100, Damage: 50},
		{ID: "tech_turret", Name: "Turret", Type: Ultimate, Cooldown: 40, Duration: 20, Range: 150, Damage: 25},
	}},
	"general": {ID: "general", Name: "General", Health: 120, Speed: 5, Abilities: []Ability{
		{ID: "gen_basic", Name: "Command Rifle", Type: Basic, Cooldown: 0.4, Range: 600, Damage: 25},
		{ID: "gen_aura", Name: "Command Aura", Type: Tactical, Cooldown: 15, Duration: 10, Range: 500},
		{ID: "gen_strike", Name: "Air Strike", Type: Ultimate, Cooldown: 40, Duration: 3, Range: 800, Damage: 150},
	}},
	"bulldog": {ID: "bulldog", Name: "Bulldog", Health: 200, Speed: 4.5, Abilities: []Ability{
		{ID: "bull_basic", Name: "Minigun", Type: Basic, Cooldown: 0.1, Range: 400, Damage: 8},
		{ID: "bull_cover", Name: "Cover", Type: Tactical, Cooldown: 12, Duration: 4},
		{ID: "bull_barrage", Name: "Barrage", Type: Ultimate, Cooldown: 35, Duration: 3},
	}},
	"wildcat": {ID: "wildcat", Name: "Wildcat", Health: 110, Speed: 5.2, Abilities: []Ability{
		{ID: "wild_basic", Name: "Shotgun", Type: Basic, Cooldown: 0.8, Range: 250, Damage: 15},
		{ID: "wild_breach", Name: "Breach", Type: Tactical, Cooldown: 8, Duration: 0.5},
		{ID: "wild_berserk", Name: "Berserk", Type: Ultimate, Cooldown: 25, Duration: 6},
	}},
	"ghost": {ID: "ghost", Name: "Ghost", Health: 120, Speed: 6, Abilities: []Ability{
		{ID: "ghost_basic", Name: "Silenced Pistol", Type: Basic, Cooldown: 0.2, Range: 300, Damage: 18},
		{ID: "ghost_cloak", Name: "Cloak", Type: Tactical, Cooldown: 15, Duration: 6},
		{ID: "ghost_nullify", Name: "Nullify", Type: Ultimate, Cooldown: 30, Duration: 10},
	}},
	"skull": {ID: "skull", Name: "Skull", Health: 120, Speed: 5, Abilities: []Ability{
		{ID: "skull_basic", Name: "Heavy Pistol", Type: Basic, Cooldown: 0.35, Range: 500, Damage: 22},
		{ID: "skull_adrenaline", Name: "Adrenaline", Type: Tactical, Cooldown: 15, Damage: -50},
		{ID: "skull_ammo", Name: "Ammo Belt", Type: Ultimate, Cooldown: 40, Duration: 8},
	}},
	"steam": {ID: "steam", Name: "Steam", Health: 110, Speed: 5.4, Abilities: []Ability{
		{ID: "steam_basic", Name: "Steam Gun", Type: Basic, Cooldown: 0.15, Range: 550, Damage: 12},
		{ID: "steam_emp", Name: "EMP", Type: Tactical, Cooldown: 18, Range: 300},
		{ID: "steam_reset", Name: "Reset", Type: Ultimate, Cooldown: 45, Range: 400},
	}},
	"sage": {ID: "sage", Name: "Sage", Health: 100, Speed: 5.3, Abilities: []Ability{
		{ID: "sage_basic", Name: "Staff Bolt", Type: Basic, Cooldown: 0.2, Range: 350, Damage: 16},
		{ID: "sage_heal", Name: "Heal", Type: Tactical, Cooldown: 15, Range: 200, Damage: -60},
		{ID: "sage_revive", Name: "Revive", Type: Ultimate, Cooldown: 90, Duration: 3, Range: 300, Damage: -100},
	}},
}
