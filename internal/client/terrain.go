package client

import (
	"context"

	"github.com/DoyleJ11/squadfire/internal/engine"
)

// Terrain is what the simulation needs from map data.
type Terrain interface {
	Bounds() (w, h float64)
	Blocked(x, y float64) bool
	Spawn(team engine.Team) (x, y float64)
}

// MapLoader resolves a map id into terrain. Loading may be slow; the game
// calls it off the tick goroutine.
type MapLoader interface {
	Load(ctx context.Context, mapID string) (Terrain, error)
}

// Flat is an obstacle-free rectangle. Red spawns on the left, blue on the
// right.
type Flat struct {
	W, H float64
}

func DefaultTerrain() Flat { return Flat{W: DefaultMapWidth, H: DefaultMapHeight} }

func (f Flat) Bounds() (float64, float64) { return f.W, f.H }

func (f Flat) Blocked(x, y float64) bool { return x < 0 || y < 0 || x > f.W || y > f.H }

func (f Flat) Spawn(team engine.Team) (float64, float64) {
	if team == engine.TeamBlue {
		return f.W * 0.85, f.H / 2
	}
	return f.W * 0.15, f.H / 2
}

// Grid is a tile map. Walkable is indexed [row][col]; spawn tiles are
// {col,row} pairs per team.
type Grid struct {
	TileSize int
	Walkable [][]bool
	Spawns   map[engine.Team][][2]int
}

func (g *Grid) Bounds() (float64, float64) {
	if len(g.Walkable) == 0 {
		return 0, 0
	}
	return float64(len(g.Walkable[0]) * g.TileSize), float64(len(g.Walkable) * g.TileSize)
}

func (g *Grid) Blocked(x, y float64) bool {
	if x < 0 || y < 0 {
		return true
	}
	col, row := int(x)/g.TileSize, int(y)/g.TileSize
	if row >= len(g.Walkable) || col >= len(g.Walkable[row]) {
		return true
	}
	return !g.Walkable[row][col]
}

// Spawn returns the centre of the team's first spawn tile, or the map
// centre when the team has none.
func (g *Grid) Spawn(team engine.Team) (float64, float64) {
	tiles := g.Spawns[team]
	if len(tiles) == 0 {
		w, h := g.Bounds()
		return w / 2, h / 2
	}
	half := float64(g.TileSize) / 2
	return float64(tiles[0][0]*g.TileSize) + half, float64(tiles[0][1]*g.TileSize) + half
}

// FlatLoader serves the default terrain for every map id.
type FlatLoader struct{}

func (FlatLoader) Load(context.Context, string) (Terrain, error) { return DefaultTerrain(), nil }
