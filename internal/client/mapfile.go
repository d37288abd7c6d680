package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/DoyleJ11/squadfire/internal/engine"
)

var ErrBadMapID = errors.New("bad map id")

// FileLoader reads tile maps from Dir. For map id m it tries m_edited.json,
// m.edited.json and m.json in that order; with none present the default
// flat terrain is used.
type FileLoader struct {
	Dir string
}

type tileRef struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type mapFile struct {
	Meta struct {
		MapPixelSize struct {
			W int `json:"w"`
			H int `json:"h"`
		} `json:"map_pixel_size"`
		TileSize int `json:"tile_size"`
	} `json:"meta"`
	TileSize  int       `json:"tile_size"`
	Obstacles []tileRef `json:"obstacles"`
	Spawns    map[string]struct {
		Tiles []tileRef `json:"tiles"`
	} `json:"spawns"`
}

func (l FileLoader) Load(ctx context.Context, mapID string) (Terrain, error) {
	if mapID == "" || filepath.Base(mapID) != mapID {
		return nil, fmt.Errorf("%w: %q", ErrBadMapID, mapID)
	}
	for _, name := range []string{mapID + "_edited.json", mapID + ".edited.json", mapID + ".json"} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(l.Dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read map %s: %w", name, err)
		}
		g, err := ParseGrid(data)
		if err != nil {
			return nil, fmt.Errorf("map %s: %w", name, err)
		}
		return g, nil
	}
	return DefaultTerrain(), nil
}

// ParseGrid builds a Grid from map JSON. Every tile is walkable except the
// listed obstacles; spawn tiles are always walkable.
func ParseGrid(data []byte) (*Grid, error) {
	var mf mapFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, err
	}
	ts := mf.Meta.TileSize
	if ts <= 0 {
		ts = mf.TileSize
	}
	if ts <= 0 {
		ts = MapTileSize
	}
	w, h := mf.Meta.MapPixelSize.W, mf.Meta.MapPixelSize.H
	if w <= 0 {
		w = int(DefaultMapWidth)
	}
	if h <= 0 {
		h = int(DefaultMapHeight)
	}
	cols, rows := max(1, w/ts), max(1, h/ts)

	g := &Grid{TileSize: ts, Walkable: make([][]bool, rows), Spawns: map[engine.Team][][2]int{}}
	for r := range g.Walkable {
		g.Walkable[r] = make([]bool, cols)
		for c := range g.Walkable[r] {
			g.Walkable[r][c] = true
		}
	}
	inside := func(t tileRef) bool { return t.X >= 0 && t.Y >= 0 && t.X < cols && t.Y < rows }
	for _, o := range mf.Obstacles {
		if inside(o) {
			g.Walkable[o.Y][o.X] = false
		}
	}
	for key, team := range map[string]engine.Team{"red": engine.TeamRed, "blue": engine.TeamBlue} {
		for _, t := range mf.Spawns[key].Tiles {
			if !inside(t) {
				continue
			}
			g.Walkable[t.Y][t.X] = true
			g.Spawns[team] = append(g.Spawns[team], [2]int{t.X, t.Y})
		}
	}
	return g, nil
}
