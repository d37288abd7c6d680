package engine

import (
	"errors"
)

var (
	ErrTeamEmpty     = errors.New("both teams need at least one player")
	ErrTeamImbalance = errors.New("team sizes differ by more than 2")
	ErrNotAllReady   = errors.New("not every player is ready")
)

const MaxTeamSizeGap = 2

type Member struct {
	Name  string
	Team  Team
	Ready bool
	Alive bool
}

// CanStart validates a START request against the current roster.
func CanStart(members []Member) error {
	var red, blue int
	allReady := true
	for _, m := range members {
		if m.Team == TeamBlue {
			blue++
		} else {
			red++
		}
		if !m.Ready {
			allReady = false
		}
	}
	if red == 0 || blue == 0 {
		return ErrTeamEmpty
	}
	if abs(red-blue) > MaxTeamSizeGap {
		return ErrTeamImbalance
	}
	if !allReady {
		return ErrNotAllReady
	}
	return nil
}

// EliminationWinner reports the surviving team once one populated team has
// no living members. It needs at least two members; red is checked first.
func EliminationWinner(members []Member) (Team, bool) {
	if len(members) < 2 {
		return 0, false
	}
	var redTotal, redAlive, blueTotal, blueAlive int
	for _, m := range members {
		if m.Team == TeamBlue {
			blueTotal++
			if m.Alive {
				blueAlive++
			}
		} else {
			redTotal++
			if m.Alive {
				redAlive++
			}
		}
	}
	switch {
	case redTotal > 0 && redAlive == 0:
		return TeamBlue, true
	case blueTotal > 0 && blueAlive == 0:
		return TeamRed, true
	}
	return 0, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
