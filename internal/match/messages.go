package match

import (
	"time"

	"github.com/DoyleJ11/squadfire/internal/combat"
	"github.com/DoyleJ11/squadfire/internal/engine"
)

type Msg interface{ isMatchMsg() }

type StartGame struct {
	Requester string
	Reply     chan error
}

type PlayerDied struct {
	Event combat.DeathEvent
}

type PlayerLeft struct {
	Name string
}

// ChangeCharacter asks whether name may switch character right now and
// records the change when it may.
type ChangeCharacter struct {
	Name  string
	Reply chan error
}

type GetState struct {
	Reply chan View
}

type readyElapsed struct{ round int }

type bannerElapsed struct {
	round   int
	outcome engine.Outcome
}

func (StartGame) isMatchMsg()       {}
func (PlayerDied) isMatchMsg()      {}
func (PlayerLeft) isMatchMsg()      {}
func (ChangeCharacter) isMatchMsg() {}
func (GetState) isMatchMsg()        {}
func (readyElapsed) isMatchMsg()    {}
func (bannerElapsed) isMatchMsg()   {}

// View is a race-free copy of the match state.
type View struct {
	Running        bool
	State          engine.RoundState
	Round          int
	MapID          string
	RedWins        int
	BlueWins       int
	ReadyRemaining time.Duration
	Kills          int
}
