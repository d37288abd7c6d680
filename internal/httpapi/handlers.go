package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/DoyleJ11/squadfire/internal/server"
	"github.com/DoyleJ11/squadfire/pkg/types"
)

const (
	defaultMatchLimit = 20
	maxMatchLimit     = 100
)

// History lists recorded games, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]types.Match, error)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func Roster(srv *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := types.Roster{
			Version:    srv.Lobby.Current().Version,
			MaxPlayers: srv.Registry.Max(),
			Players:    []types.RosterPlayer{},
		}
		for _, s := range srv.Registry.Sessions() {
			out.Players = append(out.Players, types.RosterPlayer{
				Name:        s.Name,
				Team:        s.Team().String(),
				Ready:       s.Ready(),
				CharacterID: s.CharacterID(),
				HP:          s.HP(),
				MaxHP:       s.MaxHP(),
				Kills:       s.Kills(),
				Deaths:      s.Deaths(),
				JoinedAt:    s.JoinedAt,
			})
		}
		respondJSON(w, http.StatusOK, out)
	}
}

func MatchStatus(srv *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := srv.Match.State(r.Context())
		if err != nil {
			http.Error(w, "match loop unavailable", http.StatusServiceUnavailable)
			return
		}
		state := v.State.String()
		if !v.Running {
			state = "LOBBY"
		}
		respondJSON(w, http.StatusOK, types.MatchStatus{
			Running:          v.Running,
			State:            state,
			Round:            v.Round,
			MapID:            v.MapID,
			RedWins:          v.RedWins,
			BlueWins:         v.BlueWins,
			ReadyRemainingMS: v.ReadyRemaining.Milliseconds(),
			Kills:            v.Kills,
		})
	}
}

func Matches(history History, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			http.Error(w, "match history disabled", http.StatusServiceUnavailable)
			return
		}
		limit := defaultMatchLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxMatchLimit)
		}
		matches, err := history.Recent(r.Context(), limit)
		if err != nil {
			log.Error("list matches", zap.Error(err))
			http.Error(w, "failed to load matches", http.StatusInternalServerError)
			return
		}
		if matches == nil {
			matches = []types.Match{}
		}
		respondJSON(w, http.StatusOK, matches)
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
