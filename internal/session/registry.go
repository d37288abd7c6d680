package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/squadfire/internal/protocol"
)

var (
	ErrServerFull     = errors.New("server is full")
	ErrNameTaken      = errors.New("name already in use")
	ErrEmptyName      = errors.New("name is empty")
	ErrUnknownSession = errors.New("no such session")
)

const DefaultMaxPlayers = 4

// Registry maps player names to sessions and fans messages out to them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string // join order, used for snapshots
	max      int
	log      *zap.Logger
	now      func() time.Time
}

func NewRegistry(maxPlayers int, log *zap.Logger) *Registry {
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	return &Registry{
		sessions: make(map[string]*Session),
		max:      maxPlayers,
		log:      log,
		now:      time.Now,
	}
}

func (r *Registry) Max() int { return r.max }

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Full() bool { return r.Len() >= r.max }

// Join admits a new session.
func (r *Registry) Join(name string, conn Conn, characterID string) (*Session, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	if len(r.sessions) >= r.max {
		return nil, ErrServerFull
	}
	s := New(name, conn, characterID, r.now())
	r.sessions[name] = s
	r.order = append(r.order, name)
	return s, nil
}

func (r *Registry) Get(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[name]
	return s, ok
}

// Remove drops name and tells everyone left. It is a no-op for unknown names.
func (r *Registry) Remove(name string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[name]
	if ok {
		delete(r.sessions, name)
		r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	}
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	err := multierr.Append(
		r.Broadcast(protocol.Encode(protocol.CmdRemove, name)),
		r.Broadcast(protocol.Encode(protocol.CmdChat, name+" left the game")),
	)
	if err != nil {
		r.log.Debug("leave notice not delivered everywhere", zap.String("player", name), zap.Error(err))
	}
	return s, true
}

// Sessions returns the current sessions in join order.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.sessions[n])
	}
	return out
}

// Broadcast sends msg to every session except those named in exclude.
// Each send is independent; failures are combined and returned for logging.
func (r *Registry) Broadcast(msg string, exclude ...string) error {
	var errs error
	for _, s := range r.Sessions() {
		if slices.Contains(exclude, s.Name) {
			continue
		}
		if err := s.Send(msg); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("send to %s: %w", s.Name, err))
		}
	}
	return errs
}

func (r *Registry) SendTo(name, msg string) error {
	s, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, name)
	}
	return s.Send(msg)
}

// CloseAll closes every connection, used on shutdown.
func (r *Registry) CloseAll() error {
	var errs error
	for _, s := range r.Sessions() {
		errs = multierr.Append(errs, s.Close())
	}
	return errs
}
