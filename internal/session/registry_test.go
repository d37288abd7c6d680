package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/squadfire/internal/session/sessiontest"
)

func TestRegistry_JoinCapacityAndNames(t *testing.T) {
	r := NewRegistry(2, zaptest.NewLogger(t))

	_, err := r.Join("alice", sessiontest.NewConn(), "")
	require.NoError(t, err)

	_, err = r.Join("alice", sessiontest.NewConn(), "")
	require.ErrorIs(t, err, ErrNameTaken)

	_, err = r.Join("", sessiontest.NewConn(), "")
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = r.Join("bob", sessiontest.NewConn(), "piper")
	require.NoError(t, err)
	assert.True(t, r.Full())

	_, err = r.Join("carol", sessiontest.NewConn(), "")
	require.ErrorIs(t, err, ErrServerFull)
	_, ok := r.Get("carol")
	assert.False(t, ok)
}

func TestRegistry_BroadcastExcludesAndIsolatesFailures(t *testing.T) {
	r := NewRegistry(4, zaptest.NewLogger(t))
	conns := map[string]*sessiontest.Conn{}
	for _, n := range []string{"a", "b", "c"} {
		conns[n] = sessiontest.NewConn()
		_, err := r.Join(n, conns[n], "")
		require.NoError(t, err)
	}

	// b's socket is gone; a and c still get the message
	require.NoError(t, conns["b"].Close())
	err := r.Broadcast("CHAT:hi", "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, sessiontest.ErrClosed)

	assert.Empty(t, conns["a"].Messages())
	assert.Equal(t, []string{"CHAT:hi"}, conns["c"].Messages())
}

func TestRegistry_RemoveBroadcastsNotice(t *testing.T) {
	r := NewRegistry(4, zaptest.NewLogger(t))
	a, b := sessiontest.NewConn(), sessiontest.NewConn()
	_, _ = r.Join("a", a, "")
	_, _ = r.Join("b", b, "")

	s, ok := r.Remove("a")
	require.True(t, ok)
	assert.Equal(t, "a", s.Name)
	assert.Equal(t, []string{"REMOVE:a", "CHAT:a left the game"}, b.Messages())
	assert.Empty(t, a.Messages())

	_, ok = r.Remove("a")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_SessionsKeepJoinOrder(t *testing.T) {
	r := NewRegistry(4, zaptest.NewLogger(t))
	for _, n := range []string{"z", "a", "m"} {
		_, _ = r.Join(n, sessiontest.NewConn(), "")
	}
	r.Remove("a")
	_, _ = r.Join("b", sessiontest.NewConn(), "")

	var names []string
	for _, s := range r.Sessions() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"z", "m", "b"}, names)
}

func TestRegistry_ConcurrentJoinLeave(t *testing.T) {
	r := NewRegistry(4, zaptest.NewLogger(t))
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("p%d", i)
			if _, err := r.Join(name, sessiontest.NewConn(), ""); err == nil {
				_ = r.Broadcast("CHAT:x")
				r.Remove(name)
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, r.Len())
	assert.Empty(t, r.Sessions())
}

func TestSendTo(t *testing.T) {
	r := NewRegistry(4, zaptest.NewLogger(t))
	c := sessiontest.NewConn()
	_, _ = r.Join("a", c, "")
	require.NoError(t, r.SendTo("a", "KILL:b"))
	require.ErrorIs(t, r.SendTo("ghost", "x"), ErrUnknownSession)
	assert.Equal(t, []string{"KILL:b"}, c.Messages())
}
