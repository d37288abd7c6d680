package server

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/squadfire/internal/protocol"
)

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return &testClient{t: t, conn: c, r: bufio.NewReader(c)}
}

func (c *testClient) send(msg string) {
	c.t.Helper()
	require.NoError(c.t, protocol.WriteFrame(c.conn, msg))
}

// expect reads frames until one starts with prefix, failing after a timeout.
func (c *testClient) expect(prefix string) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		msg, err := protocol.ReadFrame(c.r)
		require.NoError(c.t, err, "waiting for %s", prefix)
		if strings.HasPrefix(msg, prefix) {
			return msg
		}
	}
}

func (c *testClient) join(name string) {
	c.t.Helper()
	c.send("JOIN:" + name)
	c.expect("WELCOME:")
}

func startServer(t *testing.T, maxPlayers int) (*Server, string) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxPlayers = maxPlayers
	srv := New(cfg, zaptest.NewLogger(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return srv, ln.Addr().String()
}

func TestServer_JoinSequence(t *testing.T) {
	srv, addr := startServer(t, 4)

	a := dial(t, addr)
	a.join("alice")
	a.expect("TEAM_ROSTER:alice,0,false,raven")

	b := dial(t, addr)
	b.send("JOIN:bob:piper")
	b.expect("WELCOME:")
	assert.Equal(t, "STATS:alice,0,0,100,raven", b.expect("STATS:alice"))
	assert.Equal(t, "STATS:bob,0,0,80,piper", b.expect("STATS:bob"))
	b.expect("TEAM_ROSTER:alice,0,false,raven;bob,0,false,piper")

	assert.Equal(t, "CHAT:bob joined", a.expect("CHAT:"))
	a.expect("STATS:bob,0,0,80,piper")
	a.expect("TEAM_ROSTER:alice,0,false,raven;bob,0,false,piper")

	assert.Equal(t, 2, srv.Registry.Len())
}

func TestServer_RejectsWhenFull(t *testing.T) {
	srv, addr := startServer(t, 1)

	a := dial(t, addr)
	a.join("alice")

	b := dial(t, addr)
	assert.Equal(t, "REJECT:server is full", b.expect("REJECT:"))
	_, err := protocol.ReadFrame(b.r)
	require.Error(t, err)

	assert.Equal(t, 1, srv.Registry.Len())
	_, ok := srv.Registry.Get("bob")
	assert.False(t, ok)
}

func TestServer_RejectsDuplicateName(t *testing.T) {
	_, addr := startServer(t, 4)
	a := dial(t, addr)
	a.join("alice")

	b := dial(t, addr)
	b.send("JOIN:alice")
	assert.Contains(t, b.expect("REJECT:"), "name already in use")
}

func TestServer_CombatOverTheWire(t *testing.T) {
	_, addr := startServer(t, 4)
	a := dial(t, addr)
	a.join("alice")
	b := dial(t, addr)
	b.join("bob")

	a.send("HIT:bob")
	assert.Equal(t, "STATS:bob,0,0,80,raven", b.expect("STATS:bob,0,0,80"))
	a.expect("HIT:")

	b.send("HITME:alice")
	assert.Equal(t, "STATS:bob,0,0,60,raven", a.expect("STATS:bob,0,0,60"))

	for range 3 {
		a.send("HIT:bob")
	}
	assert.Equal(t, "KILL:bob", a.expect("KILL:"))
	b.expect("STATS:bob,0,1,0,raven")

	b.send("RESPAWN:300,400")
	b.expect("STATS:bob,0,1,100,raven")
	assert.Equal(t, "PLAYER:bob,300,400,0,100,raven,0", a.expect("PLAYER:bob"))
}

func TestServer_ChatPosAndQuit(t *testing.T) {
	_, addr := startServer(t, 4)
	a := dial(t, addr)
	a.join("alice")
	b := dial(t, addr)
	b.join("bob")

	b.send("CHAT:hello: world")
	assert.Equal(t, "CHAT:bob: hello: world", a.expect("CHAT:bob:"))

	b.send("POS:12.5,40,3")
	assert.Equal(t, "PLAYER:bob,12,40,0,100,raven,3", a.expect("PLAYER:bob"))

	b.send("garbage without separator")
	b.send("NOPE:1")
	b.send("QUIT")
	a.expect("REMOVE:bob")
	a.expect("TEAM_ROSTER:alice,0,false,raven")
}

func TestServer_LobbyStartFlow(t *testing.T) {
	_, addr := startServer(t, 4)
	a := dial(t, addr)
	a.join("alice")
	b := dial(t, addr)
	b.join("bob")

	a.send("START")
	assert.Contains(t, a.expect("START_DENIED:"), "both teams")

	b.send("TEAM:1")
	a.expect("TEAM_ROSTER:alice,0,false,raven;bob,1,false,raven")
	b.send("CHARACTER_SELECT:general")
	a.expect("CHARACTER_SELECT:bob,general")
	a.send("READY")
	b.send("READY")
	a.expect("TEAM_ROSTER:alice,0,true,raven;bob,1,true,general")

	a.send("START")
	a.expect("GAME_START")
	assert.Equal(t, "ROUND_START:1,map;2;alice,raven,100,100;bob,general,120,120", b.expect("ROUND_START:"))

	// one change per round while waiting
	b.send("CHARACTER_SELECT:raven")
	b.expect("CHARACTER_SELECT:bob,raven")
	b.send("CHARACTER_SELECT:piper")
	assert.Contains(t, b.expect("CHARACTER_DENIED:"), "already changed")
}
