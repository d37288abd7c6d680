package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/squadfire/internal/server"
)

func readUntil(t *testing.T, ctx context.Context, c *websocket.Conn, prefix string) string {
	t.Helper()
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err, "waiting for %s", prefix)
		if strings.HasPrefix(string(data), prefix) {
			return string(data)
		}
	}
}

func TestHandler_JoinOverWebsocket(t *testing.T) {
	log := zaptest.NewLogger(t)
	srv := server.New(server.DefaultConfig(), log)
	ts := httptest.NewServer(Handler(srv, log))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("JOIN:webby")))
	assert.Equal(t, "WELCOME:Welcome, webby!", readUntil(t, ctx, c, "WELCOME:"))
	assert.Equal(t, "TEAM_ROSTER:webby,0,false,raven", readUntil(t, ctx, c, "TEAM_ROSTER:"))

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("QUIT")))
	require.Eventually(t, func() bool { return srv.Registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_OriginPatterns(t *testing.T) {
	log := zaptest.NewLogger(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	dial := func(cfg server.Config) error {
		ts := httptest.NewServer(Handler(server.New(cfg, log), log))
		defer ts.Close()
		c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), &websocket.DialOptions{
			HTTPHeader: http.Header{"Origin": []string{"http://game.example.com"}},
		})
		if err == nil {
			c.Close(websocket.StatusNormalClosure, "")
		}
		return err
	}

	assert.Error(t, dial(server.DefaultConfig()), "foreign origin must be refused by default")

	cfg := server.DefaultConfig()
	cfg.WSOrigins = []string{"*.example.com"}
	assert.NoError(t, dial(cfg))
}
