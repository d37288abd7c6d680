package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/squadfire/internal/server"
	"github.com/DoyleJ11/squadfire/internal/session"
)

var errBinaryFrame = errors.New("binary frames are not part of the protocol")

// Handler upgrades to a websocket and feeds it through the same
// per-connection pipeline as TCP clients. One text message is one frame.
func Handler(srv *server.Server, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if srv.Registry.Full() {
			http.Error(w, session.ErrServerFull.Error(), http.StatusServiceUnavailable)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: srv.Config().WSOrigins,
		})
		if err != nil {
			log.Debug("websocket accept", zap.String("origin", r.Header.Get("Origin")), zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		srv.Handle(r.Context(), &transport{
			conn:   conn,
			ctx:    r.Context(),
			remote: r.RemoteAddr,
		})
	}
}

type transport struct {
	conn   *websocket.Conn
	ctx    context.Context
	remote string
}

func (t *transport) ReadFrame() (string, error) {
	typ, data, err := t.conn.Read(t.ctx)
	if err != nil {
		return "", err
	}
	if typ != websocket.MessageText {
		return "", errBinaryFrame
	}
	return string(data), nil
}

func (t *transport) WriteFrame(msg string) error {
	ctx, cancel := context.WithTimeout(t.ctx, 3*time.Second)
	defer cancel()
	return t.conn.Write(ctx, websocket.MessageText, []byte(msg))
}

func (t *transport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "")
}

func (t *transport) RemoteAddr() string { return t.remote }
