package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/squadfire/internal/protocol"
)

var ErrDisconnected = errors.New("server closed the connection")

// Sender is the outbound half of a connection.
type Sender interface {
	Send(msg string) error
}

// Conn is one TCP connection to the game server. Send may be called from
// any goroutine; Receive runs on its own.
type Conn struct {
	nc  net.Conn
	r   *bufio.Reader
	mu  sync.Mutex
	log *zap.Logger
}

func Dial(ctx context.Context, addr string, log *zap.Logger) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewConn(nc, log), nil
}

func NewConn(nc net.Conn, log *zap.Logger) *Conn {
	return &Conn{nc: nc, r: bufio.NewReader(nc), log: log}
}

// Send writes one frame. Writes are serialised so frames never interleave.
func (c *Conn) Send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return protocol.WriteFrame(c.nc, msg)
}

// Join announces the player. An empty characterID lets the server pick.
func (c *Conn) Join(name, characterID string) error {
	payload := name
	if characterID != "" {
		payload += ":" + characterID
	}
	return c.Send(protocol.Encode(protocol.CmdJoin, payload))
}

// Receive decodes frames onto out until the connection drops or ctx ends.
// It never touches game state.
func (c *Conn) Receive(ctx context.Context, out chan<- protocol.Message) error {
	stop := context.AfterFunc(ctx, func() { _ = c.nc.Close() })
	defer stop()

	for {
		raw, err := protocol.ReadFrame(c.r)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return ErrDisconnected
			}
			return fmt.Errorf("receive: %w", err)
		}
		msg, err := protocol.Decode(raw)
		if err != nil {
			c.log.Warn("dropping frame", zap.String("raw", raw), zap.Error(err))
			continue
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

// Quit tells the server we are leaving and closes the socket.
func (c *Conn) Quit() error {
	err := c.Send(protocol.CmdQuit)
	return multierr.Combine(err, c.nc.Close())
}

func (c *Conn) Close() error { return c.nc.Close() }
