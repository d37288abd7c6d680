package server

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/DoyleJ11/squadfire/internal/protocol"
)

var (
	ErrSlowConsumer = errors.New("client outbox full")
	ErrConnClosed   = errors.New("connection closed")
)

// Transport moves whole frames. ReadFrame is only called from the
// connection goroutine, WriteFrame only from its writer.
type Transport interface {
	ReadFrame() (string, error)
	WriteFrame(msg string) error
	Close() error
	RemoteAddr() string
}

type tcpTransport struct {
	conn         net.Conn
	r            *bufio.Reader
	writeTimeout time.Duration
}

func NewTCPTransport(c net.Conn, writeTimeout time.Duration) Transport {
	return &tcpTransport{conn: c, r: bufio.NewReader(c), writeTimeout: writeTimeout}
}

func (t *tcpTransport) ReadFrame() (string, error) { return protocol.ReadFrame(t.r) }

func (t *tcpTransport) WriteFrame(msg string) error {
	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	return protocol.WriteFrame(t.conn, msg)
}

func (t *tcpTransport) Close() error       { return t.conn.Close() }
func (t *tcpTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }

// peer is the session.Conn for one client: Send queues, a writer goroutine
// drains the queue onto the transport.
type peer struct {
	t      Transport
	outbox chan string
	done   chan struct{}
	once   sync.Once
}

func newPeer(t Transport, size int) *peer {
	return &peer{t: t, outbox: make(chan string, size), done: make(chan struct{})}
}

func (p *peer) start() { go p.writeLoop() }

func (p *peer) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case msg := <-p.outbox:
			if err := p.t.WriteFrame(msg); err != nil {
				_ = p.Close()
				return
			}
		}
	}
}

func (p *peer) Send(msg string) error {
	select {
	case <-p.done:
		return ErrConnClosed
	default:
	}
	select {
	case p.outbox <- msg:
		return nil
	default:
		// Client is slow/full - drop them.
		_ = p.Close()
		return ErrSlowConsumer
	}
}

func (p *peer) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		err = p.t.Close()
	})
	return err
}
