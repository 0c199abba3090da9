// Package streamconn carries messages over ordered byte streams such as TCP
// connections. A Session is the Communicator of one component; a Router
// plays the subnet manager for the sessions connected to it.
package streamconn

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/cubium/spacore/spa"
	"go.uber.org/zap"
)

// A Session is a Communicator over one stream connection.
type Session struct {
	conn   net.Conn
	writer *spa.MsgWriter
	reader *spa.MsgReader
	logger *zap.Logger

	lock     sync.Mutex
	receiver spa.Receiver
	closing  bool

	done chan struct{}
	err  error
}

// NewSession wraps an established connection.
func NewSession(conn net.Conn, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		conn:   conn,
		writer: spa.NewMsgWriter(conn),
		reader: spa.NewMsgReader(conn),
		logger: logger.With(zap.Stringer("remote", conn.RemoteAddr())),
		done:   make(chan struct{}),
	}
}

// Dial connects to a router listening on address.
func Dial(
	ctx context.Context,
	address string,
	logger *zap.Logger,
) (*Session, error) {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	return NewSession(conn, logger), nil
}

// Register starts the read loop delivering to r and sends the hello.
func (s *Session) Register(hello *spa.Hello, r spa.Receiver) error {
	s.lock.Lock()
	if s.receiver != nil {
		s.lock.Unlock()
		return spa.ErrDuplicateSetup
	}
	s.receiver = r
	s.lock.Unlock()

	go s.readLoop()

	return s.Send(hello)
}

// Send writes one message to the stream.
func (s *Session) Send(m spa.Msg) error {
	if s.isClosing() {
		return spa.ErrClosed
	}

	return s.writer.WriteMsg(m)
}

// SendCourier writes a courier header immediately followed by its payload.
func (s *Session) SendCourier(c *spa.Courier, payload []byte) error {
	if s.isClosing() {
		return spa.ErrClosed
	}

	return s.writer.WriteCourier(c, payload)
}

// Wait blocks until the read loop stops. It returns the framing error that
// ended the session, or nil when the stream was closed.
func (s *Session) Wait() error {
	<-s.done
	return s.err
}

// Done is closed when the read loop stops.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	s.lock.Lock()
	s.closing = true
	s.lock.Unlock()

	err := s.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

func (s *Session) isClosing() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.closing
}

func (s *Session) readLoop() {
	defer close(s.done)

	s.lock.Lock()
	r := s.receiver
	s.lock.Unlock()

	for {
		in, err := s.reader.ReadMsg()
		if err != nil {
			s.finish(err)
			return
		}

		r.Receive(in)
	}
}

func (s *Session) finish(err error) {
	if errors.Is(err, io.EOF) || s.isClosing() {
		_ = s.Close()
		return
	}

	s.logger.Warn("session terminated", zap.Error(err))
	s.err = err
	_ = s.Close()
}

var _ spa.Communicator = (*Session)(nil)
