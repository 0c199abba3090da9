package directconnection

import (
	"context"
	"fmt"
	"sync"

	"github.com/cubium/spacore/spa"
	"go.uber.org/zap"
)

// An Endpoint is the Communicator of one component plugged into a Comp.
// Inbound messages are delivered in order by a single goroutine.
type Endpoint struct {
	conn  *Comp
	addr  spa.LogicalAddress
	queue chan delivery

	lock       sync.Mutex
	receiver   spa.Receiver
	registered bool
}

// Address returns the address the endpoint was plugged in at.
func (e *Endpoint) Address() spa.LogicalAddress {
	return e.addr
}

// Register starts delivering to r and sends the hello to the manager. It may
// be called again with the same receiver to repeat the hello.
func (e *Endpoint) Register(hello *spa.Hello, r spa.Receiver) error {
	e.lock.Lock()
	if e.receiver != nil && e.receiver != r {
		e.lock.Unlock()
		return spa.ErrDuplicateSetup
	}
	start := e.receiver == nil
	e.receiver = r
	e.lock.Unlock()

	if start {
		if err := e.conn.start(e); err != nil {
			e.lock.Lock()
			e.receiver = nil
			e.lock.Unlock()

			return err
		}
	}

	return e.Send(hello)
}

// Send encodes m and routes it to its destination.
func (e *Endpoint) Send(m spa.Msg) error {
	if _, ok := m.(*spa.Courier); ok {
		return fmt.Errorf("courier sent without payload: %w",
			spa.ErrCourierLength)
	}

	frame, err := spa.MarshalMsg(m)
	if err != nil {
		return err
	}

	return e.conn.route(frame, nil)
}

// SendCourier routes a courier header together with its payload. Both are
// delivered as one unit.
func (e *Endpoint) SendCourier(c *spa.Courier, payload []byte) error {
	if uint64(len(payload)) != uint64(c.ByteLength) {
		return fmt.Errorf("courier announces %d bytes, payload has %d: %w",
			c.ByteLength, len(payload), spa.ErrCourierLength)
	}

	frame, err := spa.MarshalMsg(c)
	if err != nil {
		return err
	}

	return e.conn.route(frame, append([]byte(nil), payload...))
}

func (e *Endpoint) isRegistered() bool {
	e.lock.Lock()
	defer e.lock.Unlock()

	return e.registered
}

func (e *Endpoint) markRegistered() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.registered = true
}

func (e *Endpoint) enqueue(d delivery) error {
	select {
	case e.queue <- d:
		return nil
	default:
		return fmt.Errorf("%s: %w", e.addr, spa.ErrQueueFull)
	}
}

func (e *Endpoint) deliverLoop(ctx context.Context) {
	e.lock.Lock()
	r := e.receiver
	e.lock.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-e.queue:
			msg, err := spa.UnmarshalMsg(d.frame)
			if err != nil {
				e.conn.logger.Info("undeliverable frame dropped",
					zap.Stringer("dst", e.addr),
					zap.Error(err))

				continue
			}

			r.Receive(spa.Inbound{Msg: msg, Payload: d.payload})
		}
	}
}

var _ spa.Communicator = (*Endpoint)(nil)
