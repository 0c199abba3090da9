// Package directconnection connects components that live in the same
// process. It also answers hellos and relays subscription requests on
// behalf of the subnet manager.
package directconnection

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/cubium/spacore/spa"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Comp is a DirectConnection that delivers messages between endpoints
// without any latency model.
type Comp struct {
	name           string
	managerAddress spa.LogicalAddress
	queueSize      int
	logger         *zap.Logger

	lock   sync.RWMutex
	ends   map[spa.LogicalAddress]*Endpoint
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

type delivery struct {
	frame   []byte
	payload []byte
}

// Name returns the name of the connection.
func (c *Comp) Name() string {
	return c.name
}

// ManagerAddress returns the address the connection answers for.
func (c *Comp) ManagerAddress() spa.LogicalAddress {
	return c.managerAddress
}

// PlugIn creates the endpoint for addr. Plugging in the same address twice
// returns the same endpoint.
func (c *Comp) PlugIn(addr spa.LogicalAddress) *Endpoint {
	c.lock.Lock()
	defer c.lock.Unlock()

	if addr == c.managerAddress {
		panic("cannot plug in at the manager address")
	}

	if end, ok := c.ends[addr]; ok {
		return end
	}

	end := &Endpoint{
		conn:  c,
		addr:  addr,
		queue: make(chan delivery, c.queueSize),
	}
	c.ends[addr] = end

	return end
}

// Addresses lists the registered endpoints in address order.
func (c *Comp) Addresses() []spa.LogicalAddress {
	c.lock.RLock()
	defer c.lock.RUnlock()

	addrs := make([]spa.LogicalAddress, 0, len(c.ends))
	for addr, end := range c.ends {
		if end.isRegistered() {
			addrs = append(addrs, addr)
		}
	}

	slices.SortFunc(addrs, spa.LogicalAddress.Compare)

	return addrs
}

// Close stops every delivery goroutine. Messages still queued are discarded.
func (c *Comp) Close() error {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return nil
	}
	c.closed = true
	c.lock.Unlock()

	c.cancel()

	return c.group.Wait()
}

func (c *Comp) start(end *Endpoint) error {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.closed {
		return spa.ErrClosed
	}

	c.group.Go(func() error {
		end.deliverLoop(c.ctx)
		return nil
	})

	return nil
}

// route forwards one encoded frame. Frames addressed to the manager are
// handled in place.
func (c *Comp) route(frame, payload []byte) error {
	c.lock.RLock()
	closed := c.closed
	c.lock.RUnlock()

	if closed {
		return spa.ErrClosed
	}

	msg, err := spa.UnmarshalMsg(frame)
	if err != nil {
		return err
	}

	dst := msg.Meta().Dst
	if dst == c.managerAddress {
		return c.handleManagerMsg(msg)
	}

	end := c.registeredEnd(dst)
	if end == nil {
		return fmt.Errorf("%s: %w", dst, spa.ErrUnreachable)
	}

	return end.enqueue(delivery{frame: frame, payload: payload})
}

func (c *Comp) registeredEnd(addr spa.LogicalAddress) *Endpoint {
	c.lock.RLock()
	defer c.lock.RUnlock()

	end, ok := c.ends[addr]
	if !ok || !end.isRegistered() {
		return nil
	}

	return end
}

func (c *Comp) handleManagerMsg(msg spa.Msg) error {
	switch msg := msg.(type) {
	case *spa.Hello:
		return c.handleHello(msg)
	case *spa.SubscriptionRequest:
		return c.relay(msg)
	default:
		c.logger.Info("manager ignored message",
			zap.Stringer("opcode", msg.Opcode()),
			zap.Stringer("src", msg.Meta().Src))

		return nil
	}
}

func (c *Comp) handleHello(hello *spa.Hello) error {
	c.lock.RLock()
	end, ok := c.ends[hello.Requester]
	c.lock.RUnlock()

	if !ok {
		return fmt.Errorf("hello from %s: %w", hello.Requester,
			spa.ErrUnreachable)
	}

	end.markRegistered()

	ack := &spa.LocalAck{
		MsgMeta: spa.MsgMeta{
			Src:      c.managerAddress,
			Dst:      hello.Requester,
			DialogID: hello.DialogID,
		},
		Assigned: hello.Requester,
	}

	frame, err := spa.MarshalMsg(ack)
	if err != nil {
		return err
	}

	c.logger.Debug("endpoint registered",
		zap.Stringer("addr", hello.Requester))

	return end.enqueue(delivery{frame: frame})
}

// relay forwards a subscription request to its producer. Only the
// destination changes; the consumer sees the producer's reply directly.
func (c *Comp) relay(req *spa.SubscriptionRequest) error {
	if req.Producer == c.managerAddress || req.Producer.IsNull() {
		return fmt.Errorf("relay to %s: %w", req.Producer,
			spa.ErrUnreachable)
	}

	relayed := *req
	relayed.Dst = req.Producer

	frame, err := spa.MarshalMsg(&relayed)
	if err != nil {
		return err
	}

	c.logger.Debug("subscription relayed",
		zap.Stringer("consumer", req.Consumer),
		zap.Stringer("producer", req.Producer))

	return c.route(frame, nil)
}
