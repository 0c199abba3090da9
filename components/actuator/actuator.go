// Package actuator provides a component that follows the decisions of a
// filter and reports its state as courier payloads.
package actuator

import (
	"fmt"
	"maps"
	"sync"

	"github.com/cubium/spacore/spa"
	"go.uber.org/zap"
)

// Comp is an actuator component.
type Comp struct {
	*spa.ComponentBase

	filterAddress spa.LogicalAddress
	divisor       uint16

	lock     sync.Mutex
	status   Status
	received bool
	peers    map[spa.LogicalAddress]Status
}

// Init subscribes to the filter through the subnet manager.
func (c *Comp) Init() error {
	_, err := c.Subscribe(c.filterAddress,
		spa.ViaManager(),
		spa.WithDeliveryRateDivisor(c.divisor))
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.filterAddress, err)
	}

	return nil
}

// HandleData applies a decision from the filter.
func (c *Comp) HandleData(msg *spa.Data) {
	decision, ok := spa.ValueAs[int32](msg.Value)
	if !ok {
		c.Logger().Warn("unexpected decision kind",
			zap.Stringer("src", msg.Src),
			zap.Stringer("kind", msg.Value.Kind))
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.received && decision != c.status.Decision {
		c.status.Switches++
	}

	c.status.Decision = decision
	c.status.Decisions++
	c.received = true
}

// SendData sends the current status to dst as a courier payload.
func (c *Comp) SendData(dst spa.LogicalAddress) {
	payload, _ := c.Status().MarshalBinary()

	_ = c.SendPayload(dst, payload)
}

// HandlePayload records the status reported by another actuator.
func (c *Comp) HandlePayload(src spa.LogicalAddress, payload []byte) {
	var s Status
	if err := s.UnmarshalBinary(payload); err != nil {
		c.Logger().Warn("bad status payload",
			zap.Stringer("src", src),
			zap.Error(err))
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.peers[src] = s
}

// Status returns the current status.
func (c *Comp) Status() Status {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.status
}

// Decision returns the last decision and whether any has arrived.
func (c *Comp) Decision() (int32, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.status.Decision, c.received
}

// Peers returns the last status reported by each peer.
func (c *Comp) Peers() map[spa.LogicalAddress]Status {
	c.lock.Lock()
	defer c.lock.Unlock()

	return maps.Clone(c.peers)
}
