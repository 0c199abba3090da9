// Package medianfilter provides a component that smooths a light and a
// temperature reading and publishes an on/off decision.
package medianfilter

import (
	"fmt"
	"sync"

	"github.com/cubium/spacore/spa"
	"go.uber.org/zap"
)

// Comp is a median filter component.
type Comp struct {
	*spa.ComponentBase

	lightAddress spa.LogicalAddress
	tempAddress  spa.LogicalAddress

	lock  sync.Mutex
	light *Stream
	temp  *Stream
}

// Init subscribes to both sensors through the subnet manager.
func (c *Comp) Init() error {
	for _, producer := range []spa.LogicalAddress{c.lightAddress, c.tempAddress} {
		if _, err := c.Subscribe(producer, spa.ViaManager()); err != nil {
			return fmt.Errorf("subscribe to %s: %w", producer, err)
		}
	}

	return nil
}

// HandleData folds a reading into the stream of its producer.
func (c *Comp) HandleData(msg *spa.Data) {
	v := msg.Value.Float64()

	c.lock.Lock()
	defer c.lock.Unlock()

	switch msg.Src {
	case c.lightAddress:
		c.light.In(v)
	case c.tempAddress:
		c.temp.In(v)
	default:
		c.Logger().Debug("data from unknown producer",
			zap.Stringer("src", msg.Src))
	}
}

// SendData sends the current decision to dst.
func (c *Comp) SendData(dst spa.LogicalAddress) {
	light, temp := c.Medians()

	_ = spa.SendScalar(c.ComponentBase, dst, Decide(light, temp))
}

// Medians returns the filtered light and temperature.
func (c *Comp) Medians() (light, temp float64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.light.Out(), c.temp.Out()
}

// Decide returns 1 when the light is in (80, 100] and the temperature is
// above zero, and 0 otherwise.
func Decide(light, temp float64) int32 {
	if light > 80 && light <= 100 && temp > 0 {
		return 1
	}

	return 0
}
