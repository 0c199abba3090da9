// Package sensor provides a producer that publishes a single float32
// reading to its subscribers.
package sensor

import (
	"math/rand/v2"
	"sync"

	"github.com/cubium/spacore/spa"
	"go.uber.org/zap"
)

// Comp is a sensor component.
type Comp struct {
	*spa.ComponentBase

	lock    sync.Mutex
	reading float32
	source  func() float32
	sent    uint64
}

// Init does nothing. Sensors do not subscribe to anything.
func (c *Comp) Init() error {
	return nil
}

// HandleData ignores data. Sensors are pure producers.
func (c *Comp) HandleData(msg *spa.Data) {
	c.Logger().Debug("sensor ignores data", zap.Stringer("src", msg.Src))
}

// SendData sends the current reading to dst.
func (c *Comp) SendData(dst spa.LogicalAddress) {
	c.lock.Lock()
	v := c.reading
	c.sent++
	c.lock.Unlock()

	_ = spa.SendScalar(c.ComponentBase, dst, v)
}

// sampler pulls one value from the source at the start of every publish
// tick, so all subscribers served by a tick see the same reading.
type sampler struct {
	c *Comp
}

func (h sampler) Func(ctx spa.HookCtx) {
	if ctx.Pos != spa.HookPosPublishTick {
		return
	}

	h.c.lock.Lock()
	defer h.c.lock.Unlock()

	h.c.reading = h.c.source()
}

// Sample sets the reading that later sends will carry.
func (c *Comp) Sample(v float32) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.reading = v
}

// Reading returns the current reading.
func (c *Comp) Reading() float32 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.reading
}

// NumSent returns how many values were produced.
func (c *Comp) NumSent() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.sent
}

// RandomWalk returns a source that starts at start and moves by at most step
// on every call, staying within [lo, hi].
func RandomWalk(start, step, lo, hi float32, seed uint64) func() float32 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	v := start

	return func() float32 {
		v += (rng.Float32()*2 - 1) * step
		v = min(max(v, lo), hi)

		return v
	}
}
