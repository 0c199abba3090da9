package sensor

import (
	"github.com/benbjohnson/clock"
	"github.com/cubium/spacore/spa"
	"go.uber.org/zap"
)

// A Builder can build sensors.
type Builder struct {
	address        spa.LogicalAddress
	managerAddress spa.LogicalAddress
	comm           spa.Communicator
	logger         *zap.Logger
	clock          clock.Clock
	initial        float32
	source         func() float32
}

// MakeBuilder creates a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		managerAddress: spa.DefaultManagerAddress,
	}
}

// WithAddress sets the address of the sensor.
func (b Builder) WithAddress(addr spa.LogicalAddress) Builder {
	b.address = addr
	return b
}

// WithManagerAddress sets the address of the local subnet manager.
func (b Builder) WithManagerAddress(addr spa.LogicalAddress) Builder {
	b.managerAddress = addr
	return b
}

// WithCommunicator sets the transport handle.
func (b Builder) WithCommunicator(c spa.Communicator) Builder {
	b.comm = c
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *zap.Logger) Builder {
	b.logger = l
	return b
}

// WithClock sets the clock driving the publish loop.
func (b Builder) WithClock(c clock.Clock) Builder {
	b.clock = c
	return b
}

// WithInitialReading sets the reading published before the first sample.
func (b Builder) WithInitialReading(v float32) Builder {
	b.initial = v
	return b
}

// WithSource sets a function that is sampled once per publish tick.
func (b Builder) WithSource(f func() float32) Builder {
	b.source = f
	return b
}

// Build creates a sensor.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		reading: b.initial,
		source:  b.source,
	}

	c.ComponentBase = spa.MakeComponentBuilder().
		WithAddress(b.address).
		WithManagerAddress(b.managerAddress).
		WithCommunicator(b.comm).
		WithLogger(b.logger).
		WithClock(b.clock).
		Build(name, c)

	if c.source != nil {
		c.AcceptHook(sampler{c: c})
	}

	return c
}
