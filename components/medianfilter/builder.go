package medianfilter

import (
	"github.com/benbjohnson/clock"
	"github.com/cubium/spacore/spa"
	"go.uber.org/zap"
)

// A Builder can build median filters.
type Builder struct {
	address        spa.LogicalAddress
	managerAddress spa.LogicalAddress
	lightAddress   spa.LogicalAddress
	tempAddress    spa.LogicalAddress
	comm           spa.Communicator
	logger         *zap.Logger
	clock          clock.Clock
	window         int
}

// MakeBuilder creates a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		managerAddress: spa.DefaultManagerAddress,
		window:         10,
	}
}

// WithAddress sets the address of the filter.
func (b Builder) WithAddress(addr spa.LogicalAddress) Builder {
	b.address = addr
	return b
}

// WithManagerAddress sets the address of the local subnet manager.
func (b Builder) WithManagerAddress(addr spa.LogicalAddress) Builder {
	b.managerAddress = addr
	return b
}

// WithLightSensor sets the producer of light readings.
func (b Builder) WithLightSensor(addr spa.LogicalAddress) Builder {
	b.lightAddress = addr
	return b
}

// WithTempSensor sets the producer of temperature readings.
func (b Builder) WithTempSensor(addr spa.LogicalAddress) Builder {
	b.tempAddress = addr
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

// WithWindow sets the number of samples each median is taken over.
func (b Builder) WithWindow(n int) Builder {
	b.window = n
	return b
}

// Build creates a median filter.
func (b Builder) Build(name string) *Comp {
	if b.lightAddress.IsNull() || b.tempAddress.IsNull() {
		panic("sensor addresses are not given")
	}

	c := &Comp{
		lightAddress: b.lightAddress,
		tempAddress:  b.tempAddress,
		light:        NewStream(b.window),
		temp:         NewStream(b.window),
	}

	c.ComponentBase = spa.MakeComponentBuilder().
		WithAddress(b.address).
		WithManagerAddress(b.managerAddress).
		WithCommunicator(b.comm).
		WithLogger(b.logger).
		WithClock(b.clock).
		Build(name, c)

	return c
}
