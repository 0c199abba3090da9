package actuator

import (
	"github.com/benbjohnson/clock"
	"github.com/cubium/spacore/spa"
	"go.uber.org/zap"
)

// A Builder can build actuators.
type Builder struct {
	address        spa.LogicalAddress
	managerAddress spa.LogicalAddress
	filterAddress  spa.LogicalAddress
	divisor        uint16
	comm           spa.Communicator
	logger         *zap.Logger
	clock          clock.Clock
}

// MakeBuilder creates a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		managerAddress: spa.DefaultManagerAddress,
		divisor:        1,
	}
}

// WithAddress sets the address of the actuator.
func (b Builder) WithAddress(addr spa.LogicalAddress) Builder {
	b.address = addr
	return b
}

// WithManagerAddress sets the address of the local subnet manager.
func (b Builder) WithManagerAddress(addr spa.LogicalAddress) Builder {
	b.managerAddress = addr
	return b
}

// WithFilter sets the producer of decisions.
func (b Builder) WithFilter(addr spa.LogicalAddress) Builder {
	b.filterAddress = addr
	return b
}

// WithDeliveryRateDivisor sets the divisor requested from the filter.
func (b Builder) WithDeliveryRateDivisor(d uint16) Builder {
	b.divisor = d
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

// Build creates an actuator.
func (b Builder) Build(name string) *Comp {
	if b.filterAddress.IsNull() {
		panic("filter address is not given")
	}

	c := &Comp{
		filterAddress: b.filterAddress,
		divisor:       b.divisor,
		peers:         make(map[spa.LogicalAddress]Status),
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
