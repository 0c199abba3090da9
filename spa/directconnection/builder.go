package directconnection

import (
	"context"

	"github.com/cubium/spacore/spa"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Builder can help building directconnection.
type Builder struct {
	managerAddress spa.LogicalAddress
	queueSize      int
	logger         *zap.Logger
}

// MakeBuilder creates a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		managerAddress: spa.DefaultManagerAddress,
		queueSize:      64,
	}
}

// WithManagerAddress sets the address the connection answers hellos and
// relays subscription requests on.
func (b Builder) WithManagerAddress(addr spa.LogicalAddress) Builder {
	b.managerAddress = addr
	return b
}

// WithQueueSize sets the number of messages each endpoint can buffer.
func (b Builder) WithQueueSize(n int) Builder {
	b.queueSize = n
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *zap.Logger) Builder {
	b.logger = l
	return b
}

// Build creates a new connection.
func (b Builder) Build(name string) *Comp {
	if b.queueSize <= 0 {
		panic("queue size must be positive")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	return &Comp{
		name:           name,
		managerAddress: b.managerAddress,
		queueSize:      b.queueSize,
		logger:         logger.With(zap.String("conn", name)),
		ends:           make(map[spa.LogicalAddress]*Endpoint),
		ctx:            ctx,
		cancel:         cancel,
		group:          group,
	}
}
