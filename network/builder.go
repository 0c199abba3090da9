package network

import (
	"github.com/benbjohnson/clock"
	"github.com/cubium/spacore/datarecording"
	"github.com/cubium/spacore/monitoring"
	"github.com/cubium/spacore/spa"
	"github.com/cubium/spacore/spa/directconnection"
	"github.com/cubium/spacore/tracing"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

// Builder can be used to build a network.
type Builder struct {
	managerAddress spa.LogicalAddress
	queueSize      int
	monitorOn      bool
	monitorPort    int
	recordOn       bool
	recordPath     string
	logger         *zap.Logger
	clock          clock.Clock
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		managerAddress: spa.DefaultManagerAddress,
		queueSize:      64,
		monitorOn:      true,
		recordOn:       true,
	}
}

// WithManagerAddress sets the address the in-process subnet manager answers
// on.
func (b Builder) WithManagerAddress(addr spa.LogicalAddress) Builder {
	b.managerAddress = addr
	return b
}

// WithQueueSize sets the delivery queue size of every endpoint.
func (b Builder) WithQueueSize(n int) Builder {
	b.queueSize = n
	return b
}

// WithoutMonitoring sets the network to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithoutRecording sets the network to not record message traces.
func (b Builder) WithoutRecording() Builder {
	b.recordOn = false
	return b
}

// WithRecordPath sets the path of the trace database, without the
// ".sqlite3" suffix.
func (b Builder) WithRecordPath(path string) Builder {
	b.recordPath = path
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *zap.Logger) Builder {
	b.logger = l
	return b
}

// WithClock sets the clock used for trace timestamps.
func (b Builder) WithClock(c clock.Clock) Builder {
	b.clock = c
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordOn && b.recordPath != "" {
		panic("record path cannot be set when recording is disabled")
	}
}

// Build builds the network.
func (b Builder) Build() *Network {
	b.parametersMustBeValid()

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clk := b.clock
	if clk == nil {
		clk = clock.New()
	}

	n := &Network{
		id:            xid.New().String(),
		logger:        logger,
		clock:         clk,
		compNameIndex: make(map[string]int),
	}

	n.conn = directconnection.MakeBuilder().
		WithManagerAddress(b.managerAddress).
		WithQueueSize(b.queueSize).
		WithLogger(logger).
		Build("Network")

	if b.recordOn {
		path := b.recordPath
		if path == "" {
			path = "spacore_" + n.id
		}

		n.recorder = datarecording.New(path)
		n.tracer = tracing.NewMsgTracer(n.recorder, clk)
	}

	if b.monitorOn {
		n.monitor = monitoring.NewMonitor().WithLogger(logger)
		if b.monitorPort > 0 {
			n.monitor.WithPortNumber(b.monitorPort)
		}

		n.metrics = monitoring.NewMetricsHook(n.monitor.Registry())
	}

	return n
}
