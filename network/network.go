// Package network runs a set of components in one process, connected by a
// DirectConnection, with optional tracing and monitoring.
package network

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cubium/spacore/datarecording"
	"github.com/cubium/spacore/monitoring"
	"github.com/cubium/spacore/spa"
	"github.com/cubium/spacore/spa/directconnection"
	"github.com/cubium/spacore/tracing"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// A Component is anything a Network can run.
type Component interface {
	monitoring.Component
	spa.Hookable

	Register(ctx context.Context) error
	Run(ctx context.Context, period time.Duration) error
}

// A Network owns the connection and the observability collaborators of a
// set of components.
type Network struct {
	id     string
	logger *zap.Logger
	clock  clock.Clock

	conn     *directconnection.Comp
	recorder datarecording.DataRecorder
	tracer   *tracing.MsgTracer
	monitor  *monitoring.Monitor
	metrics  *monitoring.MetricsHook

	components    []Component
	compNameIndex map[string]int

	urlLock    sync.Mutex
	monitorURL string
}

// ID returns the unique id of the network.
func (n *Network) ID() string {
	return n.id
}

// Clock returns the clock shared by the network.
func (n *Network) Clock() clock.Clock {
	return n.clock
}

// Logger returns the logger of the network.
func (n *Network) Logger() *zap.Logger {
	return n.logger
}

// Connect creates the communicator for a component at addr.
func (n *Network) Connect(addr spa.LogicalAddress) spa.Communicator {
	return n.conn.PlugIn(addr)
}

// Connection returns the connection between components.
func (n *Network) Connection() *directconnection.Comp {
	return n.conn
}

// DataRecorder returns the trace recorder. It is nil when recording is off.
func (n *Network) DataRecorder() datarecording.DataRecorder {
	return n.recorder
}

// Tracer returns the message tracer. It is nil when recording is off.
func (n *Network) Tracer() *tracing.MsgTracer {
	return n.tracer
}

// Monitor returns the monitor. It is nil when monitoring is off.
func (n *Network) Monitor() *monitoring.Monitor {
	return n.monitor
}

// MonitorURL returns the address of the monitoring server once Run started
// it.
func (n *Network) MonitorURL() string {
	n.urlLock.Lock()
	defer n.urlLock.Unlock()

	return n.monitorURL
}

// RegisterComponent registers a component with the network and attaches the
// tracer, the metrics and the monitor to it.
func (n *Network) RegisterComponent(c Component) {
	name := c.Name()
	if _, ok := n.compNameIndex[name]; ok {
		panic("component " + name + " already registered")
	}

	n.components = append(n.components, c)
	n.compNameIndex[name] = len(n.components) - 1

	if n.tracer != nil {
		tracing.CollectMsgTrace(c, n.tracer)
	}

	if n.metrics != nil {
		c.AcceptHook(n.metrics)
	}

	if n.monitor != nil {
		n.monitor.RegisterComponent(c)
	}
}

// Components returns all the registered components.
func (n *Network) Components() []Component {
	return n.components
}

// GetComponentByName returns the component with the given name, or nil.
func (n *Network) GetComponentByName(name string) Component {
	i, ok := n.compNameIndex[name]
	if !ok {
		return nil
	}

	return n.components[i]
}

// Run registers every component with the subnet manager, then runs all of
// them until ctx is done or one of them fails.
func (n *Network) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		return spa.ErrInvalidPeriod
	}

	if err := n.startMonitor(); err != nil {
		return err
	}

	if err := n.registerAll(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range n.components {
		g.Go(func() error {
			if err := c.Run(ctx, period); err != nil {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}

			return nil
		})
	}

	return g.Wait()
}

func (n *Network) startMonitor() error {
	n.urlLock.Lock()
	defer n.urlLock.Unlock()

	if n.monitor == nil || n.monitorURL != "" {
		return nil
	}

	url, err := n.monitor.StartServer()
	if err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}

	n.monitorURL = url
	n.logger.Info("monitoring", zap.String("url", url))

	return nil
}

// registerAll completes every hello before any component starts
// subscribing, so that relayed requests always find their producer.
func (n *Network) registerAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range n.components {
		g.Go(func() error {
			if err := c.Register(ctx); err != nil {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}

			return nil
		})
	}

	return g.Wait()
}

// Close stops the connection and the monitor and flushes the recorder.
func (n *Network) Close() error {
	err := n.conn.Close()

	if n.monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		err = multierr.Append(err, n.monitor.Shutdown(ctx))
	}

	if n.recorder != nil {
		err = multierr.Append(err, n.recorder.Close())
	}

	return err
}
