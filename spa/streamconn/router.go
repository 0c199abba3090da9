package streamconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"

	"github.com/cubium/spacore/spa"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RouterBuilder can build routers.
type RouterBuilder struct {
	managerAddress   spa.LogicalAddress
	maxCourierLength uint32
	logger           *zap.Logger
}

// MakeRouterBuilder creates a RouterBuilder with default parameters.
func MakeRouterBuilder() RouterBuilder {
	return RouterBuilder{
		managerAddress:   spa.DefaultManagerAddress,
		maxCourierLength: spa.DefaultMaxCourierLength,
	}
}

// WithManagerAddress sets the address the router answers for.
func (b RouterBuilder) WithManagerAddress(
	addr spa.LogicalAddress,
) RouterBuilder {
	b.managerAddress = addr
	return b
}

// WithMaxCourierLength bounds the courier payloads the router forwards.
func (b RouterBuilder) WithMaxCourierLength(n uint32) RouterBuilder {
	b.maxCourierLength = n
	return b
}

// WithLogger sets the logger.
func (b RouterBuilder) WithLogger(l *zap.Logger) RouterBuilder {
	b.logger = l
	return b
}

// Build creates a new Router.
func (b RouterBuilder) Build() *Router {
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Router{
		managerAddress:   b.managerAddress,
		maxCourierLength: b.maxCourierLength,
		logger:           logger.With(zap.Stringer("manager", b.managerAddress)),
		routes:           make(map[spa.LogicalAddress]*route),
	}
}

// A Router accepts stream connections, answers their hellos and forwards
// every frame to the connection registered for its destination.
type Router struct {
	managerAddress   spa.LogicalAddress
	maxCourierLength uint32
	logger           *zap.Logger

	lock   sync.Mutex
	routes map[spa.LogicalAddress]*route
	conns  []net.Conn
}

type route struct {
	addr   spa.LogicalAddress
	conn   net.Conn
	writer *spa.MsgWriter
}

// ListenAndServe listens on the TCP address and serves until ctx is done.
func (r *Router) ListenAndServe(ctx context.Context, address string) error {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	return r.Serve(ctx, l)
}

// Serve accepts connections from l until ctx is done. A failing connection
// only takes down its own route.
func (r *Router) Serve(ctx context.Context, l net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()

		err := l.Close()
		r.closeAll()

		if errors.Is(err, net.ErrClosed) {
			return nil
		}

		return err
	})

	g.Go(func() error {
		r.logger.Info("router listening", zap.Stringer("addr", l.Addr()))

		for {
			conn, err := l.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}

				return err
			}

			r.track(conn)

			g.Go(func() error {
				r.serveConn(conn)
				return nil
			})
		}
	})

	return g.Wait()
}

// Routes lists the registered addresses in address order.
func (r *Router) Routes() []spa.LogicalAddress {
	r.lock.Lock()
	defer r.lock.Unlock()

	addrs := make([]spa.LogicalAddress, 0, len(r.routes))
	for addr := range r.routes {
		addrs = append(addrs, addr)
	}

	slices.SortFunc(addrs, spa.LogicalAddress.Compare)

	return addrs
}

func (r *Router) track(conn net.Conn) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.conns = append(r.conns, conn)
}

func (r *Router) untrack(conn net.Conn) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.conns = slices.DeleteFunc(r.conns, func(c net.Conn) bool {
		return c == conn
	})
}

func (r *Router) closeAll() {
	r.lock.Lock()
	conns := slices.Clone(r.conns)
	r.lock.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

func (r *Router) serveConn(conn net.Conn) {
	defer r.untrack(conn)
	defer conn.Close()

	reader := spa.NewMsgReader(conn).WithMaxCourierLength(r.maxCourierLength)
	logger := r.logger.With(zap.Stringer("remote", conn.RemoteAddr()))

	in, err := reader.ReadMsg()
	if err != nil {
		logger.Info("connection closed before hello", zap.Error(err))
		return
	}

	hello, ok := in.Msg.(*spa.Hello)
	if !ok {
		logger.Warn("first frame is not a hello",
			zap.Stringer("opcode", in.Msg.Opcode()))
		return
	}

	rt, err := r.register(conn, hello)
	if err != nil {
		logger.Warn("registration refused", zap.Error(err))
		return
	}
	defer r.unregister(rt)

	logger = logger.With(zap.Stringer("addr", rt.addr))

	for {
		in, err := reader.ReadMsg()
		if err != nil {
			if spa.IsFatal(err) {
				logger.Warn("route terminated", zap.Error(err))
			}

			return
		}

		r.forward(in, logger)
	}
}

func (r *Router) register(conn net.Conn, hello *spa.Hello) (*route, error) {
	addr := hello.Requester
	if addr.IsNull() || addr == r.managerAddress {
		return nil, fmt.Errorf("hello for %s: %w", addr, spa.ErrMalformedMsg)
	}

	rt := &route{addr: addr, conn: conn, writer: spa.NewMsgWriter(conn)}

	r.lock.Lock()
	if _, taken := r.routes[addr]; taken {
		r.lock.Unlock()
		return nil, fmt.Errorf("%s: %w", addr, spa.ErrDuplicateSetup)
	}
	r.routes[addr] = rt
	r.lock.Unlock()

	ack := &spa.LocalAck{
		MsgMeta: spa.MsgMeta{
			Src:      r.managerAddress,
			Dst:      addr,
			DialogID: hello.DialogID,
		},
		Assigned: addr,
	}

	if err := rt.writer.WriteMsg(ack); err != nil {
		r.unregister(rt)
		return nil, err
	}

	r.logger.Debug("route registered", zap.Stringer("addr", addr))

	return rt, nil
}

func (r *Router) unregister(rt *route) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.routes[rt.addr] == rt {
		delete(r.routes, rt.addr)
	}
}

func (r *Router) lookup(addr spa.LogicalAddress) *route {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.routes[addr]
}

func (r *Router) forward(in spa.Inbound, logger *zap.Logger) {
	meta := in.Msg.Meta()

	if meta.Dst == r.managerAddress {
		req, ok := in.Msg.(*spa.SubscriptionRequest)
		if !ok {
			logger.Info("manager ignored message",
				zap.Stringer("opcode", in.Msg.Opcode()))
			return
		}

		relayed := *req
		relayed.Dst = req.Producer
		in = spa.Inbound{Msg: &relayed}
		meta = relayed.Meta()
	}

	rt := r.lookup(meta.Dst)
	if rt == nil {
		logger.Info("no route",
			zap.Stringer("dst", meta.Dst),
			zap.Stringer("opcode", in.Msg.Opcode()))
		return
	}

	if err := rt.writer.WriteInbound(in); err != nil {
		logger.Info("forward failed",
			zap.Stringer("dst", meta.Dst),
			zap.Error(err))
	}
}
