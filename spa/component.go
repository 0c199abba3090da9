package spa

import (
	"fmt"
	"math"
	"sync"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// ComponentBase binds an address, a subscriber registry and the protocol
// logic. Concrete components embed it and pass themselves as the Domain.
type ComponentBase struct {
	*HookableBase

	name           string
	address        LogicalAddress
	managerAddress LogicalAddress

	comm   Communicator
	domain Domain
	logger *zap.Logger
	clock  clock.Clock

	subscribers *SubscriberRegistry
	dialogIDs   *DialogIDGenerator

	// tickLock serializes publish ticks and guards publishCycle.
	tickLock     sync.Mutex
	publishCycle uint64

	regLock    sync.Mutex
	regState   RegistrationState
	registered chan struct{}

	dialogLock sync.Mutex
	dialogs    *lru.Cache[uint16, *SubscriptionAttempt]
}

// ComponentBuilder can build ComponentBase objects.
type ComponentBuilder struct {
	address         LogicalAddress
	managerAddress  LogicalAddress
	comm            Communicator
	logger          *zap.Logger
	clock           clock.Clock
	duplicatePolicy DuplicatePolicy
	dialogTableSize int
}

// MakeComponentBuilder creates a ComponentBuilder with default parameters.
func MakeComponentBuilder() ComponentBuilder {
	return ComponentBuilder{
		managerAddress:  DefaultManagerAddress,
		duplicatePolicy: RejectDuplicates,
		dialogTableSize: 256,
	}
}

// WithAddress sets the address of the component.
func (b ComponentBuilder) WithAddress(addr LogicalAddress) ComponentBuilder {
	b.address = addr
	return b
}

// WithManagerAddress sets the address of the local subnet manager.
func (b ComponentBuilder) WithManagerAddress(
	addr LogicalAddress,
) ComponentBuilder {
	b.managerAddress = addr
	return b
}

// WithCommunicator sets the transport handle used by the component.
func (b ComponentBuilder) WithCommunicator(c Communicator) ComponentBuilder {
	b.comm = c
	return b
}

// WithLogger sets the logger. Components log nothing by default.
func (b ComponentBuilder) WithLogger(l *zap.Logger) ComponentBuilder {
	b.logger = l
	return b
}

// WithClock sets the clock driving the publish loop.
func (b ComponentBuilder) WithClock(c clock.Clock) ComponentBuilder {
	b.clock = c
	return b
}

// WithDuplicatePolicy sets how repeated subscriptions are handled.
func (b ComponentBuilder) WithDuplicatePolicy(
	p DuplicatePolicy,
) ComponentBuilder {
	b.duplicatePolicy = p
	return b
}

// WithDialogTableSize sets how many outstanding subscription attempts are
// remembered.
func (b ComponentBuilder) WithDialogTableSize(n int) ComponentBuilder {
	b.dialogTableSize = n
	return b
}

func (b ComponentBuilder) parametersMustBeValid(domain Domain) {
	if domain == nil {
		panic("domain is not given")
	}

	if b.comm == nil {
		panic("communicator is not given")
	}

	if b.dialogTableSize <= 0 {
		panic("dialog table size must be positive")
	}
}

// Build creates a ComponentBase that calls back into domain.
func (b ComponentBuilder) Build(name string, domain Domain) *ComponentBase {
	b.parametersMustBeValid(domain)

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clk := b.clock
	if clk == nil {
		clk = clock.New()
	}

	dialogs, err := lru.New[uint16, *SubscriptionAttempt](b.dialogTableSize)
	if err != nil {
		panic(err)
	}

	c := &ComponentBase{
		HookableBase:   NewHookableBase(),
		name:           name,
		address:        b.address,
		managerAddress: b.managerAddress,
		comm:           b.comm,
		domain:         domain,
		clock:          clk,
		subscribers:    NewSubscriberRegistry(b.duplicatePolicy),
		dialogIDs:      NewDialogIDGenerator(),
		registered:     make(chan struct{}),
		dialogs:        dialogs,
	}

	c.logger = logger.With(
		zap.String("component", name),
		zap.Stringer("addr", b.address),
	)

	return c
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}

// Address returns the logical address of the component.
func (c *ComponentBase) Address() LogicalAddress {
	return c.address
}

// ManagerAddress returns the address of the local subnet manager.
func (c *ComponentBase) ManagerAddress() LogicalAddress {
	return c.managerAddress
}

// Logger returns the component logger.
func (c *ComponentBase) Logger() *zap.Logger {
	return c.logger
}

// Subscribers returns a snapshot of the subscriber registry.
func (c *ComponentBase) Subscribers() []Subscriber {
	return c.subscribers.Snapshot()
}

// SortedSubscribers returns the subscribers ordered by address.
func (c *ComponentBase) SortedSubscribers() []Subscriber {
	return c.subscribers.Sorted()
}

// PublishCycle returns the cycle number the next publish tick will use.
func (c *ComponentBase) PublishCycle() uint64 {
	c.tickLock.Lock()
	defer c.tickLock.Unlock()

	return c.publishCycle
}

// AddSubscriber registers a consumer. A rejected duplicate is logged and
// leaves the existing entry untouched.
func (c *ComponentBase) AddSubscriber(
	addr LogicalAddress,
	divisor uint16,
) bool {
	added := c.subscribers.Add(addr, divisor)
	if !added {
		c.logger.Info("duplicate subscription ignored",
			zap.Stringer("subscriber", addr),
			zap.Uint16("divisor", divisor))
	}

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosSubscriberAdded,
		Item:   Subscriber{Address: addr, DeliveryRateDivisor: divisor},
		Detail: added,
	})

	return added
}

// Publish runs one publish tick: every subscriber due on this cycle gets one
// SendData call.
func (c *ComponentBase) Publish() {
	c.publish(nil)
}

// publish runs a tick. A subscriber whose address equals force is eligible
// regardless of its divisor.
//
// tickLock is held across the SendData calls, so ticks never interleave. A
// subscription request arriving during a tick waits for it on the goroutine
// that delivered the request.
func (c *ComponentBase) publish(force *LogicalAddress) {
	c.tickLock.Lock()
	defer c.tickLock.Unlock()

	cycle := c.publishCycle
	c.publishCycle++

	subs := c.subscribers.Snapshot()

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosPublishTick,
		Item:   cycle,
		Detail: len(subs),
	})

	for _, s := range subs {
		forced := force != nil && s.Address == *force
		if forced || s.EligibleAt(cycle) {
			c.domain.SendData(s.Address)
		}
	}
}

// Send hands a message to the communicator. An unset source is filled with
// the component address. Failures are logged and returned; the core never
// retries.
func (c *ComponentBase) Send(msg Msg) error {
	meta := msg.Meta()
	if meta.Src.IsNull() {
		meta.Src = c.address
	}

	if err := c.comm.Send(msg); err != nil {
		c.logger.Warn("send failed",
			zap.Stringer("opcode", msg.Opcode()),
			zap.Stringer("dst", meta.Dst),
			zap.Error(err))

		return err
	}

	c.InvokeHook(HookCtx{Domain: c, Pos: HookPosMsgSend, Item: msg})

	return nil
}

// SendValue sends one Data message carrying v to dst.
func (c *ComponentBase) SendValue(dst LogicalAddress, v Value) error {
	msg := MakeDataBuilder().
		WithSrc(c.address).
		WithDst(dst).
		WithValue(v).
		Build()

	return c.Send(msg)
}

// SendScalar sends one Data message carrying v to dst.
func SendScalar[T Scalar](c *ComponentBase, dst LogicalAddress, v T) error {
	return c.SendValue(dst, NewValue(v))
}

// SendPayload sends a variable-length payload to dst as a courier transfer.
func (c *ComponentBase) SendPayload(dst LogicalAddress, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("payload of %d bytes: %w", len(payload), ErrCourierLength)
	}

	courier := &Courier{
		MsgMeta:    MsgMeta{Src: c.address, Dst: dst},
		ByteLength: uint32(len(payload)),
	}

	if err := c.comm.SendCourier(courier, payload); err != nil {
		c.logger.Warn("courier send failed",
			zap.Stringer("dst", dst),
			zap.Int("bytes", len(payload)),
			zap.Error(err))

		return err
	}

	c.InvokeHook(HookCtx{Domain: c, Pos: HookPosMsgSend, Item: courier})

	return nil
}

// Receive dispatches one inbound message. It is safe to call from any number
// of goroutines.
func (c *ComponentBase) Receive(in Inbound) {
	if in.Msg == nil {
		c.drop(nil, fmt.Errorf("nil message: %w", ErrMalformedMsg))
		return
	}

	switch msg := in.Msg.(type) {
	case *SubscriptionRequest:
		c.accept(msg)
		c.handleSubscriptionRequest(msg)
	case *SubscriptionReply:
		c.accept(msg)
		c.handleSubscriptionReply(msg)
	case *Data:
		c.accept(msg)
		c.domain.HandleData(msg)
	case *Courier:
		c.handleCourier(msg, in.Payload)
	case *LocalAck:
		c.accept(msg)
		c.handleLocalAck(msg)
	default:
		c.drop(msg, fmt.Errorf("%s not handled by components: %w",
			msg.Opcode(), ErrUnknownOpcode))
	}
}

// ReceiveFrame decodes a raw frame and dispatches it. Frames that do not
// decode are logged and dropped.
func (c *ComponentBase) ReceiveFrame(frame []byte) {
	msg, err := UnmarshalMsg(frame)
	if err != nil {
		c.drop(nil, err)
		return
	}

	c.Receive(Inbound{Msg: msg})
}

func (c *ComponentBase) handleCourier(msg *Courier, payload []byte) {
	if uint64(len(payload)) != uint64(msg.ByteLength) {
		c.drop(msg, fmt.Errorf("courier announces %d bytes, got %d: %w",
			msg.ByteLength, len(payload), ErrCourierLength))
		return
	}

	handler, ok := c.domain.(PayloadHandler)
	if !ok {
		c.drop(msg, fmt.Errorf("%s does not accept payloads", c.name))
		return
	}

	c.accept(msg)
	handler.HandlePayload(msg.Src, payload)
}

func (c *ComponentBase) accept(msg Msg) {
	c.InvokeHook(HookCtx{Domain: c, Pos: HookPosMsgRecv, Item: msg})
}

func (c *ComponentBase) drop(msg Msg, reason error) {
	fields := []zap.Field{zap.Error(reason)}
	if msg != nil {
		fields = append(fields,
			zap.Stringer("opcode", msg.Opcode()),
			zap.Stringer("src", msg.Meta().Src))
	}

	c.logger.Info("message dropped", fields...)

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosMsgDropped,
		Item:   msg,
		Detail: reason,
	})
}
