package spa

import (
	"slices"

	"go.uber.org/zap"
)

// SubscriptionState is the progress of one subscription attempt.
type SubscriptionState int

// States of a subscription attempt. Acknowledged is terminal.
const (
	SubscriptionIdle SubscriptionState = iota
	SubscriptionRequested
	SubscriptionAcknowledged
)

func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionIdle:
		return "idle"
	case SubscriptionRequested:
		return "requested"
	case SubscriptionAcknowledged:
		return "acknowledged"
	default:
		return "unknown"
	}
}

// A SubscriptionAttempt is one subscription request issued by this
// component, tracked by dialog id.
type SubscriptionAttempt struct {
	DialogID uint16
	Producer LogicalAddress
	Divisor  uint16
	State    SubscriptionState
}

type subscribeConfig struct {
	priority    uint8
	leasePeriod uint32
	divisor     uint16
	viaManager  bool
}

// A SubscribeOption customizes a subscription request.
type SubscribeOption func(*subscribeConfig)

// WithPriority sets the priority field of the request.
func WithPriority(p uint8) SubscribeOption {
	return func(c *subscribeConfig) { c.priority = p }
}

// WithLeasePeriod sets the lease period field of the request. Leases are not
// enforced.
func WithLeasePeriod(p uint32) SubscribeOption {
	return func(c *subscribeConfig) { c.leasePeriod = p }
}

// WithDeliveryRateDivisor asks for one delivery every d publish ticks.
func WithDeliveryRateDivisor(d uint16) SubscribeOption {
	return func(c *subscribeConfig) { c.divisor = d }
}

// ViaManager relays the request through the subnet manager instead of
// sending it to the producer directly.
func ViaManager() SubscribeOption {
	return func(c *subscribeConfig) { c.viaManager = true }
}

// Subscribe asks producer to deliver its data to this component. It returns
// the dialog id of the attempt.
func (c *ComponentBase) Subscribe(
	producer LogicalAddress,
	opts ...SubscribeOption,
) (uint16, error) {
	cfg := subscribeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	dialogID := c.dialogIDs.Generate()

	builder := MakeSubscriptionRequestBuilder().
		WithSrc(c.address).
		WithDst(producer).
		WithDialogID(dialogID).
		WithProducer(producer).
		WithConsumer(c.address).
		WithPriority(cfg.priority).
		WithLeasePeriod(cfg.leasePeriod).
		WithDeliveryRateDivisor(cfg.divisor)

	if cfg.viaManager {
		builder = builder.
			WithDst(c.managerAddress).
			WithViaManager(c.managerAddress)
	}

	attempt := &SubscriptionAttempt{
		DialogID: dialogID,
		Producer: producer,
		Divisor:  cfg.divisor,
		State:    SubscriptionRequested,
	}

	// The reply may arrive before Send returns.
	c.dialogs.Add(dialogID, attempt)

	if err := c.Send(builder.Build()); err != nil {
		c.dialogs.Remove(dialogID)
		return 0, err
	}

	c.logger.Debug("subscription requested",
		zap.Stringer("producer", producer),
		zap.Uint16("dialog", dialogID),
		zap.Bool("via_manager", cfg.viaManager))

	return dialogID, nil
}

// SubscriptionState returns the state of the attempt with the given dialog
// id. Unknown or forgotten dialogs report Idle and false.
func (c *ComponentBase) SubscriptionState(
	dialogID uint16,
) (SubscriptionState, bool) {
	attempt, ok := c.dialogs.Get(dialogID)
	if !ok {
		return SubscriptionIdle, false
	}

	c.dialogLock.Lock()
	defer c.dialogLock.Unlock()

	return attempt.State, true
}

// Subscriptions lists the remembered subscription attempts ordered by dialog
// id.
func (c *ComponentBase) Subscriptions() []SubscriptionAttempt {
	attempts := c.dialogs.Values()

	c.dialogLock.Lock()
	out := make([]SubscriptionAttempt, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, *a)
	}
	c.dialogLock.Unlock()

	slices.SortFunc(out, func(a, b SubscriptionAttempt) int {
		return int(a.DialogID) - int(b.DialogID)
	})

	return out
}

// handleSubscriptionRequest runs the producer side of the handshake: reply,
// register, then publish once with the requester forced eligible.
func (c *ComponentBase) handleSubscriptionRequest(req *SubscriptionRequest) {
	consumer := req.Consumer
	if consumer.IsNull() {
		consumer = req.Src
	}

	reply := &SubscriptionReply{
		MsgMeta: MsgMeta{
			Src:      c.address,
			Dst:      req.Src,
			DialogID: req.DialogID,
		},
		Requester: consumer,
		Responder: c.address,
	}

	// A lost reply does not stop the subscription; Send already logged it.
	_ = c.Send(reply)

	if c.AddSubscriber(consumer, req.DeliveryRateDivisor) {
		c.logger.Debug("subscriber added",
			zap.Stringer("subscriber", consumer),
			zap.Uint16("divisor", req.DeliveryRateDivisor))
	}

	c.publish(&consumer)
}

// handleSubscriptionReply correlates a reply with its request. Replies are
// advisory; an unknown dialog is only logged.
func (c *ComponentBase) handleSubscriptionReply(reply *SubscriptionReply) {
	attempt, ok := c.dialogs.Get(reply.DialogID)
	if !ok {
		c.logger.Info("reply for unknown dialog",
			zap.Uint16("dialog", reply.DialogID),
			zap.Stringer("responder", reply.Responder))

		return
	}

	c.dialogLock.Lock()
	attempt.State = SubscriptionAcknowledged
	producer := attempt.Producer
	c.dialogLock.Unlock()

	if producer != reply.Responder {
		c.logger.Info("reply from unexpected responder",
			zap.Uint16("dialog", reply.DialogID),
			zap.Stringer("producer", producer),
			zap.Stringer("responder", reply.Responder))
	}
}
