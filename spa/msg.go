package spa

// MsgMeta is the envelope header attached to every message.
type MsgMeta struct {
	Src, Dst LogicalAddress
	DialogID uint16
}

// A Msg is a piece of information that is transferred between components.
//
// The set of messages is closed: only the types in this package implement
// Msg, and the opcode of a message determines its shape.
type Msg interface {
	Meta() *MsgMeta
	Opcode() Opcode

	sealed()
}

// Hello asks the subnet manager to register the requester.
type Hello struct {
	MsgMeta

	Requester LogicalAddress
	Target    LogicalAddress

	// Reserved is kept on the wire for future negotiation.
	Reserved [8]byte
}

// Meta returns the meta data of the message.
func (m *Hello) Meta() *MsgMeta { return &m.MsgMeta }

// Opcode returns OpLocalHello.
func (m *Hello) Opcode() Opcode { return OpLocalHello }

func (m *Hello) sealed() {}

// LocalAck is the subnet manager's answer to a Hello.
type LocalAck struct {
	MsgMeta

	Assigned LogicalAddress
}

// Meta returns the meta data of the message.
func (m *LocalAck) Meta() *MsgMeta { return &m.MsgMeta }

// Opcode returns OpLocalAck.
func (m *LocalAck) Opcode() Opcode { return OpLocalAck }

func (m *LocalAck) sealed() {}

// SubscriptionRequest asks a producer to accept a new subscriber.
type SubscriptionRequest struct {
	MsgMeta

	Producer   LogicalAddress
	Consumer   LogicalAddress
	ViaManager LogicalAddress

	Priority uint8

	// LeasePeriod is carried on the wire but not enforced.
	LeasePeriod         uint32
	DeliveryRateDivisor uint16
}

// Meta returns the meta data of the message.
func (m *SubscriptionRequest) Meta() *MsgMeta { return &m.MsgMeta }

// Opcode returns OpSubscriptionRequest.
func (m *SubscriptionRequest) Opcode() Opcode { return OpSubscriptionRequest }

func (m *SubscriptionRequest) sealed() {}

// SubscriptionReply acknowledges a SubscriptionRequest.
type SubscriptionReply struct {
	MsgMeta

	Requester LogicalAddress
	Responder LogicalAddress
}

// Meta returns the meta data of the message.
func (m *SubscriptionReply) Meta() *MsgMeta { return &m.MsgMeta }

// Opcode returns OpSubscriptionReply.
func (m *SubscriptionReply) Opcode() Opcode { return OpSubscriptionReply }

func (m *SubscriptionReply) sealed() {}

// Data carries one typed value from a producer to a subscriber.
type Data struct {
	MsgMeta

	Value Value
}

// Meta returns the meta data of the message.
func (m *Data) Meta() *MsgMeta { return &m.MsgMeta }

// Opcode returns OpData.
func (m *Data) Opcode() Opcode { return OpData }

func (m *Data) sealed() {}

// Courier announces that ByteLength raw bytes follow the frame on the same
// channel.
type Courier struct {
	MsgMeta

	ByteLength uint32
}

// Meta returns the meta data of the message.
func (m *Courier) Meta() *MsgMeta { return &m.MsgMeta }

// Opcode returns OpCourier.
func (m *Courier) Opcode() Opcode { return OpCourier }

func (m *Courier) sealed() {}

// SubscriptionRequestBuilder can build subscription requests.
type SubscriptionRequestBuilder struct {
	src, dst            LogicalAddress
	dialogID            uint16
	producer, consumer  LogicalAddress
	viaManager          LogicalAddress
	priority            uint8
	leasePeriod         uint32
	deliveryRateDivisor uint16
}

// MakeSubscriptionRequestBuilder creates a new SubscriptionRequestBuilder.
func MakeSubscriptionRequestBuilder() SubscriptionRequestBuilder {
	return SubscriptionRequestBuilder{}
}

// WithSrc sets the source of the request.
func (b SubscriptionRequestBuilder) WithSrc(
	src LogicalAddress,
) SubscriptionRequestBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request.
func (b SubscriptionRequestBuilder) WithDst(
	dst LogicalAddress,
) SubscriptionRequestBuilder {
	b.dst = dst
	return b
}

// WithDialogID sets the dialog id of the request.
func (b SubscriptionRequestBuilder) WithDialogID(
	id uint16,
) SubscriptionRequestBuilder {
	b.dialogID = id
	return b
}

// WithProducer sets the producer being subscribed to.
func (b SubscriptionRequestBuilder) WithProducer(
	producer LogicalAddress,
) SubscriptionRequestBuilder {
	b.producer = producer
	return b
}

// WithConsumer sets the consumer that will receive deliveries.
func (b SubscriptionRequestBuilder) WithConsumer(
	consumer LogicalAddress,
) SubscriptionRequestBuilder {
	b.consumer = consumer
	return b
}

// WithViaManager sets the subnet manager that relays the request.
func (b SubscriptionRequestBuilder) WithViaManager(
	manager LogicalAddress,
) SubscriptionRequestBuilder {
	b.viaManager = manager
	return b
}

// WithPriority sets the priority of the subscription.
func (b SubscriptionRequestBuilder) WithPriority(
	priority uint8,
) SubscriptionRequestBuilder {
	b.priority = priority
	return b
}

// WithLeasePeriod sets the requested lease period.
func (b SubscriptionRequestBuilder) WithLeasePeriod(
	leasePeriod uint32,
) SubscriptionRequestBuilder {
	b.leasePeriod = leasePeriod
	return b
}

// WithDeliveryRateDivisor sets how often the consumer wants deliveries.
func (b SubscriptionRequestBuilder) WithDeliveryRateDivisor(
	divisor uint16,
) SubscriptionRequestBuilder {
	b.deliveryRateDivisor = divisor
	return b
}

// Build creates a new SubscriptionRequest.
func (b SubscriptionRequestBuilder) Build() *SubscriptionRequest {
	return &SubscriptionRequest{
		MsgMeta: MsgMeta{
			Src:      b.src,
			Dst:      b.dst,
			DialogID: b.dialogID,
		},
		Producer:            b.producer,
		Consumer:            b.consumer,
		ViaManager:          b.viaManager,
		Priority:            b.priority,
		LeasePeriod:         b.leasePeriod,
		DeliveryRateDivisor: b.deliveryRateDivisor,
	}
}

// DataBuilder can build data messages.
type DataBuilder struct {
	src, dst LogicalAddress
	dialogID uint16
	value    Value
}

// MakeDataBuilder creates a new DataBuilder.
func MakeDataBuilder() DataBuilder {
	return DataBuilder{}
}

// WithSrc sets the source of the data message.
func (b DataBuilder) WithSrc(src LogicalAddress) DataBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the data message.
func (b DataBuilder) WithDst(dst LogicalAddress) DataBuilder {
	b.dst = dst
	return b
}

// WithDialogID sets the dialog id of the data message.
func (b DataBuilder) WithDialogID(id uint16) DataBuilder {
	b.dialogID = id
	return b
}

// WithValue sets the value carried by the data message.
func (b DataBuilder) WithValue(v Value) DataBuilder {
	b.value = v
	return b
}

// Build creates a new Data message.
func (b DataBuilder) Build() *Data {
	return &Data{
		MsgMeta: MsgMeta{
			Src:      b.src,
			Dst:      b.dst,
			DialogID: b.dialogID,
		},
		Value: b.value,
	}
}
