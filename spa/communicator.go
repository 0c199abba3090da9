package spa

// A Receiver accepts inbound messages. Transports call Receive once per
// message, possibly from several goroutines at once.
type Receiver interface {
	Receive(in Inbound)
}

// A Communicator moves messages between logical addresses. It is owned by
// the transport; components only hold a reference to it.
type Communicator interface {
	// Register sends the hello to the subnet manager and starts delivering
	// inbound messages to r.
	Register(hello *Hello, r Receiver) error

	// Send transmits one message to its destination.
	Send(m Msg) error

	// SendCourier transmits a courier header followed by exactly
	// c.ByteLength payload bytes on the same ordered channel.
	SendCourier(c *Courier, payload []byte) error
}

// Domain is implemented by concrete components. It is the only point where
// domain behavior plugs into the core.
type Domain interface {
	// Init runs once after registration and before the publish loop starts.
	Init() error

	// HandleData folds one inbound value into the domain state.
	HandleData(msg *Data)

	// SendData produces and sends the value for one due subscriber.
	SendData(dst LogicalAddress)
}

// A PayloadHandler is a Domain that accepts courier payloads.
type PayloadHandler interface {
	HandlePayload(src LogicalAddress, payload []byte)
}
