package directconnection

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cubium/spacore/spa"
)

type chanReceiver struct {
	ch    chan spa.Inbound
	block chan struct{}
}

func newChanReceiver() *chanReceiver {
	return &chanReceiver{ch: make(chan spa.Inbound, 128)}
}

func (r *chanReceiver) Receive(in spa.Inbound) {
	r.ch <- in
	if r.block != nil {
		<-r.block
	}
}

func helloFrom(addr spa.LogicalAddress) *spa.Hello {
	return &spa.Hello{
		MsgMeta:   spa.MsgMeta{Src: addr, Dst: spa.DefaultManagerAddress},
		Requester: addr,
		Target:    spa.DefaultManagerAddress,
	}
}

var _ = Describe("DirectConnection", func() {
	var (
		connection *Comp
		addrA      = spa.NewLogicalAddress(1, 1)
		addrB      = spa.NewLogicalAddress(1, 2)
		endA       *Endpoint
		endB       *Endpoint
		recvA      *chanReceiver
		recvB      *chanReceiver
	)

	register := func(end *Endpoint, r *chanReceiver) {
		Expect(end.Register(helloFrom(end.Address()), r)).To(Succeed())

		var in spa.Inbound
		Eventually(r.ch).Should(Receive(&in))
		ack, ok := in.Msg.(*spa.LocalAck)
		Expect(ok).To(BeTrue())
		Expect(ack.Assigned).To(Equal(end.Address()))
		Expect(ack.Src).To(Equal(spa.DefaultManagerAddress))
	}

	BeforeEach(func() {
		connection = MakeBuilder().WithQueueSize(4).Build("Direct")
		endA = connection.PlugIn(addrA)
		endB = connection.PlugIn(addrB)
		recvA = newChanReceiver()
		recvB = newChanReceiver()
	})

	AfterEach(func() {
		Expect(connection.Close()).To(Succeed())
	})

	It("should return the same endpoint for the same address", func() {
		Expect(connection.PlugIn(addrA)).To(BeIdenticalTo(endA))
	})

	It("should refuse the manager address", func() {
		Expect(func() {
			connection.PlugIn(spa.DefaultManagerAddress)
		}).To(Panic())
	})

	It("should acknowledge hellos", func() {
		register(endA, recvA)

		Expect(connection.Addresses()).To(Equal([]spa.LogicalAddress{addrA}))
	})

	It("should refuse a second receiver", func() {
		register(endA, recvA)

		err := endA.Register(helloFrom(addrA), newChanReceiver())
		Expect(err).To(MatchError(spa.ErrDuplicateSetup))
	})

	It("should deliver data in order", func() {
		register(endA, recvA)
		register(endB, recvB)

		for i := 0; i < 3; i++ {
			Expect(endA.Send(spa.MakeDataBuilder().
				WithSrc(addrA).
				WithDst(addrB).
				WithValue(spa.NewValue(int32(i))).
				Build())).To(Succeed())
		}

		for i := 0; i < 3; i++ {
			var in spa.Inbound
			Eventually(recvB.ch).Should(Receive(&in))

			data := in.Msg.(*spa.Data)
			Expect(data.Src).To(Equal(addrA))
			v, _ := spa.ValueAs[int32](data.Value)
			Expect(v).To(Equal(int32(i)))
		}
	})

	It("should refuse unregistered destinations", func() {
		register(endA, recvA)

		err := endA.Send(spa.MakeDataBuilder().
			WithSrc(addrA).
			WithDst(addrB).
			WithValue(spa.NewValue(true)).
			Build())

		Expect(err).To(MatchError(spa.ErrUnreachable))
	})

	It("should deliver courier payloads with their header", func() {
		register(endA, recvA)
		register(endB, recvB)

		payload := make([]byte, 1024)
		for i := range payload {
			payload[i] = byte(i)
		}

		Expect(endA.SendCourier(&spa.Courier{
			MsgMeta:    spa.MsgMeta{Src: addrA, Dst: addrB},
			ByteLength: 1024,
		}, payload)).To(Succeed())

		var in spa.Inbound
		Eventually(recvB.ch).Should(Receive(&in))
		Expect(in.Msg).To(BeAssignableToTypeOf(&spa.Courier{}))
		Expect(in.Payload).To(Equal(payload))
	})

	It("should refuse couriers without a matching payload", func() {
		err := endA.SendCourier(&spa.Courier{ByteLength: 4}, []byte{1})
		Expect(err).To(MatchError(spa.ErrCourierLength))

		err = endA.Send(&spa.Courier{ByteLength: 4})
		Expect(err).To(MatchError(spa.ErrCourierLength))
	})

	It("should relay subscription requests sent to the manager", func() {
		register(endA, recvA)
		register(endB, recvB)

		Expect(endA.Send(spa.MakeSubscriptionRequestBuilder().
			WithSrc(addrA).
			WithDst(spa.DefaultManagerAddress).
			WithDialogID(3).
			WithProducer(addrB).
			WithConsumer(addrA).
			WithViaManager(spa.DefaultManagerAddress).
			Build())).To(Succeed())

		var in spa.Inbound
		Eventually(recvB.ch).Should(Receive(&in))

		req := in.Msg.(*spa.SubscriptionRequest)
		Expect(req.Dst).To(Equal(addrB))
		Expect(req.Src).To(Equal(addrA))
		Expect(req.Consumer).To(Equal(addrA))
		Expect(req.DialogID).To(Equal(uint16(3)))
	})

	It("should report a full queue", func() {
		recvB.block = make(chan struct{})
		defer close(recvB.block)

		register(endA, recvA)
		Expect(endB.Register(helloFrom(addrB), recvB)).To(Succeed())
		Eventually(recvB.ch).Should(Receive())

		data := spa.MakeDataBuilder().
			WithSrc(addrA).
			WithDst(addrB).
			WithValue(spa.NewValue(uint8(1))).
			Build()

		var err error
		for i := 0; i < 10 && err == nil; i++ {
			err = endA.Send(data)
		}

		Expect(err).To(MatchError(spa.ErrQueueFull))
	})

	It("should refuse sends after close", func() {
		register(endA, recvA)

		Expect(connection.Close()).To(Succeed())

		err := endA.Send(helloFrom(addrA))
		Expect(err).To(MatchError(spa.ErrClosed))
	})
})

// echoDomain sends a counter to every due subscriber and remembers every
// value it receives.
type echoDomain struct {
	base *spa.ComponentBase

	lock     sync.Mutex
	counter  int32
	received []int32
}

func (d *echoDomain) Init() error {
	return nil
}

func (d *echoDomain) HandleData(msg *spa.Data) {
	v, _ := spa.ValueAs[int32](msg.Value)

	d.lock.Lock()
	defer d.lock.Unlock()

	d.received = append(d.received, v)
}

func (d *echoDomain) SendData(dst spa.LogicalAddress) {
	d.lock.Lock()
	d.counter++
	v := d.counter
	d.lock.Unlock()

	_ = spa.SendScalar(d.base, dst, v)
}

func (d *echoDomain) Received() []int32 {
	d.lock.Lock()
	defer d.lock.Unlock()

	return append([]int32(nil), d.received...)
}

var _ = Describe("Components over a DirectConnection", func() {
	It("should subscribe through the manager and receive data", func() {
		connection := MakeBuilder().Build("Direct")
		defer connection.Close()

		producerAddr := spa.NewLogicalAddress(1, 1)
		consumerAddr := spa.NewLogicalAddress(1, 3)

		producerDomain := &echoDomain{}
		producer := spa.MakeComponentBuilder().
			WithAddress(producerAddr).
			WithCommunicator(connection.PlugIn(producerAddr)).
			Build("Producer", producerDomain)
		producerDomain.base = producer

		consumerDomain := &echoDomain{}
		consumer := spa.MakeComponentBuilder().
			WithAddress(consumerAddr).
			WithCommunicator(connection.PlugIn(consumerAddr)).
			Build("Consumer", consumerDomain)
		consumerDomain.base = consumer

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		Expect(producer.Register(ctx)).To(Succeed())
		Expect(consumer.Register(ctx)).To(Succeed())

		dialog, err := consumer.Subscribe(producerAddr, spa.ViaManager())
		Expect(err).NotTo(HaveOccurred())

		Eventually(consumerDomain.Received).Should(Equal([]int32{1}))
		Eventually(func() spa.SubscriptionState {
			s, _ := consumer.SubscriptionState(dialog)
			return s
		}).Should(Equal(spa.SubscriptionAcknowledged))

		producer.Publish()
		Eventually(consumerDomain.Received).Should(Equal([]int32{1, 2}))
	})
})
