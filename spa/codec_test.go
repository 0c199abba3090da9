package spa

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Codec", func() {
	src := NewLogicalAddress(1, 3)
	dst := NewLogicalAddress(1, 1)

	It("should encode the header big endian", func() {
		msg := MakeDataBuilder().
			WithSrc(src).
			WithDst(dst).
			WithDialogID(0x0102).
			WithValue(NewValue(uint8(5))).
			Build()

		frame, err := MarshalMsg(msg)

		Expect(err).NotTo(HaveOccurred())
		Expect(frame).To(HaveLen(HeaderSize + 9))
		Expect(frame[:HeaderSize]).To(Equal([]byte{
			0x74,
			0x00, 0x01, 0x00, 0x01,
			0x00, 0x01, 0x00, 0x03,
			0x01, 0x02,
		}))
		Expect(frame[HeaderSize]).To(Equal(byte(KindUint8)))
		Expect(frame[len(frame)-1]).To(Equal(byte(5)))
	})

	It("should decode a subscription request", func() {
		req := MakeSubscriptionRequestBuilder().
			WithSrc(src).
			WithDst(DefaultManagerAddress).
			WithDialogID(9).
			WithProducer(dst).
			WithConsumer(src).
			WithViaManager(DefaultManagerAddress).
			WithPriority(3).
			WithLeasePeriod(1000).
			WithDeliveryRateDivisor(4).
			Build()

		frame, err := MarshalMsg(req)
		Expect(err).NotTo(HaveOccurred())

		size, ok := FrameSize(OpSubscriptionRequest)
		Expect(ok).To(BeTrue())
		Expect(frame).To(HaveLen(size))

		msg, err := UnmarshalMsg(frame)
		Expect(err).NotTo(HaveOccurred())
		Expect(msg).To(Equal(req))
	})

	It("should decode a hello", func() {
		hello := &Hello{
			MsgMeta:   MsgMeta{Src: src, Dst: DefaultManagerAddress},
			Requester: src,
			Target:    DefaultManagerAddress,
		}
		hello.Reserved[7] = 0xff

		frame, err := MarshalMsg(hello)
		Expect(err).NotTo(HaveOccurred())

		msg, err := UnmarshalMsg(frame)
		Expect(err).NotTo(HaveOccurred())
		Expect(msg).To(Equal(hello))
	})

	It("should reject an unknown opcode", func() {
		_, err := UnmarshalMsg([]byte{0x99, 0, 0})
		Expect(err).To(MatchError(ErrUnknownOpcode))
	})

	It("should reject a frame that is too short", func() {
		frame, err := MarshalMsg(&LocalAck{Assigned: src})
		Expect(err).NotTo(HaveOccurred())

		_, err = UnmarshalMsg(frame[:len(frame)-1])
		Expect(err).To(MatchError(ErrMalformedMsg))
	})

	It("should reject a frame that is too long", func() {
		frame, err := MarshalMsg(&LocalAck{Assigned: src})
		Expect(err).NotTo(HaveOccurred())

		_, err = UnmarshalMsg(append(frame, 0))
		Expect(err).To(MatchError(ErrMalformedMsg))
	})

	It("should reject an empty frame", func() {
		_, err := UnmarshalMsg(nil)
		Expect(err).To(MatchError(ErrMalformedMsg))
	})

	It("should reject data without a kind", func() {
		_, err := MarshalMsg(&Data{})
		Expect(err).To(MatchError(ErrMalformedMsg))

		frame, err := MarshalMsg(MakeDataBuilder().
			WithValue(NewValue(int32(1))).
			Build())
		Expect(err).NotTo(HaveOccurred())

		frame[HeaderSize] = 0x7f
		_, err = UnmarshalMsg(frame)
		Expect(err).To(MatchError(ErrMalformedMsg))
	})

	It("should not treat decode errors as fatal", func() {
		_, err := UnmarshalMsg([]byte{0x99})
		Expect(IsFatal(err)).To(BeFalse())
	})
})
