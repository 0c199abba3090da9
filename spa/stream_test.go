package spa

import (
	"bytes"
	"errors"
	"io"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func patternedPayload(n int) []byte {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i * 7)
	}

	return payload
}

var _ = Describe("Stream framing", func() {
	var (
		buf    *bytes.Buffer
		writer *MsgWriter
		reader *MsgReader
		src    LogicalAddress
		dst    LogicalAddress
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		writer = NewMsgWriter(buf)
		reader = NewMsgReader(buf)
		src = NewLogicalAddress(1, 4)
		dst = NewLogicalAddress(1, 3)
	})

	It("should read back fixed frames in order", func() {
		for i := 0; i < 3; i++ {
			Expect(writer.WriteMsg(MakeDataBuilder().
				WithSrc(src).
				WithDst(dst).
				WithValue(NewValue(int32(i))).
				Build())).To(Succeed())
		}

		for i := 0; i < 3; i++ {
			in, err := reader.ReadMsg()
			Expect(err).NotTo(HaveOccurred())

			data, ok := in.Msg.(*Data)
			Expect(ok).To(BeTrue())
			v, _ := ValueAs[int32](data.Value)
			Expect(v).To(Equal(int32(i)))
		}

		_, err := reader.ReadMsg()
		Expect(err).To(Equal(io.EOF))
	})

	It("should reassemble a courier payload bit exact", func() {
		payload := patternedPayload(1024)
		courier := &Courier{
			MsgMeta:    MsgMeta{Src: src, Dst: dst},
			ByteLength: 1024,
		}

		Expect(writer.WriteCourier(courier, payload)).To(Succeed())
		Expect(writer.WriteMsg(&LocalAck{Assigned: dst})).To(Succeed())

		in, err := reader.ReadMsg()
		Expect(err).NotTo(HaveOccurred())
		Expect(in.Msg).To(Equal(courier))
		Expect(in.Payload).To(Equal(payload))

		in, err = reader.ReadMsg()
		Expect(err).NotTo(HaveOccurred())
		Expect(in.Msg).To(BeAssignableToTypeOf(&LocalAck{}))
	})

	It("should report a framing error on a short courier body", func() {
		header, err := MarshalMsg(&Courier{
			MsgMeta:    MsgMeta{Src: src, Dst: dst},
			ByteLength: 1024,
		})
		Expect(err).NotTo(HaveOccurred())

		buf.Write(header)
		buf.Write(patternedPayload(512))

		_, err = reader.ReadMsg()

		var fe *FramingError
		Expect(errors.As(err, &fe)).To(BeTrue())
		Expect(fe.Op).To(Equal("read courier body"))
		Expect(err).To(MatchError(io.ErrUnexpectedEOF))
		Expect(IsFatal(err)).To(BeTrue())
	})

	It("should report a framing error on a truncated frame", func() {
		frame, err := MarshalMsg(&LocalAck{Assigned: dst})
		Expect(err).NotTo(HaveOccurred())

		buf.Write(frame[:5])

		_, err = reader.ReadMsg()
		Expect(IsFatal(err)).To(BeTrue())
		Expect(err).To(MatchError(io.ErrUnexpectedEOF))
	})

	It("should treat an unknown opcode as fatal", func() {
		buf.Write([]byte{0x99, 0, 0, 0})

		_, err := reader.ReadMsg()
		Expect(IsFatal(err)).To(BeTrue())
		Expect(err).To(MatchError(ErrUnknownOpcode))
	})

	It("should refuse couriers above the limit", func() {
		reader.WithMaxCourierLength(16)

		Expect(writer.WriteCourier(&Courier{ByteLength: 32},
			patternedPayload(32))).To(Succeed())

		_, err := reader.ReadMsg()
		Expect(IsFatal(err)).To(BeTrue())
		Expect(err).To(MatchError(ErrCourierLength))
	})

	It("should refuse a courier whose payload does not match", func() {
		err := writer.WriteCourier(&Courier{ByteLength: 10}, patternedPayload(9))
		Expect(err).To(MatchError(ErrCourierLength))
		Expect(buf.Len()).To(Equal(0))
	})

	It("should refuse a courier without payload", func() {
		err := writer.WriteMsg(&Courier{ByteLength: 1})
		Expect(err).To(MatchError(ErrCourierLength))
	})

	It("should never interleave frames with a courier body", func() {
		var wg sync.WaitGroup

		for i := 0; i < 20; i++ {
			wg.Add(2)

			go func() {
				defer wg.Done()
				_ = writer.WriteCourier(&Courier{ByteLength: 256},
					patternedPayload(256))
			}()

			go func() {
				defer wg.Done()
				_ = writer.WriteMsg(MakeDataBuilder().
					WithValue(NewValue(uint8(1))).
					Build())
			}()
		}

		wg.Wait()

		couriers := 0
		for {
			in, err := reader.ReadMsg()
			if err == io.EOF {
				break
			}

			Expect(err).NotTo(HaveOccurred())

			if _, ok := in.Msg.(*Courier); ok {
				couriers++
				Expect(in.Payload).To(Equal(patternedPayload(256)))
			}
		}

		Expect(couriers).To(Equal(20))
	})
})
