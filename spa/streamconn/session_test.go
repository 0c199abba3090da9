package streamconn

import (
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cubium/spacore/spa"
)

type chanReceiver struct {
	ch chan spa.Inbound
}

func newChanReceiver() *chanReceiver {
	return &chanReceiver{ch: make(chan spa.Inbound, 128)}
}

func (r *chanReceiver) Receive(in spa.Inbound) {
	r.ch <- in
}

var _ = Describe("Session", func() {
	var (
		local    net.Conn
		remote   net.Conn
		session  *Session
		recv     *chanReceiver
		peer     *spa.MsgReader
		peerOut  *spa.MsgWriter
		addr     = spa.NewLogicalAddress(1, 2)
		sentByUs chan spa.Inbound
	)

	BeforeEach(func() {
		local, remote = net.Pipe()
		session = NewSession(local, nil)
		recv = newChanReceiver()
		peer = spa.NewMsgReader(remote)
		peerOut = spa.NewMsgWriter(remote)

		sentByUs = make(chan spa.Inbound, 16)
		r, out := peer, sentByUs
		go func() {
			for {
				in, err := r.ReadMsg()
				if err != nil {
					close(out)
					return
				}
				out <- in
			}
		}()

		Expect(session.Register(&spa.Hello{
			MsgMeta:   spa.MsgMeta{Src: addr, Dst: spa.DefaultManagerAddress},
			Requester: addr,
			Target:    spa.DefaultManagerAddress,
		}, recv)).To(Succeed())

		var in spa.Inbound
		Eventually(sentByUs).Should(Receive(&in))
		Expect(in.Msg).To(BeAssignableToTypeOf(&spa.Hello{}))
	})

	AfterEach(func() {
		_ = session.Close()
		_ = remote.Close()
	})

	It("should deliver inbound frames to the receiver", func() {
		go func() {
			_ = peerOut.WriteMsg(&spa.LocalAck{
				MsgMeta:  spa.MsgMeta{Src: spa.DefaultManagerAddress, Dst: addr},
				Assigned: addr,
			})
		}()

		var in spa.Inbound
		Eventually(recv.ch).Should(Receive(&in))
		Expect(in.Msg.(*spa.LocalAck).Assigned).To(Equal(addr))
	})

	It("should write couriers with their payload", func() {
		payload := []byte("status: ok")

		Expect(session.SendCourier(&spa.Courier{
			MsgMeta:    spa.MsgMeta{Src: addr, Dst: spa.NewLogicalAddress(1, 3)},
			ByteLength: uint32(len(payload)),
		}, payload)).To(Succeed())

		var in spa.Inbound
		Eventually(sentByUs).Should(Receive(&in))
		Expect(in.Payload).To(Equal(payload))
	})

	It("should end with a framing error on garbage", func() {
		go func() {
			_, _ = remote.Write([]byte{0x99, 0x00})
		}()

		Eventually(session.Done()).Should(BeClosed())
		Expect(spa.IsFatal(session.Wait())).To(BeTrue())
		Expect(session.Send(&spa.LocalAck{})).To(MatchError(spa.ErrClosed))
	})

	It("should end cleanly when the peer hangs up", func() {
		Expect(remote.Close()).To(Succeed())

		Eventually(session.Done()).Should(BeClosed())
		Expect(session.Wait()).To(Succeed())
	})

	It("should refuse a second receiver", func() {
		err := session.Register(&spa.Hello{}, newChanReceiver())
		Expect(err).To(MatchError(spa.ErrDuplicateSetup))
	})
})
