package spa

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Registration", func() {
	var (
		mockCtrl *gomock.Controller
		comm     *MockCommunicator
		domain   *MockDomain
		c        *ComponentBase
		addr     = NewLogicalAddress(1, 2)
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		comm = NewMockCommunicator(mockCtrl)
		domain = NewMockDomain(mockCtrl)
		c = MakeComponentBuilder().
			WithAddress(addr).
			WithCommunicator(comm).
			Build("Sensor", domain)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should complete when the manager acknowledges", func() {
		comm.EXPECT().Register(gomock.Any(), c).
			DoAndReturn(func(hello *Hello, r Receiver) error {
				Expect(hello.Requester).To(Equal(addr))
				Expect(hello.Target).To(Equal(DefaultManagerAddress))
				Expect(hello.Dst).To(Equal(DefaultManagerAddress))

				r.Receive(Inbound{Msg: &LocalAck{
					MsgMeta:  MsgMeta{Src: DefaultManagerAddress, Dst: addr},
					Assigned: addr,
				}})

				return nil
			})

		Expect(c.RegistrationState()).To(Equal(Unregistered))
		Expect(c.Register(context.Background())).To(Succeed())
		Expect(c.RegistrationState()).To(Equal(Registered))
	})

	It("should wait for a late acknowledgement", func() {
		comm.EXPECT().Register(gomock.Any(), c).Return(nil)

		go func() {
			defer GinkgoRecover()

			Eventually(c.RegistrationState).Should(Equal(HelloSent))
			c.Receive(Inbound{Msg: &LocalAck{Assigned: addr}})
		}()

		Expect(c.Register(context.Background())).To(Succeed())
	})

	It("should stop waiting when the context is done", func() {
		comm.EXPECT().Register(gomock.Any(), c).Return(nil)

		ctx, cancel := context.WithTimeout(context.Background(),
			10*time.Millisecond)
		defer cancel()

		err := c.Register(ctx)

		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(c.RegistrationState()).To(Equal(HelloSent))
	})

	It("should allow another attempt after the hello failed", func() {
		comm.EXPECT().Register(gomock.Any(), c).Return(ErrClosed)

		err := c.Register(context.Background())

		Expect(errors.Is(err, ErrClosed)).To(BeTrue())
		Expect(c.RegistrationState()).To(Equal(Unregistered))
	})

	It("should ignore a second acknowledgement", func() {
		c.Receive(Inbound{Msg: &LocalAck{Assigned: addr}})
		c.Receive(Inbound{Msg: &LocalAck{Assigned: addr}})

		Expect(c.RegistrationState()).To(Equal(Registered))
	})
})

var _ = Describe("Run", func() {
	var (
		comm   *recordingComm
		domain *countingDomain
		clk    *clock.Mock
		c      *ComponentBase
		sub    = NewLogicalAddress(1, 9)
	)

	BeforeEach(func() {
		comm = &recordingComm{ackOnReg: true}
		domain = newCountingDomain()
		clk = clock.NewMock()
		c = MakeComponentBuilder().
			WithAddress(NewLogicalAddress(1, 1)).
			WithCommunicator(comm).
			WithClock(clk).
			Build("Ticker", domain)
	})

	It("should reject a non positive period", func() {
		err := c.Run(context.Background(), 0)
		Expect(err).To(MatchError(ErrInvalidPeriod))
	})

	It("should register, init and publish every period", func() {
		c.AddSubscriber(sub, 1)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() {
			done <- c.Run(ctx, time.Second)
		}()

		Eventually(domain.Inits).Should(Equal(1))
		Eventually(func() int {
			clk.Add(time.Second)
			return domain.CallsTo(sub)
		}).Should(BeNumerically(">=", 3))

		cancel()
		Eventually(done).Should(Receive(BeNil()))

		Expect(c.RegistrationState()).To(Equal(Registered))
		Expect(domain.Inits()).To(Equal(1))
	})
})
