package monitoring

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cubium/spacore/spa"
)

var _ = Describe("MetricsHook", func() {
	var (
		hook *MetricsHook
		comp *spa.ComponentBase
		peer = spa.NewLogicalAddress(1, 4)
	)

	BeforeEach(func() {
		hook = NewMetricsHook(prometheus.NewRegistry())
		comp = spa.MakeComponentBuilder().
			WithAddress(spa.NewLogicalAddress(1, 3)).
			WithCommunicator(nopComm{}).
			Build("Filter", &countingDomain{})
		comp.AcceptHook(hook)
	})

	It("should count sent messages by opcode", func() {
		Expect(spa.SendScalar(comp, peer, int32(1))).To(Succeed())
		Expect(spa.SendScalar(comp, peer, int32(0))).To(Succeed())

		Expect(testutil.ToFloat64(
			hook.sent.WithLabelValues("Filter", "Data"))).To(Equal(2.0))
	})

	It("should count received and dropped messages", func() {
		comp.Receive(spa.Inbound{Msg: spa.MakeDataBuilder().
			WithSrc(peer).
			WithValue(spa.NewValue(float32(1))).
			Build()})
		comp.ReceiveFrame([]byte{0x01})

		Expect(testutil.ToFloat64(
			hook.received.WithLabelValues("Filter", "Data"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(
			hook.dropped.WithLabelValues("Filter"))).To(Equal(1.0))
	})

	It("should count only inserted subscribers", func() {
		comp.AddSubscriber(peer, 1)
		comp.AddSubscriber(peer, 1)

		Expect(testutil.ToFloat64(
			hook.subscribers.WithLabelValues("Filter"))).To(Equal(1.0))
	})

	It("should count publish ticks", func() {
		comp.Publish()
		comp.Publish()

		Expect(testutil.ToFloat64(
			hook.ticks.WithLabelValues("Filter"))).To(Equal(2.0))
	})
})
