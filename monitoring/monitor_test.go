package monitoring

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cubium/spacore/spa"
)

type nopComm struct{}

func (nopComm) Register(*spa.Hello, spa.Receiver) error { return nil }
func (nopComm) Send(spa.Msg) error                      { return nil }
func (nopComm) SendCourier(*spa.Courier, []byte) error  { return nil }

type countingDomain struct {
	sends int
}

func (d *countingDomain) Init() error                 { return nil }
func (d *countingDomain) HandleData(*spa.Data)        {}
func (d *countingDomain) SendData(spa.LogicalAddress) { d.sends++ }

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		domain *countingDomain
		comp   *spa.ComponentBase
		server *httptest.Server
	)

	get := func(path string) (int, string) {
		rsp, err := http.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		buf := new(bytes.Buffer)
		_, err = buf.ReadFrom(rsp.Body)
		Expect(err).NotTo(HaveOccurred())

		return rsp.StatusCode, buf.String()
	}

	BeforeEach(func() {
		m = NewMonitor()
		domain = &countingDomain{}
		comp = spa.MakeComponentBuilder().
			WithAddress(spa.NewLogicalAddress(1, 1)).
			WithCommunicator(nopComm{}).
			Build("LightSensor", domain)
		comp.AddSubscriber(spa.NewLogicalAddress(1, 3), 2)

		m.RegisterComponent(comp)
		server = httptest.NewServer(m.Router())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should refuse two components with the same name", func() {
		Expect(func() { m.RegisterComponent(comp) }).To(Panic())
	})

	It("should list components", func() {
		code, body := get("/api/list_components")

		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`["LightSensor"]`))
	})

	It("should list subscribers", func() {
		code, body := get("/api/subscribers/LightSensor")

		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(
			`[{"address":"1.3","delivery_rate_divisor":2}]`))
	})

	It("should list subscribers in address order", func() {
		comp.AddSubscriber(spa.NewLogicalAddress(2, 1), 1)
		comp.AddSubscriber(spa.NewLogicalAddress(1, 2), 4)

		code, body := get("/api/subscribers/LightSensor")

		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`[
			{"address":"1.2","delivery_rate_divisor":4},
			{"address":"1.3","delivery_rate_divisor":2},
			{"address":"2.1","delivery_rate_divisor":1}
		]`))
	})

	It("should serve component details", func() {
		code, body := get("/api/component/LightSensor")

		Expect(code).To(Equal(http.StatusOK))
		Expect(body).NotTo(BeEmpty())
	})

	It("should answer 404 for unknown components", func() {
		code, _ := get("/api/subscribers/Nobody")
		Expect(code).To(Equal(http.StatusNotFound))
	})

	It("should force a publish tick", func() {
		rsp, err := http.Post(server.URL+"/api/publish/LightSensor",
			"application/json", nil)
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		var out map[string]uint64
		Expect(json.NewDecoder(rsp.Body).Decode(&out)).To(Succeed())

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		Expect(out["publish_cycle"]).To(Equal(uint64(1)))
		Expect(domain.sends).To(Equal(1))
	})

	It("should report process resources", func() {
		code, body := get("/api/resource")

		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("memory_size"))
	})

	It("should serve metrics", func() {
		hook := NewMetricsHook(m.Registry())
		comp.AcceptHook(hook)
		comp.Publish()

		code, body := get("/metrics")

		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(
			`spacore_publish_ticks_total{component="LightSensor"} 1`))
	})
})
