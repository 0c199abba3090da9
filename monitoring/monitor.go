// Package monitoring exposes a running deployment over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/cubium/spacore/spa"
	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"go.uber.org/zap"
)

// A Component is what the monitor can inspect and drive.
type Component interface {
	spa.Named
	Address() spa.LogicalAddress
	SortedSubscribers() []spa.Subscriber
	Subscriptions() []spa.SubscriptionAttempt
	PublishCycle() uint64
	RegistrationState() spa.RegistrationState
	Publish()
}

// Monitor turns a deployment into a server that allows external monitoring
// and controlling of its components.
type Monitor struct {
	lock       sync.RWMutex
	components []Component

	portNumber      int
	profileDuration time.Duration
	logger          *zap.Logger
	registry        *prometheus.Registry

	server   *http.Server
	listener net.Listener
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Monitor{
		profileDuration: time.Second,
		logger:          zap.NewNop(),
		registry:        registry,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(l *zap.Logger) *Monitor {
	m.logger = l
	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// Registry returns the Prometheus registry served on /metrics.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterComponent register a component to be monitored.
func (m *Monitor) RegisterComponent(c Component) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, existing := range m.components {
		if existing.Name() == c.Name() {
			panic(fmt.Sprintf("component %s already monitored", c.Name()))
		}
	}

	m.components = append(m.components, c)
}

// Router returns the HTTP handler of the monitor.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/subscribers/{name}", m.listSubscribers)
	r.HandleFunc("/api/publish/{name}", m.publish).Methods(http.MethodPost)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics",
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring with %s\n", url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor server stopped", zap.Error(err))
		}
	}()

	return url, nil
}

// OpenBrowser opens url in the default browser.
func (m *Monitor) OpenBrowser(url string) error {
	return browser.OpenURL(url)
}

// Shutdown stops the web server if it was started.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	m.lock.RLock()
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}
	m.lock.RUnlock()

	writeJSON(w, names)
}

type subscriberRsp struct {
	Address             string `json:"address"`
	DeliveryRateDivisor uint16 `json:"delivery_rate_divisor"`
}

type subscriptionRsp struct {
	DialogID uint16 `json:"dialog_id"`
	Producer string `json:"producer"`
	State    string `json:"state"`
}

// componentView is the flat state served for one component.
type componentView struct {
	Name          string
	Address       string
	Registration  string
	PublishCycle  uint64
	Subscribers   []subscriberRsp
	Subscriptions []subscriptionRsp
}

func subscribersOf(c Component) []subscriberRsp {
	rsp := []subscriberRsp{}
	for _, s := range c.SortedSubscribers() {
		rsp = append(rsp, subscriberRsp{
			Address:             s.Address.String(),
			DeliveryRateDivisor: s.DeliveryRateDivisor,
		})
	}

	return rsp
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	view := componentView{
		Name:         component.Name(),
		Address:      component.Address().String(),
		Registration: component.RegistrationState().String(),
		PublishCycle: component.PublishCycle(),
		Subscribers:  subscribersOf(component),
	}

	for _, s := range component.Subscriptions() {
		view.Subscriptions = append(view.Subscriptions, subscriptionRsp{
			DialogID: s.DialogID,
			Producer: s.Producer.String(),
			State:    s.State.String(),
		})
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(view)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) listSubscribers(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	writeJSON(w, subscribersOf(component))
}

func (m *Monitor) publish(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	component.Publish()
	m.logger.Info("publish forced", zap.String("component", name))

	writeJSON(w, map[string]uint64{"publish_cycle": component.PublishCycle()})
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) Component {
	m.lock.RLock()
	defer m.lock.RUnlock()

	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Component not found"))
	dieOnErr(err)

	return nil
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
