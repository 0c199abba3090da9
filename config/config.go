// Package config holds the settings of a deployment. Values come from
// defaults, then .env files, then SPA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cubium/spacore/spa"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// Keys understood in .env files and the environment.
const (
	KeyManagerAddress     = "SPA_MANAGER_ADDRESS"
	KeyLightSensorAddress = "SPA_LIGHT_SENSOR_ADDRESS"
	KeyTempSensorAddress  = "SPA_TEMP_SENSOR_ADDRESS"
	KeyFilterAddress      = "SPA_FILTER_ADDRESS"
	KeyActuatorAddress    = "SPA_ACTUATOR_ADDRESS"
	KeyTickPeriod         = "SPA_TICK_PERIOD"
	KeyFilterWindow       = "SPA_FILTER_WINDOW"
	KeyActuatorDivisor    = "SPA_ACTUATOR_DIVISOR"
	KeyQueueSize          = "SPA_QUEUE_SIZE"
	KeyMonitor            = "SPA_MONITOR"
	KeyMonitorPort        = "SPA_MONITOR_PORT"
	KeyRecord             = "SPA_RECORD"
	KeyRecordPath         = "SPA_RECORD_PATH"
	KeyManagerListen      = "SPA_MANAGER_LISTEN"
	KeyManagerDial        = "SPA_MANAGER_DIAL"
	KeyLogLevel           = "SPA_LOG_LEVEL"
	KeyDevLog             = "SPA_DEV_LOG"
)

var keys = []string{
	KeyManagerAddress, KeyLightSensorAddress, KeyTempSensorAddress,
	KeyFilterAddress, KeyActuatorAddress, KeyTickPeriod, KeyFilterWindow,
	KeyActuatorDivisor, KeyQueueSize, KeyMonitor, KeyMonitorPort, KeyRecord,
	KeyRecordPath, KeyManagerListen, KeyManagerDial, KeyLogLevel, KeyDevLog,
}

// Config is the configuration of one deployment.
type Config struct {
	ManagerAddress     spa.LogicalAddress
	LightSensorAddress spa.LogicalAddress
	TempSensorAddress  spa.LogicalAddress
	FilterAddress      spa.LogicalAddress
	ActuatorAddress    spa.LogicalAddress

	TickPeriod      time.Duration
	FilterWindow    int
	ActuatorDivisor uint16
	QueueSize       int

	Monitor     bool
	MonitorPort int
	Record      bool
	RecordPath  string

	ManagerListen string
	ManagerDial   string

	LogLevel string
	DevLog   bool
}

// Default returns the configuration of the demo deployment.
func Default() Config {
	return Config{
		ManagerAddress:     spa.DefaultManagerAddress,
		LightSensorAddress: spa.NewLogicalAddress(1, 1),
		TempSensorAddress:  spa.NewLogicalAddress(1, 2),
		FilterAddress:      spa.NewLogicalAddress(1, 3),
		ActuatorAddress:    spa.NewLogicalAddress(1, 4),
		TickPeriod:         time.Second,
		FilterWindow:       10,
		ActuatorDivisor:    1,
		QueueSize:          64,
		Monitor:            false,
		MonitorPort:        0,
		Record:             false,
		RecordPath:         "",
		ManagerListen:      ":3500",
		ManagerDial:        "localhost:3500",
		LogLevel:           "info",
	}
}

// Load reads the given .env files in order, then the environment. Files that
// do not exist are skipped.
func Load(files ...string) (Config, error) {
	values := make(map[string]string)

	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}

		fileValues, err := godotenv.Read(file)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", file, err)
		}

		for k, v := range fileValues {
			values[k] = v
		}
	}

	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	return FromMap(values)
}

// FromMap applies the known keys in values on top of the defaults and
// validates the result. Unknown keys are ignored.
func FromMap(values map[string]string) (Config, error) {
	c := Default()
	p := parser{values: values}

	p.address(KeyManagerAddress, &c.ManagerAddress)
	p.address(KeyLightSensorAddress, &c.LightSensorAddress)
	p.address(KeyTempSensorAddress, &c.TempSensorAddress)
	p.address(KeyFilterAddress, &c.FilterAddress)
	p.address(KeyActuatorAddress, &c.ActuatorAddress)
	p.duration(KeyTickPeriod, &c.TickPeriod)
	p.integer(KeyFilterWindow, &c.FilterWindow)
	p.uint16(KeyActuatorDivisor, &c.ActuatorDivisor)
	p.integer(KeyQueueSize, &c.QueueSize)
	p.boolean(KeyMonitor, &c.Monitor)
	p.integer(KeyMonitorPort, &c.MonitorPort)
	p.boolean(KeyRecord, &c.Record)
	p.str(KeyRecordPath, &c.RecordPath)
	p.str(KeyManagerListen, &c.ManagerListen)
	p.str(KeyManagerDial, &c.ManagerDial)
	p.str(KeyLogLevel, &c.LogLevel)
	p.boolean(KeyDevLog, &c.DevLog)

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

// Validate checks that the configuration can run.
func (c Config) Validate() error {
	var errs []error

	addrs := map[string]spa.LogicalAddress{
		"manager":      c.ManagerAddress,
		"light sensor": c.LightSensorAddress,
		"temp sensor":  c.TempSensorAddress,
		"filter":       c.FilterAddress,
		"actuator":     c.ActuatorAddress,
	}

	seen := make(map[spa.LogicalAddress]string)
	for _, role := range []string{
		"manager", "light sensor", "temp sensor", "filter", "actuator",
	} {
		addr := addrs[role]

		if addr.IsNull() {
			errs = append(errs, fmt.Errorf("%s address is not set", role))
			continue
		}

		if other, taken := seen[addr]; taken {
			errs = append(errs, fmt.Errorf("%s and %s share address %s",
				other, role, addr))
			continue
		}

		seen[addr] = role
	}

	if c.TickPeriod <= 0 {
		errs = append(errs, spa.ErrInvalidPeriod)
	}

	if c.FilterWindow <= 0 {
		errs = append(errs, fmt.Errorf("filter window %d must be positive",
			c.FilterWindow))
	}

	if c.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("queue size %d must be positive",
			c.QueueSize))
	}

	if c.MonitorPort < 0 || c.MonitorPort > 65535 {
		errs = append(errs, fmt.Errorf("monitor port %d out of range",
			c.MonitorPort))
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Level returns the parsed log level. Invalid levels fall back to info.
func (c Config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}

	return level
}

type parser struct {
	values map[string]string
	errs   []error
}

func (p *parser) lookup(key string) (string, bool) {
	v, ok := p.values[key]
	if !ok {
		return "", false
	}

	return strings.TrimSpace(v), true
}

func (p *parser) fail(key, v string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func (p *parser) address(key string, dst *spa.LogicalAddress) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}

	addr, err := spa.ParseLogicalAddress(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}

	*dst = addr
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}

	*dst = d
}

func (p *parser) integer(key string, dst *int) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}

	*dst = n
}

func (p *parser) uint16(key string, dst *uint16) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}

	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		p.fail(key, v, err)
		return
	}

	*dst = uint16(n)
}

func (p *parser) boolean(key string, dst *bool) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}

	*dst = b
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		*dst = v
	}
}
