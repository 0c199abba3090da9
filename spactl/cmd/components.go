package cmd

import (
	"fmt"
	"slices"

	"github.com/benbjohnson/clock"
	"github.com/cubium/spacore/components/actuator"
	"github.com/cubium/spacore/components/medianfilter"
	"github.com/cubium/spacore/components/sensor"
	"github.com/cubium/spacore/network"
	"github.com/cubium/spacore/spa"
	"go.uber.org/zap"
)

// Kinds of components spactl can run.
const (
	kindLightSensor  = "sensor-light"
	kindTempSensor   = "sensor-temp"
	kindMedianFilter = "medianfilter"
	kindActuator     = "actuator"
)

var componentKinds = []string{
	kindLightSensor, kindTempSensor, kindMedianFilter, kindActuator,
}

// addressOf returns the configured address of a component kind.
func addressOf(kind string) spa.LogicalAddress {
	switch kind {
	case kindLightSensor:
		return cfg.LightSensorAddress
	case kindTempSensor:
		return cfg.TempSensorAddress
	case kindMedianFilter:
		return cfg.FilterAddress
	case kindActuator:
		return cfg.ActuatorAddress
	}

	return spa.NullAddress
}

// buildComponent creates a component of the given kind on comm.
func buildComponent(
	kind string,
	comm spa.Communicator,
	clk clock.Clock,
	l *zap.Logger,
) (network.Component, error) {
	addr := addressOf(kind)

	switch kind {
	case kindLightSensor:
		return sensor.MakeBuilder().
			WithAddress(addr).
			WithManagerAddress(cfg.ManagerAddress).
			WithCommunicator(comm).
			WithClock(clk).
			WithLogger(l).
			WithSource(sensor.RandomWalk(90, 4, 60, 110, uint64(addr.Node))).
			Build("LightSensor"), nil
	case kindTempSensor:
		return sensor.MakeBuilder().
			WithAddress(addr).
			WithManagerAddress(cfg.ManagerAddress).
			WithCommunicator(comm).
			WithClock(clk).
			WithLogger(l).
			WithSource(sensor.RandomWalk(5, 2, -20, 40, uint64(addr.Node))).
			Build("TempSensor"), nil
	case kindMedianFilter:
		return medianfilter.MakeBuilder().
			WithAddress(addr).
			WithManagerAddress(cfg.ManagerAddress).
			WithLightSensor(cfg.LightSensorAddress).
			WithTempSensor(cfg.TempSensorAddress).
			WithWindow(cfg.FilterWindow).
			WithCommunicator(comm).
			WithClock(clk).
			WithLogger(l).
			Build("MedianFilter"), nil
	case kindActuator:
		return actuator.MakeBuilder().
			WithAddress(addr).
			WithManagerAddress(cfg.ManagerAddress).
			WithFilter(cfg.FilterAddress).
			WithDeliveryRateDivisor(cfg.ActuatorDivisor).
			WithCommunicator(comm).
			WithClock(clk).
			WithLogger(l).
			Build("Actuator"), nil
	}

	return nil, fmt.Errorf("unknown component %q, expected one of %v",
		kind, componentKinds)
}

func isComponentKind(kind string) bool {
	return slices.Contains(componentKinds, kind)
}
