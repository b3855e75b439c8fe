// Package airdemand computes the fan demand percentage implied by the
// current air-quality readings. Evaluate is a pure function: given the
// same inputs it always returns the same output, with no I/O and no
// hidden state, so it is safe to call from the control tick without
// touching the bus-facing mutex at all.
package airdemand

import (
	"math"

	"github.com/airqc/ventcore/autoconfig"
	"github.com/airqc/ventcore/sensordata"
)

// Evaluate returns the demanded fan output, 0-100%, as the maximum
// contribution across all enabled, valid sensor channels. Disabled
// channels, invalid readings, and (for VOC/NOx) an active gas sensor
// warm-up all contribute zero.
func Evaluate(data sensordata.Data, gasWarmup bool, cfg autoconfig.Config) int {
	best := 0
	if p := co2Percent(data, cfg.CO2); p > best {
		best = p
	}
	if p := coPercent(data, cfg.CO); p > best {
		best = p
	}
	if p := pm25Percent(data, cfg.PM25); p > best {
		best = p
	}
	if !gasWarmup {
		if p := vocPercent(data, cfg.VOC); p > best {
			best = p
		}
		if p := noxPercent(data, cfg.NOx); p > best {
			best = p
		}
	}
	return best
}

// co2Percent uses strict less-than at every tier boundary, matching the
// reference firmware's CO2 evaluation, which differs from the other
// channels deliberately or not.
func co2Percent(data sensordata.Data, s autoconfig.SensorConfig) int {
	if !s.Enabled || !data.CO2Valid || data.CO2 <= 0 {
		return 0
	}
	v := data.CO2
	switch {
	case v < 800:
		return s.Band.Green
	case v < 1000:
		return s.Band.Yellow
	case v < 1500:
		return s.Band.Orange
	default:
		return s.Band.Red
	}
}

func coPercent(data sensordata.Data, s autoconfig.SensorConfig) int {
	if !s.Enabled || !data.COSensorPresent || !data.COValid {
		return 0
	}
	v := data.CO
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	switch {
	case v < 9:
		return s.Band.Green
	case v <= 35:
		return s.Band.Yellow
	case v <= 100:
		return s.Band.Orange
	default:
		return s.Band.Red
	}
}

func pm25Percent(data sensordata.Data, s autoconfig.SensorConfig) int {
	if !s.Enabled || !data.PM25Valid {
		return 0
	}
	v := data.PM25
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	switch {
	case v <= 12:
		return s.Band.Green
	case v <= 35:
		return s.Band.Yellow
	case v <= 55:
		return s.Band.Orange
	default:
		return s.Band.Red
	}
}

func vocPercent(data sensordata.Data, s autoconfig.SensorConfig) int {
	if !s.Enabled || !data.VOCValid || data.VOC < 0 {
		return 0
	}
	v := data.VOC
	switch {
	case v <= 150:
		return s.Band.Green
	case v <= 250:
		return s.Band.Yellow
	case v <= 350:
		return s.Band.Orange
	default:
		return s.Band.Red
	}
}

func noxPercent(data sensordata.Data, s autoconfig.SensorConfig) int {
	if !s.Enabled || !data.NOxValid || data.NOx < 0 {
		return 0
	}
	v := data.NOx
	switch {
	case v <= 50:
		return s.Band.Green
	case v <= 100:
		return s.Band.Yellow
	case v <= 200:
		return s.Band.Orange
	default:
		return s.Band.Red
	}
}
