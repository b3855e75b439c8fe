// Package autoconfig holds the auto-demand band configuration and its
// sanitization/serialization rules. It is a pure data layer: nothing here
// touches the bus, the fan state machine, or a file system.
package autoconfig

import "github.com/airqc/ventcore/util"

// Band holds the four severity-tier thresholds for one sensor channel, as
// percentages of the maximum fan demand.
type Band struct {
	Green  int `json:"green"`
	Yellow int `json:"yellow"`
	Orange int `json:"orange"`
	Red    int `json:"red"`
}

// SensorConfig is one channel's enable flag and band.
type SensorConfig struct {
	Enabled bool `json:"enabled"`
	Band    Band `json:"band"`
}

// Config is the full auto-demand configuration across all channels.
type Config struct {
	Enabled bool         `json:"enabled"`
	CO2     SensorConfig `json:"co2"`
	CO      SensorConfig `json:"co"`
	PM25    SensorConfig `json:"pm25"`
	VOC     SensorConfig `json:"voc"`
	NOx     SensorConfig `json:"nox"`
}

// Default returns the factory auto-demand configuration: disabled overall,
// every channel enabled, with the bands the device ships with.
func Default() Config {
	return Config{
		Enabled: false,
		CO2:     SensorConfig{Enabled: true, Band: Band{30, 50, 70, 100}},
		CO:      SensorConfig{Enabled: true, Band: Band{20, 50, 100, 100}},
		PM25:    SensorConfig{Enabled: true, Band: Band{20, 40, 70, 100}},
		VOC:     SensorConfig{Enabled: true, Band: Band{20, 50, 80, 100}},
		NOx:     SensorConfig{Enabled: true, Band: Band{20, 40, 70, 100}},
	}
}

// percentLimiter bounds every band threshold to a valid percentage.
var percentLimiter = util.Limiter{Min: 0, Max: 100}

func clampPercent(v int) int {
	return int(percentLimiter.Clamp(float64(v)))
}

func sanitizeBand(b Band) Band {
	return Band{
		Green:  clampPercent(b.Green),
		Yellow: clampPercent(b.Yellow),
		Orange: clampPercent(b.Orange),
		Red:    clampPercent(b.Red),
	}
}

func sanitizeSensor(s SensorConfig) SensorConfig {
	s.Band = sanitizeBand(s.Band)
	return s
}

// Sanitize clamps every band percentage into [0, 100], leaving enable
// flags untouched. It never fails.
func Sanitize(c Config) Config {
	c.CO2 = sanitizeSensor(c.CO2)
	c.CO = sanitizeSensor(c.CO)
	c.PM25 = sanitizeSensor(c.PM25)
	c.VOC = sanitizeSensor(c.VOC)
	c.NOx = sanitizeSensor(c.NOx)
	return c
}
