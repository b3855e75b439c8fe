// Package ventloop provides the periodic scheduler that drives a
// ventctl.Core's tick. It owns the process clock and the cadence at which
// Poll is called; nothing in ventctl itself sleeps or loops.
package ventloop

import (
	"time"

	"github.com/airqc/ventcore/sensordata"
	"github.com/airqc/ventcore/ventctl"
)

// SensorSource supplies the latest sensor reading and gas-warmup flag on
// each tick. It may return a nil SensorData if no reading is currently
// available; ventctl treats that as "no auto-demand input this tick".
type SensorSource func() (data *sensordata.Data, gasWarmup bool)

// Clock returns the current time as milliseconds on a monotonic clock.
// Tests can substitute a fake to drive deterministic ticks.
type Clock func() int64

// Runner calls core.Poll on a fixed cadence until stopped. It mirrors the
// start/stop/signal-channel shape this codebase's other periodic loops
// use, trimmed to the one thing a tick runner needs: start and stop.
type Runner struct {
	core   *ventctl.Core
	period time.Duration
	source SensorSource
	clock  Clock

	signal chan struct{}
	done   chan struct{}
}

// NewRunner builds a Runner that ticks core every period, pulling sensor
// data from source and timestamps from clock.
func NewRunner(core *ventctl.Core, period time.Duration, source SensorSource, clock Clock) *Runner {
	return &Runner{
		core:   core,
		period: period,
		source: source,
		clock:  clock,
		signal: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins ticking in a background goroutine. It returns immediately.
func (r *Runner) Start() {
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.period)
		defer ticker.Stop()
		for {
			select {
			case <-r.signal:
				return
			case <-ticker.C:
				data, warmup := r.source()
				r.core.Poll(r.clock(), data, warmup)
			}
		}
	}()
}

// Stop signals the runner to exit and waits for the in-flight tick, if
// any, to finish.
func (r *Runner) Stop() {
	close(r.signal)
	<-r.done
}

// WallClockMS is the Clock a production binary uses: milliseconds since
// the Unix epoch. It is not used by tests, which substitute a
// deterministic Clock instead.
func WallClockMS() int64 {
	return time.Now().UnixMilli()
}
