package ventctl

import (
	"github.com/airqc/ventcore/airdemand"
	"github.com/airqc/ventcore/gp8403"
	"github.com/airqc/ventcore/sensordata"
)

// Poll runs one control tick: it drains any commands submitted since the
// last call, applies them, drives recovery/health checks, honors
// start/stop requests and pending updates, evaluates auto demand, handles
// timer expiry, and finally republishes the snapshot. nowMS is a
// monotonic millisecond clock supplied by the caller; sensorData may be
// nil if no reading is currently available.
func (c *Core) Poll(nowMS int64, sensorData *sensordata.Data, gasWarmup bool) {
	cmd := c.drain()

	var manualStepPending, timerPending bool
	var stopRequested, startRequested, autoStartRequested bool

	if cmd.hasAutoConfig {
		c.autoConfig = cmd.autoConfig
	}
	if cmd.hasMode {
		c.applyMode(cmd.mode)
	}
	if cmd.hasManualStep && cmd.manualStep != c.manualStep {
		c.manualStep = cmd.manualStep
		manualStepPending = true
	}
	if cmd.hasTimerSeconds && cmd.timerSeconds != c.selectedTimerSeconds {
		c.selectedTimerSeconds = cmd.timerSeconds
		timerPending = true
	}
	switch cmd.startStop {
	case StopRequest:
		stopRequested = true
	case StartRequest:
		startRequested = true
	case AutoStartRequest:
		autoStartRequested = true
	}
	if autoStartRequested {
		c.applyAutoStart()
	}

	// There is no compile-time DAC-disabled build of this core; every
	// build drives real hardware, so the corresponding short circuit in
	// the reference firmware has no equivalent step here.

	c.recoverOrHealthCheck(nowMS)
	if c.faulted {
		c.publish()
		return
	}

	if stopRequested {
		c.applyStopRequest(nowMS)
		if c.faulted {
			c.publish()
			return
		}
	}

	if startRequested {
		wrote := c.applyStartRequest(nowMS)
		if c.faulted {
			c.publish()
			return
		}
		if wrote {
			// The start write already used this tick's manualStep and
			// selectedTimerSeconds; suppress the redundant follow-up writes
			// below that would otherwise repeat it.
			manualStepPending = false
			timerPending = false
		}
	}

	if manualStepPending && c.running && c.manualOverrideActive && c.available {
		c.applyManualStepUpdate(nowMS)
		if c.faulted {
			c.publish()
			return
		}
	}

	if timerPending && c.running && c.manualOverrideActive {
		if c.selectedTimerSeconds > 0 {
			c.stopAtMS = nowMS + int64(c.selectedTimerSeconds)*1000
		} else {
			c.stopAtMS = 0
		}
	}

	if c.mode == Auto && c.available && !c.manualOverrideActive && !c.autoResumeBlocked {
		c.evaluateAutoDemand(nowMS, sensorData, gasWarmup)
		if c.faulted {
			c.publish()
			return
		}
	}

	c.checkTimerExpiry(nowMS)
	if c.faulted {
		c.publish()
		return
	}

	c.publish()
}

func (c *Core) applyMode(m Mode) {
	if m == Auto {
		// Selecting Auto is an explicit re-arm, even if already in Auto.
		c.autoResumeBlocked = false
	}
	c.mode = m
}

func (c *Core) applyStopRequest(nowMS int64) {
	if c.available {
		if err := c.dac.WriteChannelMillivolts(outputChannel, SafeErrorMV); err != nil {
			c.handleDacFault(nowMS)
			return
		}
		c.outputKnown = true
		c.outputMV = SafeErrorMV
	}
	c.applyStopState()
	if c.mode == Auto {
		c.autoResumeBlocked = true
	}
}

// applyStartRequest writes the manual start output and reports whether it
// did so; it is a no-op in Auto mode or while the DAC is unavailable.
func (c *Core) applyStartRequest(nowMS int64) bool {
	if c.mode != Manual || !c.available {
		return false
	}
	target := stepToMillivolts(c.manualStep)
	if err := c.dac.WriteChannelMillivolts(outputChannel, target); err != nil {
		c.handleDacFault(nowMS)
		return false
	}
	c.running = true
	c.manualOverrideActive = true
	c.outputKnown = true
	c.outputMV = target
	if c.selectedTimerSeconds > 0 {
		c.stopAtMS = nowMS + int64(c.selectedTimerSeconds)*1000
	} else {
		c.stopAtMS = 0
	}
	return true
}

func (c *Core) applyAutoStart() {
	c.manualOverrideActive = false
	c.stopAtMS = 0
	c.autoResumeBlocked = false
}

func (c *Core) applyManualStepUpdate(nowMS int64) {
	target := stepToMillivolts(c.manualStep)
	if err := c.dac.WriteChannelMillivolts(outputChannel, target); err != nil {
		c.handleDacFault(nowMS)
		return
	}
	c.outputMV = target
	c.outputKnown = true
}

func (c *Core) evaluateAutoDemand(nowMS int64, sensorData *sensordata.Data, gasWarmup bool) {
	demand := 0
	if c.autoConfig.Enabled && sensorData != nil {
		demand = airdemand.Evaluate(*sensorData, gasWarmup, c.autoConfig)
	}
	target := percentToMillivolts(demand)

	if target == 0 {
		if c.running || !c.outputKnown || c.outputMV != SafeErrorMV {
			if err := c.dac.WriteChannelMillivolts(outputChannel, SafeErrorMV); err != nil {
				c.handleDacFault(nowMS)
				return
			}
			c.outputMV = SafeErrorMV
			c.outputKnown = true
			c.applyStopState()
		} else {
			c.outputKnown = true
		}
		return
	}

	if !c.running || c.outputMV != target {
		if err := c.dac.WriteChannelMillivolts(outputChannel, target); err != nil {
			c.handleDacFault(nowMS)
			return
		}
		c.running = true
		c.outputKnown = true
		c.outputMV = target
		c.stopAtMS = 0
	}
}

func (c *Core) checkTimerExpiry(nowMS int64) {
	if !c.running || c.stopAtMS == 0 || nowMS < c.stopAtMS {
		return
	}
	if c.available {
		if err := c.dac.WriteChannelMillivolts(outputChannel, SafeErrorMV); err != nil {
			c.handleDacFault(nowMS)
			return
		}
		c.outputKnown = true
		c.outputMV = SafeErrorMV
	}
	c.applyStopState()
	if c.available && c.autoConfig.Enabled && !c.autoResumeBlocked {
		c.mode = Auto
	}
}

func (c *Core) recoverOrHealthCheck(nowMS int64) {
	if !c.available {
		if c.bootMissingLockout {
			return
		}
		if nowMS-c.lastRecoverAttemptMS < recoverCooldownMs {
			return
		}
		c.lastRecoverAttemptMS = nowMS
		_ = c.tryInitialize()
		return
	}

	if c.running {
		return
	}
	if nowMS-c.lastHealthCheckMS < healthCheckMs {
		return
	}
	c.lastHealthCheckMS = nowMS
	if err := c.dac.Probe(); err != nil {
		if c.healthFailCount < 255 {
			c.healthFailCount++
		}
		if c.healthFailCount >= healthFailThreshold {
			c.handleDacFault(nowMS)
		}
		return
	}
	c.healthFailCount = 0
}

func (c *Core) handleDacFault(nowMS int64) {
	c.available = false
	c.faulted = true
	c.applyStopState()
	c.outputKnown = false
	c.healthFailCount = 0
	c.lastRecoverAttemptMS = nowMS
}

// applyStopState clears the running/override flags and any pending timer
// deadline. It does not touch outputMV/outputKnown; callers set those
// according to whether the write that triggered the stop succeeded.
func (c *Core) applyStopState() {
	c.running = false
	c.manualOverrideActive = false
	c.stopAtMS = 0
}

func stepToMillivolts(step int) int {
	mv := step * manualStepMV
	if mv > FullScaleMV {
		mv = FullScaleMV
	}
	return mv
}

func percentToMillivolts(percent int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return (percent*FullScaleMV + 50) / 100
}

const outputChannel = gp8403.VOUT0
