// Package ventctl implements the fan control state machine: it arbitrates
// between a user-selected manual level/timer and an automatic
// demand-following mode, drives the DAC accordingly, and recovers from
// driver faults on a cooldown. Exactly one goroutine (the tick runner)
// may call Poll; any number of goroutines may call the command setters
// and Snapshot concurrently with it and with each other.
package ventctl

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/airqc/ventcore/autoconfig"
	"github.com/airqc/ventcore/gp8403"
	"github.com/airqc/ventcore/util"
)

// Mode selects between a user-driven manual output level and demand
// tracking driven by air-quality sensors.
type Mode int

const (
	Manual Mode = iota
	Auto
)

func (m Mode) String() string {
	if m == Auto {
		return "auto"
	}
	return "manual"
}

// StartStopRequest is the single latched start/stop action a command
// batch may carry; later requests overwrite earlier ones within a tick.
type StartStopRequest int

const (
	NoRequest StartStopRequest = iota
	StartRequest
	StopRequest
	AutoStartRequest
)

const (
	// FullScaleMV mirrors gp8403.FullScaleMV, re-exported here so
	// ventctl's arithmetic and its callers read against the 0-10000mV
	// range without naming the driver package.
	FullScaleMV = gp8403.FullScaleMV

	// SafeDefaultMV is written by every (re)initialization of the DAC, at
	// boot and on each successful recovery, before anything has run.
	SafeDefaultMV = 0

	// SafeErrorMV is the output held whenever the fan is stopped (by
	// request, by timer expiry, or by auto demand dropping to zero) but
	// the DAC is still known to be healthy.
	SafeErrorMV = 0

	manualStepMV = 1000
	minManualStep = 1
	maxManualStep = 10

	recoverCooldownMs   = 5000
	healthCheckMs       = 2000
	healthFailThreshold = 3
)

// pendingCommands batches at-most-one-of-each command, submitted by any
// caller and drained at the start of the next tick. Overwriting within a
// batch is last-writer-wins.
type pendingCommands struct {
	hasMode bool
	mode    Mode

	hasManualStep bool
	manualStep    int

	hasTimerSeconds bool
	timerSeconds    int

	hasAutoConfig bool
	autoConfig    autoconfig.Config

	startStop StartStopRequest
}

// Snapshot is the read-only view of the core's state published at the end
// of every tick.
type Snapshot struct {
	Available            bool
	Running               bool
	Faulted               bool
	OutputKnown           bool
	ManualOverrideActive  bool
	AutoResumeBlocked     bool
	Mode                  Mode
	ManualStep            int
	SelectedTimerSeconds  int
	OutputMV              int
	StopAtMS              int64
	AutoConfig            autoconfig.Config
}

// OutputPercent returns the snapshot's output as a 0-100 percentage of
// full scale, rounded to the nearest integer.
func (s Snapshot) OutputPercent() int {
	return (s.OutputMV*100 + FullScaleMV/2) / FullScaleMV
}

// RemainingSeconds returns the ceiling of the time left until StopAtMS,
// or 0 if not running, no deadline is set, or the deadline has passed.
func (s Snapshot) RemainingSeconds(nowMS int64) int {
	if !s.Running || s.StopAtMS == 0 || nowMS >= s.StopAtMS {
		return 0
	}
	remaining := s.StopAtMS - nowMS
	return int((remaining + 999) / 1000)
}

// Core is the fan control state machine. The zero value is not usable;
// construct with New.
type Core struct {
	dac *gp8403.Driver

	mu       sync.Mutex
	pending  pendingCommands
	snapshot Snapshot

	// Private state, owned exclusively by the goroutine calling Poll.
	available           bool
	running              bool
	faulted              bool
	outputKnown          bool
	manualOverrideActive bool
	autoResumeBlocked    bool
	bootMissingLockout   bool

	mode                 Mode
	manualStep           int
	selectedTimerSeconds int
	outputMV             int
	stopAtMS             int64

	autoConfig autoconfig.Config

	lastRecoverAttemptMS int64
	lastHealthCheckMS    int64
	healthFailCount      uint8

	address byte
}

// New returns a Core driving dac, not yet initialized; call Begin before
// the first Poll.
func New(dac *gp8403.Driver, address byte) *Core {
	return &Core{
		dac:        dac,
		address:    address,
		manualStep: minManualStep,
		autoConfig: autoconfig.Sanitize(autoconfig.Default()),
	}
}

// Begin attempts to bring the DAC up: probe, select the 10V range, and
// write the safe default output. autoModePreference seeds the mode the
// core starts in, whether or not the DAC comes up. A first-boot failure is
// permanent: the core enters a boot-missing lockout and Poll will never
// attempt recovery again until the process restarts.
func (c *Core) Begin(autoModePreference bool) error {
	c.manualStep = minManualStep
	if autoModePreference {
		c.mode = Auto
	} else {
		c.mode = Manual
	}

	if err := c.tryInitialize(); err != nil {
		c.bootMissingLockout = true
		c.available = false
		c.publish()
		return errors.Wrap(err, "ventctl: boot initialization failed, entering permanent lockout")
	}
	c.publish()
	return nil
}

func (c *Core) tryInitialize() error {
	if err := c.dac.Begin(c.address); err != nil {
		return err
	}
	if err := c.dac.SetOutputRange10V(); err != nil {
		return err
	}
	if err := c.dac.WriteChannelMillivolts(gp8403.VOUT0, SafeDefaultMV); err != nil {
		return err
	}

	c.available = true
	c.faulted = false
	c.running = false
	c.manualOverrideActive = false
	c.autoResumeBlocked = false
	c.outputKnown = true
	c.outputMV = SafeDefaultMV
	c.stopAtMS = 0
	c.healthFailCount = 0
	return nil
}

// --- Command surface: thread-safe setters, enqueue-only -------------------

// SetMode records the desired operating mode for the next tick.
func (c *Core) SetMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending.hasMode = true
	c.pending.mode = m
	if m == Manual && c.pending.startStop == AutoStartRequest {
		c.pending.startStop = NoRequest
	}
}

// manualStepLimiter bounds the manual output step to the device's ten
// discrete levels.
var manualStepLimiter = util.Limiter{Min: minManualStep, Max: maxManualStep}

// SetManualStep clamps and records the manual output step.
func (c *Core) SetManualStep(step int) {
	step = int(manualStepLimiter.Clamp(float64(step)))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending.hasManualStep = true
	c.pending.manualStep = step
}

// SetTimerSeconds records the manual-mode auto-stop timer, in seconds; 0
// disables it.
func (c *Core) SetTimerSeconds(secs int) {
	if secs < 0 {
		secs = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending.hasTimerSeconds = true
	c.pending.timerSeconds = secs
}

// RequestStart latches a manual-mode start request.
func (c *Core) RequestStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending.startStop = StartRequest
}

// RequestStop latches a stop request, applied regardless of mode.
func (c *Core) RequestStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending.startStop = StopRequest
}

// RequestAutoStart latches a request to switch to Auto mode and clear any
// manual override in one step.
func (c *Core) RequestAutoStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending.hasMode = true
	c.pending.mode = Auto
	c.pending.startStop = AutoStartRequest
}

// SetAutoConfig sanitizes and records a new auto-demand configuration.
func (c *Core) SetAutoConfig(cfg autoconfig.Config) {
	cfg = autoconfig.Sanitize(cfg)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending.hasAutoConfig = true
	c.pending.autoConfig = cfg
}

// Snapshot returns the most recently published read-only state.
func (c *Core) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// publish copies the private state into the mutex-guarded snapshot. Must
// be called with the control thread's exclusive ownership of the private
// fields (i.e. only from within Poll/Begin).
func (c *Core) publish() {
	snap := Snapshot{
		Available:            c.available,
		Running:              c.running,
		Faulted:              c.faulted,
		OutputKnown:          c.outputKnown,
		ManualOverrideActive: c.manualOverrideActive,
		AutoResumeBlocked:    c.autoResumeBlocked,
		Mode:                 c.mode,
		ManualStep:           c.manualStep,
		SelectedTimerSeconds: c.selectedTimerSeconds,
		OutputMV:             c.outputMV,
		StopAtMS:             c.stopAtMS,
		AutoConfig:           c.autoConfig,
	}
	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()
}

func (c *Core) drain() pendingCommands {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pending
	c.pending = pendingCommands{}
	return p
}
