package dacbus

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/time/rate"
	"periph.io/x/conn/v3/i2c"
)

// DefaultTimeout is the per-transaction bound applied to every Write and
// WriteRead issued through a PeriphBus, matching the register peer's fixed
// I2C timeout.
const DefaultTimeout = 50 * time.Millisecond

// Opener produces a ready-to-use periph I2C bus, e.g. by calling
// periphery's host-specific i2creg.Open under the hood. It is supplied by
// the caller so this package never has to depend on a specific host
// driver registry.
type Opener func() (i2c.Bus, error)

// OpenWithBackoff calls open, retrying on failure with an exponentially
// growing delay. Device nodes can appear a little after process start on
// some carrier boards, so a handful of short retries clears most boot-race
// failures without hanging the caller indefinitely.
func OpenWithBackoff(open Opener) (i2c.Bus, error) {
	var bus i2c.Bus
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second

	op := func() error {
		var err error
		bus, err = open()
		return err
	}
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return bus, nil
}

// OpenOnDevice always returns an error naming devicePath: no bus is opened
// and no PeriphBus is built here. Host-specific bus construction
// (e.g. periph.io/x/host/v3's i2creg registry, or a Linux sysfs/ioctl
// opener) is intentionally not vendored here: callers on a real target
// provide an Opener that knows how their platform exposes devicePath.
func OpenOnDevice(devicePath string) (*PeriphBus, error) {
	return nil, fmt.Errorf("dacbus: no platform I2C opener registered for %s; call NewPeriphBus with a bus obtained from your host driver", devicePath)
}

// PeriphBus adapts a periph.io/x/conn/v3/i2c.Bus to the Bus interface,
// adding a per-transaction timeout and a shared-bus rate limiter so the
// DAC driver cannot starve other devices on the same physical bus.
type PeriphBus struct {
	bus     i2c.Bus
	timeout time.Duration
	limiter *rate.Limiter
}

// NewPeriphBus wraps an already-opened periph bus. ratePerSec and burst
// configure the shared-bus limiter; pass 0 for ratePerSec to disable
// throttling.
func NewPeriphBus(bus i2c.Bus, ratePerSec float64, burst int) *PeriphBus {
	pb := &PeriphBus{bus: bus, timeout: DefaultTimeout}
	if ratePerSec > 0 {
		pb.limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return pb
}

func (p *PeriphBus) wait() {
	if p.limiter != nil {
		_ = p.limiter.Wait(context.Background())
	}
}

// Write implements Bus.
func (p *PeriphBus) Write(addr, reg byte, payload []byte) error {
	if len(payload) > 2 {
		return wrapErr("write", addr, reg, fmt.Errorf("payload of %d bytes exceeds 2", len(payload)))
	}
	p.wait()
	w := make([]byte, 0, 1+len(payload))
	w = append(w, reg)
	w = append(w, payload...)
	errc := make(chan error, 1)
	go func() { errc <- p.bus.Tx(uint16(addr), w, nil) }()
	select {
	case err := <-errc:
		return wrapErr("write", addr, reg, err)
	case <-time.After(p.timeout):
		return wrapErr("write", addr, reg, errTimeout)
	}
}

// WriteRead implements Bus.
func (p *PeriphBus) WriteRead(addr, reg byte, out []byte) error {
	p.wait()
	errc := make(chan error, 1)
	go func() { errc <- p.bus.Tx(uint16(addr), []byte{reg}, out) }()
	select {
	case err := <-errc:
		return wrapErr("writeRead", addr, reg, err)
	case <-time.After(p.timeout):
		return wrapErr("writeRead", addr, reg, errTimeout)
	}
}
