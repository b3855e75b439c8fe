// Package gp8403 drives a GP8403-family two-channel 12-bit I2C DAC: an
// address probe, 0-10V output range selection, and millivolt-precision
// channel writes. It owns none of the bus transport; callers inject a
// dacbus.Bus.
package gp8403

import (
	"github.com/pkg/errors"

	"github.com/airqc/ventcore/dacbus"
	"github.com/airqc/ventcore/util"
)

// Channel selects which of the two analog outputs a write targets.
type Channel int

const (
	// VOUT0 is the channel driving the fan's control input.
	VOUT0 Channel = iota
	VOUT1
)

const (
	regOutputRange = 0x01
	regChannel0    = 0x02
	regChannel1    = 0x03

	rangeSelector10V = 0x11

	// FullScaleMV is the output voltage, in millivolts, that corresponds
	// to the maximum 12-bit codeword in the 0-10V range.
	FullScaleMV = 10000

	// MinMV is the lowest millivolt value writeChannelMillivolts accepts.
	MinMV = 0

	maxRaw12 = 0x0FFF
)

// Driver is a GP8403 DAC on a shared I2C bus.
type Driver struct {
	bus     dacbus.Bus
	address byte
}

// New returns a Driver bound to bus. Begin must be called before any
// other method will succeed.
func New(bus dacbus.Bus) *Driver {
	return &Driver{bus: bus}
}

// Begin stores the device's bus address and probes it.
func (d *Driver) Begin(address byte) error {
	d.address = address
	return d.Probe()
}

// Probe reads the output-range register to confirm the device answers on
// the bus. The byte read is not interpreted; only transport success
// matters.
func (d *Driver) Probe() error {
	if d.address == 0 {
		return errors.New("gp8403: probe with unset address")
	}
	var out [1]byte
	return d.bus.WriteRead(d.address, regOutputRange, out[:])
}

// SetOutputRange10V configures both channels for the 0-10V output range.
func (d *Driver) SetOutputRange10V() error {
	if d.address == 0 {
		return errors.New("gp8403: setOutputRange10V with unset address")
	}
	return d.bus.Write(d.address, regOutputRange, []byte{rangeSelector10V})
}

func (d *Driver) channelRegister(ch Channel) (byte, error) {
	switch ch {
	case VOUT0:
		return regChannel0, nil
	case VOUT1:
		return regChannel1, nil
	default:
		return 0, errors.Errorf("gp8403: unknown channel %d", ch)
	}
}

// WriteChannelRaw12 clamps raw12 to [0, 0x0FFF] and writes it, left
// shifted by 4 bits and packed little-endian, to ch's register.
func (d *Driver) WriteChannelRaw12(ch Channel, raw12 int) error {
	if d.address == 0 {
		return errors.New("gp8403: write with unset address")
	}
	reg, err := d.channelRegister(ch)
	if err != nil {
		return err
	}
	raw12 = int(util.Clamp(float64(raw12), 0, maxRaw12))
	word := uint16(raw12) << 4
	payload := []byte{byte(word), byte(word >> 8)}
	return d.bus.Write(d.address, reg, payload)
}

// WriteChannelMillivolts clamps mv to [MinMV, FullScaleMV], converts it to
// a 12-bit codeword with round-to-nearest integer arithmetic, and writes
// it to ch. It reports an error if FullScaleMV is misconfigured to zero,
// since the conversion would divide by it.
func (d *Driver) WriteChannelMillivolts(ch Channel, mv int) error {
	if FullScaleMV == 0 {
		return errors.New("gp8403: full scale millivolts is zero")
	}
	mv = int(util.Clamp(float64(mv), MinMV, FullScaleMV))
	numerator := mv*maxRaw12 + FullScaleMV/2
	raw12 := numerator / FullScaleMV
	return d.WriteChannelRaw12(ch, raw12)
}
