package gp8403

import (
	"errors"
	"testing"

	"github.com/airqc/ventcore/dacbus/dacbustest"
)

func TestBeginProbesAddress(t *testing.T) {
	bus := dacbustest.NewFake()
	d := New(bus)
	if err := d.Begin(0x58); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if len(bus.Log) != 1 || bus.Log[0].Op != "writeRead" {
		t.Fatalf("expected one writeRead probe, got %+v", bus.Log)
	}
}

func TestProbeFailsWithoutAddress(t *testing.T) {
	d := New(dacbustest.NewFake())
	if err := d.Probe(); err == nil {
		t.Fatal("expected error probing unset address")
	}
}

func TestWriteChannelRaw12ClampsAndPacksLittleEndian(t *testing.T) {
	bus := dacbustest.NewFake()
	d := New(bus)
	_ = d.Begin(0x58)

	if err := d.WriteChannelRaw12(VOUT0, 0x1FFF); err != nil {
		t.Fatalf("WriteChannelRaw12: %v", err)
	}
	last := bus.Log[len(bus.Log)-1]
	word := uint16(last.Payload[0]) | uint16(last.Payload[1])<<8
	if word != maxRaw12<<4 {
		t.Fatalf("expected clamped raw12 %#x, got %#x", maxRaw12<<4, word)
	}
}

func TestWriteChannelMillivoltsFullScale(t *testing.T) {
	bus := dacbustest.NewFake()
	d := New(bus)
	_ = d.Begin(0x58)

	if err := d.WriteChannelMillivolts(VOUT0, FullScaleMV); err != nil {
		t.Fatalf("WriteChannelMillivolts: %v", err)
	}
	last := bus.Log[len(bus.Log)-1]
	word := uint16(last.Payload[0]) | uint16(last.Payload[1])<<8
	if word>>4 != maxRaw12 {
		t.Fatalf("10000mV should map to max raw12, got %#x", word>>4)
	}
}

func TestWriteChannelMillivoltsRoundTripWithin50mV(t *testing.T) {
	bus := dacbustest.NewFake()
	d := New(bus)
	_ = d.Begin(0x58)

	for mv := 0; mv <= FullScaleMV; mv += 37 {
		if err := d.WriteChannelMillivolts(VOUT0, mv); err != nil {
			t.Fatalf("WriteChannelMillivolts(%d): %v", mv, err)
		}
		last := bus.Log[len(bus.Log)-1]
		raw12 := int(uint16(last.Payload[0])|uint16(last.Payload[1])<<8) >> 4
		reconstructed := raw12 * FullScaleMV / maxRaw12
		diff := reconstructed - mv
		if diff < 0 {
			diff = -diff
		}
		if diff > 50 {
			t.Fatalf("mv=%d reconstructed=%d diff=%d exceeds 50mV", mv, reconstructed, diff)
		}
	}
}

func TestBusFailurePropagates(t *testing.T) {
	bus := dacbustest.NewFake()
	d := New(bus)
	_ = d.Begin(0x58)
	bus.FailAlways(errors.New("boom"))

	if err := d.WriteChannelMillivolts(VOUT0, 5000); err == nil {
		t.Fatal("expected bus failure to propagate")
	}
}

func TestUnknownChannelRejectedLocally(t *testing.T) {
	bus := dacbustest.NewFake()
	d := New(bus)
	_ = d.Begin(0x58)
	if err := d.WriteChannelRaw12(Channel(99), 100); err == nil {
		t.Fatal("expected unknown channel to be rejected")
	}
	if len(bus.Log) != 1 {
		t.Fatalf("unknown channel must not reach the bus, log=%+v", bus.Log)
	}
}
