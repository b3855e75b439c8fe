package airdemand

import (
	"testing"

	"github.com/airqc/ventcore/autoconfig"
	"github.com/airqc/ventcore/sensordata"
)

func enabledCfg() autoconfig.Config {
	return autoconfig.Sanitize(autoconfig.Default())
}

func TestCO2BoundaryIsStrictLessThan(t *testing.T) {
	cfg := enabledCfg()
	green := sensordata.Data{CO2: 799, CO2Valid: true}
	yellow := sensordata.Data{CO2: 800, CO2Valid: true}

	if got := Evaluate(green, false, cfg); got != cfg.CO2.Band.Green {
		t.Fatalf("co2=799 want green=%d got %d", cfg.CO2.Band.Green, got)
	}
	if got := Evaluate(yellow, false, cfg); got != cfg.CO2.Band.Yellow {
		t.Fatalf("co2=800 want yellow=%d got %d", cfg.CO2.Band.Yellow, got)
	}
}

func TestCOBoundaryUsesLessOrEqual(t *testing.T) {
	cfg := enabledCfg()
	mkCO := func(v float64) sensordata.Data {
		return sensordata.Data{CO: v, COValid: true, COSensorPresent: true}
	}

	if got := Evaluate(mkCO(9.0), false, cfg); got != cfg.CO.Band.Yellow {
		t.Fatalf("co=9.0 want yellow got %d", got)
	}
	if got := Evaluate(mkCO(35.0), false, cfg); got != cfg.CO.Band.Yellow {
		t.Fatalf("co=35.0 want yellow got %d", got)
	}
	if got := Evaluate(mkCO(35.0001), false, cfg); got != cfg.CO.Band.Orange {
		t.Fatalf("co=35.0001 want orange got %d", got)
	}
}

func TestPM25Boundary(t *testing.T) {
	cfg := enabledCfg()
	mkPM := func(v float64) sensordata.Data { return sensordata.Data{PM25: v, PM25Valid: true} }

	if got := Evaluate(mkPM(12.0), false, cfg); got != cfg.PM25.Band.Green {
		t.Fatalf("pm25=12.0 want green got %d", got)
	}
	if got := Evaluate(mkPM(12.0001), false, cfg); got != cfg.PM25.Band.Yellow {
		t.Fatalf("pm25=12.0001 want yellow got %d", got)
	}
}

func TestGasWarmupZeroesVOCAndNOx(t *testing.T) {
	cfg := enabledCfg()
	data := sensordata.Data{VOC: 900, VOCValid: true, NOx: 900, NOxValid: true}
	if got := Evaluate(data, true, cfg); got != 0 {
		t.Fatalf("expected 0 demand during warmup, got %d", got)
	}
	if got := Evaluate(data, false, cfg); got != cfg.VOC.Band.Red {
		t.Fatalf("expected red demand once warmup clears, got %d", got)
	}
}

func TestDisabledChannelContributesNothing(t *testing.T) {
	cfg := enabledCfg()
	cfg.CO2.Enabled = false
	data := sensordata.Data{CO2: 5000, CO2Valid: true}
	if got := Evaluate(data, false, cfg); got != 0 {
		t.Fatalf("expected disabled channel to contribute 0, got %d", got)
	}
}

func TestMaxAcrossChannelsWins(t *testing.T) {
	cfg := enabledCfg()
	data := sensordata.Data{
		CO2: 100, CO2Valid: true, // green
		PM25: 100, PM25Valid: true, // red
	}
	if got := Evaluate(data, false, cfg); got != cfg.PM25.Band.Red {
		t.Fatalf("expected the worse channel (PM2.5 red) to win, got %d", got)
	}
}
