// Command ventctl runs the ventilation fan controller: it brings up the
// DAC, starts the periodic tick loop, exposes the command/query HTTP
// surface, and renders a status chip and boot spinner on the terminal.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"

	"github.com/airqc/ventcore/autoconfig"
	"github.com/airqc/ventcore/bootcfg"
	"github.com/airqc/ventcore/dacbus"
	"github.com/airqc/ventcore/gp8403"
	"github.com/airqc/ventcore/sensordata"
	"github.com/airqc/ventcore/util"
	"github.com/airqc/ventcore/ventapi"
	"github.com/airqc/ventcore/ventctl"
	"github.com/airqc/ventcore/ventloop"
)

// ConfigFileName is the process configuration file, distinct from the
// boot-seed file read via bootcfg.
const ConfigFileName = "ventctl.yml"

var k = koanf.New(".")

type config struct {
	Addr            string  `yaml:"Addr"`
	BusDevice       string  `yaml:"BusDevice"`
	BusAddress      int     `yaml:"BusAddress"`
	TickIntervalSec float64 `yaml:"TickIntervalSec"`
	BootConfigFile  string  `yaml:"BootConfigFile"`
	AutoConfigFile  string  `yaml:"AutoConfigFile"`
}

func defaultConfig() config {
	return config{
		Addr:            ":8080",
		BusDevice:       "/dev/i2c-1",
		BusAddress:      0x58,
		TickIntervalSec: 0.1,
		BootConfigFile:  "boot.yml",
		AutoConfigFile:  "auto-config.json",
	}
}

// validateConfig checks every independently-fallible field at once and
// reports them together, rather than making an operator fix one typo per
// restart.
func validateConfig(cfg config) error {
	var errs []error
	if cfg.Addr == "" {
		errs = append(errs, fmt.Errorf("Addr must not be empty"))
	}
	if cfg.BusDevice == "" {
		errs = append(errs, fmt.Errorf("BusDevice must not be empty"))
	}
	if cfg.BusAddress <= 0 || cfg.BusAddress > 0x7F {
		errs = append(errs, fmt.Errorf("BusAddress %#x is not a valid 7-bit I2C address", cfg.BusAddress))
	}
	if cfg.TickIntervalSec <= 0 {
		errs = append(errs, fmt.Errorf("TickIntervalSec must be positive, got %v", cfg.TickIntervalSec))
	}
	return util.MergeErrors(errs)
}

func loadConfig() config {
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "yaml"), nil); err != nil {
		log.Fatalf("loading default config: %v", err)
	}
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("loading %s: %v", ConfigFileName, err)
		}
	}
	var c config
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatalf("unmarshaling config: %v", err)
	}
	return c
}

func main() {
	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	tickInterval := util.SecsToDuration(cfg.TickIntervalSec)

	boot, err := bootcfg.Load(cfg.BootConfigFile)
	if err != nil {
		log.Fatalf("reading boot config: %v", err)
	}

	bus, err := openBus(cfg.BusDevice)
	if err != nil {
		log.Fatalf("opening I2C bus %s: %v", cfg.BusDevice, err)
	}

	dac := gp8403.New(bus)
	core := ventctl.New(dac, byte(cfg.BusAddress))
	core.SetAutoConfig(boot.AutoConfig)

	runBoot(core, boot.AutoModePreference)

	watchAutoConfig(cfg.AutoConfigFile, core)

	runner := ventloop.NewRunner(core, tickInterval, noSensorData, ventloop.WallClockMS)
	runner.Start()
	defer runner.Stop()

	go renderStatusChip(core)

	r := chi.NewRouter()
	ventapi.New(core).Mount(r, "")
	log.Printf("listening on %s", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, r))
}

// runBoot drives Core.Begin behind a terminal spinner, matching the
// boot-time feedback the device's status display gives an operator while
// the DAC comes up.
func runBoot(core *ventctl.Core, autoModePreference bool) {
	spinner, spinErr := yacspin.New(yacspin.Config{
		Frequency:     100 * time.Millisecond,
		CharSet:       yacspin.CharSets[9],
		Suffix:        " bringing up DAC",
		StopCharacter: "done",
	})
	if spinErr == nil {
		_ = spinner.Start()
	}

	err := core.Begin(autoModePreference)

	if spinErr == nil {
		if err != nil {
			_ = spinner.StopFail()
		} else {
			_ = spinner.Stop()
		}
	}
	if err != nil {
		log.Printf("boot-missing lockout: %v", err)
	}
}

// openBus is the one place that obtains a bus handle for devicePath. It
// delegates to dacbus.OpenOnDevice, which has no host-specific periph
// driver registry (e.g. periph.io/x/host's i2creg.Open) behind it and
// always returns an error, so main stops here with log.Fatalf.
func openBus(devicePath string) (*dacbus.PeriphBus, error) {
	return dacbus.OpenOnDevice(devicePath)
}

// noSensorData is the sensor source used until a real acquisition
// subsystem is wired in; ventctl treats a nil reading as "no auto-demand
// input this tick", which is the correct behavior for an unpopulated
// sensor bay.
func noSensorData() (*sensordata.Data, bool) {
	return nil, false
}

func watchAutoConfig(path string, core *ventctl.Core) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("auto-config hot reload disabled: %v", err)
		return
	}
	if err := watcher.Add(path); err != nil {
		log.Printf("auto-config hot reload disabled for %s: %v", path, err)
		return
	}
	go func() {
		for event := range watcher.Events {
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				log.Printf("auto-config reload: %v", err)
				continue
			}
			cfg, err := autoconfig.DecodeFromFile(raw)
			if err != nil {
				log.Printf("auto-config reload: %v", err)
				continue
			}
			core.SetAutoConfig(cfg)
			log.Printf("auto-config reloaded from %s", path)
		}
	}()
}

func renderStatusChip(core *ventctl.Core) {
	var last ventctl.Snapshot
	first := true
	for range time.Tick(500 * time.Millisecond) {
		snap := core.Snapshot()
		if !first && snap.Faulted == last.Faulted && snap.Running == last.Running && snap.Available == last.Available {
			continue
		}
		first = false
		last = snap
		printChip(snap)
	}
}

func printChip(snap ventctl.Snapshot) {
	switch {
	case snap.Faulted:
		color.New(color.FgWhite, color.BgRed).Println(" FAULT ")
	case !snap.Available:
		color.New(color.FgWhite, color.BgHiBlack).Println(" OFFLINE ")
	case snap.Running:
		color.New(color.FgBlack, color.BgGreen).Println(" RUNNING ")
	default:
		color.New(color.FgBlack, color.BgHiWhite).Println(" STOPPED ")
	}
}
