// Package bootcfg loads the one-time boot seed the fan control core needs
// at startup: whether it should prefer Auto mode, which I2C address the
// DAC lives at, and an initial auto-demand configuration. This is
// distinct from the byte-exact AutoConfig JSON boundary in autoconfig;
// bootcfg only supplies the seed a process hands to ventctl.Core.Begin
// and SetAutoConfig once, at startup.
package bootcfg

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/airqc/ventcore/autoconfig"
)

// Boot holds the values read from the boot YAML file.
type Boot struct {
	AutoModePreference bool              `yaml:"auto_mode_preference"`
	BusAddress         byte              `yaml:"bus_address"`
	AutoConfig         autoconfig.Config `yaml:"auto_config"`
}

// Default returns the seed used when no boot file is present: Manual
// mode, the device's factory I2C address, and the factory auto-config.
func Default() Boot {
	return Boot{
		AutoModePreference: false,
		BusAddress:         0x58,
		AutoConfig:         autoconfig.Sanitize(autoconfig.Default()),
	}
}

// Load reads path and decodes it as YAML into a Boot. A missing file is
// not an error: Load returns Default() unchanged, since a fresh install
// has nothing to load yet.
func Load(path string) (Boot, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Boot{}, errors.Wrapf(err, "bootcfg: reading %s", path)
	}

	boot := Default()
	if err := yaml.Unmarshal(raw, &boot); err != nil {
		return Boot{}, errors.Wrapf(err, "bootcfg: parsing %s", path)
	}
	boot.AutoConfig = autoconfig.Sanitize(boot.AutoConfig)
	return boot, nil
}
