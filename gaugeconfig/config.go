// Package gaugeconfig reads the static gauge configuration file. Everything
// here is resolved once at startup; the gauge itself never re-reads
// configuration.
package gaugeconfig

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/korimako-electronics/vdivider-gauge/gauge"
)

const (
	DefaultConfigDir = "/etc/vdivider-gauge"
	configName       = "gauge"

	BatteryKey   = "battery"
	ADCKey       = "adc"
	PowerGateKey = "power-gate"
)

// Battery configures the divider ratio and the discharge curve.
type Battery struct {
	DividerOutputOhms     uint32       `mapstructure:"divider-output-ohms"`
	DividerFullOhms       uint32       `mapstructure:"divider-full-ohms"`
	SampleIntervalSeconds int          `mapstructure:"sample-interval-seconds"`
	Curve                 []CurvePoint `mapstructure:"curve"` // empty means the built-in Li-Ion curve
}

type CurvePoint struct {
	VoltageMV int16 `mapstructure:"voltage-mv"`
	Percent   uint8 `mapstructure:"percent"`
}

// ADC configures the acquisition channel.
type ADC struct {
	Address     uint16 `mapstructure:"address"`
	Channel     int    `mapstructure:"channel"`
	FullScaleMV uint32 `mapstructure:"full-scale-mv"`
	Oversample  uint8  `mapstructure:"oversample"`
}

// PowerGate configures the optional divider power control line.
type PowerGate struct {
	Enabled   bool   `mapstructure:"enabled"`
	Pin       string `mapstructure:"pin"`
	ActiveLow bool   `mapstructure:"active-low"`
}

func DefaultBattery() Battery {
	return Battery{
		DividerOutputOhms:     100000,
		DividerFullOhms:       200000,
		SampleIntervalSeconds: 120,
	}
}

func DefaultADC() ADC {
	return ADC{
		Address:     0x48,
		FullScaleMV: 4096,
		Oversample:  4,
	}
}

func DefaultPowerGate() PowerGate {
	return PowerGate{}
}

// DividerConfig converts the battery section to the gauge's divider model.
func (b Battery) DividerConfig() gauge.DividerConfig {
	return gauge.DividerConfig{OutputOhm: b.DividerOutputOhms, FullOhm: b.DividerFullOhms}
}

// ChargeCurve returns the configured curve, or the built-in Li-Ion curve
// when none is set.
func (b Battery) ChargeCurve() gauge.Curve {
	if len(b.Curve) == 0 {
		return gauge.LiIonCurve
	}
	curve := make(gauge.Curve, 0, len(b.Curve))
	for _, p := range b.Curve {
		curve = append(curve, gauge.ChargeLevelPoint{VoltageMV: p.VoltageMV, Percent: p.Percent})
	}
	return curve
}

// Config is a handle to the loaded configuration file.
type Config struct {
	v *viper.Viper
}

// New loads gauge.yaml from dir. A missing file is not an error; sections
// then unmarshal to their defaults.
func New(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config from %s: %w", dir, err)
		}
	}
	return &Config{v: v}, nil
}

// Unmarshal fills raw from one section of the file. Fields absent from the
// file keep whatever values raw already holds, so pass the section default.
func (c *Config) Unmarshal(key string, raw interface{}) error {
	if !c.v.IsSet(key) {
		return nil
	}
	return c.v.UnmarshalKey(key, raw)
}
