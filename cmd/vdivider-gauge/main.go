/*
vdivider-gauge - Battery gauge for voltage-divider measurement rigs
Copyright (C) 2024, Korimako Electronics

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"fmt"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/korimako-electronics/vdivider-gauge/ads1115"
	"github.com/korimako-electronics/vdivider-gauge/gauge"
	"github.com/korimako-electronics/vdivider-gauge/gaugeconfig"
)

var version = "<not set>"

var log = logrus.New()

type argSpec struct {
	ConfigDir string `arg:"-c,--config" help:"configuration folder"`
	OneShot   bool   `arg:"--one-shot" help:"take a single reading, print it, and exit"`
	LogLevel  string `arg:"-l,--log-level" default:"info" help:"Set the logging level (debug, info, warn, error)"`
}

func (argSpec) Version() string {
	return version
}

func procArgs() argSpec {
	args := argSpec{
		ConfigDir: gaugeconfig.DefaultConfigDir,
	}
	arg.MustParse(&args)
	return args
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
}

func main() {
	if err := runMain(); err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()
	setLogLevel(args.LogLevel)
	gauge.SetLogger(log)

	log.Printf("running version: %s", version)

	conf, err := gaugeconfig.New(args.ConfigDir)
	if err != nil {
		return err
	}
	battery := gaugeconfig.DefaultBattery()
	if err := conf.Unmarshal(gaugeconfig.BatteryKey, &battery); err != nil {
		return err
	}
	adcConf := gaugeconfig.DefaultADC()
	if err := conf.Unmarshal(gaugeconfig.ADCKey, &adcConf); err != nil {
		return err
	}
	gateConf := gaugeconfig.DefaultPowerGate()
	if err := conf.Unmarshal(gaugeconfig.PowerGateKey, &gateConf); err != nil {
		return err
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open("")
	if err != nil {
		return err
	}

	log.Println("Connecting to ADC.")
	fullScale, err := fullScaleFromMV(adcConf.FullScaleMV)
	if err != nil {
		return err
	}
	adc, err := ads1115.New(bus, ads1115.Opts{
		Addr:      adcConf.Address,
		Channel:   adcConf.Channel,
		FullScale: fullScale,
	})
	if err != nil {
		return err
	}

	var gate gauge.PowerGate
	if gateConf.Enabled {
		pin := gpioreg.ByName(gateConf.Pin)
		if pin == nil {
			return fmt.Errorf("power gate pin %q not found", gateConf.Pin)
		}
		gate = gauge.NewGPIOGate(pin, gateConf.ActiveLow)
		log.Printf("Divider power gated by %s (active-low: %v)", gateConf.Pin, gateConf.ActiveLow)
	}

	g, err := gauge.New(gauge.Config{
		Acquirer:    adc,
		Calibration: adc.Calibration(),
		Divider:     battery.DividerConfig(),
		Gate:        gate,
		Curve:       battery.ChargeCurve(),
		Oversample:  adcConf.Oversample,
	})
	if err != nil {
		return err
	}

	if args.OneShot {
		return oneShot(g)
	}

	if err := startService(g); err != nil {
		return err
	}

	interval := time.Duration(battery.SampleIntervalSeconds) * time.Second
	monitorVoltageLoop(g, interval)
	return nil
}

func oneShot(g *gauge.Gauge) error {
	if err := g.Sample(gauge.ChannelAll); err != nil {
		return err
	}
	s := g.State()
	fmt.Printf("raw: %d\nvoltage: %.3fV\nstate of charge: %d%%\n",
		s.Raw, float64(s.VoltageMV)/1000, s.Percent)
	return nil
}

func fullScaleFromMV(mv uint32) (ads1115.FullScale, error) {
	switch mv {
	case 6144:
		return ads1115.FS6144mV, nil
	case 4096:
		return ads1115.FS4096mV, nil
	case 2048:
		return ads1115.FS2048mV, nil
	case 1024:
		return ads1115.FS1024mV, nil
	case 512:
		return ads1115.FS512mV, nil
	case 256:
		return ads1115.FS256mV, nil
	}
	return 0, fmt.Errorf("unsupported ADC full-scale range %dmV", mv)
}

func monitorVoltageLoop(g *gauge.Gauge, interval time.Duration) {
	if err := keepLastLines(batteryReadingsFile, batteryMaxLines); err != nil {
		log.Printf("Could not truncate battery readings file: %v", err)
	}

	truncateTime := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		performBatteryReading(g)

		// Truncate the readings file daily.
		if time.Since(truncateTime) > 24*time.Hour {
			if err := keepLastLines(batteryReadingsFile, batteryMaxLines); err != nil {
				log.Printf("Could not truncate battery readings file: %v", err)
			} else {
				truncateTime = time.Now()
			}
		}

		<-ticker.C
	}
}

func performBatteryReading(g *gauge.Gauge) {
	if err := g.Sample(gauge.ChannelAll); err != nil {
		log.Errorf("Error during battery reading: %v", err)
		return
	}
	s := g.State()
	log.Infof("Battery reading: %.2fV, %d%%", float64(s.VoltageMV)/1000, s.Percent)

	if s.Percent <= 10 {
		log.Warnf("Low battery warning: %d%%", s.Percent)
	}

	if err := logBatteryReadingToFile(s); err != nil {
		log.Errorf("Error logging battery reading: %v", err)
	}
}
