// Package ads1115 drives a TI ADS1115 16-bit ADC over I2C in single-shot
// mode, as the acquisition channel for a battery gauge.
package ads1115

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/korimako-electronics/vdivider-gauge/gauge"
)

const (
	DefaultAddress uint16 = 0x48

	regConversion byte = 0x00
	regConfig     byte = 0x01

	// Config register fields.
	configOSSingle    uint16 = 1 << 15 // write: start conversion; read: idle
	configModeSingle  uint16 = 1 << 8
	configCompDisable uint16 = 0x0003
	configMuxShift           = 12
	configPGAShift           = 9
	configRateShift          = 5

	conversionTimeout = 500 * time.Millisecond
)

// FullScale selects the programmable gain amplifier range. The zero value
// is the 4.096V range.
type FullScale uint16

const (
	FS4096mV FullScale = iota
	FS6144mV
	FS2048mV
	FS1024mV
	FS512mV
	FS256mV
)

var fullScalePGA = map[FullScale]uint16{
	FS6144mV: 0x0,
	FS4096mV: 0x1,
	FS2048mV: 0x2,
	FS1024mV: 0x3,
	FS512mV:  0x4,
	FS256mV:  0x5,
}

var fullScaleMV = map[FullScale]uint32{
	FS6144mV: 6144,
	FS4096mV: 4096,
	FS2048mV: 2048,
	FS1024mV: 1024,
	FS512mV:  512,
	FS256mV:  256,
}

// DataRate selects samples per second. The zero value is 128SPS.
type DataRate uint16

const (
	Rate128SPS DataRate = iota
	Rate8SPS
	Rate16SPS
	Rate32SPS
	Rate64SPS
	Rate250SPS
	Rate475SPS
	Rate860SPS
)

var dataRateBits = map[DataRate]uint16{
	Rate8SPS:   0x0,
	Rate16SPS:  0x1,
	Rate32SPS:  0x2,
	Rate64SPS:  0x3,
	Rate128SPS: 0x4,
	Rate250SPS: 0x5,
	Rate475SPS: 0x6,
	Rate860SPS: 0x7,
}

var dataRateSPS = map[DataRate]int{
	Rate8SPS:   8,
	Rate16SPS:  16,
	Rate32SPS:  32,
	Rate64SPS:  64,
	Rate128SPS: 128,
	Rate250SPS: 250,
	Rate475SPS: 475,
	Rate860SPS: 860,
}

// Opts configures the converter. The zero value reads single-ended AIN0 at
// the 4.096V range and 128 samples per second from the default address.
type Opts struct {
	Addr      uint16
	Channel   int // single-ended input AIN0..AIN3
	FullScale FullScale
	DataRate  DataRate
}

// Dev is a handle to an ADS1115.
type Dev struct {
	conn      *i2c.Dev
	channel   int
	fullScale FullScale
	dataRate  DataRate
}

// New returns a handle for the converter at opts.Addr on bus and verifies
// the device responds.
func New(bus i2c.Bus, opts Opts) (*Dev, error) {
	if opts.Addr == 0 {
		opts.Addr = DefaultAddress
	}
	if opts.Channel < 0 || opts.Channel > 3 {
		return nil, fmt.Errorf("ads1115: channel %d out of range", opts.Channel)
	}
	if _, ok := fullScalePGA[opts.FullScale]; !ok {
		return nil, fmt.Errorf("ads1115: unknown full-scale range %d", opts.FullScale)
	}
	if _, ok := dataRateSPS[opts.DataRate]; !ok {
		return nil, fmt.Errorf("ads1115: unknown data rate %d", opts.DataRate)
	}
	d := &Dev{
		conn:      &i2c.Dev{Bus: bus, Addr: opts.Addr},
		channel:   opts.Channel,
		fullScale: opts.FullScale,
		dataRate:  opts.DataRate,
	}
	// Reading the config register confirms the device is present.
	if _, err := d.readWord(regConfig); err != nil {
		return nil, fmt.Errorf("ads1115: no response at 0x%02x: %w", opts.Addr, err)
	}
	return d, nil
}

// Calibration describes how this converter's raw counts map to node
// millivolts: full-scale over 2^15 (the sign bit never sets for single-ended
// inputs).
func (d *Dev) Calibration() gauge.RatiometricCal {
	return gauge.RatiometricCal{
		ReferenceMV:    fullScaleMV[d.fullScale],
		GainNum:        1,
		GainDen:        1,
		ResolutionBits: 15,
	}
}

// Trigger runs oversample single-shot conversions and returns their average.
// The ADS1115 self-calibrates internally, so the calibrate request is a
// no-op for this back-end.
func (d *Dev) Trigger(oversample uint8, calibrate bool) (uint16, error) {
	_ = calibrate
	if oversample == 0 {
		oversample = 1
	}
	var sum uint32
	for i := uint8(0); i < oversample; i++ {
		raw, err := d.convertOnce()
		if err != nil {
			return 0, err
		}
		sum += uint32(raw)
	}
	return uint16(sum / uint32(oversample)), nil
}

func (d *Dev) convertOnce() (uint16, error) {
	cfg := configOSSingle |
		uint16(4+d.channel)<<configMuxShift | // single-ended AINx vs GND
		fullScalePGA[d.fullScale]<<configPGAShift |
		configModeSingle |
		dataRateBits[d.dataRate]<<configRateShift |
		configCompDisable
	if err := d.writeWord(regConfig, cfg); err != nil {
		return 0, err
	}

	// One conversion takes 1/dataRate; poll a little past that.
	period := time.Second / time.Duration(dataRateSPS[d.dataRate])
	deadline := time.Now().Add(conversionTimeout)
	for {
		time.Sleep(period)
		status, err := d.readWord(regConfig)
		if err != nil {
			return 0, err
		}
		if status&configOSSingle != 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("ads1115: conversion timed out after %s", conversionTimeout)
		}
	}

	raw, err := d.readWord(regConversion)
	if err != nil {
		return 0, err
	}
	// Negative readings mean the input floated slightly below ground.
	if int16(raw) < 0 {
		return 0, nil
	}
	return raw, nil
}

// readWord reads a 16-bit big-endian register.
func (d *Dev) readWord(register byte) (uint16, error) {
	data := make([]byte, 2)
	if err := d.conn.Tx([]byte{register}, data); err != nil {
		return 0, err
	}
	return uint16(data[0])<<8 | uint16(data[1]), nil
}

// writeWord writes a 16-bit big-endian register.
func (d *Dev) writeWord(register byte, value uint16) error {
	_, err := d.conn.Write([]byte{register, byte(value >> 8), byte(value)})
	return err
}
