// Package gauge estimates remaining battery charge from a voltage measured
// through a resistor divider. A Gauge owns the acquisition channel and the
// optional power gate that energises the divider, and caches the result of
// the last completed measurement.
package gauge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

var (
	// ErrUnsupportedChannel is returned for channels this gauge does not
	// produce.
	ErrUnsupportedChannel = errors.New("channel not supported")
	// ErrDeviceUnavailable is returned from New when a required capability
	// is missing or misconfigured.
	ErrDeviceUnavailable = errors.New("device unavailable")
)

// Channel selects which measurement to sample or read.
type Channel int

const (
	ChannelVoltage Channel = iota
	ChannelStateOfCharge
	// ChannelAll requests every measurement the gauge produces. Valid for
	// Sample only; Get needs a single channel.
	ChannelAll
)

func (c Channel) String() string {
	switch c {
	case ChannelVoltage:
		return "voltage"
	case ChannelStateOfCharge:
		return "state-of-charge"
	case ChannelAll:
		return "all"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// Value is a two-component fixed-point reading: whole units and millionths.
type Value struct {
	Whole int32
	Micro int32
}

// Acquirer is a one-shot synchronous analog read. Oversample is the number
// of accumulated conversions per reading; calibrate asks the back-end to
// recalibrate first, which it may ignore.
type Acquirer interface {
	Trigger(oversample uint8, calibrate bool) (uint16, error)
}

// PowerGate switches power to the measurement divider. Only the Gauge may
// toggle it.
type PowerGate interface {
	Set(active bool) error
}

// SampleState is the result of the last completed sampling transaction.
type SampleState struct {
	Raw       uint16
	VoltageMV uint16
	Percent   uint8
}

const defaultOversample = 4

// Config carries the capabilities and static configuration for a Gauge. All
// fields except Gate and Oversample are required.
type Config struct {
	Acquirer    Acquirer
	Calibration Calibration
	Divider     DividerConfig
	Gate        PowerGate // nil when the divider is always powered
	Curve       Curve
	Oversample  uint8 // 0 means the default of 4
}

// Gauge sequences one battery measurement: gate on, acquire, convert,
// estimate, gate off. Sample and Get are safe for concurrent use; a Get
// during a transaction sees either the prior or the fully updated state.
type Gauge struct {
	acq        Acquirer
	cal        Calibration
	div        DividerConfig
	gate       PowerGate
	curve      Curve
	oversample uint8

	mu        sync.Mutex
	calibrate bool
	state     SampleState
}

// New validates the configuration and, when a power gate is present, drives
// it inactive so the divider starts unpowered. Capability resolution
// failures are fatal: the gauge does not come up.
func New(cfg Config) (*Gauge, error) {
	if cfg.Acquirer == nil {
		return nil, fmt.Errorf("%w: no acquisition channel", ErrDeviceUnavailable)
	}
	if cfg.Calibration == nil {
		return nil, fmt.Errorf("%w: no channel calibration", ErrDeviceUnavailable)
	}
	if err := cfg.Divider.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if err := cfg.Curve.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	oversample := cfg.Oversample
	if oversample == 0 {
		oversample = defaultOversample
	}
	if cfg.Gate != nil {
		if err := cfg.Gate.Set(false); err != nil {
			return nil, fmt.Errorf("configuring divider power gate off: %w", err)
		}
	}
	return &Gauge{
		acq:        cfg.Acquirer,
		cal:        cfg.Calibration,
		div:        cfg.Divider,
		gate:       cfg.Gate,
		curve:      cfg.Curve,
		oversample: oversample,
		calibrate:  true,
	}, nil
}

// Sample runs one measurement transaction and replaces the cached state on
// success. On failure the cached state keeps its previous value.
//
// A gate that was successfully switched on is always switched off again
// before Sample returns, whatever the acquisition outcome. When both the
// acquisition and the gate-off step fail, the gate-off error is the one
// returned; this mirrors the long-standing driver behaviour and callers
// should not assume the acquisition succeeded in that case.
func (g *Gauge) Sample(ch Channel) error {
	switch ch {
	case ChannelVoltage, ChannelStateOfCharge, ChannelAll:
	default:
		log.Debugf("selected channel is not supported: %s", ch)
		return ErrUnsupportedChannel
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gate != nil {
		if err := g.gate.Set(true); err != nil {
			return fmt.Errorf("enabling divider power: %w", err)
		}
	}

	raw, acqErr := g.acq.Trigger(g.oversample, g.calibrate)
	g.calibrate = false

	if g.gate != nil {
		if err := g.gate.Set(false); err != nil {
			return fmt.Errorf("disabling divider power: %w", err)
		}
	}
	if acqErr != nil {
		return fmt.Errorf("reading ADC: %w", acqErr)
	}

	nodeMV := g.cal.NodeMillivolts(raw)
	batMV := g.div.Scale(nodeMV)
	percent := g.curve.EstimatePercent(int16(batMV))
	log.Debugf("ADC raw %d ~ %d mV => %d mV, %d%%", raw, nodeMV, batMV, percent)

	g.state = SampleState{Raw: raw, VoltageMV: batMV, Percent: percent}
	return nil
}

// Get returns the cached value for one channel. It never triggers a new
// measurement.
func (g *Gauge) Get(ch Channel) (Value, error) {
	g.mu.Lock()
	s := g.state
	g.mu.Unlock()

	switch ch {
	case ChannelVoltage:
		mv := int32(s.VoltageMV)
		return Value{Whole: mv / 1000, Micro: (mv % 1000) * 1000}, nil
	case ChannelStateOfCharge:
		return Value{Whole: int32(s.Percent)}, nil
	default:
		return Value{}, ErrUnsupportedChannel
	}
}

// State returns a copy of the full cached sample.
func (g *Gauge) State() SampleState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// SetLogger replaces the package logger, letting a daemon share its own.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		log = l
	}
}
