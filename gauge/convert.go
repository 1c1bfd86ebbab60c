package gauge

import "fmt"

// Calibration converts a raw acquisition sample to the voltage at the ADC
// input node, in millivolts. Each acquisition back-end supplies its own
// implementation since gain and reference are defined differently between
// converters.
type Calibration interface {
	NodeMillivolts(raw uint16) uint32
}

// RatiometricCal is the standard ratiometric conversion
//
//	node_mv = raw * reference * gainDen / (gainNum * 2^resolution)
//
// where GainNum/GainDen is the gain applied ahead of the converter (a 1/5
// gain means the node voltage is five times the converted voltage).
type RatiometricCal struct {
	ReferenceMV    uint32
	GainNum        uint32
	GainDen        uint32
	ResolutionBits uint8
}

func (c RatiometricCal) NodeMillivolts(raw uint16) uint32 {
	den := uint64(c.GainNum) << c.ResolutionBits
	if den == 0 {
		return 0
	}
	return uint32(uint64(raw) * uint64(c.ReferenceMV) * uint64(c.GainDen) / den)
}

// DividerConfig describes the resistor divider between the battery and the
// measurement node. OutputOhm is the resistance the node is measured across,
// FullOhm the total divider resistance.
type DividerConfig struct {
	OutputOhm uint32
	FullOhm   uint32
}

func (d DividerConfig) Validate() error {
	if d.OutputOhm == 0 {
		return fmt.Errorf("divider output resistance must be > 0")
	}
	if d.FullOhm < d.OutputOhm {
		return fmt.Errorf("divider full resistance %d is less than output resistance %d",
			d.FullOhm, d.OutputOhm)
	}
	return nil
}

// Scale converts the measured node voltage back to the full battery voltage.
func (d DividerConfig) Scale(nodeMV uint32) uint16 {
	return uint16(uint64(nodeMV) * uint64(d.FullOhm) / uint64(d.OutputOhm))
}

// RawToMillivolts converts a raw sample to the battery voltage in millivolts,
// applying the channel calibration and then the divider ratio.
func RawToMillivolts(raw uint16, cal Calibration, div DividerConfig) uint16 {
	return div.Scale(cal.NodeMillivolts(raw))
}
