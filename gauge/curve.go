package gauge

import (
	"errors"
	"fmt"
)

// ChargeLevelPoint is one breakpoint of a battery discharge curve: the
// open-circuit pack voltage in millivolts and the remaining charge at that
// voltage.
type ChargeLevelPoint struct {
	VoltageMV int16
	Percent   uint8
}

// Curve is an ascending set of discharge breakpoints for one battery
// chemistry. The first point is the cutoff voltage (0%), the last the
// full-charge voltage (100%). Curves are never mutated after construction.
type Curve []ChargeLevelPoint

// LiIonCurve is the measured discharge curve of a single Li-Ion cell.
var LiIonCurve = Curve{
	{3434, 0}, {3457, 4}, {3487, 8}, {3520, 12}, {3545, 15}, {3577, 19},
	{3595, 23}, {3609, 27}, {3618, 31}, {3625, 35}, {3633, 38}, {3643, 42},
	{3656, 46}, {3672, 50}, {3696, 54}, {3733, 58}, {3767, 62}, {3796, 65},
	{3825, 69}, {3862, 73}, {3899, 77}, {3936, 81}, {3976, 85}, {4023, 88},
	{4068, 92}, {4120, 96}, {4177, 100},
}

// Validate checks the invariants EstimatePercent relies on: at least two
// points, strictly ascending voltages, non-decreasing percentages, and 0/100
// endpoints.
func (c Curve) Validate() error {
	if len(c) < 2 {
		return errors.New("charge curve needs at least two points")
	}
	if c[0].Percent != 0 {
		return fmt.Errorf("charge curve must start at 0%%, got %d%%", c[0].Percent)
	}
	if c[len(c)-1].Percent != 100 {
		return fmt.Errorf("charge curve must end at 100%%, got %d%%", c[len(c)-1].Percent)
	}
	for i := 1; i < len(c); i++ {
		if c[i].VoltageMV <= c[i-1].VoltageMV {
			return fmt.Errorf("charge curve voltages not strictly ascending at index %d (%dmV after %dmV)",
				i, c[i].VoltageMV, c[i-1].VoltageMV)
		}
		if c[i].Percent < c[i-1].Percent {
			return fmt.Errorf("charge curve percentages decrease at index %d (%d%% after %d%%)",
				i, c[i].Percent, c[i-1].Percent)
		}
	}
	return nil
}

// EstimatePercent maps a battery voltage to remaining charge by linear
// interpolation between the two breakpoints bracketing it. Voltages at or
// above the last breakpoint read as fully charged, voltages below the first
// breakpoint as empty. The interpolated value is truncated, not rounded.
func (c Curve) EstimatePercent(batMV int16) uint8 {
	if len(c) == 0 {
		return 0
	}
	if batMV >= c[len(c)-1].VoltageMV {
		return 100
	}
	for i := 0; i < len(c)-1; i++ {
		if c[i].VoltageMV <= batMV && batMV <= c[i+1].VoltageMV {
			distLower := float64(batMV - c[i].VoltageMV)
			distAdjacent := float64(c[i+1].VoltageMV - c[i].VoltageMV)
			slope := float64(c[i+1].Percent-c[i].Percent) / distAdjacent
			return uint8(float64(c[i].Percent) + slope*distLower)
		}
	}
	return 0
}
