package gauge

import (
	"periph.io/x/conn/v3/gpio"
)

// gpioGate drives a GPIO control line as a divider power gate.
type gpioGate struct {
	pin       gpio.PinIO
	activeLow bool
}

// NewGPIOGate wraps a GPIO pin as a PowerGate. With activeLow set, driving
// the gate active pulls the line low.
func NewGPIOGate(pin gpio.PinIO, activeLow bool) PowerGate {
	return &gpioGate{pin: pin, activeLow: activeLow}
}

func (g *gpioGate) Set(active bool) error {
	return g.pin.Out(gpio.Level(active != g.activeLow))
}
