package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// PIR reads the motion sensor's digital output.
type PIR struct {
	pin gpio.PinIn
}

func NewPIR(pinName string) (*PIR, error) {
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("failed to find gpio pin %s", pinName)
	}
	if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure gpio pin %s: %v", pinName, err)
	}
	return &PIR{pin: pin}, nil
}

// Motion reports whether the sensor currently sees movement.
func (p *PIR) Motion() bool {
	return p.pin.Read() == gpio.High
}
