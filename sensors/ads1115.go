package sensors

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

const (
	ads1115Address = 0x48

	adsConversionReg = 0x00
	adsConfigReg     = 0x01

	// Single-shot, ±4.096V range, 128 samples per second.
	adsConfigBase = uint16(0x8000 | 0x0200 | 0x0080 | 0x0003)

	adsConversionDelay = 10 * time.Millisecond
)

// ADS1115 drives the 4-channel ADC carrying the analog sensors. Raw
// values are scaled to the 0..4095 range the calibration layer expects.
type ADS1115 struct {
	dev *i2c.Dev
}

func NewADS1115(bus i2c.Bus) (*ADS1115, error) {
	if err := bus.Tx(ads1115Address, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to find ADS1115 on i2c bus: %v", err)
	}
	return &ADS1115{dev: &i2c.Dev{Bus: bus, Addr: ads1115Address}}, nil
}

// ReadRaw performs a single-shot conversion on the given channel.
func (a *ADS1115) ReadRaw(ch AnalogChannel) (float64, error) {
	// MUX bits select AINx against ground.
	config := adsConfigBase | uint16(0x4000+int(ch)<<12)
	_, err := a.dev.Write([]byte{adsConfigReg, byte(config >> 8), byte(config & 0xFF)})
	if err != nil {
		return 0, err
	}
	time.Sleep(adsConversionDelay)

	data := make([]byte, 2)
	if err := a.dev.Tx([]byte{adsConversionReg}, data); err != nil {
		return 0, err
	}
	counts := int16(uint16(data[0])<<8 | uint16(data[1]))
	if counts < 0 {
		counts = 0
	}
	// Map the 15-bit positive range onto the 12-bit raw scale.
	return float64(counts) * 4095.0 / 32767.0, nil
}

// ReadBlockAverage averages n consecutive reads to denoise a channel.
func (a *ADS1115) ReadBlockAverage(ch AnalogChannel, n int, delay time.Duration) (float64, error) {
	if n <= 0 {
		n = 1
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		v, err := a.ReadRaw(ch)
		if err != nil {
			return 0, err
		}
		sum += v
		time.Sleep(delay)
	}
	return sum / float64(n), nil
}
