package sensors

import (
	"errors"
	"fmt"
	"time"

	"github.com/sigurn/crc8"
	"periph.io/x/conn/v3/i2c"
)

const (
	aht20Address    = 0x38
	aht20ReadyDelay = 100 * time.Millisecond
	aht20ReadTries  = 3
)

var errBadCRC = errors.New("bad crc")

var aht20CRCTable = crc8.MakeTable(crc8.Params{
	Poly:   0x31, // Polynomial 1 + x^4 + x^5 + x^8
	Init:   0xFF,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
})

// AHT20 reads temperature and humidity over i2c.
type AHT20 struct {
	dev *i2c.Dev
}

func NewAHT20(bus i2c.Bus) (*AHT20, error) {
	if err := bus.Tx(aht20Address, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to find AHT20 on i2c bus: %v", err)
	}
	return &AHT20{dev: &i2c.Dev{Bus: bus, Addr: aht20Address}}, nil
}

// Read triggers a measurement and returns temperature in °C and
// relative humidity in percent.
func (s *AHT20) Read() (float64, float64, error) {
	status := make([]byte, 1)
	if err := s.dev.Tx([]byte{0x71}, status); err != nil {
		return 0, 0, err
	}
	if (status[0] & 0x18) != 0x18 {
		return 0, 0, fmt.Errorf("AHT20 status check failed: 0x%x", status[0])
	}

	if _, err := s.dev.Write([]byte{0xAC, 0x33, 0x00}); err != nil {
		return 0, 0, err
	}

	// Wait for the measurement, checking the busy bit of the status
	// register.
	time.Sleep(aht20ReadyDelay)
	raw := make([]byte, 7)
	ready := false
	for i := 0; i < aht20ReadTries; i++ {
		if err := s.dev.Tx([]byte{0x71}, raw); err != nil {
			return 0, 0, err
		}
		if raw[0]&0x80 == 0x00 {
			ready = true
			break
		}
		time.Sleep(aht20ReadyDelay)
	}
	if !ready {
		return 0, 0, errors.New("AHT20 reading not ready")
	}

	if crc8.Checksum(raw[:6], aht20CRCTable) != raw[6] {
		return 0, 0, errBadCRC
	}

	humidityRaw := uint32(raw[1])<<12 | uint32(raw[2])<<4 | uint32(raw[3]>>4)
	humidity := float64(humidityRaw) / float64(1<<20) * 100

	temperatureRaw := uint32(raw[3]&0x0F)<<16 | uint32(raw[4])<<8 | uint32(raw[5])
	temperature := float64(temperatureRaw)/float64(1<<20)*200 - 50

	return temperature, humidity, nil
}
