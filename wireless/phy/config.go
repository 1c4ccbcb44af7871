package phy

import (
	"errors"
	"fmt"
	"math"
)

// Mode is an OFDM transmission rate.
type Mode struct {
	Name         string
	DataRateMbps float64
}

// The 802.11a OFDM modes.
var (
	OfdmRate6Mbps  = Mode{Name: "OfdmRate6Mbps", DataRateMbps: 6}
	OfdmRate9Mbps  = Mode{Name: "OfdmRate9Mbps", DataRateMbps: 9}
	OfdmRate12Mbps = Mode{Name: "OfdmRate12Mbps", DataRateMbps: 12}
	OfdmRate18Mbps = Mode{Name: "OfdmRate18Mbps", DataRateMbps: 18}
	OfdmRate24Mbps = Mode{Name: "OfdmRate24Mbps", DataRateMbps: 24}
	OfdmRate36Mbps = Mode{Name: "OfdmRate36Mbps", DataRateMbps: 36}
	OfdmRate48Mbps = Mode{Name: "OfdmRate48Mbps", DataRateMbps: 48}
	OfdmRate54Mbps = Mode{Name: "OfdmRate54Mbps", DataRateMbps: 54}
)

// Modes lists all the supported modes, slowest first.
var Modes = []Mode{
	OfdmRate6Mbps, OfdmRate9Mbps, OfdmRate12Mbps, OfdmRate18Mbps,
	OfdmRate24Mbps, OfdmRate36Mbps, OfdmRate48Mbps, OfdmRate54Mbps,
}

// ModeByName finds a mode such as "OfdmRate54Mbps".
func ModeByName(name string) (Mode, error) {
	for _, m := range Modes {
		if m.Name == name {
			return m, nil
		}
	}

	return Mode{}, fmt.Errorf("unknown mode %q", name)
}

const (
	preambleAndHeader = 20e-6
	symbolTime        = 4e-6
	serviceAndTail    = 22
)

// FrameDuration returns the airtime of a frame of the given size in bytes.
func (m Mode) FrameDuration(sizeBytes int) float64 {
	bitsPerSymbol := m.DataRateMbps * 4
	numSymbols := math.Ceil(float64(serviceAndTail+8*sizeBytes) / bitsPerSymbol)

	return preambleAndHeader + numSymbols*symbolTime
}

// Config holds the radio parameters of a device.
type Config struct {
	TxPowerDbm         float64
	NoiseFloorDbm      float64
	RxSensitivityDbm   float64
	CcaThresholdDbm    float64
	CaptureThresholdDb float64

	Sifs float64
	Slot float64

	DataMode    Mode
	ControlMode Mode
}

// DefaultConfig returns an 802.11a radio sending data at 54 Mbps and control
// frames at 6 Mbps.
func DefaultConfig() Config {
	return Config{
		TxPowerDbm:         16.0206,
		NoiseFloorDbm:      -94,
		RxSensitivityDbm:   -96,
		CcaThresholdDbm:    -82,
		CaptureThresholdDb: 10,
		Sifs:               16e-6,
		Slot:               9e-6,
		DataMode:           OfdmRate54Mbps,
		ControlMode:        OfdmRate6Mbps,
	}
}

// ErrInvalidConfig is wrapped by all the errors returned from
// Config.Validate.
var ErrInvalidConfig = errors.New("invalid phy config")

// Validate checks that the configuration can drive a radio.
func (c Config) Validate() error {
	if c.Sifs <= 0 || c.Slot <= 0 {
		return fmt.Errorf("%w: sifs and slot must be positive", ErrInvalidConfig)
	}

	if c.DataMode.DataRateMbps <= 0 || c.ControlMode.DataRateMbps <= 0 {
		return fmt.Errorf("%w: modes must have a positive rate",
			ErrInvalidConfig)
	}

	if c.CcaThresholdDbm < c.RxSensitivityDbm {
		return fmt.Errorf(
			"%w: cca threshold %.2f dBm below rx sensitivity %.2f dBm",
			ErrInvalidConfig, c.CcaThresholdDbm, c.RxSensitivityDbm)
	}

	return nil
}
