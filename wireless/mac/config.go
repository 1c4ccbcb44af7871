package mac

import (
	"errors"
	"fmt"

	"github.com/sarchlab/wlansim/wireless"
)

// EdcaParams are the contention parameters of one access category.
type EdcaParams struct {
	Aifsn int
	CwMin int
	CwMax int
}

// DefaultEdcaParams returns the 802.11 default table for an OFDM PHY.
func DefaultEdcaParams() map[wireless.AccessCategory]EdcaParams {
	return map[wireless.AccessCategory]EdcaParams{
		wireless.AcBackground: {Aifsn: 7, CwMin: 15, CwMax: 1023},
		wireless.AcBestEffort: {Aifsn: 3, CwMin: 15, CwMax: 1023},
		wireless.AcVideo:      {Aifsn: 2, CwMin: 7, CwMax: 15},
		wireless.AcVoice:      {Aifsn: 2, CwMin: 3, CwMax: 7},
	}
}

// Config holds the MAC parameters of a device.
type Config struct {
	// RtsCtsThreshold is the frame size, in bytes, from which the RTS/CTS
	// handshake is used.
	RtsCtsThreshold int

	// CwMin and CwMax bound the contention window of legacy frames.
	CwMin int
	CwMax int

	// MaxRetries is the number of retransmissions allowed before a frame is
	// dropped.
	MaxRetries int

	// QueueCapacity is the number of frames that can wait for transmission.
	QueueCapacity int

	// Edca holds the parameters of the QoS access categories.
	Edca map[wireless.AccessCategory]EdcaParams
}

// DefaultConfig returns the DCF defaults with RTS/CTS disabled.
func DefaultConfig() Config {
	return Config{
		RtsCtsThreshold: 65535,
		CwMin:           15,
		CwMax:           1023,
		MaxRetries:      7,
		QueueCapacity:   400,
		Edca:            DefaultEdcaParams(),
	}
}

// ErrInvalidConfig is wrapped by all the errors returned from
// Config.Validate.
var ErrInvalidConfig = errors.New("invalid mac config")

// Validate checks that the configuration can drive a MAC.
func (c Config) Validate() error {
	if err := validateWindow(c.CwMin, c.CwMax); err != nil {
		return fmt.Errorf("%w: legacy: %v", ErrInvalidConfig, err)
	}

	for ac, p := range c.Edca {
		if err := validateWindow(p.CwMin, p.CwMax); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, ac, err)
		}

		if p.Aifsn < 1 {
			return fmt.Errorf("%w: %s: aifsn must be at least 1",
				ErrInvalidConfig, ac)
		}
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: negative max retries", ErrInvalidConfig)
	}

	if c.QueueCapacity <= 0 {
		return fmt.Errorf("%w: queue capacity must be positive",
			ErrInvalidConfig)
	}

	if c.RtsCtsThreshold < 0 {
		return fmt.Errorf("%w: negative rts/cts threshold", ErrInvalidConfig)
	}

	return nil
}

func validateWindow(cwMin, cwMax int) error {
	if cwMin < 0 || cwMax < cwMin {
		return fmt.Errorf("bad contention window [%d, %d]", cwMin, cwMax)
	}

	return nil
}

func (c Config) paramsFor(ac wireless.AccessCategory) EdcaParams {
	if p, ok := c.Edca[ac]; ok && ac != wireless.AcLegacy {
		return p
	}

	return EdcaParams{Aifsn: 2, CwMin: c.CwMin, CwMax: c.CwMax}
}
