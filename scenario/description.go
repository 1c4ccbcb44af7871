// Package scenario describes experiments in YAML and runs them on a
// wlan.Network.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/mac"
	"github.com/sarchlab/wlansim/wireless/phy"
)

// ErrInvalidDescription is returned when a description cannot be turned into
// a network.
var ErrInvalidDescription = errors.New("invalid scenario")

// Description is the YAML form of an experiment.
type Description struct {
	Name  string  `yaml:"name"`
	Title string  `yaml:"title,omitempty"`
	Stop  float64 `yaml:"stop"`

	// Seed seeds the random backoff of the devices. Zero selects the
	// default seed.
	Seed uint64 `yaml:"seed,omitempty"`

	// Nodes lists explicit positions. Grid places the nodes instead when
	// Nodes is empty.
	Nodes []Position `yaml:"nodes,omitempty"`
	Grid  *Grid      `yaml:"grid,omitempty"`

	Loss  Loss      `yaml:"loss"`
	Delay string    `yaml:"delay,omitempty"`
	Phy   *PhyPatch `yaml:"phy,omitempty"`
	Mac   *MacPatch `yaml:"mac,omitempty"`
	Flows []Flow    `yaml:"flows"`

	// Observer is the device whose view is written to a capture. All
	// transmissions are captured when it is not set.
	Observer *int `yaml:"observer,omitempty"`

	// PhyDrops prints the frames lost at their destination radio after the
	// flow report.
	PhyDrops bool `yaml:"phyDrops,omitempty"`
}

// Position is where a node is, in meters.
type Position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z,omitempty"`
}

// Grid places nodes row first on a grid.
type Grid struct {
	Count  int     `yaml:"count"`
	Width  int     `yaml:"width"`
	MinX   float64 `yaml:"minX,omitempty"`
	MinY   float64 `yaml:"minY,omitempty"`
	DeltaX float64 `yaml:"deltaX"`
	DeltaY float64 `yaml:"deltaY"`
}

// Positions returns the positions of the grid nodes.
func (g Grid) Positions() []Position {
	positions := make([]Position, 0, g.Count)
	for i := 0; i < g.Count; i++ {
		positions = append(positions, Position{
			X: g.MinX + float64(i%g.Width)*g.DeltaX,
			Y: g.MinY + float64(i/g.Width)*g.DeltaY,
		})
	}

	return positions
}

// Loss model names.
const (
	LossLogDistance = "log-distance"
	LossMatrix      = "matrix"
)

// Delay model names.
const (
	DelayConstantSpeed = "constant-speed"
	DelayZero          = "zero"
)

// Loss selects and parameterizes the loss model.
type Loss struct {
	Model string `yaml:"model"`

	ReferenceLoss     *float64 `yaml:"referenceLoss,omitempty"`
	ReferenceDistance *float64 `yaml:"referenceDistance,omitempty"`
	Exponent          *float64 `yaml:"exponent,omitempty"`

	Default *float64 `yaml:"default,omitempty"`
	Links   []Link   `yaml:"links,omitempty"`
}

// Link is one entry of a loss matrix.
type Link struct {
	A      int     `yaml:"a"`
	B      int     `yaml:"b"`
	Loss   float64 `yaml:"loss"`
	OneWay bool    `yaml:"oneWay,omitempty"`
}

// PhyPatch overrides the default radio parameters.
type PhyPatch struct {
	TxPowerDbm         *float64 `yaml:"txPowerDbm,omitempty"`
	NoiseFloorDbm      *float64 `yaml:"noiseFloorDbm,omitempty"`
	RxSensitivityDbm   *float64 `yaml:"rxSensitivityDbm,omitempty"`
	CcaThresholdDbm    *float64 `yaml:"ccaThresholdDbm,omitempty"`
	CaptureThresholdDb *float64 `yaml:"captureThresholdDb,omitempty"`
	DataMode           string   `yaml:"dataMode,omitempty"`
	ControlMode        string   `yaml:"controlMode,omitempty"`
}

// MacPatch overrides the default MAC parameters.
type MacPatch struct {
	RtsCtsThreshold *int `yaml:"rtsCtsThreshold,omitempty"`
	CwMin           *int `yaml:"cwMin,omitempty"`
	CwMax           *int `yaml:"cwMax,omitempty"`
	MaxRetries      *int `yaml:"maxRetries,omitempty"`
	QueueCapacity   *int `yaml:"queueCapacity,omitempty"`
}

// Flow is a constant bit rate source. Either Interval or RateMbps sets the
// packet rate.
type Flow struct {
	Name     string  `yaml:"name,omitempty"`
	Src      int     `yaml:"src"`
	Dst      int     `yaml:"dst"`
	Size     int     `yaml:"size"`
	Start    float64 `yaml:"start"`
	Stop     float64 `yaml:"stop"`
	Interval float64 `yaml:"interval,omitempty"`
	RateMbps float64 `yaml:"rateMbps,omitempty"`
	Category string  `yaml:"category,omitempty"`

	// Duration overrides the window that throughput is computed over.
	Duration float64 `yaml:"duration,omitempty"`

	// Echo makes the destination answer every packet.
	Echo bool `yaml:"echo,omitempty"`
}

// PacketInterval returns the time between two packets of the flow.
func (f Flow) PacketInterval() float64 {
	if f.Interval > 0 {
		return f.Interval
	}

	return float64(f.Size) * 8 / (f.RateMbps * 1e6)
}

// Parse decodes a YAML description.
func Parse(data []byte) (*Description, error) {
	d := &Description{}

	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}

// Load reads a YAML description from a file.
func Load(filename string) (*Description, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return d, nil
}

// Marshal encodes the description as YAML.
func (d *Description) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// NumNodes returns how many devices the description creates.
func (d *Description) NumNodes() int {
	if len(d.Nodes) > 0 || d.Grid == nil {
		return len(d.Nodes)
	}

	return d.Grid.Count
}

// Positions returns the position of every device.
func (d *Description) Positions() []Position {
	if len(d.Nodes) > 0 || d.Grid == nil {
		return d.Nodes
	}

	return d.Grid.Positions()
}

// Validate checks that the description can be built.
func (d *Description) Validate() error {
	if d.Stop <= 0 {
		return fmt.Errorf("%w: stop time must be positive", ErrInvalidDescription)
	}

	if d.Seed > mac.MaxSeed {
		return fmt.Errorf("%w: seed must not exceed %d",
			ErrInvalidDescription, mac.MaxSeed)
	}

	if err := d.validateNodes(); err != nil {
		return err
	}

	if err := d.validateModels(); err != nil {
		return err
	}

	for i, f := range d.Flows {
		if err := d.validateFlow(f); err != nil {
			return fmt.Errorf("flow %d: %w", i, err)
		}
	}

	if d.Observer != nil && !d.isNode(*d.Observer) {
		return fmt.Errorf("%w: observer %d is not a node",
			ErrInvalidDescription, *d.Observer)
	}

	return nil
}

func (d *Description) validateNodes() error {
	if d.Grid != nil && len(d.Nodes) == 0 {
		if d.Grid.Count <= 0 || d.Grid.Width <= 0 {
			return fmt.Errorf("%w: grid needs a positive count and width",
				ErrInvalidDescription)
		}
	}

	if d.NumNodes() == 0 {
		return fmt.Errorf("%w: no nodes", ErrInvalidDescription)
	}

	return nil
}

func (d *Description) validateModels() error {
	switch d.Loss.Model {
	case "", LossLogDistance:
	case LossMatrix:
		for _, l := range d.Loss.Links {
			if !d.isNode(l.A) || !d.isNode(l.B) {
				return fmt.Errorf("%w: link %d-%d refers to an unknown node",
					ErrInvalidDescription, l.A, l.B)
			}
		}
	default:
		return fmt.Errorf("%w: unknown loss model %q",
			ErrInvalidDescription, d.Loss.Model)
	}

	switch d.Delay {
	case "", DelayConstantSpeed, DelayZero:
	default:
		return fmt.Errorf("%w: unknown delay model %q",
			ErrInvalidDescription, d.Delay)
	}

	if _, err := d.phyConfig(); err != nil {
		return err
	}

	if _, err := d.macConfig(); err != nil {
		return err
	}

	return nil
}

func (d *Description) validateFlow(f Flow) error {
	if !d.isNode(f.Src) || !d.isNode(f.Dst) {
		return fmt.Errorf("%w: %d -> %d refers to an unknown node",
			ErrInvalidDescription, f.Src, f.Dst)
	}

	if f.Size <= 0 {
		return fmt.Errorf("%w: size must be positive", ErrInvalidDescription)
	}

	if f.Interval <= 0 && f.RateMbps <= 0 {
		return fmt.Errorf("%w: needs an interval or a rate",
			ErrInvalidDescription)
	}

	if f.Stop <= f.Start || f.Start < 0 {
		return fmt.Errorf("%w: bad window [%g, %g)",
			ErrInvalidDescription, f.Start, f.Stop)
	}

	if _, err := wireless.ParseAccessCategory(f.Category); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescription, err)
	}

	return nil
}

func (d *Description) isNode(i int) bool {
	return i >= 0 && i < d.NumNodes()
}

func (d *Description) phyConfig() (phy.Config, error) {
	c := phy.DefaultConfig()

	if p := d.Phy; p != nil {
		setFloat(&c.TxPowerDbm, p.TxPowerDbm)
		setFloat(&c.NoiseFloorDbm, p.NoiseFloorDbm)
		setFloat(&c.RxSensitivityDbm, p.RxSensitivityDbm)
		setFloat(&c.CcaThresholdDbm, p.CcaThresholdDbm)
		setFloat(&c.CaptureThresholdDb, p.CaptureThresholdDb)

		if err := setMode(&c.DataMode, p.DataMode); err != nil {
			return c, err
		}

		if err := setMode(&c.ControlMode, p.ControlMode); err != nil {
			return c, err
		}
	}

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidDescription, err)
	}

	return c, nil
}

func (d *Description) macConfig() (mac.Config, error) {
	c := mac.DefaultConfig()

	if m := d.Mac; m != nil {
		setInt(&c.RtsCtsThreshold, m.RtsCtsThreshold)
		setInt(&c.CwMin, m.CwMin)
		setInt(&c.CwMax, m.CwMax)
		setInt(&c.MaxRetries, m.MaxRetries)
		setInt(&c.QueueCapacity, m.QueueCapacity)
	}

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidDescription, err)
	}

	return c, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setMode(dst *phy.Mode, name string) error {
	if name == "" {
		return nil
	}

	m, err := phy.ModeByName(name)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDescription, err)
	}

	*dst = m

	return nil
}
