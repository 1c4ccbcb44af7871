package scenario

import (
	"fmt"
	"io"
	"log"

	"github.com/sarchlab/wlansim/flowstats"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/propagation"
	"github.com/sarchlab/wlansim/wlan"
)

// An Experiment is a description turned into a network that is ready to run.
type Experiment struct {
	Description *Description
	Network     *wlan.Network

	names map[wireless.FlowKey]string
}

// Build creates the network of a description. A non-nil logger makes the
// network print its activity.
func (d *Description) Build(logger *log.Logger) (*Experiment, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	phyConfig, _ := d.phyConfig()
	macConfig, _ := d.macConfig()

	b := wlan.MakeBuilder().
		WithLossModel(d.lossModel()).
		WithDelayModel(d.delayModel()).
		WithPhyConfig(phyConfig).
		WithMacConfig(macConfig)
	if d.Seed != 0 {
		b = b.WithSeed(d.Seed)
	}

	if logger != nil {
		b = b.WithLogger(logger)
	}

	n := b.Build()

	for _, p := range d.Positions() {
		nodeID := n.CreateNode()
		err := n.PlaceNode(nodeID, wireless.Vector{X: p.X, Y: p.Y, Z: p.Z})
		if err != nil {
			return nil, err
		}
	}

	e := &Experiment{
		Description: d,
		Network:     n,
		names:       make(map[wireless.FlowKey]string),
	}

	for i, f := range d.Flows {
		if err := e.addFlow(f); err != nil {
			return nil, fmt.Errorf("flow %d: %w", i, err)
		}
	}

	return e, nil
}

func (e *Experiment) addFlow(f Flow) error {
	n := e.Network
	src := wireless.NodeID(f.Src)
	dst := wireless.NodeID(f.Dst)
	key := wireless.FlowKey{Src: src, Dst: dst}

	ac, err := wireless.ParseAccessCategory(f.Category)
	if err != nil {
		return err
	}

	err = n.ScheduleTransmitWithCategory(
		src, dst, f.Size, f.Start, f.Stop, f.PacketInterval(), ac)
	if err != nil {
		return err
	}

	if f.Duration > 0 {
		n.SetFlowDuration(key, f.Duration)
	}

	if f.Name != "" {
		e.names[key] = f.Name
	}

	if f.Echo {
		return n.EnableEcho(dst)
	}

	return nil
}

func (d *Description) lossModel() propagation.LossModel {
	if d.Loss.Model != LossMatrix {
		m := propagation.NewLogDistanceModel()
		setFloat(&m.ReferenceLoss, d.Loss.ReferenceLoss)
		setFloat(&m.ReferenceDistance, d.Loss.ReferenceDistance)
		setFloat(&m.Exponent, d.Loss.Exponent)

		return m
	}

	m := propagation.NewMatrixModel()
	setFloat(&m.DefaultLoss, d.Loss.Default)

	for _, l := range d.Loss.Links {
		a, b := wireless.NodeID(l.A), wireless.NodeID(l.B)
		if l.OneWay {
			m.SetAsymmetricLoss(a, b, l.Loss)
		} else {
			m.SetLoss(a, b, l.Loss)
		}
	}

	return m
}

func (d *Description) delayModel() propagation.DelayModel {
	if d.Delay == DelayZero {
		return propagation.ZeroDelay{}
	}

	return propagation.NewConstantSpeedDelay()
}

// Run simulates the experiment until its stop time.
func (e *Experiment) Run() error {
	return e.Network.Run(e.Description.Stop)
}

// FlowName returns the label of a flow in reports, if it has one.
func (e *Experiment) FlowName(key wireless.FlowKey) (string, bool) {
	name, ok := e.names[key]
	return name, ok
}

// Report prints the per-flow statistics of the experiment.
func (e *Experiment) Report(w io.Writer) {
	if e.Description.Title != "" {
		fmt.Fprintln(w, e.Description.Title)
	}

	c := e.Network.Collector()
	flowstats.Report(w, c.Flows(), e.names)

	if e.Description.PhyDrops {
		flowstats.ReportPhyDrops(w, c.PhyDrops())
	}
}
