// Package propagation computes how much a signal weakens, and how long it
// takes, between two devices.
package propagation

import (
	"log"
	"math"

	"github.com/sarchlab/wlansim/wireless"
)

// Endpoint is one side of a radio link.
type Endpoint struct {
	ID       wireless.NodeID
	Position wireless.Vector
}

// A LossModel returns the path loss, in dB, from a to b.
type LossModel interface {
	Loss(a, b Endpoint) float64
}

// LogDistanceModel is the analytic model
//
//	L(d) = L0 + 10 * n * log10(d / d0)
//
// where L0 is the loss at the reference distance d0 and n is the exponent.
type LogDistanceModel struct {
	ReferenceLoss     float64
	ReferenceDistance float64
	Exponent          float64
}

// NewLogDistanceModel creates a model with the 5 GHz defaults: 46.6777 dB at
// 1 m and an exponent of 3.
func NewLogDistanceModel() *LogDistanceModel {
	return &LogDistanceModel{
		ReferenceLoss:     46.6777,
		ReferenceDistance: 1,
		Exponent:          3,
	}
}

// Loss returns the path loss between a and b. Distances shorter than the
// reference distance return the reference loss.
func (m *LogDistanceModel) Loss(a, b Endpoint) float64 {
	if m.ReferenceDistance <= 0 {
		log.Panic("reference distance must be positive")
	}

	d := a.Position.DistanceTo(b.Position)
	if d <= m.ReferenceDistance {
		return m.ReferenceLoss
	}

	return m.ReferenceLoss + 10*m.Exponent*math.Log10(d/m.ReferenceDistance)
}

// DefaultNoLinkLoss is the loss returned by a MatrixModel for pairs that
// have no entry. It is large enough that nothing is ever heard.
const DefaultNoLinkLoss = 200.0

type pair struct {
	from, to wireless.NodeID
}

// MatrixModel returns explicitly configured losses per device pair.
type MatrixModel struct {
	DefaultLoss float64

	losses map[pair]float64
}

// NewMatrixModel creates a MatrixModel where every pair has no link.
func NewMatrixModel() *MatrixModel {
	return &MatrixModel{
		DefaultLoss: DefaultNoLinkLoss,
		losses:      make(map[pair]float64),
	}
}

// SetLoss sets the loss between a and b in both directions.
func (m *MatrixModel) SetLoss(a, b wireless.NodeID, lossDb float64) {
	m.mustHaveTable()
	m.losses[pair{a, b}] = lossDb
	m.losses[pair{b, a}] = lossDb
}

// SetAsymmetricLoss sets the loss from a to b only.
func (m *MatrixModel) SetAsymmetricLoss(from, to wireless.NodeID, lossDb float64) {
	m.mustHaveTable()
	m.losses[pair{from, to}] = lossDb
}

func (m *MatrixModel) mustHaveTable() {
	if m.losses == nil {
		m.losses = make(map[pair]float64)
	}
}

// Loss returns the configured loss from a to b.
func (m *MatrixModel) Loss(a, b Endpoint) float64 {
	if a.ID == b.ID {
		return 0
	}

	if l, ok := m.losses[pair{a.ID, b.ID}]; ok {
		return l
	}

	return m.DefaultLoss
}

// NumEntries returns the number of directed entries configured.
func (m *MatrixModel) NumEntries() int {
	return len(m.losses)
}
