package wlan

import (
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/sarchlab/wlansim/wireless"
)

// HiddenPair is two devices that cannot sense each other but can both reach
// a common receiver.
type HiddenPair struct {
	A, B      wireless.NodeID
	Receivers []wireless.NodeID
}

// Senses returns true if a transmission of src keeps the carrier sense of
// dst busy.
func (n *Network) Senses(src, dst wireless.NodeID) bool {
	s, d := n.devices[src].Phy, n.devices[dst].Phy
	return n.channel.RxPowerDbm(s, d) >= d.Config().CcaThresholdDbm
}

// Reaches returns true if dst can decode a frame of src when nothing else is
// on the air.
func (n *Network) Reaches(src, dst wireless.NodeID) bool {
	s, d := n.devices[src].Phy, n.devices[dst].Phy
	return n.channel.RxPowerDbm(s, d) >= d.Config().RxSensitivityDbm
}

// HearingGraph returns the graph that links every two devices that sense
// each other. Node IDs of the graph are device IDs.
func (n *Network) HearingGraph() *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()

	for _, d := range n.devices {
		g.AddNode(simple.Node(d.ID))
	}

	for i, a := range n.devices {
		for _, b := range n.devices[i+1:] {
			if n.Senses(a.ID, b.ID) && n.Senses(b.ID, a.ID) {
				g.SetEdge(simple.Edge{
					F: simple.Node(a.ID),
					T: simple.Node(b.ID),
				})
			}
		}
	}

	return g
}

// HiddenTerminals lists the pairs of devices that do not sense each other
// while a third device can receive from both. Pairs are ordered by their
// IDs.
func (n *Network) HiddenTerminals() []HiddenPair {
	g := n.HearingGraph()

	var pairs []HiddenPair

	for i, a := range n.devices {
		for _, b := range n.devices[i+1:] {
			if g.HasEdgeBetween(int64(a.ID), int64(b.ID)) {
				continue
			}

			receivers := n.commonReceivers(a.ID, b.ID)
			if len(receivers) == 0 {
				continue
			}

			pairs = append(pairs, HiddenPair{
				A:         a.ID,
				B:         b.ID,
				Receivers: receivers,
			})
		}
	}

	return pairs
}

func (n *Network) commonReceivers(a, b wireless.NodeID) []wireless.NodeID {
	var receivers []wireless.NodeID

	for _, r := range n.devices {
		if r.ID == a || r.ID == b {
			continue
		}

		if n.Reaches(a, r.ID) && n.Reaches(b, r.ID) {
			receivers = append(receivers, r.ID)
		}
	}

	return receivers
}

// ContentionDomains returns the maximal groups of devices that all sense each
// other. Devices within a domain share the medium through carrier sense.
func (n *Network) ContentionDomains() [][]wireless.NodeID {
	cliques := topo.BronKerbosch(n.HearingGraph())

	domains := make([][]wireless.NodeID, 0, len(cliques))
	for _, c := range cliques {
		domains = append(domains, nodeIDs(c))
	}

	slices.SortFunc(domains, func(a, b []wireless.NodeID) int {
		return slices.Compare(a, b)
	})

	return domains
}

func nodeIDs(nodes []graph.Node) []wireless.NodeID {
	ids := make([]wireless.NodeID, 0, len(nodes))
	for _, node := range nodes {
		ids = append(ids, wireless.NodeID(node.ID()))
	}

	slices.Sort(ids)

	return ids
}
