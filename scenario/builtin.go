package scenario

import (
	"fmt"
	"sort"

	"github.com/sarchlab/wlansim/wireless/propagation"
)

var builtins = map[string]func() []*Description{
	"ap":              func() []*Description { return []*Description{AccessPoint()} },
	"interference":    func() []*Description { return []*Description{Interference()} },
	"hidden-terminal": func() []*Description { return HiddenTerminalPair() },
	"edca":            func() []*Description { return Edca() },
}

// BuiltinNames lists the built-in experiments.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Builtin returns the descriptions of a built-in experiment. Some
// experiments are run several times with different settings.
func Builtin(name string) ([]*Description, error) {
	f, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: no built-in experiment %q, have %v",
			ErrInvalidDescription, name, BuiltinNames())
	}

	return f(), nil
}

func intPtr(v int) *int { return &v }

// AccessPoint has two clients and an access point in a row, 5 m apart. The
// first client pings the second one. The access point is the observer of
// captures.
func AccessPoint() *Description {
	return &Description{
		Name: "ap",
		Stop: 2,
		Grid: &Grid{Count: 3, Width: 4, DeltaX: 5, DeltaY: 5},
		Loss: Loss{Model: LossLogDistance},
		Flows: []Flow{
			{
				Name:     "Ping",
				Src:      0,
				Dst:      1,
				Size:     84,
				Start:    1,
				Stop:     1.19,
				Interval: 0.1,
				Echo:     true,
			},
		},
		Observer: intPtr(2),
	}
}

// Interference has two pairs of devices 50 m apart. The home pair carries a
// heavy stream and the neighbor pair a light one that starts later.
func Interference() *Description {
	return &Description{
		Name: "interference",
		Stop: 10,
		Grid: &Grid{Count: 4, Width: 2, DeltaX: 5, DeltaY: 50},
		Loss: Loss{Model: LossLogDistance},
		Flows: []Flow{
			{
				Name:     "HomeNet",
				Src:      1,
				Dst:      0,
				Size:     2000,
				Start:    5,
				Stop:     10,
				RateMbps: 30.1,
			},
			{
				Name:     "NeighbourNet",
				Src:      3,
				Dst:      2,
				Size:     2000,
				Start:    6,
				Stop:     10,
				RateMbps: 1,
			},
		},
	}
}

// HiddenTerminal has two senders that both reach a receiver in the middle
// but cannot hear each other.
func HiddenTerminal(rtsCts bool) *Description {
	threshold := 2200
	title := "Hidden station experiment with RTS/CTS disabled:"

	if rtsCts {
		threshold = 100
		title = "Hidden station experiment with RTS/CTS enabled:"
	}

	noLink := propagation.DefaultNoLinkLoss

	return &Description{
		Name:  "hidden-terminal",
		Title: title,
		Stop:  10,
		Nodes: []Position{{X: 0}, {X: 5}, {X: 10}},
		Loss: Loss{
			Model:   LossMatrix,
			Default: &noLink,
			Links: []Link{
				{A: 0, B: 1, Loss: 50},
				{A: 2, B: 1, Loss: 50},
			},
		},
		Mac: &MacPatch{RtsCtsThreshold: intPtr(threshold)},
		Flows: []Flow{
			{
				Src:      0,
				Dst:      1,
				Size:     1000,
				Start:    1,
				Stop:     10,
				RateMbps: 3,
				Duration: 9,
			},
			{
				Src:      2,
				Dst:      1,
				Size:     1000,
				Start:    1.001,
				Stop:     10,
				RateMbps: 3.0011,
				Duration: 9,
			},
		},
		PhyDrops: true,
	}
}

// HiddenTerminalPair runs the hidden terminal experiment without and then
// with RTS/CTS.
func HiddenTerminalPair() []*Description {
	return []*Description{HiddenTerminal(false), HiddenTerminal(true)}
}

// Edca has three senders that saturate one receiver. The last sender uses
// the voice category and the others best effort.
func Edca() []*Description {
	flows := []Flow{
		{Src: 0, Start: 1.000, RateMbps: 20, Category: "BE"},
		{Src: 1, Start: 1.010, RateMbps: 20.00011, Category: "BE"},
		{Src: 2, Start: 1.011, RateMbps: 20.00111, Category: "VO"},
	}

	for i := range flows {
		flows[i].Dst = 3
		flows[i].Size = 2000
		flows[i].Stop = 4
	}

	return []*Description{{
		Name:  "edca",
		Stop:  4,
		Grid:  &Grid{Count: 4, Width: 2, DeltaX: 5, DeltaY: 5},
		Loss:  Loss{Model: LossLogDistance},
		Flows: flows,
	}}
}
