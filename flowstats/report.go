package flowstats

import (
	"fmt"
	"io"

	"github.com/sarchlab/wlansim/wireless"
)

// Report prints the per-flow block of an experiment. Flows with a name in
// names are labeled with it instead of their flow ID.
func Report(w io.Writer, flows []FlowStats, names map[wireless.FlowKey]string) {
	for _, f := range flows {
		label := fmt.Sprintf("%d", f.FlowID)
		if name, ok := names[f.Key]; ok {
			label = name
		}

		fmt.Fprintf(w, "Flow %s (%s)\n", label, f.Key)
		fmt.Fprintf(w, "  Tx Bytes:   %d\n", f.TxBytes)
		fmt.Fprintf(w, "  Rx Bytes:   %d\n", f.RxBytes)
		fmt.Fprintf(w, "  Throughput: %.6g Mbps\n\n", f.ThroughputMbps())
	}
}

// ReportPhyDrops prints the frames lost at the radio of their destination.
func ReportPhyDrops(w io.Writer, c PhyDropCounters) {
	fmt.Fprintf(w, "Data Packet Collisions: %d\n", c.DataPackets)
	fmt.Fprintf(w, "RTS/CTS Collisions: %d\n", c.RtsCtsPackets)
	fmt.Fprintf(w, "Lost MBytes: %.6g\n\n", float64(c.Bytes)/1024/1024)
}
