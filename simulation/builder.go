package simulation

import (
	"log"

	"github.com/sarchlab/wlansim/capture"
	"github.com/sarchlab/wlansim/monitoring"
	"github.com/sarchlab/wlansim/scenario"
	"github.com/sarchlab/wlansim/sim/id"
	"github.com/sarchlab/wlansim/wireless"
)

// CaptureFormat selects the file type a capture is written to.
type CaptureFormat string

// Supported capture formats.
const (
	CaptureNone   CaptureFormat = ""
	CaptureSQLite CaptureFormat = "sqlite"
	CaptureCSV    CaptureFormat = "csv"
)

// Builder can be used to build a simulation.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	captureFormat  CaptureFormat
	outputFileName string
	logger         *log.Logger
}

// MakeBuilder creates a new builder. Monitoring and capturing are off.
func MakeBuilder() Builder {
	return Builder{}
}

// WithMonitoring makes the simulation start a monitoring server.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	b.monitorPort = 0

	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithCapture makes the simulation write the frames on the air to a file of
// the given format.
func (b Builder) WithCapture(format CaptureFormat) Builder {
	b.captureFormat = format
	return b
}

// WithOutputFileName sets the name of the capture file, without extension.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithLogger makes the network print its activity to the logger.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		log.Panic("monitor port cannot be set when monitoring is disabled")
	}

	switch b.captureFormat {
	case CaptureNone:
		if b.outputFileName != "" {
			log.Panic("output file name cannot be set without a capture")
		}
	case CaptureSQLite, CaptureCSV:
	default:
		log.Panicf("unknown capture format %q", b.captureFormat)
	}
}

// Build builds the experiment of a description and attaches the services
// selected on the builder.
func (b Builder) Build(d *scenario.Description) (*Simulation, error) {
	b.parametersMustBeValid()

	exp, err := d.Build(b.logger)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		id:         id.NewRunID(),
		experiment: exp,
	}

	if b.captureFormat != CaptureNone {
		b.attachCapture(s)
	}

	if b.monitorOn {
		b.attachMonitor(s)
	}

	return s, nil
}

func (b Builder) attachCapture(s *Simulation) {
	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "wlansim_capture_" + s.id
	}

	switch b.captureFormat {
	case CaptureCSV:
		w := capture.NewCSVWriter(outputPath)
		s.captureFile = w.Filename()
		s.capture = w
	default:
		w := capture.NewSQLiteWriter(outputPath)
		s.captureFile = w.Filename()
		s.capture = w
	}

	s.capture.Init()

	d := s.experiment.Description

	recorder := capture.NewRecorder(s.capture)
	if d.Observer != nil {
		recorder = capture.NewObserverRecorder(
			s.capture, wireless.NodeID(*d.Observer))
	}

	s.experiment.Network.AcceptHook(recorder)
}

func (b Builder) attachMonitor(s *Simulation) {
	m := monitoring.NewMonitor().WithPortNumber(b.monitorPort)
	m.RegisterNetwork(s.experiment.Network)

	for _, f := range s.experiment.Description.Flows {
		key := wireless.FlowKey{
			Src: wireless.NodeID(f.Src),
			Dst: wireless.NodeID(f.Dst),
		}

		if name, ok := s.experiment.FlowName(key); ok {
			m.NameFlow(key, name)
		}
	}

	s.progress = m.TrackSimulationTime(s.experiment.Description.Stop)
	s.monitorURL = m.StartServer()
	s.monitor = m
}
