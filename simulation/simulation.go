// Package simulation runs an experiment together with the services that
// watch it: a capture file and a monitoring server.
package simulation

import (
	"errors"
	"io"

	"github.com/sarchlab/wlansim/capture"
	"github.com/sarchlab/wlansim/monitoring"
	"github.com/sarchlab/wlansim/scenario"
	"github.com/sarchlab/wlansim/wlan"
)

// A Simulation is an experiment with its capture and monitor attached.
type Simulation struct {
	id         string
	experiment *scenario.Experiment

	capture     capture.Writer
	captureFile string

	monitor    *monitoring.Monitor
	monitorURL string
	progress   *monitoring.ProgressBar
}

// ID returns the unique ID of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Experiment returns the experiment being simulated.
func (s *Simulation) Experiment() *scenario.Experiment {
	return s.experiment
}

// Network returns the simulated network.
func (s *Simulation) Network() *wlan.Network {
	return s.experiment.Network
}

// Capture returns the capture writer, or nil when nothing is captured.
func (s *Simulation) Capture() capture.Writer {
	return s.capture
}

// CaptureFile returns the name of the capture file, if there is one.
func (s *Simulation) CaptureFile() string {
	return s.captureFile
}

// Monitor returns the monitor, or nil when monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitoring server.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// Run simulates the experiment until its stop time.
func (s *Simulation) Run() error {
	err := s.experiment.Run()

	if s.progress != nil {
		s.monitor.CompleteProgressBar(s.progress)
	}

	return err
}

// Report prints the statistics of the experiment.
func (s *Simulation) Report(w io.Writer) {
	s.experiment.Report(w)
}

// Terminate flushes and closes the capture file and stops the monitoring
// server.
func (s *Simulation) Terminate() error {
	var errs []error

	if s.capture != nil {
		errs = append(errs, s.capture.Close())
	}

	if s.monitor != nil {
		errs = append(errs, s.monitor.Stop())
	}

	return errors.Join(errs...)
}
