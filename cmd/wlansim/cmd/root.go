// Package cmd provides the command-line interface of wlansim.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/wlansim/simulation"
)

// Environment variables that provide flag defaults. They can also be set in
// a .env file in the working directory.
const (
	envCapture     = "WLANSIM_CAPTURE"
	envOutput      = "WLANSIM_OUTPUT"
	envMonitorPort = "WLANSIM_MONITOR_PORT"
)

type runOptions struct {
	capture     string
	output      string
	monitor     bool
	monitorPort int
	open        bool
	verbose     bool
}

var options runOptions

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wlansim",
	Short: "wlansim simulates wireless links that share a channel.",
	Long: `wlansim simulates stations that contend for one wireless channel. ` +
		`It runs built-in experiments or experiments described in YAML files ` +
		`and reports per-flow statistics.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		if err := loadEnv(".env"); err != nil {
			return err
		}

		return applyEnv(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&options.capture, "capture", "",
		"write the frames on the air to a file (sqlite or csv)")
	flags.StringVarP(&options.output, "output", "o", "",
		"name of the capture file, without extension")
	flags.BoolVar(&options.monitor, "monitor", false,
		"serve the monitoring API while simulating")
	flags.IntVar(&options.monitorPort, "monitor-port", 0,
		"port of the monitoring server, random if not set")
	flags.BoolVar(&options.open, "open", false,
		"open the monitoring API in a browser")
	flags.BoolVarP(&options.verbose, "verbose", "v", false,
		"print every event and radio activity to stderr")
}

func loadEnv(filename string) error {
	err := godotenv.Load(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

func applyEnv(cmd *cobra.Command) error {
	flags := cmd.Flags()

	if v, ok := os.LookupEnv(envCapture); ok && !flags.Changed("capture") {
		options.capture = v
	}

	if v, ok := os.LookupEnv(envOutput); ok && !flags.Changed("output") {
		options.output = v
	}

	if v, ok := os.LookupEnv(envMonitorPort); ok &&
		!flags.Changed("monitor-port") {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envMonitorPort, err)
		}

		options.monitorPort = port
	}

	switch simulation.CaptureFormat(options.capture) {
	case simulation.CaptureNone, simulation.CaptureSQLite, simulation.CaptureCSV:
	default:
		return fmt.Errorf("unknown capture format %q", options.capture)
	}

	if options.output != "" && options.capture == "" {
		return errors.New("--output requires --capture")
	}

	if options.open && !options.monitor {
		return errors.New("--open requires --monitor")
	}

	return nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
