package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/wlansim/monitoring"
	"github.com/sarchlab/wlansim/scenario"
	"github.com/sarchlab/wlansim/simulation"
)

const separator = "------------------------------------------------"

var builtinSummaries = map[string]string{
	"ap":              "Ping between two stations next to an observing access point",
	"interference":    "A home network disturbed by a neighbouring network",
	"hidden-terminal": "Two hidden stations, without and with RTS/CTS",
	"edca":            "Best-effort and voice traffic sharing the channel",
}

var runCmd = &cobra.Command{
	Use:   "run [file]...",
	Short: "Run experiments described in YAML files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		descs := make([]*scenario.Description, 0, len(args))

		for _, filename := range args {
			d, err := scenario.Load(filename)
			if err != nil {
				return err
			}

			descs = append(descs, d)
		}

		return runDescriptions(cmd.OutOrStdout(), descs)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in experiments",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, name := range scenario.BuiltinNames() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n",
				name, builtinSummaries[name])
		}
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe [experiment]",
	Short: "Print a built-in experiment as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		descs, err := scenario.Builtin(args[0])
		if err != nil {
			return err
		}

		for i, d := range descs {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "---")
			}

			data, err := d.Marshal()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)
			if err != nil {
				return err
			}
		}

		return nil
	},
}

func builtinCommand(name string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: builtinSummaries[name],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			descs, err := scenario.Builtin(name)
			if err != nil {
				return err
			}

			return runDescriptions(cmd.OutOrStdout(), descs)
		},
	}
}

func init() {
	rootCmd.AddCommand(runCmd, listCmd, describeCmd)

	for _, name := range scenario.BuiltinNames() {
		rootCmd.AddCommand(builtinCommand(name))
	}
}

func runDescriptions(w io.Writer, descs []*scenario.Description) error {
	for i, d := range descs {
		if i > 0 {
			fmt.Fprintln(w, separator)
		}

		output := options.output
		if output != "" && len(descs) > 1 {
			output = fmt.Sprintf("%s_%d", output, i)
		}

		if err := runDescription(w, d, output); err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
	}

	return nil
}

func runDescription(w io.Writer, d *scenario.Description, output string) error {
	s, err := builderFor(output).Build(d)
	if err != nil {
		return err
	}

	if options.open {
		if err := monitoring.OpenInBrowser(s.MonitorURL()); err != nil {
			log.Printf("cannot open browser: %v", err)
		}
	}

	if err := s.Run(); err != nil {
		return errors.Join(err, s.Terminate())
	}

	s.Report(w)

	if err := s.Terminate(); err != nil {
		return err
	}

	if s.CaptureFile() != "" {
		who := "all nodes"
		if d.Observer != nil {
			who = fmt.Sprintf("node %d", *d.Observer)
		}

		fmt.Fprintf(os.Stderr, "written capture of %s --> %s\n",
			who, s.CaptureFile())
	}

	return nil
}

func builderFor(output string) simulation.Builder {
	b := simulation.MakeBuilder()

	if options.monitor {
		b = b.WithMonitoring().WithMonitorPort(options.monitorPort)
	}

	if options.capture != "" {
		b = b.WithCapture(simulation.CaptureFormat(options.capture))
		if output != "" {
			b = b.WithOutputFileName(output)
		}
	}

	if options.verbose {
		b = b.WithLogger(log.New(os.Stderr, "", 0))
	}

	return b
}
