// Command asb-log views and analyzes aSysBus capture files.
//
// Capture files are written by asb-node when a capture file is configured
// (capture: in the node configuration or --capture on the command line).
//
// Usage:
//
//	asb-log <command> [flags] <file.alog>
//
// Commands:
//
//	view     View capture file in human-readable format
//	export   Export capture file to JSON lines or CSV
//	filter   Filter capture file and write to new file
//	stats    Show statistics about the capture file
//
// Examples:
//
//	# View all events
//	asb-log view node.alog
//
//	# View packets sent by node 0x01F
//	asb-log view --category packet --source 1F node.alog
//
//	# Export to CSV
//	asb-log export --format csv -o node.csv node.alog
//
//	# Keep one session only
//	asb-log filter --session 3f2a9c1e -o session.alog node.alog
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/asysbus/asb-go/cmd/asb-log/commands"
)

var noColor bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "asb-log",
		Short:        "aSysBus capture analyzer",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddCommand(newViewCmd(), newExportCmd(), newFilterCmd(), newStatsCmd())
	return root
}

func addFilterFlags(cmd *cobra.Command, opts *commands.FilterOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.SessionID, "session", "", "Filter by session ID")
	f.StringVar(&opts.Transport, "transport", "", "Filter by transport name")
	f.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	f.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	f.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, node, module)")
	f.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	f.StringVar(&opts.Category, "category", "", "Filter by category (frame, packet, state, error)")
	f.StringVar(&opts.Source, "source", "", "Filter packets by source node (hex)")
	f.StringVar(&opts.Target, "target", "", "Filter packets by target address (hex)")
}

func newViewCmd() *cobra.Command {
	var opts commands.FilterOptions
	cmd := &cobra.Command{
		Use:   "view [flags] <file.alog>",
		Short: "View capture file in human-readable format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}
			return commands.RunView(args[0], filter, cmd.OutOrStdout())
		},
	}
	addFilterFlags(cmd, &opts)
	return cmd
}

func newExportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export [flags] <file.alog>",
		Short: "Export capture file to JSON lines or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return commands.RunExport(args[0], format, w)
		},
	}
	cmd.Flags().StringVar(&format, "format", "jsonl", "Output format (jsonl, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newFilterCmd() *cobra.Command {
	var (
		opts   commands.FilterOptions
		output string
	)
	cmd := &cobra.Command{
		Use:   "filter [flags] <file.alog>",
		Short: "Filter capture file and write to new file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}
			n, err := commands.RunFilter(args[0], output, filter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Filtered %d events to %s\n", n, output)
			return nil
		},
	}
	addFilterFlags(cmd, &opts)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (required)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file.alog>",
		Short: "Show statistics about the capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunStats(args[0], cmd.OutOrStdout())
		},
	}
}
