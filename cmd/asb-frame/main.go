// Command asb-frame encodes and decodes aSysBus UART frames.
//
// Usage:
//
//	asb-frame encode [flags] <payload...>
//	asb-frame decode [file]
//
// Examples:
//
//	# Switch group 0x122 on, sent from node 0x001
//	asb-frame encode --type multicast --target 122 --source 1 51 01
//
//	# Command names may replace the first byte
//	asb-frame encode -t unicast --target 2a --source 1 --port 3 PING
//
//	# Decode a serial capture
//	asb-frame decode /tmp/ttyUSB0.raw
//	cat /dev/ttyUSB0 | asb-frame decode
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/asysbus/asb-go/pkg/wire"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "asb-frame",
		Short:        "Encode and decode aSysBus UART frames",
		SilenceUsage: true,
	}
	root.AddCommand(newEncodeCmd(), newDecodeCmd())
	return root
}

func newEncodeCmd() *cobra.Command {
	var (
		typ, target, source string
		port                int
		escape              bool
	)
	cmd := &cobra.Command{
		Use:   "encode [flags] <payload...>",
		Short: "Encode one packet as a UART frame",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := wire.ParseType(typ)
			if err != nil {
				return err
			}
			dst, err := wire.ParseAddress(target)
			if err != nil {
				return err
			}
			src, err := wire.ParseAddress(source)
			if err != nil {
				return err
			}
			payload, err := wire.ParsePayload(args)
			if err != nil {
				return err
			}

			frame, err := encodePacket(wire.Meta{Type: t, Target: dst, Source: src, Port: int8(port)}, payload)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if escape {
				_, err = fmt.Fprintln(out, escapeFrame(frame))
				return err
			}
			_, err = out.Write(frame)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&typ, "type", "t", "multicast", "Packet type (broadcast, multicast, unicast)")
	f.StringVar(&target, "target", "", "Target node or group (hex)")
	f.StringVar(&source, "source", "1", "Source node (hex)")
	f.IntVar(&port, "port", -1, "Unicast port (0-31)")
	f.BoolVar(&escape, "escape", false, "Print control characters by name")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode UART frames from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			stats, err := decodeStream(in, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d packets, %d resyncs, %d noise bytes\n",
					stats.Frames, stats.Resyncs, stats.Noise)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the summary")
	return cmd
}
