// Command asb-node runs an aSysBus node.
//
// The node attaches the transports listed in its configuration file, routes
// packets between them, answers pings and hosts the built-in modules. It can
// expose its bus over TCP, announce that gateway over mDNS and serve
// Prometheus metrics.
//
// Usage:
//
//	asb-node [flags]
//	asb-node discover [flags]
//
// Examples:
//
//	# Run from a configuration file with the interactive console
//	asb-node --config /etc/asb/node.yaml --interactive
//
//	# Join a remote gateway found over mDNS
//	asb-node --node-id 2A --connect-node 1F
//
//	# List gateways on the LAN
//	asb-node discover --timeout 3s
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/asysbus/asb-go/cmd/asb-node/interactive"
	"github.com/asysbus/asb-go/internal/config"
	"github.com/asysbus/asb-go/pkg/discovery"
	"github.com/asysbus/asb-go/pkg/version"
	"github.com/asysbus/asb-go/pkg/wire"
)

type options struct {
	configPath  string
	nodeID      string
	logLevel    string
	capture     string
	metrics     string
	connect     []string
	connectNode string
	interactive bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:          "asb-node",
		Short:        "aSysBus node daemon",
		Version:      "protocol " + version.Current,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &opts)
			if err != nil {
				return err
			}
			return runNode(cmd.Context(), cfg, &opts)
		},
	}

	f := root.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Configuration file path")
	f.StringVar(&opts.nodeID, "node-id", "", "Node ID in hex, used when none is stored")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&opts.capture, "capture", "", "Write protocol events to this .alog file")
	f.StringVar(&opts.metrics, "metrics", "", "Serve /metrics on this address")
	f.StringSliceVar(&opts.connect, "connect", nil, "Dial a TCP gateway (host:port), repeatable")
	f.StringVar(&opts.connectNode, "connect-node", "", "Find the gateway of this node (hex) over mDNS and dial it")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "Start the interactive console")

	root.AddCommand(newDiscoverCmd())
	return root
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	var cfg *config.Config
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		def := config.Default()
		cfg = &def
	}

	if opts.nodeID != "" {
		id, err := wire.ParseAddress(opts.nodeID)
		if err != nil {
			return nil, fmt.Errorf("--node-id: %w", err)
		}
		cfg.NodeID = id
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if opts.capture != "" {
		cfg.Capture = opts.capture
	}
	if opts.metrics != "" {
		cfg.Metrics = opts.metrics
	}
	if extra := len(opts.connect); extra > 0 && len(cfg.Transports)+extra > cfg.Tables.Buses {
		return nil, fmt.Errorf("%w: %d transports exceed %d bus slots", config.ErrInvalid, len(cfg.Transports)+extra, cfg.Tables.Buses)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func runNode(parent context.Context, cfg *config.Config, opts *options) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var console *interactive.Console
	var out io.Writer = os.Stderr
	if opts.interactive {
		c, err := interactive.New()
		if err != nil {
			return err
		}
		console = c
		out = console.Stdout()
	}
	logger := newLogger(out, cfg.LogLevel)

	d, err := newDaemon(ctx, cfg, logger)
	if err != nil {
		return err
	}

	for _, addr := range opts.connect {
		if err := d.connectGateway(ctx, addr); err != nil {
			d.close()
			return err
		}
	}
	if opts.connectNode != "" {
		id, err := wire.ParseAddress(opts.connectNode)
		if err != nil {
			d.close()
			return fmt.Errorf("--connect-node: %w", err)
		}
		addr, err := findGateway(ctx, cfg.MDNS.Interface, id)
		if err != nil {
			d.close()
			return fmt.Errorf("find node 0x%03X: %w", id, err)
		}
		if err := d.connectGateway(ctx, addr); err != nil {
			d.close()
			return err
		}
	}

	logger.Info("node started", "node", fmt.Sprintf("0x%03X", d.ctrl.NodeID()), "transports", len(cfg.Transports))

	errc := make(chan error, 1)
	go func() { errc <- d.run(ctx) }()

	if console != nil {
		if err := console.Attach(ctx, d.runner, d.group); err != nil {
			logger.Error("console unavailable", "error", err)
		} else {
			go console.Run(ctx, cancel)
		}
	}

	err = <-errc
	logger.Info("node stopped")
	return err
}

func newDiscoverCmd() *cobra.Command {
	var (
		timeout time.Duration
		iface   string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List aSysBus gateways announced over mDNS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			b := discovery.NewMDNSBrowser(discovery.BrowserConfig{Interface: iface, BrowseTimeout: timeout})
			results, err := b.Browse(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			found := 0
			for svc := range results {
				found++
				printService(out, svc)
			}
			if found == 0 {
				fmt.Fprintln(out, "No gateways found.")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", discovery.BrowseTimeout, "How long to browse")
	cmd.Flags().StringVar(&iface, "interface", "", "Network interface to browse on")
	return cmd
}

func printService(w io.Writer, svc *discovery.NodeService) {
	name := svc.Name
	if name == "" {
		name = "-"
	}
	fmt.Fprintf(w, "0x%03X  %-22s  %-16s  ver=%s  %s\n", svc.NodeID, svc.Addr(), name, svc.Version, svc.InstanceName)
}
