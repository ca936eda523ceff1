// Package interactive provides the interactive console of asb-node.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"

	"github.com/asysbus/asb-go/pkg/cfgblock"
	"github.com/asysbus/asb-go/pkg/module/group"
	"github.com/asysbus/asb-go/pkg/node"
	"github.com/asysbus/asb-go/pkg/transport"
	"github.com/asysbus/asb-go/pkg/wire"
)

// Console handles interactive mode for asb-node. Every controller access
// goes through the runner.
type Console struct {
	rl     *readline.Instance
	out    io.Writer
	runner *node.Runner
	group  *group.Module

	monitor atomic.Bool
}

// New creates a console on the terminal. Attach must be called before Run.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "asb> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, out: rl.Stdout()}, nil
}

// newWithWriter creates a console without a terminal.
func newWithWriter(out io.Writer) *Console {
	return &Console{out: out}
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Attach binds the console to a running node and installs the hook that
// prints bus traffic. grp may be nil when the group module is disabled.
func (c *Console) Attach(ctx context.Context, runner *node.Runner, grp *group.Module) error {
	c.runner = runner
	c.group = grp

	var hookErr error
	err := runner.Exec(ctx, func(ctrl *node.Controller) {
		_, hookErr = ctrl.AttachHook(node.MatchAll(), c.onPacket)
	})
	return errors.Join(err, hookErr)
}

// onPacket runs on the runner goroutine. Pongs are always shown so ping
// answers are visible without the monitor.
func (c *Console) onPacket(pkt wire.Packet) {
	cmd, ok := pkt.Command()
	if !c.monitor.Load() && (!ok || cmd != wire.CmdPong) {
		return
	}
	fmt.Fprintf(c.out, "bus: %s\n", describe(pkt))
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if c.Execute(ctx, line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the user asked to quit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "status", "s":
		c.cmdStatus(ctx)

	case "send":
		c.cmdSend(ctx, args)

	case "ping":
		c.cmdPing(ctx, args)

	case "monitor", "mon":
		c.cmdMonitor(args)

	case "nodeid", "id":
		c.cmdNodeID(ctx, args)

	case "group", "groups", "g":
		c.cmdGroup(ctx, args)

	case "blocks":
		c.cmdBlocks(ctx)

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
aSysBus Node Commands:
  Node:
    status                     - Show node ID, transports and modules
    nodeid [id]                - Show or change the node ID (hex)
    blocks                     - List configuration blocks

  Bus:
    send <b|m|u> <target>[:port] <payload...>
                               - Send a packet, payload as command name or hex bytes
    ping <node>                - Ping a node (hex)
    monitor [on|off]           - Print every packet seen on the bus

  Groups:
    group                      - List tracked groups
    group add <group> [state] [pub]
                               - Track a group, optionally as publisher
    group set <group> on|off   - Publish a new state for a group

  Other:
    help                       - Show this help
    quit                       - Exit`)
}

// exec runs fn on the runner and reports a stopped node.
func (c *Console) exec(ctx context.Context, fn func(*node.Controller)) bool {
	if c.runner == nil {
		fmt.Fprintln(c.out, "Node not running")
		return false
	}
	if err := c.runner.Exec(ctx, fn); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return false
	}
	return true
}

func (c *Console) cmdStatus(ctx context.Context) {
	var lines []string
	c.exec(ctx, func(ctrl *node.Controller) {
		lines = append(lines, fmt.Sprintf("Node ID: 0x%03X", ctrl.NodeID()))
		lines = append(lines, "Transports:")
		for slot := 0; slot < ctrl.Slots(); slot++ {
			t, ok := ctrl.Transport(slot)
			if !ok {
				continue
			}
			state := "ok"
			if err := transport.LastError(t); err != nil {
				state = err.Error()
			}
			lines = append(lines, fmt.Sprintf("  [%d] %-24s %s", slot, transport.Name(t), state))
		}
		lines = append(lines, "Modules:")
		for id := cfgblock.MinModule; id <= cfgblock.MaxModule; id++ {
			if _, ok := ctrl.Module(id); ok {
				lines = append(lines, fmt.Sprintf("  [%d]", id))
			}
		}
	})
	for _, l := range lines {
		fmt.Fprintln(c.out, l)
	}
}

// parseTarget splits "<target>[:port]".
func parseTarget(s string) (uint16, int8, error) {
	addr, portStr, hasPort := strings.Cut(s, ":")
	target, err := wire.ParseAddress(addr)
	if err != nil {
		return 0, 0, err
	}
	if !hasPort {
		return target, wire.PortUnset, nil
	}
	port, err := strconv.ParseInt(portStr, 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid port %q", portStr)
	}
	return target, int8(port), nil
}

func (c *Console) cmdSend(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: send <b|m|u> <target>[:port] <payload...>")
		return
	}
	typ, err := wire.ParseType(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	target, port, err := parseTarget(args[1])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if typ == wire.TypeUnicast && port == wire.PortUnset {
		port = 0
	}
	if typ != wire.TypeUnicast {
		port = wire.PortUnset
	}
	payload, err := wire.ParsePayload(args[2:])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.send(ctx, typ, target, port, payload)
}

func (c *Console) send(ctx context.Context, typ wire.Type, target uint16, port int8, payload []byte) {
	var meta wire.Meta
	var failed int
	var err error
	if !c.exec(ctx, func(ctrl *node.Controller) {
		meta = wire.Meta{Type: typ, Target: target, Source: ctrl.NodeID(), Port: port}
		if err = meta.Validate(); err != nil {
			return
		}
		failed = ctrl.SendPort(typ, target, port, payload)
	}) {
		return
	}

	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if failed > 0 {
		fmt.Fprintf(c.out, "Sent %s, %d transport(s) failed\n", meta, failed)
		return
	}
	fmt.Fprintf(c.out, "Sent %s\n", meta)
}

func (c *Console) cmdPing(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: ping <node>")
		return
	}
	id, err := wire.ParseAddress(args[0])
	if err != nil || !wire.ValidNodeID(id) {
		fmt.Fprintf(c.out, "Invalid node ID: %s\n", args[0])
		return
	}
	c.send(ctx, wire.TypeUnicast, id, 0, []byte{byte(wire.CmdPing)})
}

func (c *Console) cmdMonitor(args []string) {
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on":
			c.monitor.Store(true)
		case "off":
			c.monitor.Store(false)
		default:
			fmt.Fprintln(c.out, "Usage: monitor [on|off]")
			return
		}
	} else {
		c.monitor.Store(!c.monitor.Load())
	}

	if c.monitor.Load() {
		fmt.Fprintln(c.out, "Monitor on")
	} else {
		fmt.Fprintln(c.out, "Monitor off")
	}
}

func (c *Console) cmdNodeID(ctx context.Context, args []string) {
	if len(args) == 0 {
		var id uint16
		if c.exec(ctx, func(ctrl *node.Controller) { id = ctrl.NodeID() }) {
			fmt.Fprintf(c.out, "Node ID: 0x%03X\n", id)
		}
		return
	}

	id, err := wire.ParseAddress(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	var setErr error
	if !c.exec(ctx, func(ctrl *node.Controller) { setErr = ctrl.SetNodeID(id) }) {
		return
	}
	if setErr != nil {
		fmt.Fprintf(c.out, "Error: %v\n", setErr)
		return
	}
	fmt.Fprintf(c.out, "Node ID set to 0x%03X\n", id)
}

func (c *Console) cmdGroup(ctx context.Context, args []string) {
	if c.group == nil {
		fmt.Fprintln(c.out, "Group module not enabled")
		return
	}
	if len(args) == 0 {
		c.listGroups(ctx)
		return
	}

	switch strings.ToLower(args[0]) {
	case "list", "ls":
		c.listGroups(ctx)

	case "add":
		if len(args) < 2 {
			fmt.Fprintln(c.out, "Usage: group add <group> [state] [pub]")
			return
		}
		target, err := wire.ParseAddress(args[1])
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		var initial byte
		publisher := false
		for _, a := range args[2:] {
			switch strings.ToLower(a) {
			case "pub", "publisher":
				publisher = true
			case "on":
				initial = 1
			case "off":
				initial = 0
			default:
				v, err := strconv.ParseUint(a, 10, 8)
				if err != nil {
					fmt.Fprintf(c.out, "Invalid state: %s\n", a)
					return
				}
				initial = byte(v)
			}
		}
		c.groupOp(ctx, func() error { return c.group.Add(target, initial, publisher) },
			fmt.Sprintf("Tracking group 0x%03X", target))

	case "set":
		if len(args) != 3 {
			fmt.Fprintln(c.out, "Usage: group set <group> on|off")
			return
		}
		target, err := wire.ParseAddress(args[1])
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		var on bool
		switch strings.ToLower(args[2]) {
		case "on", "1":
			on = true
		case "off", "0":
		default:
			fmt.Fprintln(c.out, "Usage: group set <group> on|off")
			return
		}
		c.groupOp(ctx, func() error { return c.group.Set(target, on) },
			fmt.Sprintf("Group 0x%03X set %s", target, args[2]))

	default:
		fmt.Fprintf(c.out, "Unknown group command: %s\n", args[0])
	}
}

func (c *Console) groupOp(ctx context.Context, fn func() error, done string) {
	var opErr error
	if !c.exec(ctx, func(*node.Controller) { opErr = fn() }) {
		return
	}
	if opErr != nil {
		fmt.Fprintf(c.out, "Error: %v\n", opErr)
		return
	}
	fmt.Fprintln(c.out, done)
}

func (c *Console) listGroups(ctx context.Context) {
	var entries []group.Entry
	if !c.exec(ctx, func(*node.Controller) { entries = c.group.Entries() }) {
		return
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "No groups")
		return
	}
	fmt.Fprintln(c.out, "GROUP  STATE  ROLE       BLOCK")
	for _, e := range entries {
		role := "follower"
		if e.Publisher {
			role = "publisher"
		}
		target := fmt.Sprintf("0x%03X", e.Target)
		if e.Target == 0 {
			target = "*"
		}
		fmt.Fprintf(c.out, "%-6s %-6d %-10s 0x%04X\n", target, e.State, role, e.Addr)
	}
}

func (c *Console) cmdBlocks(ctx context.Context) {
	var blocks []cfgblock.Block
	var err error
	var start, stop int
	if !c.exec(ctx, func(ctrl *node.Controller) {
		alloc := ctrl.Allocator()
		if alloc == nil {
			err = node.ErrNoStorage
			return
		}
		start, stop = alloc.Bounds()
		blocks, err = alloc.Blocks()
	}) {
		return
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(c.out, "Region [0x%04X, 0x%04X): %d block(s)\n", start, stop, len(blocks))
	for _, b := range blocks {
		owner := fmt.Sprintf("module %d", b.Module)
		if b.Module == 0 {
			owner = "free"
		}
		fmt.Fprintf(c.out, "  0x%04X  class %d  %s\n", b.Addr, b.Class, owner)
	}
}

// describe renders one packet with its decoded meaning when known.
func describe(p wire.Packet) string {
	var b strings.Builder
	b.WriteString(p.Meta.String())
	if p.Len > 0 {
		fmt.Fprintf(&b, " [% X]", p.Payload())
	}
	if d := wire.Describe(p); d != "" {
		b.WriteString(" ")
		b.WriteString(d)
	} else if cmd, ok := p.Command(); ok {
		b.WriteString(" ")
		b.WriteString(cmd.String())
	}
	return b.String()
}
