// Package node implements the aSysBus node controller.
//
// A Controller owns a fixed number of transport slots, hook slots and
// module slots. It floods every packet it receives to all other attached
// transports, answers liveness probes, and dispatches packets to modules
// and hooks in that order.
//
// The controller is single-threaded. Loop processes at most one inbound
// packet, then ticks every module once. Use a Runner to drive Loop from a
// goroutine and to run outside calls on that same goroutine:
//
//	ctrl, err := node.New(cfg)
//	runner := node.NewRunner(ctrl, node.DefaultRunnerConfig())
//	go runner.Run(ctx)
//
//	runner.Exec(ctx, func(c *node.Controller) {
//	    c.SendTo(wire.TypeMulticast, 0x1234, []byte{byte(wire.Cmd1B), 1})
//	})
package node
