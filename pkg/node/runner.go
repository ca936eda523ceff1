package node

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/asysbus/asb-go/pkg/wire"
)

// ErrRunnerStopped is returned by Exec once the runner has exited.
var ErrRunnerStopped = errors.New("runner stopped")

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Interval is the time between ticks.
	Interval time.Duration

	// Burst is how many Loop calls one tick may make while packets keep
	// arriving. Outside calls queued through Exec run between ticks.
	Burst int

	// OnPacket is called on the runner goroutine for every handled packet.
	OnPacket func(wire.Packet)

	// Logger is the optional logger for debug output.
	Logger *slog.Logger
}

// DefaultRunnerConfig returns a RunnerConfig with a 1ms tick.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Interval: time.Millisecond,
		Burst:    8,
	}
}

type execOp struct {
	fn   func(*Controller)
	done chan struct{}
}

// Runner drives a Controller from one goroutine. Every controller access
// from other goroutines must go through Exec.
type Runner struct {
	ctrl   *Controller
	config RunnerConfig
	ops    chan execOp
	done   chan struct{}
}

// NewRunner creates a runner for c.
func NewRunner(c *Controller, config RunnerConfig) *Runner {
	if config.Interval <= 0 {
		config.Interval = time.Millisecond
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &Runner{
		ctrl:   c,
		config: config,
		ops:    make(chan execOp),
		done:   make(chan struct{}),
	}
}

// Run ticks the controller until ctx is done. It must be called once.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.debugLog("runner started", "interval", r.config.Interval)
	for {
		select {
		case <-ctx.Done():
			r.debugLog("runner stopped")
			return ctx.Err()
		case op := <-r.ops:
			op.fn(r.ctrl)
			close(op.done)
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *Runner) tick() {
	for i := 0; i < r.config.Burst; i++ {
		pkt, ok := r.ctrl.Loop()
		if !ok {
			return
		}
		if r.config.OnPacket != nil {
			r.config.OnPacket(pkt)
		}
	}
}

// Exec runs fn on the runner goroutine and waits for it to return.
func (r *Runner) Exec(ctx context.Context, fn func(*Controller)) error {
	op := execOp{fn: fn, done: make(chan struct{})}
	select {
	case r.ops <- op:
	case <-r.done:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-op.done:
		return nil
	case <-r.done:
		return ErrRunnerStopped
	}
}

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) debugLog(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, args...)
	}
}
