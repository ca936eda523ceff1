package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/asysbus/asb-go/internal/config"
	"github.com/asysbus/asb-go/pkg/can"
	"github.com/asysbus/asb-go/pkg/discovery"
	alog "github.com/asysbus/asb-go/pkg/log"
	"github.com/asysbus/asb-go/pkg/metrics"
	"github.com/asysbus/asb-go/pkg/module/group"
	"github.com/asysbus/asb-go/pkg/node"
	"github.com/asysbus/asb-go/pkg/storage"
	"github.com/asysbus/asb-go/pkg/transport"
	"github.com/asysbus/asb-go/pkg/uart"
	"github.com/asysbus/asb-go/pkg/wire"
)

// runnerBurst is how many packets one tick may handle.
const runnerBurst = 8

var errNoNodeID = errors.New("node has no ID: set node_id or --node-id")

// canDriver is a CAN driver the daemon closes on shutdown.
type canDriver interface {
	can.Driver
	io.Closer
}

// daemon owns everything one asb-node process runs.
type daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	ctrl    *node.Controller
	runner  *node.Runner
	group   *group.Module
	capture alog.Logger

	captureFile *alog.FileLogger

	vbus     *can.VirtualBus
	gateways []*uart.Gateway
	mdns     *discovery.MDNSAdvertiser

	mu      sync.Mutex
	closers []io.Closer
	resyncs []prometheus.Collector
}

// newDaemon opens storage, capture and every configured transport and
// provisions the node ID on first boot. Nothing runs until run is called.
func newDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	d := &daemon{cfg: cfg, logger: logger}
	if err := d.setup(ctx); err != nil {
		d.close()
		return nil, err
	}
	return d, nil
}

func (d *daemon) setup(ctx context.Context) error {
	store, err := d.openStorage()
	if err != nil {
		return err
	}
	if err := d.openCapture(); err != nil {
		return err
	}

	nc := d.cfg.NodeConfig()
	nc.NodeID = 0
	nc.Storage = store
	nc.Logger = d.logger
	nc.Capture = d.capture
	if d.cfg.Metrics != "" {
		metrics.Register()
		nc.Observer = metrics.NewRecorder()
	}

	d.ctrl, err = node.New(nc)
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	var bootErr error
	if d.ctrl.FirstBoot(func() {
		if d.cfg.NodeID == 0 {
			bootErr = errNoNodeID
			return
		}
		bootErr = d.ctrl.SetNodeID(d.cfg.NodeID)
	}) {
		if bootErr != nil {
			return fmt.Errorf("first boot: %w", bootErr)
		}
		d.logger.Info("node provisioned", "node", fmt.Sprintf("0x%03X", d.ctrl.NodeID()))
	}

	if d.cfg.Modules.Group.Enabled {
		d.group = group.New(group.Config{
			ID:     d.cfg.Modules.Group.ID,
			Logger: d.logger,
			OnChange: func(e group.Entry) {
				d.logger.Info("group state", "group", fmt.Sprintf("0x%03X", e.Target), "state", e.State)
			},
		})
		if _, err := d.ctrl.AttachModule(d.group); err != nil {
			return fmt.Errorf("attach group module: %w", err)
		}
	}

	for _, tc := range d.cfg.Transports {
		if tc.Kind == config.KindTCPListen {
			gw, err := uart.ListenTCP(tc.Address, d.logger)
			if err != nil {
				return err
			}
			d.gateways = append(d.gateways, gw)
			d.logger.Info("gateway listening", "transport", tc.Name, "addr", gw.Addr().String())
			continue
		}

		t, err := d.openTransport(ctx, tc)
		if err != nil {
			return fmt.Errorf("transport %q: %w", tc.Name, err)
		}
		slot, err := d.ctrl.AttachTransport(t)
		if err != nil {
			return fmt.Errorf("transport %q: %w", tc.Name, err)
		}
		d.logger.Info("transport attached", "transport", tc.Name, "kind", tc.Kind, "slot", slot)
	}

	d.runner = node.NewRunner(d.ctrl, node.RunnerConfig{
		Interval: d.cfg.Tick,
		Burst:    runnerBurst,
		Logger:   d.logger,
	})
	return nil
}

func (d *daemon) openStorage() (storage.Device, error) {
	s := d.cfg.Storage
	if s.Image == "" {
		return storage.NewMemory(s.Size), nil
	}
	f, err := storage.OpenFile(s.Image, s.Size)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return f, nil
}

// openCapture builds the shared capture session. Transports and the
// controller log through the same session so one run has one session ID.
func (d *daemon) openCapture() error {
	var file, console alog.Logger
	if d.cfg.Capture != "" {
		fl, err := alog.NewFileLogger(d.cfg.Capture)
		if err != nil {
			return fmt.Errorf("open capture: %w", err)
		}
		d.addCloser(fl)
		d.captureFile = fl
		file = fl
	}
	if d.logger.Enabled(context.Background(), slog.LevelDebug) {
		console = alog.NewSlogAdapter(d.logger)
	}

	sinks := alog.NewMultiLogger(file, console)
	if sinks.Len() == 0 {
		return nil
	}
	d.capture = alog.NewSession(sinks, func() uint16 {
		if d.ctrl == nil {
			return 0
		}
		return d.ctrl.NodeID()
	})
	return nil
}

// openTransport builds a transport for every kind except tcp-listen.
func (d *daemon) openTransport(ctx context.Context, tc config.TransportConfig) (transport.Transport, error) {
	switch tc.Kind {
	case config.KindUART:
		stream, err := openSerial(tc.Device, tc.Baud)
		if err != nil {
			return nil, err
		}
		d.addCloser(stream)
		return d.uartTransport(tc.Name, stream), nil

	case config.KindTCPDial:
		stream, err := uart.DialTCP(ctx, tc.Address)
		if err != nil {
			return nil, err
		}
		d.addCloser(stream)
		return d.uartTransport(tc.Name, stream), nil

	case config.KindCAN:
		drv, err := openSocketCAN(tc.Interface)
		if err != nil {
			return nil, err
		}
		d.addCloser(drv)
		return can.NewTransport(drv, can.Config{Name: tc.Name, Layout: tc.CANLayout(), Logger: d.logger}), nil

	case config.KindVirtual:
		if d.vbus == nil {
			d.vbus = can.NewVirtualBus(tc.Interrupt)
		}
		port := d.vbus.Port()
		d.addCloser(port)
		return can.NewTransport(port, can.Config{Name: tc.Name, Interrupt: tc.Interrupt, Layout: tc.CANLayout(), Logger: d.logger}), nil
	}
	return nil, fmt.Errorf("unsupported kind %q", tc.Kind)
}

func (d *daemon) uartTransport(name string, stream uart.Stream) *uart.Transport {
	t := uart.NewTransport(stream, uart.Config{Name: name, Logger: d.logger, Capture: d.capture})
	d.watchResyncs(t)
	return t
}

// watchResyncs exports the decoder resync count of t. The count is read
// from the scrape goroutine while the runner decodes, so it goes through
// the runner when it is running.
func (d *daemon) watchResyncs(t *uart.Transport) prometheus.Collector {
	if d.cfg.Metrics == "" {
		return nil
	}
	c, err := metrics.RegisterResyncSource(t.Name(), func() uint64 {
		var n uint64
		err := d.runner.Exec(context.Background(), func(*node.Controller) {
			n = t.Stats().Resyncs
		})
		if err != nil {
			return t.Stats().Resyncs
		}
		return n
	})
	if err != nil {
		d.logger.Warn("resync metric not registered", "transport", t.Name(), "error", err)
		return nil
	}
	d.mu.Lock()
	d.resyncs = append(d.resyncs, c)
	d.mu.Unlock()
	return c
}

func (d *daemon) addCloser(c io.Closer) {
	d.mu.Lock()
	d.closers = append(d.closers, c)
	d.mu.Unlock()
}

// run drives the node until ctx is cancelled, then releases every resource.
func (d *daemon) run(ctx context.Context) error {
	defer d.close()

	go d.runner.Run(ctx)

	var wg sync.WaitGroup
	for _, gw := range d.gateways {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gw.Serve(ctx, func(s *uart.PumpStream, remote net.Addr) {
				d.acceptPeer(ctx, s, remote)
			})
			if err != nil {
				d.logger.Error("gateway stopped", "addr", gw.Addr().String(), "error", err)
			}
		}()
	}

	if d.cfg.Metrics != "" {
		srv := &http.Server{Addr: d.cfg.Metrics, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.logger.Error("metrics server failed", "addr", d.cfg.Metrics, "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		d.logger.Info("metrics listening", "addr", d.cfg.Metrics)
	}

	if d.cfg.MDNS.Enabled {
		if err := d.advertise(ctx); err != nil {
			d.logger.Warn("mdns advertisement failed", "error", err)
		}
	}

	<-ctx.Done()
	<-d.runner.Done()
	wg.Wait()
	return nil
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// acceptPeer attaches a gateway peer as its own transport and detaches it
// when the connection ends.
func (d *daemon) acceptPeer(ctx context.Context, s *uart.PumpStream, remote net.Addr) {
	name := "tcp:" + remote.String()
	t := uart.NewTransport(s, uart.Config{Name: name, Logger: d.logger, Capture: d.capture})

	var slot int
	var attachErr error
	err := d.runner.Exec(ctx, func(c *node.Controller) {
		slot, attachErr = c.AttachTransport(t)
	})
	if err == nil {
		err = attachErr
	}
	if err != nil {
		d.logger.Warn("peer rejected", "remote", remote.String(), "error", err)
		s.Close()
		return
	}
	d.logger.Info("peer attached", "remote", remote.String(), "slot", slot)
	resync := d.watchResyncs(t)

	go func() {
		select {
		case <-s.Done():
		case <-ctx.Done():
			s.Close()
			return
		}
		err := d.runner.Exec(ctx, func(c *node.Controller) {
			if cur, ok := c.Transport(slot); ok && cur == transport.Transport(t) {
				c.DetachTransport(slot)
			}
		})
		if err != nil {
			d.logger.Debug("peer detach skipped", "remote", remote.String(), "error", err)
		}
		if resync != nil {
			metrics.Unregister(resync)
			d.mu.Lock()
			for i, c := range d.resyncs {
				if c == resync {
					d.resyncs = append(d.resyncs[:i], d.resyncs[i+1:]...)
					break
				}
			}
			d.mu.Unlock()
		}
		s.Close()
		d.logger.Info("peer detached", "remote", remote.String(), "slot", slot)
	}()
}

// advertise announces the first gateway over mDNS.
func (d *daemon) advertise(ctx context.Context) error {
	addr, ok := d.gateways[0].Addr().(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("gateway address %s is not TCP", d.gateways[0].Addr())
	}

	var id uint16
	if err := d.runner.Exec(ctx, func(c *node.Controller) { id = c.NodeID() }); err != nil {
		return err
	}

	d.mdns = discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{
		Interface: d.cfg.MDNS.Interface,
		TTL:       d.cfg.MDNS.TTL,
		Logger:    d.logger,
	})
	info := &discovery.NodeInfo{NodeID: id, Port: uint16(addr.Port), Name: d.cfg.MDNS.Name}
	if err := d.mdns.Advertise(ctx, info); err != nil {
		return err
	}
	d.logger.Info("advertising gateway", "instance", discovery.InstanceName(info), "port", addr.Port)
	return nil
}

func (d *daemon) close() {
	for _, gw := range d.gateways {
		gw.Close()
	}
	if d.mdns != nil {
		d.mdns.Stop()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.resyncs {
		metrics.Unregister(c)
	}
	d.resyncs = nil
	if d.captureFile != nil {
		if n := d.captureFile.Failures(); n > 0 {
			d.logger.Warn("capture events lost", "file", d.cfg.Capture, "count", n)
		}
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			d.logger.Debug("close failed", "error", err)
		}
	}
	d.closers = nil
}

// connectGateway dials a remote gateway and attaches it as a transport
// before the runner starts.
func (d *daemon) connectGateway(ctx context.Context, addr string) error {
	stream, err := uart.DialTCP(ctx, addr)
	if err != nil {
		return err
	}
	d.addCloser(stream)
	slot, err := d.ctrl.AttachTransport(d.uartTransport("tcp:"+addr, stream))
	if err != nil {
		return err
	}
	d.logger.Info("gateway connected", "addr", addr, "slot", slot)
	return nil
}

// findGateway resolves the gateway of a node over mDNS.
func findGateway(ctx context.Context, iface string, id uint16) (string, error) {
	if !wire.ValidNodeID(id) {
		return "", fmt.Errorf("%w: 0x%X", discovery.ErrInvalidNodeID, id)
	}
	b := discovery.NewMDNSBrowser(discovery.BrowserConfig{Interface: iface})
	svc, err := b.Find(ctx, id)
	if err != nil {
		return "", err
	}
	return svc.Addr(), nil
}
