// Package daemon runs an HTTP service until its context is cancelled.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alucardeht/logia/internal/logger"
)

var log = logger.ForComponent("daemon")

const DefaultShutdownTimeout = 10 * time.Second

type Options struct {
	Name            string
	Listen          string
	Handler         http.Handler
	ShutdownTimeout time.Duration
	// PIDFile is optional. When set, a second instance using the same file
	// refuses to start while the first is alive.
	PIDFile string
}

type Daemon struct {
	opts      Options
	server    *http.Server
	pidFile   *PIDFile
	startTime time.Time

	mu   sync.Mutex
	addr net.Addr
}

func New(opts Options) *Daemon {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	d := &Daemon{
		opts: opts,
		server: &http.Server{
			Handler:           opts.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	if opts.PIDFile != "" {
		d.pidFile = NewPIDFile(opts.PIDFile)
	}
	return d
}

// Run listens on the configured address and serves until ctx is done, then
// drains in-flight requests within the shutdown timeout.
func (d *Daemon) Run(ctx context.Context) error {
	if d.pidFile != nil {
		if err := d.pidFile.Write(); err != nil {
			return err
		}
		defer d.pidFile.Remove()
	}

	ln, err := net.Listen("tcp", d.opts.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.opts.Listen, err)
	}

	d.mu.Lock()
	d.addr = ln.Addr()
	d.startTime = time.Now()
	d.mu.Unlock()

	log.Info("listening", "service", d.opts.Name, "addr", ln.Addr().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %s: %w", d.opts.Name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.ShutdownTimeout)
		defer cancel()

		log.Info("shutting down", "service", d.opts.Name, "uptime", d.Uptime().Round(time.Second))
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown %s: %w", d.opts.Name, err)
		}
		return nil
	})
	return g.Wait()
}

// Addr is the bound address, or nil before Run has started listening.
func (d *Daemon) Addr() net.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addr
}

func (d *Daemon) Uptime() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startTime.IsZero() {
		return 0
	}
	return time.Since(d.startTime)
}
