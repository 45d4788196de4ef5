package tor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/tornago"
)

// DefaultStartupTimeout bounds the bootstrap of the daemon.
const DefaultStartupTimeout = 3 * time.Minute

// EmbeddedTor manages a Tor daemon started by this process.
//
// Bootstrapping takes one to three minutes: the daemon downloads the
// directory information, builds circuits and opens its SOCKS listener.
type EmbeddedTor struct {
	startupTimeout time.Duration
	logger         *slog.Logger

	mu          sync.Mutex
	process     *tornago.TorProcess
	socksAddr   string
	controlAddr string
}

// EmbeddedTorOption configures an EmbeddedTor.
type EmbeddedTorOption func(*EmbeddedTor)

// WithStartupTimeout sets the bootstrap timeout.
func WithStartupTimeout(timeout time.Duration) EmbeddedTorOption {
	return func(e *EmbeddedTor) {
		e.startupTimeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EmbeddedTorOption {
	return func(e *EmbeddedTor) {
		e.logger = logger
	}
}

// NewEmbeddedTor returns a stopped daemon manager.
func NewEmbeddedTor(opts ...EmbeddedTorOption) *EmbeddedTor {
	e := &EmbeddedTor{
		startupTimeout: DefaultStartupTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "tor")
	return e
}

// Start launches the daemon on OS-assigned ports and blocks until it has
// bootstrapped, the startup timeout expires, or ctx is done.
func (e *EmbeddedTor) Start(ctx context.Context) error {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(e.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	e.logger.Info("starting embedded Tor daemon", "timeout", e.startupTimeout)

	type started struct {
		process *tornago.TorProcess
		err     error
	}
	done := make(chan started, 1)
	go func() {
		process, err := tornago.StartTorDaemon(launchCfg)
		done <- started{process: process, err: err}
	}()

	var result started
	select {
	case <-ctx.Done():
		// Stop the daemon once it comes up.
		go func() {
			if r := <-done; r.err == nil {
				_ = r.process.Stop() //nolint:errcheck // best effort cleanup
			}
		}()
		return ctx.Err()
	case result = <-done:
	}
	if result.err != nil {
		return fmt.Errorf("failed to start embedded Tor daemon: %w", result.err)
	}

	e.mu.Lock()
	e.process = result.process
	e.socksAddr = result.process.SocksAddr()
	e.controlAddr = result.process.ControlAddr()
	e.mu.Unlock()

	e.logger.Info("embedded Tor daemon ready", "socks", e.socksAddr)
	return nil
}

// Stop shuts the daemon down. It is safe to call on a stopped instance.
func (e *EmbeddedTor) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.process == nil {
		return nil
	}
	err := e.process.Stop()
	e.process = nil
	e.socksAddr = ""
	e.controlAddr = ""
	return err
}

// IsRunning reports whether the daemon is running.
func (e *EmbeddedTor) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.process != nil
}

// SocksAddr returns the "host:port" of the SOCKS listener, or "".
func (e *EmbeddedTor) SocksAddr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.socksAddr
}

// ControlAddr returns the "host:port" of the control port, or "".
func (e *EmbeddedTor) ControlAddr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.controlAddr
}

// ProxyURL returns the proxy URL for the scraper.
func (e *EmbeddedTor) ProxyURL() (string, error) {
	addr := e.SocksAddr()
	if addr == "" {
		return "", ErrNotRunning
	}
	return socksURL(addr), nil
}

// socksURL returns a socks5h URL so that host names are resolved by Tor.
func socksURL(addr string) string {
	return "socks5h://" + addr
}
