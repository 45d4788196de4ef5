package tor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestNewEmbeddedTor(t *testing.T) {
	t.Parallel()

	t.Run("creates with default timeout", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor()
		if embedded.startupTimeout != DefaultStartupTimeout {
			t.Errorf("expected default timeout %v, got %v", DefaultStartupTimeout, embedded.startupTimeout)
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor(
			WithStartupTimeout(5*time.Minute),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		)
		if embedded.startupTimeout != 5*time.Minute {
			t.Errorf("expected timeout 5m, got %v", embedded.startupTimeout)
		}
	})
}

func TestEmbeddedTorBeforeStart(t *testing.T) {
	t.Parallel()

	embedded := NewEmbeddedTor()

	if embedded.IsRunning() {
		t.Error("expected IsRunning to be false before start")
	}
	if embedded.SocksAddr() != "" || embedded.ControlAddr() != "" {
		t.Error("expected empty addresses before start")
	}
	if _, err := embedded.ProxyURL(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
	if err := embedded.Stop(); err != nil {
		t.Errorf("expected no error stopping unstarted instance, got %v", err)
	}
}

func TestEmbeddedTorStartCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	embedded := NewEmbeddedTor(
		WithStartupTimeout(time.Second),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	err := embedded.Start(ctx)
	if err == nil {
		// A tor binary happened to start within the cancelled context.
		_ = embedded.Stop()
		t.Skip("tor started before the cancellation was observed")
	}
	if embedded.IsRunning() {
		t.Error("daemon must not be recorded after a failed start")
	}
}

func TestSocksURL(t *testing.T) {
	t.Parallel()

	if got := socksURL("127.0.0.1:9050"); got != "socks5h://127.0.0.1:9050" {
		t.Errorf("unexpected url %q", got)
	}
}
