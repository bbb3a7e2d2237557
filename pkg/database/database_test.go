package database_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/JaimeStill/adherence/pkg/database"
	"github.com/JaimeStill/adherence/pkg/lifecycle"
)

func unreachable() *database.Config {
	return &database.Config{
		Host:            "127.0.0.1",
		Port:            1,
		Name:            "adherence",
		User:            "adherence",
		SSLMode:         "disable",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: "15m",
		ConnTimeout:     "200ms",
	}
}

func TestNewSetsPoolParams(t *testing.T) {
	sys, err := database.New(unreachable(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	conn := sys.Connection()
	defer conn.Close()

	if got := conn.Stats().MaxOpenConnections; got != 4 {
		t.Errorf("MaxOpenConnections = %d, want 4", got)
	}
}

func TestHealthBeforeStart(t *testing.T) {
	sys, err := database.New(unreachable(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer sys.Connection().Close()

	if err := sys.Health(context.Background()); !errors.Is(err, database.ErrNotReady) {
		t.Errorf("Health() = %v, want ErrNotReady", err)
	}
}

func TestStartUnreachableStaysNotReady(t *testing.T) {
	sys, err := database.New(unreachable(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	lc.WaitForStartup()

	if err := sys.Health(context.Background()); !errors.Is(err, database.ErrNotReady) {
		t.Errorf("Health() = %v, want ErrNotReady", err)
	}

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestStartCancelledDuringRetry(t *testing.T) {
	cfg := unreachable()
	cfg.ConnectRetries = 100

	sys, err := database.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		lc.WaitForStartup()
		close(done)
	}()

	time.Sleep(300 * time.Millisecond)
	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("startup did not stop retrying after shutdown")
	}
}
