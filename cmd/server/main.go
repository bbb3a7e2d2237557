// Command server runs the adherence HTTP service: the patient and medication
// directory, session persistence, and the interactive dialogue API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/adherence/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed: ", err)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		log.Fatal("server init failed: ", err)
	}

	logger := srv.infra.Logger
	logger.Info(
		"adherence starting",
		"version", cfg.Version,
		"addr", cfg.Server.Addr(),
		"env", cfg.Env(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := 0
	if err := srv.Run(ctx, cfg.ShutdownTimeoutDuration()); err != nil {
		logger.Error("adherence stopped with error", "error", err)
		code = 1
	} else {
		logger.Info("adherence stopped")
	}

	srv.Close()
	os.Exit(code)
}
