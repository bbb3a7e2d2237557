package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JaimeStill/adherence/internal/config"
	"github.com/JaimeStill/adherence/internal/infrastructure"
)

// Server owns the infrastructure, the mounted modules, and the HTTP listener
// for one process.
type Server struct {
	infra *infrastructure.Infrastructure
	http  *httpServer
}

// NewServer assembles infrastructure and modules. Nothing listens or connects
// until Run.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, errors.Join(err, infra.Close())
	}

	router := buildRouter(infra)
	modules.Mount(router)

	return &Server{
		infra: infra,
		http:  newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Run starts every subsystem and the listener, blocks until ctx is done, then
// shuts the lifecycle down within timeout.
func (s *Server) Run(ctx context.Context, timeout time.Duration) error {
	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		s.infra.Lifecycle.Shutdown(timeout)
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	<-ctx.Done()
	s.infra.Logger.Info("initiating shutdown", "timeout", timeout)
	return s.infra.Lifecycle.Shutdown(timeout)
}

// Close releases the log output. Call once Run has returned.
func (s *Server) Close() error {
	return s.infra.Close()
}
