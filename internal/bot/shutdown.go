// internal/bot/shutdown.go
package bot

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// CloseFunc allows using a function as a Closer
type CloseFunc func() error

func (f CloseFunc) Close() error {
	return f()
}

// ShutdownHandler closes registered services in reverse registration order, so
// a service is closed before the things it depends on.
type ShutdownHandler struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex
	timeout  time.Duration
}

type namedService struct {
	name   string
	closer io.Closer
}

// NewShutdownHandler creates a new shutdown handler
func NewShutdownHandler(logger *zap.Logger, timeout time.Duration) *ShutdownHandler {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownHandler{
		logger:  logger.Named("shutdown"),
		timeout: timeout,
	}
}

// Add registers a service for shutdown
func (sh *ShutdownHandler) Add(name string, closer io.Closer) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.services = append(sh.services, namedService{name: name, closer: closer})
	sh.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

// AddFunc registers a shutdown function
func (sh *ShutdownHandler) AddFunc(name string, fn func() error) {
	sh.Add(name, CloseFunc(fn))
}

// AddContext registers a shutdown function that honours the shutdown deadline.
func (sh *ShutdownHandler) AddContext(name string, fn func(ctx context.Context) error) {
	sh.Add(name, ctxCloser{fn: fn, timeout: sh.timeout})
}

type ctxCloser struct {
	fn      func(ctx context.Context) error
	timeout time.Duration
}

func (c ctxCloser) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.fn(ctx)
}

// Shutdown closes all registered services LIFO within the handler timeout. A
// service that does not finish in time is abandoned and reported.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	sh.mu.Lock()
	services := make([]namedService, len(sh.services))
	copy(services, sh.services)
	sh.services = nil
	sh.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, sh.timeout)
	defer cancel()

	sh.logger.Info("Starting graceful shutdown", zap.Int("services", len(services)))

	var errs error
	for i := len(services) - 1; i >= 0; i-- {
		s := services[i]
		sh.logger.Info("Shutting down service", zap.String("service", s.name))

		done := make(chan error, 1)
		go func() { done <- s.closer.Close() }()

		select {
		case err := <-done:
			if err != nil {
				sh.logger.Error("Failed to shutdown service", zap.String("service", s.name), zap.Error(err))
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.name, err))
			}
		case <-ctx.Done():
			sh.logger.Error("Shutdown timeout for service", zap.String("service", s.name))
			errs = multierr.Append(errs, fmt.Errorf("%s: shutdown timeout", s.name))
		}
	}

	if errs != nil {
		sh.logger.Error("Shutdown completed with errors", zap.Int("errorCount", len(multierr.Errors(errs))))
		return errs
	}
	sh.logger.Info("Graceful shutdown completed successfully")
	return nil
}
