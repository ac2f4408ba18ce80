// cmd/migrator/shutdown.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// closeFunc allows using a function as an io.Closer.
type closeFunc func() error

func (f closeFunc) Close() error {
	return f()
}

type namedCloser struct {
	name   string
	closer io.Closer
}

// shutdown closes registered resources in reverse order of registration,
// giving each at most timeout.
type shutdown struct {
	mu      sync.Mutex
	logger  *zap.Logger
	timeout time.Duration
	items   []namedCloser
}

func newShutdown(logger *zap.Logger, timeout time.Duration) *shutdown {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &shutdown{logger: logger, timeout: timeout}
}

func (s *shutdown) add(name string, c io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, namedCloser{name: name, closer: c})
}

func (s *shutdown) addFunc(name string, fn func() error) {
	s.add(name, closeFunc(fn))
}

// run closes everything and joins the failures.
func (s *shutdown) run(ctx context.Context) error {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.mu.Unlock()

	var errs []error
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		done := make(chan error, 1)
		go func() { done <- item.closer.Close() }()

		timer := time.NewTimer(s.timeout)
		select {
		case err := <-done:
			if err != nil {
				s.logger.Error("Failed to close", zap.String("resource", item.name), zap.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", item.name, err))
			}
		case <-timer.C:
			s.logger.Error("Close timed out", zap.String("resource", item.name))
			errs = append(errs, fmt.Errorf("%s: close timeout", item.name))
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("%s: %w", item.name, ctx.Err()))
		}
		timer.Stop()
	}
	return errors.Join(errs...)
}
