// Package cleanup provides the background retention loop.
package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// SessionPruner is the subset of the character service the janitor needs.
type SessionPruner interface {
	PruneIdleSessions(maxIdle time.Duration) int
}

// Service periodically prunes idle embodiment sessions. Worlds are never
// expired automatically; deleting a world is always an explicit call.
type Service struct {
	pruner   SessionPruner
	maxIdle  time.Duration
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a cleanup service.
func NewService(pruner SessionPruner, maxIdle, interval time.Duration) *Service {
	return &Service{pruner: pruner, maxIdle: maxIdle, interval: interval}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"session_max_idle", s.maxIdle,
		"interval", s.interval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Service) runOnce() {
	if count := s.pruner.PruneIdleSessions(s.maxIdle); count > 0 {
		slog.Info("Retention: pruned idle embodiment sessions", "count", count)
	}
}
