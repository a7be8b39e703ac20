package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rosterforge/rosterd/internal/collab/domain"
)

// CleanupTickerConfig configures the background sweep.
type CleanupTickerConfig struct {
	Interval       time.Duration
	SessionTimeout time.Duration
	ConflictTTL    time.Duration
}

// DefaultCleanupTickerConfig mirrors pkg/config.Config's defaults.
func DefaultCleanupTickerConfig() CleanupTickerConfig {
	return CleanupTickerConfig{
		Interval:       60 * time.Second,
		SessionTimeout: 1800 * time.Second,
		ConflictTTL:    24 * time.Hour,
	}
}

// CleanupTicker periodically purges expired locks, expires idle sessions,
// and garbage-collects resolved conflicts past their retention window,
// grounded on the teacher's outbox.Processor poll loop (time.Ticker plus a
// select over ticker/stop channel/ctx.Done()).
type CleanupTicker struct {
	core   *Core
	config CleanupTickerConfig
	logger *slog.Logger

	wg       sync.WaitGroup
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex
}

// NewCleanupTicker creates a CleanupTicker over core.
func NewCleanupTicker(core *Core, config CleanupTickerConfig, logger *slog.Logger) *CleanupTicker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupTicker{
		core:     core,
		config:   config,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop in a goroutine.
func (t *CleanupTicker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.stopChan = make(chan struct{})
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(ctx)

	t.logger.Info("collab cleanup ticker started", "interval", t.config.Interval)
}

// Stop gracefully stops the sweep loop.
func (t *CleanupTicker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopChan)
	t.mu.Unlock()

	t.wg.Wait()
	t.logger.Info("collab cleanup ticker stopped")
}

// IsRunning reports whether the sweep loop is active.
func (t *CleanupTicker) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *CleanupTicker) run(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopChan:
			return
		case <-ticker.C:
			t.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single cleanup pass synchronously (useful for testing
// and for a one-shot CLI invocation).
func (t *CleanupTicker) SweepOnce(ctx context.Context) {
	now := time.Now()

	t.core.mu.Lock()
	expired, err := t.core.lockStore.Sweep(ctx, now)
	if err != nil {
		t.logger.Error("collab cleanup: lock sweep failed", "error", err)
		expired = nil
	}
	for _, lock := range expired {
		for _, session := range t.core.sessions {
			session.UntrackLock(lock.ID())
		}
		delete(t.core.lockKeys, lock.ID())
		t.core.grantNextWaiter(ctx, lock.Key())
	}

	var expiredSessions []*domain.Session
	for id, session := range t.core.sessions {
		if session.IsExpired(now, t.config.SessionTimeout) {
			expiredSessions = append(expiredSessions, session)
			delete(t.core.sessions, id)
		}
	}
	for _, session := range expiredSessions {
		t.core.releaseSessionLocks(ctx, session)
		t.core.appendAudit(ctx, domain.AuditEvent{Type: domain.AuditSessionEnded, SessionID: session.ID(), UserID: session.UserID()})
	}

	for id, conflict := range t.core.conflicts {
		if conflict.IsDueForGC(now, t.config.ConflictTTL) {
			delete(t.core.conflicts, id)
		}
	}
	t.core.mu.Unlock()

	if len(expired) > 0 || len(expiredSessions) > 0 {
		t.logger.Info("collab cleanup pass complete",
			"expired_locks", len(expired),
			"expired_sessions", len(expiredSessions),
		)
	}
}
