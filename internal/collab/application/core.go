// Package application implements the collaboration core: the single
// service mediating concurrent edits to a roster via sessions, resource
// locks, and conflict records (spec.md §4.7, §5, §6).
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/collab/domain"
)

var (
	// ErrSessionNotFound is returned when a session id has no live session.
	ErrSessionNotFound = errors.New("collab: session not found")
	// ErrConflictNotFound is returned when a conflict id has no pending record.
	ErrConflictNotFound = errors.New("collab: conflict not found")
)

// Config holds the timeouts spec.md §5/§6 name as collaboration-core
// defaults.
type Config struct {
	LockTimeout    time.Duration
	SessionTimeout time.Duration
	ConflictTTL    time.Duration
}

// DefaultConfig mirrors pkg/config.Config's own defaults for the
// collaboration core, for callers constructing a Core outside the CLI's
// config-driven wiring (tests, embedders).
func DefaultConfig() Config {
	return Config{
		LockTimeout:    300 * time.Second,
		SessionTimeout: 1800 * time.Second,
		ConflictTTL:    24 * time.Hour,
	}
}

// waiter is one entry in a lock key's FIFO wait queue. Notify is the host's
// callback, invoked once the waiter is granted the lock (or handed a nil
// lock if the grant attempt itself failed) — spec.md §5 makes notification
// "the host's responsibility via a callback registered per waiter".
type waiter struct {
	userID string
	notify func(*domain.Lock)
}

// Core is the collaboration core. All public methods hold mu for their
// full duration; private helpers assume it is already held. spec.md §5
// describes the reference implementation as guarded by a single reentrant
// mutex — Go has no reentrant mutex, so Core instead holds one ordinary
// sync.Mutex per public call and keeps all internal state manipulation in
// private, lock-free helpers, which is equivalent from any caller's point
// of view.
type Core struct {
	mu sync.Mutex

	sessions  map[uuid.UUID]*domain.Session
	conflicts map[uuid.UUID]*domain.Conflict
	queues    map[domain.LockKey][]*waiter
	lockKeys  map[uuid.UUID]domain.LockKey

	lockStore  domain.LockStore
	auditStore domain.AuditStore
	cfg        Config
	logger     *slog.Logger
}

// NewCore creates a Core service. auditStore may be nil, in which case
// lifecycle events are not durably recorded (equivalent to a
// persistence.MemoryAuditStore that nobody ever reads).
func NewCore(lockStore domain.LockStore, auditStore domain.AuditStore, cfg Config, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	return &Core{
		sessions:   make(map[uuid.UUID]*domain.Session),
		conflicts:  make(map[uuid.UUID]*domain.Conflict),
		queues:     make(map[domain.LockKey][]*waiter),
		lockKeys:   make(map[uuid.UUID]domain.LockKey),
		lockStore:  lockStore,
		auditStore: auditStore,
		cfg:        cfg,
		logger:     logger,
	}
}

func (c *Core) appendAudit(ctx context.Context, event domain.AuditEvent) {
	if c.auditStore == nil {
		return
	}
	event.ID = uuid.New()
	event.OccurredAt = time.Now()
	if err := c.auditStore.Append(ctx, event); err != nil {
		c.logger.Warn("collab: failed to append audit event", "event_type", event.Type, "error", err)
	}
}

// CreateSession starts tracking a new user session and returns its id.
func (c *Core) CreateSession(ctx context.Context, userID string, permissions []string, metadata map[string]string) (uuid.UUID, error) {
	if userID == "" {
		return uuid.Nil, fmt.Errorf("collab: user id is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	session := domain.NewSession(userID, permissions, metadata, now)
	c.sessions[session.ID()] = session

	c.appendAudit(ctx, domain.AuditEvent{Type: domain.AuditSessionCreated, SessionID: session.ID(), UserID: userID})
	return session.ID(), nil
}

// EndSession terminates a session, releasing every lock it holds and
// notifying the next FIFO waiter (if any) for each one. Returns false if
// the session does not exist.
func (c *Core) EndSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions[sessionID]
	if !ok {
		return false, nil
	}

	c.releaseSessionLocks(ctx, session)
	delete(c.sessions, sessionID)

	c.appendAudit(ctx, domain.AuditEvent{Type: domain.AuditSessionEnded, SessionID: sessionID, UserID: session.UserID()})
	return true, nil
}

// TouchSession refreshes a session's idle timer. Returns false if the
// session does not exist.
func (c *Core) TouchSession(sessionID uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions[sessionID]
	if !ok {
		return false, nil
	}
	session.Touch(time.Now())
	return true, nil
}

// AcquireLock attempts to grant userID a lock on (lockType, resourceID).
//
//   - If the resource is free, or already held by userID, a fresh or
//     extended lock is granted and its id returned.
//   - If another user holds it and wait is false, returns (nil, nil): a
//     refusal, not an error, matching spec.md §6's "lock_id | null".
//   - If another user holds it and wait is true, userID is FIFO-enqueued
//     for that lock key and a queued token (distinct from a real lock id)
//     is returned immediately; onGranted is invoked later, from whichever
//     goroutine releases the lock or the cleanup ticker that expires it,
//     once the wait is satisfied (or abandoned with a nil lock).
//
// A timeout of zero or less uses cfg.LockTimeout.
func (c *Core) AcquireLock(ctx context.Context, userID string, lockType domain.LockType, resourceID string, timeout time.Duration, metadata map[string]string, wait bool, onGranted func(*domain.Lock)) (*uuid.UUID, error) {
	if timeout <= 0 {
		timeout = c.cfg.LockTimeout
	}
	key := domain.LockKey{Type: lockType, ResourceID: resourceID}

	c.mu.Lock()
	defer c.mu.Unlock()

	lock, err := c.lockStore.TryAcquire(ctx, key, userID, timeout, metadata)
	switch {
	case err == nil:
		c.trackLockForUser(userID, lock)
		c.lockKeys[lock.ID()] = key
		c.appendAudit(ctx, domain.AuditEvent{Type: domain.AuditLockAcquired, UserID: userID, LockType: lockType, ResourceID: resourceID})
		id := lock.ID()
		return &id, nil
	case errors.Is(err, domain.ErrLockHeld):
		if !wait {
			return nil, nil
		}
		token := uuid.New()
		c.queues[key] = append(c.queues[key], &waiter{userID: userID, notify: onGranted})
		return &token, nil
	default:
		c.logger.Error("collab: lock store failure on acquire", "lock_type", lockType, "resource_id", resourceID, "error", err)
		return nil, nil
	}
}

// trackLockForUser associates a freshly granted lock with the most
// recently active session belonging to userID, so ending that session
// releases the lock. A user with no active session can still hold locks;
// they are simply never auto-released by session expiry.
func (c *Core) trackLockForUser(userID string, lock *domain.Lock) {
	var latest *domain.Session
	for _, s := range c.sessions {
		if s.UserID() != userID {
			continue
		}
		if latest == nil || s.LastActivityAt().After(latest.LastActivityAt()) {
			latest = s
		}
	}
	if latest != nil {
		latest.TrackLock(lock.ID())
	}
}

// ReleaseLock releases a lock owned by userID, then grants it to the next
// FIFO waiter for that key, if any. Returns false if lockID is unknown or
// not owned by userID.
func (c *Core) ReleaseLock(ctx context.Context, lockID uuid.UUID, userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, err := c.lockStore.Release(ctx, lockID, userID)
	if err != nil {
		c.logger.Error("collab: lock store failure on release", "lock_id", lockID, "error", err)
		return false, nil
	}
	if !ok {
		return false, nil
	}

	for _, session := range c.sessions {
		session.UntrackLock(lockID)
	}
	c.appendAudit(ctx, domain.AuditEvent{Type: domain.AuditLockReleased, UserID: userID})

	if key, tracked := c.lockKeys[lockID]; tracked {
		delete(c.lockKeys, lockID)
		c.grantNextWaiter(ctx, key)
	}
	return true, nil
}

// CheckLock returns the current lock on (lockType, resourceID), or nil if
// the resource is free.
func (c *Core) CheckLock(ctx context.Context, lockType domain.LockType, resourceID string) (*domain.Lock, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := domain.LockKey{Type: lockType, ResourceID: resourceID}
	lock, err := c.lockStore.Get(ctx, key)
	if err != nil {
		c.logger.Error("collab: lock store failure on check", "lock_type", lockType, "resource_id", resourceID, "error", err)
		return nil, nil
	}
	return lock, nil
}

// DetectConflict reports a Conflict if (opType, resourceID) is currently
// locked by a user other than userID. opType doubles as the lock type key,
// so a caller about to apply proposedChange to a shift edit checks for
// conflict the same way it would check the lock: by lock type + resource.
func (c *Core) DetectConflict(ctx context.Context, opType string, resourceID string, userID string, proposedChange map[string]any) (*domain.Conflict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := domain.LockKey{Type: domain.LockType(opType), ResourceID: resourceID}
	held, err := c.lockStore.Get(ctx, key)
	if err != nil {
		c.logger.Error("collab: lock store failure on conflict detection", "op_type", opType, "resource_id", resourceID, "error", err)
		return nil, nil
	}
	if held == nil || held.IsOwnedBy(userID) {
		return nil, nil
	}

	conflict := domain.NewConflict(opType, resourceID, userID, held.OwnerUserID(), proposedChange, time.Now())
	c.conflicts[conflict.ID()] = conflict
	c.appendAudit(ctx, domain.AuditEvent{Type: domain.AuditConflictDetected, UserID: userID, ConflictID: conflict.ID(), ResourceID: resourceID})
	return conflict, nil
}

// ResolveConflict applies strategy to a pending conflict. Returns false if
// the conflict does not exist or was already resolved (resolution is
// idempotent, per domain.Conflict.Resolve).
func (c *Core) ResolveConflict(ctx context.Context, conflictID uuid.UUID, strategy domain.ConflictResolutionStrategy, data map[string]any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conflict, ok := c.conflicts[conflictID]
	if !ok {
		return false, nil
	}

	resolved := conflict.Resolve(strategy, data, time.Now())
	if resolved {
		c.appendAudit(ctx, domain.AuditEvent{Type: domain.AuditConflictResolved, ConflictID: conflictID, Strategy: strategy})
	}
	return resolved, nil
}

// Status is the snapshot spec.md §6's status() operation returns.
type Status struct {
	ActiveSessions   int
	ActiveLocks      int
	PendingConflicts int
	UsersOnline      int
	QueueDepths      map[string]int
}

// Status summarizes current collaboration-core load.
func (c *Core) Status(ctx context.Context) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	users := make(map[string]struct{}, len(c.sessions))
	for _, s := range c.sessions {
		users[s.UserID()] = struct{}{}
	}

	pending := 0
	for _, conflict := range c.conflicts {
		if !conflict.IsResolved() {
			pending++
		}
	}

	activeLocks, err := c.lockStore.Count(ctx)
	if err != nil {
		c.logger.Error("collab: lock store failure on status count", "error", err)
		activeLocks = 0
	}

	depths := make(map[string]int, len(c.queues))
	for key, q := range c.queues {
		depths[fmt.Sprintf("%s:%s", key.Type, key.ResourceID)] = len(q)
	}

	return Status{
		ActiveSessions:   len(c.sessions),
		ActiveLocks:      activeLocks,
		PendingConflicts: pending,
		UsersOnline:      len(users),
		QueueDepths:      depths,
	}
}

// releaseSessionLocks releases every lock a session tracked and grants each
// one to its key's next FIFO waiter, if any. Callers must hold mu.
func (c *Core) releaseSessionLocks(ctx context.Context, session *domain.Session) {
	for _, lockID := range session.LockIDs() {
		ok, err := c.lockStore.Release(ctx, lockID, session.UserID())
		if err != nil {
			c.logger.Error("collab: lock store failure releasing session lock", "lock_id", lockID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		c.appendAudit(ctx, domain.AuditEvent{Type: domain.AuditLockReleased, UserID: session.UserID()})

		if key, tracked := c.lockKeys[lockID]; tracked {
			delete(c.lockKeys, lockID)
			c.grantNextWaiter(ctx, key)
		}
	}
}

// grantNextWaiter pops a lock key's FIFO queue and attempts to acquire the
// lock on the waiter's behalf, notifying them with the outcome. Callers
// must hold mu. Used by the cleanup ticker after a sweep frees a key.
func (c *Core) grantNextWaiter(ctx context.Context, key domain.LockKey) {
	queue := c.queues[key]
	if len(queue) == 0 {
		return
	}
	next := queue[0]
	c.queues[key] = queue[1:]
	if len(c.queues[key]) == 0 {
		delete(c.queues, key)
	}

	lock, err := c.lockStore.TryAcquire(ctx, key, next.userID, c.cfg.LockTimeout, nil)
	if err != nil {
		if next.notify != nil {
			next.notify(nil)
		}
		return
	}
	c.trackLockForUser(next.userID, lock)
	c.lockKeys[lock.ID()] = key
	c.appendAudit(ctx, domain.AuditEvent{Type: domain.AuditLockAcquired, UserID: next.userID, LockType: key.Type, ResourceID: key.ResourceID})
	if next.notify != nil {
		next.notify(lock)
	}
}
