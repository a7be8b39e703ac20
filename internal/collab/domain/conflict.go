package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConflictResolutionStrategy is the host-chosen policy for resolving a
// detected conflict, per spec.md §4.7.
type ConflictResolutionStrategy string

const (
	StrategyLastWriterWins    ConflictResolutionStrategy = "last_writer_wins"
	StrategyFirstWriterWins   ConflictResolutionStrategy = "first_writer_wins"
	StrategyManual            ConflictResolutionStrategy = "manual"
	StrategyAutomaticMerge    ConflictResolutionStrategy = "automatic_merge"
)

// Conflict records that userID attempted an operation against a resource
// already held by another user, grounded on the teacher's
// scheduling/domain.Conflict shape but generalized from calendar-specific
// overlap detection to the opaque (op_type, resource_id) pairs spec.md
// §6's detect_conflict describes.
type Conflict struct {
	id             uuid.UUID
	opType         string
	resourceID     string
	userID         string
	holderUserID   string
	proposedChange map[string]any
	createdAt      time.Time
	resolved       bool
	resolution     ConflictResolutionStrategy
	resolutionData map[string]any
	resolvedAt     time.Time
}

// NewConflict creates an unresolved conflict record.
func NewConflict(opType, resourceID, userID, holderUserID string, proposedChange map[string]any, now time.Time) *Conflict {
	return &Conflict{
		id:             uuid.New(),
		opType:         opType,
		resourceID:     resourceID,
		userID:         userID,
		holderUserID:   holderUserID,
		proposedChange: proposedChange,
		createdAt:      now,
	}
}

func (c *Conflict) ID() uuid.UUID                    { return c.id }
func (c *Conflict) OpType() string                   { return c.opType }
func (c *Conflict) ResourceID() string                { return c.resourceID }
func (c *Conflict) UserID() string                    { return c.userID }
func (c *Conflict) HolderUserID() string              { return c.holderUserID }
func (c *Conflict) ProposedChange() map[string]any    { return c.proposedChange }
func (c *Conflict) CreatedAt() time.Time              { return c.createdAt }
func (c *Conflict) IsResolved() bool                  { return c.resolved }
func (c *Conflict) Resolution() ConflictResolutionStrategy { return c.resolution }
func (c *Conflict) ResolutionData() map[string]any    { return c.resolutionData }
func (c *Conflict) ResolvedAt() time.Time             { return c.resolvedAt }

// Resolve marks the conflict resolved under strategy, carrying whatever
// host-supplied data informed the decision (e.g. the merged payload for
// automatic_merge). Resolving an already-resolved conflict is a no-op,
// mirroring the idempotent "returns false" contract one level up in Core.
func (c *Conflict) Resolve(strategy ConflictResolutionStrategy, data map[string]any, now time.Time) bool {
	if c.resolved {
		return false
	}
	c.resolved = true
	c.resolution = strategy
	c.resolutionData = data
	c.resolvedAt = now
	return true
}

// IsDueForGC reports whether a resolved conflict is older than retention
// and should be purged by the cleanup tick (spec.md §4.7: 24h retention).
func (c *Conflict) IsDueForGC(now time.Time, retention time.Duration) bool {
	return c.resolved && now.Sub(c.resolvedAt) >= retention
}
