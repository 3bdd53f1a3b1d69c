package hankosign

import (
	"context"
	"time"
)

// Store describes persistence operations required by the engine.
type Store interface {
	Actions(ctx context.Context) ActionStore
	Policies(ctx context.Context) PolicyStore
	Signatories(ctx context.Context) SignatoryStore
	Signatures(ctx context.Context) SignatureStore
}

// ActionStore manages the action catalog.
type ActionStore interface {
	Create(ctx context.Context, a *Action) error
	// Find resolves an action by its natural key. ErrNotFound when absent.
	Find(ctx context.Context, key ActionKey) (*Action, error)
	// Update rewrites mutable fields (label, comment, flags) of an
	// existing action. The (verb, stage, scope) triple never changes.
	Update(ctx context.Context, a *Action) error
	// ApproveStages lists the stages of all APPROVE actions registered for
	// a scope: the configuration-driven required approval set.
	ApproveStages(ctx context.Context, scope string) ([]string, error)
}

// PolicyStore manages role grants.
type PolicyStore interface {
	Create(ctx context.Context, p *Policy) error
	// Find resolves the grant for (role, action). ErrNotFound when absent.
	Find(ctx context.Context, roleID, actionID string) (*Policy, error)
	Update(ctx context.Context, p *Policy) error
	Delete(ctx context.Context, id string) error
}

// SignatoryStore manages signing capabilities.
type SignatoryStore interface {
	Create(ctx context.Context, s *Signatory) error
	Get(ctx context.Context, id string) (*Signatory, error)
	// ResolveActor returns the current signatory for an authenticated
	// actor: the most recently updated active signatory reachable through
	// the actor's person and role assignments. ErrNotFound when none.
	ResolveActor(ctx context.Context, actorID string) (*Signatory, error)
	// Update rewrites mutable fields. BaseKey is write-once and must be
	// ignored by implementations.
	Update(ctx context.Context, s *Signatory) error
}

// SignatureStore is the append-only ledger. Rows are never updated or
// deleted.
type SignatureStore interface {
	// Insert appends a signature. Returns ErrAlreadyExists when the
	// non-repeatable uniqueness invariant (target, verb, stage) or the
	// request id uniqueness would be violated. Concurrent conflicting
	// inserts must resolve deterministically: exactly one succeeds.
	Insert(ctx context.Context, sig *Signature) error
	// ListByTarget returns all signatures for a target, oldest first.
	ListByTarget(ctx context.Context, targetType, targetID string) ([]*Signature, error)
	// FindRecent returns the newest signature by a signatory for
	// (target, verb, stage) at or after since. ErrNotFound when none.
	FindRecent(ctx context.Context, signatoryID, targetType, targetID string, verb Verb, stage string, since time.Time) (*Signature, error)
	// FindByRequestID resolves a signature by its client request id.
	FindByRequestID(ctx context.Context, requestID string) (*Signature, error)
}
