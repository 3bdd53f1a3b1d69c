package hankosign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hankosign.org/internal/audit"
	"hankosign.org/internal/ids"
	"hankosign.org/internal/obs"
)

const defaultDedupeWindow = 10 * time.Second

// Service is the authorization gateway: the only legitimate write path
// into the signature ledger, plus the read-only eligibility check and the
// state derivation entry points.
type Service struct {
	store        Store
	secret       []byte
	now          func() time.Time
	dedupeWindow time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithSecret sets the process-wide fingerprint secret.
func WithSecret(secret string) ServiceOption {
	return func(s *Service) error {
		if secret == "" {
			return errors.New("hankosign: fingerprint secret is empty")
		}
		s.secret = []byte(secret)
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithDedupeWindow overrides the soft dedupe window for repeatable actions.
func WithDedupeWindow(d time.Duration) ServiceOption {
	return func(s *Service) error {
		if d > 0 {
			s.dedupeWindow = d
		}
		return nil
	}
}

// NewService constructs the gateway.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("hankosign: store is required")
	}
	svc := &Service{
		store:        store,
		secret:       []byte("hankosign-dev-secret"),
		now:          time.Now,
		dedupeWindow: defaultDedupeWindow,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// ResolveAction resolves a typed action key to its catalog row. Returns
// nil when no such action is registered; callers treat nil as "unknown
// action" and deny.
func (s *Service) ResolveAction(ctx context.Context, key ActionKey) (*Action, error) {
	a, err := s.store.Actions(ctx).Find(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ResolveSignatory resolves the current signatory for an actor, or nil.
func (s *Service) ResolveSignatory(ctx context.Context, actorID string) (*Signatory, error) {
	if actorID == "" {
		return nil, nil
	}
	sig, err := s.store.Signatories(ctx).ResolveActor(ctx, actorID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sig, nil
}

// CanAct checks whether an actor may perform an action on a target. It
// performs no writes and never turns a denial into an error: the returned
// Decision carries the reason, so UI code can render disabled-state
// explanations without error handling. The error return is reserved for
// store failures.
func (s *Service) CanAct(ctx context.Context, actorID string, key ActionKey, target Target) (Decision, error) {
	action, err := s.ResolveAction(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if action == nil {
		return Decision{Reason: ReasonUnknownAction}, nil
	}

	signatory, err := s.ResolveSignatory(ctx, actorID)
	if err != nil {
		return Decision{}, err
	}
	if signatory == nil {
		return Decision{Reason: ReasonNoSignatory, Action: action}, nil
	}
	if !signatory.Verified {
		return Decision{Reason: ReasonNotVerified, Signatory: signatory, Action: action}, nil
	}

	policy, err := s.store.Policies(ctx).Find(ctx, signatory.RoleID, action.ID)
	if errors.Is(err, ErrNotFound) {
		return Decision{Reason: ReasonNotAuthorized, Signatory: signatory, Action: action}, nil
	}
	if err != nil {
		return Decision{}, err
	}

	if policy.DistinctSigner {
		// Separation of duty: deny when this signatory already holds any
		// signature in the action's scope on this target.
		prior, err := s.store.Signatures(ctx).ListByTarget(ctx, target.TypeKey(), target.PrimaryKey())
		if err != nil {
			return Decision{}, err
		}
		for _, p := range prior {
			if p.Scope == action.Scope && p.SignatoryID == signatory.ID {
				return Decision{Reason: ReasonDistinctSigner, Signatory: signatory, Action: action, Policy: policy}, nil
			}
		}
	}

	return Decision{OK: true, Signatory: signatory, Action: action, Policy: policy}, nil
}

// RecordSignature performs an action: authorizes, dedupes, appends to the
// ledger and returns the created (or deduped) signature. Every
// authorization failure surfaces as a DeniedError carrying the reason.
func (s *Service) RecordSignature(ctx context.Context, actorID string, key ActionKey, target Target, note string, payload map[string]any) (*Signature, error) {
	return s.record(ctx, actorID, key, target, note, payload, "")
}

// SignOnce is the idempotent request-id variant: the same request id
// returns the same signature without re-invoking authorization, guarding
// UI retries independent of the dedupe window.
func (s *Service) SignOnce(ctx context.Context, actorID string, key ActionKey, target Target, requestID, note string) (*Signature, error) {
	if requestID == "" {
		return nil, fmt.Errorf("%w: request id is required", ErrInvalidInput)
	}
	existing, err := s.store.Signatures(ctx).FindByRequestID(ctx, requestID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.record(ctx, actorID, key, target, note, nil, requestID)
}

func (s *Service) record(ctx context.Context, actorID string, key ActionKey, target Target, note string, payload map[string]any, requestID string) (*Signature, error) {
	d, err := s.CanAct(ctx, actorID, key, target)
	if err != nil {
		return nil, err
	}
	if !d.OK {
		return nil, Denied(d.Reason)
	}

	now := s.now().UTC()
	store := s.store.Signatures(ctx)

	if d.Policy.Repeatable {
		// Soft dedupe: an identical signing inside the window is treated
		// as a duplicate submit and returns the existing row.
		prev, err := store.FindRecent(ctx, d.Signatory.ID, target.TypeKey(), target.PrimaryKey(), d.Action.Verb, d.Action.Stage, now.Add(-s.dedupeWindow))
		if err == nil {
			return prev, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	sig := &Signature{
		ID:          ids.New(),
		SignatoryID: d.Signatory.ID,
		TargetType:  target.TypeKey(),
		TargetID:    target.PrimaryKey(),
		ActionID:    d.Action.ID,
		Verb:        d.Action.Verb,
		Stage:       d.Action.Stage,
		Scope:       d.Action.Scope,
		At:          now,
		Note:        note,
		Payload:     payload,
		Repeatable:  d.Policy.Repeatable,
		RequestID:   requestID,
		Fingerprint: fingerprint(s.secret, d.Signatory.BaseKey, d.Action.Verb, d.Action.Stage, target.TypeKey(), target.PrimaryKey()),
	}
	if err := store.Insert(ctx, sig); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			if requestID != "" {
				// Lost a request-id race: the winner's row is ours.
				if existing, ferr := store.FindByRequestID(ctx, requestID); ferr == nil {
					return existing, nil
				}
			}
			return nil, Denied(ReasonAlreadyPerformed)
		}
		return nil, err
	}

	obs.SignatureRecorded(string(sig.Verb), sig.Stage, sig.Scope)
	_ = audit.LogEvent(ctx, "signature.recorded", map[string]any{
		"signature_id": sig.ID,
		"action":       d.Action.Code(),
		"target_type":  sig.TargetType,
		"target_id":    sig.TargetID,
		"signatory_id": sig.SignatoryID,
	})
	return sig, nil
}
