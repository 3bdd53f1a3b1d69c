package hankosign

import (
	"context"
	"sort"
	"sync"
	"time"

	"hankosign.org/internal/ids"
)

// Memory implements Store with in-process concurrency safety. Used in
// tests and when the API runs without a database DSN.
type Memory struct {
	mu          sync.RWMutex
	actions     map[string]*Action   // id -> action
	policies    map[string]*Policy   // id -> policy
	signatories map[string]*Signatory
	actors      map[string][]string // actor id -> signatory ids
	sigs        []*Signature
	byRequest   map[string]*Signature
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		actions:     make(map[string]*Action),
		policies:    make(map[string]*Policy),
		signatories: make(map[string]*Signatory),
		actors:      make(map[string][]string),
		byRequest:   make(map[string]*Signature),
	}
}

func (m *Memory) Actions(context.Context) ActionStore         { return (*memActions)(m) }
func (m *Memory) Policies(context.Context) PolicyStore        { return (*memPolicies)(m) }
func (m *Memory) Signatories(context.Context) SignatoryStore  { return (*memSignatories)(m) }
func (m *Memory) Signatures(context.Context) SignatureStore   { return (*memSignatures)(m) }

// LinkActor binds an authenticated actor id to a signatory, standing in
// for the person -> role assignment chain the Postgres store resolves by
// join.
func (m *Memory) LinkActor(actorID, signatoryID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actors[actorID] = append(m.actors[actorID], signatoryID)
}

// Actions -------------------------------------------------------------------

type memActions Memory

func (m *memActions) Create(ctx context.Context, a *Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = ids.New()
	}
	for _, existing := range m.actions {
		if existing.Key() == a.Key() {
			return ErrAlreadyExists
		}
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	m.actions[a.ID] = &cp
	return nil
}

func (m *memActions) Find(ctx context.Context, key ActionKey) (*Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.actions {
		if a.Key() == key {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memActions) Update(ctx context.Context, a *Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.actions[a.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Label = a.Label
	existing.Comment = a.Comment
	existing.Repeatable = a.Repeatable
	existing.DistinctSigner = a.DistinctSigner
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memActions) ApproveStages(ctx context.Context, scope string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stages []string
	seen := make(map[string]struct{})
	for _, a := range m.actions {
		if a.Scope != scope || a.Verb != VerbApprove {
			continue
		}
		if _, ok := seen[a.Stage]; ok {
			continue
		}
		seen[a.Stage] = struct{}{}
		stages = append(stages, a.Stage)
	}
	sort.Strings(stages)
	return stages, nil
}

// Policies ------------------------------------------------------------------

type memPolicies Memory

func (m *memPolicies) Create(ctx context.Context, p *Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = ids.New()
	}
	for _, existing := range m.policies {
		if existing.RoleID == p.RoleID && existing.ActionID == p.ActionID {
			return ErrAlreadyExists
		}
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	m.policies[p.ID] = &cp
	return nil
}

func (m *memPolicies) Find(ctx context.Context, roleID, actionID string) (*Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.policies {
		if p.RoleID == roleID && p.ActionID == actionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memPolicies) Update(ctx context.Context, p *Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.policies[p.ID]
	if !ok {
		return ErrNotFound
	}
	existing.DistinctSigner = p.DistinctSigner
	existing.Repeatable = p.Repeatable
	existing.Notes = p.Notes
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memPolicies) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.policies[id]; !ok {
		return ErrNotFound
	}
	delete(m.policies, id)
	return nil
}

// Signatories ---------------------------------------------------------------

type memSignatories Memory

func (m *memSignatories) Create(ctx context.Context, s *Signatory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = ids.New()
	}
	if s.BaseKey == "" {
		s.BaseKey = NewBaseKey()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	cp := *s
	m.signatories[s.ID] = &cp
	return nil
}

func (m *memSignatories) Get(ctx context.Context, id string) (*Signatory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.signatories[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSignatories) ResolveActor(ctx context.Context, actorID string) (*Signatory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *Signatory
	for _, id := range m.actors[actorID] {
		s, ok := m.signatories[id]
		if !ok || !s.Active {
			continue
		}
		if best == nil || s.UpdatedAt.After(best.UpdatedAt) {
			best = s
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *memSignatories) Update(ctx context.Context, s *Signatory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.signatories[s.ID]
	if !ok {
		return ErrNotFound
	}
	// BaseKey is write-once: deliberately not copied.
	existing.Active = s.Active
	existing.Verified = s.Verified
	existing.DisplayName = s.DisplayName
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// Signatures ----------------------------------------------------------------

type memSignatures Memory

func (m *memSignatures) Insert(ctx context.Context, sig *Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !sig.Repeatable {
		for _, existing := range m.sigs {
			if !existing.Repeatable &&
				existing.TargetType == sig.TargetType &&
				existing.TargetID == sig.TargetID &&
				existing.Verb == sig.Verb &&
				existing.Stage == sig.Stage {
				return ErrAlreadyExists
			}
		}
	}
	if sig.RequestID != "" {
		if _, ok := m.byRequest[sig.RequestID]; ok {
			return ErrAlreadyExists
		}
	}
	if sig.ID == "" {
		sig.ID = ids.New()
	}
	if sig.At.IsZero() {
		sig.At = time.Now().UTC()
	}
	cp := *sig
	m.sigs = append(m.sigs, &cp)
	if cp.RequestID != "" {
		m.byRequest[cp.RequestID] = &cp
	}
	return nil
}

func (m *memSignatures) ListByTarget(ctx context.Context, targetType, targetID string) ([]*Signature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []*Signature
	for _, s := range m.sigs {
		if s.TargetType == targetType && s.TargetID == targetID {
			cp := *s
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (m *memSignatures) FindRecent(ctx context.Context, signatoryID, targetType, targetID string, verb Verb, stage string, since time.Time) (*Signature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *Signature
	for _, s := range m.sigs {
		if s.SignatoryID != signatoryID || s.TargetType != targetType || s.TargetID != targetID {
			continue
		}
		// Strictly after: a signature exactly at the window edge is old
		// enough to count as a fresh signing.
		if s.Verb != verb || s.Stage != stage || !s.At.After(since) {
			continue
		}
		if best == nil || s.At.After(best.At) {
			best = s
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *memSignatures) FindByRequestID(ctx context.Context, requestID string) (*Signature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byRequest[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}
