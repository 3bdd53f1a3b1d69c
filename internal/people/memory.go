package people

import (
	"context"
	"sync"
	"time"

	"hankosign.org/internal/ids"
)

// MemoryDirectory implements Directory in memory for tests and the
// database-less dev mode.
type MemoryDirectory struct {
	mu          sync.RWMutex
	persons     map[string]*Person
	roles       map[string]*Role
	assignments map[string]*PersonRole
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		persons:     make(map[string]*Person),
		roles:       make(map[string]*Role),
		assignments: make(map[string]*PersonRole),
	}
}

func (d *MemoryDirectory) CreatePerson(ctx context.Context, p *Person) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	d.persons[p.ID] = &cp
	return nil
}

func (d *MemoryDirectory) GetPerson(ctx context.Context, id string) (*Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.persons[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (d *MemoryDirectory) FindPersonByEmail(ctx context.Context, email string) (*Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.persons {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) FindPersonByUser(ctx context.Context, userID string) (*Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.persons {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) SetPassword(ctx context.Context, personID, passwordHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.persons[personID]
	if !ok {
		return ErrNotFound
	}
	p.PasswordHash = passwordHash
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (d *MemoryDirectory) CreateRole(ctx context.Context, r *Role) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r.ID == "" {
		r.ID = ids.New()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	cp := *r
	d.roles[r.ID] = &cp
	return nil
}

func (d *MemoryDirectory) GetRole(ctx context.Context, id string) (*Role, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (d *MemoryDirectory) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.roles {
		if r.Name == name || r.ShortName == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) Assign(ctx context.Context, pr *PersonRole) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if pr.ID == "" {
		pr.ID = ids.New()
	}
	now := time.Now().UTC()
	pr.CreatedAt, pr.UpdatedAt = now, now
	cp := *pr
	d.assignments[pr.ID] = &cp
	return nil
}

func (d *MemoryDirectory) GetAssignment(ctx context.Context, id string) (*PersonRole, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pr, ok := d.assignments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *pr
	return &cp, nil
}

func (d *MemoryDirectory) AssignmentsFor(ctx context.Context, personID string) ([]*PersonRole, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var res []*PersonRole
	for _, pr := range d.assignments {
		if pr.PersonID == personID {
			cp := *pr
			res = append(res, &cp)
		}
	}
	return res, nil
}
