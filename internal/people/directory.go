package people

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hankosign.org/internal/auth"
)

var (
	ErrNotFound     = errors.New("people: not found")
	ErrInvalidInput = errors.New("people: invalid input")
	ErrUnauthorized = errors.New("people: unauthorized")
)

// Directory describes persistence for persons, roles and assignments.
type Directory interface {
	CreatePerson(ctx context.Context, p *Person) error
	GetPerson(ctx context.Context, id string) (*Person, error)
	FindPersonByEmail(ctx context.Context, email string) (*Person, error)
	FindPersonByUser(ctx context.Context, userID string) (*Person, error)
	SetPassword(ctx context.Context, personID, passwordHash string) error

	CreateRole(ctx context.Context, r *Role) error
	GetRole(ctx context.Context, id string) (*Role, error)
	FindRoleByName(ctx context.Context, name string) (*Role, error)

	Assign(ctx context.Context, pr *PersonRole) error
	GetAssignment(ctx context.Context, id string) (*PersonRole, error)
	AssignmentsFor(ctx context.Context, personID string) ([]*PersonRole, error)
}

// Service validates and normalizes directory operations.
type Service struct {
	dir Directory
}

// NewService constructs the directory service.
func NewService(dir Directory) (*Service, error) {
	if dir == nil {
		return nil, errors.New("people: directory is required")
	}
	return &Service{dir: dir}, nil
}

// CreatePerson validates and stores a person.
func (s *Service) CreatePerson(ctx context.Context, p *Person) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if p.Email == "" || !strings.Contains(p.Email, "@") {
		return fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	return s.dir.CreatePerson(ctx, p)
}

// CreateRole validates and stores a role.
func (s *Service) CreateRole(ctx context.Context, r *Role) error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	r.ShortName = strings.TrimSpace(r.ShortName)
	return s.dir.CreateRole(ctx, r)
}

// Assign validates and stores an assignment.
func (s *Service) Assign(ctx context.Context, pr *PersonRole) error {
	if pr.PersonID == "" || pr.RoleID == "" {
		return fmt.Errorf("%w: person and role are required", ErrInvalidInput)
	}
	if pr.Start.IsZero() {
		return fmt.Errorf("%w: assignment start date is required", ErrInvalidInput)
	}
	if !pr.End.IsZero() && pr.End.Before(pr.Start) {
		return fmt.Errorf("%w: assignment end precedes start", ErrInvalidInput)
	}
	return s.dir.Assign(ctx, pr)
}

// SetPassword hashes and stores a portal password.
func (s *Service) SetPassword(ctx context.Context, personID, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.dir.SetPassword(ctx, personID, hash)
}

// ActiveRoles lists the short names (or names) of the roles a person
// holds through assignments active at the given time.
func (s *Service) ActiveRoles(ctx context.Context, personID string, at time.Time) ([]string, error) {
	assignments, err := s.dir.AssignmentsFor(ctx, personID)
	if err != nil {
		return nil, err
	}
	var roles []string
	seen := make(map[string]struct{})
	for _, pr := range assignments {
		if !pr.ActiveAt(at) {
			continue
		}
		r, err := s.dir.GetRole(ctx, pr.RoleID)
		if err != nil {
			return nil, err
		}
		name := r.ShortName
		if name == "" {
			name = r.Name
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		roles = append(roles, name)
	}
	return roles, nil
}

// Authenticate verifies portal credentials and returns the person.
// Failures are uniformly ErrUnauthorized so the login surface does not
// leak which part of the credential was wrong.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Person, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrUnauthorized
	}
	p, err := s.dir.FindPersonByEmail(ctx, email)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if err := auth.VerifyPassword(p.PasswordHash, password); err != nil {
		return nil, ErrUnauthorized
	}
	return p, nil
}
