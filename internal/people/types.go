package people

import "time"

// Person is a member of the organisation. UserID links the person to the
// authenticated portal account (JWT subject).
type Person struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	UserID       string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName returns the display name.
func (p *Person) FullName() string { return p.FirstName + " " + p.LastName }

// Role is an organisational function (e.g. Wirtschaftsreferent:in, Chair).
type Role struct {
	ID        string
	Name      string
	ShortName string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PersonRole is a time-windowed role assignment. End is zero for open
// assignments. Signing capability attaches to assignments, not persons:
// authorization is role-scoped.
type PersonRole struct {
	ID        string
	PersonID  string
	RoleID    string
	Start     time.Time
	End       time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActiveAt reports whether the assignment covers the given date.
func (pr *PersonRole) ActiveAt(t time.Time) bool {
	if t.Before(pr.Start) {
		return false
	}
	return pr.End.IsZero() || !t.After(pr.End)
}
