package pg

import (
	"context"
	"database/sql"
	"errors"

	"hankosign.org/internal/ids"
	"hankosign.org/internal/people"
)

var _ people.Directory = (*Store)(nil)

func (s *Store) CreatePerson(ctx context.Context, p *people.Person) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into persons (id, first_name, last_name, email, user_id, password_hash)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, p.ID, p.FirstName, p.LastName, p.Email, nullIfEmpty(p.UserID), nullIfEmpty(p.PasswordHash)).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return people.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) GetPerson(ctx context.Context, id string) (*people.Person, error) {
	return s.personBy(ctx, `where id = $1`, id)
}

func (s *Store) FindPersonByEmail(ctx context.Context, email string) (*people.Person, error) {
	return s.personBy(ctx, `where email = $1`, email)
}

func (s *Store) FindPersonByUser(ctx context.Context, userID string) (*people.Person, error) {
	return s.personBy(ctx, `where user_id = $1`, userID)
}

func (s *Store) personBy(ctx context.Context, where string, arg any) (*people.Person, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		p      people.Person
		userID sql.NullString
		pwHash sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, first_name, last_name, email, user_id, password_hash, created_at, updated_at
		from persons `+where,
		arg).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &userID, &pwHash, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, people.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.UserID = userID.String
	p.PasswordHash = pwHash.String
	return &p, nil
}

func (s *Store) SetPassword(ctx context.Context, personID, passwordHash string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update persons set password_hash = $2, updated_at = now() where id = $1
	`, personID, passwordHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return people.ErrNotFound
	}
	return nil
}

func (s *Store) CreateRole(ctx context.Context, r *people.Role) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if r.ID == "" {
		r.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into roles (id, name, short_name)
		values ($1, $2, $3)
		returning created_at, updated_at
	`, r.ID, r.Name, r.ShortName).
		Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return people.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, id string) (*people.Role, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var r people.Role
	err := s.db.QueryRowContext(ctx, `
		select id, name, short_name, created_at, updated_at from roles where id = $1
	`, id).Scan(&r.ID, &r.Name, &r.ShortName, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, people.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) FindRoleByName(ctx context.Context, name string) (*people.Role, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var r people.Role
	err := s.db.QueryRowContext(ctx, `
		select id, name, short_name, created_at, updated_at
		from roles
		where name = $1 or short_name = $1
	`, name).Scan(&r.ID, &r.Name, &r.ShortName, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, people.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) Assign(ctx context.Context, pr *people.PersonRole) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if pr.ID == "" {
		pr.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into person_roles (id, person_id, role_id, start_date, end_date)
		values ($1, $2, $3, $4, $5)
		returning created_at, updated_at
	`, pr.ID, pr.PersonID, pr.RoleID, pr.Start, nullIfZeroTime(pr.End)).
		Scan(&pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return people.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) GetAssignment(ctx context.Context, id string) (*people.PersonRole, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		pr  people.PersonRole
		end sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select id, person_id, role_id, start_date, end_date, created_at, updated_at
		from person_roles where id = $1
	`, id).Scan(&pr.ID, &pr.PersonID, &pr.RoleID, &pr.Start, &end, &pr.CreatedAt, &pr.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, people.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if end.Valid {
		pr.End = end.Time
	}
	return &pr, nil
}

func (s *Store) AssignmentsFor(ctx context.Context, personID string) ([]*people.PersonRole, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, person_id, role_id, start_date, end_date, created_at, updated_at
		from person_roles
		where person_id = $1
		order by start_date
	`, personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*people.PersonRole
	for rows.Next() {
		var (
			pr  people.PersonRole
			end sql.NullTime
		)
		if err := rows.Scan(&pr.ID, &pr.PersonID, &pr.RoleID, &pr.Start, &end, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
			return nil, err
		}
		if end.Valid {
			pr.End = end.Time
		}
		out = append(out, &pr)
	}
	return out, rows.Err()
}
