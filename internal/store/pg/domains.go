package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hankosign.org/internal/assembly"
	"hankosign.org/internal/employees"
	"hankosign.org/internal/finances"
	"hankosign.org/internal/ids"
)

// Fiscal years ----------------------------------------------------------

func (s *Store) CreateFiscalYear(ctx context.Context, fy *finances.FiscalYear) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if fy.ID == "" {
		fy.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into fiscal_years (id, code, label, start_date, end_date, is_active, is_locked)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning created_at, updated_at
	`, fy.ID, fy.Code, fy.Label, fy.Start, fy.End, fy.Active, fy.Locked).
		Scan(&fy.CreatedAt, &fy.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: fiscal year %s exists", finances.ErrInvalidInput, fy.Code)
		}
		return err
	}
	return nil
}

func (s *Store) GetFiscalYear(ctx context.Context, id string) (*finances.FiscalYear, error) {
	return s.fiscalYearBy(ctx, `where id = $1`, id)
}

func (s *Store) FindFiscalYearByCode(ctx context.Context, code string) (*finances.FiscalYear, error) {
	return s.fiscalYearBy(ctx, `where code = $1`, code)
}

func (s *Store) fiscalYearBy(ctx context.Context, where string, arg any) (*finances.FiscalYear, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var fy finances.FiscalYear
	err := s.db.QueryRowContext(ctx, `
		select id, code, label, start_date, end_date, is_active, is_locked, created_at, updated_at
		from fiscal_years `+where,
		arg).
		Scan(&fy.ID, &fy.Code, &fy.Label, &fy.Start, &fy.End, &fy.Active, &fy.Locked, &fy.CreatedAt, &fy.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, finances.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fy, nil
}

func (s *Store) SetFiscalYearLocked(ctx context.Context, id string, locked bool) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update fiscal_years set is_locked = $2, updated_at = now() where id = $1
	`, id, locked)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return finances.ErrNotFound
	}
	return nil
}

// Payment plans ---------------------------------------------------------

// CreatePaymentPlan issues the per-year serial code inside one transaction,
// locking the fiscal year row to serialize concurrent creates.
func (s *Store) CreatePaymentPlan(ctx context.Context, p *finances.PaymentPlan) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var fyCode string
	err = tx.QueryRowContext(ctx, `
		select code from fiscal_years where id = $1 for update
	`, p.FiscalYearID).Scan(&fyCode)
	if errors.Is(err, sql.ErrNoRows) {
		return finances.ErrNotFound
	}
	if err != nil {
		return err
	}

	if p.PlanCode == "" {
		var maxSerial int
		if err := tx.QueryRowContext(ctx, `
			select coalesce(max(split_part(plan_code, '-', 2)::int), 0)
			from payment_plans
			where fiscal_year_id = $1
		`, p.FiscalYearID).Scan(&maxSerial); err != nil {
			return err
		}
		p.PlanCode = finances.NextPlanCode(fyCode, maxSerial)
	}

	if p.Status == "" {
		p.Status = finances.PlanDraft
	}
	err = tx.QueryRowContext(ctx, `
		insert into payment_plans
			(id, plan_code, person_role_id, fiscal_year_id, cost_center, payee_name,
			 iban, bic, reference, address, pay_start, pay_end,
			 monthly_amount_cents, total_override_cents, status, status_note, notes)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		returning created_at, updated_at
	`, p.ID, p.PlanCode, p.PersonRoleID, p.FiscalYearID, p.CostCenter, p.PayeeName,
		p.IBAN, p.BIC, p.Reference, p.Address, nullIfZeroTime(p.PayStart), nullIfZeroTime(p.PayEnd),
		p.MonthlyAmount, p.TotalOverride, p.Status, p.StatusNote, p.Notes).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: open plan exists for this assignment and year", finances.ErrInvalidInput)
		}
		return err
	}
	return tx.Commit()
}

func (s *Store) GetPaymentPlan(ctx context.Context, id string) (*finances.PaymentPlan, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		p        finances.PaymentPlan
		payStart sql.NullTime
		payEnd   sql.NullTime
		override sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		select id, plan_code, person_role_id, fiscal_year_id, cost_center, payee_name,
		       iban, bic, reference, address, pay_start, pay_end,
		       monthly_amount_cents, total_override_cents, status, status_note, notes,
		       created_at, updated_at
		from payment_plans
		where id = $1
	`, id).
		Scan(&p.ID, &p.PlanCode, &p.PersonRoleID, &p.FiscalYearID, &p.CostCenter, &p.PayeeName,
			&p.IBAN, &p.BIC, &p.Reference, &p.Address, &payStart, &payEnd,
			&p.MonthlyAmount, &override, &p.Status, &p.StatusNote, &p.Notes,
			&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, finances.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if payStart.Valid {
		p.PayStart = payStart.Time
	}
	if payEnd.Valid {
		p.PayEnd = payEnd.Time
	}
	if override.Valid {
		v := override.Int64
		p.TotalOverride = &v
	}
	return &p, nil
}

// SetPaymentPlanStatus refreshes the cached status column. The snapshot
// stays authoritative; this cache only serves list views.
func (s *Store) SetPaymentPlanStatus(ctx context.Context, id, status, note string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update payment_plans set status = $2, status_note = $3, updated_at = now() where id = $1
	`, id, status, note)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return finances.ErrNotFound
	}
	return nil
}

// Time sheets -----------------------------------------------------------

func (s *Store) CreateTimeSheet(ctx context.Context, ts *employees.TimeSheet) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if ts.ID == "" {
		ts.ID = ids.New()
	}
	if ts.Status == "" {
		ts.Status = employees.SheetDraft
	}
	err := s.db.QueryRowContext(ctx, `
		insert into time_sheets
			(id, employee_id, year, month, opening_saldo_minutes, expected_minutes,
			 worked_minutes, credit_minutes, closing_saldo_minutes, status)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		returning created_at, updated_at
	`, ts.ID, ts.EmployeeID, ts.Year, int(ts.Month), ts.OpeningSaldoMinutes, ts.ExpectedMinutes,
		ts.WorkedMinutes, ts.CreditMinutes, ts.ClosingSaldoMinutes, ts.Status).
		Scan(&ts.CreatedAt, &ts.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: sheet exists for %d-%02d", employees.ErrInvalidInput, ts.Year, ts.Month)
		}
		return err
	}
	return nil
}

func (s *Store) GetTimeSheet(ctx context.Context, id string) (*employees.TimeSheet, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		ts    employees.TimeSheet
		month int
	)
	err := s.db.QueryRowContext(ctx, `
		select id, employee_id, year, month, opening_saldo_minutes, expected_minutes,
		       worked_minutes, credit_minutes, closing_saldo_minutes, status, created_at, updated_at
		from time_sheets
		where id = $1
	`, id).
		Scan(&ts.ID, &ts.EmployeeID, &ts.Year, &month, &ts.OpeningSaldoMinutes, &ts.ExpectedMinutes,
			&ts.WorkedMinutes, &ts.CreditMinutes, &ts.ClosingSaldoMinutes, &ts.Status, &ts.CreatedAt, &ts.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, employees.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ts.Month = time.Month(month)
	return &ts, nil
}

func (s *Store) SetTimeSheetStatus(ctx context.Context, id, status string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update time_sheets set status = $2, updated_at = now() where id = $1
	`, id, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return employees.ErrNotFound
	}
	return nil
}

// Terms and sessions ----------------------------------------------------

func (s *Store) CreateTerm(ctx context.Context, t *assembly.Term) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if t.ID == "" {
		t.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into terms (id, code, label, start_date, end_date, is_active)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, t.ID, t.Code, t.Label, t.Start, t.End, t.Active).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: term %s exists", assembly.ErrInvalidInput, t.Code)
		}
		return err
	}
	return nil
}

func (s *Store) GetTerm(ctx context.Context, id string) (*assembly.Term, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var t assembly.Term
	err := s.db.QueryRowContext(ctx, `
		select id, code, label, start_date, end_date, is_active, created_at, updated_at
		from terms where id = $1
	`, id).Scan(&t.ID, &t.Code, &t.Label, &t.Start, &t.End, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, assembly.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateSession numbers the session within its term under a row lock on
// the term, the same serialization trick plan codes use.
func (s *Store) CreateSession(ctx context.Context, term *assembly.Term, kind string, date time.Time) (*assembly.Session, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `select 1 from terms where id = $1 for update`, term.ID); err != nil {
		return nil, err
	}
	var count int
	if err := tx.QueryRowContext(ctx, `select count(*) from sessions where term_id = $1`, term.ID).Scan(&count); err != nil {
		return nil, err
	}

	sess, err := assembly.NewSession(term, count+1, kind, date)
	if err != nil {
		return nil, err
	}
	sess.ID = ids.New()
	sess.Status = assembly.SessionDraft

	err = tx.QueryRowContext(ctx, `
		insert into sessions (id, term_id, code, session_type, session_date, status)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, sess.ID, sess.TermID, sess.Code, sess.Type, sess.Date, sess.Status).
		Scan(&sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*assembly.Session, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var sess assembly.Session
	err := s.db.QueryRowContext(ctx, `
		select id, term_id, code, session_type, session_date, coalesce(location, ''), status, created_at, updated_at
		from sessions where id = $1
	`, id).Scan(&sess.ID, &sess.TermID, &sess.Code, &sess.Type, &sess.Date, &sess.Location, &sess.Status, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, assembly.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) SetSessionStatus(ctx context.Context, id, status string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update sessions set status = $2, updated_at = now() where id = $1
	`, id, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return assembly.ErrNotFound
	}
	return nil
}
