package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hankosign.org/internal/hankosign"
	"hankosign.org/internal/ids"
)

var _ hankosign.Store = (*Store)(nil)

func (s *Store) Actions(context.Context) hankosign.ActionStore         { return (*actionStore)(s) }
func (s *Store) Policies(context.Context) hankosign.PolicyStore        { return (*policyStore)(s) }
func (s *Store) Signatories(context.Context) hankosign.SignatoryStore  { return (*signatoryStore)(s) }
func (s *Store) Signatures(context.Context) hankosign.SignatureStore   { return (*signatureStore)(s) }

// Actions ---------------------------------------------------------------

type actionStore Store

func (s *actionStore) Create(ctx context.Context, a *hankosign.Action) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if a.ID == "" {
		a.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into hanko_actions (id, verb, stage, scope, label, comment, is_repeatable, distinct_signer)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning created_at, updated_at
	`, a.ID, string(a.Verb), a.Stage, a.Scope, a.Label, a.Comment, a.Repeatable, a.DistinctSigner).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return hankosign.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *actionStore) Find(ctx context.Context, key hankosign.ActionKey) (*hankosign.Action, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		a    hankosign.Action
		verb string
	)
	err := s.db.QueryRowContext(ctx, `
		select id, verb, stage, scope, label, comment, is_repeatable, distinct_signer, created_at, updated_at
		from hanko_actions
		where verb = $1 and stage = $2 and scope = $3
	`, string(key.Verb), key.Stage, key.Scope).
		Scan(&a.ID, &verb, &a.Stage, &a.Scope, &a.Label, &a.Comment, &a.Repeatable, &a.DistinctSigner, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hankosign.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Verb = hankosign.Verb(verb)
	return &a, nil
}

func (s *actionStore) Update(ctx context.Context, a *hankosign.Action) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update hanko_actions
		set label = $2, comment = $3, is_repeatable = $4, distinct_signer = $5, updated_at = now()
		where id = $1
	`, a.ID, a.Label, a.Comment, a.Repeatable, a.DistinctSigner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return hankosign.ErrNotFound
	}
	return nil
}

func (s *actionStore) ApproveStages(ctx context.Context, scope string) ([]string, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select distinct stage
		from hanko_actions
		where scope = $1 and verb = 'APPROVE'
		order by stage
	`, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []string
	for rows.Next() {
		var st string
		if err := rows.Scan(&st); err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

// Policies --------------------------------------------------------------

type policyStore Store

func (s *policyStore) Create(ctx context.Context, p *hankosign.Policy) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into hanko_policies (id, role_id, action_id, distinct_signer, is_repeatable, notes)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, p.ID, p.RoleID, p.ActionID, p.DistinctSigner, p.Repeatable, p.Notes).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return hankosign.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *policyStore) Find(ctx context.Context, roleID, actionID string) (*hankosign.Policy, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var p hankosign.Policy
	err := s.db.QueryRowContext(ctx, `
		select id, role_id, action_id, distinct_signer, is_repeatable, notes, created_at, updated_at
		from hanko_policies
		where role_id = $1 and action_id = $2
	`, roleID, actionID).
		Scan(&p.ID, &p.RoleID, &p.ActionID, &p.DistinctSigner, &p.Repeatable, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hankosign.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *policyStore) Update(ctx context.Context, p *hankosign.Policy) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update hanko_policies
		set distinct_signer = $2, is_repeatable = $3, notes = $4, updated_at = now()
		where id = $1
	`, p.ID, p.DistinctSigner, p.Repeatable, p.Notes)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return hankosign.ErrNotFound
	}
	return nil
}

func (s *policyStore) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from hanko_policies where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return hankosign.ErrNotFound
	}
	return nil
}

// Signatories -----------------------------------------------------------

type signatoryStore Store

func (s *signatoryStore) Create(ctx context.Context, sg *hankosign.Signatory) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if sg.ID == "" {
		sg.ID = ids.New()
	}
	if sg.BaseKey == "" {
		sg.BaseKey = hankosign.NewBaseKey()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into hanko_signatories (id, person_role_id, role_id, display_name, is_active, is_verified, base_key)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning created_at, updated_at
	`, sg.ID, sg.PersonRoleID, sg.RoleID, sg.DisplayName, sg.Active, sg.Verified, sg.BaseKey).
		Scan(&sg.CreatedAt, &sg.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return fmt.Errorf("%w: unknown role assignment", hankosign.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (s *signatoryStore) Get(ctx context.Context, id string) (*hankosign.Signatory, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var sg hankosign.Signatory
	err := s.db.QueryRowContext(ctx, `
		select id, person_role_id, role_id, display_name, is_active, is_verified, base_key, created_at, updated_at
		from hanko_signatories
		where id = $1
	`, id).
		Scan(&sg.ID, &sg.PersonRoleID, &sg.RoleID, &sg.DisplayName, &sg.Active, &sg.Verified, &sg.BaseKey, &sg.CreatedAt, &sg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hankosign.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sg, nil
}

// ResolveActor walks the authenticated user back to a signing capability:
// person by user id, role assignments, active signatory. Newest updated
// signatory wins when several are active.
func (s *signatoryStore) ResolveActor(ctx context.Context, actorID string) (*hankosign.Signatory, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var sg hankosign.Signatory
	err := s.db.QueryRowContext(ctx, `
		select sg.id, sg.person_role_id, sg.role_id, sg.display_name, sg.is_active, sg.is_verified, sg.base_key, sg.created_at, sg.updated_at
		from hanko_signatories sg
		join person_roles pr on pr.id = sg.person_role_id
		join persons p on p.id = pr.person_id
		where p.user_id = $1 and sg.is_active
		order by sg.updated_at desc
		limit 1
	`, actorID).
		Scan(&sg.ID, &sg.PersonRoleID, &sg.RoleID, &sg.DisplayName, &sg.Active, &sg.Verified, &sg.BaseKey, &sg.CreatedAt, &sg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hankosign.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sg, nil
}

func (s *signatoryStore) Update(ctx context.Context, sg *hankosign.Signatory) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	// base_key is write-once and deliberately not in the set list.
	res, err := s.db.ExecContext(ctx, `
		update hanko_signatories
		set display_name = $2, is_active = $3, is_verified = $4, updated_at = now()
		where id = $1
	`, sg.ID, sg.DisplayName, sg.Active, sg.Verified)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return hankosign.ErrNotFound
	}
	return nil
}

// Signatures ------------------------------------------------------------

type signatureStore Store

func (s *signatureStore) Insert(ctx context.Context, sig *hankosign.Signature) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if sig.ID == "" {
		sig.ID = ids.New()
	}
	payload := []byte("{}")
	if len(sig.Payload) > 0 {
		b, err := json.Marshal(sig.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		payload = b
	}
	at := sig.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	// The partial unique index on (target_type, target_id, verb, stage)
	// for non-repeatable rows arbitrates concurrent inserts: exactly one
	// transaction commits, the rest surface the conflict here.
	_, err := s.db.ExecContext(ctx, `
		insert into hanko_signatures
			(id, signatory_id, target_type, target_id, action_id, verb, stage, scope,
			 signed_at, note, payload, is_repeatable, request_id, fingerprint)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, sig.ID, sig.SignatoryID, sig.TargetType, sig.TargetID, sig.ActionID,
		string(sig.Verb), sig.Stage, sig.Scope, at, sig.Note, payload,
		sig.Repeatable, nullIfEmpty(sig.RequestID), sig.Fingerprint)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return hankosign.ErrAlreadyExists
		}
		return err
	}
	sig.At = at
	return nil
}

func (s *signatureStore) ListByTarget(ctx context.Context, targetType, targetID string) ([]*hankosign.Signature, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, signatory_id, target_type, target_id, action_id, verb, stage, scope,
		       signed_at, note, payload, is_repeatable, request_id, fingerprint
		from hanko_signatures
		where target_type = $1 and target_id = $2
		order by signed_at, id
	`, targetType, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*hankosign.Signature
	for rows.Next() {
		sig, err := scanSignature(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *signatureStore) FindRecent(ctx context.Context, signatoryID, targetType, targetID string, verb hankosign.Verb, stage string, since time.Time) (*hankosign.Signature, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		select id, signatory_id, target_type, target_id, action_id, verb, stage, scope,
		       signed_at, note, payload, is_repeatable, request_id, fingerprint
		from hanko_signatures
		where signatory_id = $1 and target_type = $2 and target_id = $3
		  and verb = $4 and stage = $5 and signed_at > $6
		order by signed_at desc
		limit 1
	`, signatoryID, targetType, targetID, string(verb), stage, since)
	sig, err := scanSignature(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hankosign.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sig, nil
}

func (s *signatureStore) FindByRequestID(ctx context.Context, requestID string) (*hankosign.Signature, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		select id, signatory_id, target_type, target_id, action_id, verb, stage, scope,
		       signed_at, note, payload, is_repeatable, request_id, fingerprint
		from hanko_signatures
		where request_id = $1
	`, requestID)
	sig, err := scanSignature(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hankosign.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sig, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignature(row rowScanner) (*hankosign.Signature, error) {
	var (
		sig        hankosign.Signature
		verb       string
		rawPayload []byte
		requestID  sql.NullString
	)
	err := row.Scan(&sig.ID, &sig.SignatoryID, &sig.TargetType, &sig.TargetID, &sig.ActionID,
		&verb, &sig.Stage, &sig.Scope, &sig.At, &sig.Note, &rawPayload,
		&sig.Repeatable, &requestID, &sig.Fingerprint)
	if err != nil {
		return nil, err
	}
	sig.Verb = hankosign.Verb(verb)
	sig.RequestID = requestID.String
	if len(rawPayload) > 0 {
		if err := json.Unmarshal(rawPayload, &sig.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	return &sig, nil
}
