package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"hankosign.org/internal/hankosign"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestActionFind(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "verb", "stage", "scope", "label", "comment", "is_repeatable", "distinct_signer", "created_at", "updated_at"}).
		AddRow("a1", "APPROVE", "WIREF", "finances.paymentplan", "Approve (WiRef)", "", false, false, now, now)
	mock.ExpectQuery("select id, verb, stage, scope.*from hanko_actions").
		WithArgs("APPROVE", "WIREF", "finances.paymentplan").
		WillReturnRows(rows)

	a, err := store.Actions(ctx).Find(ctx, hankosign.ActionKey{Verb: hankosign.VerbApprove, Stage: "WIREF", Scope: "finances.paymentplan"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if a.ID != "a1" || a.Verb != hankosign.VerbApprove {
		t.Fatalf("action = %+v", a)
	}

	mock.ExpectQuery("select id, verb, stage, scope.*from hanko_actions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = store.Actions(ctx).Find(ctx, hankosign.ActionKey{Verb: hankosign.VerbRelease, Scope: "x"})
	if !errors.Is(err, hankosign.ErrNotFound) {
		t.Fatalf("missing action err = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestActionApproveStages(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("select distinct stage.*from hanko_actions").
		WithArgs("finances.paymentplan").
		WillReturnRows(sqlmock.NewRows([]string{"stage"}).AddRow("CHAIR").AddRow("WIREF"))

	stages, err := store.Actions(ctx).ApproveStages(ctx, "finances.paymentplan")
	if err != nil {
		t.Fatalf("ApproveStages: %v", err)
	}
	if len(stages) != 2 || stages[0] != "CHAIR" || stages[1] != "WIREF" {
		t.Fatalf("stages = %v", stages)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSignatureInsertDuplicateMapsToAlreadyExists(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("insert into hanko_signatures").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "uq_hanko_sig_once"})

	sig := &hankosign.Signature{
		SignatoryID: "s1",
		TargetType:  "finances.paymentplan",
		TargetID:    "pp1",
		ActionID:    "a1",
		Verb:        hankosign.VerbApprove,
		Stage:       "WIREF",
		Scope:       "finances.paymentplan",
		Fingerprint: "ff",
	}
	err := store.Signatures(ctx).Insert(ctx, sig)
	if !errors.Is(err, hankosign.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSignatureListByTarget(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	cols := []string{"id", "signatory_id", "target_type", "target_id", "action_id", "verb", "stage", "scope",
		"signed_at", "note", "payload", "is_repeatable", "request_id", "fingerprint"}
	rows := sqlmock.NewRows(cols).
		AddRow("sig1", "s1", "finances.paymentplan", "pp1", "a1", "SUBMIT", "", "finances.paymentplan",
			now, "submitted", []byte(`{"source":"portal"}`), true, nil, "f1").
		AddRow("sig2", "s2", "finances.paymentplan", "pp1", "a2", "APPROVE", "WIREF", "finances.paymentplan",
			now.Add(time.Hour), "", []byte(`{}`), false, "req-9", "f2")
	mock.ExpectQuery("select id, signatory_id.*from hanko_signatures").
		WithArgs("finances.paymentplan", "pp1").
		WillReturnRows(rows)

	sigs, err := store.Signatures(ctx).ListByTarget(ctx, "finances.paymentplan", "pp1")
	if err != nil {
		t.Fatalf("ListByTarget: %v", err)
	}
	if len(sigs) != 2 {
		t.Fatalf("len = %d", len(sigs))
	}
	if sigs[0].Verb != hankosign.VerbSubmit || sigs[0].Payload["source"] != "portal" {
		t.Fatalf("first signature = %+v", sigs[0])
	}
	if sigs[1].RequestID != "req-9" {
		t.Fatalf("request id = %q", sigs[1].RequestID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolveActorJoin(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	cols := []string{"id", "person_role_id", "role_id", "display_name", "is_active", "is_verified", "base_key", "created_at", "updated_at"}
	mock.ExpectQuery("select sg.id, sg.person_role_id.*join person_roles pr.*join persons p").
		WithArgs("user-7").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("sg1", "pr1", "r1", "WiRef", true, true, "bk", now, now))

	sg, err := store.Signatories(ctx).ResolveActor(ctx, "user-7")
	if err != nil {
		t.Fatalf("ResolveActor: %v", err)
	}
	if sg.ID != "sg1" || !sg.Verified {
		t.Fatalf("signatory = %+v", sg)
	}

	mock.ExpectQuery("select sg.id, sg.person_role_id").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = store.Signatories(ctx).ResolveActor(ctx, "nobody")
	if !errors.Is(err, hankosign.ErrNotFound) {
		t.Fatalf("missing actor err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSignatoryUpdateSkipsBaseKey(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("update hanko_signatories").
		WithArgs("sg1", "New Name", true, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Signatories(ctx).Update(ctx, &hankosign.Signatory{
		ID: "sg1", DisplayName: "New Name", Active: true, Verified: true,
		BaseKey: "attempted-overwrite",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
