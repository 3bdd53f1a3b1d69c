package hankosign

import (
	"fmt"
	"strings"
	"time"
)

// Verb is a workflow verb performable against a target object.
type Verb string

const (
	VerbSubmit   Verb = "SUBMIT"
	VerbVerify   Verb = "VERIFY"
	VerbApprove  Verb = "APPROVE"
	VerbRelease  Verb = "RELEASE"
	VerbWithdraw Verb = "WITHDRAW"
	VerbReject   Verb = "REJECT"
	VerbLock     Verb = "LOCK"
	VerbUnlock   Verb = "UNLOCK"
)

var verbs = map[Verb]struct{}{
	VerbSubmit: {}, VerbVerify: {}, VerbApprove: {}, VerbRelease: {},
	VerbWithdraw: {}, VerbReject: {}, VerbLock: {}, VerbUnlock: {},
}

// ParseVerb normalizes and validates a verb string.
func ParseVerb(s string) (Verb, bool) {
	v := Verb(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := verbs[v]
	return v, ok
}

// Target is the capability interface a domain object implements to plug
// into the engine. TypeKey is a stable namespaced tag such as
// "finances.paymentplan"; PrimaryKey is the object's row identity.
type Target interface {
	TypeKey() string
	PrimaryKey() string
}

// TargetRef is a plain value Target, used when only the reference is known
// (HTTP layer, stored signatures).
type TargetRef struct {
	Type string
	ID   string
}

func (r TargetRef) TypeKey() string    { return r.Type }
func (r TargetRef) PrimaryKey() string { return r.ID }

// ActionKey is the typed identity of an Action: verb + optional stage +
// target type key. The string code form exists only for serialization.
type ActionKey struct {
	Verb  Verb
	Stage string
	Scope string
}

// Code renders the key as "VERB:STAGE@scope" with "-" for an empty stage.
func (k ActionKey) Code() string {
	stage := k.Stage
	if stage == "" {
		stage = "-"
	}
	return fmt.Sprintf("%s:%s@%s", k.Verb, stage, k.Scope)
}

// ParseActionCode parses "VERB:STAGE@scope". Stage "-" denotes empty.
func ParseActionCode(code string) (ActionKey, error) {
	s := strings.TrimSpace(code)
	verbStage, scope, ok := strings.Cut(s, "@")
	if !ok {
		return ActionKey{}, fmt.Errorf("malformed action code %q", code)
	}
	verbRaw, stage, ok := strings.Cut(verbStage, ":")
	if !ok {
		return ActionKey{}, fmt.Errorf("malformed action code %q", code)
	}
	verb, ok := ParseVerb(verbRaw)
	if !ok {
		return ActionKey{}, fmt.Errorf("unknown verb in action code %q", code)
	}
	stage = strings.ToUpper(strings.TrimSpace(stage))
	if stage == "-" {
		stage = ""
	}
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" {
		return ActionKey{}, fmt.Errorf("missing scope in action code %q", code)
	}
	return ActionKey{Verb: verb, Stage: stage, Scope: scope}, nil
}

// Action defines a verb performable at an optional stage against a target
// type. Reference data: created by bootstrap or admin, never deleted once
// signatures reference it.
type Action struct {
	ID             string
	Verb           Verb
	Stage          string
	Scope          string
	Label          string
	Comment        string
	Repeatable     bool
	DistinctSigner bool // informational default; enforcement lives on Policy
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Key returns the typed identity triple.
func (a *Action) Key() ActionKey {
	return ActionKey{Verb: a.Verb, Stage: a.Stage, Scope: a.Scope}
}

// Code returns the serialized action code.
func (a *Action) Code() string { return a.Key().Code() }

// Policy grants a role the right to perform an action, with per-grant
// repeatability and separation-of-duty settings.
type Policy struct {
	ID             string
	RoleID         string
	ActionID       string
	DistinctSigner bool
	Repeatable     bool
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Signatory is a person's active capability to sign, bound to a specific
// role assignment. BaseKey is generated once at creation and never changes;
// it feeds signature fingerprinting and must not be exposed.
type Signatory struct {
	ID           string
	PersonRoleID string
	RoleID       string
	DisplayName  string
	Active       bool
	Verified     bool
	BaseKey      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Signature is an immutable ledger entry: a signatory performed an action
// against a target at a point in time. Verb, Stage and Scope are frozen
// copies of the action at signing time.
type Signature struct {
	ID          string
	SignatoryID string
	TargetType  string
	TargetID    string
	ActionID    string
	Verb        Verb
	Stage       string
	Scope       string
	At          time.Time
	Note        string
	Payload     map[string]any
	Repeatable  bool
	RequestID   string
	Fingerprint string
}

// Snapshot is the derived workflow state of a target, folded from its full
// signature history.
type Snapshot struct {
	Submitted bool
	Approved  map[string]struct{}
	// Verified holds the stage-qualified verifications; VerifiedAny also
	// covers stage-less VERIFY signatures, which carry no stage to key on.
	Verified       map[string]struct{}
	VerifiedAny    bool
	Rejected       bool
	Required       map[string]struct{}
	Final          bool
	Locked         bool
	ExplicitLocked bool
}

// Status is a single discrete UI status derived from a Snapshot.
type Status struct {
	Code  string
	Label string
}

// Decision is the structured outcome of CanAct. A denial carries the
// human-readable reason; resolved entities are returned for the caller.
type Decision struct {
	OK        bool
	Reason    string
	Signatory *Signatory
	Action    *Action
	Policy    *Policy
}
