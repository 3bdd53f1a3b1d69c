package hankosign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// CatalogAction is one declarative action record.
type CatalogAction struct {
	Verb           Verb
	Stage          string
	Scope          string
	Label          string
	Comment        string
	Repeatable     bool
	DistinctSigner bool
}

// CatalogPolicy is one declarative role grant.
type CatalogPolicy struct {
	RoleID         string
	Action         ActionKey
	Repeatable     bool
	DistinctSigner bool
	Notes          string
}

// Catalog is a declarative action/policy configuration, applied
// idempotently: re-applying an unchanged catalog is a no-op, changed rows
// are updated in place, nothing is ever duplicated.
type Catalog struct {
	Actions  []CatalogAction
	Policies []CatalogPolicy
}

// catalogFile is the JSON wire shape: action codes instead of split
// verb/stage/scope triples, so operators write "APPROVE:CHAIR@scope".
type catalogFile struct {
	Actions []struct {
		Code           string `json:"code"`
		Label          string `json:"label"`
		Comment        string `json:"comment"`
		Repeatable     bool   `json:"repeatable"`
		DistinctSigner bool   `json:"distinct_signer"`
	} `json:"actions"`
	Policies []struct {
		RoleID         string `json:"role_id"`
		Action         string `json:"action"`
		Repeatable     bool   `json:"repeatable"`
		DistinctSigner bool   `json:"distinct_signer"`
		Notes          string `json:"notes"`
	} `json:"policies"`
}

// ParseCatalogJSON decodes the on-disk catalog format.
func ParseCatalogJSON(raw []byte) (Catalog, error) {
	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return Catalog{}, err
	}

	var cat Catalog
	for _, a := range file.Actions {
		key, err := ParseActionCode(a.Code)
		if err != nil {
			return Catalog{}, err
		}
		cat.Actions = append(cat.Actions, CatalogAction{
			Verb:           key.Verb,
			Stage:          key.Stage,
			Scope:          key.Scope,
			Label:          a.Label,
			Comment:        a.Comment,
			Repeatable:     a.Repeatable,
			DistinctSigner: a.DistinctSigner,
		})
	}
	for _, p := range file.Policies {
		key, err := ParseActionCode(p.Action)
		if err != nil {
			return Catalog{}, err
		}
		cat.Policies = append(cat.Policies, CatalogPolicy{
			RoleID:         p.RoleID,
			Action:         key,
			Repeatable:     p.Repeatable,
			DistinctSigner: p.DistinctSigner,
			Notes:          p.Notes,
		})
	}
	return cat, nil
}

// BootstrapStats summarizes an ApplyCatalog run.
type BootstrapStats struct {
	ActionsCreated  int
	ActionsUpdated  int
	PoliciesCreated int
	PoliciesUpdated int
}

// ApplyCatalog upserts catalog rows by natural key: (verb, stage, scope)
// for actions, (role, action) for policies.
func ApplyCatalog(ctx context.Context, store Store, cat Catalog) (BootstrapStats, error) {
	var stats BootstrapStats
	actions := store.Actions(ctx)
	policies := store.Policies(ctx)

	for _, ca := range cat.Actions {
		if _, ok := ParseVerb(string(ca.Verb)); !ok {
			return stats, fmt.Errorf("%w: unknown verb %q", ErrInvalidInput, ca.Verb)
		}
		if ca.Scope == "" {
			return stats, fmt.Errorf("%w: action scope is required", ErrInvalidInput)
		}
		key := ActionKey{Verb: ca.Verb, Stage: ca.Stage, Scope: ca.Scope}
		label := ca.Label
		if label == "" {
			label = fmt.Sprintf("%s/%s for %s", ca.Verb, stageOrDash(ca.Stage), ca.Scope)
		}
		existing, err := actions.Find(ctx, key)
		switch {
		case errors.Is(err, ErrNotFound):
			a := &Action{
				Verb: ca.Verb, Stage: ca.Stage, Scope: ca.Scope,
				Label: label, Comment: ca.Comment,
				Repeatable: ca.Repeatable, DistinctSigner: ca.DistinctSigner,
			}
			if err := actions.Create(ctx, a); err != nil {
				return stats, fmt.Errorf("create action %s: %w", key.Code(), err)
			}
			stats.ActionsCreated++
		case err != nil:
			return stats, err
		default:
			if existing.Label == label && existing.Comment == ca.Comment &&
				existing.Repeatable == ca.Repeatable && existing.DistinctSigner == ca.DistinctSigner {
				continue
			}
			existing.Label = label
			existing.Comment = ca.Comment
			existing.Repeatable = ca.Repeatable
			existing.DistinctSigner = ca.DistinctSigner
			if err := actions.Update(ctx, existing); err != nil {
				return stats, fmt.Errorf("update action %s: %w", key.Code(), err)
			}
			stats.ActionsUpdated++
		}
	}

	for _, cp := range cat.Policies {
		if cp.RoleID == "" {
			return stats, fmt.Errorf("%w: policy role is required", ErrInvalidInput)
		}
		action, err := actions.Find(ctx, cp.Action)
		if err != nil {
			return stats, fmt.Errorf("policy for %s: %w", cp.Action.Code(), err)
		}
		existing, err := policies.Find(ctx, cp.RoleID, action.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			p := &Policy{
				RoleID: cp.RoleID, ActionID: action.ID,
				Repeatable: cp.Repeatable, DistinctSigner: cp.DistinctSigner,
				Notes: cp.Notes,
			}
			if err := policies.Create(ctx, p); err != nil {
				return stats, fmt.Errorf("create policy %s/%s: %w", cp.RoleID, cp.Action.Code(), err)
			}
			stats.PoliciesCreated++
		case err != nil:
			return stats, err
		default:
			if existing.Repeatable == cp.Repeatable && existing.DistinctSigner == cp.DistinctSigner &&
				existing.Notes == cp.Notes {
				continue
			}
			existing.Repeatable = cp.Repeatable
			existing.DistinctSigner = cp.DistinctSigner
			existing.Notes = cp.Notes
			if err := policies.Update(ctx, existing); err != nil {
				return stats, fmt.Errorf("update policy %s/%s: %w", cp.RoleID, cp.Action.Code(), err)
			}
			stats.PoliciesUpdated++
		}
	}

	return stats, nil
}

func stageOrDash(stage string) string {
	if stage == "" {
		return "-"
	}
	return stage
}
