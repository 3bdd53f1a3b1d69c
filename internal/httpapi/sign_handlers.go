package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"hankosign.org/internal/auth"
	"hankosign.org/internal/hankosign"
	"hankosign.org/internal/people"
)

type signatureRequest struct {
	Action    string         `json:"action"`
	Target    targetRef      `json:"target"`
	Note      string         `json:"note"`
	Payload   map[string]any `json:"payload"`
	RequestID string         `json:"request_id"`
}

type targetRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type decisionRequest struct {
	Action string    `json:"action"`
	Target targetRef `json:"target"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSignatures is POST /v1/signatures: the sole HTTP write path into
// the ledger.
func (a *API) handleSignatures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actorID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req signatureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	key, target, err := a.resolveRequest(req.Action, req.Target)
	if err != nil {
		if errors.Is(err, hankosign.ErrDenied) {
			handleEngineError(w, r, err)
			return
		}
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var sig *hankosign.Signature
	if req.RequestID != "" {
		sig, err = a.engine.SignOnce(r.Context(), actorID, key, target, req.RequestID, req.Note)
	} else {
		sig, err = a.engine.RecordSignature(r.Context(), actorID, key, target, req.Note, req.Payload)
	}
	if err != nil {
		handleEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          sig.ID,
		"action":      key.Code(),
		"target":      targetRef{Type: sig.TargetType, ID: sig.TargetID},
		"signed_at":   sig.At,
		"fingerprint": sig.Fingerprint,
	})
}

// handleDecisions is POST /v1/decisions: the read-only eligibility probe
// for UI enablement. Denials are 200 responses, never errors.
func (a *API) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actorID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	key, target, err := a.resolveRequest(req.Action, req.Target)
	if err != nil {
		if reason := hankosign.DenialReason(err); reason != "" {
			writeJSON(w, http.StatusOK, map[string]any{"ok": false, "reason": reason})
			return
		}
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	d, err := a.engine.CanAct(r.Context(), actorID, key, target)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     d.OK,
		"reason": d.Reason,
	})
}

// handleTargetState is GET /v1/targets/{type}/{id}/state.
func (a *API) handleTargetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/targets/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "state" || parts[0] == "" || parts[1] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	typeKey, id := parts[0], parts[1]

	target, err := a.resolveTarget(r.Context(), typeKey, id)
	if err != nil {
		if errors.Is(err, hankosign.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "target not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	snap, err := a.engine.StateSnapshot(r.Context(), target)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	status := hankosign.StatusOf(snap)

	resp := map[string]any{
		"target": targetRef{Type: target.TypeKey(), ID: target.PrimaryKey()},
		"snapshot": map[string]any{
			"submitted":       snap.Submitted,
			"approved":        stageList(snap.Approved),
			"verified":        stageList(snap.Verified),
			"verified_any":    snap.VerifiedAny,
			"required":        stageList(snap.Required),
			"rejected":        snap.Rejected,
			"final":           snap.Final,
			"locked":          snap.Locked,
			"explicit_locked": snap.ExplicitLocked,
		},
		"status": map[string]any{"code": status.Code, "label": status.Label},
	}
	if fn, ok := a.statuses[target.TypeKey()]; ok {
		resp["domain_status"] = fn(target, snap)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogin is POST /v1/login: portal credentials in, bearer token out.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.people == nil {
		writeError(w, r, http.StatusNotFound, "login disabled")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.people.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, people.ErrUnauthorized) {
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	actorID := p.UserID
	if actorID == "" {
		actorID = p.ID
	}
	roles, err := a.people.ActiveRoles(r.Context(), p.ID, time.Now().UTC())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	const tokenTTL = 12 * time.Hour
	token, err := auth.GenerateToken(actorID, roles, tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(tokenTTL.Seconds()),
	})
}

// --- helpers ---

func (a *API) resolveRequest(actionCode string, ref targetRef) (hankosign.ActionKey, hankosign.Target, error) {
	key, err := hankosign.ParseActionCode(actionCode)
	if err != nil {
		// A malformed code is indistinguishable from an unknown action
		// to the caller. The parser's message stays out of responses.
		return hankosign.ActionKey{}, nil, hankosign.Denied(hankosign.ReasonUnknownAction)
	}
	if ref.Type == "" || ref.ID == "" {
		return hankosign.ActionKey{}, nil, errors.New("target type and id are required")
	}
	return key, hankosign.TargetRef{Type: ref.Type, ID: ref.ID}, nil
}

// resolveTarget loads the concrete domain object when a loader is
// registered, so state reads 404 on unknown rows; otherwise it falls back
// to the opaque reference.
func (a *API) resolveTarget(ctx context.Context, typeKey, id string) (hankosign.Target, error) {
	if a.registry != nil && a.registry.Known(typeKey) {
		return a.registry.Resolve(ctx, typeKey, id)
	}
	return hankosign.TargetRef{Type: typeKey, ID: id}, nil
}

func handleEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, hankosign.ErrDenied):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":  "forbidden",
			"reason": hankosign.DenialReason(err),
		})
	case errors.Is(err, hankosign.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, hankosign.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func stageList(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for st := range set {
		out = append(out, st)
	}
	sort.Strings(out)
	return out
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
