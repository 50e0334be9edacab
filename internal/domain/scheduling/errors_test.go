package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := &Error{Kind: KindConnection, Op: "load_all", Err: errors.New("dial tcp: refused")}

	if !errors.Is(err, ErrConnection) {
		t.Error("expected match on ErrConnection")
	}
	if errors.Is(err, ErrQuery) {
		t.Error("did not expect match on ErrQuery")
	}
	if !errors.Is(fmt.Errorf("booking: %w", err), ErrConnection) {
		t.Error("expected match through fmt wrapping")
	}
}

func TestError_TransactionFailureMatchesCause(t *testing.T) {
	cause := &Error{Kind: KindReferentialIntegrity, Op: "save", Entity: "appointment", SQLState: "23503"}
	err := &Error{Kind: KindTransactionFailure, Op: "save", Entity: "appointment", Err: cause}

	if !errors.Is(err, ErrTransactionFailure) {
		t.Error("expected ErrTransactionFailure")
	}
	if !errors.Is(err, ErrReferentialIntegrity) {
		t.Error("expected cause kind to match")
	}
	if KindOf(err) != KindTransactionFailure {
		t.Errorf("expected outermost kind, got %v", KindOf(err))
	}
}

func TestError_DistinctInstancesDoNotMatch(t *testing.T) {
	a := &Error{Kind: KindQuery, Op: "save"}
	b := &Error{Kind: KindQuery, Op: "load_all"}
	if errors.Is(a, b) {
		t.Error("only kind-only sentinels should match by kind")
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{
		Kind:       KindConstraintViolation,
		Op:         "save_doctor",
		Entity:     "doctor",
		Constraint: "medicos_nombre_especialidad_key",
		Err:        errors.New("duplicate key"),
	}
	msg := err.Error()
	for _, want := range []string{"save_doctor doctor", "constraint violation", "medicos_nombre_especialidad_key", "duplicate key"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestKindOf_NonTyped(t *testing.T) {
	if KindOf(errors.New("x")) != 0 {
		t.Error("expected zero kind for plain error")
	}
}

func TestKind_String(t *testing.T) {
	kinds := map[Kind]string{
		KindQuery:                 "query",
		KindConnection:            "connection",
		KindConstraintViolation:   "constraint_violation",
		KindReferentialIntegrity:  "referential_integrity",
		KindNotFoundAfterConflict: "not_found_after_conflict",
		KindTransactionFailure:    "transaction_failure",
		Kind(0):                   "unknown",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, k.String(), want)
		}
	}
}
