package scheduling

import (
	"errors"
	"strings"
)

// Kind classifies a repository failure.
type Kind int

const (
	KindQuery Kind = iota + 1
	KindConnection
	KindConstraintViolation
	KindReferentialIntegrity
	KindNotFoundAfterConflict
	KindTransactionFailure
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindConnection:
		return "connection"
	case KindConstraintViolation:
		return "constraint_violation"
	case KindReferentialIntegrity:
		return "referential_integrity"
	case KindNotFoundAfterConflict:
		return "not_found_after_conflict"
	case KindTransactionFailure:
		return "transaction_failure"
	default:
		return "unknown"
	}
}

// Error is returned by every Repository method. SQLState and Constraint are
// filled in when the server rejected a statement.
type Error struct {
	Kind       Kind
	Op         string
	Entity     string
	SQLState   string
	Constraint string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Entity != "" {
		b.WriteString(" ")
		b.WriteString(e.Entity)
	}
	b.WriteString(": ")
	b.WriteString(strings.ReplaceAll(e.Kind.String(), "_", " "))
	if e.Constraint != "" {
		b.WriteString(" (")
		b.WriteString(e.Constraint)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind-only sentinels below, so errors.Is(err, ErrConnection)
// holds for any connection failure regardless of operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Entity != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrQuery                 = &Error{Kind: KindQuery}
	ErrConnection            = &Error{Kind: KindConnection}
	ErrConstraintViolation   = &Error{Kind: KindConstraintViolation}
	ErrReferentialIntegrity  = &Error{Kind: KindReferentialIntegrity}
	ErrNotFoundAfterConflict = &Error{Kind: KindNotFoundAfterConflict}
	ErrTransactionFailure    = &Error{Kind: KindTransactionFailure}
)

// Service-level failures.
var (
	ErrInvalidAppointment  = errors.New("invalid appointment")
	ErrInvalidDoctor       = errors.New("invalid doctor")
	ErrAppointmentRejected = errors.New("appointment rejected by validator")
)

// KindOf returns the kind of the outermost *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
