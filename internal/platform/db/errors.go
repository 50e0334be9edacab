package db

import (
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories react to.
const (
	NotNullViolation    = "23502"
	ForeignKeyViolation = "23503"
	UniqueViolation     = "23505"
	CheckViolation      = "23514"
	AdminShutdown       = "57P01"
	CrashShutdown       = "57P02"
	CannotConnectNow    = "57P03"
)

// SQLState returns the SQLSTATE carried by err, or "" when err did not come
// from the server.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsIntegrityViolation reports whether code belongs to class 23.
func IsIntegrityViolation(code string) bool {
	return strings.HasPrefix(code, "23")
}

// IsConnectionException reports whether code belongs to class 08 or signals
// that the server is going away.
func IsConnectionException(code string) bool {
	switch code {
	case AdminShutdown, CrashShutdown, CannotConnectNow:
		return true
	}
	return strings.HasPrefix(code, "08")
}

// IsConnectionError reports whether err means the store could not be
// reached or the link to it broke.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if IsConnectionException(SQLState(err)) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
