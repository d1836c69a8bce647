package errors

// pgx error mapping for the control and lock repositories

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes the repositories can hit
const (
	sqlUnique      = "23505"
	sqlForeignKey  = "23503"
	sqlNotNull     = "23502"
	sqlCheck       = "23514"
	sqlTooLong     = "22001"
	sqlBadText     = "22P02"
	sqlSerialize   = "40001"
	sqlDeadlock    = "40P01"
	sqlLockTimeout = "55P03"
	sqlReadOnly    = "25006"
	sqlStarting    = "57P03"
)

func pgRoot(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if stderrs.As(Root(err), &pe) {
		return pe, true
	}
	return nil, false
}

// DBErrorCode maps a PgError onto an ErrorCode; ok is false for anything else.
// A lock_timeout on a device row stays a DB error: the lock service reports
// contention as BusyError itself, so a timeout here means the row is stuck
func DBErrorCode(err error) (ErrorCode, bool) {
	pe, ok := pgRoot(err)
	if !ok {
		return ErrorCodeUnknown, false
	}
	switch pe.Code {
	case sqlUnique:
		return ErrorCodeDuplicateKey, true
	case sqlNotNull, sqlCheck:
		return ErrorCodeValidation, true
	case sqlForeignKey, sqlTooLong, sqlBadText:
		return ErrorCodeInvalidArgument, true
	case sqlReadOnly, sqlStarting:
		return ErrorCodeUnavailable, true
	}
	if strings.HasPrefix(pe.Code, "08") {
		return ErrorCodeUnavailable, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with its mapped code; nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// FromPostgresWithField is FromPostgres plus the offending column when the
// server reported one (config.device, contacts.id, ...)
func FromPostgresWithField(err error, msg string) error {
	out := FromPostgres(err, msg)
	if pe, ok := pgRoot(err); ok {
		if col := strings.TrimSpace(pe.ColumnName); col != "" {
			return WithField(out, col)
		}
	}
	return out
}

// IsRetryable reports transient failures: serialization, deadlock, lock_timeout
// and dropped connections. Context cancellation never is.
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pe, ok := pgRoot(err); ok {
		switch pe.Code {
		case sqlSerialize, sqlDeadlock, sqlLockTimeout, sqlStarting:
			return true
		}
		return strings.HasPrefix(pe.Code, "08")
	}
	s := strings.ToLower(Root(err).Error())
	for _, frag := range []string{
		"commit unexpectedly resulted in rollback",
		"canceling statement due to lock timeout",
		"conn closed",
		"connection reset by peer",
	} {
		if strings.Contains(s, frag) {
			return true
		}
	}
	return false
}
