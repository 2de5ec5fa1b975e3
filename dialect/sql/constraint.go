package sql

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// IsConstraintError reports whether the error resulted from any database
// constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err) ||
		IsNotNullConstraintError(err)
}

// IsUniqueConstraintError reports whether the error resulted from a
// uniqueness constraint violation, e.g. a duplicate value in a unique
// column.
func IsUniqueConstraintError(err error) bool {
	return hasSQLState(err, pgUniqueViolation) ||
		containsAny(errString(err), "violates unique constraint")
}

// IsForeignKeyConstraintError reports whether the error resulted from a
// foreign-key constraint violation, e.g. a referenced row that does not
// exist.
func IsForeignKeyConstraintError(err error) bool {
	return hasSQLState(err, pgForeignKeyViolation) ||
		containsAny(errString(err), "violates foreign key constraint")
}

// IsCheckConstraintError reports whether the error resulted from a check
// constraint violation.
func IsCheckConstraintError(err error) bool {
	return hasSQLState(err, pgCheckViolation) ||
		containsAny(errString(err), "violates check constraint")
}

// IsNotNullConstraintError reports whether the error resulted from a
// NOT NULL constraint violation.
func IsNotNullConstraintError(err error) bool {
	return hasSQLState(err, pgNotNullViolation) ||
		containsAny(errString(err), "violates not-null constraint")
}

// ConstraintName returns the name of the violated constraint, or "" when
// the error carries none.
func ConstraintName(err error) string {
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return pqe.Constraint
	}
	return ""
}

func hasSQLState(err error, code string) bool {
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return string(pqe.Code) == code
	}
	// Other drivers expose the SQLSTATE through this method.
	var state interface{ SQLState() string }
	if errors.As(err, &state) {
		return state.SQLState() == code
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
