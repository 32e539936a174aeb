package apperror

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"
)

// FromDB translates a store error into the taxonomy. Nil stays nil.
func FromDB(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			field := constraintField(pqErr.Constraint)
			return Conflict(field, field+" already exists").Wrap(err)
		case "23503":
			return Policy("still_referenced", "record is referenced by other records").Wrap(err)
		case "23514", "22P02", "22003":
			return Validation("invalid_value", "value violates a constraint").Wrap(err)
		case "40001", "40P01", "55P03", "57014":
			return Transient(err)
		}
		if pqErr.Code.Class() == "08" || pqErr.Code.Class() == "53" {
			return Transient(err)
		}
		return Internal(err)
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return Transient(err)
	}
	return Internal(err)
}

// constraintField turns "users_email_key" into "email".
func constraintField(constraint string) string {
	name := strings.TrimSuffix(constraint, "_key")
	if i := strings.Index(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "value"
	}
	return name
}
