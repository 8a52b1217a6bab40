package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	if !isUniqueViolation(unique) {
		t.Error("23505 must be recognized as unique violation")
	}

	wrapped := errors.Join(errors.New("exec"), unique)
	if !isUniqueViolation(wrapped) {
		t.Error("wrapped 23505 must be recognized")
	}

	other := &pgconn.PgError{Code: "40001"}
	if isUniqueViolation(other) {
		t.Error("other pg error codes are not unique violations")
	}
	if isUniqueViolation(errors.New("plain")) {
		t.Error("plain errors are not unique violations")
	}
}
