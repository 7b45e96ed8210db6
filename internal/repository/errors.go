package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the repositories translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

var (
	ErrDuplicate         = errors.New("record already exists")
	ErrReferenceNotFound = errors.New("referenced record does not exist")
	ErrInUse             = errors.New("record is still referenced")
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// translateWriteErr maps constraint violations on insert/update to package errors.
func translateWriteErr(err error) error {
	switch pgCode(err) {
	case pgUniqueViolation:
		return ErrDuplicate
	case pgForeignKeyViolation:
		return ErrReferenceNotFound
	}
	return err
}

// translateDeleteErr maps a foreign key violation on delete to ErrInUse.
func translateDeleteErr(err error) error {
	if pgCode(err) == pgForeignKeyViolation {
		return ErrInUse
	}
	return err
}
