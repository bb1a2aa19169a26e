package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PostgreSQL error codes this package cares about. Either driver may be in
// use underneath database/sql, so both error shapes are recognized.
const (
	codeInvalidPassword  = "28P01"
	codeUndefinedTable   = "42P01"
	codeInvalidCatalog   = "3D000"
	codeInsufficientPriv = "42501"
)

// sqlState extracts the five-character SQLSTATE from a pgx or lib/pq error,
// or "" when err came from neither driver.
func sqlState(err error) string {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsInvalidPassword reports whether err is an authentication failure.
func IsInvalidPassword(err error) bool {
	return sqlState(err) == codeInvalidPassword
}

// IsUndefinedTable reports whether err means the queried table does not exist.
func IsUndefinedTable(err error) bool {
	return sqlState(err) == codeUndefinedTable
}

// IsUnknownDatabase reports whether err means the named database does not exist.
func IsUnknownDatabase(err error) bool {
	return sqlState(err) == codeInvalidCatalog
}

// IsPermissionDenied reports whether err is a privilege failure.
func IsPermissionDenied(err error) bool {
	return sqlState(err) == codeInsufficientPriv
}
