package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type failure int

const (
	failureUnknown failure = iota
	failurePassThrough
	failureNotFound
	failureDuplicate
	failureReference
	failureCheck
	failureBusy
)

// classify maps driver errors from either dialect onto the store taxonomy.
func classify(err error) failure {
	if isPassThrough(err) {
		return failurePassThrough
	}
	if errors.Is(err, sql.ErrNoRows) {
		return failureNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// The per-attempt timeout expired while waiting on the store.
		return failureBusy
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		return classifySQLite(se.Code(), se.Error())
	}

	var pe *pq.Error
	if errors.As(err, &pe) {
		return classifyPostgres(string(pe.Code))
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "database table is locked"):
		return failureBusy
	case strings.Contains(msg, "unique constraint failed"):
		return failureDuplicate
	}
	return failureUnknown
}

func classifySQLite(code int, msg string) failure {
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return failureDuplicate
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return failureReference
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return failureCheck
	}

	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return failureBusy
	case sqlite3.SQLITE_CONSTRAINT:
		// Extended codes are not always reported; fall back to the message.
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed"):
			return failureDuplicate
		case strings.Contains(msg, "FOREIGN KEY constraint failed"):
			return failureReference
		case strings.Contains(msg, "CHECK constraint failed"):
			return failureCheck
		}
	}
	return failureUnknown
}

func classifyPostgres(code string) failure {
	switch code {
	case "23505":
		return failureDuplicate
	case "23503":
		return failureReference
	case "23514":
		return failureCheck
	case "40001", "40P01", "55P03":
		return failureBusy
	}
	return failureUnknown
}
