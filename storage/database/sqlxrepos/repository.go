package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/trezcool/elimu/core"
)

// repository holds what every aggregate repository shares.
type repository struct {
	db *sqlx.DB
}

// getExec returns the executor passed in by a service (usually a transaction),
// falling back to the database handle.
func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.db
}

// trapNoRowsErr maps sql.ErrNoRows to notFound and wraps anything else with msg.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns notFound when res touched no row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// uniqueViolation reports the constraint named by a unique violation, e.g. "users_email_key".
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}

	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) && sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		// UNIQUE constraint failed: users.email
		msg := sqErr.Error()
		if i := strings.Index(msg, "failed: "); i >= 0 {
			cols := strings.Fields(msg[i+len("failed: "):])
			if len(cols) > 0 {
				return strings.Replace(strings.TrimSuffix(cols[0], ","), ".", "_", 1) + "_key", true
			}
		}
		return "", true
	}
	return "", false
}
