// Package postgres holds the durable store: bun repositories for quizzes,
// questions, and participants, and a pgx-backed answer store for the
// submission hot path. The uniqueness invariant on (clicker_id, question_id)
// is enforced here, in the database, not by the engine's read-then-write
// sequence.
package postgres

import (
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// OpenDB builds a bun DB over the pgdriver connector.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
