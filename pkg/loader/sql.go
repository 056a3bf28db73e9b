package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DBOpener opens the database of a SQL source.
type DBOpener func(driver, dsn string) (*sql.DB, error)

// OpenDB opens a database by driver name. sqlite3 and postgresql are
// accepted as aliases.
func OpenDB(driver, dsn string) (*sql.DB, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		driver = "sqlite"
	case "postgres", "postgresql":
		driver = "postgres"
	case "mysql":
		driver = "mysql"
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	return sql.Open(driver, dsn)
}

// query runs src and returns its rows as objects keyed by column name.
func (l *Loader) query(ctx context.Context, src SQLSource) (any, error) {
	db, err := l.db(src.Driver, src.DSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, src.Query)
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec := make(map[string]any, len(cols))
		for i, c := range cols {
			// Text columns arrive as []byte from some drivers.
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
			} else {
				rec[c] = vals[i]
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
