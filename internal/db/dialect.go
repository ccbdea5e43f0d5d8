/**
 * @description
 * Backend selection and capability negotiation.
 * DATABASE_URL decides the backend: postgres:// URLs select the networked
 * backend, anything else is treated as an embedded SQLite path. Callers
 * never branch on the backend name; they consult the Dialect capability set.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/config
 */

package db

import (
	"strings"

	"github.com/licitabot/backend/internal/config"
	"gorm.io/gorm"
)

// Dialect describes what the active backend can do.
// Features absent from the set are absent from the query surface,
// not silently no-op.
type Dialect struct {
	Name                 string // "postgres" or "sqlite"
	SupportsTrigram      bool   // pg_trgm %% operator and similarity()
	SupportsPartitioning bool   // native RANGE partitioning
	Placeholder          string // parameter marker, informational
}

// Connect opens the backend selected by DATABASE_URL and returns the
// connection together with its negotiated Dialect.
func Connect(cfg *config.Config) (*gorm.DB, Dialect, error) {
	if isPostgresURL(cfg.DB.URL) {
		conn, err := ConnectPostgres(cfg)
		if err != nil {
			return nil, Dialect{}, err
		}
		return conn, Dialect{
			Name:                 "postgres",
			SupportsTrigram:      true,
			SupportsPartitioning: true,
			Placeholder:          "$1",
		}, nil
	}

	conn, err := ConnectSQLite(cfg)
	if err != nil {
		return nil, Dialect{}, err
	}
	return conn, Dialect{
		Name:                 "sqlite",
		SupportsTrigram:      false,
		SupportsPartitioning: false,
		Placeholder:          "?",
	}, nil
}

func isPostgresURL(u string) bool {
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}

func sqlitePath(u string) string {
	// Accept sqlite:// and file: prefixes as well as bare paths.
	if strings.HasPrefix(u, "sqlite://") {
		return strings.TrimPrefix(u, "sqlite://")
	}
	return u
}

// MonthExpr returns the SQL expression projecting close_date to "YYYY-MM"
// on the active backend. close_date is stored as "YYYY-MM-DD" text, so a
// prefix works everywhere; this keeps the guard query index-friendly.
func (d Dialect) MonthExpr(column string) string {
	return "substr(" + column + ", 1, 7)"
}
