package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateRollupViews(db); err != nil {
		return fmt.Errorf("creating rollup views: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id           TEXT PRIMARY KEY,
		owner_id     TEXT NOT NULL,
		market_id    TEXT NOT NULL,
		session_date TEXT NOT NULL,
		day_of_week  INTEGER NOT NULL CHECK(day_of_week BETWEEN 0 AND 6),
		status       TEXT NOT NULL DEFAULT 'draft'
		             CHECK(status IN ('draft','active','finalized')),
		punch_in_at  TEXT,
		punch_out_at TEXT,
		finalized_at TEXT,
		version      INTEGER NOT NULL DEFAULT 1,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,

	// At most one open session per owner and date.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_open_owner_date
		ON sessions(owner_id, session_date) WHERE status IN ('draft','active')`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_market_date ON sessions(market_id, session_date)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_date_status ON sessions(session_date, status)`,

	`CREATE TABLE IF NOT EXISTS task_records (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		task_type  TEXT NOT NULL
		           CHECK(task_type IN ('allocation','punch_in','land_search','stall_search',
		                               'money_recovery','assets_usage','feedback','inspection','punch_out')),
		payload    TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_task_records_session ON task_records(session_id, task_type)`,
	// Punch markers are singletons per session.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_task_records_singleton
		ON task_records(session_id, task_type) WHERE task_type IN ('punch_in','punch_out')`,

	`CREATE TABLE IF NOT EXISTS collection_records (
		id              TEXT PRIMARY KEY,
		session_id      TEXT NOT NULL REFERENCES sessions(id),
		market_id       TEXT NOT NULL,
		owner_id        TEXT NOT NULL,
		collection_date TEXT NOT NULL,
		amount_minor    INTEGER NOT NULL CHECK(amount_minor > 0),
		note            TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_collections_market_date ON collection_records(market_id, collection_date)`,
	`CREATE INDEX IF NOT EXISTS idx_collections_session ON collection_records(session_id)`,
}

// rollupViews are the precomputed per-market, per-date projections read by
// the aggregation fast path. They are dropped and recreated on every start so
// a changed definition always takes effect.
var rollupViews = map[string]string{
	"market_day_sessions": `SELECT
			market_id,
			session_date,
			COUNT(*) AS session_count,
			SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END) AS active_sessions,
			COUNT(DISTINCT CASE WHEN status IN ('active','finalized') THEN owner_id END) AS active_employees
		FROM sessions
		GROUP BY market_id, session_date`,
	"market_day_tasks": `SELECT
			s.market_id AS market_id,
			s.session_date AS session_date,
			t.task_type AS task_type,
			COUNT(*) AS task_count
		FROM task_records t
		JOIN sessions s ON s.id = t.session_id
		GROUP BY s.market_id, s.session_date, t.task_type`,
	"market_day_collections": `SELECT
			market_id,
			collection_date,
			SUM(amount_minor) AS total_minor,
			COUNT(*) AS collection_count
		FROM collection_records
		GROUP BY market_id, collection_date`,
}

// RollupViewNames lists the fast-path views in creation order.
var RollupViewNames = []string{"market_day_sessions", "market_day_tasks", "market_day_collections"}

func migrateRollupViews(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("starting view migration: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, name := range RollupViewNames {
		if _, err := tx.Exec(`DROP VIEW IF EXISTS ` + name); err != nil {
			return fmt.Errorf("dropping view %s: %w", name, err)
		}
		if _, err := tx.Exec(`CREATE VIEW ` + name + ` AS ` + rollupViews[name]); err != nil {
			return fmt.Errorf("creating view %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing view migration: %w", err)
	}
	committed = true
	return nil
}
