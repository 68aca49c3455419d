// Package quota enforces per-tenant monthly query limits and keeps the usage
// log. Counters are persisted so accounting survives process restarts; they
// are never tied to a UI session.
package quota

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // Import sqlite3 driver

	"civreply/internal/cerr"
	"civreply/internal/models"
)

// Governor gates queries against the plan table and records usage.
type Governor struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if necessary) the usage database at path.
func Open(path string) (*Governor, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to usage database: %w", err)
	}

	g := &Governor{db: db, now: time.Now}
	if err := g.initDB(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize usage database: %w", err)
	}
	return g, nil
}

func (g *Governor) initDB() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quota_counters (
		tenant TEXT NOT NULL,
		period TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (tenant, period)
	);
	CREATE TABLE IF NOT EXISTS query_log (
		id TEXT PRIMARY KEY,
		tenant TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		plan TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := g.db.Exec(schema)
	return err
}

// periodFor buckets counters by calendar month (UTC), matching the
// "queries per month" plan limits.
func (g *Governor) periodFor(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// CheckAndIncrement admits the query and bumps the tenant's counter, or
// returns a QuotaExceededError carrying the limit and current count.
// Enterprise usage is still counted, it is just never denied.
func (g *Governor) CheckAndIncrement(tenant string, plan models.Plan) error {
	policy, ok := models.PolicyFor(plan)
	if !ok {
		return fmt.Errorf("unknown plan: %s", plan)
	}

	period := g.periodFor(g.now())

	tx, err := g.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	err = tx.QueryRow(
		`SELECT count FROM quota_counters WHERE tenant = ? AND period = ?`,
		tenant, period).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read counter: %w", err)
	}

	if !policy.Unlimited() && count >= policy.QueryLimit {
		return &cerr.QuotaExceededError{
			Tenant: tenant,
			Plan:   string(plan),
			Limit:  policy.QueryLimit,
			Used:   count,
		}
	}

	_, err = tx.Exec(`
		INSERT INTO quota_counters (tenant, period, count) VALUES (?, ?, 1)
		ON CONFLICT(tenant, period) DO UPDATE SET count = count + 1`,
		tenant, period)
	if err != nil {
		return fmt.Errorf("failed to increment counter: %w", err)
	}

	return tx.Commit()
}

// Used reports the tenant's query count for the current period.
func (g *Governor) Used(tenant string) (int, error) {
	var count int
	err := g.db.QueryRow(
		`SELECT count FROM quota_counters WHERE tenant = ? AND period = ?`,
		tenant, g.periodFor(g.now())).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}
	return count, nil
}

// RecordQuery appends an answered query to the usage log.
func (g *Governor) RecordQuery(rec models.QueryRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = g.now().UTC()
	}

	_, err := g.db.Exec(`
		INSERT INTO query_log (id, tenant, question, answer, plan, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Tenant, rec.Question, rec.Answer,
		string(rec.Plan), rec.Role, rec.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// RecentQueries returns up to limit most recent log entries for a tenant.
func (g *Governor) RecentQueries(tenant string, limit int) ([]models.QueryRecord, error) {
	rows, err := g.db.Query(`
		SELECT id, tenant, question, answer, plan, role, created_at
		FROM query_log WHERE tenant = ?
		ORDER BY created_at DESC LIMIT ?`, tenant, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.QueryRecord
	for rows.Next() {
		var (
			rec            models.QueryRecord
			id, plan, when string
		)
		if err := rows.Scan(&id, &rec.Tenant, &rec.Question, &rec.Answer, &plan, &rec.Role, &when); err != nil {
			return nil, err
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failed to parse record id %s: %w", id, err)
		}
		rec.Plan = models.Plan(plan)
		if rec.CreatedAt, err = time.Parse(time.RFC3339, when); err != nil {
			return nil, fmt.Errorf("failed to parse record time %s: %w", when, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the usage database.
func (g *Governor) Close() error {
	return g.db.Close()
}
