// Package database persists finished run reports to a local sqlite file.
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/agent"
)

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.InitSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// InitSchema creates the database tables if they don't exist
func (db *DB) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agent_reports (
		run_id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL,
		site_url TEXT NOT NULL,
		final_verdict TEXT NOT NULL,
		final_phase TEXT NOT NULL,
		iterations INTEGER NOT NULL,
		edge_url TEXT,
		error TEXT,
		report_json TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_site_id ON agent_reports(site_id);
	CREATE INDEX IF NOT EXISTS idx_reports_started_at ON agent_reports(started_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SaveReport upserts one finished run report. The full report is stored
// as JSON alongside the queryable columns.
func (db *DB) SaveReport(report *agent.Report) error {
	blob, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO agent_reports
			(run_id, site_id, site_url, final_verdict, final_phase, iterations, edge_url, error, report_json, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			final_verdict = excluded.final_verdict,
			final_phase = excluded.final_phase,
			iterations = excluded.iterations,
			edge_url = excluded.edge_url,
			error = excluded.error,
			report_json = excluded.report_json,
			ended_at = excluded.ended_at`,
		report.RunID, report.SiteID, report.SiteURL,
		string(report.FinalVerdict), string(report.FinalPhase), report.Iterations,
		report.EdgeURL, report.Error, string(blob), report.Started, nullableTime(report.Ended))
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport loads one report by run id.
func (db *DB) GetReport(runID string) (*agent.Report, error) {
	var blob string
	err := db.conn.QueryRow(
		`SELECT report_json FROM agent_reports WHERE run_id = ?`, runID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report %s: %w", runID, agent.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report %s: %w", runID, err)
	}

	var report agent.Report
	if err := json.Unmarshal([]byte(blob), &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", runID, err)
	}
	return &report, nil
}

// ListReports returns the most recent reports, newest first.
func (db *DB) ListReports(limit int) ([]*agent.Report, error) {
	rows, err := db.conn.Query(
		`SELECT report_json FROM agent_reports ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*agent.Report
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		var report agent.Report
		if err := json.Unmarshal([]byte(blob), &report); err != nil {
			return nil, fmt.Errorf("failed to decode report row: %w", err)
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
