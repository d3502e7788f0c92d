package scanstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"fidscope/internal/inspect"
	"fidscope/internal/model"
)

// DB wraps a SQLite database holding scan history. Persistence is an
// implementation convenience, not part of the scoring contract: verdicts are
// recomputable from the fetched inputs at any time.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS scans (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  query TEXT NOT NULL,
	  total INTEGER NOT NULL,
	  spam INTEGER NOT NULL,
	  suspicious INTEGER NOT NULL,
	  healthy INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scans_ts ON scans(ts);
	CREATE TABLE IF NOT EXISTS verdicts (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  scan_id INTEGER NOT NULL REFERENCES scans(id),
	  fid INTEGER NOT NULL,
	  username TEXT,
	  spam_score INTEGER NOT NULL,
	  labels TEXT,
	  trust TEXT,
	  inactivity_days INTEGER,
	  age_days INTEGER,
	  age_label TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_verdicts_scan ON verdicts(scan_id);
	CREATE INDEX IF NOT EXISTS idx_verdicts_fid ON verdicts(fid);
	`)
	return err
}

// Scan is a stored scan run with its summary.
type Scan struct {
	ID         int64
	TS         time.Time
	Query      string
	Total      int
	Spam       int
	Suspicious int
	Healthy    int
}

// Verdict is a stored per-account verdict row.
type Verdict struct {
	FID            int64
	Username       string
	SpamScore      int
	Labels         []string
	Trust          model.TrustLevel
	InactivityDays int
	AgeDays        int
	AgeLabel       string
}

// RecordScan persists a scan report and returns the scan id.
func (d *DB) RecordScan(ctx context.Context, ts time.Time, query string, report *inspect.Report) (int64, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO scans(ts, query, total, spam, suspicious, healthy) VALUES(?,?,?,?,?,?)`,
		ts.Unix(), query, report.Summary.Total, report.Summary.Spam, report.Summary.Suspicious, report.Summary.Healthy)
	if err != nil {
		return 0, err
	}
	scanID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, r := range report.Results {
		lb, _ := json.Marshal(r.Verdict.SpamLabels)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO verdicts(scan_id, fid, username, spam_score, labels, trust, inactivity_days, age_days, age_label)
			 VALUES(?,?,?,?,?,?,?,?,?)`,
			scanID, r.Profile.FID, r.Profile.Username, r.Verdict.SpamScore, string(lb),
			string(r.Verdict.TrustLevel), r.Verdict.InactivityDays,
			r.Verdict.AccountAge.Days, r.Verdict.AccountAge.Label)
		if err != nil {
			return 0, err
		}
	}
	return scanID, tx.Commit()
}

// RecentScans returns the newest scans first.
func (d *DB) RecentScans(ctx context.Context, limit int) ([]Scan, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, ts, query, total, spam, suspicious, healthy FROM scans ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Scan
	for rows.Next() {
		var s Scan
		var ts int64
		if err := rows.Scan(&s.ID, &ts, &s.Query, &s.Total, &s.Spam, &s.Suspicious, &s.Healthy); err != nil {
			return nil, err
		}
		s.TS = time.Unix(ts, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// ScanVerdicts returns the verdicts stored for one scan, worst first.
func (d *DB) ScanVerdicts(ctx context.Context, scanID int64) ([]Verdict, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT fid, username, spam_score, labels, trust, inactivity_days, age_days, age_label
		 FROM verdicts WHERE scan_id=? ORDER BY spam_score DESC, fid`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Verdict
	for rows.Next() {
		var v Verdict
		var labels sql.NullString
		var trust string
		if err := rows.Scan(&v.FID, &v.Username, &v.SpamScore, &labels, &trust, &v.InactivityDays, &v.AgeDays, &v.AgeLabel); err != nil {
			return nil, err
		}
		if labels.Valid && labels.String != "" {
			_ = json.Unmarshal([]byte(labels.String), &v.Labels)
		}
		v.Trust = model.TrustLevel(trust)
		out = append(out, v)
	}
	return out, rows.Err()
}

// FIDHistory returns past verdicts for one account, newest first, for
// tracking how a score drifts across scans.
func (d *DB) FIDHistory(ctx context.Context, fid int64, limit int) ([]Verdict, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT v.fid, v.username, v.spam_score, v.labels, v.trust, v.inactivity_days, v.age_days, v.age_label
		 FROM verdicts v JOIN scans s ON s.id = v.scan_id
		 WHERE v.fid=? ORDER BY s.ts DESC, v.id DESC LIMIT ?`, fid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Verdict
	for rows.Next() {
		var v Verdict
		var labels sql.NullString
		var trust string
		if err := rows.Scan(&v.FID, &v.Username, &v.SpamScore, &labels, &trust, &v.InactivityDays, &v.AgeDays, &v.AgeLabel); err != nil {
			return nil, err
		}
		if labels.Valid && labels.String != "" {
			_ = json.Unmarshal([]byte(labels.String), &v.Labels)
		}
		v.Trust = model.TrustLevel(trust)
		out = append(out, v)
	}
	return out, rows.Err()
}
