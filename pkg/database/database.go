package database

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "github.com/lib/pq"
	"github.com/suh3art/Recon-toolkit/pkg/config"
)

var DebugLog func(string, ...interface{})

type DB struct {
	conn    *sql.DB
	enabled bool
}

type URLRecord struct {
	Target    string
	URL       string
	Status    string
	FirstSeen time.Time
	LastSeen  time.Time
}

const DBName = "recon_track"

const (
	StatusNew    = "NEW"
	StatusActive = "ACTIVE"
	StatusDead   = "DEAD"
)

func connString(cfg *config.Database, dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable connect_timeout=10",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, dbname)
}

// New connects to Postgres and creates the tracking database and schema on
// first use. A disabled config yields a no-op DB.
func New(cfg *config.Database) (*DB, error) {
	db := &DB{
		enabled: cfg.Enabled,
	}

	if !cfg.Enabled {
		return db, nil
	}

	postgresConn, err := sql.Open("postgres", connString(cfg, "postgres"))
	if err != nil {
		return db, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer postgresConn.Close()

	if err := postgresConn.Ping(); err != nil {
		return db, fmt.Errorf("failed to ping postgres: %w", err)
	}

	var exists bool
	err = postgresConn.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", DBName).Scan(&exists)
	if err != nil {
		return db, fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		if _, err = postgresConn.Exec(fmt.Sprintf("CREATE DATABASE %s", DBName)); err != nil {
			return db, fmt.Errorf("failed to create database: %w", err)
		}
		if DebugLog != nil {
			DebugLog("database %s created", DBName)
		}
	}

	conn, err := sql.Open("postgres", connString(cfg, DBName))
	if err != nil {
		return db, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return db, fmt.Errorf("failed to ping database: %w", err)
	}

	db.conn = conn

	if err := db.initSchema(); err != nil {
		return db, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func newWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn, enabled: true}
}

func (db *DB) initSchema() error {
	if !db.enabled || db.conn == nil {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS live_hosts (
		id SERIAL PRIMARY KEY,
		target VARCHAR(255) NOT NULL,
		url VARCHAR(512) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'NEW',
		first_seen TIMESTAMP NOT NULL DEFAULT NOW(),
		last_seen TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE(target, url)
	);

	CREATE INDEX IF NOT EXISTS idx_live_hosts_target ON live_hosts(target);
	CREATE INDEX IF NOT EXISTS idx_live_hosts_status ON live_hosts(status);
	`

	_, err := db.conn.Exec(schema)
	return err
}

func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

func (db *DB) IsEnabled() bool {
	return db != nil && db.enabled && db.conn != nil
}

// TrackAliveURLs records the alive set of one probe run: unseen URLs become
// NEW, known ones ACTIVE, and tracked URLs missing from urls DEAD. All
// changes share one transaction; any failure rolls the run back.
func (db *DB) TrackAliveURLs(target string, urls []string) error {
	if !db.IsEnabled() {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	current := make(map[string]bool, len(urls))
	unique := make([]string, 0, len(urls))
	for _, url := range urls {
		if url == "" || current[url] {
			continue
		}
		current[url] = true
		unique = append(unique, url)
	}
	sort.Strings(unique)

	for _, url := range unique {
		result, err := tx.Exec(`
			UPDATE live_hosts
			SET status = $3, last_seen = NOW()
			WHERE target = $1 AND url = $2
		`, target, url, StatusActive)
		if err != nil {
			return err
		}

		if affected, _ := result.RowsAffected(); affected > 0 {
			if DebugLog != nil {
				DebugLog("marking %s as ACTIVE", url)
			}
			continue
		}

		if DebugLog != nil {
			DebugLog("inserting new live url %s", url)
		}
		if _, err := tx.Exec(`
			INSERT INTO live_hosts (target, url, status, first_seen, last_seen)
			VALUES ($1, $2, $3, NOW(), NOW())
		`, target, url, StatusNew); err != nil {
			return err
		}
	}

	rows, err := tx.Query(`
		SELECT url FROM live_hosts
		WHERE target = $1 AND status != $2
	`, target, StatusDead)
	if err != nil {
		return err
	}

	var dead []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			rows.Close()
			return err
		}
		if !current[url] {
			dead = append(dead, url)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, url := range dead {
		if DebugLog != nil {
			DebugLog("marking %s as DEAD (not alive in current run)", url)
		}
		if _, err := tx.Exec(`
			UPDATE live_hosts
			SET status = $3, last_seen = NOW()
			WHERE target = $1 AND url = $2
		`, target, url, StatusDead); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (db *DB) QueryURLs(target string, status string) ([]URLRecord, error) {
	if !db.IsEnabled() {
		return nil, fmt.Errorf("database is not enabled")
	}

	query := `
		SELECT target, url, status, first_seen, last_seen
		FROM live_hosts
		WHERE target = $1
	`
	args := []interface{}{target}

	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}

	query += " ORDER BY first_seen DESC"

	return db.queryRecords(query, args...)
}

func (db *DB) QueryAll(status string) ([]URLRecord, error) {
	if !db.IsEnabled() {
		return nil, fmt.Errorf("database is not enabled")
	}

	query := `
		SELECT target, url, status, first_seen, last_seen
		FROM live_hosts
	`
	var args []interface{}

	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}

	query += " ORDER BY target, first_seen DESC"

	return db.queryRecords(query, args...)
}

func (db *DB) queryRecords(query string, args ...interface{}) ([]URLRecord, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []URLRecord
	for rows.Next() {
		var r URLRecord
		if err := rows.Scan(&r.Target, &r.URL, &r.Status, &r.FirstSeen, &r.LastSeen); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}
