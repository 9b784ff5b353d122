package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/verbalia/qasmith/internal/job"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the job archive and persisted
// QA datasets.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "qasmith.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Job archive ---

// ArchiveJob persists a terminal job. It satisfies the job manager's
// archiver hook.
func (s *Store) ArchiveJob(j job.Job) error {
	resultJSON := ""
	if j.Result != nil {
		b, err := json.Marshal(j.Result)
		if err != nil {
			return fmt.Errorf("serializing result for job %s: %w", j.ID, err)
		}
		resultJSON = string(b)
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO archived_jobs (id, type, status, progress, result_json, error, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Type, string(j.Status), j.Progress, resultJSON, j.Error,
		j.CreatedAt.UTC().Format(time.RFC3339), j.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetArchivedJob retrieves one archived job by id.
func (s *Store) GetArchivedJob(id string) (ArchivedJob, error) {
	var a ArchivedJob
	var createdAt, finishedAt string
	err := s.db.QueryRow(`
		SELECT id, type, status, progress, result_json, error, created_at, finished_at
		FROM archived_jobs WHERE id = ?`, id,
	).Scan(&a.ID, &a.Type, &a.Status, &a.Progress, &a.ResultJSON, &a.Error, &createdAt, &finishedAt)
	if err == sql.ErrNoRows {
		return ArchivedJob{}, ErrNotFound
	}
	if err != nil {
		return ArchivedJob{}, err
	}
	if a.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return ArchivedJob{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if a.FinishedAt, err = time.Parse(time.RFC3339, finishedAt); err != nil {
		return ArchivedJob{}, fmt.Errorf("parsing finished_at: %w", err)
	}
	return a, nil
}

// ListArchivedJobs returns the most recently finished jobs, newest first.
func (s *Store) ListArchivedJobs(limit int) ([]ArchivedJob, error) {
	rows, err := s.db.Query(`
		SELECT id, type, status, progress, result_json, error, created_at, finished_at
		FROM archived_jobs ORDER BY finished_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ArchivedJob
	for rows.Next() {
		var a ArchivedJob
		var createdAt, finishedAt string
		if err := rows.Scan(&a.ID, &a.Type, &a.Status, &a.Progress, &a.ResultJSON, &a.Error, &createdAt, &finishedAt); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if a.FinishedAt, err = time.Parse(time.RFC3339, finishedAt); err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// --- Datasets ---

// SaveDataset persists one QA generation output.
func (s *Store) SaveDataset(d Dataset) error {
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO datasets (id, source, qa_count, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.Source, d.QACount, d.PayloadJSON, createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetDataset retrieves one dataset by id.
func (s *Store) GetDataset(id string) (Dataset, error) {
	var d Dataset
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, source, qa_count, payload_json, created_at
		FROM datasets WHERE id = ?`, id,
	).Scan(&d.ID, &d.Source, &d.QACount, &d.PayloadJSON, &createdAt)
	if err == sql.ErrNoRows {
		return Dataset{}, ErrNotFound
	}
	if err != nil {
		return Dataset{}, err
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Dataset{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return d, nil
}

// ListDatasets returns the most recently saved datasets, newest first.
func (s *Store) ListDatasets(limit int) ([]Dataset, error) {
	rows, err := s.db.Query(`
		SELECT id, source, qa_count, payload_json, created_at
		FROM datasets ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Dataset
	for rows.Next() {
		var d Dataset
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Source, &d.QACount, &d.PayloadJSON, &createdAt); err != nil {
			return nil, err
		}
		if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}
