package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/docmirror/docmirror/internal/model"
)

// DBFileName is the SQLite database file name inside the database directory.
const DBFileName = "docmirror.db"

// CrawlDB provides SQLite-based storage for mirror run history.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses mode=rw to prevent creating new files and
	// mode=rwc to allow creation.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports only one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Runs store one row per mirror invocation, with the full report as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root_url TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		cancelled INTEGER DEFAULT 0,
		pages_succeeded INTEGER DEFAULT 0,
		pages_failed INTEGER DEFAULT 0,
		image_count INTEGER DEFAULT 0,
		image_bytes INTEGER DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Pages store per-URL outcomes for history queries across runs
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		title TEXT,
		markdown_path TEXT,
		status TEXT NOT NULL,
		reason TEXT,
		retries INTEGER DEFAULT 0,
		images_embedded INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);

	-- Images store the deduplicated assets referenced by a run
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		source_url TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		byte_size INTEGER DEFAULT 0,
		local_path TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_images_run ON images(run_id);
	CREATE INDEX IF NOT EXISTS idx_images_hash ON images(content_hash);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun persists a completed mirror run. The full report is stored as
// JSON; pages and images additionally get relational rows for querying.
func (cdb *CrawlDB) SaveRun(ctx context.Context, report *model.MirrorReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("serialize report: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	cancelled := 0
	if report.Cancelled {
		cancelled = 1
	}
	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (root_url, output_dir, started_at, finished_at, cancelled,
		pages_succeeded, pages_failed, image_count, image_bytes, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RootURL,
		report.OutputDir,
		report.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		report.FinishedAt.UTC().Format("2006-01-02 15:04:05"),
		cancelled,
		report.SucceededCount(),
		report.FailedCount(),
		len(report.Images),
		report.ImageBytes(),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for _, page := range report.Results {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO pages (run_id, url, title, markdown_path, status, reason, retries, images_embedded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, page.URL, page.Title, page.MarkdownPath,
			string(page.Status), page.Reason, page.Retries, page.ImagesEmbedded,
		); err != nil {
			return 0, fmt.Errorf("insert page: %w", err)
		}
	}

	for _, img := range report.Images {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO images (run_id, source_url, content_hash, byte_size, local_path)
		VALUES (?, ?, ?, ?, ?)`,
			runID, img.SourceURL, img.ContentHash, img.ByteSize, img.LocalPath,
		); err != nil {
			return 0, fmt.Errorf("insert image: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// RunMetadata summarizes one stored run without loading the full report.
type RunMetadata struct {
	// ID is the run's database identifier.
	ID int64

	// RootURL is the crawl root of the run.
	RootURL string

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run completed.
	FinishedAt time.Time

	// Cancelled indicates the run was interrupted.
	Cancelled bool

	// PagesSucceeded and PagesFailed count per-URL outcomes.
	PagesSucceeded int
	PagesFailed    int

	// ImageCount and ImageBytes describe the stored images.
	ImageCount int
	ImageBytes int64
}

// ListRuns returns stored runs, newest first. rootURL filters by crawl root
// when non-empty.
func (cdb *CrawlDB) ListRuns(ctx context.Context, rootURL string) ([]RunMetadata, error) {
	query := `
	SELECT id, root_url, started_at, finished_at, cancelled,
		pages_succeeded, pages_failed, image_count, image_bytes
	FROM runs
	`
	args := make([]any, 0, 1)
	if rootURL != "" {
		query += " WHERE root_url = ?"
		args = append(args, rootURL)
	}
	query += " ORDER BY started_at DESC, id DESC"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var started, finished string
		var cancelled int

		if err := rows.Scan(&meta.ID, &meta.RootURL, &started, &finished, &cancelled,
			&meta.PagesSucceeded, &meta.PagesFailed, &meta.ImageCount, &meta.ImageBytes,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		meta.StartedAt = parseTimestamp(started)
		meta.FinishedAt = parseTimestamp(finished)
		meta.Cancelled = cancelled != 0
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRunReport retrieves the full report for a run by its database ID.
// Returns nil without error when the run does not exist.
func (cdb *CrawlDB) GetRunReport(ctx context.Context, id int64) (*model.MirrorReport, error) {
	var reportJSON string
	err := cdb.db.QueryRowContext(ctx,
		`SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run report: %w", err)
	}

	var report model.MirrorReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("parse run report: %w", err)
	}
	return &report, nil
}

// PageHistory is one page outcome from a past run.
type PageHistory struct {
	// RunID identifies the run this outcome belongs to.
	RunID int64

	// StartedAt is when that run began.
	StartedAt time.Time

	// Result is the stored per-URL outcome.
	Result model.CrawlResult
}

// GetPageHistory returns the outcomes of one URL across all runs, newest
// first.
func (cdb *CrawlDB) GetPageHistory(ctx context.Context, url string) ([]PageHistory, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT p.run_id, r.started_at, p.url, p.title, p.markdown_path, p.status,
		p.reason, p.retries, p.images_embedded
	FROM pages p
	JOIN runs r ON r.id = p.run_id
	WHERE p.url = ?
	ORDER BY r.started_at DESC, p.run_id DESC`, url)
	if err != nil {
		return nil, fmt.Errorf("get page history: %w", err)
	}
	defer rows.Close()

	var results []PageHistory
	for rows.Next() {
		var h PageHistory
		var started, status string

		if err := rows.Scan(&h.RunID, &started, &h.Result.URL, &h.Result.Title,
			&h.Result.MarkdownPath, &status, &h.Result.Reason,
			&h.Result.Retries, &h.Result.ImagesEmbedded,
		); err != nil {
			return nil, fmt.Errorf("scan page history: %w", err)
		}

		h.StartedAt = parseTimestamp(started)
		h.Result.Status = model.CrawlStatus(status)
		results = append(results, h)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending on
// configuration. If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
