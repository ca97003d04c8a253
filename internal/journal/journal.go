package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Mode describes how control passed to the application.
type Mode string

const (
	// ModeExec means mptx replaced itself with the interpreter.
	ModeExec Mode = "exec"
	// ModeChild means mptx ran the interpreter and waited for it.
	ModeChild Mode = "child"
	// ModeSupervised means the serve command owned the process group.
	ModeSupervised Mode = "supervised"
)

// ErrNotFound is returned when no launch matches a run ID.
var ErrNotFound = errors.New("launch not found")

// Launch is one recorded invocation of an entry point.
type Launch struct {
	ID         int64
	RunID      string
	Target     string
	Root       string
	Command    string
	Mode       Mode
	PID        int
	URL        string
	StartedAt  time.Time
	FinishedAt *time.Time
	ExitCode   *int
}

// Running reports whether the launch has no recorded exit.
func (l Launch) Running() bool {
	return l.FinishedAt == nil
}

// Journal persists launches in SQLite.
type Journal struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode    = 5
	busyRetryAttempts = 5
	busyRetryBackoff  = 20 * time.Millisecond
)

// Open creates or connects to the journal database at path.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	j := &Journal{db: db, path: path}
	if err := j.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database file location.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record inserts a new launch and fills in its ID. StartedAt defaults to now.
func (j *Journal) Record(ctx context.Context, launch *Launch) error {
	if launch == nil {
		return errors.New("launch is nil")
	}
	if strings.TrimSpace(launch.RunID) == "" {
		return errors.New("launch run id is empty")
	}
	if launch.StartedAt.IsZero() {
		launch.StartedAt = time.Now().UTC()
	}

	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = j.db.ExecContext(ctx,
			`INSERT INTO launches (run_id, target, root, command, mode, pid, url, started_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			launch.RunID,
			launch.Target,
			launch.Root,
			launch.Command,
			string(launch.Mode),
			nullableInt(launch.PID),
			nullableString(launch.URL),
			formatTime(launch.StartedAt),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("insert launch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("launch id: %w", err)
	}
	launch.ID = id
	return nil
}

// UpdateProcess stores the child PID and served URL. Zero or empty values
// keep what is already recorded.
func (j *Journal) UpdateProcess(ctx context.Context, runID string, pid int, url string) error {
	return j.update(ctx, runID,
		`UPDATE launches SET pid = COALESCE(?, pid), url = COALESCE(?, url) WHERE run_id = ?`,
		nullableInt(pid), nullableString(url), runID)
}

// Finish records the exit code of a launch.
func (j *Journal) Finish(ctx context.Context, runID string, exitCode int) error {
	return j.update(ctx, runID,
		`UPDATE launches SET finished_at = ?, exit_code = ? WHERE run_id = ?`,
		formatTime(time.Now().UTC()), exitCode, runID)
}

func (j *Journal) update(ctx context.Context, runID, query string, args ...any) error {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = j.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("update launch %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update launch %s: %w", runID, ErrNotFound)
	}
	return nil
}

const launchColumns = `id, run_id, target, root, command, mode, pid, url, started_at, finished_at, exit_code`

// Get returns the launch recorded under runID.
func (j *Journal) Get(ctx context.Context, runID string) (*Launch, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+launchColumns+` FROM launches WHERE run_id = ?`, runID)
	launch, err := scanLaunch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return launch, nil
}

// Recent returns up to limit launches, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Launch, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+launchColumns+` FROM launches ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query launches: %w", err)
	}
	defer rows.Close()

	var out []Launch
	for rows.Next() {
		launch, err := scanLaunch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *launch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate launches: %w", err)
	}
	return out, nil
}

// Prune deletes launches that started before cutoff and are finished or were
// handed off with exec, which never records an exit.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = j.db.ExecContext(ctx,
			`DELETE FROM launches WHERE (finished_at IS NOT NULL OR mode = ?) AND started_at < ?`,
			string(ModeExec), formatTime(cutoff.UTC()))
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune launches: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLaunch(s scanner) (*Launch, error) {
	var (
		launch   Launch
		mode     string
		pid      sql.NullInt64
		url      sql.NullString
		started  string
		finished sql.NullString
		exitCode sql.NullInt64
	)
	if err := s.Scan(&launch.ID, &launch.RunID, &launch.Target, &launch.Root, &launch.Command,
		&mode, &pid, &url, &started, &finished, &exitCode); err != nil {
		return nil, err
	}
	launch.Mode = Mode(mode)
	launch.PID = int(pid.Int64)
	launch.URL = url.String
	var err error
	if launch.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if finished.Valid {
		ts, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		launch.FinishedAt = &ts
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		launch.ExitCode = &code
	}
	return &launch, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) {
			return lastErr
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return lastErr
}

// timeLayout has a fixed-width fraction so stored values sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value <= 0 {
		return nil
	}
	return value
}
