package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"focusflow/internal/core/session"
	applog "focusflow/internal/log"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go driver
)

const sessionsFileName = "sessions.db"

// SessionStore persists session records in SQLite. It implements session.Log.
type SessionStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// SessionsPath returns the default session database location for appName.
func SessionsPath(appName string) (string, error) {
	dataDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dataDir, appName, sessionsFileName), nil
}

// OpenSessionStore opens or creates the session database at dbPath.
func OpenSessionStore(dbPath string) (*SessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SessionStore{db: db, logger: applog.WithComponent("storage")}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (store *SessionStore) Close() error {
	return store.db.Close()
}

func (store *SessionStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id INTEGER NOT NULL UNIQUE,
		title TEXT NOT NULL,
		start_time TEXT NOT NULL,
		statistical_date_id TEXT NOT NULL,
		end_time TEXT NOT NULL,
		recorded_duration INTEGER NOT NULL,
		actual_duration INTEGER NOT NULL,
		net_duration INTEGER NOT NULL,
		goal_minutes INTEGER NOT NULL,
		pause_count INTEGER NOT NULL DEFAULT 0,
		adjustments TEXT NOT NULL DEFAULT '[]',
		total_adjustment INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_statistical_date ON sessions(statistical_date_id);
	`

	_, err := store.db.Exec(schema)
	return err
}

// List returns all records in append order. Rows with unreadable timestamps
// or adjustments are returned with those fields zeroed.
func (store *SessionStore) List(ctx context.Context) ([]session.Record, error) {
	query := `
	SELECT id, title, start_time, statistical_date_id, end_time,
		recorded_duration, actual_duration, net_duration, goal_minutes,
		pause_count, adjustments, total_adjustment
	FROM sessions
	ORDER BY seq
	`

	rows, err := store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []session.Record
	for rows.Next() {
		var record session.Record
		var startTime, endTime, adjustments string
		if err := rows.Scan(
			&record.ID, &record.Title, &startTime, &record.StatisticalDateID, &endTime,
			&record.RecordedDuration, &record.ActualDuration, &record.NetDuration, &record.GoalMinutes,
			&record.PauseCount, &adjustments, &record.TotalAdjustment,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		record.StartTime = store.parseTime(record.ID, "start_time", startTime)
		record.EndTime = store.parseTime(record.ID, "end_time", endTime)
		if err := json.Unmarshal([]byte(adjustments), &record.Adjustments); err != nil {
			store.logger.Warn().
				Err(err).
				Str("event", "sessions.bad_adjustments").
				Int64("id", record.ID).
				Msg("ignoring unreadable adjustments")
			record.Adjustments = nil
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return records, nil
}

// Append adds a record to the end of the log.
func (store *SessionStore) Append(ctx context.Context, record session.Record) error {
	if err := insertSession(ctx, store.db, record); err != nil {
		return fmt.Errorf("append session: %w", err)
	}
	return nil
}

// Remove deletes the record with the given id, if present.
func (store *SessionStore) Remove(ctx context.Context, id int64) error {
	if _, err := store.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Replace overwrites the whole log in one transaction.
func (store *SessionStore) Replace(ctx context.Context, records []session.Record) error {
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	for _, record := range records {
		if err := insertSession(ctx, tx, record); err != nil {
			return fmt.Errorf("replace session %d: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSession(ctx context.Context, db execer, record session.Record) error {
	adjustments := record.Adjustments
	if adjustments == nil {
		adjustments = []session.Adjustment{}
	}
	encoded, err := json.Marshal(adjustments)
	if err != nil {
		return fmt.Errorf("encode adjustments: %w", err)
	}

	query := `
	INSERT INTO sessions (
		id, title, start_time, statistical_date_id, end_time,
		recorded_duration, actual_duration, net_duration, goal_minutes,
		pause_count, adjustments, total_adjustment
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		record.ID, record.Title,
		record.StartTime.Format(time.RFC3339Nano), record.StatisticalDateID,
		record.EndTime.Format(time.RFC3339Nano),
		record.RecordedDuration, record.ActualDuration, record.NetDuration, record.GoalMinutes,
		record.PauseCount, string(encoded), record.TotalAdjustment,
	)
	return err
}

func (store *SessionStore) parseTime(id int64, column, value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		store.logger.Warn().
			Err(err).
			Str("event", "sessions.bad_time").
			Int64("id", id).
			Str("column", column).
			Msg("ignoring unreadable timestamp")
		return time.Time{}
	}
	return parsed
}
