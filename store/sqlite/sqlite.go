/*
Package sqlite provides a SQLite-backed implementation of tally.Store.

PURPOSE:
  Implements persistence for tally records, fiscal sessions, and users
  using SQLite. In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  tallies:   One row per (agent, day), counters updated in place
  sessions:  Fiscal quarters, unique by name, never mutated
  users:     Agents and administrators

UNIQUENESS CONSTRAINTS DOING REAL WORK:
  UNIQUE(user_id, date) on tallies:  at most one record per agent per
      day; UpsertRecord rides it with ON CONFLICT ... DO UPDATE.
  UNIQUE(name) on sessions:  the entire correctness of the concurrent
      session get-or-create. The second writer's INSERT fails with a
      constraint violation which is translated to tally.ErrSessionExists
      so the resolver re-fetches the winner's row.

AGGREGATION:
  SUM/COUNT with COALESCE happen in SQL. Dates are stored as
  "YYYY-MM-DD" text, so BETWEEN on the date column compares correctly.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers do not
  block the single writer.

USAGE:
  store, err := sqlite.New("./data/tally.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - tally/store.go: Interface definition and contracts
  - tally/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/lariv/tally-engine/tally"
)

// Store implements tally.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Users (agents and administrators)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT NOT NULL DEFAULT 'agent',
		created_at TEXT NOT NULL
	);

	-- Daily tally records. Identity is (user_id, date); counters are the
	-- only mutable part of a row.
	CREATE TABLE IF NOT EXISTS tallies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		visits INTEGER NOT NULL DEFAULT 0,
		appointments INTEGER NOT NULL DEFAULT 0,
		leads INTEGER NOT NULL DEFAULT 0,
		calls INTEGER NOT NULL DEFAULT 0,
		demos INTEGER NOT NULL DEFAULT 0,
		letters INTEGER NOT NULL DEFAULT 0,
		follow_ups INTEGER NOT NULL DEFAULT 0,
		proposals INTEGER NOT NULL DEFAULT 0,
		policies INTEGER NOT NULL DEFAULT 0,
		premium INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(user_id, date)
	);

	-- Hot path: date-range aggregation, optionally per user
	CREATE INDEX IF NOT EXISTS idx_tallies_date ON tallies(date);
	CREATE INDEX IF NOT EXISTS idx_tallies_user_date ON tallies(user_id, date);

	-- Fiscal-quarter sessions. UNIQUE(name) backs the get-or-create race.
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const tallyColumns = `id, user_id, date, visits, appointments, leads, calls,
	demos, letters, follow_ups, proposals, policies, premium`

// =============================================================================
// RECORDS
// =============================================================================

// UpsertRecord inserts or updates the record for (UserID, Date). The
// UNIQUE(user_id, date) constraint routes a duplicate insert into the
// DO UPDATE branch, so the uniqueness invariant holds under concurrency.
func (s *Store) UpsertRecord(ctx context.Context, rec tally.Record) (tally.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tallies (user_id, date, visits, appointments, leads, calls,
			demos, letters, follow_ups, proposals, policies, premium,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			visits = excluded.visits,
			appointments = excluded.appointments,
			leads = excluded.leads,
			calls = excluded.calls,
			demos = excluded.demos,
			letters = excluded.letters,
			follow_ups = excluded.follow_ups,
			proposals = excluded.proposals,
			policies = excluded.policies,
			premium = excluded.premium,
			updated_at = excluded.updated_at`,
		rec.UserID, rec.Date.String(),
		rec.Visits, rec.Appointments, rec.Leads, rec.Calls,
		rec.Demos, rec.Letters, rec.FollowUps, rec.Proposals,
		rec.Policies, rec.Premium,
		now, now,
	)
	if err != nil {
		return tally.Record{}, fmt.Errorf("failed to upsert record: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+tallyColumns+` FROM tallies WHERE user_id = ? AND date = ?`,
		rec.UserID, rec.Date.String(),
	)
	return scanRecord(row)
}

// GetRecord returns a record by id.
func (s *Store) GetRecord(ctx context.Context, id int64) (tally.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+tallyColumns+` FROM tallies WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tally.Record{}, tally.ErrRecordNotFound
	}
	return rec, err
}

// ListRecords returns matching records, newest first.
func (s *Store) ListRecords(ctx context.Context, filter tally.RecordFilter) ([]tally.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + tallyColumns + ` FROM tallies WHERE 1=1`
	args := []any{}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Date != nil {
		query += ` AND date = ?`
		args = append(args, filter.Date.String())
	}
	query += ` ORDER BY date DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	result := []tally.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// DeleteRecord removes a record by id.
func (s *Store) DeleteRecord(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM tallies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return tally.ErrRecordNotFound
	}
	return nil
}

// =============================================================================
// AGGREGATION
// =============================================================================

// AggregateTotals sums every counter and counts matching rows. COALESCE
// turns the NULL sums of an empty scope into zeros.
func (s *Store) AggregateTotals(ctx context.Context, filter tally.StatsFilter) (tally.Counts, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT
			COALESCE(SUM(visits), 0),
			COALESCE(SUM(appointments), 0),
			COALESCE(SUM(leads), 0),
			COALESCE(SUM(calls), 0),
			COALESCE(SUM(demos), 0),
			COALESCE(SUM(letters), 0),
			COALESCE(SUM(follow_ups), 0),
			COALESCE(SUM(proposals), 0),
			COALESCE(SUM(policies), 0),
			COALESCE(SUM(premium), 0),
			COUNT(id)
		FROM tallies WHERE 1=1`
	query, args := applyStatsFilter(query, filter, "")

	var sums tally.Counts
	var count int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&sums.Visits, &sums.Appointments, &sums.Leads, &sums.Calls,
		&sums.Demos, &sums.Letters, &sums.FollowUps, &sums.Proposals,
		&sums.Policies, &sums.Premium, &count,
	)
	if err != nil {
		return tally.Counts{}, 0, fmt.Errorf("failed to aggregate totals: %w", err)
	}
	return sums, count, nil
}

// AggregateByUser groups matching rows by agent and sums each counter.
// Display names come from the users table; an unknown user id falls
// back to the id itself.
func (s *Store) AggregateByUser(ctx context.Context, filter tally.StatsFilter) ([]tally.UserTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT
			t.user_id,
			COALESCE(u.name, t.user_id),
			COALESCE(SUM(t.visits), 0),
			COALESCE(SUM(t.appointments), 0),
			COALESCE(SUM(t.leads), 0),
			COALESCE(SUM(t.calls), 0),
			COALESCE(SUM(t.demos), 0),
			COALESCE(SUM(t.letters), 0),
			COALESCE(SUM(t.follow_ups), 0),
			COALESCE(SUM(t.proposals), 0),
			COALESCE(SUM(t.policies), 0),
			COALESCE(SUM(t.premium), 0)
		FROM tallies t
		LEFT JOIN users u ON u.id = t.user_id
		WHERE 1=1`
	query, args := applyStatsFilter(query, filter, "t.")
	query += ` GROUP BY t.user_id ORDER BY t.user_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by user: %w", err)
	}
	defer rows.Close()

	result := []tally.UserTotals{}
	for rows.Next() {
		var row tally.UserTotals
		if err := rows.Scan(
			&row.UserID, &row.UserName,
			&row.Visits, &row.Appointments, &row.Leads, &row.Calls,
			&row.Demos, &row.Letters, &row.FollowUps, &row.Proposals,
			&row.Policies, &row.Premium,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func applyStatsFilter(query string, filter tally.StatsFilter, prefix string) (string, []any) {
	args := []any{}
	if filter.UserID != "" {
		query += ` AND ` + prefix + `user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Period != nil {
		query += ` AND ` + prefix + `date BETWEEN ? AND ?`
		args = append(args, filter.Period.Start.String(), filter.Period.End.String())
	}
	return query, args
}

// =============================================================================
// SESSIONS
// =============================================================================

// GetSessionByName returns a session by its unique name.
func (s *Store) GetSessionByName(ctx context.Context, name string) (tally.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, start_date, end_date FROM sessions WHERE name = ?`, name)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tally.Session{}, tally.ErrSessionNotFound
	}
	return sess, err
}

// InsertSession persists a new session. A unique-name violation is
// translated to tally.ErrSessionExists; anything else propagates.
func (s *Store) InsertSession(ctx context.Context, sess tally.Session) (tally.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (name, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?)`,
		sess.Name, sess.Start.String(), sess.End.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return tally.Session{}, tally.ErrSessionExists
		}
		return tally.Session{}, fmt.Errorf("failed to insert session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return tally.Session{}, err
	}
	sess.ID = id
	return sess, nil
}

// ListSessions returns all sessions ordered by start date.
func (s *Store) ListSessions(ctx context.Context) ([]tally.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, start_date, end_date FROM sessions ORDER BY start_date`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	result := []tally.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

// =============================================================================
// USERS
// =============================================================================

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (tally.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u tally.User
	var email sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, role FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &email, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return tally.User{}, tally.ErrUserNotFound
	}
	if err != nil {
		return tally.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	u.Email = email.String
	return u, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]tally.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, role FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	result := []tally.User{}
	for rows.Next() {
		var u tally.User
		var email sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &email, &u.Role); err != nil {
			return nil, err
		}
		u.Email = email.String
		result = append(result, u)
	}
	return result, rows.Err()
}

// CreateUser persists a new user.
func (s *Store) CreateUser(ctx context.Context, u tally.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	role := u.Role
	if role == "" {
		role = tally.RoleAgent
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, string(role),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return tally.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (tally.Record, error) {
	var rec tally.Record
	var date string
	err := row.Scan(
		&rec.ID, &rec.UserID, &date,
		&rec.Visits, &rec.Appointments, &rec.Leads, &rec.Calls,
		&rec.Demos, &rec.Letters, &rec.FollowUps, &rec.Proposals,
		&rec.Policies, &rec.Premium,
	)
	if err != nil {
		return tally.Record{}, err
	}
	rec.Date, err = tally.ParseDate(date)
	if err != nil {
		return tally.Record{}, fmt.Errorf("corrupt date column: %w", err)
	}
	return rec, nil
}

func scanSession(row rowScanner) (tally.Session, error) {
	var sess tally.Session
	var start, end string
	if err := row.Scan(&sess.ID, &sess.Name, &start, &end); err != nil {
		return tally.Session{}, err
	}
	var err error
	if sess.Start, err = tally.ParseDate(start); err != nil {
		return tally.Session{}, fmt.Errorf("corrupt start_date column: %w", err)
	}
	if sess.End, err = tally.ParseDate(end); err != nil {
		return tally.Session{}, fmt.Errorf("corrupt end_date column: %w", err)
	}
	return sess, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
