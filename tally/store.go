/*
store.go - Persistence interface for records, sessions, and users

PURPOSE:
  Defines the contract between the domain logic and the database.
  Aggregation happens inside the Store (SQL SUM/COUNT with zero
  coalescing) so the domain never loads raw rows to add them up.

KEY CONTRACTS:
  UpsertRecord:   At most one record per (user, date). Re-saving the
                  same pair updates the counters in place.
  InsertSession:  Guarded by a uniqueness constraint on the session
                  name. A concurrent duplicate insert surfaces as
                  ErrSessionExists so the caller can re-fetch instead
                  of failing (get-or-create race, see service.go).
  Aggregate*:     Empty scopes return zero-valued results, never an
                  error. Storage failures propagate unmodified.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - tally/store/memory.go: In-memory for testing

SEE ALSO:
  - service.go: Orchestration built on this interface
  - errors.go: Sentinel errors referenced by the contract
*/
package tally

import "context"

// RecordFilter restricts record listing. Zero values mean "all".
type RecordFilter struct {
	UserID string
	Date   *Date
}

// StatsFilter restricts aggregation. An empty UserID aggregates across
// all agents; a nil Period ignores dates entirely.
type StatsFilter struct {
	UserID string
	Period *Period
}

// Store handles persistence for the tally module.
type Store interface {
	// UpsertRecord inserts the record, or updates its counters if a
	// record for (UserID, Date) already exists. Returns the stored row.
	UpsertRecord(ctx context.Context, rec Record) (Record, error)

	// GetRecord returns a record by id, or ErrRecordNotFound.
	GetRecord(ctx context.Context, id int64) (Record, error)

	// ListRecords returns matching records ordered by date descending.
	ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error)

	// DeleteRecord removes a record by id, or ErrRecordNotFound.
	DeleteRecord(ctx context.Context, id int64) error

	// AggregateTotals sums every counter across matching records and
	// counts them. No matches yields all zeros.
	AggregateTotals(ctx context.Context, filter StatsFilter) (Counts, int, error)

	// AggregateByUser groups matching records by agent and sums each
	// counter per agent. Agents with no matching records are absent.
	AggregateByUser(ctx context.Context, filter StatsFilter) ([]UserTotals, error)

	// GetSessionByName returns a session, or ErrSessionNotFound.
	GetSessionByName(ctx context.Context, name string) (Session, error)

	// InsertSession persists a new session, or returns ErrSessionExists
	// when the unique name is already taken.
	InsertSession(ctx context.Context, sess Session) (Session, error)

	// ListSessions returns all sessions ordered by start date.
	ListSessions(ctx context.Context) ([]Session, error)

	// GetUser returns a user by id, or ErrUserNotFound.
	GetUser(ctx context.Context, id string) (User, error)

	// ListUsers returns all users ordered by name.
	ListUsers(ctx context.Context) ([]User, error)

	// CreateUser persists a new user, or returns ErrUserExists.
	CreateUser(ctx context.Context, u User) error
}
