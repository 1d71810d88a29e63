/*
service.go - Orchestration of session resolution and aggregation

PURPOSE:
  Service glues the pure computations (quarter.go, stats.go) to the
  Store. It owns the two core flows:

  1. Session resolution: map a date to its fiscal quarter and ensure a
     persisted session exists (idempotent get-or-create). Concurrent
     callers for a new quarter race on the unique session name; the
     loser re-fetches the winner's row.

  2. Aggregation: dashboard totals and leaderboards for a (user,
     session) scope. The scope is always passed in explicitly; Service
     never reads ambient "current session" state, which keeps these
     paths trivially testable.

AUTHORIZATION:
  Service is role-agnostic. Whether a caller may aggregate the whole
  organization or only themselves is decided by the API layer before
  the call (see api/handlers.go).

SEE ALSO:
  - quarter.go: Quarter date arithmetic
  - stats.go: Ratio and ranking computations
  - api/scheduler.go: Periodic session pre-generation using SeedSessions
*/
package tally

import (
	"context"
	"errors"
	"fmt"
)

// Service exposes the tally module's operations over a Store.
type Service struct {
	store Store
}

// NewService creates a Service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// =============================================================================
// SESSION RESOLUTION
// =============================================================================

// ResolveSessionForDate returns the persisted session for the fiscal
// quarter containing the date, creating it if absent. Safe to call for
// any valid date, past or future; never updates or deletes. The second
// of two concurrent creators gets the existing row, not a constraint
// failure.
func (s *Service) ResolveSessionForDate(ctx context.Context, d Date) (Session, error) {
	if d.IsZero() {
		return Session{}, fmt.Errorf("%w: zero date", ErrInvalidDate)
	}

	name, period := QuarterForDate(d)

	sess, err := s.store.GetSessionByName(ctx, name)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return Session{}, err
	}

	created, err := s.store.InsertSession(ctx, Session{
		Name:  name,
		Start: period.Start,
		End:   period.End,
	})
	if err == nil {
		return created, nil
	}
	if errors.Is(err, ErrSessionExists) {
		// Lost the get-or-create race; the winner's row is authoritative.
		return s.store.GetSessionByName(ctx, name)
	}
	return Session{}, err
}

// SeedSessions ensures a session exists for every quarter from the one
// containing `from` through the one containing `through`. Returns the
// number of quarters ensured. Already-present sessions are left alone.
func (s *Service) SeedSessions(ctx context.Context, from, through Date) (int, error) {
	if from.After(through) {
		return 0, fmt.Errorf("%w: seed start %s after %s", ErrInvalidDate, from, through)
	}

	ensured := 0
	year, quarter := QuarterOf(from)
	for {
		period := QuarterPeriod(year, quarter)
		if _, err := s.ResolveSessionForDate(ctx, period.Start); err != nil {
			return ensured, err
		}
		ensured++

		if period.End.AfterOrEqual(through) {
			return ensured, nil
		}
		quarter++
		if quarter > 4 {
			quarter = 1
			year++
		}
	}
}

// =============================================================================
// RECORDS
// =============================================================================

// SaveRecord upserts an agent's daily record and ensures the session
// covering its date exists.
func (s *Service) SaveRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.UserID == "" {
		return Record{}, fmt.Errorf("record requires a user id")
	}
	if rec.Date.IsZero() {
		return Record{}, fmt.Errorf("%w: record requires a date", ErrInvalidDate)
	}

	saved, err := s.store.UpsertRecord(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	if _, err := s.ResolveSessionForDate(ctx, saved.Date); err != nil {
		return Record{}, err
	}
	return saved, nil
}

// =============================================================================
// AGGREGATION
// =============================================================================

// DashboardTotals computes the zero-defaulted sums, record count, and
// conversion ratios for a scope. An empty userID aggregates all agents;
// a nil session ignores dates.
func (s *Service) DashboardTotals(ctx context.Context, userID string, session *Session) (Totals, error) {
	sums, formsFilled, err := s.store.AggregateTotals(ctx, statsFilter(userID, session))
	if err != nil {
		return Totals{}, err
	}
	return NewTotals(sums, formsFilled), nil
}

// Leaderboards ranks all agents per metric within the session scope.
// When highlightUserID has no matching records, a rank-0 zero-value
// placeholder carrying their display name is attached to every board;
// an unknown highlight user simply yields no CurrentUser entry.
func (s *Service) Leaderboards(ctx context.Context, highlightUserID string, session *Session) (map[Metric]Leaderboard, error) {
	rows, err := s.store.AggregateByUser(ctx, statsFilter("", session))
	if err != nil {
		return nil, err
	}

	boards := BuildLeaderboards(rows, highlightUserID)
	if highlightUserID == "" || boards[LeaderboardMetrics[0]].CurrentUser != nil {
		return boards, nil
	}

	u, err := s.store.GetUser(ctx, highlightUserID)
	if errors.Is(err, ErrUserNotFound) {
		return boards, nil
	}
	if err != nil {
		return nil, err
	}

	for metric, board := range boards {
		board.CurrentUser = &LeaderboardEntry{
			Rank:     RankNotRanked,
			UserID:   u.ID,
			UserName: u.Name,
			Value:    0,
		}
		boards[metric] = board
	}
	return boards, nil
}

func statsFilter(userID string, session *Session) StatsFilter {
	filter := StatsFilter{UserID: userID}
	if session != nil {
		period := session.Period()
		filter.Period = &period
	}
	return filter
}
