/*
Package tally is the core of the sales-performance tracking module.

PURPOSE:
  This package contains the domain types and algorithms for tracking daily
  sales activity. Agents log one record per calendar day (visits, calls,
  demos, policies sold, premium collected); administrators read dashboards
  and leaderboards aggregated per agent and per fiscal quarter ("session").

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A calendar day (no time-of-day component)
  - Period: An inclusive [start, end] date range
  - Record: One agent's activity counters for one day
  - Session: A named fiscal-quarter date range used to scope aggregation
  - User: An agent or administrator known to the platform

DESIGN PRINCIPLES:
  1. One record per (user, date): enforced by the storage layer
  2. Zero-defaulting: empty aggregation scopes yield zeros, never nulls
  3. Purity: computations take their scope as parameters, never read
     ambient "current session" state

SEE ALSO:
  - quarter.go: Quarter-session date arithmetic
  - stats.go: Totals, conversion ratios, leaderboards
  - service.go: Orchestration over the Store
*/
package tally

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day (the only time granularity in this system)
// =============================================================================

// Date is a calendar day, normalized to midnight UTC.
type Date struct {
	Time time.Time
}

// NewDate constructs a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "2006-01-02" string. Malformed input (including
// out-of-range components like 2024-02-30) fails with ErrInvalidDate;
// it is never clamped to a nearby valid day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

// Today returns the current calendar day.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is the time boundary for aggregation. Both ends are inclusive.
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// USER - Agent or administrator
// =============================================================================

// Role determines whether a user may read the whole organization's data.
type Role string

const (
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// IsAdmin reports whether the user holds the elevated role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// =============================================================================
// COUNTS - The nine activity counters plus premium
// =============================================================================

// Counts holds the activity counters logged per day and summed by
// aggregation. Premium is an integer amount in rupees.
type Counts struct {
	Visits       int
	Appointments int
	Leads        int
	Calls        int
	Demos        int
	Letters      int
	FollowUps    int
	Proposals    int
	Policies     int
	Premium      int
}

// Add accumulates another set of counts into this one.
func (c *Counts) Add(other Counts) {
	c.Visits += other.Visits
	c.Appointments += other.Appointments
	c.Leads += other.Leads
	c.Calls += other.Calls
	c.Demos += other.Demos
	c.Letters += other.Letters
	c.FollowUps += other.FollowUps
	c.Proposals += other.Proposals
	c.Policies += other.Policies
	c.Premium += other.Premium
}

// =============================================================================
// RECORD - One agent's tally for one day
// =============================================================================

// Record is one agent's activity for one calendar day. Identity is
// (UserID, Date); at most one record exists per pair. Updates only
// change the counters, never the identity.
type Record struct {
	ID     int64
	UserID string
	Date   Date
	Counts
}

// =============================================================================
// SESSION - Named fiscal-quarter date range
// =============================================================================

// Session is a fiscal quarter. Name is unique and deterministically
// derived from (year, quarter); [Start, End] spans exactly the three
// months of that quarter. Sessions are created lazily and never mutated.
type Session struct {
	ID    int64
	Name  string
	Start Date
	End   Date
}

// Period returns the session's date range.
func (s Session) Period() Period { return Period{Start: s.Start, End: s.End} }

// IsActive reports whether the given day falls inside the session.
func (s Session) IsActive(today Date) bool { return s.Period().Contains(today) }
