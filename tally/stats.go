/*
stats.go - Dashboard totals, conversion ratios, and leaderboards

PURPOSE:
  Pure computations over aggregated rows. The Store does the SQL-level
  summing; this file derives the presentation-ready numbers:
  - Totals: zero-defaulted sums, record count, three funnel conversion
    ratios rounded to one decimal place
  - Leaderboards: per-metric descending ranking of agents with a top-5
    slice and an optional highlighted "current user" entry

RATIOS:
  Each ratio is a percentage of one funnel stage converting to the next:
    appointments/visits, demos/appointments, policies/demos.
  A zero denominator yields 0, never a division failure. Rounding uses
  decimal arithmetic so 1/3 comes out as 33.3, not 33.300000000000004.

LEADERBOARD RANKING:
  Agents are sorted descending by the summed metric value, ties broken
  by user id ascending so ranking is deterministic, and assigned ranks
  1..N in that order. An agent with no matching records is absent from
  the ranking; callers may synthesize a rank-0 placeholder for them
  (see Service.Leaderboards).

SEE ALSO:
  - service.go: Fetches aggregated rows and applies these computations
  - store/sqlite/sqlite.go: The SQL aggregation feeding this
*/
package tally

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TOTALS - Dashboard summary for a scope
// =============================================================================

// Totals is the dashboard summary for a (user, period) scope. All fields
// are zero-valued when no records match; presentation never null-checks.
type Totals struct {
	Counts

	// FormsFilled is the number of matching records.
	FormsFilled int

	// Conversion ratios as percentages rounded to one decimal place.
	ApptVisitRatio  decimal.Decimal
	DemoApptRatio   decimal.Decimal
	PolicyDemoRatio decimal.Decimal
}

// NewTotals derives the ratio fields from summed counts.
func NewTotals(sums Counts, formsFilled int) Totals {
	return Totals{
		Counts:          sums,
		FormsFilled:     formsFilled,
		ApptVisitRatio:  ConversionRatio(sums.Appointments, sums.Visits),
		DemoApptRatio:   ConversionRatio(sums.Demos, sums.Appointments),
		PolicyDemoRatio: ConversionRatio(sums.Policies, sums.Demos),
	}
}

// ConversionRatio returns 100*num/den rounded to one decimal place,
// or 0 when the denominator is not positive.
func ConversionRatio(num, den int) decimal.Decimal {
	if den <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(num)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(den))).
		Round(1)
}

// =============================================================================
// LEADERBOARDS
// =============================================================================

// Metric identifies one of the leaderboard dimensions.
type Metric string

const (
	MetricVisits   Metric = "visits"
	MetricDemos    Metric = "demos"
	MetricPolicies Metric = "policies"
	MetricPremium  Metric = "premium"
)

// LeaderboardMetrics lists the metrics a leaderboard is computed for.
var LeaderboardMetrics = []Metric{MetricVisits, MetricDemos, MetricPolicies, MetricPremium}

// UserTotals is one agent's summed counts within a scope.
type UserTotals struct {
	UserID   string
	UserName string
	Counts
}

// MetricValue returns the summed value for one leaderboard metric.
func (u UserTotals) MetricValue(m Metric) int {
	switch m {
	case MetricVisits:
		return u.Visits
	case MetricDemos:
		return u.Demos
	case MetricPolicies:
		return u.Policies
	case MetricPremium:
		return u.Premium
	default:
		return 0
	}
}

// RankNotRanked marks an entry synthesized for an agent with no matching
// records. Real ranks start at 1.
const RankNotRanked = 0

// LeaderboardEntry is one row of a ranked leaderboard.
type LeaderboardEntry struct {
	Rank     int
	UserID   string
	UserName string
	Value    int
}

// Ranked reports whether the entry holds a real rank.
func (e LeaderboardEntry) Ranked() bool { return e.Rank != RankNotRanked }

// Leaderboard is the ranking for one metric. TopFive always holds the
// rank 1-5 entries. CurrentUser is the highlighted agent's entry,
// duplicated even when it already appears in TopFive; nil when no
// agent was highlighted. Placeholder synthesis for a highlighted agent
// absent from the ranking happens in Service.Leaderboards, where the
// display name can be looked up.
type Leaderboard struct {
	TopFive     []LeaderboardEntry
	CurrentUser *LeaderboardEntry
}

// BuildLeaderboard ranks agents descending by one metric. Ties are
// broken by user id ascending.
func BuildLeaderboard(rows []UserTotals, metric Metric, highlightUserID string) Leaderboard {
	entries := make([]LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = LeaderboardEntry{
			UserID:   row.UserID,
			UserName: row.UserName,
			Value:    row.MetricValue(metric),
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].UserID < entries[j].UserID
	})

	var board Leaderboard
	for i := range entries {
		entries[i].Rank = i + 1
		if entries[i].UserID == highlightUserID {
			entry := entries[i]
			board.CurrentUser = &entry
		}
	}

	top := len(entries)
	if top > 5 {
		top = 5
	}
	board.TopFive = entries[:top]
	return board
}

// BuildLeaderboards computes one Leaderboard per metric from the same
// grouped rows.
func BuildLeaderboards(rows []UserTotals, highlightUserID string) map[Metric]Leaderboard {
	boards := make(map[Metric]Leaderboard, len(LeaderboardMetrics))
	for _, m := range LeaderboardMetrics {
		boards[m] = BuildLeaderboard(rows, m, highlightUserID)
	}
	return boards
}
