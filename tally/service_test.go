package tally_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lariv/tally-engine/tally"
	"github.com/lariv/tally-engine/tally/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*tally.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return tally.NewService(mem), mem
}

func seedUsers(t *testing.T, mem *store.Memory, users ...tally.User) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, mem.CreateUser(context.Background(), u))
	}
}

func record(userID string, date tally.Date, counts tally.Counts) tally.Record {
	return tally.Record{UserID: userID, Date: date, Counts: counts}
}

// =============================================================================
// SESSION RESOLUTION
// =============================================================================

func TestResolveSessionForDate_CreatesOnFirstTouch(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	sess, err := svc.ResolveSessionForDate(ctx, tally.NewDate(2024, time.February, 14))
	require.NoError(t, err)

	assert.Equal(t, "2024 Quarter 1", sess.Name)
	assert.Equal(t, "2024-01-01", sess.Start.String())
	assert.Equal(t, "2024-03-31", sess.End.String())

	sessions, err := mem.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestResolveSessionForDate_Idempotent(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	first, err := svc.ResolveSessionForDate(ctx, tally.NewDate(2024, time.January, 2))
	require.NoError(t, err)

	// A different date in the same quarter resolves to the same row.
	second, err := svc.ResolveSessionForDate(ctx, tally.NewDate(2024, time.March, 31))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Name, second.Name)

	sessions, err := mem.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1, "no duplicate session may be created")
}

func TestResolveSessionForDate_LosingTheRaceRefetches(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	// Another writer persists the quarter first.
	winner, err := mem.InsertSession(ctx, tally.Session{
		Name:  "2024 Quarter 3",
		Start: tally.NewDate(2024, time.July, 1),
		End:   tally.NewDate(2024, time.September, 30),
	})
	require.NoError(t, err)

	sess, err := svc.ResolveSessionForDate(ctx, tally.NewDate(2024, time.August, 9))
	require.NoError(t, err)
	assert.Equal(t, winner.ID, sess.ID, "resolver must adopt the winner's row")
}

func TestResolveSessionForDate_ZeroDate(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ResolveSessionForDate(context.Background(), tally.Date{})
	assert.ErrorIs(t, err, tally.ErrInvalidDate)
}

func TestSeedSessions_BackfillsThroughCurrentQuarter(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	ensured, err := svc.SeedSessions(ctx, tally.NewDate(2024, time.January, 1), tally.NewDate(2025, time.February, 10))
	require.NoError(t, err)
	assert.Equal(t, 5, ensured) // 2024 Q1-Q4 plus 2025 Q1

	sessions, err := mem.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 5)
	assert.Equal(t, "2024 Quarter 1", sessions[0].Name)
	assert.Equal(t, "2025 Quarter 1", sessions[4].Name)

	// Seeding again is a no-op.
	_, err = svc.SeedSessions(ctx, tally.NewDate(2024, time.January, 1), tally.NewDate(2025, time.February, 10))
	require.NoError(t, err)
	sessions, err = mem.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 5)
}

// =============================================================================
// RECORDS
// =============================================================================

func TestSaveRecord_EnsuresCoveringSession(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveRecord(ctx, record("agent-1", tally.NewDate(2024, time.May, 20), tally.Counts{Visits: 3}))
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	_, err = mem.GetSessionByName(ctx, "2024 Quarter 2")
	assert.NoError(t, err, "saving a record must auto-create its quarter session")
}

func TestSaveRecord_UpsertsByUserAndDate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	day := tally.NewDate(2024, time.May, 20)

	first, err := svc.SaveRecord(ctx, record("agent-1", day, tally.Counts{Visits: 3, Calls: 2}))
	require.NoError(t, err)

	second, err := svc.SaveRecord(ctx, record("agent-1", day, tally.Counts{Visits: 7}))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "identity (user, date) must be stable across updates")
	assert.Equal(t, 7, second.Visits)
	assert.Equal(t, 0, second.Calls, "update replaces counters wholesale")
}

func TestSaveRecord_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SaveRecord(ctx, record("", tally.NewDate(2024, time.May, 20), tally.Counts{}))
	assert.Error(t, err)

	_, err = svc.SaveRecord(ctx, record("agent-1", tally.Date{}, tally.Counts{}))
	assert.ErrorIs(t, err, tally.ErrInvalidDate)
}

// =============================================================================
// DASHBOARD TOTALS
// =============================================================================

func TestDashboardTotals_EmptyScopeIsAllZeros(t *testing.T) {
	svc, _ := newTestService(t)

	totals, err := svc.DashboardTotals(context.Background(), "", nil)
	require.NoError(t, err)

	assert.Equal(t, tally.Counts{}, totals.Counts)
	assert.Equal(t, 0, totals.FormsFilled)
	assert.True(t, totals.ApptVisitRatio.IsZero())
}

func TestDashboardTotals_RoundTripSingleRecord(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	day := tally.NewDate(2024, time.May, 20)

	_, err := svc.SaveRecord(ctx, record("agent-1", day, tally.Counts{
		Visits: 3, Appointments: 1, Demos: 1, Policies: 1, Premium: 12500,
	}))
	require.NoError(t, err)

	sess, err := svc.ResolveSessionForDate(ctx, day)
	require.NoError(t, err)

	totals, err := svc.DashboardTotals(ctx, "agent-1", &sess)
	require.NoError(t, err)

	// Counted exactly once within the covering session.
	assert.Equal(t, 3, totals.Visits)
	assert.Equal(t, 12500, totals.Premium)
	assert.Equal(t, 1, totals.FormsFilled)
	assert.Equal(t, "33.3", totals.ApptVisitRatio.String())
}

func TestDashboardTotals_SessionScopesDateRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SaveRecord(ctx, record("agent-1", tally.NewDate(2024, time.March, 31), tally.Counts{Visits: 5}))
	require.NoError(t, err)
	_, err = svc.SaveRecord(ctx, record("agent-1", tally.NewDate(2024, time.April, 1), tally.Counts{Visits: 9}))
	require.NoError(t, err)

	q1, err := svc.ResolveSessionForDate(ctx, tally.NewDate(2024, time.February, 1))
	require.NoError(t, err)
	q2, err := svc.ResolveSessionForDate(ctx, tally.NewDate(2024, time.May, 1))
	require.NoError(t, err)

	q1Totals, err := svc.DashboardTotals(ctx, "agent-1", &q1)
	require.NoError(t, err)
	assert.Equal(t, 5, q1Totals.Visits)
	assert.Equal(t, 1, q1Totals.FormsFilled)

	q2Totals, err := svc.DashboardTotals(ctx, "agent-1", &q2)
	require.NoError(t, err)
	assert.Equal(t, 9, q2Totals.Visits)

	// Unscoped sees both, each exactly once.
	all, err := svc.DashboardTotals(ctx, "agent-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 14, all.Visits)
	assert.Equal(t, 2, all.FormsFilled)
}

// =============================================================================
// LEADERBOARDS
// =============================================================================

func TestLeaderboards_PlaceholderForQuietAgent(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	seedUsers(t, mem,
		tally.User{ID: "agent-1", Name: "Asha Rao", Role: tally.RoleAgent},
		tally.User{ID: "agent-2", Name: "Bela Nair", Role: tally.RoleAgent},
	)

	day := tally.NewDate(2024, time.May, 20)
	_, err := svc.SaveRecord(ctx, record("agent-1", day, tally.Counts{Visits: 4, Premium: 1000}))
	require.NoError(t, err)

	sess, err := svc.ResolveSessionForDate(ctx, day)
	require.NoError(t, err)

	boards, err := svc.Leaderboards(ctx, "agent-2", &sess)
	require.NoError(t, err)

	for _, metric := range tally.LeaderboardMetrics {
		board := boards[metric]
		require.NotNil(t, board.CurrentUser, "metric %s", metric)
		assert.Equal(t, tally.RankNotRanked, board.CurrentUser.Rank)
		assert.False(t, board.CurrentUser.Ranked())
		assert.Equal(t, 0, board.CurrentUser.Value)
		assert.Equal(t, "Bela Nair", board.CurrentUser.UserName, "name looked up independently")
	}
}

func TestLeaderboards_UnknownHighlightUserYieldsNoEntry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	day := tally.NewDate(2024, time.May, 20)
	_, err := svc.SaveRecord(ctx, record("agent-1", day, tally.Counts{Visits: 4}))
	require.NoError(t, err)

	boards, err := svc.Leaderboards(ctx, "nobody", nil)
	require.NoError(t, err, "a missing user is 'no entry', not a failure")
	for _, board := range boards {
		assert.Nil(t, board.CurrentUser)
	}
}

func TestLeaderboards_UsesDisplayNames(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	seedUsers(t, mem, tally.User{ID: "agent-1", Name: "Asha Rao", Role: tally.RoleAgent})

	_, err := svc.SaveRecord(ctx, record("agent-1", tally.NewDate(2024, time.May, 20), tally.Counts{Demos: 2}))
	require.NoError(t, err)

	boards, err := svc.Leaderboards(ctx, "agent-1", nil)
	require.NoError(t, err)

	demo := boards[tally.MetricDemos]
	require.Len(t, demo.TopFive, 1)
	assert.Equal(t, "Asha Rao", demo.TopFive[0].UserName)
	require.NotNil(t, demo.CurrentUser)
	assert.Equal(t, 1, demo.CurrentUser.Rank)
	assert.Equal(t, 2, demo.CurrentUser.Value)
}
