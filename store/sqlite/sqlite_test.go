package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lariv/tally-engine/store/sqlite"
	"github.com/lariv/tally-engine/tally"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func mustSave(t *testing.T, store *sqlite.Store, userID string, date tally.Date, counts tally.Counts) tally.Record {
	t.Helper()
	rec, err := store.UpsertRecord(context.Background(), tally.Record{
		UserID: userID,
		Date:   date,
		Counts: counts,
	})
	require.NoError(t, err)
	return rec
}

var may20 = tally.NewDate(2024, time.May, 20)

// =============================================================================
// RECORD UPSERT
// =============================================================================

func TestUpsertRecord_InsertThenUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := mustSave(t, store, "agent-1", may20, tally.Counts{Visits: 3, Premium: 1000})
	assert.NotZero(t, first.ID)

	// Same (user, date) updates counters in place, same row id.
	second := mustSave(t, store, "agent-1", may20, tally.Counts{Visits: 8})
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 8, second.Visits)
	assert.Equal(t, 0, second.Premium)

	records, err := store.ListRecords(ctx, tally.RecordFilter{UserID: "agent-1"})
	require.NoError(t, err)
	assert.Len(t, records, 1, "UNIQUE(user_id, date) must hold")
}

func TestUpsertRecord_DifferentDaysAreSeparateRows(t *testing.T) {
	store := newTestStore(t)

	mustSave(t, store, "agent-1", may20, tally.Counts{Visits: 1})
	mustSave(t, store, "agent-1", may20.AddDays(1), tally.Counts{Visits: 2})
	mustSave(t, store, "agent-2", may20, tally.Counts{Visits: 4})

	records, err := store.ListRecords(context.Background(), tally.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	// Newest first.
	assert.Equal(t, "2024-05-21", records[0].Date.String())
}

func TestGetRecord_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRecord(context.Background(), 999)
	assert.ErrorIs(t, err, tally.ErrRecordNotFound)
}

func TestDeleteRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := mustSave(t, store, "agent-1", may20, tally.Counts{Visits: 1})
	require.NoError(t, store.DeleteRecord(ctx, rec.ID))

	_, err := store.GetRecord(ctx, rec.ID)
	assert.ErrorIs(t, err, tally.ErrRecordNotFound)
	assert.ErrorIs(t, store.DeleteRecord(ctx, rec.ID), tally.ErrRecordNotFound)
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestAggregateTotals_EmptyScopeIsAllZeros(t *testing.T) {
	store := newTestStore(t)

	sums, count, err := store.AggregateTotals(context.Background(), tally.StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, tally.Counts{}, sums)
	assert.Equal(t, 0, count)
}

func TestAggregateTotals_SumsAndFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustSave(t, store, "agent-1", may20, tally.Counts{Visits: 3, Appointments: 1, Premium: 1000})
	mustSave(t, store, "agent-1", may20.AddDays(1), tally.Counts{Visits: 2, Premium: 500})
	mustSave(t, store, "agent-2", may20, tally.Counts{Visits: 10, Demos: 4})
	// Outside the Q2 range below.
	mustSave(t, store, "agent-1", tally.NewDate(2024, time.March, 31), tally.Counts{Visits: 100})

	q2 := tally.QuarterPeriod(2024, 2)

	sums, count, err := store.AggregateTotals(ctx, tally.StatsFilter{Period: &q2})
	require.NoError(t, err)
	assert.Equal(t, 15, sums.Visits)
	assert.Equal(t, 1500, sums.Premium)
	assert.Equal(t, 3, count)

	sums, count, err = store.AggregateTotals(ctx, tally.StatsFilter{UserID: "agent-1", Period: &q2})
	require.NoError(t, err)
	assert.Equal(t, 5, sums.Visits)
	assert.Equal(t, 2, count)

	// Boundary days are inclusive on both ends.
	q1 := tally.QuarterPeriod(2024, 1)
	sums, count, err = store.AggregateTotals(ctx, tally.StatsFilter{Period: &q1})
	require.NoError(t, err)
	assert.Equal(t, 100, sums.Visits)
	assert.Equal(t, 1, count)
}

func TestAggregateTotals_NoDoubleCountingAcrossQuarters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustSave(t, store, "agent-1", may20, tally.Counts{Policies: 2})

	q1 := tally.QuarterPeriod(2024, 1)
	q2 := tally.QuarterPeriod(2024, 2)

	s1, c1, err := store.AggregateTotals(ctx, tally.StatsFilter{Period: &q1})
	require.NoError(t, err)
	s2, c2, err := store.AggregateTotals(ctx, tally.StatsFilter{Period: &q2})
	require.NoError(t, err)

	assert.Equal(t, 0, s1.Policies)
	assert.Equal(t, 0, c1)
	assert.Equal(t, 2, s2.Policies)
	assert.Equal(t, 1, c2)
}

func TestAggregateByUser_GroupsAndNames(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, tally.User{ID: "agent-1", Name: "Asha Rao"}))

	mustSave(t, store, "agent-1", may20, tally.Counts{Visits: 3})
	mustSave(t, store, "agent-1", may20.AddDays(1), tally.Counts{Visits: 4})
	mustSave(t, store, "agent-2", may20, tally.Counts{Visits: 1})

	rows, err := store.AggregateByUser(ctx, tally.StatsFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "agent-1", rows[0].UserID)
	assert.Equal(t, "Asha Rao", rows[0].UserName)
	assert.Equal(t, 7, rows[0].Visits)
	// No users row: display name falls back to the id.
	assert.Equal(t, "agent-2", rows[1].UserName)
	assert.Equal(t, 1, rows[1].Visits)
}

// =============================================================================
// SESSIONS
// =============================================================================

func TestInsertSession_DuplicateNameIsErrSessionExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := tally.Session{
		Name:  "2024 Quarter 2",
		Start: tally.NewDate(2024, time.April, 1),
		End:   tally.NewDate(2024, time.June, 30),
	}

	created, err := store.InsertSession(ctx, sess)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = store.InsertSession(ctx, sess)
	assert.ErrorIs(t, err, tally.ErrSessionExists,
		"unique-name violation must surface as the race sentinel")

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestGetSessionByName_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSessionByName(context.Background(), "2030 Quarter 1")
	assert.ErrorIs(t, err, tally.ErrSessionNotFound)
}

func TestListSessions_OrderedByStart(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, q := range []int{3, 1, 2} {
		period := tally.QuarterPeriod(2024, q)
		_, err := store.InsertSession(ctx, tally.Session{
			Name:  tally.QuarterName(2024, q),
			Start: period.Start,
			End:   period.End,
		})
		require.NoError(t, err)
	}

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "2024 Quarter 1", sessions[0].Name)
	assert.Equal(t, "2024 Quarter 3", sessions[2].Name)
}

// =============================================================================
// USERS
// =============================================================================

func TestUsers_CreateGetList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, tally.User{ID: "admin-1", Name: "Zoya", Role: tally.RoleAdmin}))
	require.NoError(t, store.CreateUser(ctx, tally.User{ID: "agent-1", Name: "Asha", Email: "asha@example.com"}))

	u, err := store.GetUser(ctx, "admin-1")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	u, err = store.GetUser(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, tally.RoleAgent, u.Role, "role defaults to agent")
	assert.Equal(t, "asha@example.com", u.Email)

	_, err = store.GetUser(ctx, "ghost")
	assert.ErrorIs(t, err, tally.ErrUserNotFound)

	assert.ErrorIs(t, store.CreateUser(ctx, tally.User{ID: "agent-1", Name: "Dup"}), tally.ErrUserExists)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Asha", users[0].Name)
}

// =============================================================================
// SERVICE OVER SQLITE - end-to-end resolution and aggregation
// =============================================================================

func TestServiceOverSQLite_ResolveAndAggregate(t *testing.T) {
	store := newTestStore(t)
	svc := tally.NewService(store)
	ctx := context.Background()

	sess, err := svc.ResolveSessionForDate(ctx, may20)
	require.NoError(t, err)
	assert.Equal(t, "2024 Quarter 2", sess.Name)

	again, err := svc.ResolveSessionForDate(ctx, may20.AddDays(30))
	require.NoError(t, err)
	assert.Equal(t, sess.ID, again.ID)

	_, err = svc.SaveRecord(ctx, tally.Record{
		UserID: "agent-1",
		Date:   may20,
		Counts: tally.Counts{Visits: 3, Appointments: 1},
	})
	require.NoError(t, err)

	totals, err := svc.DashboardTotals(ctx, "", &sess)
	require.NoError(t, err)
	assert.Equal(t, 3, totals.Visits)
	assert.Equal(t, "33.3", totals.ApptVisitRatio.String())
	assert.Equal(t, 1, totals.FormsFilled)
}
