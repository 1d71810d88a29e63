// Package store provides an in-memory Store implementation (for testing/dev).
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/lariv/tally-engine/tally"
)

// =============================================================================
// MEMORY STORE - In-memory implementation of tally.Store
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	nextRecordID  int64
	nextSessionID int64

	records    map[int64]tally.Record
	byUserDate map[userDate]int64
	sessions   map[string]tally.Session
	users      map[string]tally.User
}

type userDate struct {
	UserID string
	Date   string
}

func NewMemory() *Memory {
	return &Memory{
		records:    make(map[int64]tally.Record),
		byUserDate: make(map[userDate]int64),
		sessions:   make(map[string]tally.Session),
		users:      make(map[string]tally.User),
	}
}

// =============================================================================
// RECORDS
// =============================================================================

func (m *Memory) UpsertRecord(_ context.Context, rec tally.Record) (tally.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := userDate{UserID: rec.UserID, Date: rec.Date.String()}
	if id, ok := m.byUserDate[key]; ok {
		existing := m.records[id]
		existing.Counts = rec.Counts
		m.records[id] = existing
		return existing, nil
	}

	m.nextRecordID++
	rec.ID = m.nextRecordID
	m.records[rec.ID] = rec
	m.byUserDate[key] = rec.ID
	return rec, nil
}

func (m *Memory) GetRecord(_ context.Context, id int64) (tally.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return tally.Record{}, tally.ErrRecordNotFound
	}
	return rec, nil
}

func (m *Memory) ListRecords(_ context.Context, filter tally.RecordFilter) ([]tally.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []tally.Record{}
	for _, rec := range m.records {
		if filter.UserID != "" && rec.UserID != filter.UserID {
			continue
		}
		if filter.Date != nil && !rec.Date.Equal(*filter.Date) {
			continue
		}
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) DeleteRecord(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return tally.ErrRecordNotFound
	}
	delete(m.records, id)
	delete(m.byUserDate, userDate{UserID: rec.UserID, Date: rec.Date.String()})
	return nil
}

// =============================================================================
// AGGREGATION
// =============================================================================

func (m *Memory) AggregateTotals(_ context.Context, filter tally.StatsFilter) (tally.Counts, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sums tally.Counts
	count := 0
	for _, rec := range m.records {
		if !matches(rec, filter) {
			continue
		}
		sums.Add(rec.Counts)
		count++
	}
	return sums, count, nil
}

func (m *Memory) AggregateByUser(_ context.Context, filter tally.StatsFilter) ([]tally.UserTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	grouped := make(map[string]*tally.UserTotals)
	for _, rec := range m.records {
		if !matches(rec, filter) {
			continue
		}
		row, ok := grouped[rec.UserID]
		if !ok {
			name := rec.UserID
			if u, found := m.users[rec.UserID]; found {
				name = u.Name
			}
			row = &tally.UserTotals{UserID: rec.UserID, UserName: name}
			grouped[rec.UserID] = row
		}
		row.Add(rec.Counts)
	}

	result := make([]tally.UserTotals, 0, len(grouped))
	for _, row := range grouped {
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func matches(rec tally.Record, filter tally.StatsFilter) bool {
	if filter.UserID != "" && rec.UserID != filter.UserID {
		return false
	}
	if filter.Period != nil && !filter.Period.Contains(rec.Date) {
		return false
	}
	return true
}

// =============================================================================
// SESSIONS
// =============================================================================

func (m *Memory) GetSessionByName(_ context.Context, name string) (tally.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[name]
	if !ok {
		return tally.Session{}, tally.ErrSessionNotFound
	}
	return sess, nil
}

func (m *Memory) InsertSession(_ context.Context, sess tally.Session) (tally.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sess.Name]; ok {
		return tally.Session{}, tally.ErrSessionExists
	}
	m.nextSessionID++
	sess.ID = m.nextSessionID
	m.sessions[sess.Name] = sess
	return sess, nil
}

func (m *Memory) ListSessions(_ context.Context) ([]tally.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]tally.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) GetUser(_ context.Context, id string) (tally.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return tally.User{}, tally.ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]tally.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]tally.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) CreateUser(_ context.Context, u tally.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; ok {
		return tally.ErrUserExists
	}
	m.users[u.ID] = u
	return nil
}
