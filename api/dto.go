/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

RANK ENCODING:
  A leaderboard entry's rank is null in JSON when the highlighted agent
  has no records in range ("not ranked"), never 0 or -1. Presentation
  can render it however it likes without integer sentinels leaking out.

CURRENCY:
  Premium totals and premium leaderboard values carry a *_display field
  formatted in the Indian digit-grouping style ("₹12,34,567").

SEE ALSO:
  - handlers.go: Uses these types
  - tally/currency.go: FormatIndianCurrency
*/
package api

import (
	"github.com/lariv/tally-engine/tally"
)

// =============================================================================
// USERS
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// CreateUserRequest is the request to create a user.
type CreateUserRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserDTO(u tally.User) UserDTO {
	return UserDTO{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

// =============================================================================
// RECORDS
// =============================================================================

// CountsDTO carries the nine activity counters plus premium.
type CountsDTO struct {
	Visits       int `json:"visits"`
	Appointments int `json:"appointments"`
	Leads        int `json:"leads"`
	Calls        int `json:"calls"`
	Demos        int `json:"demos"`
	Letters      int `json:"letters"`
	FollowUps    int `json:"follow_ups"`
	Proposals    int `json:"proposals"`
	Policies     int `json:"policies"`
	Premium      int `json:"premium"`
}

func toCountsDTO(c tally.Counts) CountsDTO {
	return CountsDTO{
		Visits:       c.Visits,
		Appointments: c.Appointments,
		Leads:        c.Leads,
		Calls:        c.Calls,
		Demos:        c.Demos,
		Letters:      c.Letters,
		FollowUps:    c.FollowUps,
		Proposals:    c.Proposals,
		Policies:     c.Policies,
		Premium:      c.Premium,
	}
}

func (c CountsDTO) toCounts() tally.Counts {
	return tally.Counts{
		Visits:       c.Visits,
		Appointments: c.Appointments,
		Leads:        c.Leads,
		Calls:        c.Calls,
		Demos:        c.Demos,
		Letters:      c.Letters,
		FollowUps:    c.FollowUps,
		Proposals:    c.Proposals,
		Policies:     c.Policies,
		Premium:      c.Premium,
	}
}

// RecordDTO represents one daily tally in API responses.
type RecordDTO struct {
	ID     int64  `json:"id"`
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	CountsDTO
}

func toRecordDTO(rec tally.Record) RecordDTO {
	return RecordDTO{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Date:      rec.Date.String(),
		CountsDTO: toCountsDTO(rec.Counts),
	}
}

// SaveRecordRequest upserts a tally for (user_id, date). Agents may only
// write their own records; user_id is ignored for them.
type SaveRecordRequest struct {
	UserID string `json:"user_id,omitempty"`
	Date   string `json:"date"`
	CountsDTO
}

// DailyReportRequest upserts today's tally for the authenticated agent.
type DailyReportRequest struct {
	CountsDTO
}

// =============================================================================
// SESSIONS
// =============================================================================

// SessionDTO represents a fiscal-quarter session. IsActive is derived
// from today's date, never stored.
type SessionDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Start    string `json:"start"`
	End      string `json:"end"`
	IsActive bool   `json:"is_active"`
}

func toSessionDTO(sess tally.Session, today tally.Date) SessionDTO {
	return SessionDTO{
		ID:       sess.ID,
		Name:     sess.Name,
		Start:    sess.Start.String(),
		End:      sess.End.String(),
		IsActive: sess.IsActive(today),
	}
}

// =============================================================================
// DASHBOARD
// =============================================================================

// DashboardDTO is the totals payload. Field names mirror the metrics the
// dashboard renders; all values are zero-defaulted.
type DashboardDTO struct {
	TotalVisits       int     `json:"total_visits"`
	TotalAppointments int     `json:"total_appointments"`
	TotalLeads        int     `json:"total_leads"`
	TotalCalls        int     `json:"total_calls"`
	TotalDemos        int     `json:"total_demos"`
	TotalLetters      int     `json:"total_letters"`
	TotalFollowUps    int     `json:"total_follow_ups"`
	TotalProposals    int     `json:"total_proposals"`
	TotalPolicies     int     `json:"total_policies"`
	TotalPremium      int     `json:"total_premium"`
	PremiumDisplay    string  `json:"total_premium_display"`
	FormsFilled       int     `json:"forms_filled"`
	ApptVisitRatio    float64 `json:"appt_visit_ratio"`
	DemoApptRatio     float64 `json:"demo_appt_ratio"`
	PolicyDemoRatio   float64 `json:"policy_demo_ratio"`

	Session *SessionDTO `json:"session,omitempty"`
}

func toDashboardDTO(totals tally.Totals, session *SessionDTO) DashboardDTO {
	return DashboardDTO{
		TotalVisits:       totals.Visits,
		TotalAppointments: totals.Appointments,
		TotalLeads:        totals.Leads,
		TotalCalls:        totals.Calls,
		TotalDemos:        totals.Demos,
		TotalLetters:      totals.Letters,
		TotalFollowUps:    totals.FollowUps,
		TotalProposals:    totals.Proposals,
		TotalPolicies:     totals.Policies,
		TotalPremium:      totals.Premium,
		PremiumDisplay:    tally.FormatIndianCurrency(totals.Premium),
		FormsFilled:       totals.FormsFilled,
		ApptVisitRatio:    totals.ApptVisitRatio.InexactFloat64(),
		DemoApptRatio:     totals.DemoApptRatio.InexactFloat64(),
		PolicyDemoRatio:   totals.PolicyDemoRatio.InexactFloat64(),
		Session:           session,
	}
}

// =============================================================================
// LEADERBOARDS
// =============================================================================

// LeaderboardEntryDTO is one ranked row. Rank is null for the synthetic
// "not ranked" entry.
type LeaderboardEntryDTO struct {
	Rank         *int   `json:"rank"`
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
	Value        int    `json:"value"`
	ValueDisplay string `json:"value_display,omitempty"`
}

// LeaderboardDTO is the ranking for one metric.
type LeaderboardDTO struct {
	TopFive     []LeaderboardEntryDTO `json:"top_5"`
	CurrentUser *LeaderboardEntryDTO  `json:"current_user,omitempty"`
}

// LeaderboardsResponse bundles all metric boards with the session they
// were computed for.
type LeaderboardsResponse struct {
	Session      *SessionDTO               `json:"session,omitempty"`
	Leaderboards map[string]LeaderboardDTO `json:"leaderboards"`
}

func toLeaderboardDTO(board tally.Leaderboard, metric tally.Metric) LeaderboardDTO {
	dto := LeaderboardDTO{TopFive: make([]LeaderboardEntryDTO, len(board.TopFive))}
	for i, e := range board.TopFive {
		dto.TopFive[i] = toLeaderboardEntryDTO(e, metric)
	}
	if board.CurrentUser != nil {
		entry := toLeaderboardEntryDTO(*board.CurrentUser, metric)
		dto.CurrentUser = &entry
	}
	return dto
}

func toLeaderboardEntryDTO(e tally.LeaderboardEntry, metric tally.Metric) LeaderboardEntryDTO {
	dto := LeaderboardEntryDTO{
		UserID:   e.UserID,
		UserName: e.UserName,
		Value:    e.Value,
	}
	if e.Ranked() {
		rank := e.Rank
		dto.Rank = &rank
	}
	if metric == tally.MetricPremium {
		dto.ValueDisplay = tally.FormatIndianCurrency(e.Value)
	}
	return dto
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
