/*
handlers.go - HTTP API handlers for the tally module

PURPOSE:
  Exposes the tally module via REST. Handles HTTP request/response,
  JSON serialization, and delegates to the domain logic.

ENDPOINTS:
  Dashboard:
    GET    /api/dashboard          Totals for the caller's scope
    GET    /api/leaderboard        Per-metric rankings

  Records:
    GET    /api/tallies            List records (scoped)
    POST   /api/tallies            Upsert a record by (user, date)
    GET    /api/tallies/{id}       Get one record
    DELETE /api/tallies/{id}       Delete a record (admin)
    POST   /api/daily              Upsert today's record for the caller

  Sessions:
    GET    /api/sessions           All fiscal-quarter sessions

  Users:
    GET    /api/users              List users (admin)
    POST   /api/users              Create user (admin)

SCOPING:
  The identity middleware supplies the caller. Admins aggregate the
  whole organization or any single agent (?user_id=); agents are always
  scoped to themselves. That decision is made HERE, before the domain
  aggregator is invoked - the aggregator is role-agnostic.

SESSION SELECTION:
  ?session=<name> selects a persisted session by name. Absent, the
  session for today's quarter is resolved (auto-created if needed).
  ?all=1 (admin) drops the date range entirely.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input (dates are never silently clamped)
  - 401: Missing/unknown identity
  - 403: Role does not permit the operation
  - 404: Resource not found
  - 409: Conflict (duplicate user)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - identity.go: X-User-ID resolution
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/lariv/tally-engine/tally"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   tally.Store
	Service *tally.Service
	Log     *logrus.Logger
}

// NewHandler creates a new handler over the given store.
func NewHandler(store tally.Store, log *logrus.Logger) *Handler {
	return &Handler{
		Store:   store,
		Service: tally.NewService(store),
		Log:     log,
	}
}

// =============================================================================
// DASHBOARD
// =============================================================================

// Dashboard returns zero-defaulted totals and conversion ratios.
// GET /api/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No authenticated user", nil)
		return
	}

	// Whole-org (or per-agent) view is an admin privilege; agents only
	// ever see themselves.
	userFilter := user.ID
	if user.IsAdmin() {
		userFilter = r.URL.Query().Get("user_id")
	}

	session, sessDTO, err := h.sessionScope(r, user.IsAdmin())
	if err != nil {
		h.writeDomainError(w, "Failed to resolve session", err)
		return
	}

	totals, err := h.Service.DashboardTotals(r.Context(), userFilter, session)
	if err != nil {
		h.writeDomainError(w, "Failed to compute totals", err)
		return
	}

	writeJSON(w, http.StatusOK, toDashboardDTO(totals, sessDTO))
}

// Leaderboard returns the per-metric rankings for the session scope,
// highlighting the caller.
// GET /api/leaderboard
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No authenticated user", nil)
		return
	}

	session, sessDTO, err := h.sessionScope(r, user.IsAdmin())
	if err != nil {
		h.writeDomainError(w, "Failed to resolve session", err)
		return
	}

	boards, err := h.Service.Leaderboards(r.Context(), user.ID, session)
	if err != nil {
		h.writeDomainError(w, "Failed to compute leaderboards", err)
		return
	}

	resp := LeaderboardsResponse{
		Session:      sessDTO,
		Leaderboards: make(map[string]LeaderboardDTO, len(boards)),
	}
	for metric, board := range boards {
		resp.Leaderboards[string(metric)] = toLeaderboardDTO(board, metric)
	}
	writeJSON(w, http.StatusOK, resp)
}

// sessionScope picks the aggregation date range from query parameters:
// a named session, today's (auto-created) session, or - for admins
// with ?all=1 - no range at all.
func (h *Handler) sessionScope(r *http.Request, admin bool) (*tally.Session, *SessionDTO, error) {
	q := r.URL.Query()

	if admin && q.Get("all") == "1" {
		return nil, nil, nil
	}

	if name := q.Get("session"); name != "" {
		sess, err := h.Store.GetSessionByName(r.Context(), name)
		if err != nil {
			return nil, nil, err
		}
		dto := toSessionDTO(sess, tally.Today())
		return &sess, &dto, nil
	}

	sess, err := h.Service.ResolveSessionForDate(r.Context(), tally.Today())
	if err != nil {
		return nil, nil, err
	}
	dto := toSessionDTO(sess, tally.Today())
	return &sess, &dto, nil
}

// =============================================================================
// RECORDS
// =============================================================================

// ListRecords returns records visible to the caller, newest first.
// GET /api/tallies
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No authenticated user", nil)
		return
	}

	filter := tally.RecordFilter{UserID: user.ID}
	if user.IsAdmin() {
		filter.UserID = r.URL.Query().Get("user_id")
	}
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		date, err := tally.ParseDate(dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date filter", err)
			return
		}
		filter.Date = &date
	}

	records, err := h.Store.ListRecords(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to list records", err)
		return
	}

	dtos := make([]RecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveRecord upserts a record for (user, date). Admins may write on
// behalf of any agent; agents only for themselves.
// POST /api/tallies
func (h *Handler) SaveRecord(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No authenticated user", nil)
		return
	}

	var req SaveRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	targetUser := user.ID
	if req.UserID != "" && req.UserID != user.ID {
		if !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "Agents may only log their own activity", nil)
			return
		}
		targetUser = req.UserID
	}

	date, err := tally.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	saved, err := h.Service.SaveRecord(r.Context(), tally.Record{
		UserID: targetUser,
		Date:   date,
		Counts: req.toCounts(),
	})
	if err != nil {
		h.writeDomainError(w, "Failed to save record", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(saved))
}

// DailyReport upserts today's record for the caller.
// POST /api/daily
func (h *Handler) DailyReport(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No authenticated user", nil)
		return
	}

	var req DailyReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	saved, err := h.Service.SaveRecord(r.Context(), tally.Record{
		UserID: user.ID,
		Date:   tally.Today(),
		Counts: req.toCounts(),
	})
	if err != nil {
		h.writeDomainError(w, "Failed to save daily report", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(saved))
}

// GetRecord returns one record. Agents cannot see other agents' rows;
// those read as 404 rather than confirming existence.
// GET /api/tallies/{id}
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No authenticated user", nil)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid record id", err)
		return
	}

	rec, err := h.Store.GetRecord(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get record", err)
		return
	}
	if !user.IsAdmin() && rec.UserID != user.ID {
		writeError(w, http.StatusNotFound, "Record not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(rec))
}

// DeleteRecord removes a record. Admin only.
// DELETE /api/tallies/{id}
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No authenticated user", nil)
		return
	}
	if !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "Admin role required", nil)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid record id", err)
		return
	}

	if err := h.Store.DeleteRecord(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SESSIONS
// =============================================================================

// ListSessions returns every fiscal-quarter session with the derived
// is_active flag.
// GET /api/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Store.ListSessions(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list sessions", err)
		return
	}

	today := tally.Today()
	dtos := make([]SessionDTO, len(sessions))
	for i, sess := range sessions {
		dtos[i] = toSessionDTO(sess, today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// USERS
// =============================================================================

// ListUsers returns all users. Admin only.
// GET /api/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok || !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "Admin role required", nil)
		return
	}

	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser registers a new agent or admin. Admin only.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok || !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "Admin role required", nil)
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "User id and name are required", nil)
		return
	}

	role := tally.Role(req.Role)
	if role == "" {
		role = tally.RoleAgent
	}
	if role != tally.RoleAgent && role != tally.RoleAdmin {
		writeError(w, http.StatusBadRequest, "Unknown role", nil)
		return
	}

	newUser := tally.User{ID: req.ID, Name: req.Name, Email: req.Email, Role: role}
	if err := h.Store.CreateUser(r.Context(), newUser); err != nil {
		h.writeDomainError(w, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(newUser))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps sentinel errors to HTTP statuses; anything
// unrecognized is a 500 and gets logged.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case tally.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, tally.ErrInvalidDate):
		status = http.StatusBadRequest
	case errors.Is(err, tally.ErrUserExists):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError && h.Log != nil {
		h.Log.WithError(err).Error(message)
	}
	writeError(w, status, message, err)
}
