/*
handlers.go - HTTP API handlers for food rescue logistics

PURPOSE:
  Exposes the rescue engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the rescue components.

ENDPOINTS:
  Public:
    GET    /healthz                                  Liveness + store ping
    GET    /api/stats                                Landing-page impact numbers

  Caller (any verified principal):
    GET    /api/me                                   Session view
    PUT    /api/me/profile                           Create (201) or update (200) own profile
    POST   /api/pickup-requests                      Submit a pickup request
    GET    /api/pickup-requests/{id}                 One request (owner or admin)
    GET    /api/donors/{id}/pickup-requests          Donor history (owner or admin)
    GET    /api/donors/{id}/stats                    Donor impact (owner or admin)

  Admin:
    GET    /api/admin/pickup-requests?status=        All requests, optional status filter
    POST   /api/admin/pickup-requests/{id}/confirm   pending   -> confirmed
    POST   /api/admin/pickup-requests/{id}/complete  confirmed -> completed {actualWeight}
    POST   /api/admin/pickup-requests/{id}/cancel    pending|confirmed -> cancelled
    GET    /api/admin/donors                         All donors
    GET    /api/admin/donors/{id}                    One donor
    GET    /api/admin/stats                          Dashboard summary
    GET    /api/admin/scenarios                      Demo data sets
    POST   /api/admin/scenarios/load                 Load a demo data set

REQUEST FLOW:
  1. Middleware verifies the token and attaches the Session
  2. Parse and convert the body
  3. Call the rescue component (validation happens there)
  4. Serialize response
  5. Map errors in writeDomainError

ERROR HANDLING:
  - 400: Validation errors, malformed JSON
  - 401: Missing or invalid token
  - 403: Not the owner, not an admin
  - 404: Donor or request not found
  - 409: Illegal transition, concurrent modification, duplicate profile
  - 429: Submission rate limit
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - middleware.go: Authentication and admin gate
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/harvestlink/rescue-engine/logger"
	"github.com/harvestlink/rescue-engine/ratelimit"
	"github.com/harvestlink/rescue-engine/rescue"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     rescue.Store
	Donors    *rescue.Donors
	Pickups   *rescue.Pickups
	Lifecycle *rescue.Lifecycle
	Stats     *rescue.Stats

	// Limiter throttles submissions per principal. Nil disables throttling.
	Limiter ratelimit.Limiter
}

// NewHandler wires the rescue components over one store.
func NewHandler(store rescue.Store, notifier rescue.Notifier) *Handler {
	pickups := rescue.NewPickups(store)
	return &Handler{
		Store:     store,
		Donors:    rescue.NewDonors(store),
		Pickups:   pickups,
		Lifecycle: rescue.NewLifecycle(pickups, notifier),
		Stats:     rescue.NewStats(store),
	}
}

// =============================================================================
// HEALTH AND PUBLIC STATS
// =============================================================================

// Health reports liveness, pinging the store when it supports it.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PublicStats returns the landing-page numbers.
// GET /api/stats
func (h *Handler) PublicStats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Stats.Summary(r.Context())
	if err != nil {
		writeDomainError(w, err, "Failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, PublicStatsDTO{
		ImpactDTO:    toImpactDTO(summary.Impact),
		ActiveDonors: summary.ActiveDonors,
	})
}

// =============================================================================
// SESSION AND PROFILE
// =============================================================================

// GetMe returns the caller's session.
// GET /api/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	writeJSON(w, http.StatusOK, toSessionDTO(sess))
}

// PutProfile creates the caller's donor profile, or updates it if one exists.
// PUT /api/me/profile
func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := mustSession(r)

	var req ProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if sess.Donor == nil {
		donor, err := h.Donors.Create(ctx, sess.PrincipalID, sess.Email, req.toDomain())
		if err != nil {
			writeDomainError(w, err, "Failed to create profile")
			return
		}
		logger.Info("Donor profile created", "donor_id", donor.ID, "business", donor.BusinessName)
		writeJSON(w, http.StatusCreated, toDonorDTO(*donor))
		return
	}

	donor, err := h.Donors.Update(ctx, sess.PrincipalID, req.toDomain())
	if err != nil {
		writeDomainError(w, err, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, toDonorDTO(*donor))
}

// =============================================================================
// PICKUP REQUESTS
// =============================================================================

// SubmitPickup creates a pending request and fires the new-pickup alert.
// POST /api/pickup-requests
func (h *Handler) SubmitPickup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := mustSession(r)

	if h.Limiter != nil {
		if d := h.Limiter.Take(ctx, sess.PrincipalID); !d.Allowed {
			logger.Warn("Pickup submission rate limited", "principal_id", sess.PrincipalID, "retry_after", d.RetryAfter)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "Too many pickup requests, please try again later", nil)
			return
		}
	}

	var req SubmitPickupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeDomainError(w, err, "Failed to create pickup request")
		return
	}

	created, err := h.Lifecycle.Submit(ctx, sess, in)
	if err != nil {
		writeDomainError(w, err, "Failed to create pickup request")
		return
	}

	logger.Info("Pickup request created", "request_id", created.ID, "donor_id", created.DonorID)
	writeJSON(w, http.StatusCreated, SubmitPickupResponse{
		ID:      created.ID,
		Message: "Pickup request created successfully",
	})
}

// GetPickup returns one request to its owner or an admin.
// GET /api/pickup-requests/{id}
func (h *Handler) GetPickup(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id := chi.URLParam(r, "id")

	req, err := h.Pickups.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to get pickup request")
		return
	}
	if req == nil {
		writeError(w, http.StatusNotFound, "Pickup request not found", nil)
		return
	}
	if !sess.CanAccessDonor(req.DonorID) {
		writeError(w, http.StatusForbidden, "Not allowed to view this pickup request", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPickupDTO(*req))
}

// ListDonorPickups returns a donor's requests, newest first.
// GET /api/donors/{id}/pickup-requests
func (h *Handler) ListDonorPickups(w http.ResponseWriter, r *http.Request) {
	donorID, ok := h.authorizeDonor(w, r)
	if !ok {
		return
	}
	reqs, err := h.Pickups.ListByDonor(r.Context(), donorID)
	if err != nil {
		writeDomainError(w, err, "Failed to list pickup requests")
		return
	}
	writeJSON(w, http.StatusOK, toPickupDTOs(reqs))
}

// GetDonorStats returns a donor's impact.
// GET /api/donors/{id}/stats
func (h *Handler) GetDonorStats(w http.ResponseWriter, r *http.Request) {
	donorID, ok := h.authorizeDonor(w, r)
	if !ok {
		return
	}
	impact, err := h.Stats.DonorStats(r.Context(), donorID)
	if err != nil {
		writeDomainError(w, err, "Failed to load donor stats")
		return
	}
	writeJSON(w, http.StatusOK, toImpactDTO(impact))
}

func (h *Handler) authorizeDonor(w http.ResponseWriter, r *http.Request) (string, bool) {
	sess := mustSession(r)
	donorID := chi.URLParam(r, "id")
	if !sess.CanAccessDonor(donorID) {
		writeError(w, http.StatusForbidden, "Not allowed to view this donor", nil)
		return "", false
	}
	return donorID, true
}

// =============================================================================
// ADMIN: PICKUP LIFECYCLE
// =============================================================================

// ListAllPickups returns every request, optionally filtered by status.
// GET /api/admin/pickup-requests?status=pending
func (h *Handler) ListAllPickups(w http.ResponseWriter, r *http.Request) {
	var status *rescue.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := rescue.ParseStatus(raw)
		if err != nil {
			writeDomainError(w, err, "Invalid status")
			return
		}
		status = &s
	}

	reqs, err := h.Pickups.ListAll(r.Context(), status)
	if err != nil {
		writeDomainError(w, err, "Failed to list pickup requests")
		return
	}
	writeJSON(w, http.StatusOK, toPickupDTOs(reqs))
}

// ConfirmPickup schedules a pending request.
// POST /api/admin/pickup-requests/{id}/confirm
func (h *Handler) ConfirmPickup(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Lifecycle.Confirm(r.Context(), mustSession(r), chi.URLParam(r, "id"))
	h.writeTransition(w, updated, err, "Failed to confirm pickup request")
}

// CompletePickup records the weighed amount on a confirmed request.
// POST /api/admin/pickup-requests/{id}/complete
func (h *Handler) CompletePickup(w http.ResponseWriter, r *http.Request) {
	var req CompletePickupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.Lifecycle.Complete(r.Context(), mustSession(r), chi.URLParam(r, "id"), req.ActualWeight)
	h.writeTransition(w, updated, err, "Failed to complete pickup request")
}

// CancelPickup withdraws a pending or confirmed request.
// POST /api/admin/pickup-requests/{id}/cancel
func (h *Handler) CancelPickup(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Lifecycle.Cancel(r.Context(), mustSession(r), chi.URLParam(r, "id"))
	h.writeTransition(w, updated, err, "Failed to cancel pickup request")
}

func (h *Handler) writeTransition(w http.ResponseWriter, updated *rescue.PickupRequest, err error, msg string) {
	if err != nil {
		writeDomainError(w, err, msg)
		return
	}
	logger.Info("Pickup request status changed", "request_id", updated.ID, "status", updated.Status, "version", updated.Version)
	writeJSON(w, http.StatusOK, toPickupDTO(*updated))
}

// =============================================================================
// ADMIN: DONORS AND STATS
// =============================================================================

// ListDonors returns every donor profile.
// GET /api/admin/donors
func (h *Handler) ListDonors(w http.ResponseWriter, r *http.Request) {
	donors, err := h.Donors.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "Failed to list donors")
		return
	}
	dtos := make([]DonorDTO, len(donors))
	for i, d := range donors {
		dtos[i] = toDonorDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDonor returns one donor profile.
// GET /api/admin/donors/{id}
func (h *Handler) GetDonor(w http.ResponseWriter, r *http.Request) {
	donor, err := h.Donors.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "Failed to get donor")
		return
	}
	if donor == nil {
		writeError(w, http.StatusNotFound, "Donor not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toDonorDTO(*donor))
}

// AdminStats returns the dashboard summary.
// GET /api/admin/stats
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Stats.Summary(r.Context())
	if err != nil {
		writeDomainError(w, err, "Failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, toAdminStatsDTO(summary))
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
	resp := newErrorResponse(message, "", nil)
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps rescue errors to HTTP statuses. fallback is the
// message for unexpected failures; their cause is logged, not returned.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	var ve *rescue.ValidationError
	var te *rescue.TransitionError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, newErrorResponse(ve.Message, "validation", ve.Field))
	case errors.Is(err, rescue.ErrDonorNotFound):
		writeJSON(w, http.StatusNotFound, newErrorResponse("Donor not found", "not_found", nil))
	case errors.Is(err, rescue.ErrPickupNotFound):
		writeJSON(w, http.StatusNotFound, newErrorResponse("Pickup request not found", "not_found", nil))
	case errors.Is(err, rescue.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, newErrorResponse("Authentication required", "unauthenticated", nil))
	case errors.Is(err, rescue.ErrForbidden):
		writeJSON(w, http.StatusForbidden, newErrorResponse("Forbidden", "forbidden", err.Error()))
	case errors.As(err, &te):
		writeJSON(w, http.StatusConflict, newErrorResponse(te.Error(), "illegal_transition", nil))
	case errors.Is(err, rescue.ErrConcurrentModification):
		writeJSON(w, http.StatusConflict, newErrorResponse("Pickup request was modified concurrently, reload and retry", "conflict", nil))
	case errors.Is(err, rescue.ErrDonorExists):
		writeJSON(w, http.StatusConflict, newErrorResponse("Donor profile already exists", "conflict", nil))
	default:
		logger.Error(fallback, "error", err)
		writeJSON(w, http.StatusInternalServerError, newErrorResponse(fallback, "", nil))
	}
}

// decodeJSON reads the body into dst, answering 400 on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// mustSession returns the session attached by the auth middleware. Routes
// using it are always mounted behind that middleware.
func mustSession(r *http.Request) *rescue.Session {
	sess, ok := rescue.SessionFromContext(r.Context())
	if !ok {
		panic("api: route mounted without session middleware")
	}
	return sess
}
