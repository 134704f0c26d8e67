/*
handlers_test.go - HTTP tests for the rescue API

Tests for:
- Authentication and the admin gate
- Profile creation and update
- Pickup submission: validation, donor lookup, ownership, notification
- Admin lifecycle endpoints and error mapping (400/403/404/409)
- Public and donor stats
- Submission rate limiting
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestlink/rescue-engine/auth"
	"github.com/harvestlink/rescue-engine/notify"
	"github.com/harvestlink/rescue-engine/ratelimit"
	"github.com/harvestlink/rescue-engine/rescue"
	"github.com/harvestlink/rescue-engine/rescue/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const bootstrapAdmin = "ops@foodbank.org"

type recordingNotifier struct {
	mu    sync.Mutex
	calls []rescue.PickupRequest
}

func (n *recordingNotifier) NotifyNewPickup(_ context.Context, req rescue.PickupRequest, _ rescue.Donor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, req)
}

func (n *recordingNotifier) Calls() []rescue.PickupRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]rescue.PickupRequest(nil), n.calls...)
}

// failingInserts wraps a store and rejects every pickup insert.
type failingInserts struct {
	rescue.Store
}

func (failingInserts) InsertPickup(context.Context, rescue.PickupRequest) error {
	return errors.New("disk full")
}

type testEnv struct {
	t        *testing.T
	store    *store.Memory
	handler  *Handler
	router   *chi.Mux
	jwt      *auth.JWTVerifier
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mem := store.NewMemory()
	notifier := &recordingNotifier{}
	h := NewHandler(mem, notifier)

	verifier, err := auth.NewJWTVerifier("api-test-secret-0123456789", "rescue-engine", time.Hour)
	require.NoError(t, err)

	authn := &Authenticator{
		Verifier: verifier,
		Resolver: rescue.NewResolver(mem, []string{bootstrapAdmin}),
	}

	return &testEnv{
		t:        t,
		store:    mem,
		handler:  h,
		router:   NewRouter(h, authn, []string{"*"}),
		jwt:      verifier,
		notifier: notifier,
	}
}

func (e *testEnv) token(p rescue.Principal) string {
	e.t.Helper()
	tok, err := e.jwt.Issue(p)
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) donorToken(id string) string {
	return e.token(rescue.Principal{ID: id, Email: id + "@donor.example"})
}

func (e *testEnv) adminToken() string {
	return e.token(rescue.Principal{ID: "admin-1", Email: bootstrapAdmin})
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func validProfileBody() ProfileRequest {
	return ProfileRequest{
		BusinessName: "Corner Bistro",
		ContactName:  "Sam Rivera",
		Phone:        "217-555-0100",
		Address:      AddressDTO{Street: "12 Main St", City: "Springfield", State: "IL", Zip: "62701"},
		BusinessType: "restaurant",
	}
}

func validSubmitBody(donorID string) SubmitPickupRequest {
	return SubmitPickupRequest{
		DonorID:          donorID,
		FoodDescription:  "Sandwich platters",
		EstimatedWeight:  25,
		PickupAddress:    AddressDTO{Street: "12 Main St", City: "Springfield", State: "IL", Zip: "62701"},
		PickupDate:       "2024-06-01",
		PickupTimeWindow: "afternoon",
		ContactOnArrival: "Text 555-0100",
	}
}

// registerDonor creates a profile for id and returns its token.
func (e *testEnv) registerDonor(id string) string {
	e.t.Helper()
	tok := e.donorToken(id)
	rec := e.do(http.MethodPut, "/api/me/profile", tok, validProfileBody())
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return tok
}

// submit creates a pending request for the donor and returns its id.
func (e *testEnv) submit(donorID, tok string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/pickup-requests", tok, validSubmitBody(donorID))
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[SubmitPickupResponse](e.t, rec).ID
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestAuth_MissingAndInvalidToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/api/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", decode[ErrorResponse](t, rec).Error)
}

func TestAuth_PublicRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[PublicStatsDTO](t, rec)
	assert.Equal(t, 0, stats.Rescues)
	assert.Equal(t, 0, stats.ActiveDonors)
}

func TestAuth_AdminGate(t *testing.T) {
	env := newTestEnv(t)

	// Donor is rejected
	rec := env.do(http.MethodGet, "/api/admin/stats", env.donorToken("uid-1"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Allow-listed email is admin, case-insensitively
	tok := env.token(rescue.Principal{ID: "admin-2", Email: "OPS@FoodBank.org"})
	rec = env.do(http.MethodGet, "/api/admin/stats", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Role claim is admin without the allow-list
	tok = env.token(rescue.Principal{ID: "admin-3", Email: "someone@else.org", Role: rescue.RoleAdmin})
	rec = env.do(http.MethodGet, "/api/admin/stats", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetMe(t *testing.T) {
	env := newTestEnv(t)
	tok := env.donorToken("uid-1")

	// GIVEN: A principal without a profile
	rec := env.do(http.MethodGet, "/api/me", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[SessionDTO](t, rec)
	assert.Equal(t, "uid-1", me.PrincipalID)
	assert.False(t, me.IsAdmin)
	assert.Nil(t, me.Donor)

	// WHEN: They complete their profile
	env.registerDonor("uid-1")

	// THEN: The session carries the donor
	me = decode[SessionDTO](t, env.do(http.MethodGet, "/api/me", tok, nil))
	require.NotNil(t, me.Donor)
	assert.Equal(t, "Corner Bistro", me.Donor.BusinessName)
	assert.Equal(t, "2175550100", me.Donor.Phone)
}

// =============================================================================
// PROFILE
// =============================================================================

func TestPutProfile_CreateThenUpdate(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerDonor("uid-1")

	body := validProfileBody()
	body.BusinessName = "Corner Bistro & Bar"
	rec := env.do(http.MethodPut, "/api/me/profile", tok, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Corner Bistro & Bar", decode[DonorDTO](t, rec).BusinessName)
}

func TestPutProfile_Invalid(t *testing.T) {
	env := newTestEnv(t)

	body := validProfileBody()
	body.Address.Zip = "6270"
	rec := env.do(http.MethodPut, "/api/me/profile", env.donorToken("uid-1"), body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "ZIP code must be 5 digits", resp.Error)
	assert.Equal(t, "address.zip", resp.Details)

	rec = env.do(http.MethodPut, "/api/me/profile", env.donorToken("uid-1"), "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmitPickup_Success(t *testing.T) {
	// GIVEN: A donor with a profile
	env := newTestEnv(t)
	tok := env.registerDonor("uid-1")

	// WHEN: They submit a pickup request
	rec := env.do(http.MethodPost, "/api/pickup-requests", tok, validSubmitBody("uid-1"))

	// THEN: 201 with id and message, and the alert was dispatched
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[SubmitPickupResponse](t, rec)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Pickup request created successfully", resp.Message)

	calls := env.notifier.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, resp.ID, calls[0].ID)

	// AND: The stored request is pending with the submitted fields
	rec = env.do(http.MethodGet, "/api/pickup-requests/"+resp.ID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[PickupRequestDTO](t, rec)
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, "2024-06-01", got.PickupDate)
	assert.Equal(t, 25.0, got.EstimatedWeight)
	assert.Nil(t, got.ActualWeight)
	assert.Equal(t, 1, got.Version)
}

func TestSubmitPickup_DefaultsDonorToCaller(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerDonor("uid-1")

	body := validSubmitBody("")
	rec := env.do(http.MethodPost, "/api/pickup-requests", tok, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	reqs, err := env.store.ListPickups(context.Background(), rescue.PickupFilter{DonorID: "uid-1"})
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}

func TestSubmitPickup_RFC3339Date(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerDonor("uid-1")

	body := validSubmitBody("uid-1")
	body.PickupDate = "2024-06-01T21:30:00-05:00"
	id := decode[SubmitPickupResponse](t, env.do(http.MethodPost, "/api/pickup-requests", tok, body)).ID

	// The day as written is kept and the time of day dropped
	got := decode[PickupRequestDTO](t, env.do(http.MethodGet, "/api/pickup-requests/"+id, tok, nil))
	assert.Equal(t, "2024-06-01", got.PickupDate)

	stored, err := env.store.GetPickup(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), stored.PickupDate)
}

func TestSubmitPickup_Validation(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerDonor("uid-1")

	cases := []struct {
		name    string
		mutate  func(*SubmitPickupRequest)
		message string
	}{
		{"missing description", func(b *SubmitPickupRequest) { b.FoodDescription = "" }, rescue.MsgMissingFields},
		{"missing address", func(b *SubmitPickupRequest) { b.PickupAddress.Zip = "" }, rescue.MsgMissingFields},
		{"missing date", func(b *SubmitPickupRequest) { b.PickupDate = "" }, rescue.MsgMissingFields},
		{"missing contact", func(b *SubmitPickupRequest) { b.ContactOnArrival = "  " }, rescue.MsgMissingFields},
		{"bad window", func(b *SubmitPickupRequest) { b.PickupTimeWindow = "midnight" }, rescue.MsgInvalidTimeWindow},
		{"light weight", func(b *SubmitPickupRequest) { b.EstimatedWeight = 0.5 }, rescue.MsgWeightTooLow},
		{"bad date", func(b *SubmitPickupRequest) { b.PickupDate = "June 1st" }, "Invalid pickup date"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := validSubmitBody("uid-1")
			tc.mutate(&body)

			rec := env.do(http.MethodPost, "/api/pickup-requests", tok, body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[map[string]any](t, rec)
			assert.Equal(t, tc.message, resp["message"])
			assert.Equal(t, tc.message, resp["error"])
		})
	}

	// No partial state and no alert for rejected submissions
	reqs, err := env.store.ListPickups(context.Background(), rescue.PickupFilter{})
	require.NoError(t, err)
	assert.Empty(t, reqs)
	assert.Empty(t, env.notifier.Calls())
}

func TestSubmitPickup_DonorNotFound(t *testing.T) {
	env := newTestEnv(t)

	// Principal signed in but never completed a profile
	rec := env.do(http.MethodPost, "/api/pickup-requests", env.donorToken("uid-9"), validSubmitBody("uid-9"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Donor not found", decode[map[string]any](t, rec)["message"])
	assert.Empty(t, env.notifier.Calls())
}

func TestSubmitPickup_InternalFailureMessage(t *testing.T) {
	// GIVEN: A store that fails every pickup insert
	env := newTestEnv(t)
	tok := env.registerDonor("uid-1")
	env.handler.Lifecycle.Pickups.Store = failingInserts{env.store}

	// WHEN: The donor submits
	rec := env.do(http.MethodPost, "/api/pickup-requests", tok, validSubmitBody("uid-1"))

	// THEN: 500 with the generic message and no internal detail
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "Failed to create pickup request", resp["message"])
	assert.NotContains(t, rec.Body.String(), "disk full")
	assert.Empty(t, env.notifier.Calls())
}

func TestSubmitPickup_UnreachableChatSink(t *testing.T) {
	// GIVEN: The real dispatcher with a Slack sink nobody listens on
	env := newTestEnv(t)
	tok := env.registerDonor("uid-1")
	dispatcher := notify.NewDispatcher(notify.NewSlackWebhook("http://127.0.0.1:1"))
	env.handler.Lifecycle.Notifier = dispatcher

	// WHEN: The donor submits
	rec := env.do(http.MethodPost, "/api/pickup-requests", tok, validSubmitBody("uid-1"))
	dispatcher.Wait()

	// THEN: The submission still succeeds and the request is stored
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[SubmitPickupResponse](t, rec).ID
	got, err := env.store.GetPickup(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rescue.StatusPending, got.Status)
}

func TestSubmitPickup_ForAnotherDonor(t *testing.T) {
	env := newTestEnv(t)
	env.registerDonor("uid-1")
	tok2 := env.registerDonor("uid-2")

	rec := env.do(http.MethodPost, "/api/pickup-requests", tok2, validSubmitBody("uid-1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admins may submit on a donor's behalf
	rec = env.do(http.MethodPost, "/api/pickup-requests", env.adminToken(), validSubmitBody("uid-1"))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSubmitPickup_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerDonor("uid-1")

	mr := miniredis.RunT(t)
	limiter, err := ratelimit.NewSubmissionLimiter(ratelimit.Options{Addr: mr.Addr(), Prefix: "test:submit", Limit: 1, Window: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { limiter.Close() })
	env.handler.Limiter = limiter

	rec := env.do(http.MethodPost, "/api/pickup-requests", tok, validSubmitBody("uid-1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/api/pickup-requests", tok, validSubmitBody("uid-1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Len(t, env.notifier.Calls(), 1)
}

// =============================================================================
// READ AUTHORIZATION
// =============================================================================

func TestReads_OwnerOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	tok1 := env.registerDonor("uid-1")
	tok2 := env.registerDonor("uid-2")
	id := env.submit("uid-1", tok1)

	// Another donor cannot read
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/pickup-requests/"+id, tok2, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/donors/uid-1/pickup-requests", tok2, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/donors/uid-1/stats", tok2, nil).Code)

	// Owner and admin can
	rec := env.do(http.MethodGet, "/api/donors/uid-1/pickup-requests", tok1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]PickupRequestDTO](t, rec), 1)

	rec = env.do(http.MethodGet, "/api/pickup-requests/"+id, env.adminToken(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unknown id is 404
	rec = env.do(http.MethodGet, "/api/pickup-requests/nope", tok1, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDonorPickups_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerDonor("uid-1")

	rec := env.do(http.MethodGet, "/api/donors/uid-1/pickup-requests", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

// =============================================================================
// ADMIN LIFECYCLE
// =============================================================================

func TestAdminLifecycle_ConfirmComplete(t *testing.T) {
	// GIVEN: A pending request
	env := newTestEnv(t)
	tok := env.registerDonor("uid-1")
	id := env.submit("uid-1", tok)
	admin := env.adminToken()

	// WHEN: An admin confirms it
	rec := env.do(http.MethodPost, "/api/admin/pickup-requests/"+id+"/confirm", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	confirmed := decode[PickupRequestDTO](t, rec)
	assert.Equal(t, "confirmed", confirmed.Status)
	assert.NotEmpty(t, confirmed.ConfirmedAt)
	assert.Equal(t, 2, confirmed.Version)

	// AND: Completes it with the weighed amount
	rec = env.do(http.MethodPost, "/api/admin/pickup-requests/"+id+"/complete", admin, CompletePickupRequest{ActualWeight: 22.5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	completed := decode[PickupRequestDTO](t, rec)

	// THEN: It is completed with actual weight recorded
	assert.Equal(t, "completed", completed.Status)
	require.NotNil(t, completed.ActualWeight)
	assert.Equal(t, 22.5, *completed.ActualWeight)
	assert.NotEmpty(t, completed.CompletedAt)

	// AND: It counts toward impact
	stats := decode[PublicStatsDTO](t, env.do(http.MethodGet, "/api/stats", "", nil))
	assert.Equal(t, 22.5, stats.PoundsRescued)
	assert.Equal(t, 1, stats.Rescues)
	assert.Equal(t, 1, stats.ActiveDonors)

	donorStats := decode[ImpactDTO](t, env.do(http.MethodGet, "/api/donors/uid-1/stats", tok, nil))
	assert.Equal(t, 22.5, donorStats.PoundsRescued)
}

func TestAdminLifecycle_IllegalTransitions(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerDonor("uid-1")
	id := env.submit("uid-1", tok)
	admin := env.adminToken()
	base := "/api/admin/pickup-requests/" + id

	// Complete straight from pending
	rec := env.do(http.MethodPost, base+"/complete", admin, CompletePickupRequest{ActualWeight: 10})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "illegal_transition", decode[ErrorResponse](t, rec).Code)

	// Cancel, then anything else is terminal
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, base+"/cancel", admin, nil).Code)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, base+"/confirm", admin, nil).Code)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, base+"/cancel", admin, nil).Code)

	// Cancelled requests contribute nothing
	stats := decode[PublicStatsDTO](t, env.do(http.MethodGet, "/api/stats", "", nil))
	assert.Equal(t, 0.0, stats.PoundsRescued)
}

func TestAdminLifecycle_Errors(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerDonor("uid-1")
	id := env.submit("uid-1", tok)
	admin := env.adminToken()

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/admin/pickup-requests/"+id+"/confirm", admin, nil).Code)

	// Non-positive weight
	rec := env.do(http.MethodPost, "/api/admin/pickup-requests/"+id+"/complete", admin, CompletePickupRequest{ActualWeight: 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, rescue.MsgActualWeightTooLow, decode[ErrorResponse](t, rec).Error)

	// Unknown request
	rec = env.do(http.MethodPost, "/api/admin/pickup-requests/missing/confirm", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Donors cannot reach lifecycle routes at all
	rec = env.do(http.MethodPost, "/api/admin/pickup-requests/"+id+"/cancel", tok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminListPickups_StatusFilter(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerDonor("uid-1")
	first := env.submit("uid-1", tok)
	env.submit("uid-1", tok)
	admin := env.adminToken()

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/admin/pickup-requests/"+first+"/confirm", admin, nil).Code)

	all := decode[[]PickupRequestDTO](t, env.do(http.MethodGet, "/api/admin/pickup-requests", admin, nil))
	assert.Len(t, all, 2)

	confirmed := decode[[]PickupRequestDTO](t, env.do(http.MethodGet, "/api/admin/pickup-requests?status=confirmed", admin, nil))
	require.Len(t, confirmed, 1)
	assert.Equal(t, first, confirmed[0].ID)

	rec := env.do(http.MethodGet, "/api/admin/pickup-requests?status=lost", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminDonorsAndStats(t *testing.T) {
	env := newTestEnv(t)
	env.registerDonor("uid-1")
	env.registerDonor("uid-2")
	admin := env.adminToken()

	donors := decode[[]DonorDTO](t, env.do(http.MethodGet, "/api/admin/donors", admin, nil))
	assert.Len(t, donors, 2)

	rec := env.do(http.MethodGet, "/api/admin/donors/uid-2", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "uid-2@donor.example", decode[DonorDTO](t, rec).Email)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/admin/donors/uid-404", admin, nil).Code)

	stats := decode[AdminStatsDTO](t, env.do(http.MethodGet, "/api/admin/stats", admin, nil))
	assert.Equal(t, 2, stats.ActiveDonors)
	assert.Equal(t, 0, stats.ByStatus["pending"])
	assert.Contains(t, stats.ByStatus, "cancelled")
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodDelete, "/api/stats", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method DELETE not allowed", decode[ErrorResponse](t, rec).Error)
}
