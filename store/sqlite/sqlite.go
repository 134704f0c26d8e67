/*
Package sqlite provides a SQLite-backed implementation of rescue.Store.

PURPOSE:
  Persists donor profiles and pickup requests in a single SQLite file.
  The same schema ports to PostgreSQL with minor dialect changes.

KEY TABLES:
  donors:           One row per principal (id = identity provider uid)
  pickup_requests:  Every request ever submitted; rows are never deleted

INDEXES:
  - idx_pickups_donor_created: Donor dashboards (hot path)
  - idx_pickups_status_created: Admin triage filtered by status
  - idx_donors_email: Case-insensitive email lookup

OPTIMISTIC CONCURRENCY:
  UpdatePickup issues UPDATE ... WHERE id = ? AND version = ?. Zero rows
  affected means either the row is gone or someone else wrote first; a
  follow-up existence check tells them apart.

TIMESTAMPS:
  Stored as fixed-width UTC strings (nanosecond precision) so that
  lexical ORDER BY matches chronological order.

CONCURRENCY:
  Uses sync.RWMutex around read-modify-write sequences. SQLite itself
  serialises writers; the mutex keeps the version check and the write
  together in this process.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/rescue.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). Open() wraps an existing *sql.DB
  without migrating, which is what the sqlmock tests use.

SEE ALSO:
  - rescue/store.go: Interface definitions
  - rescue/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harvestlink/rescue-engine/rescue"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// dateLayout stores pickup dates, which carry no time of day.
const dateLayout = "2006-01-02"

// Store implements rescue.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := Open(db)
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Open wraps an existing connection. The schema must already exist.
func Open(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS donors (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		business_name TEXT NOT NULL,
		contact_name TEXT NOT NULL,
		phone TEXT NOT NULL,
		street TEXT NOT NULL,
		city TEXT NOT NULL,
		state TEXT NOT NULL,
		zip TEXT NOT NULL,
		business_type TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_donors_email
		ON donors(email COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS pickup_requests (
		id TEXT PRIMARY KEY,
		donor_id TEXT NOT NULL,
		status TEXT NOT NULL,
		food_description TEXT NOT NULL,
		estimated_weight REAL NOT NULL CHECK (estimated_weight >= 1),
		street TEXT NOT NULL,
		city TEXT NOT NULL,
		state TEXT NOT NULL,
		zip TEXT NOT NULL,
		pickup_date TEXT NOT NULL,
		pickup_time_window TEXT NOT NULL,
		contact_on_arrival TEXT NOT NULL,
		special_instructions TEXT,
		actual_weight REAL,
		confirmed_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);

	-- Donor dashboards
	CREATE INDEX IF NOT EXISTS idx_pickups_donor_created
		ON pickup_requests(donor_id, created_at DESC);

	-- Admin triage by status
	CREATE INDEX IF NOT EXISTS idx_pickups_status_created
		ON pickup_requests(status, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DONOR STORE (rescue.DonorStore interface)
// =============================================================================

const donorColumns = `id, email, business_name, contact_name, phone, street, city, state, zip,
	business_type, created_at, updated_at`

// InsertDonor creates a donor profile.
func (s *Store) InsertDonor(ctx context.Context, d rescue.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `INSERT INTO donors (` + donorColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.Email, d.BusinessName, d.ContactName, d.Phone,
		d.Address.Street, d.Address.City, d.Address.State, d.Address.Zip,
		string(d.BusinessType), formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return rescue.ErrDonorExists
	}
	return err
}

// UpdateDonor replaces a donor's profile fields.
func (s *Store) UpdateDonor(ctx context.Context, d rescue.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE donors SET
			email = ?, business_name = ?, contact_name = ?, phone = ?,
			street = ?, city = ?, state = ?, zip = ?,
			business_type = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		d.Email, d.BusinessName, d.ContactName, d.Phone,
		d.Address.Street, d.Address.City, d.Address.State, d.Address.Zip,
		string(d.BusinessType), formatTime(d.UpdatedAt), d.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return rescue.ErrDonorNotFound
	}
	return nil
}

// GetDonor retrieves a donor by principal id.
func (s *Store) GetDonor(ctx context.Context, id string) (*rescue.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryDonor(ctx, `SELECT `+donorColumns+` FROM donors WHERE id = ?`, id)
}

// GetDonorByEmail retrieves a donor by email, ignoring case.
func (s *Store) GetDonorByEmail(ctx context.Context, email string) (*rescue.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryDonor(ctx, `SELECT `+donorColumns+` FROM donors WHERE email = ? COLLATE NOCASE LIMIT 1`, email)
}

// ListDonors returns all donors, newest first.
func (s *Store) ListDonors(ctx context.Context) ([]rescue.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+donorColumns+` FROM donors ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	donors := []rescue.Donor{}
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		donors = append(donors, d)
	}
	return donors, rows.Err()
}

// CountDonors returns the number of donor profiles.
func (s *Store) CountDonors(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM donors`).Scan(&n)
	return n, err
}

func (s *Store) queryDonor(ctx context.Context, query string, args ...any) (*rescue.Donor, error) {
	d, err := scanDonor(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDonor(row scanner) (rescue.Donor, error) {
	var d rescue.Donor
	var businessType, createdAt, updatedAt string
	err := row.Scan(
		&d.ID, &d.Email, &d.BusinessName, &d.ContactName, &d.Phone,
		&d.Address.Street, &d.Address.City, &d.Address.State, &d.Address.Zip,
		&businessType, &createdAt, &updatedAt,
	)
	if err != nil {
		return d, err
	}
	d.BusinessType = rescue.BusinessType(businessType)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return d, nil
}

// =============================================================================
// PICKUP STORE (rescue.PickupStore interface)
// =============================================================================

const pickupColumns = `id, donor_id, status, food_description, estimated_weight,
	street, city, state, zip, pickup_date, pickup_time_window, contact_on_arrival,
	special_instructions, actual_weight, confirmed_at, completed_at,
	created_at, updated_at, version`

// InsertPickup persists a new request.
func (s *Store) InsertPickup(ctx context.Context, p rescue.PickupRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writePickup(ctx, `INSERT INTO pickup_requests (`+pickupColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, p)
}

// GetPickup retrieves a request by id.
func (s *Store) GetPickup(ctx context.Context, id string) (*rescue.PickupRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getPickup(ctx, id)
}

func (s *Store) getPickup(ctx context.Context, id string) (*rescue.PickupRequest, error) {
	p, err := scanPickup(s.db.QueryRowContext(ctx, `SELECT `+pickupColumns+` FROM pickup_requests WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPickups returns matching requests, newest first.
func (s *Store) ListPickups(ctx context.Context, filter rescue.PickupFilter) ([]rescue.PickupRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if filter.DonorID != "" {
		where = append(where, "donor_id = ?")
		args = append(args, filter.DonorID)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := `SELECT ` + pickupColumns + ` FROM pickup_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pickups := []rescue.PickupRequest{}
	for rows.Next() {
		p, err := scanPickup(rows)
		if err != nil {
			return nil, err
		}
		pickups = append(pickups, p)
	}
	return pickups, rows.Err()
}

// UpdatePickup applies patch guarded by expectedVersion (0 = unconditional).
func (s *Store) UpdatePickup(ctx context.Context, id string, patch rescue.PickupPatch, expectedVersion int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.getPickup(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return rescue.ErrPickupNotFound
	}
	if expectedVersion != 0 && current.Version != expectedVersion {
		return rescue.ErrConcurrentModification
	}

	readVersion := current.Version
	patch.Apply(current)
	current.UpdatedAt = at
	current.Version = readVersion + 1

	query := `
		UPDATE pickup_requests SET
			id = ?, donor_id = ?, status = ?, food_description = ?, estimated_weight = ?,
			street = ?, city = ?, state = ?, zip = ?, pickup_date = ?, pickup_time_window = ?,
			contact_on_arrival = ?, special_instructions = ?, actual_weight = ?,
			confirmed_at = ?, completed_at = ?, created_at = ?, updated_at = ?, version = ?
		WHERE id = ? AND version = ?
	`
	res, err := s.db.ExecContext(ctx, query, append(pickupArgs(*current), id, readVersion)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// another process wrote between our read and write
		return rescue.ErrConcurrentModification
	}
	return nil
}

func (s *Store) writePickup(ctx context.Context, query string, p rescue.PickupRequest) error {
	_, err := s.db.ExecContext(ctx, query, pickupArgs(p)...)
	return err
}

func pickupArgs(p rescue.PickupRequest) []any {
	return []any{
		p.ID, p.DonorID, string(p.Status), p.FoodDescription, p.EstimatedWeight,
		p.PickupAddress.Street, p.PickupAddress.City, p.PickupAddress.State, p.PickupAddress.Zip,
		p.PickupDate.UTC().Format(dateLayout), string(p.PickupTimeWindow), p.ContactOnArrival,
		nullString(p.SpecialInstructions), nullFloat(p.ActualWeight),
		nullTime(p.ConfirmedAt), nullTime(p.CompletedAt),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt), p.Version,
	}
}

func scanPickup(row scanner) (rescue.PickupRequest, error) {
	var p rescue.PickupRequest
	var status, window, pickupDate, createdAt, updatedAt string
	var instructions, confirmedAt, completedAt sql.NullString
	var actualWeight sql.NullFloat64

	err := row.Scan(
		&p.ID, &p.DonorID, &status, &p.FoodDescription, &p.EstimatedWeight,
		&p.PickupAddress.Street, &p.PickupAddress.City, &p.PickupAddress.State, &p.PickupAddress.Zip,
		&pickupDate, &window, &p.ContactOnArrival,
		&instructions, &actualWeight, &confirmedAt, &completedAt,
		&createdAt, &updatedAt, &p.Version,
	)
	if err != nil {
		return p, err
	}

	p.Status = rescue.Status(status)
	p.PickupTimeWindow = rescue.TimeWindow(window)
	p.PickupDate, _ = time.Parse(dateLayout, pickupDate)
	p.SpecialInstructions = instructions.String
	if actualWeight.Valid {
		w := actualWeight.Float64
		p.ActualWeight = &w
	}
	if confirmedAt.Valid {
		t := parseTime(confirmedAt.String)
		p.ConfirmedAt = &t
	}
	if completedAt.Valid {
		t := parseTime(completedAt.String)
		p.CompletedAt = &t
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
