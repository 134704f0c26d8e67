/*
Package mongo provides a MongoDB-backed implementation of rescue.Store.

PURPOSE:
  Document-store backend with two collections: "donors" keyed by
  principal id and "pickupRequests" keyed by generated ids.

DOCUMENT SHAPE:
  Field names are camelCase so existing documents can be read as-is.
  Addresses are embedded sub-documents.

OPTIMISTIC CONCURRENCY:
  UpdatePickup filters on {_id, version} and increments version in the
  same UpdateOne. MatchedCount == 0 with an existing _id means another
  writer won.

TIMEOUTS:
  Each call is bounded by opTimeout on top of the caller's context.

USAGE:
  store, err := mongo.New(ctx, "mongodb://localhost:27017", "rescue")
  defer store.Close(ctx)
*/
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harvestlink/rescue-engine/rescue"
)

const (
	donorsCollection  = "donors"
	pickupsCollection = "pickupRequests"

	opTimeout = 5 * time.Second
)

// Store implements rescue.Store on MongoDB.
type Store struct {
	client  *mongo.Client
	donors  *mongo.Collection
	pickups *mongo.Collection
}

// New connects, pings and ensures indexes.
func New(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:  client,
		donors:  db.Collection(donorsCollection),
		pickups: db.Collection(pickupsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.pickups.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "donorId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return err
	}
	_, err = s.donors.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	})
	return err
}

// =============================================================================
// DOCUMENTS
// =============================================================================

type addressDoc struct {
	Street string `bson:"street"`
	City   string `bson:"city"`
	State  string `bson:"state"`
	Zip    string `bson:"zip"`
}

type donorDoc struct {
	ID           string     `bson:"_id"`
	Email        string     `bson:"email"`
	BusinessName string     `bson:"businessName"`
	ContactName  string     `bson:"contactName"`
	Phone        string     `bson:"phone"`
	Address      addressDoc `bson:"address"`
	BusinessType string     `bson:"businessType"`
	CreatedAt    time.Time  `bson:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt"`
}

type pickupDoc struct {
	ID                  string     `bson:"_id"`
	DonorID             string     `bson:"donorId"`
	Status              string     `bson:"status"`
	FoodDescription     string     `bson:"foodDescription"`
	EstimatedWeight     float64    `bson:"estimatedWeight"`
	PickupAddress       addressDoc `bson:"pickupAddress"`
	PickupDate          time.Time  `bson:"pickupDate"`
	PickupTimeWindow    string     `bson:"pickupTimeWindow"`
	ContactOnArrival    string     `bson:"contactOnArrival"`
	SpecialInstructions string     `bson:"specialInstructions,omitempty"`
	ActualWeight        *float64   `bson:"actualWeight,omitempty"`
	ConfirmedAt         *time.Time `bson:"confirmedAt,omitempty"`
	CompletedAt         *time.Time `bson:"completedAt,omitempty"`
	CreatedAt           time.Time  `bson:"createdAt"`
	UpdatedAt           time.Time  `bson:"updatedAt"`
	Version             int        `bson:"version"`
}

func toAddressDoc(a rescue.Address) addressDoc {
	return addressDoc{Street: a.Street, City: a.City, State: a.State, Zip: a.Zip}
}

func (a addressDoc) toDomain() rescue.Address {
	return rescue.Address{Street: a.Street, City: a.City, State: a.State, Zip: a.Zip}
}

func toDonorDoc(d rescue.Donor) donorDoc {
	return donorDoc{
		ID:           d.ID,
		Email:        d.Email,
		BusinessName: d.BusinessName,
		ContactName:  d.ContactName,
		Phone:        d.Phone,
		Address:      toAddressDoc(d.Address),
		BusinessType: string(d.BusinessType),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (d donorDoc) toDomain() rescue.Donor {
	return rescue.Donor{
		ID:           d.ID,
		Email:        d.Email,
		BusinessName: d.BusinessName,
		ContactName:  d.ContactName,
		Phone:        d.Phone,
		Address:      d.Address.toDomain(),
		BusinessType: rescue.BusinessType(d.BusinessType),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func toPickupDoc(p rescue.PickupRequest) pickupDoc {
	return pickupDoc{
		ID:                  p.ID,
		DonorID:             p.DonorID,
		Status:              string(p.Status),
		FoodDescription:     p.FoodDescription,
		EstimatedWeight:     p.EstimatedWeight,
		PickupAddress:       toAddressDoc(p.PickupAddress),
		PickupDate:          p.PickupDate,
		PickupTimeWindow:    string(p.PickupTimeWindow),
		ContactOnArrival:    p.ContactOnArrival,
		SpecialInstructions: p.SpecialInstructions,
		ActualWeight:        p.ActualWeight,
		ConfirmedAt:         p.ConfirmedAt,
		CompletedAt:         p.CompletedAt,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
		Version:             p.Version,
	}
}

func (d pickupDoc) toDomain() rescue.PickupRequest {
	p := rescue.PickupRequest{
		ID:                  d.ID,
		DonorID:             d.DonorID,
		Status:              rescue.Status(d.Status),
		FoodDescription:     d.FoodDescription,
		EstimatedWeight:     d.EstimatedWeight,
		PickupAddress:       d.PickupAddress.toDomain(),
		PickupDate:          d.PickupDate.UTC(),
		PickupTimeWindow:    rescue.TimeWindow(d.PickupTimeWindow),
		ContactOnArrival:    d.ContactOnArrival,
		SpecialInstructions: d.SpecialInstructions,
		ActualWeight:        d.ActualWeight,
		CreatedAt:           d.CreatedAt.UTC(),
		UpdatedAt:           d.UpdatedAt.UTC(),
		Version:             d.Version,
	}
	if d.ConfirmedAt != nil {
		t := d.ConfirmedAt.UTC()
		p.ConfirmedAt = &t
	}
	if d.CompletedAt != nil {
		t := d.CompletedAt.UTC()
		p.CompletedAt = &t
	}
	return p
}

// =============================================================================
// DONOR STORE
// =============================================================================

func (s *Store) InsertDonor(ctx context.Context, d rescue.Donor) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.donors.InsertOne(ctx, toDonorDoc(d))
	if mongo.IsDuplicateKeyError(err) {
		return rescue.ErrDonorExists
	}
	return err
}

func (s *Store) UpdateDonor(ctx context.Context, d rescue.Donor) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.donors.ReplaceOne(ctx, bson.M{"_id": d.ID}, toDonorDoc(d))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return rescue.ErrDonorNotFound
	}
	return nil
}

func (s *Store) GetDonor(ctx context.Context, id string) (*rescue.Donor, error) {
	return s.findDonor(ctx, bson.M{"_id": id})
}

func (s *Store) GetDonorByEmail(ctx context.Context, email string) (*rescue.Donor, error) {
	return s.findDonor(ctx, emailFilter(email))
}

func (s *Store) findDonor(ctx context.Context, filter bson.M) (*rescue.Donor, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc donorDoc
	err := s.donors.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d := doc.toDomain()
	return &d, nil
}

func (s *Store) ListDonors(ctx context.Context) ([]rescue.Donor, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(newestFirst())
	cursor, err := s.donors.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []donorDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	donors := make([]rescue.Donor, 0, len(docs))
	for _, doc := range docs {
		donors = append(donors, doc.toDomain())
	}
	return donors, nil
}

func (s *Store) CountDonors(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := s.donors.CountDocuments(ctx, bson.M{})
	return int(n), err
}

// =============================================================================
// PICKUP STORE
// =============================================================================

func (s *Store) InsertPickup(ctx context.Context, p rescue.PickupRequest) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.pickups.InsertOne(ctx, toPickupDoc(p))
	return err
}

func (s *Store) GetPickup(ctx context.Context, id string) (*rescue.PickupRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc pickupDoc
	err := s.pickups.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := doc.toDomain()
	return &p, nil
}

// newestFirst orders by creation time. createdAt has millisecond
// precision, so _id breaks ties.
func newestFirst() bson.D {
	return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
}

func (s *Store) ListPickups(ctx context.Context, filter rescue.PickupFilter) ([]rescue.PickupRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(newestFirst())
	cursor, err := s.pickups.Find(ctx, pickupFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []pickupDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	pickups := make([]rescue.PickupRequest, 0, len(docs))
	for _, doc := range docs {
		pickups = append(pickups, doc.toDomain())
	}
	return pickups, nil
}

func (s *Store) UpdatePickup(ctx context.Context, id string, patch rescue.PickupPatch, expectedVersion int, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"_id": id}
	if expectedVersion != 0 {
		filter["version"] = expectedVersion
	}

	res, err := s.pickups.UpdateOne(ctx, filter, updateDocument(patch, at))
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.pickups.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return rescue.ErrPickupNotFound
	}
	return rescue.ErrConcurrentModification
}

// =============================================================================
// QUERY BUILDERS
// =============================================================================

func pickupFilter(f rescue.PickupFilter) bson.M {
	filter := bson.M{}
	if f.DonorID != "" {
		filter["donorId"] = f.DonorID
	}
	if f.Status != nil {
		filter["status"] = string(*f.Status)
	}
	return filter
}

func emailFilter(email string) bson.M {
	return bson.M{"email": bson.M{
		"$regex":   "^" + regexp.QuoteMeta(email) + "$",
		"$options": "i",
	}}
}

// updateDocument turns a patch into a $set/$inc update.
func updateDocument(p rescue.PickupPatch, at time.Time) bson.M {
	set := bson.M{"updatedAt": at}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	if p.FoodDescription != nil {
		set["foodDescription"] = *p.FoodDescription
	}
	if p.EstimatedWeight != nil {
		set["estimatedWeight"] = *p.EstimatedWeight
	}
	if p.PickupAddress != nil {
		set["pickupAddress"] = toAddressDoc(*p.PickupAddress)
	}
	if p.PickupDate != nil {
		set["pickupDate"] = *p.PickupDate
	}
	if p.PickupTimeWindow != nil {
		set["pickupTimeWindow"] = string(*p.PickupTimeWindow)
	}
	if p.ContactOnArrival != nil {
		set["contactOnArrival"] = *p.ContactOnArrival
	}
	if p.SpecialInstructions != nil {
		set["specialInstructions"] = *p.SpecialInstructions
	}
	if p.ActualWeight != nil {
		set["actualWeight"] = *p.ActualWeight
	}
	if p.ConfirmedAt != nil {
		set["confirmedAt"] = *p.ConfirmedAt
	}
	if p.CompletedAt != nil {
		set["completedAt"] = *p.CompletedAt
	}
	return bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}
}
