package reservations

import (
	"context"
	"errors"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"campus-transit/internal"
)

// Placeholder values the booking form shows before a slot is picked. A
// reservation carrying any of them is rejected outright.
const (
	PlaceholderEntryLoc  = "Entry Location"
	PlaceholderEntryTime = "Entry Time"
	PlaceholderExitLoc   = "Exit Location"
	PlaceholderExitTime  = "Exit Time"
)

// Leg names one directional half of a trip.
type Leg string

const (
	LegEntry Leg = "entry"
	LegExit  Leg = "exit"
)

// ParseLeg maps the schedule view's buttonClicked parameter onto a leg.
func ParseLeg(s string) (Leg, bool) {
	switch Leg(s) {
	case LegEntry:
		return LegEntry, true
	case LegExit:
		return LegExit, true
	}
	return "", false
}

// ConflictPolicy decides whether two accounts may hold the same leg slot.
// The original system silently allowed it, so allow stays the default;
// reject turns double-booking into ErrSlotConflict.
type ConflictPolicy string

const (
	ConflictAllow  ConflictPolicy = "allow"
	ConflictReject ConflictPolicy = "reject"
)

// PolicyFromEnv reads SLOT_CONFLICT_POLICY, defaulting to allow.
func PolicyFromEnv() ConflictPolicy {
	if os.Getenv("SLOT_CONFLICT_POLICY") == string(ConflictReject) {
		return ConflictReject
	}
	return ConflictAllow
}

// Reservation is one two-leg trip owned by an account. The surrogate _id
// assigned at creation is the only handle updates and deletes accept.
type Reservation struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IDNumber    string             `bson:"idNumber" json:"idNumber"`
	StartCampus string             `bson:"startCampus" json:"startCampus"`
	Date        string             `bson:"date" json:"date"`
	EntryLoc    string             `bson:"entryLoc" json:"entryLoc"`
	EntryTime   string             `bson:"entryTime" json:"entryTime"`
	ExitLoc     string             `bson:"exitLoc" json:"exitLoc"`
	ExitTime    string             `bson:"exitTime" json:"exitTime"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Validate rejects reservations whose legs still carry the form's
// placeholder values, or no value at all.
func (r *Reservation) Validate() error {
	if r.EntryLoc == PlaceholderEntryLoc || r.EntryTime == PlaceholderEntryTime ||
		r.ExitLoc == PlaceholderExitLoc || r.ExitTime == PlaceholderExitTime {
		return internal.ErrValidation
	}
	if r.IDNumber == "" || r.Date == "" ||
		r.EntryLoc == "" || r.EntryTime == "" || r.ExitLoc == "" || r.ExitTime == "" {
		return internal.ErrValidation
	}
	return nil
}

// conflictFilter matches reservations held by other accounts that occupy
// either leg slot of r. A stored exit leg blocks a new entry leg on the
// same (date, location, time) and vice versa; an account never conflicts
// with itself.
func (r *Reservation) conflictFilter() bson.M {
	return bson.M{
		"_id":      bson.M{"$ne": r.ID},
		"idNumber": bson.M{"$ne": r.IDNumber},
		"date":     r.Date,
		"$or": bson.A{
			bson.M{"entryLoc": r.EntryLoc, "entryTime": r.EntryTime},
			bson.M{"exitLoc": r.EntryLoc, "exitTime": r.EntryTime},
			bson.M{"entryLoc": r.ExitLoc, "entryTime": r.ExitTime},
			bson.M{"exitLoc": r.ExitLoc, "exitTime": r.ExitTime},
		},
	}
}

// slotTaken reports whether another account already sits on either leg
// slot of r. Check-then-write only, no transaction; two concurrent
// creates can still both pass.
func (r *Reservation) slotTaken(db *mongo.Database) (bool, error) {
	count, err := db.Collection("reservations").CountDocuments(context.TODO(), r.conflictFilter())
	if err != nil {
		return false, internal.StoreFailure(err)
	}

	return count > 0, nil
}

// Create validates the legs, applies the conflict policy and inserts the
// reservation under a fresh surrogate id.
func (r *Reservation) Create(policy ConflictPolicy, db *mongo.Database) error {
	if err := r.Validate(); err != nil {
		return err
	}

	r.ID = primitive.NewObjectID()
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()

	if policy == ConflictReject {
		taken, err := r.slotTaken(db)
		if err != nil {
			return err
		}
		if taken {
			return internal.ErrSlotConflict
		}
	}

	mar, err := bson.Marshal(r)
	if err != nil {
		return errors.New("something went wrong marshalling reservation struct")
	}
	var b *bson.D
	err = bson.Unmarshal(mar, &b)
	if err != nil {
		return errors.New("something went wrong marshalling reservation struct")
	}

	_, err = db.Collection("reservations").InsertOne(context.TODO(), b)
	if err != nil {
		return internal.StoreFailure(err)
	}

	log.Info("inserted reservation with the id " + r.ID.Hex())

	return nil
}

// FromID returns the reservation named by its surrogate id.
func FromID(id primitive.ObjectID, db *mongo.Database) (*Reservation, error) {
	var filter = bson.D{{Key: "_id", Value: id}}
	cursor, err := db.Collection("reservations").Find(context.TODO(), filter)
	if err != nil {
		return nil, internal.StoreFailure(err)
	}
	var results []Reservation
	if err = cursor.All(context.TODO(), &results); err != nil {
		return nil, internal.StoreFailure(err)
	}

	if len(results) < 1 {
		return nil, internal.ErrNotFound
	}

	return &results[0], nil
}

// FindForAccount returns every reservation owned by an id number.
func FindForAccount(idNumber string, db *mongo.Database) ([]Reservation, error) {
	return find(bson.M{"idNumber": idNumber}, db)
}

// FindSlot returns the reservations whose given leg sits on a
// (date, location, time) slot. The schedule view runs one query per leg
// because only one leg participates at a time.
func FindSlot(date string, location string, slotTime string, leg Leg, db *mongo.Database) ([]Reservation, error) {
	var filter bson.M
	switch leg {
	case LegEntry:
		filter = bson.M{"date": date, "entryLoc": location, "entryTime": slotTime}
	case LegExit:
		filter = bson.M{"date": date, "exitLoc": location, "exitTime": slotTime}
	default:
		return nil, internal.ErrValidation
	}

	return find(filter, db)
}

func find(filter bson.M, db *mongo.Database) ([]Reservation, error) {
	cursor, err := db.Collection("reservations").Find(context.TODO(), filter)
	if err != nil {
		return nil, internal.StoreFailure(err)
	}

	var matches []Reservation
	for cursor.Next(context.Background()) {
		var r Reservation
		if err := cursor.Decode(&r); err != nil {
			return nil, err
		}
		matches = append(matches, r)
	}

	if err := cursor.Err(); err != nil {
		return nil, internal.StoreFailure(err)
	}

	return matches, nil
}

// Update overwrites the reservation addressed by r.ID with r's fields.
// A miss on the id is ErrNotFound and leaves the ledger untouched.
func (r *Reservation) Update(policy ConflictPolicy, db *mongo.Database) error {
	if err := r.Validate(); err != nil {
		return err
	}

	if policy == ConflictReject {
		taken, err := r.slotTaken(db)
		if err != nil {
			return err
		}
		if taken {
			return internal.ErrSlotConflict
		}
	}

	r.UpdatedAt = time.Now()

	var filter = bson.D{{Key: "_id", Value: r.ID}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "idNumber", Value: r.IDNumber},
		{Key: "startCampus", Value: r.StartCampus},
		{Key: "date", Value: r.Date},
		{Key: "entryLoc", Value: r.EntryLoc},
		{Key: "entryTime", Value: r.EntryTime},
		{Key: "exitLoc", Value: r.ExitLoc},
		{Key: "exitTime", Value: r.ExitTime},
		{Key: "updatedAt", Value: r.UpdatedAt},
	}}}

	res, err := db.Collection("reservations").UpdateOne(context.TODO(), filter, update)
	if err != nil {
		return internal.StoreFailure(err)
	}
	if res.MatchedCount == 0 {
		return internal.ErrNotFound
	}

	return nil
}

// Delete removes the reservation addressed by its surrogate id.
func Delete(id primitive.ObjectID, db *mongo.Database) error {
	res, err := db.Collection("reservations").DeleteOne(context.TODO(), bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return internal.StoreFailure(err)
	}
	if res.DeletedCount == 0 {
		return internal.ErrNotFound
	}

	return nil
}

// DeleteAllForAccount is the cascade run when an account is removed.
func DeleteAllForAccount(idNumber string, db *mongo.Database) error {
	res, err := db.Collection("reservations").DeleteMany(context.TODO(), bson.D{{Key: "idNumber", Value: idNumber}})
	if err != nil {
		return internal.StoreFailure(err)
	}

	log.Infof("deleted %d reservation(s) for account %s", res.DeletedCount, idNumber)

	return nil
}
