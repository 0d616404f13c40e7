package auth

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"campus-transit/internal"
	"campus-transit/internal/accounts"
)

// Session is one authenticated browser. SecurityVerified starts false and
// flips only after the second-factor check, which the password and
// security-code change endpoints require.
type Session struct {
	ID               primitive.ObjectID `json:"item_id" bson:"item_id"`
	IDNumber         string             `json:"id_number" bson:"id_number"`
	SessionID        primitive.ObjectID `json:"session_id" bson:"_id"`
	SecurityVerified bool               `json:"security_verified" bson:"security_verified"`
	Expiry           time.Time          `json:"expiry" bson:"expiry"`
}

// Create a session from an account id, and include expiry, return error if
// it fails.
func (s *Session) Create(db *mongo.Database) error {
	s.SessionID = primitive.NewObjectID()
	s.Expiry = time.Now().Add(time.Hour * 24)

	if (s.ID == primitive.ObjectID{}) {
		return errors.New("invalid item_id used to create session")
	}

	mar, err := bson.Marshal(s)
	if err != nil {
		return errors.New("something went wrong marshalling session struct")
	}
	var b *bson.D
	err = bson.Unmarshal(mar, &b)
	if err != nil {
		return errors.New("something went wrong marshalling session struct")
	}

	_, err = db.Collection("sessions").InsertOne(context.TODO(), b)
	if err != nil {
		return internal.StoreFailure(err)
	}

	return nil
}

// FromID returns the stored session matching s.SessionID.
func (s *Session) FromID(db *mongo.Database) (*Session, error) {
	var filter = bson.D{{Key: "_id", Value: s.SessionID}}
	cursor, err := db.Collection("sessions").Find(context.TODO(), filter)
	if err != nil {
		return nil, internal.StoreFailure(err)
	}
	var results []Session
	if err = cursor.All(context.TODO(), &results); err != nil {
		return nil, internal.StoreFailure(err)
	}

	if len(results) < 1 {
		return nil, errors.New("no session found")
	}

	return &results[0], nil
}

// MarkSecurityVerified records a successful second-factor check.
func (s *Session) MarkSecurityVerified(db *mongo.Database) error {
	var filter = bson.D{{Key: "_id", Value: s.SessionID}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "security_verified", Value: true}}}}

	_, err := db.Collection("sessions").UpdateOne(context.TODO(), filter, update)
	if err != nil {
		return internal.StoreFailure(err)
	}
	s.SecurityVerified = true

	return nil
}

// Delete terminates the session. Logout and account deletion both land
// here.
func (s *Session) Delete(db *mongo.Database) error {
	_, err := db.Collection("sessions").DeleteOne(context.TODO(), bson.D{{Key: "_id", Value: s.SessionID}})
	if err != nil {
		return internal.StoreFailure(err)
	}

	return nil
}

// DeleteAllForAccount drops every live session an account holds.
func DeleteAllForAccount(accountID primitive.ObjectID, db *mongo.Database) error {
	_, err := db.Collection("sessions").DeleteMany(context.TODO(), bson.D{{Key: "item_id", Value: accountID}})
	if err != nil {
		return internal.StoreFailure(err)
	}

	return nil
}

// GetAccount resolves token claims to the live session and its account.
// Expired or tampered sessions fail here, before any handler runs domain
// logic.
func GetAccount(claims *Session, db *mongo.Database) (*accounts.Account, *Session, error) {
	s, err := claims.FromID(db)
	if err != nil {
		return nil, nil, err
	}

	if time.Now().After(s.Expiry) {
		return nil, nil, errors.New("token expired")
	}

	if claims.ID != s.ID {
		return nil, nil, errors.New("item id mismatch")
	}

	account, err := accounts.FromIDNumber(s.IDNumber, db)
	if err != nil {
		return nil, nil, err
	}

	return account, s, nil
}
