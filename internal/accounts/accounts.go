package accounts

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"campus-transit/internal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// DefaultProfilePicture is the sentinel ref a fresh account starts with.
const DefaultProfilePicture = "public/images/profilepictures/Default.png"

// Account is a user or admin record. Both kinds live in the one "accounts"
// collection and differ only in Role, so an id number can never name a
// user and an admin at the same time.
type Account struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IDNumber       string             `bson:"idNumber" json:"idNumber"`
	FirstName      string             `bson:"firstName" json:"firstName"`
	LastName       string             `bson:"lastName" json:"lastName"`
	Email          string             `bson:"email" json:"email"`
	Designation    string             `bson:"designation" json:"designation"`
	PassengerType  string             `bson:"passengerType" json:"passengerType"`
	Role           Role               `bson:"role" json:"role"`
	Password       string             `bson:"password,omitempty" json:"-"`     // bcrypt hash
	SecurityCode   string             `bson:"securityCode,omitempty" json:"-"` // bcrypt hash
	ProfilePicture string             `bson:"profilePicture" json:"profilePicture"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// secretless is the default projection. The hashes only leave the store
// through the verification paths.
var secretless = bson.D{{Key: "password", Value: 0}, {Key: "securityCode", Value: 0}}

// Create inserts the account after hashing its secrets. Password and
// SecurityCode must hold the plaintext on entry; they are replaced by the
// bcrypt hashes before the write.
func (a *Account) Create(db *mongo.Database) error {
	if a.Role == "" {
		a.Role = RoleUser
	}
	if a.ProfilePicture == "" {
		a.ProfilePicture = DefaultProfilePicture
	}

	_, err := FromIDNumber(a.IDNumber, db)
	if err == nil {
		return internal.ErrDuplicateID
	}
	if !errors.Is(err, internal.ErrNotFound) {
		return err
	}

	_, err = FromEmail(a.Email, db)
	if err == nil {
		return internal.ErrDuplicateID
	}
	if !errors.Is(err, internal.ErrNotFound) {
		return err
	}

	pwd, err := bcrypt.GenerateFromPassword([]byte(a.Password), 10)
	if err != nil {
		return err
	}
	code, err := bcrypt.GenerateFromPassword([]byte(a.SecurityCode), 10)
	if err != nil {
		return err
	}
	a.Password = string(pwd)
	a.SecurityCode = string(code)

	a.ID = primitive.NewObjectID()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()

	mar, err := bson.Marshal(a)
	if err != nil {
		return errors.New("something went wrong marshalling account struct")
	}
	var b *bson.D
	err = bson.Unmarshal(mar, &b)
	if err != nil {
		return errors.New("something went wrong marshalling account struct")
	}

	_, err = db.Collection("accounts").InsertOne(context.TODO(), b)
	if err != nil {
		return internal.StoreFailure(err)
	}

	log.Info("inserted account with the id " + a.ID.Hex())

	return nil
}

func findOne(filter bson.D, projection bson.D, db *mongo.Database) (*Account, error) {
	opts := options.Find()
	if projection != nil {
		opts.SetProjection(projection)
	}

	cursor, err := db.Collection("accounts").Find(context.TODO(), filter, opts)
	if err != nil {
		return nil, internal.StoreFailure(err)
	}
	var results []bson.D
	if err = cursor.All(context.TODO(), &results); err != nil {
		return nil, internal.StoreFailure(err)
	}

	if len(results) < 1 {
		return nil, internal.ErrNotFound
	}

	doc, err := bson.Marshal(&results[0])
	if err != nil {
		return nil, errors.New("something went wrong")
	}

	var account *Account
	err = bson.Unmarshal(doc, &account)
	if err != nil {
		log.Errorf("unmarshal account: %s", err)
		return nil, errors.New("something went wrong unmarshalling account data")
	}

	return account, nil
}

// FromIDNumber returns the account named by an id number, without its
// secret fields.
func FromIDNumber(idNumber string, db *mongo.Database) (*Account, error) {
	return findOne(bson.D{{Key: "idNumber", Value: idNumber}}, secretless, db)
}

// FromEmail returns the account that owns an email, without its secret
// fields.
func FromEmail(email string, db *mongo.Database) (*Account, error) {
	return findOne(bson.D{{Key: "email", Value: email}}, secretless, db)
}

// VerifyPassword fails closed: a lookup miss or hash mismatch both come
// back as a nil account with a nil error, so the caller cannot tell which
// id numbers exist. An error means the store itself failed.
func VerifyPassword(idNumber string, password string, db *mongo.Database) (*Account, error) {
	account, err := findOne(bson.D{{Key: "idNumber", Value: idNumber}}, nil, db)
	if errors.Is(err, internal.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)) != nil {
		return nil, nil
	}

	return account, nil
}

// VerifySecurityCode mirrors VerifyPassword for the second factor.
func VerifySecurityCode(idNumber string, code string, db *mongo.Database) (*Account, error) {
	account, err := findOne(bson.D{{Key: "idNumber", Value: idNumber}}, nil, db)
	if errors.Is(err, internal.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.SecurityCode), []byte(code)) != nil {
		return nil, nil
	}

	return account, nil
}

// FromEmailAndSecurityCode is the password-recovery lookup.
func FromEmailAndSecurityCode(email string, code string, db *mongo.Database) (*Account, error) {
	account, err := findOne(bson.D{{Key: "email", Value: email}}, nil, db)
	if errors.Is(err, internal.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.SecurityCode), []byte(code)) != nil {
		return nil, nil
	}

	return account, nil
}

func setSecret(idNumber string, field string, plaintext string, db *mongo.Database) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), 10)
	if err != nil {
		return err
	}

	var filter = bson.D{{Key: "idNumber", Value: idNumber}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: string(hash)}, {Key: "updatedAt", Value: time.Now()}}}}

	res, err := db.Collection("accounts").UpdateOne(context.TODO(), filter, update)
	if err != nil {
		return internal.StoreFailure(err)
	}
	if res.MatchedCount == 0 {
		return internal.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the password after re-checking the current one.
func UpdatePassword(idNumber string, current string, next string, db *mongo.Database) error {
	account, err := VerifyPassword(idNumber, current, db)
	if err != nil {
		return err
	}
	if account == nil {
		return internal.ErrInvalidCredential
	}

	return setSecret(idNumber, "password", next, db)
}

// UpdateSecurityCode replaces the security code after re-checking the
// current one.
func UpdateSecurityCode(idNumber string, current string, next string, db *mongo.Database) error {
	account, err := VerifySecurityCode(idNumber, current, db)
	if err != nil {
		return err
	}
	if account == nil {
		return internal.ErrInvalidCredential
	}

	return setSecret(idNumber, "securityCode", next, db)
}

// ResetPassword writes a new password without a current-secret check. Only
// the forgot-password flow calls this, after the email + security-code
// match.
func ResetPassword(idNumber string, next string, db *mongo.Database) error {
	return setSecret(idNumber, "password", next, db)
}

// ProfileUpdate carries the mutable profile fields; empty fields are left
// untouched.
type ProfileUpdate struct {
	FirstName      string
	LastName       string
	Designation    string
	PassengerType  string
	ProfilePicture string
}

func UpdateProfile(idNumber string, upd ProfileUpdate, db *mongo.Database) error {
	set := bson.D{}
	if upd.FirstName != "" {
		set = append(set, bson.E{Key: "firstName", Value: upd.FirstName})
	}
	if upd.LastName != "" {
		set = append(set, bson.E{Key: "lastName", Value: upd.LastName})
	}
	if upd.Designation != "" {
		set = append(set, bson.E{Key: "designation", Value: upd.Designation})
	}
	if upd.PassengerType != "" {
		set = append(set, bson.E{Key: "passengerType", Value: upd.PassengerType})
	}
	if upd.ProfilePicture != "" {
		set = append(set, bson.E{Key: "profilePicture", Value: upd.ProfilePicture})
	}

	if len(set) == 0 {
		return internal.ErrValidation
	}
	set = append(set, bson.E{Key: "updatedAt", Value: time.Now()})

	var filter = bson.D{{Key: "idNumber", Value: idNumber}}
	res, err := db.Collection("accounts").UpdateOne(context.TODO(), filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return internal.StoreFailure(err)
	}
	if res.MatchedCount == 0 {
		return internal.ErrNotFound
	}

	return nil
}

// Delete removes the account after a password check. The caller is
// responsible for cascading to the account's reservations and sessions.
func Delete(idNumber string, password string, db *mongo.Database) error {
	account, err := VerifyPassword(idNumber, password, db)
	if err != nil {
		return err
	}
	if account == nil {
		return internal.ErrInvalidCredential
	}

	_, err = db.Collection("accounts").DeleteOne(context.TODO(), bson.D{{Key: "idNumber", Value: idNumber}})
	if err != nil {
		return internal.StoreFailure(err)
	}

	log.Info("deleted account with the id number " + idNumber)

	return nil
}
