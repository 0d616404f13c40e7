package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"campus-transit/internal"
)

func TestSignTokenRoundTrip(t *testing.T) {
	t.Setenv("KEY", "test-signing-key")

	session := Session{
		ID:        primitive.NewObjectID(),
		IDNumber:  "1001",
		SessionID: primitive.NewObjectID(),
	}

	signed, err := signToken(&session)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-signing-key"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, session.ID.Hex(), claims["item_id"])
	assert.Equal(t, session.SessionID.Hex(), claims["session_id"])
	assert.Equal(t, "1001", claims["id_number"])
}

func TestLoginRequiresIDNumber(t *testing.T) {
	l := Login{Password: "p1"}
	_, err := l.Login(nil)
	assert.ErrorIs(t, err, internal.ErrInvalidCredential)
}

func TestRegisterFieldValidation(t *testing.T) {
	base := Register{
		IDNumber:        "1001",
		FirstName:       "John",
		LastName:        "Doe",
		Email:           "john@example.com",
		Password:        "p1",
		ConfirmPassword: "p1",
		SecurityCode:    "s1",
	}

	tests := []struct {
		name   string
		mutate func(*Register)
	}{
		{"missing id number", func(r *Register) { r.IDNumber = "" }},
		{"missing first name", func(r *Register) { r.FirstName = "" }},
		{"missing last name", func(r *Register) { r.LastName = "" }},
		{"missing email", func(r *Register) { r.Email = "" }},
		{"missing password", func(r *Register) { r.Password = ""; r.ConfirmPassword = "" }},
		{"password mismatch", func(r *Register) { r.ConfirmPassword = "other" }},
		{"missing security code", func(r *Register) { r.SecurityCode = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			// validation fires before any store access, so nil db is safe
			_, err := r.Register(nil)
			assert.Error(t, err)
		})
	}
}

func TestForgotPasswordNeedsMatchingPasswords(t *testing.T) {
	fp := ForgotPassword{
		Email:           "john@example.com",
		SecurityCode:    "s1",
		NewPassword:     "p2",
		ConfirmPassword: "p3",
	}
	err := fp.Reset(nil)
	assert.Error(t, err)
}

func TestSessionCreateRejectsZeroID(t *testing.T) {
	s := Session{}
	err := s.Create(nil)
	assert.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create inserts with a day expiry", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		s := Session{ID: primitive.NewObjectID(), IDNumber: "1001"}
		err := s.Create(mt.DB)
		require.NoError(mt, err)
		assert.False(mt, s.SessionID.IsZero())
		assert.False(mt, s.SecurityVerified)
		assert.False(mt, s.Expiry.IsZero())
	})

	mt.Run("mark security verified flips the flag", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		s := Session{ID: primitive.NewObjectID(), IDNumber: "1001", SessionID: primitive.NewObjectID()}
		err := s.MarkSecurityVerified(mt.DB)
		require.NoError(mt, err)
		assert.True(mt, s.SecurityVerified)
	})

	mt.Run("expired session is refused", func(mt *mtest.T) {
		accountID := primitive.NewObjectID()
		sessionID := primitive.NewObjectID()

		stored := bson.D{
			{Key: "_id", Value: sessionID},
			{Key: "item_id", Value: accountID},
			{Key: "id_number", Value: "1001"},
			{Key: "security_verified", Value: false},
			{Key: "expiry", Value: primitive.NewDateTimeFromTime(expiredTime())},
		}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, "campus.sessions", mtest.FirstBatch, stored),
			mtest.CreateCursorResponse(0, "campus.sessions", mtest.NextBatch),
		)

		claims := &Session{ID: accountID, SessionID: sessionID}
		_, _, err := GetAccount(claims, mt.DB)
		assert.Error(mt, err)
	})

	mt.Run("claims naming a different account are refused", func(mt *mtest.T) {
		sessionID := primitive.NewObjectID()

		stored := bson.D{
			{Key: "_id", Value: sessionID},
			{Key: "item_id", Value: primitive.NewObjectID()},
			{Key: "id_number", Value: "1001"},
			{Key: "security_verified", Value: false},
			{Key: "expiry", Value: primitive.NewDateTimeFromTime(futureTime())},
		}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, "campus.sessions", mtest.FirstBatch, stored),
			mtest.CreateCursorResponse(0, "campus.sessions", mtest.NextBatch),
		)

		claims := &Session{ID: primitive.NewObjectID(), SessionID: sessionID}
		_, _, err := GetAccount(claims, mt.DB)
		assert.Error(mt, err)
	})
}

func expiredTime() time.Time { return time.Now().Add(-time.Hour) }

func futureTime() time.Time { return time.Now().Add(time.Hour) }
