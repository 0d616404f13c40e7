package reservations

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"campus-transit/internal"
)

func validReservation() Reservation {
	return Reservation{
		IDNumber:    "1001",
		StartCampus: "Main",
		Date:        "2024-05-01",
		EntryLoc:    "Gate A",
		EntryTime:   "08:00",
		ExitLoc:     "Gate B",
		ExitTime:    "17:00",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Reservation)
		err    error
	}{
		{"valid", func(r *Reservation) {}, nil},
		{"placeholder entry location", func(r *Reservation) { r.EntryLoc = PlaceholderEntryLoc }, internal.ErrValidation},
		{"placeholder entry time", func(r *Reservation) { r.EntryTime = PlaceholderEntryTime }, internal.ErrValidation},
		{"placeholder exit location", func(r *Reservation) { r.ExitLoc = PlaceholderExitLoc }, internal.ErrValidation},
		{"placeholder exit time", func(r *Reservation) { r.ExitTime = PlaceholderExitTime }, internal.ErrValidation},
		{"missing owner", func(r *Reservation) { r.IDNumber = "" }, internal.ErrValidation},
		{"missing date", func(r *Reservation) { r.Date = "" }, internal.ErrValidation},
		{"missing exit time", func(r *Reservation) { r.ExitTime = "" }, internal.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validReservation()
			tt.mutate(&r)
			err := r.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestParseLeg(t *testing.T) {
	leg, ok := ParseLeg("entry")
	require.True(t, ok)
	assert.Equal(t, LegEntry, leg)

	leg, ok = ParseLeg("exit")
	require.True(t, ok)
	assert.Equal(t, LegExit, leg)

	_, ok = ParseLeg("sideways")
	assert.False(t, ok)

	_, ok = ParseLeg("")
	assert.False(t, ok)
}

func TestPolicyFromEnv(t *testing.T) {
	t.Setenv("SLOT_CONFLICT_POLICY", "")
	assert.Equal(t, ConflictAllow, PolicyFromEnv())

	t.Setenv("SLOT_CONFLICT_POLICY", "reject")
	assert.Equal(t, ConflictReject, PolicyFromEnv())

	t.Setenv("SLOT_CONFLICT_POLICY", "nonsense")
	assert.Equal(t, ConflictAllow, PolicyFromEnv())
}

func TestConflictFilter(t *testing.T) {
	r := validReservation()
	r.ID = primitive.NewObjectID()
	filter := r.conflictFilter()

	t.Run("excludes the owner's own reservations", func(t *testing.T) {
		assert.Equal(t, bson.M{"$ne": r.ID}, filter["_id"])
		assert.Equal(t, bson.M{"$ne": "1001"}, filter["idNumber"])
	})

	t.Run("pins the slot date", func(t *testing.T) {
		assert.Equal(t, "2024-05-01", filter["date"])
	})

	t.Run("matches slots across legs", func(t *testing.T) {
		or, ok := filter["$or"].(bson.A)
		require.True(t, ok)
		require.Len(t, or, 4)
		// same-leg collisions
		assert.Contains(t, or, bson.M{"entryLoc": "Gate A", "entryTime": "08:00"})
		assert.Contains(t, or, bson.M{"exitLoc": "Gate B", "exitTime": "17:00"})
		// a stored exit leg occupies the slot a new entry leg wants, and vice versa
		assert.Contains(t, or, bson.M{"exitLoc": "Gate A", "exitTime": "08:00"})
		assert.Contains(t, or, bson.M{"entryLoc": "Gate B", "entryTime": "17:00"})
	})
}

func reservationDoc(r Reservation) bson.D {
	return bson.D{
		{Key: "_id", Value: r.ID},
		{Key: "idNumber", Value: r.IDNumber},
		{Key: "startCampus", Value: r.StartCampus},
		{Key: "date", Value: r.Date},
		{Key: "entryLoc", Value: r.EntryLoc},
		{Key: "entryTime", Value: r.EntryTime},
		{Key: "exitLoc", Value: r.ExitLoc},
		{Key: "exitTime", Value: r.ExitTime},
	}
}

func TestLedger(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create inserts under allow policy", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		r := validReservation()
		err := r.Create(ConflictAllow, mt.DB)
		require.NoError(mt, err)
		assert.False(mt, r.ID.IsZero())
	})

	mt.Run("create with placeholder leg fails before any write", func(mt *mtest.T) {
		// no mock responses queued: a store round-trip would fail loudly
		r := validReservation()
		r.EntryLoc = PlaceholderEntryLoc
		err := r.Create(ConflictAllow, mt.DB)
		assert.ErrorIs(mt, err, internal.ErrValidation)
	})

	mt.Run("create under reject policy refuses an occupied slot", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "campus.reservations", mtest.FirstBatch,
			bson.D{{Key: "n", Value: 1}}))

		r := validReservation()
		err := r.Create(ConflictReject, mt.DB)
		assert.ErrorIs(mt, err, internal.ErrSlotConflict)
	})

	mt.Run("create under reject policy admits a free slot", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "campus.reservations", mtest.FirstBatch,
				bson.D{{Key: "n", Value: 0}}),
			mtest.CreateSuccessResponse(),
		)

		r := validReservation()
		err := r.Create(ConflictReject, mt.DB)
		assert.NoError(mt, err)
	})

	mt.Run("reject policy sends the owner exclusion to the store", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "campus.reservations", mtest.FirstBatch,
				bson.D{{Key: "n", Value: 0}}),
			mtest.CreateSuccessResponse(),
		)

		r := validReservation()
		require.NoError(mt, r.Create(ConflictReject, mt.DB))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "aggregate", evt.CommandName)
		assert.Contains(mt, evt.Command.String(), "idNumber")
	})

	mt.Run("find slot decodes matches", func(mt *mtest.T) {
		want := validReservation()
		want.ID = primitive.NewObjectID()

		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, "campus.reservations", mtest.FirstBatch, reservationDoc(want)),
			mtest.CreateCursorResponse(0, "campus.reservations", mtest.NextBatch),
		)

		got, err := FindSlot("2024-05-01", "Gate A", "08:00", LegEntry, mt.DB)
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, want.ID, got[0].ID)
		assert.Equal(mt, "Gate A", got[0].EntryLoc)
	})

	mt.Run("find slot rejects an unknown leg", func(mt *mtest.T) {
		_, err := FindSlot("2024-05-01", "Gate A", "08:00", Leg("sideways"), mt.DB)
		assert.ErrorIs(mt, err, internal.ErrValidation)
	})

	mt.Run("update miss is not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		r := validReservation()
		r.ID = primitive.NewObjectID()
		err := r.Update(ConflictAllow, mt.DB)
		assert.ErrorIs(mt, err, internal.ErrNotFound)
	})

	mt.Run("update hit rewrites the record", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		r := validReservation()
		r.ID = primitive.NewObjectID()
		err := r.Update(ConflictAllow, mt.DB)
		assert.NoError(mt, err)
	})

	mt.Run("delete miss is not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := Delete(primitive.NewObjectID(), mt.DB)
		assert.ErrorIs(mt, err, internal.ErrNotFound)
	})

	mt.Run("delete hit removes the record", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		err := Delete(primitive.NewObjectID(), mt.DB)
		assert.NoError(mt, err)
	})

	mt.Run("cascade delete for an account", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}))

		err := DeleteAllForAccount("1001", mt.DB)
		assert.NoError(mt, err)
	})

	mt.Run("store failure surfaces as unavailable", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11600,
			Message: "interrupted",
			Name:    "Interrupted",
		}))

		_, err := FindForAccount("1001", mt.DB)
		require.Error(mt, err)
		assert.True(mt, errors.Is(err, internal.ErrStoreUnavailable))
	})
}
