package web

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"campus-transit/internal/accounts"
	"campus-transit/internal/reservations"
)

func TestCanonicalProfilePath(t *testing.T) {
	user := &accounts.Account{IDNumber: "1001", Role: accounts.RoleUser}
	assert.Equal(t, "/profile?idNumber=1001", canonicalProfilePath(user))

	admin := &accounts.Account{IDNumber: "2002", Role: accounts.RoleAdmin}
	assert.Equal(t, "/profile/admin?idNumber=2002", canonicalProfilePath(admin))
}

func TestProfileDetailsMapsDefaultPicture(t *testing.T) {
	account := &accounts.Account{
		IDNumber:       "1001",
		FirstName:      "John",
		ProfilePicture: accounts.DefaultProfilePicture,
	}
	details := profileDetails(account)
	assert.Equal(t, "images/profilepictures/Default.png", details["profilePicture"])

	account.ProfilePicture = ""
	details = profileDetails(account)
	assert.Equal(t, "images/profilepictures/Default.png", details["profilePicture"])

	account.ProfilePicture = "images/profilepictures/custom.png"
	details = profileDetails(account)
	assert.Equal(t, "images/profilepictures/custom.png", details["profilePicture"])
}

func TestProfileDetailsNeverCarriesSecrets(t *testing.T) {
	account := &accounts.Account{
		IDNumber:     "1001",
		Password:     "hash",
		SecurityCode: "hash",
	}
	details := profileDetails(account)
	for key := range details {
		assert.NotContains(t, []string{"password", "securityCode"}, key)
	}
}

func TestMayTouch(t *testing.T) {
	owner := &accounts.Account{IDNumber: "1001", Role: accounts.RoleUser}
	other := &accounts.Account{IDNumber: "3003", Role: accounts.RoleUser}
	admin := &accounts.Account{IDNumber: "2002", Role: accounts.RoleAdmin}
	res := &reservations.Reservation{IDNumber: "1001"}

	assert.True(t, mayTouch(owner, res))
	assert.False(t, mayTouch(other, res))
	// admins act on behalf of others at creation time only
	assert.False(t, mayTouch(admin, res))
}
