package auth

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"campus-transit/internal"
	"campus-transit/internal/accounts"
)

func signToken(session *Session) (string, error) {
	claims := jwt.MapClaims{
		"item_id":    session.ID.Hex(),
		"id_number":  session.IDNumber,
		"session_id": session.SessionID.Hex(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(os.Getenv("KEY")))
}

type Login struct {
	IDNumber string `json:"idNumber"`
	Password string `json:"password"`
}

// Login returns the token envelope on success. Bad credentials come back
// as ErrInvalidCredential regardless of whether the id number exists.
func (r *Login) Login(db *mongo.Database) (string, error) {
	if r.IDNumber == "" {
		ee := internal.ErrorFormat{Package: "internal.auth", Level: log.ErrorLevel, Function: "auth.Login", Message: "invalid id number"}
		ee.Print()
		return "", internal.ErrInvalidCredential
	}

	account, err := accounts.VerifyPassword(r.IDNumber, r.Password, db)
	if err != nil {
		return "", err
	}
	if account == nil {
		ee := internal.ErrorFormat{Package: "internal.auth", Level: log.ErrorLevel, Function: "auth.Login", Message: "invalid id number or password"}
		ee.Print()
		return "", internal.ErrInvalidCredential
	}

	session := Session{
		ID:       account.ID,
		IDNumber: account.IDNumber,
	}

	err = session.Create(db)
	if err != nil {
		ee := internal.ErrorFormat{Package: "internal.auth", Level: log.ErrorLevel, Function: "auth.Login", ObjectID: account.ID, Message: "unable to create session", Error: err}
		return "", ee.ToError()
	}

	t, err := signToken(&session)
	if err != nil {
		ee := internal.ErrorFormat{Package: "internal.auth", Level: log.ErrorLevel, Function: "auth.Login", Message: "unable to generate session token", Error: err}
		ee.Print()
		return "", err
	}

	// Secrets are never in the projection here, so the envelope carries
	// only public profile fields.
	account.Password = ""
	account.SecurityCode = ""

	out := map[string]any{
		"token": t,
		"data":  *account,
	}

	bytes, err := json.Marshal(out)
	if err != nil {
		ee := internal.ErrorFormat{Package: "internal.auth", Level: log.ErrorLevel, Function: "auth.Login", Message: "unable to marshal token"}
		return "", ee.ToError()
	}

	return string(bytes), nil
}

type Register struct {
	IDNumber        string `json:"idNumber"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Designation     string `json:"designation"`
	PassengerType   string `json:"passengerType"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	SecurityCode    string `json:"securityCode"`
}

// Register creates a user-role account and an initial session. Admin
// accounts are never provisioned through sign-up.
func (r *Register) Register(db *mongo.Database) (string, error) {
	if r.IDNumber == "" {
		return "", errors.New("invalid id number")
	}
	if r.FirstName == "" {
		return "", errors.New("invalid first name")
	}
	if r.LastName == "" {
		return "", errors.New("invalid last name")
	}
	if r.Email == "" {
		return "", errors.New("invalid email")
	}
	if r.Password == "" || r.Password != r.ConfirmPassword {
		return "", errors.New("invalid password, please ensure passwords match")
	}
	if r.SecurityCode == "" {
		return "", errors.New("invalid security code")
	}

	account := accounts.Account{
		IDNumber:      r.IDNumber,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		Designation:   r.Designation,
		PassengerType: r.PassengerType,
		Role:          accounts.RoleUser,
		Password:      r.Password,
		SecurityCode:  r.SecurityCode,
	}

	err := account.Create(db)
	if err != nil {
		return "", err
	}

	session := Session{
		ID:       account.ID,
		IDNumber: account.IDNumber,
	}
	err = session.Create(db)
	if err != nil {
		return "", err
	}

	t, err := signToken(&session)
	if err != nil {
		return "", err
	}

	out, err := accounts.FromIDNumber(account.IDNumber, db)
	if err != nil {
		return "", err
	}

	outMap := map[string]any{
		"token": t,
		"data":  *out,
	}

	bytes, err := json.Marshal(outMap)
	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

// VerifySecondFactor checks the security code and, on a match, promotes
// the session to its verified state. A mismatch is (false, nil) so the
// handler cannot leak whether the account exists.
func VerifySecondFactor(idNumber string, code string, session *Session, db *mongo.Database) (bool, error) {
	account, err := accounts.VerifySecurityCode(idNumber, code, db)
	if err != nil {
		return false, err
	}
	if account == nil {
		return false, nil
	}

	err = session.MarkSecurityVerified(db)
	if err != nil {
		return false, err
	}

	return true, nil
}

type ForgotPassword struct {
	Email           string `json:"email"`
	SecurityCode    string `json:"securityCode"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Reset sets a new password when the email and security code both match.
// It never reveals which of the two was wrong.
func (r *ForgotPassword) Reset(db *mongo.Database) error {
	if r.NewPassword == "" || r.NewPassword != r.ConfirmPassword {
		return errors.New("invalid password, please ensure passwords match")
	}

	account, err := accounts.FromEmailAndSecurityCode(r.Email, r.SecurityCode, db)
	if err != nil {
		return err
	}
	if account == nil {
		return internal.ErrInvalidCredential
	}

	err = accounts.ResetPassword(account.IDNumber, r.NewPassword, db)
	if err != nil {
		return err
	}

	log.Info("reset password for account " + account.IDNumber)

	return nil
}
