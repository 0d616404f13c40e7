package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Failure classes surfaced by the repositories. Handlers map these onto
// redirect flags or HTTP status codes, never onto raw driver errors.
var (
	ErrDuplicateID       = errors.New("account id already exists")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrValidation        = errors.New("reservation has unselected slot values")
	ErrNotFound          = errors.New("no matching record")
	ErrSlotConflict      = errors.New("slot already reserved")
	ErrStoreUnavailable  = errors.New("database query failed")
)

// StoreFailure wraps a driver error as ErrStoreUnavailable so callers can
// test with errors.Is without depending on driver internals.
func StoreFailure(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

type ErrorFormat struct {
	ObjectID primitive.ObjectID `json:"objectID,omitempty"`
	Message  string             `json:"message,omitempty"`
	Error    error              `json:"error,omitempty"`
	Function string             `json:"function,omitempty"`
	Level    logrus.Level       `json:"level,omitempty"`
	Package  string             `json:"package,omitempty"`
}

func (e ErrorFormat) String() string {
	marshal, err := json.Marshal(e)
	if err != nil {
		return ""
	}

	return string(marshal)
}

func (e ErrorFormat) ToError() error {
	e.Print()
	return errors.New(e.Message)
}

func (e ErrorFormat) Print() {
	if os.Getenv("DEBUG") == "true" {
		switch e.Level.String() {
		case "warning":
			logrus.Warn(e.String())
		case "error":
			logrus.Error(e.String())
		default:
			logrus.Info(e.String())
		}
	}
}
