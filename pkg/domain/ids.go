package domain

import (
	"strconv"

	"github.com/google/uuid"

	dErrors "creditdesk/pkg/domain-errors"
)

// UserID identifies a registered user.
// Usage: construct via ParseUserID at trust boundaries; direct casting bypasses
// validation.
type UserID uuid.UUID

// NewUserID generates a fresh random user ID.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID constructs a UserID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or not a UUID.
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "user id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid user id")
	}
	return UserID(u), nil
}

// IsNil reports whether the ID is the zero UUID.
func (id UserID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText renders the canonical UUID form. Named types do not inherit the
// marshal methods of uuid.UUID, so JSON encoding needs these explicitly.
func (id UserID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ApplicationID identifies a credit application. Assigned by the store at
// creation (bigserial in postgres) and immutable afterwards.
type ApplicationID int64

// ParseApplicationID constructs an ApplicationID from external input.
//
// Errors: returns CodeInvalidInput when the value is not a positive integer.
func ParseApplicationID(s string) (ApplicationID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid application id")
	}
	return ApplicationID(n), nil
}

func (id ApplicationID) Int64() int64 {
	return int64(id)
}

func (id ApplicationID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
