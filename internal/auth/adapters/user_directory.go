// Package adapters maps auth models onto the interfaces other features
// consume, keeping those features decoupled from the auth store.
package adapters

import (
	"context"

	"creditdesk/internal/audit"
	"creditdesk/internal/auth"
	id "creditdesk/pkg/domain"
)

type userGetter interface {
	GetByID(ctx context.Context, userID id.UserID) (*auth.User, error)
}

// UserDirectory adapts the user store to audit.UserDirectory.
type UserDirectory struct {
	users userGetter
}

func NewUserDirectory(users userGetter) *UserDirectory {
	return &UserDirectory{users: users}
}

func (d *UserDirectory) FindByID(ctx context.Context, userID id.UserID) (*audit.UserInfo, error) {
	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &audit.UserInfo{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}, nil
}
