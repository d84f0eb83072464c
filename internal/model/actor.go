package model

import "github.com/google/uuid"

// Actor is the authenticated identity attached to a request. It carries just
// the claims the lifecycle operations need for authorization and history
// attribution.
type Actor struct {
	UserID   uuid.UUID
	Name     string
	Email    string
	Role     Role
	VendorID *uuid.UUID // set for VENDOR actors
}

// IsAdmin reports whether the actor holds the ADMIN role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
