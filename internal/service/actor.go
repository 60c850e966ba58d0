package service

import "github.com/noah-isme/waste-mgmt-api/internal/models"

// Actor identifies the authenticated caller of a use case.
type Actor struct {
	UserID string
	Role   models.UserRole
}

// ActorFromClaims builds an Actor from verified token claims.
func ActorFromClaims(claims *models.JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}

// IsAdmin reports whether the actor has the ADMIN role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// IsDriver reports whether the actor has the DRIVER role.
func (a Actor) IsDriver() bool {
	return a.Role == models.RoleDriver
}
