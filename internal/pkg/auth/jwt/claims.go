package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set of a login token.
// A token is only accepted back from the same client environment it was issued to.
type Payload struct {
	jwt.StandardClaims

	// UserID is the id of the logged in user.
	UserID string `json:"user"`

	// Environment is the client environment string reported at login time.
	Environment string `json:"environment"`
}
