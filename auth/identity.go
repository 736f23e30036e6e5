package auth

import (
	"errors"

	"firebase.google.com/go/v4/auth"
)

// Identity is what the federated sign-in result exposes to the rest of the
// system. Everything downstream is keyed by UID.
type Identity struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
}

var errMissingUID = errors.New("identity token has no uid")

// IdentityFromToken extracts the sign-in identity from a verified ID token.
// DisplayName, Email and PhotoURL are optional claims; only UID is required.
func IdentityFromToken(token *auth.Token) (Identity, error) {
	if token == nil || token.UID == "" {
		return Identity{}, errMissingUID
	}
	id := Identity{UID: token.UID}
	if v, ok := token.Claims["name"].(string); ok {
		id.DisplayName = v
	}
	if v, ok := token.Claims["email"].(string); ok {
		id.Email = v
	}
	if v, ok := token.Claims["picture"].(string); ok {
		id.PhotoURL = v
	}
	return id, nil
}
