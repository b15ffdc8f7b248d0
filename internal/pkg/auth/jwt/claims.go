package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims.
// The token is the only credential of an anonymous participant: it carries the opaque
// user id issued at registration and nothing that identifies the person behind it.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the directory identifier of the participant.
	ID string `json:"id"`

	// Nickname is the generated display label, echoed to the client on connect.
	Nickname string `json:"nickname,omitempty"`
}
