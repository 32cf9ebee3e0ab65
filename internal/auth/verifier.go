package auth

import (
	"context"

	fbauth "firebase.google.com/go/v4/auth"
)

// Principal is the verified identity of the caller of an operation.
type Principal struct {
	UID           string
	Email         string
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
}

// Verifier checks a bearer token and returns the principal it proves.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// FirebaseVerifier validates Firebase ID tokens against the identity
// provider. Used in production.
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	principal := &Principal{UID: decoded.UID}
	if email, ok := decoded.Claims["email"].(string); ok {
		principal.Email = email
	}
	if name, ok := decoded.Claims["name"].(string); ok {
		principal.DisplayName = name
	}
	if picture, ok := decoded.Claims["picture"].(string); ok {
		principal.PhotoURL = picture
	}
	if verified, ok := decoded.Claims["email_verified"].(bool); ok {
		principal.EmailVerified = verified
	}
	return principal, nil
}
