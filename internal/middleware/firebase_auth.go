package middleware

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// IDTokenClient is the part of *auth.Client used to verify Firebase ID tokens.
type IDTokenClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier verifies Firebase ID tokens
type FirebaseVerifier struct {
	client IDTokenClient
}

func NewFirebaseVerifier(client IDTokenClient) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) VerifyToken(ctx context.Context, idToken string) (string, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("verify firebase id token: %w", err)
	}
	return token.UID, nil
}
