package domain

import "context"

// CredentialProvider supplies the detector bearer token.
// It is passed explicitly to every scan call.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticCredential is a fixed detector token.
type StaticCredential string

// Token returns the token, or ErrCredentialUnavailable when it is empty.
func (c StaticCredential) Token(_ context.Context) (string, error) {
	if c == "" {
		return "", ErrCredentialUnavailable
	}
	return string(c), nil
}
