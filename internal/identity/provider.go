// Package identity abstracts the hosted authentication provider that
// issues and verifies emailed one-time codes and owns the user session.
package identity

import "context"

// Session is the provider-issued session for a signed-in identity. The
// token is opaque to the rest of the service; only the email is read.
type Session struct {
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Provider is the identity-provider contract: send a one-time code to
// an email address, verify a submitted code, query the current user,
// and end the session.
type Provider interface {
	SendOneTimeCode(ctx context.Context, email string) error
	VerifyOneTimeCode(ctx context.Context, email, code string) (*Session, error)
	CurrentUser(ctx context.Context, session *Session) (string, error)
	SignOut(ctx context.Context, session *Session) error
}

// ProviderError carries the provider's own message so it can be shown
// to the user verbatim, with the HTTP status for logging.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}
