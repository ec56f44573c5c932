package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rollcall-app/rollcall/internal/models"
)

// HostedProvider talks to a GoTrue-style hosted auth API: one-time
// codes over email, bearer-token sessions, no passwords.
type HostedProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewHostedProvider creates a provider client for the given auth base
// URL (e.g. "https://xyz.example.co/auth/v1") and anon API key.
func NewHostedProvider(baseURL, apiKey string) *HostedProvider {
	return &HostedProvider{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// SendOneTimeCode asks the provider to email a one-time code.
func (p *HostedProvider) SendOneTimeCode(ctx context.Context, email string) error {
	body := map[string]any{
		"email":       email,
		"create_user": true,
	}

	resp, err := p.do(ctx, http.MethodPost, "/otp", p.apiKey, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return p.responseError(resp)
	}
	return nil
}

// verifyResponse is the provider's session payload on successful code
// verification.
type verifyResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		Email string `json:"email"`
	} `json:"user"`
}

// VerifyOneTimeCode exchanges an emailed code for a session.
func (p *HostedProvider) VerifyOneTimeCode(ctx context.Context, email, code string) (*Session, error) {
	body := map[string]any{
		"type":  "email",
		"email": email,
		"token": code,
	}

	resp, err := p.do(ctx, http.MethodPost, "/verify", p.apiKey, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, p.responseError(resp)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}
	if vr.AccessToken == "" {
		return nil, &ProviderError{Status: resp.StatusCode, Message: "provider returned no session"}
	}

	sessionEmail := vr.User.Email
	if sessionEmail == "" {
		sessionEmail = email
	}

	return &Session{
		Email:        sessionEmail,
		AccessToken:  vr.AccessToken,
		RefreshToken: vr.RefreshToken,
	}, nil
}

// CurrentUser returns the email of the session's user, validating the
// session token against the provider.
func (p *HostedProvider) CurrentUser(ctx context.Context, session *Session) (string, error) {
	if session == nil || session.AccessToken == "" {
		return "", models.ErrNoSession
	}

	resp, err := p.do(ctx, http.MethodGet, "/user", session.AccessToken, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", p.responseError(resp)
	}

	var user struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("failed to decode user response: %w", err)
	}
	if user.Email == "" {
		return "", models.ErrNoSession
	}
	return user.Email, nil
}

// SignOut revokes the session at the provider.
func (p *HostedProvider) SignOut(ctx context.Context, session *Session) error {
	if session == nil || session.AccessToken == "" {
		return nil
	}

	resp, err := p.do(ctx, http.MethodPost, "/logout", session.AccessToken, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return p.responseError(resp)
	}
	return nil
}

// do issues one request with the provider's auth headers.
func (p *HostedProvider) do(ctx context.Context, method, path, bearer string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider request: %w", err)
	}

	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	return resp, nil
}

// responseError turns a non-2xx provider response into a ProviderError
// carrying the provider's own message when it sent one.
func (p *HostedProvider) responseError(resp *http.Response) error {
	var payload struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)

	message := payload.Msg
	if message == "" {
		message = payload.Message
	}
	if message == "" {
		message = payload.ErrorDescription
	}

	return &ProviderError{Status: resp.StatusCode, Message: message}
}
