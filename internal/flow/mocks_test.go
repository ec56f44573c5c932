package flow

import (
	"context"
	"errors"

	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/models"
)

// MockProvider implements identity.Provider for testing
type MockProvider struct {
	SendOneTimeCodeFunc   func(ctx context.Context, email string) error
	VerifyOneTimeCodeFunc func(ctx context.Context, email, code string) (*identity.Session, error)
	CurrentUserFunc       func(ctx context.Context, session *identity.Session) (string, error)
	SignOutFunc           func(ctx context.Context, session *identity.Session) error

	SendCalls    int
	VerifyCalls  int
	SignOutCalls int
}

func (m *MockProvider) SendOneTimeCode(ctx context.Context, email string) error {
	m.SendCalls++
	if m.SendOneTimeCodeFunc != nil {
		return m.SendOneTimeCodeFunc(ctx, email)
	}
	return nil
}

func (m *MockProvider) VerifyOneTimeCode(ctx context.Context, email, code string) (*identity.Session, error) {
	m.VerifyCalls++
	if m.VerifyOneTimeCodeFunc != nil {
		return m.VerifyOneTimeCodeFunc(ctx, email, code)
	}
	return &identity.Session{Email: email, AccessToken: "token"}, nil
}

func (m *MockProvider) CurrentUser(ctx context.Context, session *identity.Session) (string, error) {
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx, session)
	}
	if session == nil {
		return "", models.ErrNoSession
	}
	return session.Email, nil
}

func (m *MockProvider) SignOut(ctx context.Context, session *identity.Session) error {
	m.SignOutCalls++
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, session)
	}
	return nil
}

// MockRecordStore implements store.RecordStore for testing
type MockRecordStore struct {
	GetRowFunc     func(ctx context.Context, email string) (models.Row, error)
	ListRowsFunc   func(ctx context.Context) ([]models.Row, error)
	UpsertRowsFunc func(ctx context.Context, rows []models.Row) error

	UpsertedRows []models.Row
}

func (m *MockRecordStore) GetRow(ctx context.Context, email string) (models.Row, error) {
	if m.GetRowFunc != nil {
		return m.GetRowFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockRecordStore) ListRows(ctx context.Context) ([]models.Row, error) {
	if m.ListRowsFunc != nil {
		return m.ListRowsFunc(ctx)
	}
	return []models.Row{}, nil
}

func (m *MockRecordStore) UpsertRows(ctx context.Context, rows []models.Row) error {
	m.UpsertedRows = rows
	if m.UpsertRowsFunc != nil {
		return m.UpsertRowsFunc(ctx, rows)
	}
	return nil
}

// MockClipboard implements Clipboard for testing
type MockClipboard struct {
	WriteTextFunc func(text string) error
	Written       []string
}

func (m *MockClipboard) WriteText(text string) error {
	if m.WriteTextFunc != nil {
		if err := m.WriteTextFunc(text); err != nil {
			return err
		}
	}
	m.Written = append(m.Written, text)
	return nil
}

var errBoom = errors.New("boom")
