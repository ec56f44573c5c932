package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rollcall-app/rollcall/internal/models"
)

// PostgRESTStore talks to a PostgREST-style hosted table API. Row-level
// security is enforced by the backend; this client only shapes
// requests.
type PostgRESTStore struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	table      string
}

// NewPostgRESTStore creates a store client for the given REST base URL
// (e.g. "https://xyz.example.co/rest/v1"), API key, and table name.
func NewPostgRESTStore(baseURL, apiKey, table string) *PostgRESTStore {
	return &PostgRESTStore{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		table:      table,
	}
}

// GetRow fetches the single row keyed by email. The single-object
// Accept header makes the backend reject zero or multiple matches.
func (s *PostgRESTStore) GetRow(ctx context.Context, email string) (models.Row, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set(models.EmailColumn, "eq."+email)

	req, err := s.newRequest(ctx, http.MethodGet, query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.pgrst.object+json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotAcceptable:
		// PostgREST rejects single-object reads that match zero or
		// multiple rows.
		return nil, models.ErrRowNotSingle
	case http.StatusNotFound:
		return nil, models.ErrNotFound
	default:
		return nil, s.responseError(resp)
	}

	var row models.Row
	if err := json.NewDecoder(resp.Body).Decode(&row); err != nil {
		return nil, fmt.Errorf("failed to decode row: %w", err)
	}
	return row, nil
}

// ListRows fetches every row ordered by email ascending.
func (s *PostgRESTStore) ListRows(ctx context.Context) ([]models.Row, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", models.EmailColumn+".asc")

	req, err := s.newRequest(ctx, http.MethodGet, query, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.responseError(resp)
	}

	var rows []models.Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, nil
}

// UpsertRows inserts or updates the given rows, merging duplicates on
// the email column.
func (s *PostgRESTStore) UpsertRows(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}

	query := url.Values{}
	query.Set("on_conflict", models.EmailColumn)

	req, err := s.newRequest(ctx, http.MethodPost, query, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK &&
		resp.StatusCode != http.StatusNoContent {
		return s.responseError(resp)
	}
	return nil
}

func (s *PostgRESTStore) newRequest(ctx context.Context, method string, query url.Values, body io.Reader) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s/%s?%s", s.baseURL, url.PathEscape(s.table), query.Encode())

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build store request: %w", err)
	}

	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return req, nil
}

// responseError turns a non-2xx store response into a StoreError with
// the backend's own message when it sent one.
func (s *PostgRESTStore) responseError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
		Details string `json:"details"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)

	message := payload.Message
	if message == "" {
		message = payload.Details
	}
	return &StoreError{Status: resp.StatusCode, Message: message}
}
