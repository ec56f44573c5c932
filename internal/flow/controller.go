// Package flow implements the one-time-code verification flow: a small
// state machine that walks a visitor from an email form through code
// verification to their approved-user-info identifiers, with an admin
// sub-view for editing the full table.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
	pkglogger "github.com/rollcall-app/rollcall/pkg/logger"
)

// State is the current step of the verification flow.
type State string

const (
	StateEmail   State = "email"
	StateCode    State = "code"
	StateSuccess State = "success"
)

// DefaultCopyClearDelay is how long a copied identifier stays marked.
const DefaultCopyClearDelay = 2000 * time.Millisecond

// User-facing error messages. Provider and store messages take
// precedence when they carry one.
const (
	msgSendFailed    = "Could not send a verification code. Please try again."
	msgVerifyFailed  = "Could not verify the code. Please try again."
	msgNoIdentifiers = "No identifiers available for this user."
	msgAdminLoad     = "Could not load the approved user list."
	msgAdminSave     = "Could not save changes. Please try again."
)

// Config holds the controller's injected settings.
type Config struct {
	// AdminEmails gates visibility of the admin view, compared
	// case-insensitively. This is advisory UI gating only: actual
	// access control is the record store's row-level security.
	AdminEmails []string

	// CopyClearDelay overrides DefaultCopyClearDelay (tests use a
	// short one).
	CopyClearDelay time.Duration

	// InitialSession seeds a session recovered from the visitor's
	// cookie; RestoreSession validates it silently.
	InitialSession *identity.Session
}

// Controller owns the verification flow state for one browser session.
// All methods are safe for concurrent use; each returns the resulting
// Snapshot for rendering.
type Controller struct {
	provider  identity.Provider
	records   store.RecordStore
	clipboard Clipboard
	logger    *slog.Logger

	adminEmails    map[string]struct{}
	copyClearDelay time.Duration

	mu          sync.Mutex
	state       State
	flowGen     uint64
	email       string
	session     *identity.Session
	isAdmin     bool
	identifiers []models.Identifier

	emailErr   *FieldError
	codeErr    *FieldError
	generalErr string

	sending   bool
	verifying bool

	copiedLabel string
	copyTimer   *time.Timer
	copyGen     uint64

	restored bool

	showAdmin    bool
	adminLoading bool
	adminSaving  bool
	adminColumns []string
	adminRows    []models.Row
}

// Snapshot is the derived UI state consumed by presentation.
type Snapshot struct {
	State        State               `json:"state"`
	Email        string              `json:"email"`
	EmailError   *FieldError         `json:"email_error,omitempty"`
	CodeError    *FieldError         `json:"code_error,omitempty"`
	GeneralError string              `json:"general_error,omitempty"`
	Sending      bool                `json:"sending"`
	Verifying    bool                `json:"verifying"`
	IsAdmin      bool                `json:"is_admin"`
	Identifiers  []models.Identifier `json:"identifiers"`
	CopiedLabel  string              `json:"copied_label,omitempty"`
	ShowAdmin    bool                `json:"show_admin"`
	AdminLoading bool                `json:"admin_loading"`
	AdminSaving  bool                `json:"admin_saving"`
	AdminColumns []string            `json:"admin_columns,omitempty"`
	AdminRows    []models.Row        `json:"admin_rows,omitempty"`
}

// NewController creates a controller in the email state.
func NewController(provider identity.Provider, records store.RecordStore, clipboard Clipboard, cfg Config, logger *slog.Logger) *Controller {
	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		admins[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}

	delay := cfg.CopyClearDelay
	if delay <= 0 {
		delay = DefaultCopyClearDelay
	}

	return &Controller{
		provider:       provider,
		records:        records,
		clipboard:      clipboard,
		logger:         logger,
		adminEmails:    admins,
		copyClearDelay: delay,
		state:          StateEmail,
		session:        cfg.InitialSession,
	}
}

// Snapshot returns the current UI state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:        c.state,
		Email:        c.email,
		EmailError:   c.emailErr,
		CodeError:    c.codeErr,
		GeneralError: c.generalErr,
		Sending:      c.sending,
		Verifying:    c.verifying,
		IsAdmin:      c.isAdmin,
		CopiedLabel:  c.copiedLabel,
		ShowAdmin:    c.showAdmin,
		AdminLoading: c.adminLoading,
		AdminSaving:  c.adminSaving,
	}
	snap.Identifiers = append([]models.Identifier(nil), c.identifiers...)
	snap.AdminColumns = append([]string(nil), c.adminColumns...)
	for _, row := range c.adminRows {
		copied := make(models.Row, len(row))
		for k, v := range row {
			copied[k] = v
		}
		snap.AdminRows = append(snap.AdminRows, copied)
	}
	return snap
}

// CurrentSession returns the provider session, if any, so the transport
// layer can persist it in the visitor's cookie.
func (c *Controller) CurrentSession() *identity.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SubmitEmail validates the address and asks the provider to send a
// one-time code. On success the flow advances to the code state; on
// failure it stays put with an error.
func (c *Controller) SubmitEmail(ctx context.Context, raw string) Snapshot {
	c.mu.Lock()
	if c.sending {
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}

	email, ferr := ValidateEmail(raw)
	if ferr != nil {
		c.emailErr = ferr
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}

	c.emailErr = nil
	c.generalErr = ""
	c.sending = true
	gen := c.flowGen
	c.mu.Unlock()

	err := c.provider.SendOneTimeCode(ctx, email)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.flowGen {
		// A reset landed while the send was in flight; the result
		// belongs to a dead flow and must not touch the new one.
		return c.snapshotLocked()
	}
	c.sending = false

	if err != nil {
		c.logger.Error("failed to send one-time code",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		c.generalErr = collaboratorMessage(err, msgSendFailed)
		return c.snapshotLocked()
	}

	if c.state != StateEmail {
		// The flow moved on while the send was in flight; the
		// result is no longer observed.
		return c.snapshotLocked()
	}

	c.email = email
	c.state = StateCode
	return c.snapshotLocked()
}

// SubmitCode validates the code, verifies it with the provider, and on
// success fetches the record row for the verified identity. A verified
// account whose row yields zero identifiers cannot reach the success
// state.
func (c *Controller) SubmitCode(ctx context.Context, raw string) Snapshot {
	c.mu.Lock()
	if c.state != StateCode || c.verifying {
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}

	code, ferr := ValidateCode(raw)
	if ferr != nil {
		c.codeErr = ferr
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}

	c.codeErr = nil
	c.generalErr = ""
	c.verifying = true
	email := c.email
	c.mu.Unlock()

	session, identifiers, isAdmin, err := c.verifyAndFetch(ctx, email, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.verifying = false

	if c.state != StateCode {
		return c.snapshotLocked()
	}

	if err != nil {
		c.generalErr = collaboratorMessage(err, msgVerifyFailed)
		return c.snapshotLocked()
	}

	c.session = session
	c.isAdmin = isAdmin
	c.identifiers = identifiers
	c.clearCopyLocked()
	c.state = StateSuccess
	return c.snapshotLocked()
}

// verifyAndFetch runs the network half of SubmitCode without the lock
// held: verify the code, re-read the current user, fetch their row and
// derive identifiers.
func (c *Controller) verifyAndFetch(ctx context.Context, email, code string) (*identity.Session, []models.Identifier, bool, error) {
	session, err := c.provider.VerifyOneTimeCode(ctx, email, code)
	if err != nil {
		c.logger.Warn("one-time code verification failed",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return nil, nil, false, err
	}

	current, err := c.provider.CurrentUser(ctx, session)
	if err != nil {
		c.logger.Error("failed to read current user after verification",
			slog.Any("error", err))
		return nil, nil, false, err
	}

	identifiers, err := c.fetchIdentifiers(ctx, current)
	if err != nil {
		return nil, nil, false, err
	}

	return session, identifiers, c.isAdminEmail(current), nil
}

// fetchIdentifiers loads the record row for an email and derives its
// identifiers. Zero identifiers is an error: the account is verified
// but has no usable data.
func (c *Controller) fetchIdentifiers(ctx context.Context, email string) ([]models.Identifier, error) {
	row, err := c.records.GetRow(ctx, email)
	if err != nil {
		c.logger.Error("failed to fetch record row",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return nil, err
	}

	identifiers := DeriveIdentifiers(row)
	if len(identifiers) == 0 {
		c.logger.Warn("record row has no usable identifiers",
			slog.String("email", pkglogger.SanitizedEmail(email)))
		return nil, models.ErrNoIdentifiers
	}

	return identifiers, nil
}

// RestoreSession silently revalidates a session recovered from the
// visitor's cookie and, when everything checks out, jumps straight to
// the success state. Any failure at any step leaves the flow fresh at
// the email state with no error shown: an anonymous visit is not an
// error.
func (c *Controller) RestoreSession(ctx context.Context) Snapshot {
	c.mu.Lock()
	if c.restored || c.session == nil || c.state != StateEmail {
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}
	c.restored = true
	session := c.session
	c.mu.Unlock()

	email, err := c.provider.CurrentUser(ctx, session)
	if err != nil {
		c.logger.Info("session restore skipped", slog.Any("error", err))
		c.mu.Lock()
		defer c.mu.Unlock()
		c.session = nil
		return c.snapshotLocked()
	}

	identifiers, err := c.fetchIdentifiers(ctx, email)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.session = nil
		return c.snapshotLocked()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateEmail {
		return c.snapshotLocked()
	}
	c.email = email
	c.isAdmin = c.isAdminEmail(email)
	c.identifiers = identifiers
	c.clearCopyLocked()
	c.state = StateSuccess
	return c.snapshotLocked()
}

// StartOver returns from the code state to the email form, keeping the
// entered email available for editing.
func (c *Controller) StartOver() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCode {
		return c.snapshotLocked()
	}
	c.state = StateEmail
	c.codeErr = nil
	c.generalErr = ""
	return c.snapshotLocked()
}

// Reset clears all transient state and returns to the email form. It
// contacts no collaborator.
func (c *Controller) Reset() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	return c.snapshotLocked()
}

func (c *Controller) resetLocked() {
	c.flowGen++
	c.state = StateEmail
	c.email = ""
	c.session = nil
	c.isAdmin = false
	c.identifiers = nil
	c.emailErr = nil
	c.codeErr = nil
	c.generalErr = ""
	c.sending = false
	c.verifying = false
	c.clearCopyLocked()
	c.showAdmin = false
	c.adminLoading = false
	c.adminSaving = false
	c.adminColumns = nil
	c.adminRows = nil
}

// SignOut ends the provider session best-effort (errors are logged,
// never surfaced) and always resets the flow.
func (c *Controller) SignOut(ctx context.Context) Snapshot {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session != nil {
		if err := c.provider.SignOut(ctx, session); err != nil {
			c.logger.Warn("provider sign-out failed", slog.Any("error", err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	return c.snapshotLocked()
}

// CopyIdentifier writes an identifier value to the clipboard and marks
// its label as copied for the clear delay. A newer copy cancels the
// previous pending clear; at most one clear is ever scheduled. Write
// failures are logged and leave the copy state unchanged. Identifiers
// only exist in the success state; copies anywhere else are ignored.
func (c *Controller) CopyIdentifier(label, value string) Snapshot {
	c.mu.Lock()
	if c.state != StateSuccess {
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}
	c.mu.Unlock()

	if err := c.clipboard.WriteText(value); err != nil {
		c.logger.Warn("clipboard write failed",
			slog.String("label", label),
			slog.Any("error", err))
		return c.Snapshot()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSuccess {
		return c.snapshotLocked()
	}

	if c.copyTimer != nil {
		c.copyTimer.Stop()
	}
	c.copiedLabel = label
	c.copyGen++
	gen := c.copyGen
	c.copyTimer = time.AfterFunc(c.copyClearDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		// A newer copy superseded this clear while it was queued.
		if c.copyGen != gen {
			return
		}
		c.copiedLabel = ""
		c.copyTimer = nil
	})
	return c.snapshotLocked()
}

// clearCopyLocked cancels any pending clear and empties the copy state.
func (c *Controller) clearCopyLocked() {
	if c.copyTimer != nil {
		c.copyTimer.Stop()
		c.copyTimer = nil
	}
	c.copyGen++
	c.copiedLabel = ""
}

// OpenAdmin fetches all rows ordered by email and shows the admin view.
// The editable column set is derived once from the first row's keys.
func (c *Controller) OpenAdmin(ctx context.Context) Snapshot {
	c.mu.Lock()
	if !c.isAdmin || c.state != StateSuccess || c.adminLoading {
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}
	c.adminLoading = true
	c.generalErr = ""
	c.mu.Unlock()

	rows, err := c.records.ListRows(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.adminLoading = false

	if err != nil {
		c.logger.Error("failed to load admin rows", slog.Any("error", err))
		c.generalErr = collaboratorMessage(err, msgAdminLoad)
		return c.snapshotLocked()
	}

	c.adminColumns = nil
	if len(rows) > 0 {
		c.adminColumns = rows[0].Columns()
	}
	c.adminRows = rows
	c.showAdmin = true
	return c.snapshotLocked()
}

// AddAdminRow appends a blank row pre-populated with an empty email and
// empty values for every known column.
func (c *Controller) AddAdminRow() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isAdmin || !c.showAdmin {
		return c.snapshotLocked()
	}

	row := models.Row{models.EmailColumn: ""}
	for _, col := range c.adminColumns {
		row[col] = ""
	}
	c.adminRows = append(c.adminRows, row)
	return c.snapshotLocked()
}

// SaveAdmin replaces the in-memory mirror with the edited rows (when
// provided) and upserts the full set keyed by email.
func (c *Controller) SaveAdmin(ctx context.Context, edited []models.Row) Snapshot {
	c.mu.Lock()
	if !c.isAdmin || !c.showAdmin || c.adminSaving {
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}
	if edited != nil {
		c.adminRows = edited
	}
	rows := append([]models.Row(nil), c.adminRows...)
	c.adminSaving = true
	c.generalErr = ""
	c.mu.Unlock()

	err := c.records.UpsertRows(ctx, rows)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.adminSaving = false

	if err != nil {
		c.logger.Error("failed to save admin rows", slog.Any("error", err))
		c.generalErr = collaboratorMessage(err, msgAdminSave)
	}
	return c.snapshotLocked()
}

// ToggleAdminView loads-then-shows the admin view on entry and hides it
// on exit. Hiding discards unsaved edits silently.
func (c *Controller) ToggleAdminView(ctx context.Context) Snapshot {
	c.mu.Lock()
	if !c.isAdmin || c.state != StateSuccess {
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}
	if c.showAdmin {
		c.showAdmin = false
		c.adminRows = nil
		c.adminColumns = nil
		defer c.mu.Unlock()
		return c.snapshotLocked()
	}
	c.mu.Unlock()

	return c.OpenAdmin(ctx)
}

func (c *Controller) isAdminEmail(email string) bool {
	_, ok := c.adminEmails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// collaboratorMessage picks the provider's or store's own message when
// it carries one, falling back to a generic string.
func collaboratorMessage(err error, fallback string) string {
	if errors.Is(err, models.ErrNoIdentifiers) {
		return msgNoIdentifiers
	}

	var perr *identity.ProviderError
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	var serr *store.StoreError
	if errors.As(err, &serr) && serr.Message != "" {
		return serr.Message
	}
	return fallback
}
