package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rollcall-app/rollcall/internal/flow"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/session"
	pkghttp "github.com/rollcall-app/rollcall/pkg/http"
	pkglogger "github.com/rollcall-app/rollcall/pkg/logger"
)

// FlowHandler exposes the verification flow over JSON endpoints. Every
// mutation returns the resulting flow snapshot, so the form re-renders
// from one source of truth.
type FlowHandler struct {
	sessions *session.Manager
	audit    *pkglogger.AuditLogger
}

// NewFlowHandler creates a new FlowHandler
func NewFlowHandler(sessions *session.Manager, audit *pkglogger.AuditLogger) *FlowHandler {
	return &FlowHandler{sessions: sessions, audit: audit}
}

// Request DTOs

// EmailRequest carries the address to send a one-time code to. The
// flow itself owns email validation, so no tags here.
type EmailRequest struct {
	Email string `json:"email"`
}

// CodeRequest carries the submitted one-time code.
type CodeRequest struct {
	Code string `json:"code"`
}

// CopyRequest reports a completed browser-side clipboard copy.
type CopyRequest struct {
	Label string `json:"label" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// SaveAdminRequest carries the edited admin row set.
type SaveAdminRequest struct {
	Rows []models.Row `json:"rows" validate:"required"`
}

// State returns the current snapshot, restoring a cookie-recovered
// provider session silently on the first call.
func (h *FlowHandler) State(w http.ResponseWriter, r *http.Request) {
	ctrl, sid := h.sessions.Attach(w, r)
	snap := ctrl.RestoreSession(r.Context())
	h.sessions.Refresh(w, sid, ctrl)
	pkghttp.WriteJSON(w, http.StatusOK, snap)
}

// SubmitEmail asks the provider to send a one-time code.
func (h *FlowHandler) SubmitEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctrl, sid := h.sessions.Attach(w, r)
	snap := ctrl.SubmitEmail(r.Context(), req.Email)
	h.sessions.Refresh(w, sid, ctrl)

	if snap.EmailError == nil {
		h.audit.LogVerification(pkglogger.VerificationEvent{
			EventType:     "code_sent",
			Email:         pkglogger.SanitizedEmail(snap.Email),
			IPAddress:     r.RemoteAddr,
			Success:       snap.State == flow.StateCode,
			FailureReason: snap.GeneralError,
		})
	}

	pkghttp.WriteJSON(w, http.StatusOK, snap)
}

// SubmitCode verifies the one-time code.
func (h *FlowHandler) SubmitCode(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctrl, sid := h.sessions.Attach(w, r)
	snap := ctrl.SubmitCode(r.Context(), req.Code)
	h.sessions.Refresh(w, sid, ctrl)

	if snap.CodeError == nil {
		h.audit.LogVerification(pkglogger.VerificationEvent{
			EventType:     "code_verified",
			Email:         pkglogger.SanitizedEmail(snap.Email),
			IPAddress:     r.RemoteAddr,
			Success:       snap.State == flow.StateSuccess,
			FailureReason: snap.GeneralError,
		})
	}

	pkghttp.WriteJSON(w, http.StatusOK, snap)
}

// StartOver returns from the code step to the email form.
func (h *FlowHandler) StartOver(w http.ResponseWriter, r *http.Request) {
	ctrl, sid := h.sessions.Attach(w, r)
	snap := ctrl.StartOver()
	h.sessions.Refresh(w, sid, ctrl)
	pkghttp.WriteJSON(w, http.StatusOK, snap)
}

// Reset clears the flow back to the email form.
func (h *FlowHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctrl, sid := h.sessions.Attach(w, r)
	snap := ctrl.Reset()
	h.sessions.Refresh(w, sid, ctrl)
	pkghttp.WriteJSON(w, http.StatusOK, snap)
}

// SignOut ends the provider session and resets the flow.
func (h *FlowHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctrl, sid := h.sessions.Attach(w, r)
	snap := ctrl.SignOut(r.Context())
	h.sessions.Refresh(w, sid, ctrl)

	h.audit.LogVerification(pkglogger.VerificationEvent{
		EventType: "sign_out",
		IPAddress: r.RemoteAddr,
		Success:   true,
	})

	pkghttp.WriteJSON(w, http.StatusOK, snap)
}

// Copy records a completed clipboard copy and schedules its clearance.
func (h *FlowHandler) Copy(w http.ResponseWriter, r *http.Request) {
	var req CopyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ctrl, sid := h.sessions.Attach(w, r)
	snap := ctrl.CopyIdentifier(req.Label, req.Value)
	h.sessions.Refresh(w, sid, ctrl)
	pkghttp.WriteJSON(w, http.StatusOK, snap)
}

// AdminOpen loads the full row set and shows the admin view.
func (h *FlowHandler) AdminOpen(w http.ResponseWriter, r *http.Request) {
	ctrl, sid := h.sessions.Attach(w, r)
	snap := ctrl.OpenAdmin(r.Context())
	h.sessions.Refresh(w, sid, ctrl)
	pkghttp.WriteJSON(w, http.StatusOK, snap)
}

// AdminAddRow appends a blank row to the admin mirror.
func (h *FlowHandler) AdminAddRow(w http.ResponseWriter, r *http.Request) {
	ctrl, sid := h.sessions.Attach(w, r)
	snap := ctrl.AddAdminRow()
	h.sessions.Refresh(w, sid, ctrl)
	pkghttp.WriteJSON(w, http.StatusOK, snap)
}

// AdminSave upserts the edited row set.
func (h *FlowHandler) AdminSave(w http.ResponseWriter, r *http.Request) {
	var req SaveAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ctrl, sid := h.sessions.Attach(w, r)
	snap := ctrl.SaveAdmin(r.Context(), req.Rows)
	h.sessions.Refresh(w, sid, ctrl)

	h.audit.LogVerification(pkglogger.VerificationEvent{
		EventType:     "admin_save",
		IPAddress:     r.RemoteAddr,
		Success:       snap.GeneralError == "",
		FailureReason: snap.GeneralError,
	})

	pkghttp.WriteJSON(w, http.StatusOK, snap)
}

// AdminToggle shows or hides the admin view.
func (h *FlowHandler) AdminToggle(w http.ResponseWriter, r *http.Request) {
	ctrl, sid := h.sessions.Attach(w, r)
	snap := ctrl.ToggleAdminView(r.Context())
	h.sessions.Refresh(w, sid, ctrl)
	pkghttp.WriteJSON(w, http.StatusOK, snap)
}
