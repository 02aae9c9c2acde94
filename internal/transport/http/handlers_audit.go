package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/adonisja/tyche-finance-sub001/internal/audit"
	"github.com/adonisja/tyche-finance-sub001/pkg/requestcontext"
)

// AuditHandler serves the admin-facing audit trail endpoints.
type AuditHandler struct {
	logger *audit.Logger
	log    *slog.Logger
}

func NewAuditHandler(logger *audit.Logger, log *slog.Logger) *AuditHandler {
	return &AuditHandler{logger: logger, log: log}
}

type auditEntryResponse struct {
	ID              string    `json:"id"`
	SubjectID       string    `json:"subject_id"`
	Role            string    `json:"role"`
	Action          string    `json:"action"`
	Resource        string    `json:"resource,omitempty"`
	TargetSubjectID string    `json:"target_subject_id,omitempty"`
	Details         string    `json:"details,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Success         bool      `json:"success"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

// List returns the caller's tenant audit trail for a time window. The
// tenant always comes from the authorized principal, never from request
// input, so no query parameter can cross a tenant boundary.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := requestcontext.Principal(ctx)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing authorization")
		return
	}

	now := requestcontext.Now(ctx)
	from, to := now.Add(-24*time.Hour), now
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "from must be RFC3339")
			return
		}
		from = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "to must be RFC3339")
			return
		}
		to = t
	}

	filter := audit.Filter{
		SubjectID: r.URL.Query().Get("subject_id"),
		Action:    audit.Action(r.URL.Query().Get("action")),
	}

	entries, err := h.logger.Query(ctx, principal.TenantID, from, to, filter)
	if err != nil {
		h.log.ErrorContext(ctx, "audit query failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to query audit trail")
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			ID:              e.ID,
			SubjectID:       e.SubjectID,
			Role:            string(e.Role),
			Action:          string(e.Action),
			Resource:        e.Resource,
			TargetSubjectID: e.TargetSubjectID,
			Details:         e.Details,
			Timestamp:       e.Timestamp,
			Success:         e.Success,
			ErrorMessage:    e.ErrorMessage,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"entries": out})
}
