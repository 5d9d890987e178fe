package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/carepulse/internal/compliance"
	httpmiddleware "github.com/wolfman30/carepulse/internal/http/middleware"
	"github.com/wolfman30/carepulse/internal/http/respond"
	"github.com/wolfman30/carepulse/pkg/logging"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// AuditQuerier reads the compliance audit trail.
type AuditQuerier interface {
	QueryEvents(ctx context.Context, filter compliance.AuditFilter) ([]compliance.AuditEvent, error)
}

// AdminAuditHandler exposes the audit trail to administrators.
type AdminAuditHandler struct {
	audit  AuditQuerier
	logger *logging.Logger
}

func NewAdminAuditHandler(audit AuditQuerier, logger *logging.Logger) *AdminAuditHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminAuditHandler{audit: audit, logger: logger}
}

type auditResponse struct {
	Events []compliance.AuditEvent `json:"events"`
	Count  int                     `json:"count"`
}

// ListEvents handles GET /admin/audit
// Query: subject_id, actor, event_type, since, until (RFC3339), limit.
func (h *AdminAuditHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAuditFilter(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	events, err := h.audit.QueryEvents(r.Context(), filter)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	if events == nil {
		events = []compliance.AuditEvent{}
	}

	requester := "unknown"
	if claims, ok := httpmiddleware.AdminClaimsFromContext(r.Context()); ok {
		requester = claims.Subject
	}
	h.logger.Info("audit trail read",
		"admin", requester,
		"subject_id", filter.SubjectID,
		"event_type", string(filter.EventType),
		"count", len(events),
	)
	respond.JSON(w, http.StatusOK, auditResponse{Events: events, Count: len(events)})
}

func parseAuditFilter(r *http.Request) (compliance.AuditFilter, error) {
	q := r.URL.Query()
	filter := compliance.AuditFilter{
		SubjectID: strings.TrimSpace(q.Get("subject_id")),
		Actor:     strings.TrimSpace(q.Get("actor")),
		EventType: compliance.AuditEventType(strings.TrimSpace(q.Get("event_type"))),
		Limit:     defaultAuditLimit,
	}
	var err error
	if filter.StartTime, err = parseTime(q.Get("since")); err != nil {
		return filter, fmt.Errorf("%w: since must be RFC3339", respond.ErrBadRequest)
	}
	if filter.EndTime, err = parseTime(q.Get("until")); err != nil {
		return filter, fmt.Errorf("%w: until must be RFC3339", respond.ErrBadRequest)
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, fmt.Errorf("%w: limit must be a positive integer", respond.ErrBadRequest)
		}
		filter.Limit = min(limit, maxAuditLimit)
	}
	return filter, nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
