package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"creditdesk/internal/audit"
	"creditdesk/internal/platform/middleware"
	"creditdesk/internal/transport/http/shared"
	id "creditdesk/pkg/domain"
	dErrors "creditdesk/pkg/domain-errors"
	"creditdesk/pkg/requestcontext"
)

// Service defines the audit read operations the handler exposes.
type Service interface {
	List(ctx context.Context) ([]audit.Entry, error)
	ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]audit.Entry, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]audit.Entry, error)
	ListFiltered(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
	ListPaginated(ctx context.Context, page, pageSize int, filter *audit.Filter) (*audit.PaginatedResult, error)
	GetStatistics(ctx context.Context, start, end *time.Time) (*audit.Statistics, error)
}

// Handler exposes the audit trail read API. Every route is analyst-only.
type Handler struct {
	audit        Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(audit Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		audit:        audit,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/audit-logs", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequireRole(id.RoleAnalyst, h.logger))

		r.Get("/", h.handleList)
		r.Get("/paginated", h.handleListPaginated)
		r.Get("/statistics", h.handleStatistics)
		r.Get("/application/{id}", h.handleListByApplication)
		r.Get("/user/{id}", h.handleListByUser)
	})
}

// handleList applies at most one filter criterion: applicationId wins over
// userId, which wins over action, which wins over the date range.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := parseFilter(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entries, err := h.audit.ListFiltered(ctx, *filter)
	if err != nil {
		h.serverError(w, r, "list audit entries failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, emptyIfNil(entries))
}

func (h *Handler) handleListPaginated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := queryInt(r, "page", 1)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	pageSize, err := queryInt(r, "pageSize", 20)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.audit.ListPaginated(ctx, page, pageSize, filter)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeBadRequest) {
			shared.WriteError(w, err)
			return
		}
		h.serverError(w, r, "paginated audit query failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start, err := queryDate(r, "startDate")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	end, err := queryDate(r, "endDate")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	stats, err := h.audit.GetStatistics(ctx, start, end)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeBadRequest) {
			shared.WriteError(w, err)
			return
		}
		h.serverError(w, r, "audit statistics failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleListByApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	entries, err := h.audit.ListByApplication(ctx, applicationID)
	if err != nil {
		h.serverError(w, r, "list audit entries by application failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, emptyIfNil(entries))
}

func (h *Handler) handleListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	entries, err := h.audit.ListByUser(ctx, userID)
	if err != nil {
		h.serverError(w, r, "list audit entries by user failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, emptyIfNil(entries))
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"request_id", requestcontext.RequestID(r.Context()),
		"error", err.Error(),
	)
	shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "audit query failed"))
}

func parseFilter(r *http.Request) (*audit.Filter, error) {
	q := r.URL.Query()
	var filter audit.Filter

	if raw := q.Get("applicationId"); raw != "" {
		applicationID, err := id.ParseApplicationID(raw)
		if err != nil {
			return nil, err
		}
		filter.ApplicationID = &applicationID
	}
	if raw := q.Get("userId"); raw != "" {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return nil, err
		}
		filter.UserID = &userID
	}
	filter.Action = q.Get("action")

	start, err := queryDate(r, "startDate")
	if err != nil {
		return nil, err
	}
	end, err := queryDate(r, "endDate")
	if err != nil {
		return nil, err
	}
	filter.StartDate = start
	filter.EndDate = end
	return &filter, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be an integer")
	}
	return n, nil
}

// queryDate accepts RFC 3339 timestamps or bare dates.
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeBadRequest, name+" must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

func emptyIfNil(entries []audit.Entry) []audit.Entry {
	if entries == nil {
		return []audit.Entry{}
	}
	return entries
}
