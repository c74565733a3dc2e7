package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"creditdesk/internal/application"
	"creditdesk/internal/platform/middleware"
	"creditdesk/internal/transport/http/shared"
	id "creditdesk/pkg/domain"
	dErrors "creditdesk/pkg/domain-errors"
	"creditdesk/pkg/requestcontext"
)

// Service defines the workflow operations the handler exposes.
type Service interface {
	CreateApplication(ctx context.Context, userID id.UserID, attrs application.Attributes) (*application.CreditApplication, error)
	UpdateStatus(ctx context.Context, applicationID id.ApplicationID, newStatus id.ApplicationStatus, actorID id.UserID) (*application.CreditApplication, error)
	GetUserApplications(ctx context.Context, userID id.UserID) ([]application.CreditApplication, error)
	GetAllApplications(ctx context.Context, statusFilter *id.ApplicationStatus) ([]application.CreditApplication, error)
}

// Handler exposes the credit application workflow over HTTP.
type Handler struct {
	applications Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(applications Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		applications: applications,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the workflow routes. Creation and my-applications are
// applicant routes; the full listing and status updates are analyst routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/credit-applications", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(id.RoleApplicant, h.logger))
			r.Post("/", h.handleCreate)
			r.Get("/my-applications", h.handleMyApplications)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(id.RoleAnalyst, h.logger))
			r.Get("/", h.handleListAll)
			r.Put("/{id}/status", h.handleUpdateStatus)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	var attrs application.Attributes
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	app, err := h.applications.CreateApplication(ctx, userID, attrs)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "create application failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to create application"))
		return
	}
	shared.WriteJSON(w, http.StatusCreated, app)
}

func (h *Handler) handleMyApplications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	apps, err := h.applications.GetUserApplications(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list user applications failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list applications"))
		return
	}
	if apps == nil {
		apps = []application.CreditApplication{}
	}
	shared.WriteJSON(w, http.StatusOK, apps)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var statusFilter *id.ApplicationStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := id.ParseApplicationStatus(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		statusFilter = &status
	}

	apps, err := h.applications.GetAllApplications(ctx, statusFilter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list applications failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list applications"))
		return
	}
	if apps == nil {
		apps = []application.CreditApplication{}
	}
	shared.WriteJSON(w, http.StatusOK, apps)
}

type updateStatusRequest struct {
	NewStatus string `json:"newStatus"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID := requestcontext.UserID(ctx)

	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	newStatus, err := id.ParseApplicationStatus(req.NewStatus)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	app, err := h.applications.UpdateStatus(ctx, applicationID, newStatus, actorID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) || dErrors.Is(err, dErrors.CodeInvalidInput) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "update status failed",
			"request_id", requestcontext.RequestID(ctx),
			"application_id", applicationID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to update status"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, app)
}
