// Package handler wires the contact endpoints to the resolver service. It is
// a thin transport layer: validation of the wire contract happens here, all
// identity logic stays in the service.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"contactgraph/internal/contact"
	"contactgraph/internal/contact/store"
	dErrors "contactgraph/pkg/domain-errors"
	"contactgraph/pkg/platform/httputil"
	"contactgraph/pkg/requestcontext"
)

// Service defines the resolver operations the handler depends on.
type Service interface {
	Identify(ctx context.Context, email, phoneNumber string) (*contact.ConsolidatedContact, error)
	Find(ctx context.Context, id *int64, email, phoneNumber string) ([]contact.Contact, error)
	Delete(ctx context.Context, id int64) error
}

// Handler exposes the contact HTTP surface.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a contact handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the contact endpoints. The unversioned identify route is
// kept as an alias of the v1 route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/contact/identify", h.HandleIdentify)
	r.Route("/v1/contact", func(r chi.Router) {
		r.Post("/identify", h.HandleIdentify)
		r.Get("/", h.HandleFind)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// HandleIdentify handles POST /contact/identify.
func (h *Handler) HandleIdentify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.Decode[IdentifyRequest](w, r, h.logger)
	if !ok {
		return
	}
	if !req.Valid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "email and phoneNumber are required"))
		return
	}

	view, err := h.service.Identify(ctx, *req.Email, *req.PhoneNumber)
	if err != nil {
		h.logger.ErrorContext(ctx, "identify failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "contact identified",
		"request_id", requestID,
		"primary_contact_id", view.PrimaryContactID,
		"secondaries", len(view.SecondaryContactIDs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleFind handles GET /v1/contact, returning raw matching records.
func (h *Handler) HandleFind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	var id *int64
	if raw := query.Get("id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id must be an integer"))
			return
		}
		id = &parsed
	}

	contacts, err := h.service.Find(ctx, id, query.Get("email"), query.Get("phoneNumber"))
	if err != nil {
		h.logger.ErrorContext(ctx, "contact lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, contacts)
}

// HandleDelete handles DELETE /v1/contact/{id}. A missing id reports
// bad_request, matching the contract this service replaced.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id must be an integer"))
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "record not found"))
			return
		}
		h.logger.ErrorContext(ctx, "contact delete failed",
			"request_id", requestID,
			"contact_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "contact deleted",
		"request_id", requestID,
		"contact_id", id,
	)
	httputil.WriteJSON(w, http.StatusOK, DeleteResponse{
		Message: fmt.Sprintf("successfully deleted contact %d", id),
	})
}
