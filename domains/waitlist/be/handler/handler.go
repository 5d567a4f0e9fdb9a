// Package handler exposes the waiting list over HTTP.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vdgsa/rental-backend/domains/waitlist/be/service"
	"github.com/vdgsa/rental-backend/platform/go/httpjson"
	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
	platformlogging "github.com/vdgsa/rental-backend/platform/go/logging"
)

// Handler wires the waitlist service to the HTTP router.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("waitlist service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the waitlist endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/waitlist", func(r chi.Router) {
		r.Get("/", h.listOpen)
		r.Post("/", h.enqueue)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Post("/fulfill", h.fulfill)
			r.Post("/cancel", h.cancel)
		})
	})
}

type apiEntry struct {
	ID                int64     `json:"id"`
	RequestedSize     string    `json:"requested_size"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone,omitempty"`
	AddressLine1      string    `json:"address_line1,omitempty"`
	AddressCity       string    `json:"address_city,omitempty"`
	AddressState      string    `json:"address_state,omitempty"`
	AddressPostalCode string    `json:"address_postal_code,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	DateRequested     time.Time `json:"date_requested"`
	Status            string    `json:"status"`
	ViolID            *int64    `json:"viol_id,omitempty"`
	MatchedItemID     *int64    `json:"matched_item_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func toAPIEntry(entry service.Entry) apiEntry {
	return apiEntry{
		ID:                entry.ID,
		RequestedSize:     string(entry.RequestedSize),
		FirstName:         entry.FirstName,
		LastName:          entry.LastName,
		Email:             entry.Email,
		Phone:             entry.Phone,
		AddressLine1:      entry.AddressLine1,
		AddressCity:       entry.AddressCity,
		AddressState:      entry.AddressState,
		AddressPostalCode: entry.AddressPostalCode,
		Notes:             entry.Notes,
		DateRequested:     entry.DateRequested,
		Status:            string(entry.Status),
		ViolID:            entry.ViolID,
		MatchedItemID:     entry.MatchedItemID,
		CreatedAt:         entry.CreatedAt,
	}
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &lifecycle.ValidationError{Field: "id", Msg: "must be a positive integer"}
	}
	return id, nil
}

type enqueueRequest struct {
	Size              string     `json:"size"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone,omitempty"`
	AddressLine1      string     `json:"address_line1,omitempty"`
	AddressCity       string     `json:"address_city,omitempty"`
	AddressState      string     `json:"address_state,omitempty"`
	AddressPostalCode string     `json:"address_postal_code,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	DateRequested     *time.Time `json:"date_requested,omitempty"`
	ViolID            *int64     `json:"viol_id,omitempty"`
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	var req enqueueRequest
	if err := httpjson.DecodeBody(r, &req); err != nil {
		httpjson.WriteError(w, logger, "enqueueWaitlist", err)
		return
	}

	input := service.EnqueueInput{
		Size:              req.Size,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             req.Email,
		Phone:             req.Phone,
		AddressLine1:      req.AddressLine1,
		AddressCity:       req.AddressCity,
		AddressState:      req.AddressState,
		AddressPostalCode: req.AddressPostalCode,
		Notes:             req.Notes,
		ViolID:            req.ViolID,
	}
	if req.DateRequested != nil {
		input.DateRequested = *req.DateRequested
	}

	entry, err := h.svc.Enqueue(r.Context(), input)
	if err != nil {
		httpjson.WriteError(w, logger, "enqueueWaitlist", err)
		return
	}
	httpjson.Write(w, http.StatusCreated, toAPIEntry(entry))
}

func (h *Handler) listOpen(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	var size *lifecycle.Size
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := lifecycle.ParseSize(raw)
		if err != nil {
			httpjson.WriteError(w, logger, "listWaitlist", err)
			return
		}
		size = &parsed
	}

	entries, err := h.svc.ListOpen(r.Context(), size)
	if err != nil {
		httpjson.WriteError(w, logger, "listWaitlist", err)
		return
	}
	out := make([]apiEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toAPIEntry(entry))
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	id, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "getWaitlistEntry", err)
		return
	}
	entry, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpjson.WriteError(w, logger, "getWaitlistEntry", err)
		return
	}
	httpjson.Write(w, http.StatusOK, toAPIEntry(entry))
}

type fulfillRequest struct {
	ViolID int64 `json:"viol_id"`
}

func (h *Handler) fulfill(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	id, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "fulfillWaitlist", err)
		return
	}
	var req fulfillRequest
	if err := httpjson.DecodeBody(r, &req); err != nil {
		httpjson.WriteError(w, logger, "fulfillWaitlist", err)
		return
	}
	if req.ViolID <= 0 {
		httpjson.WriteError(w, logger, "fulfillWaitlist",
			&lifecycle.ValidationError{Field: "viol_id", Msg: "must be a positive integer"})
		return
	}

	entry, err := h.svc.Fulfill(r.Context(), id, req.ViolID)
	if err != nil {
		httpjson.WriteError(w, logger, "fulfillWaitlist", err)
		return
	}
	httpjson.Write(w, http.StatusOK, toAPIEntry(entry))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	id, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "cancelWaitlist", err)
		return
	}
	if err := h.svc.Cancel(r.Context(), id); err != nil {
		httpjson.WriteError(w, logger, "cancelWaitlist", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
