// Package handler exposes the rental workflow over HTTP.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vdgsa/rental-backend/domains/rentals/be/service"
	"github.com/vdgsa/rental-backend/platform/go/httpjson"
	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
	platformlogging "github.com/vdgsa/rental-backend/platform/go/logging"
)

// Handler wires the rentals service to the HTTP router.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("rentals service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the rental endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/rentals", func(r chi.Router) {
		r.Post("/viols/{id}/rent", h.rentOut)
		r.Post("/viols/{id}/renew", h.renew)
		r.Post("/viols/{id}/return", h.returnViol)
		r.Get("/items/{kind}/{id}/last", h.lastRental)
		r.Get("/items/{kind}/{id}/history", h.itemHistory)
		r.Get("/people/{id}/history", h.personHistory)
	})
}

type apiEntry struct {
	ID                int64      `json:"id"`
	OccurredAt        time.Time  `json:"occurred_at"`
	Event             string     `json:"event"`
	ItemKind          string     `json:"item_kind"`
	ItemID            int64      `json:"item_id"`
	ItemSize          string     `json:"item_size"`
	VdgsaNumber       int64      `json:"vdgsa_number"`
	ViolID            *int64     `json:"viol_id,omitempty"`
	RenterID          *int64     `json:"renter_id,omitempty"`
	RentalStart       *time.Time `json:"rental_start,omitempty"`
	RentalEnd         *time.Time `json:"rental_end,omitempty"`
	ContractReference *string    `json:"contract_reference,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

func toAPIEntry(entry service.Entry) apiEntry {
	return apiEntry{
		ID:                entry.ID,
		OccurredAt:        entry.OccurredAt,
		Event:             string(entry.Event),
		ItemKind:          string(entry.ItemKind),
		ItemID:            entry.ItemID,
		ItemSize:          string(entry.ItemSize),
		VdgsaNumber:       entry.VdgsaNumber,
		ViolID:            entry.ViolID,
		RenterID:          entry.RenterID,
		RentalStart:       entry.RentalStart,
		RentalEnd:         entry.RentalEnd,
		ContractReference: entry.ContractReference,
		Notes:             entry.Notes,
	}
}

func toAPIEntries(entries []service.Entry) []apiEntry {
	out := make([]apiEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toAPIEntry(entry))
	}
	return out
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &lifecycle.ValidationError{Field: "id", Msg: "must be a positive integer"}
	}
	return id, nil
}

type rentOutRequest struct {
	RenterID          int64     `json:"renter_id"`
	RentalStart       time.Time `json:"rental_start"`
	RentalEnd         time.Time `json:"rental_end"`
	ContractReference *string   `json:"contract_reference,omitempty"`
	Notes             string    `json:"notes,omitempty"`
}

func (h *Handler) rentOut(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	violID, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "rentOut", err)
		return
	}
	var req rentOutRequest
	if err := httpjson.DecodeBody(r, &req); err != nil {
		httpjson.WriteError(w, logger, "rentOut", err)
		return
	}

	entry, err := h.svc.RentOut(r.Context(), service.RentOutInput{
		ViolID:            violID,
		RenterID:          req.RenterID,
		RentalStart:       req.RentalStart,
		RentalEnd:         req.RentalEnd,
		ContractReference: req.ContractReference,
		Notes:             req.Notes,
	})
	if err != nil {
		httpjson.WriteError(w, logger, "rentOut", err)
		return
	}
	httpjson.Write(w, http.StatusCreated, toAPIEntry(entry))
}

type renewRequest struct {
	RentalEnd time.Time `json:"rental_end"`
	Notes     string    `json:"notes,omitempty"`
}

func (h *Handler) renew(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	violID, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "renewRental", err)
		return
	}
	var req renewRequest
	if err := httpjson.DecodeBody(r, &req); err != nil {
		httpjson.WriteError(w, logger, "renewRental", err)
		return
	}

	entry, err := h.svc.Renew(r.Context(), violID, req.RentalEnd, req.Notes)
	if err != nil {
		httpjson.WriteError(w, logger, "renewRental", err)
		return
	}
	httpjson.Write(w, http.StatusCreated, toAPIEntry(entry))
}

type returnRequest struct {
	Notes string `json:"notes,omitempty"`
}

func (h *Handler) returnViol(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	violID, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "returnRental", err)
		return
	}
	var req returnRequest
	if r.ContentLength > 0 {
		if err := httpjson.DecodeBody(r, &req); err != nil {
			httpjson.WriteError(w, logger, "returnRental", err)
			return
		}
	}

	entries, err := h.svc.Return(r.Context(), violID, req.Notes)
	if err != nil {
		httpjson.WriteError(w, logger, "returnRental", err)
		return
	}
	httpjson.Write(w, http.StatusCreated, toAPIEntries(entries))
}

func (h *Handler) lastRental(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	kind, err := lifecycle.ParseKindSegment(chi.URLParam(r, "kind"))
	if err != nil {
		httpjson.WriteError(w, logger, "lastRental", err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "lastRental", err)
		return
	}

	entry, err := h.svc.LastRentalFor(r.Context(), kind, id)
	if err != nil {
		httpjson.WriteError(w, logger, "lastRental", err)
		return
	}
	httpjson.Write(w, http.StatusOK, toAPIEntry(entry))
}

func (h *Handler) itemHistory(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	kind, err := lifecycle.ParseKindSegment(chi.URLParam(r, "kind"))
	if err != nil {
		httpjson.WriteError(w, logger, "itemHistory", err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "itemHistory", err)
		return
	}

	entries, err := h.svc.HistoryForItem(r.Context(), kind, id)
	if err != nil {
		httpjson.WriteError(w, logger, "itemHistory", err)
		return
	}
	httpjson.Write(w, http.StatusOK, toAPIEntries(entries))
}

func (h *Handler) personHistory(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	personID, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "personHistory", err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httpjson.WriteError(w, logger, "personHistory",
				&lifecycle.ValidationError{Field: "limit", Msg: "must be a non-negative integer"})
			return
		}
	}

	entries, err := h.svc.HistoryForPerson(r.Context(), personID, limit)
	if err != nil {
		httpjson.WriteError(w, logger, "personHistory", err)
		return
	}
	httpjson.Write(w, http.StatusOK, toAPIEntries(entries))
}
