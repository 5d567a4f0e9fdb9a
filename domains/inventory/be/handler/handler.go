// Package handler exposes the inventory service over HTTP.
package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vdgsa/rental-backend/domains/inventory/be/service"
	"github.com/vdgsa/rental-backend/platform/go/cache"
	"github.com/vdgsa/rental-backend/platform/go/httpjson"
	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
	platformlogging "github.com/vdgsa/rental-backend/platform/go/logging"
)

const listCachePrefix = "inventory:list:"

// Handler wires the inventory service to the HTTP router.
type Handler struct {
	svc    *service.Service
	cache  *cache.Cache
	logger *zap.Logger
}

// New constructs a Handler. The cache may be nil.
func New(svc *service.Service, c *cache.Cache, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("inventory service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, cache: c, logger: logger}
}

// Routes mounts the inventory endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/inventory/{kind}", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/next-number", h.nextNumber)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Delete("/", h.softDelete)
			r.Post("/available", h.markAvailable)
			r.Post("/retire", h.retire)
			r.Post("/attach", h.attach)
			r.Post("/detach", h.detach)
			r.Post("/custodian", h.changeCustodian)
		})
	})
}

type apiItem struct {
	Kind          string     `json:"kind"`
	ID            int64      `json:"id"`
	VdgsaNumber   int64      `json:"vdgsa_number"`
	Size          string     `json:"size"`
	Status        string     `json:"status"`
	Strings       *int       `json:"strings,omitempty"`
	Maker         string     `json:"maker,omitempty"`
	Provenance    string     `json:"provenance,omitempty"`
	Description   string     `json:"description,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Value         *float64   `json:"value,omitempty"`
	AccessionDate *time.Time `json:"accession_date,omitempty"`
	CustodianID   *int64     `json:"custodian_id,omitempty"`
	RenterID      *int64     `json:"renter_id,omitempty"`
	ViolID        *int64     `json:"viol_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toAPIItem(item service.Item) apiItem {
	return apiItem{
		Kind:          string(item.Kind),
		ID:            item.ID,
		VdgsaNumber:   item.VdgsaNumber,
		Size:          string(item.Size),
		Status:        string(item.Status),
		Strings:       item.Strings,
		Maker:         item.Maker,
		Provenance:    item.Provenance,
		Description:   item.Description,
		Notes:         item.Notes,
		Value:         item.Value,
		AccessionDate: item.AccessionDate,
		CustodianID:   item.CustodianID,
		RenterID:      item.RenterID,
		ViolID:        item.ViolID,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}

// Path segments use the plural form: /inventory/viols, /inventory/bows,
// /inventory/cases.
func (h *Handler) kindParam(r *http.Request) (lifecycle.Kind, error) {
	return lifecycle.ParseKindSegment(chi.URLParam(r, "kind"))
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &lifecycle.ValidationError{Field: "id", Msg: "must be a positive integer"}
	}
	return id, nil
}

func (h *Handler) invalidateListings(r *http.Request) {
	if err := h.cache.InvalidatePrefix(r.Context(), listCachePrefix); err != nil {
		platformlogging.FromRequest(r, h.logger).Warn("listing cache invalidation failed", zap.Error(err))
	}
}

type createRequest struct {
	Size          string     `json:"size"`
	VdgsaNumber   int64      `json:"vdgsa_number,omitempty"`
	Strings       *int       `json:"strings,omitempty"`
	Maker         string     `json:"maker,omitempty"`
	Provenance    string     `json:"provenance,omitempty"`
	Description   string     `json:"description,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Value         *float64   `json:"value,omitempty"`
	AccessionDate *time.Time `json:"accession_date,omitempty"`
	CustodianID   *int64     `json:"custodian_id,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	kind, err := h.kindParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "createItem", err)
		return
	}
	var req createRequest
	if err := httpjson.DecodeBody(r, &req); err != nil {
		httpjson.WriteError(w, logger, "createItem", err)
		return
	}

	item, err := h.svc.Create(r.Context(), service.CreateInput{
		Kind:          string(kind),
		Size:          req.Size,
		VdgsaNumber:   req.VdgsaNumber,
		Strings:       req.Strings,
		Maker:         req.Maker,
		Provenance:    req.Provenance,
		Description:   req.Description,
		Notes:         req.Notes,
		Value:         req.Value,
		AccessionDate: req.AccessionDate,
		CustodianID:   req.CustodianID,
	})
	if err != nil {
		httpjson.WriteError(w, logger, "createItem", err)
		return
	}

	h.invalidateListings(r)
	w.Header().Set("Location", fmt.Sprintf("/api/v1/inventory/%s/%d", item.Kind.Segment(), item.ID))
	httpjson.Write(w, http.StatusCreated, toAPIItem(item))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	kind, err := h.kindParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "listItems", err)
		return
	}
	filter, err := service.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		httpjson.WriteError(w, logger, "listItems", err)
		return
	}

	q := service.Query{Kind: kind, Filter: filter}
	if raw := r.URL.Query().Get("size"); raw != "" {
		size, err := lifecycle.ParseSize(raw)
		if err != nil {
			httpjson.WriteError(w, logger, "listItems", err)
			return
		}
		q.Size = &size
	}
	if raw := r.URL.Query().Get("viol_size"); raw != "" {
		size, err := lifecycle.ParseSize(raw)
		if err != nil {
			httpjson.WriteError(w, logger, "listItems", err)
			return
		}
		q.ViolSize = &size
	}

	cacheKey := fmt.Sprintf("%s%s:%s:%s:%s", listCachePrefix, kind, filter,
		r.URL.Query().Get("size"), r.URL.Query().Get("viol_size"))
	var cached []apiItem
	if hit, err := h.cache.GetJSON(r.Context(), cacheKey, &cached); err != nil {
		logger.Warn("listing cache read failed", zap.Error(err))
	} else if hit {
		httpjson.Write(w, http.StatusOK, cached)
		return
	}

	items, err := h.svc.List(r.Context(), q)
	if err != nil {
		httpjson.WriteError(w, logger, "listItems", err)
		return
	}

	out := make([]apiItem, 0, len(items))
	for _, item := range items {
		out = append(out, toAPIItem(item))
	}
	if err := h.cache.SetJSON(r.Context(), cacheKey, out); err != nil {
		logger.Warn("listing cache write failed", zap.Error(err))
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *Handler) nextNumber(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	kind, err := h.kindParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "nextSequenceNumber", err)
		return
	}
	next, err := h.svc.NextSequenceNumber(r.Context(), string(kind))
	if err != nil {
		httpjson.WriteError(w, logger, "nextSequenceNumber", err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]int64{"next_vdgsa_number": next})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	kind, err := h.kindParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "getItem", err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "getItem", err)
		return
	}

	item, err := h.svc.Get(r.Context(), kind, id)
	if err != nil {
		httpjson.WriteError(w, logger, "getItem", err)
		return
	}
	httpjson.Write(w, http.StatusOK, toAPIItem(item))
}

type notesRequest struct {
	Notes string `json:"notes,omitempty"`
}

func (h *Handler) softDelete(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	kind, err := h.kindParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "deleteItem", err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "deleteItem", err)
		return
	}

	var req notesRequest
	if r.ContentLength > 0 {
		if err := httpjson.DecodeBody(r, &req); err != nil {
			httpjson.WriteError(w, logger, "deleteItem", err)
			return
		}
	}

	if err := h.svc.SoftDelete(r.Context(), kind, id, req.Notes); err != nil {
		httpjson.WriteError(w, logger, "deleteItem", err)
		return
	}
	h.invalidateListings(r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAvailable(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	kind, err := h.kindParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "markAvailable", err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "markAvailable", err)
		return
	}

	var req notesRequest
	if r.ContentLength > 0 {
		if err := httpjson.DecodeBody(r, &req); err != nil {
			httpjson.WriteError(w, logger, "markAvailable", err)
			return
		}
	}

	item, err := h.svc.MarkAvailable(r.Context(), kind, id, req.Notes)
	if err != nil {
		httpjson.WriteError(w, logger, "markAvailable", err)
		return
	}
	h.invalidateListings(r)
	httpjson.Write(w, http.StatusOK, toAPIItem(item))
}

type retireRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) retire(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	kind, err := h.kindParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "retireItem", err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "retireItem", err)
		return
	}

	var req retireRequest
	if r.ContentLength > 0 {
		if err := httpjson.DecodeBody(r, &req); err != nil {
			httpjson.WriteError(w, logger, "retireItem", err)
			return
		}
	}

	if err := h.svc.Retire(r.Context(), kind, id, req.Reason); err != nil {
		httpjson.WriteError(w, logger, "retireItem", err)
		return
	}
	h.invalidateListings(r)
	w.WriteHeader(http.StatusNoContent)
}

type attachRequest struct {
	ViolID int64 `json:"viol_id"`
}

func (h *Handler) attach(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	kind, err := h.kindParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "attachItem", err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "attachItem", err)
		return
	}

	var req attachRequest
	if err := httpjson.DecodeBody(r, &req); err != nil {
		httpjson.WriteError(w, logger, "attachItem", err)
		return
	}
	if req.ViolID <= 0 {
		httpjson.WriteError(w, logger, "attachItem",
			&lifecycle.ValidationError{Field: "viol_id", Msg: "must be a positive integer"})
		return
	}

	if err := h.svc.Attach(r.Context(), kind, id, req.ViolID); err != nil {
		httpjson.WriteError(w, logger, "attachItem", err)
		return
	}
	h.invalidateListings(r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) detach(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	kind, err := h.kindParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "detachItem", err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "detachItem", err)
		return
	}

	if err := h.svc.Detach(r.Context(), kind, id); err != nil {
		httpjson.WriteError(w, logger, "detachItem", err)
		return
	}
	h.invalidateListings(r)
	w.WriteHeader(http.StatusNoContent)
}

type custodianRequest struct {
	CustodianID *int64 `json:"custodian_id"`
}

func (h *Handler) changeCustodian(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, h.logger)

	kind, err := h.kindParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "changeCustodian", err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		httpjson.WriteError(w, logger, "changeCustodian", err)
		return
	}

	var req custodianRequest
	if err := httpjson.DecodeBody(r, &req); err != nil {
		httpjson.WriteError(w, logger, "changeCustodian", err)
		return
	}

	if err := h.svc.ChangeCustodian(r.Context(), kind, id, req.CustodianID); err != nil {
		httpjson.WriteError(w, logger, "changeCustodian", err)
		return
	}
	h.invalidateListings(r)
	w.WriteHeader(http.StatusNoContent)
}
