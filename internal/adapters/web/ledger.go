package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"stock-ledger/internal/app"
	"stock-ledger/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func (h *Handler) stockLevels(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetStockLevels(r.Context(),
		r.URL.Query().Get("location"), r.URL.Query().Get("item"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Levels)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ItemCode     string           `json:"item_code"`
		LocationCode string           `json:"location_code"`
		NewCount     decimal.Decimal  `json:"new_count"`
		UnitCost     *decimal.Decimal `json:"unit_cost,omitempty"`
		Reason       string           `json:"reason"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	result, err := h.svc.AdjustStock(r.Context(), app.AdjustStockRequest{
		ItemCode:     payload.ItemCode,
		LocationCode: payload.LocationCode,
		NewCount:     payload.NewCount,
		UnitCost:     payload.UnitCost,
		Reason:       payload.Reason,
		Actor:        actorParam(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Result)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ItemID     *int `json:"item_id,omitempty"`
		LocationID *int `json:"location_id,omitempty"`
	}
	// An empty body means a full run. Chunked requests carry no
	// Content-Length, so always attempt the decode and let EOF mark empty.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.Reconcile(r.Context(), core.ReconcileScope{
		ItemID:     payload.ItemID,
		LocationID: payload.LocationID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

type productionPayload struct {
	FinishedCode string          `json:"finished_code"`
	LocationCode string          `json:"location_code"`
	Quantity     decimal.Decimal `json:"quantity"`
}

func (h *Handler) simulateProduction(w http.ResponseWriter, r *http.Request) {
	var payload productionPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	report, err := h.svc.SimulateProduction(r.Context(),
		payload.FinishedCode, payload.LocationCode, payload.Quantity)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) commitProduction(w http.ResponseWriter, r *http.Request) {
	var payload productionPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	result, err := h.svc.CommitProduction(r.Context(),
		payload.FinishedCode, payload.LocationCode, payload.Quantity, actorParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Result)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListItems(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Items)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListLocations(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Locations)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListSuppliers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Suppliers)
}

func (h *Handler) getBOM(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetBOM(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
