package web

import (
	"context"
	"net/http"

	"stock-ledger/internal/app"

	"github.com/shopspring/decimal"
)

type lineDraftPayload struct {
	ItemCode     string          `json:"item_code"`
	ItemName     string          `json:"item_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	LocationCode string          `json:"location_code"`
}

func (p lineDraftPayload) draft() app.LineDraft {
	return app.LineDraft{
		ItemCode:     p.ItemCode,
		ItemName:     p.ItemName,
		Quantity:     p.Quantity,
		Unit:         p.Unit,
		TotalCost:    p.TotalCost,
		LocationCode: p.LocationCode,
	}
}

func (h *Handler) submitBatch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Nickname     string             `json:"nickname"`
		SupplierCode string             `json:"supplier_code"`
		Lines        []lineDraftPayload `json:"lines"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	req := app.SubmitBatchRequest{
		Nickname:     payload.Nickname,
		SupplierCode: payload.SupplierCode,
		CreatedBy:    actorParam(r),
	}
	for _, l := range payload.Lines {
		req.Lines = append(req.Lines, l.draft())
	}

	result, err := h.svc.SubmitBatch(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListOrders(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetRequest(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Request)
}

func (h *Handler) approveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ApproveItem(r.Context(), id, actorParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) rejectItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.RejectItem(r.Context(), id, actorParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Request)
}

func (h *Handler) revertItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.RevertItem(r.Context(), id, actorParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) batchApprove(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RequestIDs []int `json:"request_ids"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	result, err := h.svc.BatchApprove(r.Context(), payload.RequestIDs, actorParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) requestEdit(w http.ResponseWriter, r *http.Request) {
	h.lineTransition(w, r, h.svc.RequestEdit)
}

func (h *Handler) denyEdit(w http.ResponseWriter, r *http.Request) {
	h.lineTransition(w, r, h.svc.DenyEdit)
}

func (h *Handler) approveEdit(w http.ResponseWriter, r *http.Request) {
	h.lineTransition(w, r, h.svc.ApproveEdit)
}

// lineTransition factors the shared shape of no-body line status endpoints.
func (h *Handler) lineTransition(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, requestID int, actor string) (*app.RequestResult, error)) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := op(r.Context(), id, actorParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Request)
}

func (h *Handler) updateRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var payload lineDraftPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	result, err := h.svc.UpdateRequest(r.Context(), id, payload.draft(), actorParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Request)
}

func (h *Handler) requestOrderEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.RequestOrderEdit(r.Context(), id, actorParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

func (h *Handler) approveOrderEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ApproveOrderEdit(r.Context(), id, actorParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

func (h *Handler) secureDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.SecureDeleteOrder(r.Context(), id, actorParam(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
