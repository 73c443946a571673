package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"stock-ledger/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc app.ApplicationService
	log *logrus.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, log *logrus.Logger, allowedOrigins []string) http.Handler {
	h := &Handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	if len(allowedOrigins) > 0 {
		r.Use(CORS(allowedOrigins))
	}

	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// Purchase orders and line items
		r.Get("/api/orders", h.listOrders)
		r.Post("/api/orders", h.submitBatch)
		r.Get("/api/orders/{id}", h.getOrder)
		r.Post("/api/orders/{id}/request-edit", h.requestOrderEdit)
		r.Post("/api/orders/{id}/approve-edit", h.approveOrderEdit)
		r.Delete("/api/orders/{id}", h.secureDeleteOrder)

		r.Get("/api/requests/{id}", h.getRequest)
		r.Post("/api/requests/{id}/approve", h.approveItem)
		r.Post("/api/requests/{id}/reject", h.rejectItem)
		r.Post("/api/requests/{id}/revert", h.revertItem)
		r.Post("/api/requests/{id}/request-edit", h.requestEdit)
		r.Post("/api/requests/{id}/deny-edit", h.denyEdit)
		r.Post("/api/requests/{id}/approve-edit", h.approveEdit)
		r.Put("/api/requests/{id}", h.updateRequest)
		r.Post("/api/requests/batch-approve", h.batchApprove)

		// Ledger
		r.Get("/api/stock", h.stockLevels)
		r.Post("/api/stock/adjust", h.adjustStock)
		r.Post("/api/ledger/reconcile", h.reconcile)

		// Production
		r.Post("/api/production/simulate", h.simulateProduction)
		r.Post("/api/production/commit", h.commitProduction)

		// Catalog
		r.Get("/api/items", h.listItems)
		r.Get("/api/locations", h.listLocations)
		r.Get("/api/suppliers", h.listSuppliers)
		r.Get("/api/items/{code}/bom", h.getBOM)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// idParam extracts the numeric {id} URL parameter.
func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "invalid id parameter", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// actorParam reads the acting user from the X-Actor header, defaulting to
// "api" when absent.
func actorParam(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "api"
}

// decodeJSON decodes the request body into v, writing an appropriate error
// response on failure. HTTP 413 when the body exceeds the middleware limit,
// HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
