package web_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stock-ledger/internal/adapters/web"
	"stock-ledger/internal/app"
	"stock-ledger/internal/core"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// reconcileStub records the scope the handler passed down.
type reconcileStub struct {
	app.ApplicationService
	scope core.ReconcileScope
}

func (s *reconcileStub) Reconcile(_ context.Context, scope core.ReconcileScope) (*core.ReconcileResult, error) {
	s.scope = scope
	return &core.ReconcileResult{}, nil
}

// chunkedBody hides the underlying reader's type so the request carries no
// Content-Length, like a chunked transfer from a proxy or streaming client.
type chunkedBody struct{ r io.Reader }

func (b chunkedBody) Read(p []byte) (int, error) { return b.r.Read(p) }

func newReconcileHandler(t *testing.T) (*reconcileStub, http.Handler) {
	t.Helper()
	stub := &reconcileStub{}
	log := logrus.New()
	log.SetOutput(io.Discard)
	return stub, web.NewHandler(stub, log, nil)
}

func TestReconcileRoute_ChunkedScopedBody(t *testing.T) {
	stub, handler := newReconcileHandler(t)

	body := chunkedBody{strings.NewReader(`{"item_id": 7}`)}
	req := httptest.NewRequest(http.MethodPost, "/api/ledger/reconcile", body)
	require.Equal(t, int64(-1), req.ContentLength)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.scope.ItemID)
	require.Equal(t, 7, *stub.scope.ItemID)
	require.Nil(t, stub.scope.LocationID)
}

func TestReconcileRoute_EmptyBodyRunsFullScope(t *testing.T) {
	stub, handler := newReconcileHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/ledger/reconcile", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, stub.scope.ItemID)
	require.Nil(t, stub.scope.LocationID)
}

func TestReconcileRoute_MalformedBodyRejected(t *testing.T) {
	_, handler := newReconcileHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/ledger/reconcile",
		strings.NewReader(`{"item_id": `))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
