package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingReconciler records reconcile calls without touching a store.
type recordingReconciler struct {
	mu         sync.Mutex
	paymentIDs []string
	err        error
}

func (r *recordingReconciler) Reconcile(ctx context.Context, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paymentIDs = append(r.paymentIDs, paymentID)
	return r.err
}

func (r *recordingReconciler) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paymentIDs...)
}

func TestWebhookHandler_Receive_AlwaysAcks(t *testing.T) {
	tests := []struct {
		name          string
		target        string
		body          string
		wantPaymentID string
	}{
		{"data.id body", "/api/webhook", `{"type":"payment","data":{"id":"123456"}}`, "123456"},
		{"resource body", "/api/webhook", `{"resource":"987654","topic":"payment"}`, "987654"},
		{"query parameter", "/api/webhook?id=555", `{}`, "555"},
		{"data.id wins over query", "/api/webhook?id=555", `{"data":{"id":"123"}}`, "123"},
		{"malformed body with query id", "/api/webhook?id=777", `{not json`, "777"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingReconciler{}
			h := NewWebhookHandler(rec, zerolog.Nop())

			req := httptest.NewRequest(http.MethodPost, tt.target, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.Receive(w, req)
			h.Wait()

			require.Equal(t, http.StatusOK, w.Code)

			var resp map[string]bool
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.True(t, resp["ok"])

			require.Len(t, rec.calls(), 1)
			assert.Equal(t, tt.wantPaymentID, rec.calls()[0])
		})
	}
}

func TestWebhookHandler_Receive_NoPaymentID(t *testing.T) {
	rec := &recordingReconciler{}
	h := NewWebhookHandler(rec, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewBufferString(`{"type":"test"}`))
	w := httptest.NewRecorder()
	h.Receive(w, req)
	h.Wait()

	// Acknowledged and dropped
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, rec.calls())
}

func TestWebhookHandler_Receive_ReconcileErrorInvisibleToGateway(t *testing.T) {
	rec := &recordingReconciler{err: assert.AnError}
	h := NewWebhookHandler(rec, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewBufferString(`{"data":{"id":"1"}}`))
	w := httptest.NewRecorder()
	h.Receive(w, req)
	h.Wait()

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, rec.calls(), 1)
}

func TestWebhookHandler_Receive_MethodNotAllowed(t *testing.T) {
	h := NewWebhookHandler(&recordingReconciler{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/webhook", nil)
	w := httptest.NewRecorder()
	h.Receive(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
