package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		AccessToken:     "test-token",
		BaseURL:         server.URL,
		IntegratorID:    "dev-123",
		Timeout:         2 * time.Second,
		FrontendOrigin:  "https://shop.example",
		NotificationURL: "https://shop.example/api/webhook",
	}, zerolog.Nop())
}

func TestClient_CreatePreference(t *testing.T) {
	var captured preferenceRequest

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "dev-123", r.Header.Get("x-integrator-id"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(preferenceResponse{
			ID:        "pref-1",
			InitPoint: "https://mp.example/init",
		})
	})

	pref, err := client.CreatePreference(context.Background(), CreatePreferenceInput{
		PayerEmail: "cliente@example.com",
		Items: []PreferenceItem{
			{Title: "Asado", Quantity: 2, UnitPrice: 15.50, CurrencyID: "ARS"},
		},
		ExternalReference: "order-uuid",
	})
	require.NoError(t, err)

	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, "https://mp.example/init", pref.InitURL)

	assert.Equal(t, "cliente@example.com", captured.Payer.Email)
	assert.Equal(t, "order-uuid", captured.ExternalReference)
	assert.Equal(t, "https://shop.example/success", captured.BackURLs.Success)
	assert.Equal(t, "https://shop.example/failure", captured.BackURLs.Failure)
	assert.Equal(t, "https://shop.example/pending", captured.BackURLs.Pending)
	assert.Equal(t, "approved", captured.AutoReturn)
	assert.Equal(t, "https://shop.example/api/webhook", captured.NotificationURL)
	require.Len(t, captured.Items, 1)
	assert.Equal(t, 15.50, captured.Items[0].UnitPrice)
}

func TestClient_CreatePreference_SandboxFallback(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(preferenceResponse{
			ID:               "pref-1",
			SandboxInitPoint: "https://sandbox.mp.example/init",
		})
	})

	pref, err := client.CreatePreference(context.Background(), CreatePreferenceInput{ExternalReference: "x"})
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.mp.example/init", pref.InitURL)
}

func TestClient_CreatePreference_GatewayRejection(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid items"}`))
	})

	_, err := client.CreatePreference(context.Background(), CreatePreferenceInput{ExternalReference: "x"})
	require.ErrorIs(t, err, model.ErrPaymentGateway)
}

func TestClient_CreatePreference_NoToken(t *testing.T) {
	client := NewClient(Config{}, zerolog.Nop())

	_, err := client.CreatePreference(context.Background(), CreatePreferenceInput{})
	require.ErrorIs(t, err, model.ErrPaymentGateway)
}

func TestClient_GetPaymentDetail(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/123456", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(paymentResponse{
			Status:            "approved",
			ExternalReference: "order-uuid",
		})
	})

	detail, err := client.GetPaymentDetail(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, "approved", detail.Status)
	assert.Equal(t, "order-uuid", detail.ExternalReference)
}

func TestClient_GetPaymentDetail_NotFound(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetPaymentDetail(context.Background(), "missing")
	require.ErrorIs(t, err, model.ErrPaymentGateway)
}
