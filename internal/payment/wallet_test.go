package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletCreateOrder(t *testing.T) {
	order := testOrder()
	var gotReq createWalletOrderRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/orders", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(walletOrderResponse{ID: "5O190127TN364715T", Status: "CREATED"})
	}))
	defer server.Close()

	client := NewWalletClient(server.URL, nil)

	providerOrderID, err := client.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "5O190127TN364715T", providerOrderID)

	assert.Equal(t, order.ID.String(), gotReq.ReferenceID)
	assert.Equal(t, "184.00", gotReq.Amount.Value)
	assert.Equal(t, "USD", gotReq.Amount.Currency)
}

func TestWalletCapture_Completed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/orders/5O190127TN364715T/capture", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		resp := walletOrderResponse{
			ID:         "5O190127TN364715T",
			Status:     "COMPLETED",
			UpdateTime: "2026-08-29T10:00:00Z",
		}
		resp.Payer.EmailAddress = "buyer@example.com"
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewWalletClient(server.URL, nil)

	receipt, err := client.Capture(context.Background(), "5O190127TN364715T")
	require.NoError(t, err)
	assert.Equal(t, "5O190127TN364715T", receipt.ID)
	assert.Equal(t, "COMPLETED", receipt.Status)
	assert.Equal(t, "buyer@example.com", receipt.EmailAddress)
}

func TestWalletCapture_Declined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(walletOrderResponse{ID: "5O190127TN364715T", Status: "DECLINED"})
	}))
	defer server.Close()

	client := NewWalletClient(server.URL, nil)

	_, err := client.Capture(context.Background(), "5O190127TN364715T")
	assert.ErrorIs(t, err, ErrCaptureDeclined)
}

func TestWalletVerifyOrder(t *testing.T) {
	status := "CREATED"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/orders/5O190127TN364715T", r.URL.Path)
		json.NewEncoder(w).Encode(walletOrderResponse{ID: "5O190127TN364715T", Status: status})
	}))
	defer server.Close()

	client := NewWalletClient(server.URL, nil)
	ctx := context.Background()

	_, paid, err := client.VerifyOrder(ctx, "5O190127TN364715T")
	require.NoError(t, err)
	assert.False(t, paid)

	status = "COMPLETED"
	receipt, paid, err := client.VerifyOrder(ctx, "5O190127TN364715T")
	require.NoError(t, err)
	assert.True(t, paid)
	require.NotNil(t, receipt)
	assert.Equal(t, "COMPLETED", receipt.Status)
}

func TestWalletClient_ProviderDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewWalletClient(server.URL, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := client.CreateOrder(ctx, testOrder())
		require.Error(t, err)
	}

	_, err := client.CreateOrder(ctx, testOrder())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}
