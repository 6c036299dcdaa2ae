package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelPaymentSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments/pay-1/cancel", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "customer request", body["reason"])

		json.NewEncoder(w).Encode(CancelConfirmation{
			PaymentID:       "pay-1",
			CancelledAmount: 9000,
			TxID:            "TXN-abc",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key", 2*time.Second)

	conf, err := client.CancelPayment(context.Background(), "pay-1", "customer request", 9000)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), conf.CancelledAmount)
	assert.Equal(t, "TXN-abc", conf.TxID)
}

func TestCancelPaymentRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "ALREADY_CANCELLED",
			"message": "payment already cancelled",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", 2*time.Second)

	_, err := client.CancelPayment(context.Background(), "pay-1", "dup", 0)
	require.Error(t, err)

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusConflict, gwErr.StatusCode)
	assert.Equal(t, "ALREADY_CANCELLED", gwErr.Code)
}

func TestCancelPaymentUnreachable(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", "", 500*time.Millisecond)

	_, err := client.CancelPayment(context.Background(), "pay-1", "r", 0)
	require.Error(t, err)

	var gwErr *Error
	assert.False(t, errors.As(err, &gwErr), "transport failure is not a provider refusal")
}
