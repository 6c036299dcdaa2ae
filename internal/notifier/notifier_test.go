package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyCancellation(t *testing.T) {
	var received Notice
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/notifications/cancellation", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, 2*time.Second)

	notice := Notice{
		OrderNumber:  "ORD-1001",
		StoreName:    "Catering Co",
		CancelAmount: 10000,
		RefundAmount: 9000,
		RefundRate:   0.9,
		Reason:       "out of stock",
		IsPartial:    true,
	}
	require.NoError(t, n.NotifyCancellation(context.Background(), notice))
	assert.Equal(t, notice, received)
}

func TestNotifyCancellationRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, 2*time.Second)

	err := n.NotifyCancellation(context.Background(), Notice{OrderNumber: "ORD-1"})
	assert.Error(t, err)
}
