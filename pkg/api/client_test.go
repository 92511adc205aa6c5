package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(w http.ResponseWriter, data any) {
	json.NewEncoder(w).Encode(map[string]any{
		"data":    data,
		"success": true,
	})
}

func TestGetOrdersUnwrapsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/orders/", r.URL.Path)
		envelope(w, []Order{{ID: "ord-1", Status: OrderOpen, OrderData: OrderData{Side: SideBuy, Amount: 0.5, Price: 3120}}})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	orders, err := client.GetOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ord-1", orders[0].ID)
	assert.Equal(t, SideBuy, orders[0].Side)
}

func TestCreateOrderPostsPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var data OrderData
		require.NoError(t, json.NewDecoder(r.Body).Decode(&data))
		assert.Equal(t, SideSell, data.Side)
		assert.Equal(t, "eip155:84532:0x0000000000000000000000000000000000000001", data.CAIP10Token)

		envelope(w, Order{OrderData: data, ID: "ord-2", Status: OrderOpen})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	order, err := client.SendOrder(context.Background(), 1.5, SideSell, 3120,
		"eip155:84532:0x0000000000000000000000000000000000000001",
		"eip155:84532:0x0000000000000000000000000000000000000002")
	require.NoError(t, err)
	assert.Equal(t, "ord-2", order.ID)
	assert.Equal(t, 1.5, order.Amount)
}

func TestDeleteOrderTargetsID(t *testing.T) {
	var path atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	require.NoError(t, client.DeleteOrder(context.Background(), "ord-3"))
	assert.Equal(t, "/api/orders/ord-3", path.Load())
}

func TestErrorBodyBecomesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "price must be positive", "code": "VALIDATION"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.GetOrders(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "price must be positive", apiErr.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "VALIDATION", apiErr.Code)
}

func TestNonJSONErrorBodyFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream timeout", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.GetTrades(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "HTTP error! status: 502", apiErr.Message)
}

func TestWithdrawBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/balance/withdraw", r.URL.Path)
		json.NewEncoder(w).Encode(WithdrawResponse{Success: true, TransactionID: "tx-9"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.WithdrawBalance(context.Background(), WithdrawData{Amount: 10})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "tx-9", resp.TransactionID)
}

func TestPollerDeliversSnapshotsUntilStopped(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/api/orders/":
			envelope(w, []Order{{ID: "ord-1"}})
		case "/api/trades/":
			envelope(w, []Trade{{ID: "trd-1"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	poller := NewPoller(NewClient(server.URL), zerolog.Nop())
	poller.OrdersInterval = 10 * time.Millisecond
	poller.TradesInterval = 10 * time.Millisecond

	ordersSeen := make(chan []Order, 8)
	tradesSeen := make(chan []Trade, 8)
	poller.Start(
		func(orders []Order) {
			select {
			case ordersSeen <- orders:
			default:
			}
		},
		func(trades []Trade) {
			select {
			case tradesSeen <- trades:
			default:
			}
		},
	)

	select {
	case orders := <-ordersSeen:
		require.Len(t, orders, 1)
		assert.Equal(t, "ord-1", orders[0].ID)
	case <-time.After(time.Second):
		t.Fatal("orders feed never delivered")
	}
	select {
	case trades := <-tradesSeen:
		require.Len(t, trades, 1)
	case <-time.After(time.Second):
		t.Fatal("trades feed never delivered")
	}

	poller.Stop()
	after := hits.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, hits.Load(), "no fetches after stop")
}

func TestPollerSurvivesErrors(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		envelope(w, []Order{{ID: "ord-1"}})
	}))
	defer server.Close()

	poller := NewPoller(NewClient(server.URL), zerolog.Nop())
	poller.OrdersInterval = 10 * time.Millisecond

	delivered := make(chan struct{}, 1)
	poller.Start(func([]Order) {
		select {
		case delivered <- struct{}{}:
		default:
		}
	}, nil)
	defer poller.Stop()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("poller did not recover from the failed fetch")
	}
}
