package mockapi

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedesk/pkg/api"
	"tradedesk/pkg/orders"
	"tradedesk/pkg/scheduler"
)

func newTestServer(t *testing.T) (*api.Client, *scheduler.Manual) {
	t.Helper()
	sched := scheduler.NewManual()
	store := orders.NewStore(sched)
	t.Cleanup(store.Close)

	server := httptest.NewServer(NewServer(store, zerolog.Nop()).Handler())
	t.Cleanup(server.Close)

	return api.NewClient(server.URL), sched
}

func validOrder() api.OrderData {
	return api.OrderData{
		Amount:       0.5,
		Side:         api.SideBuy,
		Price:        3120,
		CAIP10Token:  "eip155:84532:0x0000000000000000000000000000000000000001",
		CAIP10Wallet: "eip155:84532:0x0000000000000000000000000000000000000002",
	}
}

func TestOrderLifecycleThroughAPI(t *testing.T) {
	client, sched := newTestServer(t)
	ctx := context.Background()

	created, err := client.CreateOrder(ctx, validOrder())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, api.OrderOpen, created.Status)

	listed, err := client.GetOrders(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, api.OrderOpen, listed[0].Status)
	assert.Equal(t, created.OrderData, listed[0].OrderData)

	sched.Advance(orders.ActiveWindow)

	listed, err = client.GetOrders(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, api.OrderFilled, listed[0].Status)

	trades, err := client.GetTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, created.ID, trades[0].OrderID)
	assert.Equal(t, 0.5, trades[0].Amount)
}

func TestDeleteCancelsOpenOrder(t *testing.T) {
	client, _ := newTestServer(t)
	ctx := context.Background()

	created, err := client.CreateOrder(ctx, validOrder())
	require.NoError(t, err)
	require.NoError(t, client.DeleteOrder(ctx, created.ID))

	listed, err := client.GetOrders(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, api.OrderCancelled, listed[0].Status)

	trades, err := client.GetTrades(ctx)
	require.NoError(t, err)
	assert.Empty(t, trades, "cancelled orders never execute")

	var apiErr *api.APIError
	err = client.DeleteOrder(ctx, created.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}

func TestCreateOrderValidation(t *testing.T) {
	client, _ := newTestServer(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*api.OrderData)
		message string
	}{
		{"zero amount", func(d *api.OrderData) { d.Amount = 0 }, "amount must be positive"},
		{"negative price", func(d *api.OrderData) { d.Price = -1 }, "price must be positive"},
		{"bad side", func(d *api.OrderData) { d.Side = "HOLD" }, "side must be BUY or SELL"},
		{"missing token", func(d *api.OrderData) { d.CAIP10Token = "" }, "caip10Token and caip10Wallet are required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := validOrder()
			tc.mutate(&data)

			_, err := client.CreateOrder(ctx, data)
			var apiErr *api.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, 422, apiErr.Status)
			assert.Equal(t, tc.message, apiErr.Message)
			assert.Equal(t, "VALIDATION", apiErr.Code)
		})
	}
}

func TestStoreFedOrderCarriesItsTimestamp(t *testing.T) {
	sched := scheduler.NewManual()
	store := orders.NewStore(sched)
	t.Cleanup(store.Close)

	server := httptest.NewServer(NewServer(store, zerolog.Nop()).Handler())
	t.Cleanup(server.Close)
	client := api.NewClient(server.URL)

	// Orders can reach the store without going through the HTTP create
	// handler; the listing must still report when they were placed.
	store.Add(orders.Draft{TokenSymbol: "WETH", Price: 3120, Amount: 0.5, Total: 1560})

	listed, err := client.GetOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.NotEqual(t, "0001-01-01T00:00:00Z", listed[0].CreatedAt)
	assert.Equal(t, listed[0].UpdatedAt, listed[0].CreatedAt)
}

func TestWithdrawEndpoint(t *testing.T) {
	client, _ := newTestServer(t)
	ctx := context.Background()

	resp, err := client.WithdrawBalance(ctx, api.WithdrawData{
		Amount:       10,
		CAIP10Token:  "eip155:84532:0x0000000000000000000000000000000000000001",
		CAIP10Wallet: "eip155:84532:0x0000000000000000000000000000000000000002",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.TransactionID)

	_, err = client.WithdrawBalance(ctx, api.WithdrawData{Amount: -1})
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "amount must be positive", apiErr.Message)
}
