// Package api speaks the desk backend's JSON protocol: resource clients for
// orders, trades, and balance withdrawals, plus the background pollers that
// keep local views fresh.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderStatus is the backend's lifecycle state for an order.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "OPEN"
	OrderFilled    OrderStatus = "FILLED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// OrderData is the payload for creating an order.
type OrderData struct {
	Amount       float64   `json:"amount"`
	Side         OrderSide `json:"side"`
	Price        float64   `json:"price"`
	CAIP10Token  string    `json:"caip10Token"`
	CAIP10Wallet string    `json:"caip10Wallet"`
}

// Order is an order as the backend reports it.
type Order struct {
	OrderData
	ID        string      `json:"id"`
	Status    OrderStatus `json:"status"`
	CreatedAt string      `json:"createdAt"`
	UpdatedAt string      `json:"updatedAt"`
}

// Trade is one execution reported by the backend.
type Trade struct {
	ID           string  `json:"id"`
	OrderID      string  `json:"orderId"`
	Amount       float64 `json:"amount"`
	Price        float64 `json:"price"`
	ExecutedAt   string  `json:"executedAt"`
	BuyerWallet  string  `json:"buyerWallet"`
	SellerWallet string  `json:"sellerWallet"`
	CAIP10Token  string  `json:"caip10Token"`
}

// WithdrawData is the payload for a balance withdrawal.
type WithdrawData struct {
	Amount       float64 `json:"amount"`
	CAIP10Token  string  `json:"caip10Token"`
	CAIP10Wallet string  `json:"caip10Wallet"`
}

// WithdrawResponse is the backend's answer to a withdrawal.
type WithdrawResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message,omitempty"`
}

// APIError carries the backend's error message and HTTP status.
type APIError struct {
	Message string
	Status  int
	Code    string
}

func (e *APIError) Error() string {
	return e.Message
}

// ShortMessage lets flow-level error normalization surface the backend's
// message directly.
func (e *APIError) ShortMessage() string {
	return e.Message
}

// Client talks to the desk backend. All responses arrive in a
// {data, success, message} envelope; non-2xx bodies become *APIError.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// do runs one request, decoding the response body into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Message: fmt.Sprintf("HTTP error! status: %d", resp.StatusCode),
			Status:  resp.StatusCode,
		}
		var parsed struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&parsed); decodeErr == nil && parsed.Message != "" {
			apiErr.Message = parsed.Message
			apiErr.Code = parsed.Code
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// GetOrders lists all orders.
func (c *Client) GetOrders(ctx context.Context) ([]Order, error) {
	var envelope struct {
		Data    []Order `json:"data"`
		Success bool    `json:"success"`
		Message string  `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/orders/", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// CreateOrder places a new order.
func (c *Client) CreateOrder(ctx context.Context, data OrderData) (Order, error) {
	var envelope struct {
		Data    Order  `json:"data"`
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/orders/", data, &envelope); err != nil {
		return Order{}, err
	}
	return envelope.Data, nil
}

// DeleteOrder removes an order by id.
func (c *Client) DeleteOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodDelete, "/api/orders/"+orderID, nil, nil)
}

// GetTrades lists all executions.
func (c *Client) GetTrades(ctx context.Context) ([]Trade, error) {
	var envelope struct {
		Data    []Trade `json:"data"`
		Success bool    `json:"success"`
		Message string  `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/trades/", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// WithdrawBalance requests a balance withdrawal.
func (c *Client) WithdrawBalance(ctx context.Context, data WithdrawData) (WithdrawResponse, error) {
	var resp WithdrawResponse
	if err := c.do(ctx, http.MethodPost, "/api/balance/withdraw", data, &resp); err != nil {
		return WithdrawResponse{}, err
	}
	return resp, nil
}

// SendOrder is a convenience wrapper over CreateOrder.
func (c *Client) SendOrder(ctx context.Context, amount float64, side OrderSide, price float64, caip10Token, caip10Wallet string) (Order, error) {
	return c.CreateOrder(ctx, OrderData{
		Amount:       amount,
		Side:         side,
		Price:        price,
		CAIP10Token:  caip10Token,
		CAIP10Wallet: caip10Wallet,
	})
}
