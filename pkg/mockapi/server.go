// Package mockapi serves the desk backend protocol locally so the CLI and
// pollers can run without a deployed backend. Orders placed through it live
// in an orders.Store, so the active-to-history lifecycle behaves like the
// real desk.
package mockapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tradedesk/pkg/api"
	"tradedesk/pkg/orders"
)

// Server implements the backend REST contract over an orders store.
type Server struct {
	store  *orders.Store
	log    zerolog.Logger
	router chi.Router

	mu      sync.Mutex
	meta    map[string]api.OrderData
	created map[string]time.Time
}

// NewServer wires the routes over the given store.
func NewServer(store *orders.Store, log zerolog.Logger) *Server {
	s := &Server{
		store:   store,
		log:     log.With().Str("component", "mockapi").Logger(),
		meta:    make(map[string]api.OrderData),
		created: make(map[string]time.Time),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/orders/", s.listOrders)
		r.Post("/orders/", s.createOrder)
		r.Delete("/orders/{orderID}", s.deleteOrder)
		r.Get("/trades/", s.listTrades)
		r.Post("/balance/withdraw", s.withdraw)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler for mounting or serving.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"data":    data,
		"success": true,
	})
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
		"code":    code,
	})
}

// toAPIOrder joins a stored order with its creation payload.
func (s *Server) toAPIOrder(order orders.Order) api.Order {
	s.mu.Lock()
	data := s.meta[order.ID]
	createdAt, ok := s.created[order.ID]
	s.mu.Unlock()
	if !ok {
		createdAt = order.Timestamp
	}

	status := api.OrderOpen
	switch order.Status {
	case orders.StatusCompleted:
		status = api.OrderFilled
	case orders.StatusCancelled:
		status = api.OrderCancelled
	}

	return api.Order{
		OrderData: data,
		ID:        order.ID,
		Status:    status,
		CreatedAt: createdAt.UTC().Format(time.RFC3339),
		UpdatedAt: order.Timestamp.UTC().Format(time.RFC3339),
	}
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	list := make([]api.Order, 0)
	for _, order := range s.store.Active() {
		list = append(list, s.toAPIOrder(order))
	}
	for _, order := range s.store.History() {
		list = append(list, s.toAPIOrder(order))
	}
	writeEnvelope(w, http.StatusOK, list)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var data api.OrderData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	if data.Amount <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "amount must be positive", "VALIDATION")
		return
	}
	if data.Price <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "price must be positive", "VALIDATION")
		return
	}
	if data.Side != api.SideBuy && data.Side != api.SideSell {
		writeError(w, http.StatusUnprocessableEntity, "side must be BUY or SELL", "VALIDATION")
		return
	}
	if data.CAIP10Token == "" || data.CAIP10Wallet == "" {
		writeError(w, http.StatusUnprocessableEntity, "caip10Token and caip10Wallet are required", "VALIDATION")
		return
	}

	id := s.store.Add(orders.Draft{
		Token:         data.CAIP10Token,
		TokenSymbol:   data.CAIP10Token,
		WalletAddress: data.CAIP10Wallet,
		Price:         data.Price,
		Amount:        data.Amount,
		Total:         data.Price * data.Amount,
	})

	s.mu.Lock()
	s.meta[id] = data
	s.created[id] = time.Now()
	s.mu.Unlock()

	s.log.Info().Str("order_id", id).Str("side", string(data.Side)).Msg("order placed")
	writeEnvelope(w, http.StatusCreated, api.Order{
		OrderData: data,
		ID:        id,
		Status:    api.OrderOpen,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	if !s.store.Cancel(id) {
		writeError(w, http.StatusNotFound, "order not found", "NOT_FOUND")
		return
	}
	s.log.Info().Str("order_id", id).Msg("order cancelled")
	w.WriteHeader(http.StatusNoContent)
}

// listTrades synthesizes one execution per filled order.
func (s *Server) listTrades(w http.ResponseWriter, r *http.Request) {
	trades := make([]api.Trade, 0)
	for _, order := range s.store.History() {
		if order.Status != orders.StatusCompleted {
			continue
		}
		full := s.toAPIOrder(order)
		trades = append(trades, api.Trade{
			ID:           "trd-" + order.ID,
			OrderID:      order.ID,
			Amount:       full.Amount,
			Price:        full.Price,
			ExecutedAt:   order.Timestamp.UTC().Format(time.RFC3339),
			BuyerWallet:  full.CAIP10Wallet,
			SellerWallet: "desk",
			CAIP10Token:  full.CAIP10Token,
		})
	}
	writeEnvelope(w, http.StatusOK, trades)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var data api.WithdrawData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	if data.Amount <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "amount must be positive", "VALIDATION")
		return
	}
	if data.CAIP10Token == "" || data.CAIP10Wallet == "" {
		writeError(w, http.StatusUnprocessableEntity, "caip10Token and caip10Wallet are required", "VALIDATION")
		return
	}

	s.log.Info().Float64("amount", data.Amount).Msg("withdrawal queued")
	writeJSON(w, http.StatusOK, api.WithdrawResponse{
		Success:       true,
		TransactionID: uuid.NewString(),
		Message:       "Withdrawal queued",
	})
}
