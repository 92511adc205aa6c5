// Package orders tracks placed orders through their active window into
// history, and simulates the order book the desk renders next to them.
package orders

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"tradedesk/pkg/scheduler"
)

// ActiveWindow is how long a placed order stays active before it migrates
// into history as completed.
const ActiveWindow = 20 * time.Second

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Order is one placed order. Price and Total are quoted in USD.
type Order struct {
	ID            string
	Token         string
	TokenSymbol   string
	WalletAddress string
	Price         float64
	Amount        float64
	Total         float64
	Timestamp     time.Time
	Status        Status
}

// Draft is the caller-supplied part of an order; the store assigns the id,
// timestamp, and lifecycle status.
type Draft struct {
	Token         string
	TokenSymbol   string
	WalletAddress string
	Price         float64
	Amount        float64
	Total         float64
}

// Store holds active orders and order history, newest first. A placed order
// stays active for ActiveWindow and then migrates to history as completed.
type Store struct {
	sched scheduler.Scheduler
	now   func() time.Time

	mu      sync.Mutex
	active  []Order
	history []Order
	timers  map[string]func()
	closed  bool
}

// NewStore creates an empty store. A nil scheduler gets the real clock.
func NewStore(sched scheduler.Scheduler) *Store {
	if sched == nil {
		sched = scheduler.New()
	}
	return &Store{
		sched:  sched,
		now:    time.Now,
		timers: make(map[string]func()),
	}
}

// Add places an order. It shows up in Active immediately with status pending
// and migrates to history after ActiveWindow. The assigned id is returned.
func (s *Store) Add(draft Draft) string {
	order := Order{
		ID:            uuid.NewString(),
		Token:         draft.Token,
		TokenSymbol:   draft.TokenSymbol,
		WalletAddress: draft.WalletAddress,
		Price:         draft.Price,
		Amount:        draft.Amount,
		Total:         draft.Total,
		Timestamp:     s.now(),
		Status:        StatusPending,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return order.ID
	}
	s.active = append([]Order{order}, s.active...)
	s.timers[order.ID] = s.sched.Schedule(ActiveWindow, func() {
		s.complete(order.ID)
	})
	s.mu.Unlock()

	return order.ID
}

// AddCompleted records an already-settled order straight into history.
func (s *Store) AddCompleted(draft Draft) string {
	order := Order{
		ID:            uuid.NewString(),
		Token:         draft.Token,
		TokenSymbol:   draft.TokenSymbol,
		WalletAddress: draft.WalletAddress,
		Price:         draft.Price,
		Amount:        draft.Amount,
		Total:         draft.Total,
		Timestamp:     s.now(),
		Status:        StatusCompleted,
	}

	s.mu.Lock()
	s.history = append([]Order{order}, s.history...)
	s.mu.Unlock()

	return order.ID
}

// complete moves an active order into history with status completed.
func (s *Store) complete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.timers, id)
	for i, order := range s.active {
		if order.ID != id {
			continue
		}
		s.active = append(s.active[:i:i], s.active[i+1:]...)
		order.Status = StatusCompleted
		s.history = append([]Order{order}, s.history...)
		return
	}
}

// Cancel removes an active order, recording it in history as cancelled.
// It reports whether the id named an active order.
func (s *Store) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, order := range s.active {
		if order.ID != id {
			continue
		}
		if cancel := s.timers[id]; cancel != nil {
			cancel()
			delete(s.timers, id)
		}
		s.active = append(s.active[:i:i], s.active[i+1:]...)
		order.Status = StatusCancelled
		s.history = append([]Order{order}, s.history...)
		return true
	}
	return false
}

// Active returns a copy of the active orders, newest first.
func (s *Store) Active() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Order(nil), s.active...)
}

// History returns a copy of the order history, newest first.
func (s *Store) History() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Order(nil), s.history...)
}

// Close cancels all pending migrations. Orders still active stay active.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, cancel := range s.timers {
		cancel()
		delete(s.timers, id)
	}
}
