package orders

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Book depth and refresh cadence.
const (
	BookDepth       = 12
	BookRefreshRate = 2 * time.Second
	tickStep        = 0.1
)

// Level is one price level of the simulated book.
type Level struct {
	Price  float64
	Amount float64
	Total  float64
}

// BookSnapshot is one refresh of the simulated book. Asks are ordered best
// last (descending toward the mid), bids best first.
type BookSnapshot struct {
	Asks        []Level
	Bids        []Level
	Price       float64
	ChangePct   float64
	GeneratedAt time.Time
}

// Book simulates a depth-12 order book around a drifting mid price. Start
// regenerates the snapshot on a fixed cadence until Stop.
type Book struct {
	roll func() float64
	log  zerolog.Logger

	mu       sync.Mutex
	snapshot BookSnapshot
	price    float64

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewBook creates a book seeded at the given mid price. A nil roll defaults
// to math/rand.
func NewBook(price float64, roll func() float64, log zerolog.Logger) *Book {
	if roll == nil {
		roll = rand.Float64
	}
	b := &Book{
		roll:     roll,
		log:      log.With().Str("component", "orderbook").Logger(),
		price:    price,
		stopChan: make(chan struct{}),
	}
	b.Refresh()
	return b
}

// levels builds one side of the book stepping away from the mid.
func (b *Book) levels(base float64, ask bool) []Level {
	side := make([]Level, 0, BookDepth)
	for i := 0; i < BookDepth; i++ {
		offset := float64(i) * tickStep
		if !ask {
			offset = -offset
		}
		price := base + offset
		amount := b.roll() * 10
		side = append(side, Level{Price: price, Amount: amount, Total: price * amount})
	}
	if ask {
		for i, j := 0, len(side)-1; i < j; i, j = i+1, j-1 {
			side[i], side[j] = side[j], side[i]
		}
	}
	return side
}

// Refresh regenerates both sides at the current mid and then drifts the mid
// for the next round.
func (b *Book) Refresh() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.snapshot = BookSnapshot{
		Asks:        b.levels(b.price, true),
		Bids:        b.levels(b.price, false),
		Price:       b.price,
		ChangePct:   (b.roll() - 0.5) * 5,
		GeneratedAt: time.Now(),
	}
	b.price += (b.roll() - 0.5) * 0.5
}

// Snapshot returns the latest generated book.
func (b *Book) Snapshot() BookSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot
}

// Start refreshes the book every BookRefreshRate until Stop is called.
func (b *Book) Start() {
	go func() {
		ticker := time.NewTicker(BookRefreshRate)
		defer ticker.Stop()

		b.log.Debug().Float64("price", b.Snapshot().Price).Msg("order book started")
		for {
			select {
			case <-ticker.C:
				b.Refresh()
			case <-b.stopChan:
				b.log.Debug().Msg("order book stopped")
				return
			}
		}
	}()
}

// Stop halts the refresh loop. Safe to call more than once.
func (b *Book) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
	})
}
