package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Poll cadences for the two backend feeds.
const (
	OrdersPollInterval = 10 * time.Second
	TradesPollInterval = 15 * time.Second
)

// Poller periodically pulls orders and trades from the backend and hands
// each snapshot to a callback. Fetch failures are logged and the next tick
// retries; they never stop the loop.
type Poller struct {
	client *Client
	log    zerolog.Logger

	// Cadences default to OrdersPollInterval/TradesPollInterval; tests
	// shorten them.
	OrdersInterval time.Duration
	TradesInterval time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPoller creates a poller over the given backend client.
func NewPoller(client *Client, log zerolog.Logger) *Poller {
	return &Poller{
		client:         client,
		log:            log.With().Str("component", "poller").Logger(),
		OrdersInterval: OrdersPollInterval,
		TradesInterval: TradesPollInterval,
		stopChan:       make(chan struct{}),
	}
}

// Start launches the feed loops. Each feed fetches once immediately and then
// on its cadence until Stop. A nil callback disables its feed.
func (p *Poller) Start(onOrders func([]Order), onTrades func([]Trade)) {
	if onOrders != nil {
		p.wg.Add(1)
		go p.loop("orders", p.OrdersInterval, func(ctx context.Context) error {
			orders, err := p.client.GetOrders(ctx)
			if err != nil {
				return err
			}
			onOrders(orders)
			return nil
		})
	}
	if onTrades != nil {
		p.wg.Add(1)
		go p.loop("trades", p.TradesInterval, func(ctx context.Context) error {
			trades, err := p.client.GetTrades(ctx)
			if err != nil {
				return err
			}
			onTrades(trades)
			return nil
		})
	}
}

func (p *Poller) loop(feed string, interval time.Duration, fetch func(context.Context) error) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.poll(feed, fetch)
	for {
		select {
		case <-ticker.C:
			p.poll(feed, fetch)
		case <-p.stopChan:
			p.log.Debug().Str("feed", feed).Msg("poller stopped")
			return
		}
	}
}

func (p *Poller) poll(feed string, fetch func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fetch(ctx); err != nil {
		p.log.Warn().Err(err).Str("feed", feed).Msg("poll failed")
	}
}

// Stop halts both feed loops and waits for them to exit. Safe to call more
// than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	p.wg.Wait()
}
