package flow

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tradedesk/pkg/scheduler"
	"tradedesk/pkg/tokens"
)

// SwapSettleDelay is how long a mock swap stays pending before it settles.
const SwapSettleDelay = 2200 * time.Millisecond

// swapFailureRate is the fraction of mock swaps that settle as failures.
const swapFailureRate = 0.25

// NetworkFee is the flat fee quoted in the swap summary.
const NetworkFee = "$0.74"

// SwapSummary is the quote breakdown shown alongside the panel.
type SwapSummary struct {
	ExecutionPrice string
	NetworkFee     string
	Route          string
}

// Swapper simulates swap execution: a started swap stays pending for
// SwapSettleDelay and then settles either as a success that moves the local
// wallet balance or as a retryable failure. Starting a new swap replaces a
// still-pending one. Randomness and time are injected so settlement is
// deterministic under test.
type Swapper struct {
	notifier Notifier
	events   ActivitySink
	sched    scheduler.Scheduler
	roll     func() float64
	log      zerolog.Logger

	mu      sync.Mutex
	from    tokens.Token
	to      tokens.Token
	amount  string
	balance decimal.Decimal
	cancel  func()
}

// NewSwapper creates a mock swap engine holding the given USD wallet
// balance. A nil roll defaults to math/rand.
func NewSwapper(from, to tokens.Token, balance decimal.Decimal, notifier Notifier, events ActivitySink, sched scheduler.Scheduler, roll func() float64, log zerolog.Logger) *Swapper {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if sched == nil {
		sched = scheduler.New()
	}
	if roll == nil {
		roll = rand.Float64
	}
	return &Swapper{
		notifier: notifier,
		events:   events,
		sched:    sched,
		roll:     roll,
		log:      log.With().Str("flow", "swap").Logger(),
		from:     from,
		to:       to,
		balance:  balance,
	}
}

// SetAmount updates the sell amount.
func (s *Swapper) SetAmount(amount string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.amount = amount
}

// Amount returns the current sell amount.
func (s *Swapper) Amount() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amount
}

// SetTokens replaces both legs of the swap.
func (s *Swapper) SetTokens(from, to tokens.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.from = from
	s.to = to
}

// Flip swaps the two legs.
func (s *Swapper) Flip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.from, s.to = s.to, s.from
}

// Tokens returns the current from/to pair.
func (s *Swapper) Tokens() (from, to tokens.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.from, s.to
}

// Balance returns the local USD wallet balance.
func (s *Swapper) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// FormattedBalance renders the wallet balance as a USD string.
func (s *Swapper) FormattedBalance() string {
	return "$" + s.Balance().StringFixed(2)
}

// Pending reports whether a started swap has not yet settled.
func (s *Swapper) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// parseAmount returns the entered amount as a decimal, or !ok when it is
// unparseable or non-positive.
func (s *Swapper) parseAmount() (decimal.Decimal, bool) {
	raw := strings.TrimSpace(s.amount)
	if raw == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// Quote returns the receive-leg amount at the current prices, or "0.0000"
// when the entered amount is not a positive number.
func (s *Swapper) Quote() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, ok := s.parseAmount()
	if !ok || s.to.Price == 0 {
		return "0.0000"
	}
	rate := decimal.NewFromFloat(s.from.Price).Div(decimal.NewFromFloat(s.to.Price))
	return amount.Mul(rate).StringFixed(4)
}

// Summary returns the quote breakdown for the current pair.
func (s *Swapper) Summary() SwapSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	price := "0.0000"
	if s.to.Price != 0 {
		price = decimal.NewFromFloat(s.from.Price).
			Div(decimal.NewFromFloat(s.to.Price)).
			StringFixed(4)
	}
	return SwapSummary{
		ExecutionPrice: price,
		NetworkFee:     NetworkFee,
		Route:          fmt.Sprintf("%s → %s", s.from.Symbol, s.to.Symbol),
	}
}

// Start kicks off a swap for the entered amount. A non-positive amount is
// rejected with a toast only; no activity event leaves the panel. Otherwise
// a pending event is emitted immediately and settlement is scheduled,
// replacing any swap still pending.
func (s *Swapper) Start() error {
	s.mu.Lock()
	amount, ok := s.parseAmount()
	if !ok {
		s.mu.Unlock()
		s.notifier.Toast(ToastError, "Enter a valid amount", "Please set a positive amount before swapping.")
		return fmt.Errorf("enter a positive amount")
	}

	// Snapshot the legs so a pair change mid-flight settles the swap that
	// was actually started.
	from := s.from
	to := s.to
	amountLabel := s.amount
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.events.emit(ActivityEvent{
		Action:     ActionSwap,
		Status:     StatusPending,
		Amount:     amountLabel,
		Symbol:     from.Symbol,
		FromSymbol: from.Symbol,
		ToSymbol:   to.Symbol,
	})
	s.notifier.Toast(ToastInfo, "Swap started",
		fmt.Sprintf("Swapping %s %s for %s.", amountLabel, from.Symbol, to.Symbol))
	s.log.Debug().Str("amount", amountLabel).Str("from", from.Symbol).Str("to", to.Symbol).Msg("swap started")

	cancel := s.sched.Schedule(SwapSettleDelay, func() {
		s.settle(amount, amountLabel, from, to)
	})

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	return nil
}

// settle resolves a pending swap. Success debits the sell leg, floors the
// balance at zero, and credits the buy leg.
func (s *Swapper) settle(amount decimal.Decimal, amountLabel string, from, to tokens.Token) {
	s.mu.Lock()
	s.cancel = nil
	s.mu.Unlock()

	if s.roll() > swapFailureRate {
		debit := amount.Mul(decimal.NewFromFloat(from.Price))
		credit := amount.Mul(decimal.NewFromFloat(to.Price))

		s.mu.Lock()
		next := s.balance.Sub(debit)
		if next.IsNegative() {
			next = decimal.Zero
		}
		s.balance = next.Add(credit)
		s.mu.Unlock()

		message := fmt.Sprintf("%s %s → %s executed successfully.", amountLabel, from.Symbol, to.Symbol)
		s.events.emit(ActivityEvent{
			Action:     ActionSwap,
			Status:     StatusSuccess,
			Amount:     amountLabel,
			Symbol:     from.Symbol,
			FromSymbol: from.Symbol,
			ToSymbol:   to.Symbol,
			Message:    message,
		})
		s.notifier.Toast(ToastSuccess, "Swap confirmed", message)
		s.log.Info().Str("amount", amountLabel).Msg("swap confirmed")
		return
	}

	message := "A network error occurred. Please retry in a moment."
	s.events.emit(ActivityEvent{
		Action:     ActionSwap,
		Status:     StatusError,
		Amount:     amountLabel,
		Symbol:     from.Symbol,
		FromSymbol: from.Symbol,
		ToSymbol:   to.Symbol,
		Message:    message,
	})
	s.notifier.Toast(ToastError, "Swap failed", message)
	s.log.Warn().Str("amount", amountLabel).Msg("swap failed")
}
