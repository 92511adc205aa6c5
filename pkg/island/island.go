// Package island renders in-flight activity as a single compact status
// surface: one event at a time, pending work shown as a ring, settled work
// flashed briefly before falling back to the idle wallet line.
package island

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradedesk/pkg/flow"
	"tradedesk/pkg/scheduler"
)

// ResetDelay is how long a settled event stays on the surface before it
// falls back to idle.
const ResetDelay = 3500 * time.Millisecond

// Kind tags the event occupying the surface.
type Kind string

const (
	KindIdle     Kind = "idle"
	KindSwap     Kind = "swap"
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
)

// View is the presentation an event selects.
type View string

const (
	ViewIdle         View = "idle"
	ViewRing         View = "ring"
	ViewTimer        View = "timer"
	ViewNotification View = "notification"
)

// Event is the tagged state of the surface. Idle events carry no fields;
// swap events carry the pair, transfer events the chain and optional hash.
type Event struct {
	Kind       Kind
	Status     flow.Status
	Action     flow.Action
	Amount     string
	Symbol     string
	ChainLabel string
	FromSymbol string
	ToSymbol   string
	Message    string
	Hash       string
}

// Idle returns the empty surface state.
func Idle() Event {
	return Event{Kind: KindIdle}
}

// View maps the event to its presentation: pending work rings, settled
// successes run the timer, failures notify.
func (e Event) View() View {
	if e.Kind == KindIdle {
		return ViewIdle
	}
	switch e.Status {
	case flow.StatusPending:
		return ViewRing
	case flow.StatusSuccess:
		return ViewTimer
	default:
		return ViewNotification
	}
}

// FromActivity lifts a flow activity event onto the surface. Approvals ride
// under the deposit kind with the action preserved for titling.
func FromActivity(a flow.ActivityEvent) Event {
	kind := KindDeposit
	switch a.Action {
	case flow.ActionSwap:
		kind = KindSwap
	case flow.ActionWithdraw:
		kind = KindWithdraw
	}
	return Event{
		Kind:       kind,
		Status:     a.Status,
		Action:     a.Action,
		Amount:     a.Amount,
		Symbol:     a.Symbol,
		ChainLabel: a.ChainLabel,
		FromSymbol: a.FromSymbol,
		ToSymbol:   a.ToSymbol,
		Message:    a.Message,
		Hash:       a.Hash,
	}
}

// Content is the rendered text of an event.
type Content struct {
	Title    string
	Subtitle string
	Hash     string
}

// transferSubtitle prefers the event's own message over the generic line.
func (e Event) transferSubtitle() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s • %s", e.Amount, e.Symbol, e.ChainLabel)
}

// Content renders the event's title and subtitle. Idle events render empty;
// the idle wallet line is owned by the caller.
func (e Event) Content() Content {
	switch e.Kind {
	case KindSwap:
		return e.swapContent()
	case KindDeposit:
		return e.depositContent()
	case KindWithdraw:
		return e.withdrawContent()
	}
	return Content{}
}

func (e Event) swapContent() Content {
	pair := fmt.Sprintf("%s %s → %s", e.Amount, e.FromSymbol, e.ToSymbol)
	switch e.Status {
	case flow.StatusPending:
		return Content{Title: "Swapping", Subtitle: pair}
	case flow.StatusSuccess:
		subtitle := e.Message
		if subtitle == "" {
			subtitle = pair
		}
		return Content{Title: "Swap confirmed", Subtitle: subtitle}
	default:
		subtitle := e.Message
		if subtitle == "" {
			subtitle = "Please review your gas limit and try again."
		}
		return Content{Title: "Swap failed", Subtitle: subtitle}
	}
}

func (e Event) depositContent() Content {
	approval := e.Action == flow.ActionApproval
	switch e.Status {
	case flow.StatusPending:
		title := "Depositing"
		if approval {
			title = "Approval pending"
		}
		return Content{Title: title, Subtitle: e.transferSubtitle()}
	case flow.StatusSuccess:
		title := "Deposit confirmed"
		if approval {
			title = "Approval completed"
		}
		return Content{Title: title, Subtitle: e.transferSubtitle(), Hash: flow.ShortHash(e.Hash)}
	default:
		title := "Deposit failed"
		if approval {
			title = "Approval failed"
		}
		subtitle := e.Message
		if subtitle == "" {
			subtitle = "Please review the transaction and try again."
		}
		return Content{Title: title, Subtitle: subtitle}
	}
}

func (e Event) withdrawContent() Content {
	switch e.Status {
	case flow.StatusPending:
		return Content{Title: "Withdrawal pending", Subtitle: e.transferSubtitle()}
	case flow.StatusSuccess:
		return Content{Title: "Withdrawal confirmed", Subtitle: e.transferSubtitle(), Hash: flow.ShortHash(e.Hash)}
	default:
		subtitle := e.Message
		if subtitle == "" {
			subtitle = "Please review the transaction and try again."
		}
		return Content{Title: "Withdrawal failed", Subtitle: subtitle}
	}
}

// FormatBalance renders a USD wallet balance for the idle line.
func FormatBalance(balance decimal.Decimal) string {
	return "$" + balance.StringFixed(2)
}

// Surface holds the one visible event and drives its lifecycle: showing a
// new event replaces the current one and disarms any scheduled fallback;
// settled events fall back to idle after ResetDelay.
type Surface struct {
	sched    scheduler.Scheduler
	onChange func(Event)

	mu      sync.Mutex
	current Event
	cancel  func()
}

// NewSurface creates an idle surface. onChange, when non-nil, observes every
// state change including the automatic fallback to idle.
func NewSurface(sched scheduler.Scheduler, onChange func(Event)) *Surface {
	if sched == nil {
		sched = scheduler.New()
	}
	return &Surface{
		sched:    sched,
		onChange: onChange,
		current:  Idle(),
	}
}

// Show replaces the surface's event. Settled events arm the idle fallback;
// pending and idle events leave the surface until the next Show.
func (s *Surface) Show(event Event) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.current = event
	if event.Kind != KindIdle && event.Status != flow.StatusPending {
		s.cancel = s.sched.Schedule(ResetDelay, s.reset)
	}
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(event)
	}
}

func (s *Surface) reset() {
	s.mu.Lock()
	s.cancel = nil
	s.current = Idle()
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(Idle())
	}
}

// Dismiss returns the surface to idle immediately.
func (s *Surface) Dismiss() {
	s.Show(Idle())
}

// Current returns the event occupying the surface.
func (s *Surface) Current() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Activity adapts the surface into an activity sink so flow controllers can
// drive it directly.
func (s *Surface) Activity() flow.ActivitySink {
	return func(a flow.ActivityEvent) {
		s.Show(FromActivity(a))
	}
}
