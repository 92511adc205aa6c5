package flow

// Action tags what a flow activity event describes.
type Action string

const (
	ActionApproval Action = "approval"
	ActionDeposit  Action = "deposit"
	ActionWithdraw Action = "withdraw"
	ActionSwap     Action = "swap"
)

// Status is the lifecycle stage of an activity event.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ActivityEvent is emitted by the flow controllers as a transaction
// progresses. Events are ephemeral: delivered to the sink and not stored.
// FromSymbol/ToSymbol are only set for swap events.
type ActivityEvent struct {
	Action     Action
	Status     Status
	Amount     string
	Symbol     string
	ChainLabel string
	FromSymbol string
	ToSymbol   string
	Message    string
	Hash       string
}

// ActivitySink receives flow activity events. A nil sink drops them.
type ActivitySink func(ActivityEvent)

func (s ActivitySink) emit(event ActivityEvent) {
	if s != nil {
		s(event)
	}
}

// ShortHash shortens a transaction hash for display ("0x1234...abcd").
func ShortHash(hash string) string {
	if len(hash) <= 10 {
		return hash
	}
	return hash[:6] + "..." + hash[len(hash)-4:]
}

// ToastVariant selects the styling of a toast notification.
type ToastVariant string

const (
	ToastInfo    ToastVariant = "info"
	ToastSuccess ToastVariant = "success"
	ToastError   ToastVariant = "error"
)

// Notifier shows transient toast notifications. The cmd layer renders them
// to the terminal; tests record them.
type Notifier interface {
	Toast(variant ToastVariant, title, description string)
}

// NopNotifier discards all toasts.
type NopNotifier struct{}

// Toast implements Notifier.
func (NopNotifier) Toast(ToastVariant, string, string) {}
