package flow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"tradedesk/pkg/chains"
	"tradedesk/pkg/tokens"
	"tradedesk/pkg/trading"
	"tradedesk/pkg/units"
)

// ErrInsufficientBalance is returned when the entered amount exceeds the
// on-contract trading balance.
var ErrInsufficientBalance = errors.New("insufficient trading balance")

// InsufficientBalanceMessage is the inline text shown for that condition.
const InsufficientBalanceMessage = "Insufficient balance for this withdrawal."

// WithdrawForm is the user-editable state of the withdraw dialog.
type WithdrawForm struct {
	Amount             string
	CAIP10Token        string
	CAIP10WalletOrName string
}

// WithdrawFlow drives a withdrawal from the trading contract. It differs
// from DepositFlow in two ways: there is no allowance step, and the entered
// amount is checked against the contract's trading balance before anything
// is broadcast.
type WithdrawFlow struct {
	gateway    trading.Gateway
	registry   *tokens.Registry
	chainKey   chains.Key
	chainLabel string
	notifier   Notifier
	events     ActivitySink
	log        zerolog.Logger

	mu         sync.Mutex
	open       bool
	form       WithdrawForm
	token      tokens.Token
	tokenCfg   tokens.ChainConfig
	hasToken   bool
	prepared   *trading.WithdrawRequest
	simError   string
	formError  string
	processing bool
	balance    *big.Int
}

// NewWithdrawFlow creates a withdraw controller for one chain.
func NewWithdrawFlow(gateway trading.Gateway, registry *tokens.Registry, chainKey chains.Key, notifier Notifier, events ActivitySink, log zerolog.Logger) *WithdrawFlow {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	f := &WithdrawFlow{
		gateway:    gateway,
		registry:   registry,
		chainKey:   chainKey,
		chainLabel: chains.Label(chainKey),
		notifier:   notifier,
		events:     events,
		log:        log.With().Str("flow", "withdraw").Str("chain", string(chainKey)).Logger(),
	}
	if available := registry.ForChain(chainKey); len(available) > 0 {
		f.token = available[0]
		f.tokenCfg = available[0].Chains[chainKey]
		f.hasToken = true
	}
	return f
}

// SupportsWithdraw reports whether withdrawals can run on this chain. Solana
// balances are credited to an EVM wallet and leave through that chain
// instead.
func (f *WithdrawFlow) SupportsWithdraw() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gateway != nil && f.hasToken && f.chainKey != chains.KeySolana
}

// Open resets the form for a new withdrawal, prefilling identifiers from the
// connected wallet, and clears the cached balance so it is re-read.
func (f *WithdrawFlow) Open(defaultAmount, walletAddress string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.open = true
	f.formError = ""
	f.simError = ""
	f.prepared = nil
	f.balance = nil

	form := WithdrawForm{
		Amount:      defaultAmount,
		CAIP10Token: f.tokenCfg.CAIP10Token,
	}
	if walletAddress != "" {
		if caipWallet, err := tokens.WalletCAIP10(f.chainKey, walletAddress); err == nil {
			form.CAIP10WalletOrName = caipWallet
		}
	}
	f.form = form
}

// Close dismisses the dialog.
func (f *WithdrawFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
}

// IsOpen reports whether the dialog is showing.
func (f *WithdrawFlow) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// IsProcessing reports whether a transaction is in flight.
func (f *WithdrawFlow) IsProcessing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processing
}

// FormError returns the inline error shown in the dialog, if any.
func (f *WithdrawFlow) FormError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.formError != "" {
		return f.formError
	}
	return f.simError
}

// Token returns the currently selected token.
func (f *WithdrawFlow) Token() tokens.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// SelectToken switches the selected token and updates the form's CAIP-10
// token identifier. The previous simulation and balance no longer apply.
func (f *WithdrawFlow) SelectToken(id string) error {
	token, ok := f.registry.ByID(id)
	if !ok {
		return fmt.Errorf("unknown token %q", id)
	}
	cfg, ok := token.Chains[f.chainKey]
	if !ok {
		return fmt.Errorf("token %q is not available on %s", id, f.chainKey)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.tokenCfg = cfg
	f.hasToken = true
	f.form.CAIP10Token = cfg.CAIP10Token
	f.prepared = nil
	f.simError = ""
	f.balance = nil
	return nil
}

// SetForm replaces the editable form fields and clears the inline error. The
// previous simulation no longer applies.
func (f *WithdrawFlow) SetForm(form WithdrawForm) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.form = form
	f.formError = ""
	f.prepared = nil
	f.simError = ""
}

// Form returns a copy of the current form state.
func (f *WithdrawFlow) Form() WithdrawForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// RefreshBalance reads the withdrawable trading balance for the current
// token and wallet identifiers from the contract and caches it.
func (f *WithdrawFlow) RefreshBalance(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	caipToken := strings.TrimSpace(f.form.CAIP10Token)
	caipWallet := strings.TrimSpace(f.form.CAIP10WalletOrName)
	f.mu.Unlock()

	if f.gateway == nil || caipToken == "" || caipWallet == "" {
		return nil, fmt.Errorf("missing CAIP-10 identifiers")
	}

	balance, err := f.gateway.TradeBalance(ctx, caipWallet, caipToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read trading balance: %w", err)
	}

	f.mu.Lock()
	f.balance = balance
	f.mu.Unlock()
	return balance, nil
}

// Balance returns the cached trading balance, or nil when not yet read.
func (f *WithdrawFlow) Balance() *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance
}

// UseMax sets the amount field to the full cached balance.
func (f *WithdrawFlow) UseMax() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balance == nil {
		return
	}
	f.form.Amount = units.Format(f.balance, f.token.Decimals)
	f.formError = ""
	f.prepared = nil
	f.simError = ""
}

// insufficient reports whether the parsed amount exceeds the cached balance.
// Callers hold f.mu. An unread balance counts as insufficient.
func (f *WithdrawFlow) insufficient(amount *big.Int) bool {
	return f.balance == nil || amount.Cmp(f.balance) > 0
}

// buildRequest assembles the contract call from the form. Callers hold f.mu.
func (f *WithdrawFlow) buildRequest() (*trading.WithdrawRequest, error) {
	caipToken := strings.TrimSpace(f.form.CAIP10Token)
	caipWallet := strings.TrimSpace(f.form.CAIP10WalletOrName)
	if caipToken == "" || caipWallet == "" {
		return nil, fmt.Errorf("missing CAIP-10 identifiers")
	}

	amount, err := units.Parse(f.form.Amount, f.token.Decimals)
	if err != nil || !units.IsPositive(amount) {
		return nil, fmt.Errorf("enter a positive amount")
	}

	return &trading.WithdrawRequest{
		CAIP10Token:        caipToken,
		CAIP10WalletOrName: caipWallet,
		Amount:             amount,
		Action:             trading.ActionNative,
	}, nil
}

// Prepare builds the withdraw request, checks it against the cached balance,
// and dry-runs it. Submit refuses to run until the latest Prepare succeeded.
func (f *WithdrawFlow) Prepare(ctx context.Context) error {
	f.mu.Lock()
	if f.gateway == nil || !f.hasToken {
		f.mu.Unlock()
		return fmt.Errorf("withdrawals are unsupported for this chain")
	}
	req, err := f.buildRequest()
	f.prepared = nil
	if err != nil {
		f.simError = ""
		f.mu.Unlock()
		return err
	}
	if f.insufficient(req.Amount) {
		f.formError = InsufficientBalanceMessage
		f.mu.Unlock()
		return ErrInsufficientBalance
	}
	f.mu.Unlock()

	if err := f.gateway.SimulateWithdraw(ctx, *req); err != nil {
		msg := Message(err)
		f.mu.Lock()
		f.simError = msg
		f.mu.Unlock()
		f.log.Warn().Str("reason", msg).Msg("withdraw simulation failed")
		return fmt.Errorf("simulation failed: %s", msg)
	}

	f.mu.Lock()
	f.prepared = req
	f.simError = ""
	f.mu.Unlock()
	return nil
}

// Submit broadcasts the prepared withdrawal and waits for one confirmation.
// The balance gate is re-checked at the door so a stale Prepare cannot
// overdraw. On success the dialog closes and the balance is re-read.
func (f *WithdrawFlow) Submit(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.gateway == nil || !f.hasToken || f.chainKey == chains.KeySolana {
		f.formError = "Withdrawals are unsupported for this chain."
		f.mu.Unlock()
		return "", fmt.Errorf("withdrawals are unsupported for this chain")
	}
	if f.prepared == nil {
		if f.simError != "" {
			f.formError = f.simError
		} else {
			f.formError = "Enter a valid amount and identifiers."
		}
		f.mu.Unlock()
		return "", ErrSimulationNotReady
	}
	if f.insufficient(f.prepared.Amount) {
		f.formError = InsufficientBalanceMessage
		f.mu.Unlock()
		return "", ErrInsufficientBalance
	}
	req := *f.prepared
	amountLabel := f.form.Amount
	symbol := f.token.Symbol
	f.formError = ""
	f.mu.Unlock()

	hash, err := f.gateway.Withdraw(ctx, req)
	if err != nil {
		return "", f.fail("Withdrawal failed", amountLabel, symbol, "", err)
	}
	hashStr := hash.Hex()

	f.setProcessing(true)
	defer f.setProcessing(false)

	f.events.emit(ActivityEvent{
		Action:     ActionWithdraw,
		Status:     StatusPending,
		Amount:     amountLabel,
		Symbol:     symbol,
		ChainLabel: f.chainLabel,
		Message:    "Awaiting confirmation • " + ShortHash(hashStr),
		Hash:       hashStr,
	})
	f.notifier.Toast(ToastInfo, "Withdrawal submitted",
		fmt.Sprintf("Awaiting confirmation for %s %s on %s.", amountLabel, symbol, f.chainLabel))

	if err := f.gateway.WaitForReceipt(ctx, hash); err != nil {
		return hashStr, f.fail("Withdrawal failed", amountLabel, symbol, hashStr, err)
	}

	f.notifier.Toast(ToastSuccess, "Withdrawal confirmed",
		fmt.Sprintf("%s %s withdrawn on %s.", amountLabel, symbol, f.chainLabel))
	f.events.emit(ActivityEvent{
		Action:     ActionWithdraw,
		Status:     StatusSuccess,
		Amount:     amountLabel,
		Symbol:     symbol,
		ChainLabel: f.chainLabel,
		Message:    "Confirmed • " + ShortHash(hashStr),
		Hash:       hashStr,
	})

	f.mu.Lock()
	f.open = false
	f.prepared = nil
	f.mu.Unlock()

	if _, err := f.RefreshBalance(ctx); err != nil {
		f.log.Warn().Err(err).Msg("failed to refresh balance after withdrawal")
	}

	f.log.Info().Str("hash", hashStr).Str("amount", amountLabel).Msg("withdrawal confirmed")
	return hashStr, nil
}

func (f *WithdrawFlow) setProcessing(v bool) {
	f.mu.Lock()
	f.processing = v
	f.mu.Unlock()
}

func (f *WithdrawFlow) fail(title, amountLabel, symbol, hash string, err error) error {
	msg := Message(err)

	f.mu.Lock()
	f.formError = msg
	f.mu.Unlock()

	f.notifier.Toast(ToastError, title, msg)
	f.events.emit(ActivityEvent{
		Action:     ActionWithdraw,
		Status:     StatusError,
		Amount:     amountLabel,
		Symbol:     symbol,
		ChainLabel: f.chainLabel,
		Message:    msg,
		Hash:       hash,
	})
	f.log.Error().Str("reason", msg).Msg(title)
	return fmt.Errorf("withdrawal failed: %s", msg)
}
