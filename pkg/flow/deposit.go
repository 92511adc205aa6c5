package flow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"tradedesk/pkg/chains"
	"tradedesk/pkg/tokens"
	"tradedesk/pkg/trading"
	"tradedesk/pkg/units"
)

// ErrSimulationNotReady is returned when a submission is attempted before a
// successful dry-run of the request.
var ErrSimulationNotReady = errors.New("deposit simulation not ready")

// DepositForm is the user-editable state of the deposit dialog.
type DepositForm struct {
	Amount          string
	CAIP10Token     string
	CAIP10Wallet    string
	DepositorWallet string
}

// DepositFlow drives a deposit against the trading contract: parse the
// amount, gate on allowance, simulate, submit, await one confirmation, and
// report progress through toasts and activity events. Errors never escape
// un-normalized.
type DepositFlow struct {
	gateway    trading.Gateway
	registry   *tokens.Registry
	chainKey   chains.Key
	chainLabel string
	notifier   Notifier
	events     ActivitySink
	log        zerolog.Logger

	mu         sync.Mutex
	open       bool
	form       DepositForm
	token      tokens.Token
	tokenCfg   tokens.ChainConfig
	hasToken   bool
	prepared   *trading.DepositRequest
	simError   string
	formError  string
	processing bool
}

// NewDepositFlow creates a deposit controller for one chain. The first token
// available on the chain is preselected.
func NewDepositFlow(gateway trading.Gateway, registry *tokens.Registry, chainKey chains.Key, notifier Notifier, events ActivitySink, log zerolog.Logger) *DepositFlow {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	f := &DepositFlow{
		gateway:    gateway,
		registry:   registry,
		chainKey:   chainKey,
		chainLabel: chains.Label(chainKey),
		notifier:   notifier,
		events:     events,
		log:        log.With().Str("flow", "deposit").Str("chain", string(chainKey)).Logger(),
	}
	if available := registry.ForChain(chainKey); len(available) > 0 {
		f.token = available[0]
		f.tokenCfg = available[0].Chains[chainKey]
		f.hasToken = true
	}
	return f
}

// SupportsDeposit reports whether this chain has a trading contract and a
// tradable token configured.
func (f *DepositFlow) SupportsDeposit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gateway != nil && f.hasToken
}

// Open resets the form for a new deposit, prefilling identifiers from the
// connected wallet. On Solana the trading-balance wallet is user supplied and
// the depositor field names the EVM wallet that receives the credit.
func (f *DepositFlow) Open(defaultAmount, walletAddress string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.open = true
	f.formError = ""
	f.simError = ""
	f.prepared = nil

	form := DepositForm{
		Amount:      defaultAmount,
		CAIP10Token: f.tokenCfg.CAIP10Token,
	}
	if f.chainKey == chains.KeySolana {
		form.DepositorWallet = walletAddress
	} else if walletAddress != "" {
		if caipWallet, err := tokens.WalletCAIP10(f.chainKey, walletAddress); err == nil {
			form.CAIP10Wallet = caipWallet
		}
		form.DepositorWallet = walletAddress
	}
	f.form = form
}

// Close dismisses the dialog without clearing any inline error.
func (f *DepositFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
}

// IsOpen reports whether the dialog is showing.
func (f *DepositFlow) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// IsProcessing reports whether a transaction is in flight.
func (f *DepositFlow) IsProcessing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processing
}

// FormError returns the inline error shown in the dialog, if any.
func (f *DepositFlow) FormError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.formError != "" {
		return f.formError
	}
	return f.simError
}

// Token returns the currently selected token.
func (f *DepositFlow) Token() tokens.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// SelectToken switches the selected token and updates the form's CAIP-10
// token identifier. The previous simulation no longer applies.
func (f *DepositFlow) SelectToken(id string) error {
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
	return nil
}

// SetForm replaces the editable form fields and clears the inline error. The
// previous simulation no longer applies.
func (f *DepositFlow) SetForm(form DepositForm) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.form = form
	f.formError = ""
	f.prepared = nil
	f.simError = ""
}

// Form returns a copy of the current form state.
func (f *DepositFlow) Form() DepositForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// action discriminates native deposits from other-chain credits.
func (f *DepositFlow) action() uint8 {
	if f.chainKey == chains.KeySolana {
		return trading.ActionOtherChain
	}
	return trading.ActionNative
}

// buildRequest assembles the contract call from the form, or explains what
// is missing. Callers hold f.mu.
func (f *DepositFlow) buildRequest() (*trading.DepositRequest, error) {
	caipToken := strings.TrimSpace(f.form.CAIP10Token)
	caipWallet := strings.TrimSpace(f.form.CAIP10Wallet)
	if caipToken == "" || caipWallet == "" {
		return nil, fmt.Errorf("missing CAIP-10 identifiers")
	}

	amount, err := units.Parse(f.form.Amount, f.token.Decimals)
	if err != nil || !units.IsPositive(amount) {
		return nil, fmt.Errorf("enter a positive amount")
	}

	action := f.action()
	depositor := common.Address{}
	if action == trading.ActionOtherChain {
		raw := strings.TrimSpace(f.form.DepositorWallet)
		if raw == "" {
			return nil, fmt.Errorf("depositor wallet is required")
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid depositor wallet %q", raw)
		}
		depositor = common.HexToAddress(raw)
	}

	return &trading.DepositRequest{
		CAIP10Token:     caipToken,
		CAIP10Wallet:    caipWallet,
		Amount:          amount,
		Action:          action,
		DepositorWallet: depositor,
	}, nil
}

// RequiresApproval reports whether the selected token needs an allowance
// before the entered amount can be deposited. Native assets never do.
func (f *DepositFlow) RequiresApproval(ctx context.Context) (bool, error) {
	f.mu.Lock()
	tokenAddress := f.tokenCfg.TokenAddress
	amountStr := f.form.Amount
	decimals := f.token.Decimals
	f.mu.Unlock()

	if tokenAddress == "" || f.gateway == nil {
		return false, nil
	}

	amount, err := units.Parse(amountStr, decimals)
	if err != nil || !units.IsPositive(amount) {
		return false, nil
	}

	allowance, err := f.gateway.Allowance(ctx, common.HexToAddress(tokenAddress), f.gateway.WalletAddress())
	if err != nil {
		return false, fmt.Errorf("failed to read allowance: %w", err)
	}
	return allowance.Cmp(amount) < 0, nil
}

// Approve submits an allowance-setting transaction for the entered amount
// and waits for its confirmation, reporting progress through activity events
// and toasts.
func (f *DepositFlow) Approve(ctx context.Context) (string, error) {
	f.mu.Lock()
	tokenAddress := f.tokenCfg.TokenAddress
	amountLabel := f.form.Amount
	symbol := f.token.Symbol
	decimals := f.token.Decimals
	f.mu.Unlock()

	if tokenAddress == "" || f.gateway == nil {
		return "", fmt.Errorf("token requires no approval")
	}

	amount, err := units.Parse(amountLabel, decimals)
	if err != nil || !units.IsPositive(amount) {
		return "", fmt.Errorf("enter a positive amount")
	}

	hash, err := f.gateway.Approve(ctx, common.HexToAddress(tokenAddress), amount)
	if err != nil {
		return "", f.fail(ActionApproval, "Approval failed", amountLabel, symbol, "", err)
	}

	hashStr := hash.Hex()
	f.events.emit(ActivityEvent{
		Action:     ActionApproval,
		Status:     StatusPending,
		Amount:     amountLabel,
		Symbol:     symbol,
		ChainLabel: f.chainLabel,
		Message:    "Awaiting confirmation • " + ShortHash(hashStr),
		Hash:       hashStr,
	})

	if err := f.gateway.WaitForReceipt(ctx, hash); err != nil {
		return hashStr, f.fail(ActionApproval, "Approval failed", amountLabel, symbol, hashStr, err)
	}

	f.notifier.Toast(ToastSuccess, "Approval confirmed",
		fmt.Sprintf("Approved %s %s for deposits.", amountLabel, symbol))
	f.events.emit(ActivityEvent{
		Action:     ActionApproval,
		Status:     StatusSuccess,
		Amount:     amountLabel,
		Symbol:     symbol,
		ChainLabel: f.chainLabel,
		Message:    "Approval confirmed • " + ShortHash(hashStr),
		Hash:       hashStr,
	})
	f.log.Info().Str("hash", hashStr).Msg("allowance confirmed")

	if _, err := f.RefreshAllowance(ctx); err != nil {
		f.log.Warn().Err(err).Msg("allowance re-read failed after approval")
	}
	return hashStr, nil
}

// Prepare builds the deposit request from the form and dry-runs it. Submit
// refuses to run until the latest Prepare succeeded.
func (f *DepositFlow) Prepare(ctx context.Context) error {
	f.mu.Lock()
	if f.gateway == nil || !f.hasToken {
		f.mu.Unlock()
		return fmt.Errorf("deposit unsupported for this chain")
	}
	req, err := f.buildRequest()
	f.prepared = nil
	if err != nil {
		f.simError = ""
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()

	if err := f.gateway.SimulateDeposit(ctx, *req); err != nil {
		msg := Message(err)
		f.mu.Lock()
		f.simError = msg
		f.mu.Unlock()
		f.log.Warn().Str("reason", msg).Msg("deposit simulation failed")
		return fmt.Errorf("simulation failed: %s", msg)
	}

	f.mu.Lock()
	f.prepared = req
	f.simError = ""
	f.mu.Unlock()
	return nil
}

// Submit broadcasts the prepared deposit and waits for one confirmation. On
// success the dialog closes; on failure it stays open with the inline error
// set. A request that has not passed simulation is rejected outright.
func (f *DepositFlow) Submit(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.gateway == nil || !f.hasToken {
		f.formError = "Deposit unsupported for this chain."
		f.mu.Unlock()
		return "", fmt.Errorf("deposit unsupported for this chain")
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
	req := *f.prepared
	amountLabel := f.form.Amount
	symbol := f.token.Symbol
	f.formError = ""
	f.mu.Unlock()

	hash, err := f.gateway.Deposit(ctx, req)
	if err != nil {
		return "", f.fail(ActionDeposit, "Deposit failed", amountLabel, symbol, "", err)
	}
	hashStr := hash.Hex()

	f.setProcessing(true)
	defer f.setProcessing(false)

	f.events.emit(ActivityEvent{
		Action:     ActionDeposit,
		Status:     StatusPending,
		Amount:     amountLabel,
		Symbol:     symbol,
		ChainLabel: f.chainLabel,
		Message:    "Awaiting confirmation • " + ShortHash(hashStr),
		Hash:       hashStr,
	})
	f.notifier.Toast(ToastInfo, "Deposit submitted",
		fmt.Sprintf("Awaiting confirmation for %s %s on %s.", amountLabel, symbol, f.chainLabel))

	if err := f.gateway.WaitForReceipt(ctx, hash); err != nil {
		return hashStr, f.fail(ActionDeposit, "Deposit failed", amountLabel, symbol, hashStr, err)
	}

	f.notifier.Toast(ToastSuccess, "Deposit confirmed",
		fmt.Sprintf("%s %s deposited on %s.", amountLabel, symbol, f.chainLabel))
	f.events.emit(ActivityEvent{
		Action:     ActionDeposit,
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

	f.log.Info().Str("hash", hashStr).Str("amount", amountLabel).Msg("deposit confirmed")
	return hashStr, nil
}

func (f *DepositFlow) setProcessing(v bool) {
	f.mu.Lock()
	f.processing = v
	f.mu.Unlock()
}

// fail normalizes an error, records it inline, and mirrors it to the toast
// and activity surfaces. The dialog stays open.
func (f *DepositFlow) fail(action Action, title, amountLabel, symbol, hash string, err error) error {
	msg := Message(err)

	f.mu.Lock()
	f.formError = msg
	f.mu.Unlock()

	f.notifier.Toast(ToastError, title, msg)
	f.events.emit(ActivityEvent{
		Action:     action,
		Status:     StatusError,
		Amount:     amountLabel,
		Symbol:     symbol,
		ChainLabel: f.chainLabel,
		Message:    msg,
		Hash:       hash,
	})
	f.log.Error().Str("reason", msg).Msg(title)
	return fmt.Errorf("%s: %s", strings.ToLower(title), msg)
}

// RefreshAllowance re-reads the allowance after approvals; useful for
// display. Returns zero when the token needs no allowance.
func (f *DepositFlow) RefreshAllowance(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	tokenAddress := f.tokenCfg.TokenAddress
	f.mu.Unlock()

	if tokenAddress == "" || f.gateway == nil {
		return big.NewInt(0), nil
	}
	return f.gateway.Allowance(ctx, common.HexToAddress(tokenAddress), f.gateway.WalletAddress())
}
