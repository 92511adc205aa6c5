package flow

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedesk/pkg/chains"
	"tradedesk/pkg/scheduler"
	"tradedesk/pkg/tokens"
	"tradedesk/pkg/trading"
)

var (
	testWallet   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testToken    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testTxHash   = common.HexToHash("0xabcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789")
	testDeposit  = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	testWithdraw = common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
)

type mockGateway struct {
	mu sync.Mutex

	allowance   *big.Int
	allowErr    error
	simErr      error
	depositErr  error
	withdrawErr error
	balance     *big.Int
	balanceErr  error
	receiptErr  error

	calls       []string
	lastDeposit trading.DepositRequest
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		allowance: big.NewInt(0),
		balance:   big.NewInt(0),
	}
}

func (g *mockGateway) record(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, name)
}

func (g *mockGateway) callNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *mockGateway) WalletAddress() common.Address { return testWallet }

func (g *mockGateway) Allowance(context.Context, common.Address, common.Address) (*big.Int, error) {
	g.record("allowance")
	return g.allowance, g.allowErr
}

func (g *mockGateway) Approve(context.Context, common.Address, *big.Int) (common.Hash, error) {
	g.record("approve")
	return testTxHash, nil
}

func (g *mockGateway) SimulateDeposit(_ context.Context, req trading.DepositRequest) error {
	g.record("simulateDeposit")
	g.mu.Lock()
	g.lastDeposit = req
	g.mu.Unlock()
	return g.simErr
}

func (g *mockGateway) Deposit(context.Context, trading.DepositRequest) (common.Hash, error) {
	g.record("deposit")
	return testDeposit, g.depositErr
}

func (g *mockGateway) SimulateWithdraw(context.Context, trading.WithdrawRequest) error {
	g.record("simulateWithdraw")
	return g.simErr
}

func (g *mockGateway) Withdraw(context.Context, trading.WithdrawRequest) (common.Hash, error) {
	g.record("withdraw")
	return testWithdraw, g.withdrawErr
}

func (g *mockGateway) TradeBalance(context.Context, string, string) (*big.Int, error) {
	g.record("tradeBalance")
	return g.balance, g.balanceErr
}

func (g *mockGateway) GetFeeInfo(context.Context, *big.Int, string, string) (trading.FeeInfo, error) {
	g.record("getFeeInfo")
	return trading.FeeInfo{Fee: big.NewInt(0), NetAmount: big.NewInt(0)}, nil
}

func (g *mockGateway) WaitForReceipt(context.Context, common.Hash) error {
	g.record("waitForReceipt")
	return g.receiptErr
}

type eventRecorder struct {
	mu     sync.Mutex
	events []ActivityEvent
}

func (r *eventRecorder) sink() ActivitySink {
	return func(e ActivityEvent) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	}
}

func (r *eventRecorder) all() []ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ActivityEvent(nil), r.events...)
}

type toast struct {
	variant     ToastVariant
	title, desc string
}

type toastRecorder struct {
	mu     sync.Mutex
	toasts []toast
}

func (r *toastRecorder) Toast(variant ToastVariant, title, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, toast{variant, title, description})
}

func (r *toastRecorder) all() []toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]toast(nil), r.toasts...)
}

func testRegistry() *tokens.Registry {
	weth := tokens.Token{
		ID:       "weth",
		Symbol:   "WETH",
		Name:     "Wrapped Ether",
		Decimals: 18,
		Price:    3120,
		Chains: map[chains.Key]tokens.ChainConfig{
			chains.KeyBase: {
				CAIP10Token:  "eip155:84532:" + testToken.Hex(),
				TokenAddress: testToken.Hex(),
			},
		},
	}
	ape := tokens.Token{
		ID:       "ape",
		Symbol:   "Ape",
		Name:     "Ape Coin",
		Decimals: 6,
		Price:    1,
		Chains: map[chains.Key]tokens.ChainConfig{
			chains.KeySolana: {
				CAIP10Token: "solana:mainnet:ApeCoinMint1111111111111111111111111111111",
			},
		},
	}
	return tokens.NewRegistry([]tokens.Token{weth, ape})
}

func newDepositFixture(t *testing.T, key chains.Key) (*DepositFlow, *mockGateway, *eventRecorder, *toastRecorder) {
	t.Helper()
	gateway := newMockGateway()
	events := &eventRecorder{}
	toasts := &toastRecorder{}
	f := NewDepositFlow(gateway, testRegistry(), key, toasts, events.sink(), zerolog.Nop())
	return f, gateway, events, toasts
}

func TestDepositBuildRequestNative(t *testing.T) {
	f, gateway, _, _ := newDepositFixture(t, chains.KeyBase)
	f.Open("0.25", testWallet.Hex())

	require.NoError(t, f.Prepare(context.Background()))

	req := gateway.lastDeposit
	assert.Equal(t, trading.ActionNative, req.Action)
	assert.Equal(t, common.Address{}, req.DepositorWallet)
	assert.Equal(t, "250000000000000000", req.Amount.String())
	assert.Contains(t, req.CAIP10Wallet, "eip155:84532:")
}

func TestDepositBuildRequestSolana(t *testing.T) {
	f, gateway, _, _ := newDepositFixture(t, chains.KeySolana)
	f.Open("1.5", testWallet.Hex())
	form := f.Form()
	form.CAIP10Wallet = "solana:mainnet:4Nd1mY5ZyXKY2VoJ8tCM9XsQJSKH4NYYM5T1Sp1bKDbh"
	f.SetForm(form)

	require.NoError(t, f.Prepare(context.Background()))

	req := gateway.lastDeposit
	assert.Equal(t, trading.ActionOtherChain, req.Action)
	assert.Equal(t, testWallet, req.DepositorWallet)
	assert.Equal(t, "1500000", req.Amount.String(), "ape uses 6 decimals on solana")
}

func TestDepositRequiresApprovalBoundary(t *testing.T) {
	f, gateway, _, _ := newDepositFixture(t, chains.KeyBase)
	f.Open("1", testWallet.Hex())

	amount := new(big.Int)
	amount.SetString("1000000000000000000", 10)

	gateway.allowance = new(big.Int).Sub(amount, big.NewInt(1))
	needs, err := f.RequiresApproval(context.Background())
	require.NoError(t, err)
	assert.True(t, needs)

	gateway.allowance = amount
	needs, err = f.RequiresApproval(context.Background())
	require.NoError(t, err)
	assert.False(t, needs, "allowance equal to the amount needs no approval")
}

func TestDepositRequiresApprovalSkipsNativeAsset(t *testing.T) {
	f, gateway, _, _ := newDepositFixture(t, chains.KeySolana)
	f.Open("1", testWallet.Hex())

	needs, err := f.RequiresApproval(context.Background())
	require.NoError(t, err)
	assert.False(t, needs)
	assert.Empty(t, gateway.callNames(), "no allowance read without a token address")
}

func TestDepositSubmitEmitsPendingThenSuccess(t *testing.T) {
	f, gateway, events, toasts := newDepositFixture(t, chains.KeyBase)
	f.Open("0.25", testWallet.Hex())

	require.NoError(t, f.Prepare(context.Background()))
	hash, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testDeposit.Hex(), hash)

	got := events.all()
	require.Len(t, got, 2)
	assert.Equal(t, StatusPending, got[0].Status)
	assert.Equal(t, StatusSuccess, got[1].Status)
	assert.Equal(t, ActionDeposit, got[0].Action)
	assert.Contains(t, got[0].Message, "Awaiting confirmation • ")
	assert.Contains(t, got[1].Message, "Confirmed • ")
	assert.Equal(t, hash, got[1].Hash)

	assert.False(t, f.IsOpen(), "dialog closes after a confirmed deposit")
	assert.Equal(t, []string{"simulateDeposit", "deposit", "waitForReceipt"}, gateway.callNames())

	sent := toasts.all()
	require.Len(t, sent, 2)
	assert.Equal(t, ToastInfo, sent[0].variant)
	assert.Equal(t, ToastSuccess, sent[1].variant)
}

func TestDepositSubmitWithoutSimulation(t *testing.T) {
	f, gateway, events, _ := newDepositFixture(t, chains.KeyBase)
	f.Open("0.25", testWallet.Hex())

	_, err := f.Submit(context.Background())
	require.ErrorIs(t, err, ErrSimulationNotReady)
	assert.Equal(t, "Enter a valid amount and identifiers.", f.FormError())
	assert.Empty(t, gateway.callNames(), "nothing reaches the chain without a simulation")
	assert.Empty(t, events.all())
}

func TestDepositFailedSimulationBlocksSubmit(t *testing.T) {
	f, gateway, events, _ := newDepositFixture(t, chains.KeyBase)
	f.Open("0.25", testWallet.Hex())
	gateway.simErr = errors.New("execution reverted: unsupported token")

	require.Error(t, f.Prepare(context.Background()))
	_, err := f.Submit(context.Background())
	require.ErrorIs(t, err, ErrSimulationNotReady)

	assert.Equal(t, "execution reverted: unsupported token", f.FormError())
	assert.NotContains(t, gateway.callNames(), "deposit")
	assert.Empty(t, events.all())
}

func TestDepositRevertKeepsDialogOpen(t *testing.T) {
	f, gateway, events, _ := newDepositFixture(t, chains.KeyBase)
	f.Open("0.25", testWallet.Hex())
	gateway.receiptErr = errors.New("transaction reverted")

	require.NoError(t, f.Prepare(context.Background()))
	hash, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, testDeposit.Hex(), hash)

	got := events.all()
	require.Len(t, got, 2)
	assert.Equal(t, StatusPending, got[0].Status)
	assert.Equal(t, StatusError, got[1].Status)
	assert.Equal(t, hash, got[1].Hash)

	assert.True(t, f.IsOpen(), "dialog stays open so the user can retry")
	assert.Equal(t, "transaction reverted", f.FormError())
}

func TestApproveEmitsEventSequence(t *testing.T) {
	f, gateway, events, toasts := newDepositFixture(t, chains.KeyBase)
	f.Open("0.25", testWallet.Hex())

	hash, err := f.Approve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testTxHash.Hex(), hash)
	assert.Equal(t, []string{"approve", "waitForReceipt", "allowance"}, gateway.callNames(),
		"a confirmed approval re-reads the allowance")

	got := events.all()
	require.Len(t, got, 2)
	assert.Equal(t, ActionApproval, got[0].Action)
	assert.Equal(t, StatusPending, got[0].Status)
	assert.Equal(t, StatusSuccess, got[1].Status)

	sent := toasts.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "Approval confirmed", sent[0].title)
}

func newWithdrawFixture(t *testing.T, key chains.Key) (*WithdrawFlow, *mockGateway, *eventRecorder, *toastRecorder) {
	t.Helper()
	gateway := newMockGateway()
	events := &eventRecorder{}
	toasts := &toastRecorder{}
	f := NewWithdrawFlow(gateway, testRegistry(), key, toasts, events.sink(), zerolog.Nop())
	return f, gateway, events, toasts
}

func TestWithdrawInsufficientBalanceBlocked(t *testing.T) {
	f, gateway, events, _ := newWithdrawFixture(t, chains.KeyBase)
	f.Open("2", testWallet.Hex())

	one := new(big.Int)
	one.SetString("1000000000000000000", 10)
	gateway.balance = one
	_, err := f.RefreshBalance(context.Background())
	require.NoError(t, err)

	err = f.Prepare(context.Background())
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, InsufficientBalanceMessage, f.FormError())
	assert.NotContains(t, gateway.callNames(), "simulateWithdraw")
	assert.Empty(t, events.all())
}

func TestWithdrawSubmitRefetchesBalance(t *testing.T) {
	f, gateway, events, _ := newWithdrawFixture(t, chains.KeyBase)
	f.Open("0.5", testWallet.Hex())

	one := new(big.Int)
	one.SetString("1000000000000000000", 10)
	gateway.balance = one
	_, err := f.RefreshBalance(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.Prepare(context.Background()))
	hash, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testWithdraw.Hex(), hash)

	got := events.all()
	require.Len(t, got, 2)
	assert.Equal(t, ActionWithdraw, got[0].Action)
	assert.Equal(t, StatusPending, got[0].Status)
	assert.Equal(t, StatusSuccess, got[1].Status)

	assert.False(t, f.IsOpen())
	calls := gateway.callNames()
	assert.Equal(t, "tradeBalance", calls[len(calls)-1], "balance re-read after a confirmed withdrawal")
}

func TestWithdrawUnreadBalanceCountsAsInsufficient(t *testing.T) {
	f, gateway, _, _ := newWithdrawFixture(t, chains.KeyBase)
	f.Open("0.5", testWallet.Hex())

	err := f.Prepare(context.Background())
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NotContains(t, gateway.callNames(), "simulateWithdraw")
}

func TestWithdrawUnsupportedOnSolana(t *testing.T) {
	f, _, _, _ := newWithdrawFixture(t, chains.KeySolana)
	assert.False(t, f.SupportsWithdraw())

	f.Open("0.5", testWallet.Hex())
	_, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Withdrawals are unsupported for this chain.", f.FormError())
}

func TestWithdrawUseMax(t *testing.T) {
	f, gateway, _, _ := newWithdrawFixture(t, chains.KeyBase)
	f.Open("0", testWallet.Hex())

	gateway.balance = big.NewInt(2_500_000_000_000_000_000)
	_, err := f.RefreshBalance(context.Background())
	require.NoError(t, err)

	f.UseMax()
	assert.Equal(t, "2.5", f.Form().Amount)
}

func newSwapFixture(roll func() float64) (*Swapper, *scheduler.Manual, *eventRecorder, *toastRecorder) {
	registry := testRegistry()
	weth, _ := registry.ByID("weth")
	ape, _ := registry.ByID("ape")
	sched := scheduler.NewManual()
	events := &eventRecorder{}
	toasts := &toastRecorder{}
	s := NewSwapper(weth, ape, decimal.NewFromFloat(128.45), toasts, events.sink(), sched, roll, zerolog.Nop())
	return s, sched, events, toasts
}

func TestSwapRejectsInvalidAmountWithoutEvent(t *testing.T) {
	for _, amount := range []string{"", "0", "-1", "abc"} {
		s, _, events, toasts := newSwapFixture(nil)
		s.SetAmount(amount)

		require.Error(t, s.Start(), "amount %q", amount)
		assert.Empty(t, events.all(), "amount %q must not reach the activity feed", amount)

		sent := toasts.all()
		require.Len(t, sent, 1)
		assert.Equal(t, ToastError, sent[0].variant)
		assert.Equal(t, "Enter a valid amount", sent[0].title)
	}
}

func TestSwapSuccessMovesBalance(t *testing.T) {
	s, sched, events, _ := newSwapFixture(func() float64 { return 0.9 })
	s.SetAmount("0.5")

	require.NoError(t, s.Start())
	assert.True(t, s.Pending())

	got := events.all()
	require.Len(t, got, 1)
	assert.Equal(t, StatusPending, got[0].Status)
	assert.Equal(t, "WETH", got[0].FromSymbol)
	assert.Equal(t, "Ape", got[0].ToSymbol)

	sched.Advance(SwapSettleDelay)

	got = events.all()
	require.Len(t, got, 2)
	assert.Equal(t, StatusSuccess, got[1].Status)
	assert.False(t, s.Pending())

	// 128.45 sell-side debit floors at zero, then 0.5 Ape at $1 credits.
	assert.Equal(t, "0.5", s.Balance().String())
}

func TestSwapFailureLeavesBalance(t *testing.T) {
	s, sched, events, toasts := newSwapFixture(func() float64 { return 0.1 })
	s.SetAmount("0.5")

	require.NoError(t, s.Start())
	sched.Advance(SwapSettleDelay)

	got := events.all()
	require.Len(t, got, 2)
	assert.Equal(t, StatusError, got[1].Status)
	assert.Equal(t, "A network error occurred. Please retry in a moment.", got[1].Message)
	assert.Equal(t, "128.45", s.Balance().String())

	sent := toasts.all()
	assert.Equal(t, "Swap failed", sent[len(sent)-1].title)
}

func TestSwapRestartsReplacePendingSettlement(t *testing.T) {
	s, sched, events, _ := newSwapFixture(func() float64 { return 0.9 })
	s.SetAmount("0.5")

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	sched.Advance(2 * SwapSettleDelay)

	var settled int
	for _, e := range events.all() {
		if e.Status != StatusPending {
			settled++
		}
	}
	assert.Equal(t, 1, settled, "a restarted swap settles exactly once")
}

func TestSwapQuote(t *testing.T) {
	s, _, _, _ := newSwapFixture(nil)

	s.SetAmount("2")
	assert.Equal(t, "6240.0000", s.Quote())

	s.SetAmount("oops")
	assert.Equal(t, "0.0000", s.Quote())

	s.SetAmount("0")
	assert.Equal(t, "0.0000", s.Quote())

	s.Flip()
	s.SetAmount("3120")
	assert.Equal(t, "1.0000", s.Quote())
}

func TestMessageNormalization(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "plain failure", Message(errors.New("plain failure")))
	assert.Equal(t, "User rejected the request.", Message(shortErr{}))
	assert.Equal(t, DefaultErrorMessage, Message(blankErr{}))
}

type shortErr struct{}

func (shortErr) Error() string        { return "rpc error -32000: verbose dump" }
func (shortErr) ShortMessage() string { return "User rejected the request." }

type blankErr struct{}

func (blankErr) Error() string { return "" }
