package trading

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Action discriminates where the funds for an operation live.
const (
	// ActionNative moves on-chain tokens held by the connected wallet.
	ActionNative uint8 = 0
	// ActionOtherChain credits or debits the trading balance on behalf of a
	// wallet on another chain; no token transfer happens on this chain.
	ActionOtherChain uint8 = 1
)

// DepositRequest mirrors the trading contract's deposit call. The depositor
// wallet is the zero address for native deposits and an explicit EVM address
// for other-chain deposits.
type DepositRequest struct {
	CAIP10Token     string
	CAIP10Wallet    string
	Amount          *big.Int
	Action          uint8
	DepositorWallet common.Address
}

// WithdrawRequest mirrors the trading contract's withdraw call.
type WithdrawRequest struct {
	CAIP10Token        string
	CAIP10WalletOrName string
	Amount             *big.Int
	Action             uint8
}

// FeeInfo is the result of the contract's getFeeInfo view.
type FeeInfo struct {
	Fee       *big.Int
	NetAmount *big.Int
	IsStaker  bool
}

// Gateway is the contract surface the flow controllers depend on. The
// production implementation is Client; tests use a recording stub.
type Gateway interface {
	// WalletAddress is the address of the configured signing key.
	WalletAddress() common.Address

	// Allowance reads the ERC-20 allowance granted by owner to the trading
	// contract on the given token.
	Allowance(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error)
	// Approve grants the trading contract an ERC-20 allowance and returns
	// the transaction hash.
	Approve(ctx context.Context, token common.Address, amount *big.Int) (common.Hash, error)

	// SimulateDeposit dry-runs a deposit without broadcasting it.
	SimulateDeposit(ctx context.Context, req DepositRequest) error
	// Deposit broadcasts a deposit transaction.
	Deposit(ctx context.Context, req DepositRequest) (common.Hash, error)

	// SimulateWithdraw dry-runs a withdrawal without broadcasting it.
	SimulateWithdraw(ctx context.Context, req WithdrawRequest) error
	// Withdraw broadcasts a withdrawal transaction.
	Withdraw(ctx context.Context, req WithdrawRequest) (common.Hash, error)

	// TradeBalance reads the wallet's trading balance for a token.
	TradeBalance(ctx context.Context, caip10Wallet, caip10Token string) (*big.Int, error)
	// GetFeeInfo previews the fee charged on an amount.
	GetFeeInfo(ctx context.Context, amount *big.Int, caip10Wallet, caip10Token string) (FeeInfo, error)

	// WaitForReceipt blocks until the transaction has one confirmation,
	// returning an error if it reverted or was dropped.
	WaitForReceipt(ctx context.Context, hash common.Hash) error
}
