package trading

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"tradedesk/config"
)

// Trading contract functions used by the desk.
const tradingABI = `[
	{"type":"function","name":"deposit","inputs":[{"name":"_caip10Token","type":"string"},{"name":"_caip10Wallet","type":"string"},{"name":"_amount","type":"uint256"},{"name":"_action","type":"uint8"},{"name":"_depositorWallet","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"withdraw","inputs":[{"name":"_caip10Token","type":"string"},{"name":"_caip10WalletOrName","type":"string"},{"name":"_amount","type":"uint256"},{"name":"_action","type":"uint8"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"getTradeBalance","inputs":[{"name":"_caip10Wallet","type":"string"},{"name":"_caip10Token","type":"string"}],"outputs":[{"name":"balance","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"getFeeInfo","inputs":[{"name":"_amount","type":"uint256"},{"name":"_caip10Wallet","type":"string"},{"name":"_caip10Token","type":"string"}],"outputs":[{"name":"fee","type":"uint256"},{"name":"netAmount","type":"uint256"},{"name":"isStaker","type":"bool"}],"stateMutability":"view"}
]`

// Standard ERC-20 allowance/approve surface.
const erc20ABI = `[
	{"type":"function","name":"allowance","inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"approve","inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"}
]`

const receiptPollInterval = 500 * time.Millisecond

// Client talks to the trading contract deployed on one EVM chain.
type Client struct {
	client     *ethclient.Client
	contract   common.Address
	chainID    *big.Int
	privateKey *ecdsa.PrivateKey
	wallet     common.Address
	trading    abi.ABI
	erc20      abi.ABI
}

// NewClient connects to the chain's RPC endpoint and binds the configured
// trading contract.
func NewClient(cfg config.ChainConfig) (*Client, error) {
	if cfg.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured")
	}
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("trading contract address not configured")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid trading contract address: %s", cfg.ContractAddress)
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured")
	}

	client, err := ethclient.Dial(cfg.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	tradingParsed, err := abi.JSON(strings.NewReader(tradingABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse trading ABI: %w", err)
	}
	erc20Parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	return &Client{
		client:     client,
		contract:   common.HexToAddress(cfg.ContractAddress),
		chainID:    chainID,
		privateKey: privateKey,
		wallet:     crypto.PubkeyToAddress(privateKey.PublicKey),
		trading:    tradingParsed,
		erc20:      erc20Parsed,
	}, nil
}

// WalletAddress returns the address of the configured signing key.
func (c *Client) WalletAddress() common.Address {
	return c.wallet
}

// ContractAddress returns the bound trading contract address.
func (c *Client) ContractAddress() common.Address {
	return c.contract
}

// Allowance reads the ERC-20 allowance granted to the trading contract.
func (c *Client) Allowance(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error) {
	data, err := c.erc20.Pack("allowance", owner, c.contract)
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance data: %w", err)
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call allowance: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}

// Approve grants the trading contract an allowance on the given token.
func (c *Client) Approve(ctx context.Context, token common.Address, amount *big.Int) (common.Hash, error) {
	data, err := c.erc20.Pack("approve", c.contract, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack approve data: %w", err)
	}
	return c.sendTransaction(ctx, token, data)
}

// SimulateDeposit dry-runs a deposit call without broadcasting it.
func (c *Client) SimulateDeposit(ctx context.Context, req DepositRequest) error {
	data, err := c.packDeposit(req)
	if err != nil {
		return err
	}
	return c.simulate(ctx, data)
}

// Deposit broadcasts a deposit transaction and returns its hash.
func (c *Client) Deposit(ctx context.Context, req DepositRequest) (common.Hash, error) {
	data, err := c.packDeposit(req)
	if err != nil {
		return common.Hash{}, err
	}
	return c.sendTransaction(ctx, c.contract, data)
}

// SimulateWithdraw dry-runs a withdraw call without broadcasting it.
func (c *Client) SimulateWithdraw(ctx context.Context, req WithdrawRequest) error {
	data, err := c.packWithdraw(req)
	if err != nil {
		return err
	}
	return c.simulate(ctx, data)
}

// Withdraw broadcasts a withdraw transaction and returns its hash.
func (c *Client) Withdraw(ctx context.Context, req WithdrawRequest) (common.Hash, error) {
	data, err := c.packWithdraw(req)
	if err != nil {
		return common.Hash{}, err
	}
	return c.sendTransaction(ctx, c.contract, data)
}

// TradeBalance reads the trading balance for a wallet/token pair.
func (c *Client) TradeBalance(ctx context.Context, caip10Wallet, caip10Token string) (*big.Int, error) {
	data, err := c.trading.Pack("getTradeBalance", caip10Wallet, caip10Token)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getTradeBalance data: %w", err)
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call getTradeBalance: %w", err)
	}

	values, err := c.trading.Unpack("getTradeBalance", result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack getTradeBalance result: %w", err)
	}

	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getTradeBalance result type %T", values[0])
	}
	return balance, nil
}

// GetFeeInfo previews the fee charged on an amount.
func (c *Client) GetFeeInfo(ctx context.Context, amount *big.Int, caip10Wallet, caip10Token string) (FeeInfo, error) {
	data, err := c.trading.Pack("getFeeInfo", amount, caip10Wallet, caip10Token)
	if err != nil {
		return FeeInfo{}, fmt.Errorf("failed to pack getFeeInfo data: %w", err)
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return FeeInfo{}, fmt.Errorf("failed to call getFeeInfo: %w", err)
	}

	values, err := c.trading.Unpack("getFeeInfo", result)
	if err != nil {
		return FeeInfo{}, fmt.Errorf("failed to unpack getFeeInfo result: %w", err)
	}
	if len(values) != 3 {
		return FeeInfo{}, fmt.Errorf("unexpected getFeeInfo result length %d", len(values))
	}

	info := FeeInfo{}
	if info.Fee, _ = values[0].(*big.Int); info.Fee == nil {
		return FeeInfo{}, fmt.Errorf("unexpected getFeeInfo fee type %T", values[0])
	}
	if info.NetAmount, _ = values[1].(*big.Int); info.NetAmount == nil {
		return FeeInfo{}, fmt.Errorf("unexpected getFeeInfo netAmount type %T", values[1])
	}
	info.IsStaker, _ = values[2].(bool)
	return info, nil
}

// WaitForReceipt polls until the transaction has one confirmation. A mined
// transaction with a failed status counts as an error.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return fmt.Errorf("transaction %s reverted", hash.Hex())
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("failed to get transaction receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *Client) packDeposit(req DepositRequest) ([]byte, error) {
	data, err := c.trading.Pack("deposit", req.CAIP10Token, req.CAIP10Wallet, req.Amount, req.Action, req.DepositorWallet)
	if err != nil {
		return nil, fmt.Errorf("failed to pack deposit data: %w", err)
	}
	return data, nil
}

func (c *Client) packWithdraw(req WithdrawRequest) ([]byte, error) {
	data, err := c.trading.Pack("withdraw", req.CAIP10Token, req.CAIP10WalletOrName, req.Amount, req.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to pack withdraw data: %w", err)
	}
	return data, nil
}

// simulate runs the calldata through eth_call from the signing wallet.
func (c *Client) simulate(ctx context.Context, data []byte) error {
	msg := ethereum.CallMsg{
		From: c.wallet,
		To:   &c.contract,
		Data: data,
	}
	if _, err := c.client.CallContract(ctx, msg, nil); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	return nil
}

// sendTransaction signs and broadcasts calldata to the given address.
func (c *Client) sendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	nonce, err := c.client.PendingNonceAt(ctx, c.wallet)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit := uint64(200_000)
	estimated, err := c.client.EstimateGas(ctx, ethereum.CallMsg{From: c.wallet, To: &to, Data: data})
	if err == nil {
		gasLimit = estimated * 120 / 100 // 20% buffer
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash(), nil
}
