package trading

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradingABISignatures(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(tradingABI))
	require.NoError(t, err)

	cases := map[string]string{
		"deposit":         "deposit(string,string,uint256,uint8,address)",
		"withdraw":        "withdraw(string,string,uint256,uint8)",
		"getTradeBalance": "getTradeBalance(string,string)",
		"getFeeInfo":      "getFeeInfo(uint256,string,string)",
	}
	for name, sig := range cases {
		method, ok := parsed.Methods[name]
		require.True(t, ok, "method %s missing", name)
		assert.Equal(t, sig, method.Sig)
	}

	assert.Len(t, parsed.Methods["getFeeInfo"].Outputs, 3)
}

func TestERC20ABISignatures(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	require.NoError(t, err)

	allowance, ok := parsed.Methods["allowance"]
	require.True(t, ok)
	assert.Equal(t, "allowance(address,address)", allowance.Sig)

	approve, ok := parsed.Methods["approve"]
	require.True(t, ok)
	assert.Equal(t, "approve(address,uint256)", approve.Sig)
}

func TestDepositCalldataRoundTrip(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(tradingABI))
	require.NoError(t, err)

	depositor := common.HexToAddress("0x1111111111111111111111111111111111111111")
	amount := big.NewInt(250_000_000)

	data, err := parsed.Pack("deposit",
		"eip155:84532:0x0000000000000000000000000000000000000001",
		"eip155:84532:0x0000000000000000000000000000000000000002",
		amount, uint8(ActionOtherChain), depositor)
	require.NoError(t, err)
	assert.Equal(t, parsed.Methods["deposit"].ID, data[:4])

	values, err := parsed.Methods["deposit"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, values, 5)
	assert.Equal(t, "eip155:84532:0x0000000000000000000000000000000000000001", values[0])
	assert.Equal(t, amount, values[2])
	assert.Equal(t, ActionOtherChain, values[3])
	assert.Equal(t, depositor, values[4])
}
