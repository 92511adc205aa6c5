package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"tradedesk/pkg/api"
	"tradedesk/pkg/chains"
	"tradedesk/pkg/tokens"
	"tradedesk/pkg/trading"
	"tradedesk/pkg/units"
)

var (
	balanceChain  string
	balanceToken  string
	balanceWallet string
)

var balanceCmd = &cobra.Command{
	Use:   "trade-balance",
	Short: "Read the trading balance held by the contract",
	Long: `Read the withdrawable trading balance the contract holds for a wallet.

Examples:
  tradedesk trade-balance --chain base
  tradedesk trade-balance --chain base --wallet eip155:84532:0x...`,
	Run: runTradeBalance,
}

var feesCmd = &cobra.Command{
	Use:   "get-fee-info <amount>",
	Short: "Preview the fee charged on an amount",
	Args:  cobra.ExactArgs(1),
	Run:   runGetFeeInfo,
}

var withdrawBalanceCmd = &cobra.Command{
	Use:   "withdraw-balance <amount>",
	Short: "Request a balance withdrawal through the desk backend",
	Args:  cobra.ExactArgs(1),
	Run:   runWithdrawBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(feesCmd)
	rootCmd.AddCommand(withdrawBalanceCmd)

	for _, c := range []*cobra.Command{balanceCmd, feesCmd} {
		c.Flags().StringVar(&balanceChain, "chain", "base", "Chain to query")
		c.Flags().StringVar(&balanceToken, "token", "", "Token id (defaults to the chain's first asset)")
		c.Flags().StringVar(&balanceWallet, "wallet", "", "CAIP-10 wallet (defaults to the signing wallet)")
	}
	withdrawBalanceCmd.Flags().StringVar(&balanceToken, "caip-token", "", "CAIP-10 token identifier (required)")
	withdrawBalanceCmd.Flags().StringVar(&balanceWallet, "caip-wallet", "", "CAIP-10 wallet identifier (required)")
	withdrawBalanceCmd.MarkFlagRequired("caip-token")
	withdrawBalanceCmd.MarkFlagRequired("caip-wallet")
}

// balanceQuery resolves the chain, token, and wallet identifiers shared by
// the contract read commands.
func balanceQuery() (gw trading.Gateway, caipToken, caipWallet string, decimals int32, symbol string, err error) {
	cfg, registry, err := registryFor()
	if err != nil {
		return nil, "", "", 0, "", err
	}

	chainKey := chains.Key(balanceChain)
	gateway, err := gatewayFor(cfg, chainKey)
	if err != nil {
		return nil, "", "", 0, "", err
	}

	available := registry.ForChain(chainKey)
	if len(available) == 0 {
		return nil, "", "", 0, "", fmt.Errorf("no tokens configured for chain %q", chainKey)
	}
	token := available[0]
	if balanceToken != "" {
		t, ok := registry.ByID(balanceToken)
		if !ok {
			return nil, "", "", 0, "", fmt.Errorf("unknown token %q", balanceToken)
		}
		token = t
	}
	tokenCfg, ok := token.Chains[chainKey]
	if !ok {
		return nil, "", "", 0, "", fmt.Errorf("token %q is not available on %s", token.ID, chainKey)
	}

	caipWallet = balanceWallet
	if caipWallet == "" {
		if chainKey == chains.KeySolana {
			return nil, "", "", 0, "", fmt.Errorf("pass --wallet for solana queries")
		}
		caipWallet, err = tokens.WalletCAIP10(chainKey, gateway.WalletAddress().Hex())
		if err != nil {
			return nil, "", "", 0, "", err
		}
	}

	return gateway, tokenCfg.CAIP10Token, caipWallet, token.Decimals, token.Symbol, nil
}

func runTradeBalance(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	gateway, caipToken, caipWallet, decimals, symbol, err := balanceQuery()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Reading trading balance..."
		s.Start()
	}
	balance, err := gateway.TradeBalance(context.Background(), caipWallet, caipToken)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	formatted := units.Format(balance, decimals)
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(map[string]string{
			"wallet":  caipWallet,
			"token":   caipToken,
			"balance": formatted,
			"raw":     balance.String(),
		}, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	printSuccess(fmt.Sprintf("Trading balance: %s %s", formatted, symbol))
}

func runGetFeeInfo(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	gateway, caipToken, caipWallet, decimals, symbol, err := balanceQuery()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	amount, err := units.Parse(args[0], decimals)
	if err != nil {
		printError(fmt.Errorf("invalid amount %q: %w", args[0], err))
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching fee info..."
		s.Start()
	}
	info, err := gateway.GetFeeInfo(context.Background(), amount, caipWallet, caipToken)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(map[string]any{
			"fee":        units.Format(info.Fee, decimals),
			"net_amount": units.Format(info.NetAmount, decimals),
			"is_staker":  info.IsStaker,
		}, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println()
	fmt.Printf("  Fee:        %s %s\n", units.Format(info.Fee, decimals), symbol)
	fmt.Printf("  Net amount: %s %s\n", units.Format(info.NetAmount, decimals), symbol)
	fmt.Printf("  Staker:     %t\n", info.IsStaker)
	fmt.Println()
}

func runWithdrawBalance(cmd *cobra.Command, args []string) {
	amount := 0.0
	if _, err := fmt.Sscanf(args[0], "%f", &amount); err != nil {
		printError(fmt.Errorf("invalid amount %q", args[0]))
		os.Exit(1)
	}

	client, err := backendClient()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Requesting withdrawal..."
	s.Start()
	resp, err := client.WithdrawBalance(context.Background(), api.WithdrawData{
		Amount:       amount,
		CAIP10Token:  balanceToken,
		CAIP10Wallet: balanceWallet,
	})
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	message := resp.Message
	if message == "" {
		message = "Withdrawal requested."
	}
	printSuccess(fmt.Sprintf("%s (transaction %s)", message, resp.TransactionID))
}
