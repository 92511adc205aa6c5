package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradedesk/pkg/chains"
	"tradedesk/pkg/flow"
	"tradedesk/pkg/units"
)

var (
	withdrawChain  string
	withdrawToken  string
	withdrawWallet string
	withdrawMax    bool
)

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <amount>",
	Short: "Withdraw from the trading contract",
	Long: `Withdraw an asset from the trading contract back to the connected wallet.
The entered amount is checked against the on-contract trading balance before
anything is broadcast, and the withdrawal is simulated first.

Examples:
  tradedesk withdraw 0.1 --chain base
  tradedesk withdraw --max --chain anvil`,
	Args: cobra.MaximumNArgs(1),
	Run:  runWithdraw,
}

func init() {
	rootCmd.AddCommand(withdrawCmd)

	withdrawCmd.Flags().StringVar(&withdrawChain, "chain", "base", "Chain to withdraw on")
	withdrawCmd.Flags().StringVar(&withdrawToken, "token", "", "Token id (defaults to the chain's first asset)")
	withdrawCmd.Flags().StringVar(&withdrawWallet, "wallet", "", "CAIP-10 wallet or name holding the balance")
	withdrawCmd.Flags().BoolVar(&withdrawMax, "max", false, "Withdraw the full trading balance")
}

func runWithdraw(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	log := newLogger(cmd)

	if len(args) == 0 && !withdrawMax {
		printError(fmt.Errorf("pass an amount or --max"))
		os.Exit(1)
	}
	amount := "0"
	if len(args) == 1 {
		amount = args[0]
	}

	cfg, registry, err := registryFor()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	chainKey := chains.Key(withdrawChain)
	gateway, err := gatewayFor(cfg, chainKey)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	f := flow.NewWithdrawFlow(gateway, registry, chainKey, terminalNotifier{}, activityPrinter(verbose), log)
	if !f.SupportsWithdraw() {
		printError(fmt.Errorf("withdrawals are unsupported for chain %q", chainKey))
		os.Exit(1)
	}

	if withdrawToken != "" {
		if err := f.SelectToken(withdrawToken); err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	f.Open(amount, gateway.WalletAddress().Hex())
	if withdrawWallet != "" {
		form := f.Form()
		form.CAIP10WalletOrName = withdrawWallet
		f.SetForm(form)
	}

	ctx := context.Background()
	token := f.Token()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Reading trading balance..."
	s.Start()
	balance, err := f.RefreshBalance(ctx)
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	fmt.Printf("  Trading balance: %s %s\n", units.Format(balance, token.Decimals), token.Symbol)

	if withdrawMax {
		f.UseMax()
	}

	s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Simulating withdrawal..."
	s.Start()
	err = f.Prepare(ctx)
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Awaiting confirmation..."
	s.Start()
	hash, err := f.Submit(ctx)
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	fmt.Printf("  Transaction: %s\n", color.CyanString(hash))
}
