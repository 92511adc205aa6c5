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
	"tradedesk/pkg/island"
	"tradedesk/pkg/scheduler"
)

var (
	depositChain     string
	depositToken     string
	depositWallet    string
	depositDepositor string
)

var depositCmd = &cobra.Command{
	Use:   "deposit <amount>",
	Short: "Deposit into the trading contract",
	Long: `Deposit an asset into the trading contract. The amount is checked against
the current ERC-20 allowance first; if the allowance is short, an approval
transaction runs before the deposit. Every deposit is simulated before it is
broadcast.

On solana the trading balance belongs to a solana wallet while the credit is
booked to an EVM depositor wallet; pass the solana wallet with --wallet.

Examples:
  tradedesk deposit 0.25 --chain base
  tradedesk deposit 1 --chain anvil --token weth
  tradedesk deposit 2 --chain solana --wallet solana:mainnet:<address>`,
	Args: cobra.ExactArgs(1),
	Run:  runDeposit,
}

func init() {
	rootCmd.AddCommand(depositCmd)

	depositCmd.Flags().StringVar(&depositChain, "chain", "base", "Chain to deposit on")
	depositCmd.Flags().StringVar(&depositToken, "token", "", "Token id (defaults to the chain's first asset)")
	depositCmd.Flags().StringVar(&depositWallet, "wallet", "", "CAIP-10 wallet credited with the trading balance")
	depositCmd.Flags().StringVar(&depositDepositor, "depositor", "", "EVM depositor wallet (solana deposits)")
}

// activityPrinter mirrors flow events onto the terminal, and drives the
// island surface so settled work auto-clears the status line.
func activityPrinter(verbose bool) flow.ActivitySink {
	surface := island.NewSurface(scheduler.New(), nil)
	return func(event flow.ActivityEvent) {
		surface.Show(island.FromActivity(event))
		if !verbose {
			return
		}
		content := surface.Current().Content()
		fmt.Printf("  [%s] %s: %s\n", event.Status, content.Title, content.Subtitle)
	}
}

func runDeposit(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	log := newLogger(cmd)

	cfg, registry, err := registryFor()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	chainKey := chains.Key(depositChain)
	gateway, err := gatewayFor(cfg, chainKey)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	f := flow.NewDepositFlow(gateway, registry, chainKey, terminalNotifier{}, activityPrinter(verbose), log)
	if !f.SupportsDeposit() {
		printError(fmt.Errorf("deposit unsupported for chain %q", chainKey))
		os.Exit(1)
	}

	if depositToken != "" {
		if err := f.SelectToken(depositToken); err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	f.Open(args[0], gateway.WalletAddress().Hex())
	form := f.Form()
	if depositWallet != "" {
		form.CAIP10Wallet = depositWallet
	}
	if depositDepositor != "" {
		form.DepositorWallet = depositDepositor
	}
	f.SetForm(form)

	ctx := context.Background()
	token := f.Token()

	needsApproval, err := f.RequiresApproval(ctx)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if needsApproval {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = fmt.Sprintf(" Approving %s %s...", args[0], token.Symbol)
		s.Start()
		_, err := f.Approve(ctx)
		s.Stop()
		if err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Simulating deposit..."
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
