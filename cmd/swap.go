package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"tradedesk/pkg/flow"
	"tradedesk/pkg/island"
	"tradedesk/pkg/scheduler"
	"tradedesk/pkg/tokens"
)

var quoteOnly bool

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <from-token> to <to-token>",
	Short: "Swap between supported assets",
	Long: `Swap one desk asset for another at the current quoted prices.

Examples:
  tradedesk swap 0.5 WETH to Ape
  tradedesk swap 100 Ape to WETH --quote`,
	Args: cobra.MinimumNArgs(4),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().BoolVar(&quoteOnly, "quote", false, "Print the quote without executing")
}

func findToken(registry *tokens.Registry, symbol string) (tokens.Token, bool) {
	for _, token := range registry.All() {
		if strings.EqualFold(token.Symbol, symbol) || strings.EqualFold(token.ID, symbol) {
			return token, true
		}
	}
	return tokens.Token{}, false
}

func runSwap(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	log := newLogger(cmd)

	if !strings.EqualFold(args[2], "to") {
		printError(fmt.Errorf("usage: tradedesk swap <amount> <from-token> to <to-token>"))
		os.Exit(1)
	}
	amount, fromSymbol, toSymbol := args[0], args[1], args[3]

	_, registry, err := registryFor()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	from, ok := findToken(registry, fromSymbol)
	if !ok {
		printError(fmt.Errorf("unknown token %q", fromSymbol))
		os.Exit(1)
	}
	to, ok := findToken(registry, toSymbol)
	if !ok {
		printError(fmt.Errorf("unknown token %q", toSymbol))
		os.Exit(1)
	}

	settled := make(chan flow.ActivityEvent, 1)
	surface := island.NewSurface(scheduler.New(), nil)
	sink := func(event flow.ActivityEvent) {
		surface.Show(island.FromActivity(event))
		if event.Status != flow.StatusPending {
			settled <- event
		}
	}

	swapper := flow.NewSwapper(from, to, decimal.NewFromFloat(128.45), terminalNotifier{}, sink, nil, nil, log)
	swapper.SetAmount(amount)

	summary := swapper.Summary()
	fmt.Println()
	fmt.Printf("  Quote:      %s %s → %s %s\n", amount, from.Symbol, swapper.Quote(), to.Symbol)
	fmt.Printf("  Price:      %s %s/%s\n", summary.ExecutionPrice, from.Symbol, to.Symbol)
	fmt.Printf("  Fee:        %s\n", summary.NetworkFee)
	fmt.Printf("  Route:      %s\n", summary.Route)

	if quoteOnly {
		fmt.Println()
		return
	}

	if err := swapper.Start(); err != nil {
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Executing swap..."
	s.Start()
	event := <-settled
	s.Stop()

	if event.Status == flow.StatusError {
		os.Exit(1)
	}

	if verbose {
		content := island.FromActivity(event).Content()
		fmt.Printf("  %s: %s\n", content.Title, content.Subtitle)
	}
	fmt.Printf("  Wallet balance: %s\n", color.CyanString(swapper.FormattedBalance()))
	fmt.Println()
}
