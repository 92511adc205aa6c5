package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradedesk/config"
	"tradedesk/pkg/chains"
)

var chainsCmd = &cobra.Command{
	Use:     "list-chains",
	Aliases: []string{"chains"},
	Short:   "List supported chains",
	Run:     runListChains,
}

var switchChainCmd = &cobra.Command{
	Use:   "switch-chain <chain>",
	Short: "Select the active chain",
	Long: `Select the chain the desk operates on. EVM chains are verified against
their configured RPC endpoint before becoming active; selecting solana takes
effect immediately since solana deposits settle through an EVM contract.

Examples:
  tradedesk switch-chain base
  tradedesk switch-chain solana`,
	Args: cobra.ExactArgs(1),
	Run:  runSwitchChain,
}

func init() {
	rootCmd.AddCommand(chainsCmd)
	rootCmd.AddCommand(switchChainCmd)
}

func runListChains(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(chains.BaseOptions, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println()
	for _, opt := range chains.BaseOptions {
		color.Cyan("%s (%s)", opt.Name, opt.Key)
		fmt.Printf("  %s\n", opt.Detail)
		if opt.IsEVM() {
			fmt.Printf("  Network ID: %d\n", opt.NetworkID)
		}
		fmt.Println()
	}
}

// configSwitcher verifies an EVM chain is configured before activating it,
// standing in for the wallet's network-switch prompt.
type configSwitcher struct {
	cfg *config.Config
}

func (s configSwitcher) SwitchNetwork(ctx context.Context, networkID uint64) (chains.NetworkInfo, error) {
	key := chains.KeyForNetworkID(networkID)
	chainCfg, ok := s.cfg.Chain(string(key))
	if !ok || chainCfg.RPCUrl == "" {
		return chains.NetworkInfo{}, fmt.Errorf("no RPC endpoint configured for %s", key)
	}

	opt, _ := chains.OptionFor(key)
	return chains.NetworkInfo{
		ID:             networkID,
		Name:           opt.Name,
		CurrencySymbol: chains.PrimarySymbol(key),
	}, nil
}

func runSwitchChain(cmd *cobra.Command, args []string) {
	key := chains.Key(args[0])
	option, ok := chains.OptionFor(key)
	if !ok {
		printError(fmt.Errorf("unknown chain %q", args[0]))
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	switcher := chains.NewSwitcher(configSwitcher{cfg: cfg}, chains.KeyBase, chains.SwitcherHandlers{
		OnSolanaSelected: func() {
			printSuccess("Solana selected. Deposits settle through the configured contract.")
		},
		OnSwitchSuccess: func(opt chains.Option, info chains.NetworkInfo) {
			printSuccess(fmt.Sprintf("Switched to %s (network %d, %s).", opt.Name, info.ID, info.CurrencySymbol))
		},
		OnSwitchError: func(err error) {
			printError(err)
		},
	})

	if err := switcher.Select(context.Background(), option); err != nil {
		os.Exit(1)
	}

	fmt.Println("Chains:")
	for _, opt := range switcher.Options() {
		marker := " "
		if opt.Badge == chains.BadgeActive {
			marker = color.GreenString("●")
		}
		fmt.Printf("  %s %-14s %s\n", marker, opt.Name, opt.Badge)
	}
	fmt.Println()
}
