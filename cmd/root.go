package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tradedesk/config"
	"tradedesk/pkg/chains"
	"tradedesk/pkg/flow"
	"tradedesk/pkg/tokens"
	"tradedesk/pkg/trading"
)

var rootCmd = &cobra.Command{
	Use:   "tradedesk",
	Short: "A CLI trading desk for the cross-chain trading contract",
	Long: `tradedesk is a command-line trading desk: deposit and withdraw against
the on-chain trading contract, place and track orders on the desk backend,
and quote swaps between supported assets.

Examples:
  tradedesk deposit 0.25 --chain base
  tradedesk withdraw 0.1 --chain base
  tradedesk swap 0.5 WETH to Ape
  tradedesk orders
  tradedesk list-tokens --chain base`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

// newLogger builds the CLI logger: quiet by default, debug with --verbose.
func newLogger(cmd *cobra.Command) zerolog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// terminalNotifier renders flow toasts on the terminal.
type terminalNotifier struct{}

func (terminalNotifier) Toast(variant flow.ToastVariant, title, description string) {
	switch variant {
	case flow.ToastSuccess:
		color.Green("\n✓ %s", title)
	case flow.ToastError:
		color.Red("\n✗ %s", title)
	default:
		color.Cyan("\n• %s", title)
	}
	if description != "" {
		fmt.Printf("  %s\n", description)
	}
}

// gatewayFor builds a trading gateway for a chain key. Solana deposits run
// against the solana-keyed contract over the base chain's RPC and signer.
func gatewayFor(cfg *config.Config, key chains.Key) (trading.Gateway, error) {
	chainCfg, ok := cfg.Chain(string(key))
	if !ok {
		return nil, fmt.Errorf("chain %q is not configured", key)
	}

	if key == chains.KeySolana {
		baseCfg, _ := cfg.Chain(string(chains.KeyBase))
		chainCfg.RPCUrl = baseCfg.RPCUrl
		chainCfg.PrivateKey = baseCfg.PrivateKey
	}

	client, err := trading.NewClient(chainCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", key, err)
	}
	return client, nil
}

// registryFor loads config and builds the token registry once per command.
func registryFor() (*config.Config, *tokens.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, tokens.DefaultRegistry(cfg), nil
}
