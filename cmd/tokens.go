package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradedesk/pkg/chains"
	"tradedesk/pkg/tokens"
)

var (
	filterChain  string
	filterSymbol string
)

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List supported tokens and their per-chain identifiers",
	Long: `List the assets the desk can trade, with the CAIP-10 identifier each
asset uses on every chain it is deployed to.

Examples:
  tradedesk list-tokens
  tradedesk list-tokens --chain base
  tradedesk list-tokens --symbol WETH`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by chain key")
	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	_, registry, err := registryFor()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	var list []tokens.Token
	if filterChain != "" {
		list = registry.ForChain(chains.Key(filterChain))
	} else {
		list = registry.All()
	}
	if filterSymbol != "" {
		filtered := list[:0]
		for _, token := range list {
			if strings.EqualFold(token.Symbol, filterSymbol) {
				filtered = append(filtered, token)
			}
		}
		list = filtered
	}

	if jsonOutput {
		type entry struct {
			ID       string            `json:"id"`
			Symbol   string            `json:"symbol"`
			Name     string            `json:"name"`
			Decimals int32             `json:"decimals"`
			Price    float64           `json:"price"`
			Chains   map[string]string `json:"chains"`
		}
		out := make([]entry, 0, len(list))
		for _, token := range list {
			ids := make(map[string]string, len(token.Chains))
			for key, cfg := range token.Chains {
				ids[string(key)] = cfg.CAIP10Token
			}
			out = append(out, entry{
				ID:       token.ID,
				Symbol:   token.Symbol,
				Name:     token.Name,
				Decimals: token.Decimals,
				Price:    token.Price,
				Chains:   ids,
			})
		}
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(list) == 0 {
		fmt.Println("\nNo tokens match the given filters.")
		return
	}

	fmt.Println()
	for _, token := range list {
		color.Cyan("%s (%s)", token.Symbol, token.Name)
		fmt.Printf("  Decimals: %d   Price: $%.2f   24h: %+.2f%%\n", token.Decimals, token.Price, token.Change)
		for key, cfg := range token.Chains {
			fmt.Printf("  %-10s %s\n", key, cfg.CAIP10Token)
		}
		fmt.Println()
	}
}
