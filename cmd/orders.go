package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradedesk/config"
	"tradedesk/pkg/api"
)

var (
	orderSide   string
	orderToken  string
	orderWallet string
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List orders on the desk backend",
	Run:   runListOrders,
}

var placeOrderCmd = &cobra.Command{
	Use:   "place-order <amount> <price>",
	Short: "Place an order on the desk backend",
	Long: `Place an order on the desk backend.

Examples:
  tradedesk place-order 0.5 3120 --side BUY --caip-token eip155:84532:0x... --caip-wallet eip155:84532:0x...
  tradedesk place-order 100 1.02 --side SELL --caip-token solana:mainnet:... --caip-wallet solana:mainnet:...`,
	Args: cobra.ExactArgs(2),
	Run:  runPlaceOrder,
}

var cancelOrderCmd = &cobra.Command{
	Use:   "cancel-order <order-id>",
	Short: "Cancel an open order",
	Args:  cobra.ExactArgs(1),
	Run:   runCancelOrder,
}

func init() {
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(placeOrderCmd)
	rootCmd.AddCommand(cancelOrderCmd)

	placeOrderCmd.Flags().StringVar(&orderSide, "side", "BUY", "Order side: BUY or SELL")
	placeOrderCmd.Flags().StringVar(&orderToken, "caip-token", "", "CAIP-10 token identifier (required)")
	placeOrderCmd.Flags().StringVar(&orderWallet, "caip-wallet", "", "CAIP-10 wallet identifier (required)")
	placeOrderCmd.MarkFlagRequired("caip-token")
	placeOrderCmd.MarkFlagRequired("caip-wallet")
}

func backendClient() (*api.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.APIBaseURL), nil
}

func runListOrders(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	client, err := backendClient()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching orders..."
		s.Start()
	}
	orders, err := client.GetOrders(context.Background())
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(orders, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(orders) == 0 {
		fmt.Println("\nNo orders.")
		return
	}

	fmt.Println()
	for _, order := range orders {
		statusColor := color.YellowString
		switch order.Status {
		case api.OrderFilled:
			statusColor = color.GreenString
		case api.OrderCancelled:
			statusColor = color.RedString
		}
		fmt.Printf("  %s  %-4s %10.4f @ %.2f  %s\n",
			order.ID, order.Side, order.Amount, order.Price, statusColor(string(order.Status)))
	}
	fmt.Println()
}

func runPlaceOrder(cmd *cobra.Command, args []string) {
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		printError(fmt.Errorf("invalid amount %q", args[0]))
		os.Exit(1)
	}
	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		printError(fmt.Errorf("invalid price %q", args[1]))
		os.Exit(1)
	}

	client, err := backendClient()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Placing order..."
	s.Start()
	order, err := client.SendOrder(context.Background(), amount, api.OrderSide(orderSide), price, orderToken, orderWallet)
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Order placed: %s", color.CyanString(order.ID)))
}

func runCancelOrder(cmd *cobra.Command, args []string) {
	client, err := backendClient()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if err := client.DeleteOrder(context.Background(), args[0]); err != nil {
		printError(err)
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Order %s cancelled.", args[0]))
}
