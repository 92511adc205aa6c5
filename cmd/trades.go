package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"tradedesk/pkg/api"
)

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List executions on the desk backend",
	Run:   runListTrades,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow orders and trades as they change",
	Long: `Poll the desk backend for orders and trades and print each snapshot.
Orders refresh every 10 seconds, trades every 15. Stop with Ctrl-C.`,
	Run: runWatch,
}

func init() {
	rootCmd.AddCommand(tradesCmd)
	rootCmd.AddCommand(watchCmd)
}

func runListTrades(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	client, err := backendClient()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching trades..."
		s.Start()
	}
	trades, err := client.GetTrades(context.Background())
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(trades, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(trades) == 0 {
		fmt.Println("\nNo trades.")
		return
	}

	fmt.Println()
	for _, trade := range trades {
		fmt.Printf("  %s  %10.4f @ %.2f  order %s  %s\n",
			trade.ID, trade.Amount, trade.Price, trade.OrderID, trade.ExecutedAt)
	}
	fmt.Println()
}

func runWatch(cmd *cobra.Command, args []string) {
	log := newLogger(cmd)

	client, err := backendClient()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	poller := api.NewPoller(client, log)
	poller.Start(
		func(orders []api.Order) {
			fmt.Printf("[%s] %d orders\n", time.Now().Format("15:04:05"), len(orders))
			for _, order := range orders {
				fmt.Printf("  %s  %-4s %10.4f @ %.2f  %s\n",
					order.ID, order.Side, order.Amount, order.Price, order.Status)
			}
		},
		func(trades []api.Trade) {
			fmt.Printf("[%s] %d trades\n", time.Now().Format("15:04:05"), len(trades))
		},
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	poller.Stop()
	fmt.Println("\nStopped.")
}
