package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradedesk/pkg/mockapi"
	"tradedesk/pkg/orders"
	"tradedesk/pkg/scheduler"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"mockapi"},
	Short:   "Run a local desk backend for development",
	Long: `Serve the desk backend protocol locally. Orders placed against it move
from active to filled after 20 seconds, so pollers and the orders commands
can be exercised end to end without a deployed backend.

Examples:
  tradedesk serve
  tradedesk serve --addr :9090`,
	Run: runServe,
}

var bookCmd = &cobra.Command{
	Use:   "order-book",
	Short: "Stream the simulated order book",
	Run:   runOrderBook,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(bookCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
}

func runServe(cmd *cobra.Command, args []string) {
	log := newLogger(cmd)

	store := orders.NewStore(scheduler.New())
	defer store.Close()

	server := mockapi.NewServer(store, log)

	color.Cyan("\nDesk backend listening on %s\n", serveAddr)
	fmt.Println("  GET/POST /api/orders/   DELETE /api/orders/{id}")
	fmt.Println("  GET      /api/trades/   POST   /api/balance/withdraw")
	fmt.Println()

	if err := http.ListenAndServe(serveAddr, server.Handler()); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func runOrderBook(cmd *cobra.Command, args []string) {
	log := newLogger(cmd)

	book := orders.NewBook(29481.3, nil, log)
	book.Start()
	defer book.Stop()

	render := func() {
		snap := book.Snapshot()
		fmt.Print("\033[H\033[2J")
		fmt.Println("  Price (USD)        Amount")
		for _, level := range snap.Asks {
			color.Red("  %-12.1f %12.8f", level.Price, level.Amount)
		}
		changeColor := color.GreenString
		if snap.ChangePct < 0 {
			changeColor = color.RedString
		}
		fmt.Printf("\n  %.1f USD  %s\n\n", snap.Price, changeColor("%+.2f%%", snap.ChangePct))
		for _, level := range snap.Bids {
			color.Green("  %-12.1f %12.8f", level.Price, level.Amount)
		}
		fmt.Println("\n  Ctrl-C to stop")
	}

	render()
	ticker := time.NewTicker(orders.BookRefreshRate)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	for {
		select {
		case <-ticker.C:
			render()
		case <-stop:
			fmt.Println("\nStopped.")
			return
		}
	}
}
