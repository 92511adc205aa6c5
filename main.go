package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"tradedesk/cmd"
)

func main() {
	// A .env file is optional; environment variables alone are enough.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
