package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// ChainConfig holds the environment-driven settings for one supported chain.
type ChainConfig struct {
	RPCUrl          string
	ContractAddress string
	PrivateKey      string
	TokenAddress    string
}

// Config holds the application configuration. It is read once at startup and
// not revalidated at runtime.
type Config struct {
	// APIBaseURL is the backend REST API serving orders, trades and balance
	// withdrawals.
	APIBaseURL string

	// AuthAppID identifies the wallet/auth provider application.
	AuthAppID string

	// Chains maps a chain key ("base", "anvil", "solana", ...) to its
	// contract address, RPC endpoint and signing key.
	Chains map[string]ChainConfig

	// SolanaSOLCAIP10 is the CAIP-10 identifier used for the SOL asset.
	SolanaSOLCAIP10 string
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".tradedesk")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("api_base_url", "http://localhost:8080")
	viper.SetDefault("solana_sol_caip10", "solana:mainnet:So11111111111111111111111111111111111111112")

	// Read from environment variables
	viper.SetEnvPrefix("TRADEDESK")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		APIBaseURL:      viper.GetString("api_base_url"),
		AuthAppID:       viper.GetString("auth_app_id"),
		SolanaSOLCAIP10: viper.GetString("solana_sol_caip10"),
		Chains: map[string]ChainConfig{
			"ethereum": {
				RPCUrl:          viper.GetString("sepolia_rpc_url"),
				ContractAddress: viper.GetString("sepolia_contract_address"),
				PrivateKey:      viper.GetString("sepolia_private_key"),
			},
			"arbitrum": {
				RPCUrl:          viper.GetString("arbitrum_rpc_url"),
				ContractAddress: viper.GetString("arbitrum_contract_address"),
				PrivateKey:      viper.GetString("arbitrum_private_key"),
			},
			"base": {
				RPCUrl:          viper.GetString("base_sepolia_rpc_url"),
				ContractAddress: viper.GetString("base_sepolia_contract_address"),
				PrivateKey:      viper.GetString("base_sepolia_private_key"),
				TokenAddress:    viper.GetString("base_sepolia_token_address"),
			},
			"anvil": {
				RPCUrl:          viper.GetString("anvil_rpc_url"),
				ContractAddress: viper.GetString("anvil_contract_address"),
				PrivateKey:      viper.GetString("anvil_private_key"),
				TokenAddress:    viper.GetString("anvil_token_address"),
			},
			"solana": {
				ContractAddress: viper.GetString("solana_contract_address"),
			},
		},
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}

// Chain returns the configuration for a chain key, along with whether the
// chain is configured at all.
func (c *Config) Chain(key string) (ChainConfig, bool) {
	cc, ok := c.Chains[key]
	return cc, ok
}
