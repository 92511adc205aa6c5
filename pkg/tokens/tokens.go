package tokens

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"

	"tradedesk/config"
	"tradedesk/pkg/chains"
)

// ChainConfig describes how a token is addressed on one chain. TokenAddress
// is empty for native assets, which have no ERC-20 contract and need no
// allowance.
type ChainConfig struct {
	CAIP10Token  string
	TokenAddress string
	IsNative     bool
}

// Token is a tradable asset. The registry is built once at startup and never
// mutated afterwards.
type Token struct {
	ID       string
	Symbol   string
	Name     string
	Decimals int32
	Price    float64
	Change   float64
	Icon     string
	Chains   map[chains.Key]ChainConfig
}

// ZeroAddress is the zero-value EVM address used as the CAIP-10 reference
// for native assets and as the depositor placeholder on native deposits.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// CAIP-2 prefixes per chain.
var caipPrefixes = map[chains.Key]string{
	chains.KeyEthereum: fmt.Sprintf("eip155:%d", chains.SepoliaNetworkID),
	chains.KeyArbitrum: fmt.Sprintf("eip155:%d", chains.ArbitrumSepoliaNetworkID),
	chains.KeyBase:     fmt.Sprintf("eip155:%d", chains.BaseSepoliaNetworkID),
	chains.KeyAnvil:    fmt.Sprintf("eip155:%d", chains.AnvilNetworkID),
	chains.KeySolana:   "solana:mainnet",
}

// CAIPPrefix returns the CAIP-2 prefix ("namespace:reference") for a chain.
func CAIPPrefix(key chains.Key) (string, bool) {
	prefix, ok := caipPrefixes[key]
	return prefix, ok
}

// BuildCAIP10 joins a CAIP-2 prefix and an account address into a CAIP-10
// identifier. EVM addresses are lowercased so identifiers compare stably.
func BuildCAIP10(prefix, address string) string {
	if strings.HasPrefix(address, "0x") {
		address = strings.ToLower(address)
	}
	return prefix + ":" + address
}

// WalletCAIP10 builds the CAIP-10 identifier for a wallet address on a chain.
func WalletCAIP10(key chains.Key, address string) (string, error) {
	prefix, ok := CAIPPrefix(key)
	if !ok {
		return "", fmt.Errorf("no CAIP prefix for chain %q", key)
	}
	if err := validateAccountRef(key, address); err != nil {
		return "", err
	}
	return BuildCAIP10(prefix, address), nil
}

// SplitCAIP10 splits an identifier into its CAIP-2 prefix and account
// reference, validating the reference for the address format its namespace
// implies.
func SplitCAIP10(id string) (prefix, account string, err error) {
	idx := strings.LastIndex(id, ":")
	if idx <= 0 || idx == len(id)-1 {
		return "", "", fmt.Errorf("malformed CAIP-10 identifier %q", id)
	}
	prefix, account = id[:idx], id[idx+1:]

	namespace, _, found := strings.Cut(prefix, ":")
	if !found {
		return "", "", fmt.Errorf("malformed CAIP-10 identifier %q", id)
	}

	switch namespace {
	case "eip155":
		if !common.IsHexAddress(account) {
			return "", "", fmt.Errorf("invalid EVM account %q", account)
		}
	case "solana":
		if _, err := solana.PublicKeyFromBase58(account); err != nil {
			return "", "", fmt.Errorf("invalid Solana account %q: %w", account, err)
		}
	}
	return prefix, account, nil
}

func validateAccountRef(key chains.Key, address string) error {
	if key == chains.KeySolana {
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			return fmt.Errorf("invalid Solana address %q: %w", address, err)
		}
		return nil
	}
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid EVM address %q", address)
	}
	return nil
}

// Registry provides token lookups by chain and by id.
type Registry struct {
	tokens  []Token
	byChain map[chains.Key][]Token
	byID    map[string]Token
}

// NewRegistry builds a registry from a static token list.
func NewRegistry(list []Token) *Registry {
	r := &Registry{
		tokens:  list,
		byChain: make(map[chains.Key][]Token),
		byID:    make(map[string]Token, len(list)),
	}
	for _, token := range list {
		r.byID[token.ID] = token
		for key := range token.Chains {
			r.byChain[key] = append(r.byChain[key], token)
		}
	}
	return r
}

// DefaultRegistry builds the static asset list, filling in the
// environment-driven token addresses from config.
func DefaultRegistry(cfg *config.Config) *Registry {
	evmCaip := func(key chains.Key, tokenAddress string) string {
		prefix := caipPrefixes[key]
		if tokenAddress == "" {
			tokenAddress = ZeroAddress
		}
		return BuildCAIP10(prefix, tokenAddress)
	}

	baseCfg, _ := cfg.Chain(string(chains.KeyBase))
	anvilCfg, _ := cfg.Chain(string(chains.KeyAnvil))

	weth := Token{
		ID:       "weth",
		Symbol:   "WETH",
		Name:     "Wrapped Ether",
		Decimals: 18,
		Price:    3120,
		Change:   2.5,
		Icon:     "eth",
		Chains: map[chains.Key]ChainConfig{
			chains.KeyEthereum: {
				CAIP10Token: evmCaip(chains.KeyEthereum, ""),
				IsNative:    true,
			},
			chains.KeyArbitrum: {
				CAIP10Token: evmCaip(chains.KeyArbitrum, ""),
				IsNative:    true,
			},
			chains.KeyBase: {
				CAIP10Token:  evmCaip(chains.KeyBase, baseCfg.TokenAddress),
				TokenAddress: baseCfg.TokenAddress,
				IsNative:     baseCfg.TokenAddress == "",
			},
		},
	}
	if anvilCfg.TokenAddress != "" {
		weth.Chains[chains.KeyAnvil] = ChainConfig{
			CAIP10Token:  evmCaip(chains.KeyAnvil, anvilCfg.TokenAddress),
			TokenAddress: anvilCfg.TokenAddress,
		}
	}

	ape := Token{
		ID:       "ape",
		Symbol:   "Ape",
		Name:     "Ape",
		Decimals: 6,
		Price:    1,
		Change:   0.01,
		Icon:     "ape",
		Chains: map[chains.Key]ChainConfig{
			chains.KeySolana: {
				CAIP10Token: cfg.SolanaSOLCAIP10,
			},
		},
	}

	return NewRegistry([]Token{weth, ape})
}

// All returns every registered token.
func (r *Registry) All() []Token {
	out := make([]Token, len(r.tokens))
	copy(out, r.tokens)
	return out
}

// ForChain returns the tokens tradable on a chain.
func (r *Registry) ForChain(key chains.Key) []Token {
	list := r.byChain[key]
	out := make([]Token, len(list))
	copy(out, list)
	return out
}

// ByID looks a token up by id.
func (r *Registry) ByID(id string) (Token, bool) {
	token, ok := r.byID[id]
	return token, ok
}
