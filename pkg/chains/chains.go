package chains

// Key identifies a supported network.
type Key string

const (
	KeyEthereum Key = "ethereum"
	KeyArbitrum Key = "arbitrum"
	KeyBase     Key = "base"
	KeyAnvil    Key = "anvil"
	KeySolana   Key = "solana"
)

// Network ids of the EVM chains the desk knows about.
const (
	SepoliaNetworkID         uint64 = 11155111
	ArbitrumSepoliaNetworkID uint64 = 421614
	BaseSepoliaNetworkID     uint64 = 84532
	AnvilNetworkID           uint64 = 31337
)

// BadgeActive marks the currently selected chain in option listings.
const BadgeActive = "Active"

// Option describes a selectable chain. NetworkID is zero for non-EVM chains
// (Solana), which never go through a network switch.
type Option struct {
	Key         Key
	Name        string
	Detail      string
	Description string
	NetworkID   uint64
	Icon        string
	Badge       string
}

// IsEVM reports whether selecting the option requires a wallet network
// switch.
func (o Option) IsEVM() bool {
	return o.NetworkID != 0
}

// BaseOptions is the static list of selectable chains.
var BaseOptions = []Option{
	{
		Key:       KeyBase,
		Name:      "Base Sepolia",
		Detail:    "Base Sepolia testnet",
		NetworkID: BaseSepoliaNetworkID,
		Icon:      "base",
	},
	{
		Key:       KeyAnvil,
		Name:      "Anvil",
		Detail:    "Local devnet",
		NetworkID: AnvilNetworkID,
	},
	{
		Key:    KeySolana,
		Name:   "Solana",
		Detail: "Mainnet beta",
		Icon:   "solana",
	},
}

// OptionFor returns the base option for a chain key.
func OptionFor(key Key) (Option, bool) {
	for _, opt := range BaseOptions {
		if opt.Key == key {
			return opt, true
		}
	}
	return Option{}, false
}

// Label returns the display name for a chain key, falling back to the key
// itself for chains outside the static list.
func Label(key Key) string {
	if opt, ok := OptionFor(key); ok {
		return opt.Name
	}
	return string(key)
}

// KeyForNetworkID maps a wallet's active network id to a chain key. Unknown
// ids fall back to base, matching the desk's default chain.
func KeyForNetworkID(id uint64) Key {
	switch id {
	case ArbitrumSepoliaNetworkID:
		return KeyArbitrum
	case SepoliaNetworkID:
		return KeyEthereum
	case BaseSepoliaNetworkID:
		return KeyBase
	case AnvilNetworkID:
		return KeyAnvil
	default:
		return KeyBase
	}
}

// PrimarySymbol returns the native currency symbol shown for a chain.
func PrimarySymbol(key Key) string {
	switch key {
	case KeySolana:
		return "SOL"
	default:
		return "ETH"
	}
}
