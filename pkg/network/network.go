package network

import (
	"fmt"
	"math/big"
	"strings"
)

// Network is the classification of a chain identifier.
type Network struct {
	ChainID   string
	Name      string
	Supported bool
	// Explorer is the block explorer base URL, empty when none exists.
	Explorer string
}

const unknownName = "Unknown"

var known = map[string]Network{
	"0x1":      {ChainID: "0x1", Name: "Mainnet", Supported: false, Explorer: "https://etherscan.io"},
	"0xaa36a7": {ChainID: "0xaa36a7", Name: "Sepolia", Supported: true, Explorer: "https://sepolia.etherscan.io"},
	"0x4268":   {ChainID: "0x4268", Name: "Holesky", Supported: true, Explorer: "https://holesky.etherscan.io"},
	"0x539":    {ChainID: "0x539", Name: "Localhost", Supported: true},
}

// Classify maps a hex chain identifier to a network name and whether the
// application operates on it. Unknown identifiers are never supported.
func Classify(chainID string) Network {
	id := Normalize(chainID)
	if n, ok := known[id]; ok {
		return n
	}
	return Network{ChainID: id, Name: unknownName, Supported: false}
}

// Normalize lowercases a hex chain id and strips leading zeros so that
// "0x00AA36A7" and "0xaa36a7" compare equal.
func Normalize(chainID string) string {
	s := strings.ToLower(strings.TrimSpace(chainID))
	if !strings.HasPrefix(s, "0x") {
		return s
	}
	digits := strings.TrimLeft(s[2:], "0")
	if digits == "" {
		digits = "0"
	}
	return "0x" + digits
}

// FromBig renders a numeric chain id the way providers report it.
func FromBig(id *big.Int) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf("0x%x", id)
}

// SupportedNames lists the networks the application accepts, for user-facing hints.
func SupportedNames() []string {
	return []string{"Sepolia", "Holesky", "Localhost"}
}
