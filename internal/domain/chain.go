package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidAddress is returned for anything but a 0x-prefixed 20-byte hex address.
var ErrInvalidAddress = errors.New("invalid address")

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// NormalizeAddress validates an EVM address and returns it lower-cased.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !addressPattern.MatchString(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return strings.ToLower(address), nil
}

// ChainID identifies an EVM chain by its numeric chain id.
type ChainID uint64

// Chains the collector knows explorer endpoints for.
const (
	ChainEthereum ChainID = 1
	ChainOptimism ChainID = 10
	ChainBNB      ChainID = 56
	ChainPolygon  ChainID = 137
	ChainZkSync   ChainID = 324
	ChainBase     ChainID = 8453
	ChainArbitrum ChainID = 42161
	ChainLinea    ChainID = 59144
	ChainScroll   ChainID = 534352
)

var chainNames = map[ChainID]string{
	ChainEthereum: "ethereum",
	ChainOptimism: "optimism",
	ChainBNB:      "bnb",
	ChainPolygon:  "polygon",
	ChainZkSync:   "zksync",
	ChainBase:     "base",
	ChainArbitrum: "arbitrum",
	ChainLinea:    "linea",
	ChainScroll:   "scroll",
}

// String returns the chain's short name, or its numeric id if unknown.
func (c ChainID) String() string {
	if name, ok := chainNames[c]; ok {
		return name
	}
	return strconv.FormatUint(uint64(c), 10)
}

// ChainTransaction is a single on-chain transfer or call as returned by the collector.
// Immutable once produced.
type ChainTransaction struct {
	ChainID             ChainID
	Hash                string
	From                string
	To                  string
	ValueUSD            float64
	GasUSD              float64
	TimestampUnix       int64
	ContractAddress     *string // called contract (nullable for plain transfers)
	DecodedFunctionName *string // e.g. "swapExactTokensForTokens" (nullable)
	ContractName        *string // explorer label of the contract (nullable)
	TokenSymbol         *string // token symbol for token transfers (nullable)
}

// ChainNFT is an NFT currently held by the address.
type ChainNFT struct {
	ChainID         ChainID
	ContractAddress string
	TokenID         string
	AcquiredAtUnix  int64
}
