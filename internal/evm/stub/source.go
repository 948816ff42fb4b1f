// Package stub provides an in-memory chain data source.
package stub

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"airdrop-scout/internal/domain"
)

// Source implements collector.Source for testing and offline runs.
// Data is keyed by lower-cased address.
type Source struct {
	mu           sync.RWMutex
	transactions map[string]map[domain.ChainID][]domain.ChainTransaction
	nfts         map[string]map[domain.ChainID][]domain.ChainNFT
	failures     map[domain.ChainID]error
	calls        map[domain.ChainID]int

	// generate fixture data for addresses seen for the first time
	fixtures bool
	seeded   map[string]bool
}

// NewSource creates an empty stub source.
func NewSource() *Source {
	return &Source{
		transactions: make(map[string]map[domain.ChainID][]domain.ChainTransaction),
		nfts:         make(map[string]map[domain.ChainID][]domain.ChainNFT),
		failures:     make(map[domain.ChainID]error),
		calls:        make(map[domain.ChainID]int),
		seeded:       make(map[string]bool),
	}
}

// NewFixtureSource returns a source that serves NewFixture data for any
// address it is asked about.
func NewFixtureSource() *Source {
	s := NewSource()
	s.fixtures = true
	return s
}

// AddTransactions adds transactions for an address to the stub store.
func (s *Source) AddTransactions(address string, txs ...domain.ChainTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addTransactions(strings.ToLower(address), txs)
}

func (s *Source) addTransactions(addr string, txs []domain.ChainTransaction) {
	if s.transactions[addr] == nil {
		s.transactions[addr] = make(map[domain.ChainID][]domain.ChainTransaction)
	}
	for _, tx := range txs {
		s.transactions[addr][tx.ChainID] = append(s.transactions[addr][tx.ChainID], tx)
	}
}

// AddNFTs adds held NFTs for an address to the stub store.
func (s *Source) AddNFTs(address string, nfts ...domain.ChainNFT) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addNFTs(strings.ToLower(address), nfts)
}

func (s *Source) addNFTs(addr string, nfts []domain.ChainNFT) {
	if s.nfts[addr] == nil {
		s.nfts[addr] = make(map[domain.ChainID][]domain.ChainNFT)
	}
	for _, n := range nfts {
		s.nfts[addr][n.ChainID] = append(s.nfts[addr][n.ChainID], n)
	}
}

// FailChain makes every call for chain return err. A nil err clears it.
func (s *Source) FailChain(chain domain.ChainID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.failures, chain)
		return
	}
	s.failures[chain] = err
}

// Calls returns how many calls reached chain.
func (s *Source) Calls(chain domain.ChainID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[chain]
}

// Transactions retrieves transactions from the stub store.
func (s *Source) Transactions(ctx context.Context, chain domain.ChainID, address string) ([]domain.ChainTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[chain]++
	if err := s.failures[chain]; err != nil {
		return nil, err
	}
	addr := strings.ToLower(address)
	s.seedLocked(addr)
	src := s.transactions[addr][chain]
	return append([]domain.ChainTransaction(nil), src...), nil
}

// NFTs retrieves held NFTs from the stub store.
func (s *Source) NFTs(ctx context.Context, chain domain.ChainID, address string) ([]domain.ChainNFT, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[chain]++
	if err := s.failures[chain]; err != nil {
		return nil, err
	}
	addr := strings.ToLower(address)
	s.seedLocked(addr)
	src := s.nfts[addr][chain]
	return append([]domain.ChainNFT(nil), src...), nil
}

type fixtureCall struct {
	chain    domain.ChainID
	contract string
	name     string
	function string
}

var fixtureCalls = []fixtureCall{
	{domain.ChainEthereum, "0x7a250d5630b4cf539739df2c5dacb4c659f2488d", "Uniswap V2: Router 2", "swapExactETHForTokens"},
	{domain.ChainEthereum, "0x87870bca3f3fd6335c3f4ce8392d69350b4fa4e2", "Aave: Pool V3", "supply"},
	{domain.ChainArbitrum, "0x489ee077994b6658eafa855c308275ead8097c4a", "GMX: Vault", "swap"},
	{domain.ChainBase, "0x3fc91a3afd70395cd496c647d5a6cc9d4b2b7fad", "Uniswap: Universal Router", "execute"},
	{domain.ChainOptimism, "0xb0d502e938ed5f4df2e681fe6e419ff29631d62b", "Stargate: Router", "swap"},
	{domain.ChainZkSync, "0x2da10a1e27bf85cedd8ffb1abbe97e53391c0295", "SyncSwap: Router", "swap"},
	{domain.ChainScroll, "0x80e38291e06339d10aab483c65695d004dbd5c69", "Scroll: Gateway Router", "depositETH"},
	{domain.ChainLinea, "0xd19d4b5d358258f05d7b411e21a1460d11b0876f", "Linea: Bridge", "sendMessage"},
}

// NewFixture returns a source with deterministic activity for address.
// The same address always yields the same data; different addresses get
// different subsets of chains and call counts.
func NewFixture(address string) *Source {
	s := NewSource()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addFixture(strings.ToLower(address))
	return s
}

func (s *Source) seedLocked(addr string) {
	if !s.fixtures || s.seeded[addr] {
		return
	}
	s.seeded[addr] = true
	s.addFixture(addr)
}

func (s *Source) addFixture(addr string) {
	seed := sha256.Sum256([]byte(addr))

	const base int64 = 1_672_531_200 // 2023-01-01
	for i, call := range fixtureCalls {
		b := seed[i]
		if b%4 == 0 {
			continue
		}
		n := int(b%5) + 1
		for j := 0; j < n; j++ {
			ts := base + int64(binary.BigEndian.Uint16(seed[i*2:i*2+2]))*3600 + int64(j)*86400
			contract := call.contract
			name := call.name
			fn := call.function
			s.addTransactions(addr, []domain.ChainTransaction{{
				ChainID:             call.chain,
				Hash:                fmt.Sprintf("0x%x%02x%02x", seed[:8], i, j),
				From:                addr,
				To:                  contract,
				ValueUSD:            float64(int(b)*10+j) / 4,
				GasUSD:              float64(int(seed[31-i])%40+1) / 10,
				TimestampUnix:       ts,
				ContractAddress:     &contract,
				DecodedFunctionName: &fn,
				ContractName:        &name,
			}})
		}
	}

	if seed[30]%2 == 0 {
		s.addNFTs(addr, []domain.ChainNFT{{
			ChainID:         domain.ChainEthereum,
			ContractAddress: "0xbd3531da5cf5857e7cfaa92426877b022e612cf8",
			TokenID:         fmt.Sprintf("%d", binary.BigEndian.Uint16(seed[28:30])),
			AcquiredAtUnix:  base + int64(seed[29])*86400,
		}})
	}
	if seed[31]%3 == 0 {
		s.addNFTs(addr, []domain.ChainNFT{{
			ChainID:         domain.ChainBase,
			ContractAddress: "0xd4307e0acd12cf46fd6cf93bc264f5d5d1598792",
			TokenID:         fmt.Sprintf("%d", seed[27]),
			AcquiredAtUnix:  base + int64(seed[26])*86400,
		}})
	}
}
