// Package collector fetches per-chain activity for an address from a chain
// data source, degrading failed chains to partial data.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/observability"
)

// Default configuration values.
const (
	DefaultMaxConcurrency = 4
	DefaultChainTimeout   = 20 * time.Second
	DefaultRPS            = 5
)

// ErrNoChains is returned when neither the call nor the collector names a chain.
var ErrNoChains = errors.New("no chains to collect")

// Source is a per-chain history provider.
type Source interface {
	Transactions(ctx context.Context, chain domain.ChainID, address string) ([]domain.ChainTransaction, error)
	NFTs(ctx context.Context, chain domain.ChainID, address string) ([]domain.ChainNFT, error)
}

// Prober reports whether a chain's node is reachable.
type Prober interface {
	Ping(ctx context.Context) error
}

// ChainData is everything collected for one address.
type ChainData struct {
	Transactions map[domain.ChainID][]domain.ChainTransaction
	NFTs         map[domain.ChainID][]domain.ChainNFT
	Warnings     []domain.PartialDataWarning
}

// Config holds collector settings.
type Config struct {
	Chains         []domain.ChainID
	MaxConcurrency int
	ChainTimeout   time.Duration
	RPS            float64
}

// Collector fans out one fetch per chain. Every source call is rate limited
// and runs through that chain's circuit breaker.
type Collector struct {
	source  Source
	config  Config
	limiter *rate.Limiter
	logger  zerolog.Logger

	probes map[domain.ChainID]Prober

	breakersMu sync.Mutex
	breakers   map[domain.ChainID]*gobreaker.CircuitBreaker
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Collector) {
		c.logger = l
	}
}

// WithProbe registers a liveness probe for chain. A failing probe skips the
// chain's source calls.
func WithProbe(chain domain.ChainID, p Prober) Option {
	return func(c *Collector) {
		c.probes[chain] = p
	}
}

// New creates a collector over source.
func New(source Source, cfg Config, opts ...Option) *Collector {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.ChainTimeout <= 0 {
		cfg.ChainTimeout = DefaultChainTimeout
	}
	if cfg.RPS <= 0 {
		cfg.RPS = DefaultRPS
	}

	c := &Collector{
		source:   source,
		config:   cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RPS), int(cfg.RPS)+1),
		logger:   zerolog.Nop(),
		probes:   make(map[domain.ChainID]Prober),
		breakers: make(map[domain.ChainID]*gobreaker.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chains returns the default chain set.
func (c *Collector) Chains() []domain.ChainID {
	return append([]domain.ChainID(nil), c.config.Chains...)
}

// Collect fetches transactions and NFTs on every chain. An empty chains
// argument uses the configured set. Failed chains contribute empty lists and
// a warning; only cancellation of ctx returns an error.
func (c *Collector) Collect(ctx context.Context, address string, chains []domain.ChainID) (*ChainData, error) {
	if len(chains) == 0 {
		chains = c.config.Chains
	}
	if len(chains) == 0 {
		return nil, ErrNoChains
	}
	chains = dedupeChains(chains)
	address = strings.ToLower(address)

	data := &ChainData{
		Transactions: make(map[domain.ChainID][]domain.ChainTransaction, len(chains)),
		NFTs:         make(map[domain.ChainID][]domain.ChainNFT, len(chains)),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.MaxConcurrency)

	for _, chain := range chains {
		g.Go(func() error {
			txs, nfts, warnings := c.collectChain(gctx, chain, address)
			if err := ctx.Err(); err != nil {
				return err
			}

			mu.Lock()
			data.Transactions[chain] = txs
			data.NFTs[chain] = nfts
			data.Warnings = append(data.Warnings, warnings...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect %s: %w", address, err)
	}

	sort.Slice(data.Warnings, func(i, j int) bool {
		if data.Warnings[i].Chain != data.Warnings[j].Chain {
			return data.Warnings[i].Chain < data.Warnings[j].Chain
		}
		return data.Warnings[i].Kind < data.Warnings[j].Kind
	})
	return data, nil
}

func (c *Collector) collectChain(ctx context.Context, chain domain.ChainID, address string) ([]domain.ChainTransaction, []domain.ChainNFT, []domain.PartialDataWarning) {
	start := time.Now()
	defer func() {
		observability.RecordChainLatency(uint64(chain), time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.config.ChainTimeout)
	defer cancel()

	log := c.logger.With().Str("address", address).Uint64("chain_id", uint64(chain)).Logger()

	if p, ok := c.probes[chain]; ok {
		if err := p.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("chain probe failed, skipping chain")
			return []domain.ChainTransaction{}, []domain.ChainNFT{}, []domain.PartialDataWarning{
				c.warn(chain, domain.DataKindProbe, err),
			}
		}
	}

	var warnings []domain.PartialDataWarning

	txs, err := guarded(ctx, c, chain, func(ctx context.Context) ([]domain.ChainTransaction, error) {
		return c.source.Transactions(ctx, chain, address)
	})
	if err != nil {
		log.Warn().Err(err).Msg("transactions unavailable, continuing with partial data")
		warnings = append(warnings, c.warn(chain, domain.DataKindTransactions, err))
		txs = nil
	}

	nfts, err := guarded(ctx, c, chain, func(ctx context.Context) ([]domain.ChainNFT, error) {
		return c.source.NFTs(ctx, chain, address)
	})
	if err != nil {
		log.Warn().Err(err).Msg("nfts unavailable, continuing with partial data")
		warnings = append(warnings, c.warn(chain, domain.DataKindNFTs, err))
		nfts = nil
	}

	return sortTransactions(chain, txs), sortNFTs(chain, nfts), warnings
}

// guarded waits for the rate limiter and runs fn through chain's breaker.
func guarded[T any](ctx context.Context, c *Collector, chain domain.ChainID, fn func(context.Context) ([]T, error)) ([]T, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := c.breaker(chain).Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return nil, err
	}
	out, _ := res.([]T)
	return out, nil
}

func (c *Collector) breaker(chain domain.ChainID) *gobreaker.CircuitBreaker {
	c.breakersMu.Lock()
	defer c.breakersMu.Unlock()

	if b, ok := c.breakers[chain]; ok {
		return b
	}
	st := gobreaker.Settings{Name: "chain-" + chain.String()}
	st.Interval = 60 * time.Second
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 5
	}
	b := gobreaker.NewCircuitBreaker(st)
	c.breakers[chain] = b
	return b
}

func (c *Collector) warn(chain domain.ChainID, kind string, err error) domain.PartialDataWarning {
	observability.RecordChainFailure(uint64(chain), kind)
	return domain.PartialDataWarning{Chain: chain, Kind: kind, Message: err.Error()}
}

// sortTransactions keeps only rows for chain, ordered by timestamp then hash.
func sortTransactions(chain domain.ChainID, txs []domain.ChainTransaction) []domain.ChainTransaction {
	out := make([]domain.ChainTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx.ChainID == chain {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TimestampUnix != out[j].TimestampUnix {
			return out[i].TimestampUnix < out[j].TimestampUnix
		}
		return out[i].Hash < out[j].Hash
	})
	return out
}

func sortNFTs(chain domain.ChainID, nfts []domain.ChainNFT) []domain.ChainNFT {
	out := make([]domain.ChainNFT, 0, len(nfts))
	for _, n := range nfts {
		if n.ChainID == chain {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AcquiredAtUnix != out[j].AcquiredAtUnix {
			return out[i].AcquiredAtUnix < out[j].AcquiredAtUnix
		}
		if out[i].ContractAddress != out[j].ContractAddress {
			return out[i].ContractAddress < out[j].ContractAddress
		}
		return out[i].TokenID < out[j].TokenID
	})
	return out
}

func dedupeChains(chains []domain.ChainID) []domain.ChainID {
	seen := make(map[domain.ChainID]struct{}, len(chains))
	out := make([]domain.ChainID, 0, len(chains))
	for _, ch := range chains {
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}
		out = append(out, ch)
	}
	return out
}
