package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultPageSize    = 1000
)

var weiPerEther = decimal.New(1, 18)

// ErrRateLimited is returned when the explorer keeps throttling after all retries.
var ErrRateLimited = errors.New("explorer rate limited")

// ExplorerError is a non-retryable error reported by the explorer API.
type ExplorerError struct {
	Action  string
	Message string
	Detail  string
}

func (e *ExplorerError) Error() string {
	return fmt.Sprintf("explorer %s: %s: %s", e.Action, e.Message, e.Detail)
}

// ExplorerClient reads account history from an Etherscan-compatible
// multichain API (chainid query parameter).
type ExplorerClient struct {
	endpoint     string
	apiKey       string
	client       *http.Client
	maxRetries   int
	retryDelay   time.Duration
	maxDelay     time.Duration
	backoffMult  float64
	pageSize     int
	nativePrices map[domain.ChainID]decimal.Decimal
	labels       map[string]string
}

// ClientOption configures ExplorerClient.
type ClientOption func(*ExplorerClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *ExplorerClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *ExplorerClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *ExplorerClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *ExplorerClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *ExplorerClient) {
		c.client = client
	}
}

// WithPageSize sets how many rows are requested per action.
func WithPageSize(n int) ClientOption {
	return func(c *ExplorerClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithNativePrices sets the USD price of each chain's native coin.
// Chains without a price report zero USD value and gas.
func WithNativePrices(prices map[domain.ChainID]float64) ClientOption {
	return func(c *ExplorerClient) {
		for chain, p := range prices {
			c.nativePrices[chain] = decimal.NewFromFloat(p)
		}
	}
}

// WithLabels sets contract names by address. They are used when the
// explorer does not name the called contract itself.
func WithLabels(labels map[string]string) ClientOption {
	return func(c *ExplorerClient) {
		for addr, name := range labels {
			c.labels[strings.ToLower(addr)] = name
		}
	}
}

// NewExplorerClient creates a new explorer client.
func NewExplorerClient(endpoint, apiKey string, opts ...ClientOption) *ExplorerClient {
	c := &ExplorerClient{
		endpoint:     endpoint,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: DefaultTimeout},
		maxRetries:   DefaultMaxRetries,
		retryDelay:   DefaultRetryDelay,
		maxDelay:     DefaultMaxDelay,
		backoffMult:  DefaultBackoffMult,
		pageSize:     DefaultPageSize,
		nativePrices: make(map[domain.ChainID]decimal.Decimal),
		labels:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call performs one account-module request with retries and exponential backoff.
func (c *ExplorerClient) call(ctx context.Context, chain domain.ChainID, action, address string, result interface{}) error {
	q := url.Values{}
	q.Set("chainid", strconv.FormatUint(uint64(chain), 10))
	q.Set("module", "account")
	q.Set("action", action)
	q.Set("address", address)
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("page", "1")
	q.Set("offset", strconv.Itoa(c.pageSize))
	q.Set("sort", "asc")
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}
	reqURL := c.endpoint + "?" + q.Encode()

	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(action, time.Since(start).Seconds())
	}()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = ErrRateLimited
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		var env explorerResponse
		if err := json.Unmarshal(body, &env); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if env.Status != "1" {
			detail := resultString(env.Result)
			if strings.HasPrefix(env.Message, "No ") && strings.Contains(env.Message, "found") {
				return nil
			}
			if strings.Contains(strings.ToLower(detail), "rate limit") {
				lastErr = ErrRateLimited
				continue
			}
			// API errors are not retried
			return &ExplorerError{Action: action, Message: env.Message, Detail: detail}
		}

		if result != nil {
			if err := json.Unmarshal(env.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func resultString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// Transactions returns the address's successful normal transactions on chain,
// enriched with token labels from its token transfers.
func (c *ExplorerClient) Transactions(ctx context.Context, chain domain.ChainID, address string) ([]domain.ChainTransaction, error) {
	var rows []explorerTx
	if err := c.call(ctx, chain, "txlist", address, &rows); err != nil {
		return nil, fmt.Errorf("txlist: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var tokenRows []explorerTokenTx
	if err := c.call(ctx, chain, "tokentx", address, &tokenRows); err != nil {
		return nil, fmt.Errorf("tokentx: %w", err)
	}
	tokens := make(map[string]explorerTokenTx, len(tokenRows))
	for _, t := range tokenRows {
		key := strings.ToLower(t.Hash)
		if _, seen := tokens[key]; !seen {
			tokens[key] = t
		}
	}

	price := c.nativePrices[chain]
	out := make([]domain.ChainTransaction, 0, len(rows))
	for _, r := range rows {
		if r.IsError == "1" {
			continue
		}
		tx, err := c.convertTx(chain, r, price)
		if err != nil {
			return nil, fmt.Errorf("tx %s: %w", r.Hash, err)
		}
		if t, ok := tokens[strings.ToLower(r.Hash)]; ok {
			if t.TokenSymbol != "" {
				tx.TokenSymbol = strPtr(t.TokenSymbol)
			}
			if tx.ContractName == nil && t.TokenName != "" && strings.EqualFold(t.ContractAddress, r.To) {
				tx.ContractName = strPtr(t.TokenName)
			}
		}
		out = append(out, tx)
	}
	return out, nil
}

func (c *ExplorerClient) convertTx(chain domain.ChainID, r explorerTx, price decimal.Decimal) (domain.ChainTransaction, error) {
	ts, err := strconv.ParseInt(r.TimeStamp, 10, 64)
	if err != nil {
		return domain.ChainTransaction{}, fmt.Errorf("parse timestamp: %w", err)
	}

	value, err := weiToUSD(r.Value, price)
	if err != nil {
		return domain.ChainTransaction{}, fmt.Errorf("parse value: %w", err)
	}
	gasUsed, err := parseDecimal(r.GasUsed)
	if err != nil {
		return domain.ChainTransaction{}, fmt.Errorf("parse gasUsed: %w", err)
	}
	gasPrice, err := parseDecimal(r.GasPrice)
	if err != nil {
		return domain.ChainTransaction{}, fmt.Errorf("parse gasPrice: %w", err)
	}
	gas := gasUsed.Mul(gasPrice).Div(weiPerEther).Mul(price)

	tx := domain.ChainTransaction{
		ChainID:       chain,
		Hash:          strings.ToLower(r.Hash),
		From:          strings.ToLower(r.From),
		To:            strings.ToLower(r.To),
		ValueUSD:      value.Round(2).InexactFloat64(),
		GasUSD:        gas.Round(2).InexactFloat64(),
		TimestampUnix: ts,
	}

	// Contract creation reports the new contract; calls report the callee as To.
	switch {
	case r.ContractAddress != "":
		tx.ContractAddress = strPtr(strings.ToLower(r.ContractAddress))
	case r.FunctionName != "" && r.To != "":
		tx.ContractAddress = strPtr(strings.ToLower(r.To))
	}

	if name := functionName(r.FunctionName); name != "" {
		tx.DecodedFunctionName = strPtr(name)
	}
	if tx.ContractAddress != nil {
		if label, ok := c.labels[*tx.ContractAddress]; ok {
			tx.ContractName = strPtr(label)
		}
	}
	return tx, nil
}

// NFTs returns the NFTs the address still holds on chain, reconstructed from
// its ERC-721 transfer history.
func (c *ExplorerClient) NFTs(ctx context.Context, chain domain.ChainID, address string) ([]domain.ChainNFT, error) {
	var rows []explorerNFTTx
	if err := c.call(ctx, chain, "tokennfttx", address, &rows); err != nil {
		return nil, fmt.Errorf("tokennfttx: %w", err)
	}

	type parsed struct {
		row explorerNFTTx
		ts  int64
	}
	transfers := make([]parsed, 0, len(rows))
	for _, r := range rows {
		ts, err := strconv.ParseInt(r.TimeStamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("nft %s: parse timestamp: %w", r.Hash, err)
		}
		transfers = append(transfers, parsed{row: r, ts: ts})
	}
	sort.SliceStable(transfers, func(i, j int) bool { return transfers[i].ts < transfers[j].ts })

	addr := strings.ToLower(address)
	held := make(map[string]domain.ChainNFT)
	for _, t := range transfers {
		contract := strings.ToLower(t.row.ContractAddress)
		key := contract + "|" + t.row.TokenID
		if strings.EqualFold(t.row.From, addr) {
			delete(held, key)
		}
		if strings.EqualFold(t.row.To, addr) {
			held[key] = domain.ChainNFT{
				ChainID:         chain,
				ContractAddress: contract,
				TokenID:         t.row.TokenID,
				AcquiredAtUnix:  t.ts,
			}
		}
	}

	out := make([]domain.ChainNFT, 0, len(held))
	for _, n := range held {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AcquiredAtUnix != out[j].AcquiredAtUnix {
			return out[i].AcquiredAtUnix < out[j].AcquiredAtUnix
		}
		if out[i].ContractAddress != out[j].ContractAddress {
			return out[i].ContractAddress < out[j].ContractAddress
		}
		return out[i].TokenID < out[j].TokenID
	})
	return out, nil
}

func weiToUSD(wei string, price decimal.Decimal) (decimal.Decimal, error) {
	v, err := parseDecimal(wei)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Div(weiPerEther).Mul(price), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// functionName strips the argument list from "name(type arg,...)".
func functionName(sig string) string {
	if i := strings.IndexByte(sig, '('); i >= 0 {
		return sig[:i]
	}
	return sig
}

func strPtr(s string) *string {
	return &s
}
