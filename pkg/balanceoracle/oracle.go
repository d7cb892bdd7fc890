// Package balanceoracle adapts an Ethereum JSON-RPC endpoint to
// auction.BalanceFetcher, resolving ERC20 balances (and, for orders that
// draw from a vault contract instead of a token allowance, an internal
// balance call) concurrently per query.
package balanceoracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/enielson/solvable-orders-cache/internal/auction"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"
)

// erc20ABI is the minimal ERC20 read surface this oracle needs.
const erc20ABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

// VaultBalanceFunc resolves a SourceInternal or SourceExternal balance,
// where the spendable amount isn't a plain ERC20 balanceOf call.
type VaultBalanceFunc func(ctx context.Context, owner, token common.Address) (*uint256.Int, error)

// Oracle is an auction.BalanceFetcher backed by an Ethereum JSON-RPC client.
// At most Concurrency balance calls are in flight at once, so a batch of
// several thousand queries doesn't open several thousand simultaneous RPC
// connections.
type Oracle struct {
	client      *ethclient.Client
	erc20       abi.ABI
	vault       VaultBalanceFunc
	concurrency int
}

// Config tunes the Oracle.
type Config struct {
	// Concurrency bounds in-flight RPC calls. Zero means 16.
	Concurrency int
	// Vault resolves SourceInternal/SourceExternal balances. Required only
	// if queries of those sources are ever issued; a nil Vault makes those
	// queries fail with a descriptive error instead of panicking.
	Vault VaultBalanceFunc
}

// New dials rpcURL and returns an Oracle, or an error if dialing fails or
// the ERC20 ABI fails to parse (the latter would indicate a bug in this
// package, not the caller's input).
func New(rpcURL string, cfg Config) (*Oracle, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing balance oracle rpc: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parsing erc20 abi: %w", err)
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 16
	}
	return &Oracle{client: client, erc20: parsed, vault: cfg.Vault, concurrency: concurrency}, nil
}

// GetBalances implements auction.BalanceFetcher.
func (o *Oracle) GetBalances(ctx context.Context, queries []auction.BalanceQuery) ([]auction.BalanceResult, error) {
	results := make([]auction.BalanceResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			balance, err := o.fetchOne(gctx, q)
			results[i] = auction.BalanceResult{Balance: balance, Err: err}
			return nil // per-item errors are carried in the result, not the group
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching balances: %w", err)
	}
	return results, nil
}

func (o *Oracle) fetchOne(ctx context.Context, q auction.BalanceQuery) (*uint256.Int, error) {
	switch q.Source {
	case auction.SourceERC20:
		return o.erc20BalanceOf(ctx, q.SellToken, q.Owner)
	default:
		if o.vault == nil {
			return nil, fmt.Errorf("no vault resolver configured for source %d", q.Source)
		}
		return o.vault(ctx, q.Owner, q.SellToken)
	}
}

func (o *Oracle) erc20BalanceOf(ctx context.Context, token, owner common.Address) (*uint256.Int, error) {
	calldata, err := o.erc20.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("packing balanceOf call: %w", err)
	}

	raw, err := o.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: calldata}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling balanceOf on %s: %w", token, err)
	}

	balance := new(big.Int).SetBytes(raw)
	result, overflow := uint256.FromBig(balance)
	if overflow {
		return nil, fmt.Errorf("balanceOf returned a value too large for uint256")
	}
	return result, nil
}
