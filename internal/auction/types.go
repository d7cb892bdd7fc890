// Package auction implements the order filter, balance allocation, native
// price collection, and snapshot assembly stages that turn the raw contents
// of the order store into a single auction snapshot for one refresh cycle.
package auction

import (
	"bytes"
	"encoding/hex"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// UID is the stable identifier of an order. It is opaque to this package:
// owners mint it however they like (the production system derives it from
// owner, order digest, and valid_to so it never collides and never needs a
// database round trip to allocate).
type UID [56]byte

func (u UID) String() string {
	return "0x" + hex.EncodeToString(u[:])
}

// Kind distinguishes a sell order (exact sell_amount, variable buy_amount)
// from a buy order (exact buy_amount, variable sell_amount).
type Kind int

const (
	KindSell Kind = iota
	KindBuy
)

func (k Kind) String() string {
	if k == KindBuy {
		return "buy"
	}
	return "sell"
}

// SellTokenSource tags where an order's sell balance must be pulled from. It
// is part of the BalanceQuery key because the same owner/token pair can draw
// on two non-fungible pools (e.g. an ERC20 allowance vs. an internal vault).
type SellTokenSource int

const (
	SourceERC20 SellTokenSource = iota
	SourceInternal
	SourceExternal
)

// Order is a single trade intent as loaded from the order store, after
// filtering and balance allocation have had a chance to annotate it.
type Order struct {
	UID               UID
	Owner             common.Address
	SellToken         common.Address
	BuyToken          common.Address
	SellAmount        *uint256.Int
	BuyAmount         *uint256.Int
	FeeAmount         *uint256.Int
	Kind              Kind
	PartiallyFillable bool

	ExecutedSellAmount *uint256.Int
	ExecutedBuyAmount  *uint256.Int

	SellTokenSource SellTokenSource
	CreationDate    time.Time
	ValidTo         uint32

	// AvailableBalance is populated by the balance allocator for admitted
	// orders; nil until then.
	AvailableBalance *uint256.Int
}

// BalanceQuery is the key identifying a single spendable balance pool.
// Orders that share a BalanceQuery compete for the same funds.
type BalanceQuery struct {
	Owner     common.Address
	SellToken common.Address
	Source    SellTokenSource
}

// QueryOf returns the BalanceQuery that the given order competes under.
func QueryOf(o Order) BalanceQuery {
	return BalanceQuery{Owner: o.Owner, SellToken: o.SellToken, Source: o.SellTokenSource}
}

// Balances is the set of balances observed for a refresh cycle, keyed by
// BalanceQuery. It is copied (never mutated in place) between cycles.
type Balances map[BalanceQuery]*uint256.Int

// Clone returns a shallow copy safe to hand to a reader or mutate
// independently of the original.
func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// AuctionSnapshot is the immutable bundle a solver fleet reads for one batch.
type AuctionSnapshot struct {
	Block                 uint64
	LatestSettlementBlock uint64
	Orders                []Order
	Prices                map[common.Address]*uint256.Int
	UpdateTime            time.Time
}

// TokenPrice pairs a token with its reference price, used wherever a
// deterministic ordering over AuctionSnapshot.Prices is required (logging,
// tests) since Go map iteration order is not stable.
type TokenPrice struct {
	Token common.Address
	Price *uint256.Int
}

// SortedPrices returns prices ordered by token address, low to high.
func SortedPrices(prices map[common.Address]*uint256.Int) []TokenPrice {
	out := make([]TokenPrice, 0, len(prices))
	for token, price := range prices {
		out = append(out, TokenPrice{Token: token, Price: price})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Token[:], out[j].Token[:]) < 0
	})
	return out
}

// Empty returns the zero-value auction snapshot a fresh cache starts with.
func Empty(now time.Time) AuctionSnapshot {
	return AuctionSnapshot{
		Orders:     []Order{},
		Prices:     map[common.Address]*uint256.Int{},
		UpdateTime: now,
	}
}
