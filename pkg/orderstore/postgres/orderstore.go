// Package postgres adapts a Postgres order book schema to auction.OrderStore.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/enielson/solvable-orders-cache/internal/auction"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jmoiron/sqlx"
)

// orderRow mirrors the orders table's column set. Amounts are stored as
// NUMERIC so they round-trip through Postgres without ever being forced
// through a float or a 64-bit int; they arrive here as decimal strings.
type orderRow struct {
	UID                []byte         `db:"uid"`
	Owner              string         `db:"owner"`
	SellToken          string         `db:"sell_token"`
	BuyToken           string         `db:"buy_token"`
	SellAmount         string         `db:"sell_amount"`
	BuyAmount          string         `db:"buy_amount"`
	FeeAmount          string         `db:"fee_amount"`
	Kind               string         `db:"kind"`
	PartiallyFillable  bool           `db:"partially_fillable"`
	ExecutedSellAmount sql.NullString `db:"executed_sell_amount"`
	ExecutedBuyAmount  sql.NullString `db:"executed_buy_amount"`
	SellTokenSource    string         `db:"sell_token_source"`
	CreationDate       time.Time      `db:"creation_date"`
	ValidTo            uint32         `db:"valid_to"`
}

// Store is a Postgres-backed auction.OrderStore. It only reads: the order
// book itself is written by the rest of the system, not by this cache.
type Store struct {
	db *sqlx.DB
}

// New wraps an existing connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const solvableOrdersQuery = `
	SELECT uid, owner, sell_token, buy_token, sell_amount, buy_amount, fee_amount,
	       kind, partially_fillable, executed_sell_amount, executed_buy_amount,
	       sell_token_source, creation_date, valid_to
	FROM orders
	WHERE valid_to >= $1
	  AND cancelled_at IS NULL
	  AND invalidated_at IS NULL
	ORDER BY creation_date DESC`

const latestSettlementBlockQuery = `SELECT COALESCE(MAX(block_number), 0) FROM settlements`

// SolvableOrders implements auction.OrderStore.
func (s *Store) SolvableOrders(ctx context.Context, minValidTo uint32) (auction.LoadedOrders, error) {
	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, solvableOrdersQuery, minValidTo); err != nil {
		return auction.LoadedOrders{}, fmt.Errorf("querying solvable orders: %w", err)
	}

	var latestBlock uint64
	if err := s.db.GetContext(ctx, &latestBlock, latestSettlementBlockQuery); err != nil {
		return auction.LoadedOrders{}, fmt.Errorf("querying latest settlement block: %w", err)
	}

	orders := make([]auction.Order, 0, len(rows))
	for _, row := range rows {
		order, err := row.toOrder()
		if err != nil {
			return auction.LoadedOrders{}, fmt.Errorf("decoding order %x: %w", row.UID, err)
		}
		orders = append(orders, order)
	}

	return auction.LoadedOrders{Orders: orders, LatestSettlementBlock: latestBlock}, nil
}

func (row orderRow) toOrder() (auction.Order, error) {
	var uid auction.UID
	if len(row.UID) != len(uid) {
		return auction.Order{}, fmt.Errorf("expected %d-byte uid, got %d", len(uid), len(row.UID))
	}
	copy(uid[:], row.UID)

	sellAmount, err := parseUint256(row.SellAmount)
	if err != nil {
		return auction.Order{}, fmt.Errorf("sell_amount: %w", err)
	}
	buyAmount, err := parseUint256(row.BuyAmount)
	if err != nil {
		return auction.Order{}, fmt.Errorf("buy_amount: %w", err)
	}
	feeAmount, err := parseUint256(row.FeeAmount)
	if err != nil {
		return auction.Order{}, fmt.Errorf("fee_amount: %w", err)
	}

	executedSell, err := parseNullableUint256(row.ExecutedSellAmount)
	if err != nil {
		return auction.Order{}, fmt.Errorf("executed_sell_amount: %w", err)
	}
	executedBuy, err := parseNullableUint256(row.ExecutedBuyAmount)
	if err != nil {
		return auction.Order{}, fmt.Errorf("executed_buy_amount: %w", err)
	}

	kind, err := parseKind(row.Kind)
	if err != nil {
		return auction.Order{}, err
	}
	source, err := parseSellTokenSource(row.SellTokenSource)
	if err != nil {
		return auction.Order{}, err
	}

	return auction.Order{
		UID:                uid,
		Owner:              common.HexToAddress(row.Owner),
		SellToken:          common.HexToAddress(row.SellToken),
		BuyToken:           common.HexToAddress(row.BuyToken),
		SellAmount:         sellAmount,
		BuyAmount:          buyAmount,
		FeeAmount:          feeAmount,
		Kind:               kind,
		PartiallyFillable:  row.PartiallyFillable,
		ExecutedSellAmount: executedSell,
		ExecutedBuyAmount:  executedBuy,
		SellTokenSource:    source,
		CreationDate:       row.CreationDate,
		ValidTo:            row.ValidTo,
	}, nil
}

func parseUint256(s string) (*uint256.Int, error) {
	v := new(uint256.Int)
	if err := v.SetFromDecimal(s); err != nil {
		return nil, err
	}
	return v, nil
}

func parseNullableUint256(s sql.NullString) (*uint256.Int, error) {
	if !s.Valid {
		return nil, nil
	}
	return parseUint256(s.String)
}

func parseKind(s string) (auction.Kind, error) {
	switch s {
	case "sell":
		return auction.KindSell, nil
	case "buy":
		return auction.KindBuy, nil
	default:
		return 0, fmt.Errorf("unknown order kind %q", s)
	}
}

func parseSellTokenSource(s string) (auction.SellTokenSource, error) {
	switch s {
	case "erc20":
		return auction.SourceERC20, nil
	case "internal":
		return auction.SourceInternal, nil
	case "external":
		return auction.SourceExternal, nil
	default:
		return 0, fmt.Errorf("unknown sell token source %q", s)
	}
}
