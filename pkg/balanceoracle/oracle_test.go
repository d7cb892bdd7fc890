package balanceoracle

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/enielson/solvable-orders-cache/internal/auction"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// rpcRequest/rpcResponse model the minimal JSON-RPC envelope eth_call needs.
type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

func newEthCallServer(t *testing.T, balance *big.Int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "eth_call":
			hexBalance := "0x" + common.Bytes2Hex(common.LeftPadBytes(balance.Bytes(), 32))
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID, "result": hexBalance,
			})
		case "eth_chainId":
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID, "result": "0x1",
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID, "result": nil,
			})
		}
	}))
}

func TestGetBalancesERC20(t *testing.T) {
	srv := newEthCallServer(t, big.NewInt(123456))
	defer srv.Close()

	oracle, err := New(srv.URL, Config{})
	require.NoError(t, err)

	queries := []auction.BalanceQuery{
		{Owner: common.HexToAddress("0x1"), SellToken: common.HexToAddress("0x2"), Source: auction.SourceERC20},
	}
	results, err := oracle.GetBalances(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Equal(t, uint64(123456), results[0].Balance.Uint64())
}

func TestGetBalancesMissingVaultResolver(t *testing.T) {
	srv := newEthCallServer(t, big.NewInt(0))
	defer srv.Close()

	oracle, err := New(srv.URL, Config{})
	require.NoError(t, err)

	queries := []auction.BalanceQuery{
		{Owner: common.HexToAddress("0x1"), SellToken: common.HexToAddress("0x2"), Source: auction.SourceInternal},
	}
	results, err := oracle.GetBalances(context.Background(), queries)
	require.NoError(t, err)
	require.Error(t, results[0].Err)
}
