package priceoracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestEstimateNativePricesReturnsAllTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"price": 1.5}`))
	}))
	defer srv.Close()

	oracle := New(srv.URL, Config{})
	tokens := []common.Address{common.HexToAddress("0x1"), common.HexToAddress("0x2")}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	stream := oracle.EstimateNativePrices(ctx, tokens)
	received := 0
	for estimate := range stream {
		require.NoError(t, estimate.Err)
		require.Equal(t, 1.5, estimate.Price)
		received++
	}
	require.Equal(t, len(tokens), received)
}

func TestEstimateNativePricesPropagatesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	oracle := New(srv.URL, Config{})
	tokens := []common.Address{common.HexToAddress("0x1")}

	stream := oracle.EstimateNativePrices(context.Background(), tokens)
	estimate := <-stream
	require.Error(t, estimate.Err)
}

func TestEstimateNativePricesEmptyTokenList(t *testing.T) {
	oracle := New("http://unused", Config{})
	stream := oracle.EstimateNativePrices(context.Background(), nil)
	_, ok := <-stream
	require.False(t, ok)
}
