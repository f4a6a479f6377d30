package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orders-gateway/internal/aggregator"
	"orders-gateway/internal/credential"
	"orders-gateway/internal/exchange"
)

func TestParseExtraFields(t *testing.T) {
	fields, err := parseExtraFields([]string{"Subaccount=main", "Memo=a=b"})
	require.NoError(t, err)
	assert.Equal(t, []credential.ExtraField{
		{FieldName: "Subaccount", Value: "main"},
		{FieldName: "Memo", Value: "a=b"},
	}, fields)

	_, err = parseExtraFields([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseExtraFields([]string{"=x"})
	assert.Error(t, err)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", maskKey("abcd"))
	assert.Equal(t, "abcd****mnop", maskKey("abcdefghmnop"))
}

func TestRenderResult(t *testing.T) {
	result := aggregator.EmptyResult()
	result.OpenOrders = append(result.OpenOrders, exchange.Order{
		ID:        "42",
		Exchange:  "Binance",
		Symbol:    "BTC/USDT",
		RawStatus: "open",
		Price:     decimal.RequireFromString("50000.5"),
		Amount:    decimal.RequireFromString("0.01"),
		Datetime:  lo.ToPtr(time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)),
	})
	result.Skipped = append(result.Skipped, "Huobi")
	result.Errors = append(result.Errors, aggregator.ExchangeError{Exchange: "FTX", Kind: aggregator.KindTimeout, Message: "deadline"})

	var buf bytes.Buffer
	renderResult(&buf, result)
	out := buf.String()

	assert.Contains(t, out, "Open orders: 1, closed orders: 0")
	assert.Contains(t, out, "50000.5")
	assert.Contains(t, out, "skipped: Huobi")
	assert.Contains(t, out, "error: FTX [timeout] deadline")
}
