package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orders-gateway/internal/aggregator"
	"orders-gateway/internal/config"
	"orders-gateway/internal/credential"
	"orders-gateway/internal/exchange"
	"orders-gateway/internal/monitor"
	"orders-gateway/internal/store"
)

type stubAggregator struct {
	result   aggregator.Result
	err      error
	wallet   string
	symbol   string
	opts     aggregator.Options
	deadline bool
}

func (s *stubAggregator) AggregateOrders(ctx context.Context, walletID, symbol string, opts aggregator.Options) (aggregator.Result, error) {
	s.wallet, s.symbol, s.opts = walletID, symbol, opts
	_, s.deadline = ctx.Deadline()
	return s.result, s.err
}

type stubEvents struct {
	events    []monitor.Event
	eventType monitor.EventType
	limit     int
}

func (s *stubEvents) ListEvents(_ context.Context, eventType monitor.EventType, limit int) ([]monitor.Event, error) {
	s.eventType, s.limit = eventType, limit
	return s.events, nil
}

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestOrderbook_ResponseShape(t *testing.T) {
	result := aggregator.EmptyResult()
	result.OpenOrders = append(result.OpenOrders, exchange.Order{ID: "1", Exchange: "Binance", Symbol: "BTC/USDT", Status: exchange.OrderStatusOpen})
	agg := &stubAggregator{result: result}
	h := newHandler(agg, &stubEvents{}, time.Second, nil)

	rec := serve(t, h, "/orderbook/0xabc/BTC-USDT?sort=datetime")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.Equal(t, "0xabc", agg.wallet)
	assert.Equal(t, "BTC-USDT", agg.symbol)
	require.NotNil(t, agg.opts.SortByDatetime)
	assert.True(t, *agg.opts.SortByDatetime)
	assert.True(t, agg.deadline)

	var body struct {
		Response struct {
			OpenOrders   []map[string]interface{} `json:"openOrders"`
			ClosedOrders []map[string]interface{} `json:"closedOrders"`
			Errors       []map[string]interface{} `json:"errors"`
			Skipped      []string                 `json:"skipped"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Response.OpenOrders, 1)
	assert.Equal(t, "Binance", body.Response.OpenOrders[0]["exchange"])
	assert.NotNil(t, body.Response.ClosedOrders)
	assert.Empty(t, body.Response.ClosedOrders)
}

func TestOrderbook_SortParam(t *testing.T) {
	agg := &stubAggregator{result: aggregator.EmptyResult()}
	h := newHandler(agg, &stubEvents{}, time.Second, nil)

	rec := serve(t, h, "/orderbook/W/BTC-USDT")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, agg.opts.SortByDatetime)

	rec = serve(t, h, "/orderbook/W/BTC-USDT?sort=none")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, agg.opts.SortByDatetime)
	assert.False(t, *agg.opts.SortByDatetime)

	rec = serve(t, h, "/orderbook/W/BTC-USDT?sort=price")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderbook_EmptyResultSerializesArrays(t *testing.T) {
	h := newHandler(&stubAggregator{result: aggregator.EmptyResult()}, &stubEvents{}, 0, nil)

	rec := serve(t, h, "/orderbook/W/BTC-USDT")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":{"openOrders":[],"closedOrders":[],"errors":[],"skipped":[]}}`, rec.Body.String())
}

func TestOrderbook_UnknownWallet(t *testing.T) {
	agg := &stubAggregator{err: credential.ErrUserNotFound}
	h := newHandler(agg, &stubEvents{}, time.Second, nil)

	rec := serve(t, h, "/orderbook/missing/BTC-USDT")
	require.Equal(t, http.StatusOK, rec.Code)

	var body orderbookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Response.OpenOrders)
	assert.Empty(t, body.Response.ClosedOrders)
	require.Len(t, body.Response.Errors, 1)
	assert.Equal(t, aggregator.KindUserNotFound, body.Response.Errors[0].Kind)
}

func TestOrderbook_StoreFailure(t *testing.T) {
	h := newHandler(&stubAggregator{err: errors.New("database is locked")}, &stubEvents{}, time.Second, nil)

	rec := serve(t, h, "/orderbook/W/BTC-USDT")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is locked")
}

func TestOrderbook_MethodNotAllowed(t *testing.T) {
	h := newHandler(&stubAggregator{}, &stubEvents{}, time.Second, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orderbook/W/BTC-USDT", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEvents_QueryParams(t *testing.T) {
	events := &stubEvents{events: []monitor.Event{{Type: monitor.EventAggregation}}}
	h := newHandler(&stubAggregator{}, events, time.Second, nil)

	rec := serve(t, h, "/events?type=AGGREGATION&limit=5000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, monitor.EventAggregation, events.eventType)
	assert.Equal(t, 1000, events.limit)

	serve(t, h, "/events?limit=abc")
	assert.Equal(t, 200, events.limit)
	assert.Equal(t, monitor.EventType(""), events.eventType)
}

func TestHealthz(t *testing.T) {
	h := newHandler(&stubAggregator{}, &stubEvents{}, time.Second, nil)

	rec := serve(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestApp_EndToEndWithStoredCredentials(t *testing.T) {
	st, err := store.NewSQLite(config.DatabaseConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{
		App:        config.AppConfig{Environment: "test"},
		Server:     config.ServerConfig{Port: 8080, RequestTimeout: time.Second},
		Aggregator: config.AggregatorConfig{ExchangeTimeout: time.Second, MaxConcurrency: 2},
		Cache:      config.CacheConfig{Driver: config.CacheDriverNone},
		Exchanges: map[string]config.ExchangeConfig{
			"huobi": {Disabled: true},
		},
	}
	a, err := New(cfg, nil, st)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.True(t, a.Registry().Supports("Binance"))
	assert.False(t, a.Registry().Supports("huobi"))

	ctx := context.Background()
	require.NoError(t, a.Credentials().RegisterWallet(ctx, "W"))
	// huobi 已禁用，聚合时作为不支持的交易所报告
	require.NoError(t, a.Credentials().PutCredential(ctx, "W", credential.UserExchangeCredential{
		ExchangeID: "huobi", APIKey: "k", APISecret: "s",
	}))

	rec := serve(t, a.Handler(), "/orderbook/W/BTC-USDT")
	require.Equal(t, http.StatusOK, rec.Code)

	var body orderbookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Response.OpenOrders)
	require.Len(t, body.Response.Errors, 1)
	assert.Equal(t, aggregator.KindUnsupported, body.Response.Errors[0].Kind)

	events, err := a.Monitor().ListEvents(ctx, monitor.EventExchangeError, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	rec = serve(t, a.Handler(), "/orderbook/unknown/BTC-USDT")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(aggregator.KindUserNotFound))
}
