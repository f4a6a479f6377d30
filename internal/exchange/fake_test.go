package exchange

import (
	"sync"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

type fakeClient struct {
	mu sync.Mutex

	markets    []string
	marketsErr error
	open       []ccxt.Order
	closed     []ccxt.Order
	all        []ccxt.Order
	fetchErr   error
	// failures 在返回成功前先返回的错误序列
	failures []error

	calls []string
}

func (f *fakeClient) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	return nil
}

func (f *fakeClient) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeClient) LoadMarkets(params ...interface{}) (map[string]ccxt.MarketInterface, error) {
	if err := f.record("LoadMarkets"); err != nil {
		return nil, err
	}
	if f.marketsErr != nil {
		return nil, f.marketsErr
	}
	markets := make(map[string]ccxt.MarketInterface, len(f.markets))
	for _, m := range f.markets {
		markets[m] = ccxt.MarketInterface{}
	}
	return markets, nil
}

func (f *fakeClient) FetchOpenOrders(options ...ccxt.FetchOpenOrdersOptions) ([]ccxt.Order, error) {
	if err := f.record("FetchOpenOrders"); err != nil {
		return nil, err
	}
	return f.open, f.fetchErr
}

func (f *fakeClient) FetchClosedOrders(options ...ccxt.FetchClosedOrdersOptions) ([]ccxt.Order, error) {
	if err := f.record("FetchClosedOrders"); err != nil {
		return nil, err
	}
	return f.closed, f.fetchErr
}

func (f *fakeClient) FetchOrders(options ...ccxt.FetchOrdersOptions) ([]ccxt.Order, error) {
	if err := f.record("FetchOrders"); err != nil {
		return nil, err
	}
	return f.all, f.fetchErr
}

func rawOrder(id, symbol, status string, ts int64) ccxt.Order {
	price := 50000.5
	amount := 0.01
	return ccxt.Order{
		Id:        &id,
		Symbol:    &symbol,
		Status:    &status,
		Timestamp: &ts,
		Price:     &price,
		Amount:    &amount,
	}
}
