package exchange

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"orders-gateway/internal/config"
)

// orderClient 为 ccxt 交易所实例中本服务用到的方法子集。
type orderClient interface {
	LoadMarkets(params ...interface{}) (map[string]ccxt.MarketInterface, error)
	FetchOpenOrders(options ...ccxt.FetchOpenOrdersOptions) ([]ccxt.Order, error)
	FetchClosedOrders(options ...ccxt.FetchClosedOrdersOptions) ([]ccxt.Order, error)
	FetchOrders(options ...ccxt.FetchOrdersOptions) ([]ccxt.Order, error)
}

// Client 负责与单个交易所交互并实现重试机制。
type Client struct {
	name   string
	raw    orderClient
	retry  config.RetryConfig
	logger *zap.Logger
}

func newClient(name string, raw orderClient, retry config.RetryConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		name:   name,
		raw:    raw,
		retry:  retry,
		logger: logger,
	}
}

// LoadMarkets 返回交易所全部统一格式交易对，已排序。
func (c *Client) LoadMarkets(ctx context.Context) ([]string, error) {
	var symbols []string
	err := c.callWithRetry(ctx, "load_markets", func() error {
		markets, err := c.raw.LoadMarkets()
		if err != nil {
			return err
		}
		symbols = make([]string, 0, len(markets))
		for symbol := range markets {
			symbols = append(symbols, symbol)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(symbols)
	return symbols, nil
}

// FetchOpenOrders 拉取指定交易对的未完结订单。
func (c *Client) FetchOpenOrders(ctx context.Context, symbol string) ([]ccxt.Order, error) {
	var orders []ccxt.Order
	err := c.callWithRetry(ctx, "fetch_open_orders", func() error {
		result, err := c.raw.FetchOpenOrders(ccxt.WithFetchOpenOrdersSymbol(symbol))
		if err != nil {
			return err
		}
		orders = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// FetchClosedOrders 拉取指定交易对的已完结订单。
func (c *Client) FetchClosedOrders(ctx context.Context, symbol string) ([]ccxt.Order, error) {
	var orders []ccxt.Order
	err := c.callWithRetry(ctx, "fetch_closed_orders", func() error {
		result, err := c.raw.FetchClosedOrders(ccxt.WithFetchClosedOrdersSymbol(symbol))
		if err != nil {
			return err
		}
		orders = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// FetchAllOrders 拉取账户全部订单，不按交易对过滤。
func (c *Client) FetchAllOrders(ctx context.Context) ([]ccxt.Order, error) {
	var orders []ccxt.Order
	err := c.callWithRetry(ctx, "fetch_orders", func() error {
		result, err := c.raw.FetchOrders()
		if err != nil {
			return err
		}
		orders = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// call 在独立 goroutine 中执行同步的 ccxt 调用，ctx 结束时立即返回并丢弃迟到的结果。
func (c *Client) call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("ccxt panic: %v", r)
			}
		}()
		done <- fn()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (c *Client) callWithRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	maxAttempts := c.retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	delay := c.retry.MinDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := c.retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		start := time.Now()
		err := c.call(ctx, fn)
		duration := time.Since(start)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("交易所调用重试后成功",
					zap.String("exchange", c.name),
					zap.String("operation", operation),
					zap.Int("attempts", attempt),
					zap.Duration("latency", duration),
				)
			}
			return nil
		}

		normalizedErr, retry := classifyError(err)

		if errors.Is(normalizedErr, ErrMaintenance) {
			c.logger.Warn("交易所维护中",
				zap.String("exchange", c.name),
				zap.String("operation", operation),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		if !retry || attempt >= maxAttempts {
			c.logger.Debug("交易所调用失败",
				zap.String("exchange", c.name),
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Duration("latency", duration),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		wait := delay
		if wait > maxDelay {
			wait = maxDelay
		}

		c.logger.Warn("交易所调用失败，等待重试",
			zap.String("exchange", c.name),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(normalizedErr),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
