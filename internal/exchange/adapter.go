package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"orders-gateway/internal/credential"
	"orders-gateway/internal/marketcache"
)

// Adapter 把单个交易所的原生接口转换为统一的订单查询能力。
type Adapter interface {
	// ExchangeID 返回写入订单 exchange 字段的交易所名称。
	ExchangeID() string
	// SupportsSymbol 判断交易所是否上架该交易对，未上架返回 false 且不报错。
	SupportsSymbol(ctx context.Context, symbol string) (bool, error)
	// Authenticate 校验构造时传入的凭证是否完整，不发起网络请求。
	Authenticate(ctx context.Context) error
	// FetchOrders 拉取该交易对的订单并按状态划分。
	FetchOrders(ctx context.Context, symbol string) (OrderSet, error)
}

// ccxtAdapter 为一次请求构造的交易所适配器，持有不可变的凭证副本。
type ccxtAdapter struct {
	profile  Profile
	cred     credential.UserExchangeCredential
	client   *Client
	cache    marketcache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

var _ Adapter = (*ccxtAdapter)(nil)

func (a *ccxtAdapter) ExchangeID() string {
	return a.profile.Name
}

func (a *ccxtAdapter) SupportsSymbol(ctx context.Context, symbol string) (bool, error) {
	markets, err := a.markets(ctx)
	if err != nil {
		return false, err
	}
	return lo.Contains(markets, NativeSymbol(symbol)), nil
}

func (a *ccxtAdapter) Authenticate(_ context.Context) error {
	if strings.TrimSpace(a.cred.APIKey) == "" {
		return fmt.Errorf("%w: %s 缺少 apiKey", ErrAuthentication, a.profile.Name)
	}
	if strings.TrimSpace(a.cred.APISecret) == "" {
		return fmt.Errorf("%w: %s 缺少 secret", ErrAuthentication, a.profile.Name)
	}

	for _, h := range a.profile.Headers {
		value, ok := a.cred.Extra(h.Field)
		if !ok {
			if h.Required {
				return fmt.Errorf("%w: %s 缺少附加字段 %s", ErrConfiguration, a.profile.Name, h.Field)
			}
			continue
		}
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s 附加字段 %s 为空", ErrConfiguration, a.profile.Name, h.Field)
		}
	}
	return nil
}

func (a *ccxtAdapter) FetchOrders(ctx context.Context, symbol string) (OrderSet, error) {
	native := NativeSymbol(symbol)

	var (
		set OrderSet
		err error
	)
	switch a.profile.Mode {
	case FetchModeAll:
		set, err = a.fetchAll(ctx, native)
	default:
		set, err = a.fetchSplit(ctx, native)
	}
	if err != nil {
		return OrderSet{}, err
	}

	a.logger.Debug("订单拉取完成",
		zap.String("exchange", a.profile.Name),
		zap.String("symbol", native),
		zap.Int("open", len(set.Open)),
		zap.Int("closed", len(set.Closed)),
	)
	return set, nil
}

func (a *ccxtAdapter) fetchSplit(ctx context.Context, symbol string) (OrderSet, error) {
	var openRaw, closedRaw []ccxt.Order

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		orders, err := a.client.FetchOpenOrders(groupCtx, symbol)
		if err != nil {
			return fmt.Errorf("拉取未完结订单失败: %w", err)
		}
		openRaw = orders
		return nil
	})
	group.Go(func() error {
		orders, err := a.client.FetchClosedOrders(groupCtx, symbol)
		if err != nil {
			return fmt.Errorf("拉取已完结订单失败: %w", err)
		}
		closedRaw = orders
		return nil
	})
	if err := group.Wait(); err != nil {
		return OrderSet{}, err
	}

	return OrderSet{
		Open: lo.Map(openRaw, func(o ccxt.Order, _ int) Order {
			return a.convert(o, OrderStatusOpen)
		}),
		Closed: lo.Map(closedRaw, func(o ccxt.Order, _ int) Order {
			return a.convert(o, OrderStatusClosed)
		}),
	}, nil
}

// fetchAll 适用于没有独立未完结/已完结接口的交易所：拉全量后按交易对过滤，status 非 closed 即视为未完结。
func (a *ccxtAdapter) fetchAll(ctx context.Context, symbol string) (OrderSet, error) {
	raw, err := a.client.FetchAllOrders(ctx)
	if err != nil {
		return OrderSet{}, fmt.Errorf("拉取订单失败: %w", err)
	}

	matching := lo.Filter(raw, func(o ccxt.Order, _ int) bool {
		return derefString(o.Symbol) == symbol
	})
	closed, open := lo.FilterReject(matching, func(o ccxt.Order, _ int) bool {
		return derefString(o.Status) == string(OrderStatusClosed)
	})

	return OrderSet{
		Open: lo.Map(open, func(o ccxt.Order, _ int) Order {
			return a.convert(o, OrderStatusOpen)
		}),
		Closed: lo.Map(closed, func(o ccxt.Order, _ int) Order {
			return a.convert(o, OrderStatusClosed)
		}),
	}, nil
}

func (a *ccxtAdapter) markets(ctx context.Context) ([]string, error) {
	if a.cache != nil {
		symbols, ok, err := a.cache.Get(ctx, a.profile.ID)
		if err != nil {
			a.logger.Warn("读取市场缓存失败，直接拉取", zap.String("exchange", a.profile.ID), zap.Error(err))
		} else if ok {
			return symbols, nil
		}
	}

	symbols, err := a.client.LoadMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载 %s 市场失败: %w", a.profile.Name, err)
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, a.profile.ID, symbols, a.cacheTTL); err != nil {
			a.logger.Warn("写入市场缓存失败", zap.String("exchange", a.profile.ID), zap.Error(err))
		}
	}
	return symbols, nil
}

func (a *ccxtAdapter) convert(raw ccxt.Order, status OrderStatus) Order {
	order := Order{
		ID:            derefString(raw.Id),
		ClientOrderID: derefString(raw.ClientOrderId),
		Exchange:      a.profile.Name,
		Symbol:        derefString(raw.Symbol),
		Status:        status,
		RawStatus:     derefString(raw.Status),
		Type:          derefString(raw.Type),
		Side:          derefString(raw.Side),
		Price:         derefDecimal(raw.Price),
		Amount:        derefDecimal(raw.Amount),
		Filled:        derefDecimal(raw.Filled),
		Remaining:     derefDecimal(raw.Remaining),
		Info:          raw.Info,
	}

	if raw.Timestamp != nil {
		order.Timestamp = *raw.Timestamp
		order.Datetime = lo.ToPtr(time.UnixMilli(*raw.Timestamp).UTC())
	} else if dt := derefString(raw.Datetime); dt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, dt); err == nil {
			order.Datetime = lo.ToPtr(ts.UTC())
			order.Timestamp = ts.UnixMilli()
		}
	}

	return order
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefDecimal(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}
