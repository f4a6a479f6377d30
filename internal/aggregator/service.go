package aggregator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"orders-gateway/internal/config"
	"orders-gateway/internal/credential"
	"orders-gateway/internal/exchange"
	"orders-gateway/internal/monitor"
)

// Recorder 持久化聚合审计事件。
type Recorder interface {
	RecordAggregation(ctx context.Context, payload monitor.AggregationPayload)
	RecordExchangeError(ctx context.Context, payload monitor.ExchangeErrorPayload)
}

// Service 按钱包并发查询各交易所订单并合并结果。
type Service struct {
	creds    CredentialSource
	adapters AdapterFactory
	recorder Recorder
	cfg      config.AggregatorConfig
	newID    func() string
	logger   *zap.Logger
}

// Option 调整 Service 的可选依赖。
type Option func(*Service)

// WithRecorder 启用审计记录。
func WithRecorder(recorder Recorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// WithRequestIDGenerator 替换请求 ID 生成方式。
func WithRequestIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService 创建聚合服务。
func NewService(creds CredentialSource, adapters AdapterFactory, cfg config.AggregatorConfig, logger *zap.Logger, opts ...Option) (*Service, error) {
	if creds == nil {
		return nil, fmt.Errorf("aggregator: credential source 不能为空")
	}
	if adapters == nil {
		return nil, fmt.Errorf("aggregator: adapter factory 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		creds:    creds,
		adapters: adapters,
		cfg:      cfg,
		newID:    uuid.NewString,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// outcome 为单个交易所的查询结果，每个凭证独占一个槽位。
type outcome struct {
	exchange string
	orders   exchange.OrderSet
	skipped  bool
	err      error
}

// AggregateOrders 汇总钱包在各交易所的订单。
// 单个交易所失败不会中断聚合，失败原因记录在 Result.Errors 中；
// 只有凭证查询失败（包括钱包不存在）才返回 error。
func (s *Service) AggregateOrders(ctx context.Context, walletID, symbol string, opts Options) (Result, error) {
	requestID := s.newID()
	start := time.Now()
	logger := s.logger.With(
		zap.String("request_id", requestID),
		zap.String("wallet", walletID),
		zap.String("symbol", symbol),
	)

	creds, err := s.creds.GetUserAPIKeys(ctx, walletID)
	if err != nil {
		return Result{}, fmt.Errorf("aggregator: 查询凭证失败: %w", err)
	}

	// 同一交易所只保留第一条凭证
	creds = lo.UniqBy(creds, func(c credential.UserExchangeCredential) string {
		return credential.NormalizeExchangeID(c.ExchangeID)
	})

	outcomes := make([]outcome, len(creds))
	group := new(errgroup.Group)
	if s.cfg.MaxConcurrency > 0 {
		group.SetLimit(s.cfg.MaxConcurrency)
	}
	for i, cred := range creds {
		group.Go(func() error {
			outcomes[i] = s.queryExchange(ctx, cred, symbol)
			return nil
		})
	}
	_ = group.Wait()

	result := EmptyResult()
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			exErr := ExchangeError{
				Exchange: o.exchange,
				Kind:     ClassifyError(o.err),
				Message:  o.err.Error(),
			}
			result.Errors = append(result.Errors, exErr)
			logger.Warn("交易所订单查询失败",
				zap.String("exchange", exErr.Exchange),
				zap.String("kind", string(exErr.Kind)),
				zap.Error(o.err),
			)
		case o.skipped:
			result.Skipped = append(result.Skipped, o.exchange)
		default:
			result.OpenOrders = append(result.OpenOrders, o.orders.Open...)
			result.ClosedOrders = append(result.ClosedOrders, o.orders.Closed...)
		}
	}

	if lo.FromPtrOr(opts.SortByDatetime, s.cfg.SortByDatetime) {
		sortByTimestamp(result.OpenOrders)
		sortByTimestamp(result.ClosedOrders)
	}

	duration := time.Since(start)
	logger.Info("订单聚合完成",
		zap.Int("exchanges", len(creds)),
		zap.Int("open", len(result.OpenOrders)),
		zap.Int("closed", len(result.ClosedOrders)),
		zap.Int("errors", len(result.Errors)),
		zap.Strings("skipped", result.Skipped),
		zap.Duration("latency", duration),
	)

	s.record(ctx, requestID, walletID, symbol, creds, result, duration)
	return result, nil
}

func (s *Service) queryExchange(ctx context.Context, cred credential.UserExchangeCredential, symbol string) outcome {
	adapter, err := s.adapters.New(cred)
	if err != nil {
		return outcome{exchange: cred.ExchangeID, err: err}
	}
	name := adapter.ExchangeID()

	if s.cfg.ExchangeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ExchangeTimeout)
		defer cancel()
	}

	supported, err := adapter.SupportsSymbol(ctx, symbol)
	if err != nil {
		return outcome{exchange: name, err: err}
	}
	if !supported {
		s.logger.Debug("交易所未上架该交易对，跳过", zap.String("exchange", name), zap.String("symbol", symbol))
		return outcome{exchange: name, skipped: true}
	}

	if err := adapter.Authenticate(ctx); err != nil {
		return outcome{exchange: name, err: err}
	}

	orders, err := adapter.FetchOrders(ctx, symbol)
	if errors.Is(err, exchange.ErrMarketUnavailable) {
		return outcome{exchange: name, skipped: true}
	}
	if err != nil {
		return outcome{exchange: name, err: err}
	}
	return outcome{exchange: name, orders: orders}
}

func (s *Service) record(ctx context.Context, requestID, walletID, symbol string, creds []credential.UserExchangeCredential, result Result, duration time.Duration) {
	if s.recorder == nil {
		return
	}
	// 客户端断开后仍需落库
	ctx = context.WithoutCancel(ctx)

	s.recorder.RecordAggregation(ctx, monitor.AggregationPayload{
		RequestID: requestID,
		WalletID:  walletID,
		Symbol:    symbol,
		Exchanges: lo.Map(creds, func(c credential.UserExchangeCredential, _ int) string {
			return credential.NormalizeExchangeID(c.ExchangeID)
		}),
		OpenCount:   len(result.OpenOrders),
		ClosedCount: len(result.ClosedOrders),
		Skipped:     result.Skipped,
		ErrorCount:  len(result.Errors),
		DurationMs:  duration.Milliseconds(),
	})
	for _, e := range result.Errors {
		s.recorder.RecordExchangeError(ctx, monitor.ExchangeErrorPayload{
			RequestID: requestID,
			WalletID:  walletID,
			Symbol:    symbol,
			Exchange:  e.Exchange,
			Kind:      string(e.Kind),
			Message:   e.Message,
		})
	}
}

func sortByTimestamp(orders []exchange.Order) {
	slices.SortStableFunc(orders, func(a, b exchange.Order) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
}
