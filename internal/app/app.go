package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"orders-gateway/internal/aggregator"
	"orders-gateway/internal/config"
	"orders-gateway/internal/credential"
	"orders-gateway/internal/exchange"
	"orders-gateway/internal/marketcache"
	"orders-gateway/internal/monitor"
	"orders-gateway/internal/store"
)

// App 聚合核心依赖并驱动网关生命周期。
type App struct {
	cfg         *config.Config
	logger      *zap.Logger
	store       *store.Store
	credentials *credential.Store
	registry    *exchange.Registry
	aggregator  *aggregator.Service
	monitor     *monitor.Service
	redis       *redis.Client
}

// New 创建 App 实例并完成依赖装配。
func New(cfg *config.Config, logger *zap.Logger, st *store.Store) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config 不能为空")
	}
	if st == nil {
		return nil, errors.New("app: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{cfg: cfg, logger: logger, store: st}

	creds, err := credential.NewStore(st, logger.Named("credential"))
	if err != nil {
		return nil, fmt.Errorf("初始化凭证存储失败: %w", err)
	}
	a.credentials = creds

	monitorSvc, err := monitor.NewService(st, logger.Named("monitor"))
	if err != nil {
		return nil, fmt.Errorf("初始化审计服务失败: %w", err)
	}
	a.monitor = monitorSvc

	opts := []exchange.RegistryOption{
		exchange.WithRequestTimeout(cfg.Aggregator.ExchangeTimeout),
	}
	cache, err := a.newMarketCache()
	if err != nil {
		return nil, err
	}
	if cache != nil {
		opts = append(opts, exchange.WithMarketCache(cache, cfg.Cache.TTL))
	}
	a.registry = exchange.NewRegistry(
		exchange.ProfilesFromConfig(cfg.Exchanges),
		cfg.Retry,
		logger.Named("exchange"),
		opts...,
	)

	agg, err := aggregator.NewService(creds, a.registry, cfg.Aggregator, logger.Named("aggregator"),
		aggregator.WithRecorder(monitorSvc),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("初始化聚合服务失败: %w", err)
	}
	a.aggregator = agg

	return a, nil
}

func (a *App) newMarketCache() (marketcache.Cache, error) {
	switch a.cfg.Cache.Driver {
	case config.CacheDriverNone:
		return nil, nil
	case config.CacheDriverRedis:
		rc := a.cfg.Cache.Redis
		a.redis = redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
			PoolSize: rc.PoolSize,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			_ = a.redis.Close()
			a.redis = nil
			return nil, fmt.Errorf("连接 redis 失败: %w", err)
		}
		return marketcache.NewRedis(a.redis), nil
	default:
		return marketcache.NewMemory(), nil
	}
}

// Credentials 返回凭证存储。
func (a *App) Credentials() *credential.Store {
	return a.credentials
}

// Registry 返回交易所注册表。
func (a *App) Registry() *exchange.Registry {
	return a.registry
}

// Aggregator 返回订单聚合服务。
func (a *App) Aggregator() *aggregator.Service {
	return a.aggregator
}

// Monitor 返回审计服务。
func (a *App) Monitor() *monitor.Service {
	return a.monitor
}

// Handler 返回网关的 HTTP 路由。
func (a *App) Handler() http.Handler {
	return newHandler(a.aggregator, a.monitor, a.cfg.Server.RequestTimeout, a.logger.Named("http"))
}

// Run 启动 HTTP 服务并阻塞到 ctx 结束，随后优雅关闭。
func (a *App) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	a.logger.Info("订单网关已启动",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("addr", addr),
		zap.Strings("exchanges", a.registry.IDs()),
		zap.String("cache", a.cfg.Cache.Driver),
	)

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("HTTP 服务异常退出: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("系统收到退出信号，正在停止")
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭 HTTP 服务失败: %w", err)
	}
	return nil
}

// Close 释放 App 自己创建的资源，store 由调用方关闭。
func (a *App) Close() error {
	var err error
	if a.redis != nil {
		err = multierr.Append(err, a.redis.Close())
	}
	return err
}
