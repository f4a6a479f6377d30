package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"orders-gateway/internal/app"
	"orders-gateway/internal/config"
	"orders-gateway/internal/log"
	"orders-gateway/internal/store"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "gateway",
		Short: "Aggregate a wallet's orders across Binance, Huobi and FTX",
		Long: `gateway 查询钱包在各交易所的未完结与已完结订单并合并返回。

Examples:
  gateway serve
  gateway orders 0xabc BTC-USDT --sort
  gateway credentials put 0xabc ftx --key K --secret S --extra Subaccount=main`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径，默认使用 configs/config.yaml")

	rootCmd.AddCommand(newServeCmd(), newOrdersCmd(), newCredentialsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deps 为各子命令共用的依赖。
type deps struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	app    *app.App
}

func bootstrap() (*deps, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}

	gateway, err := app.New(cfg, logger, sqliteStore)
	if err != nil {
		_ = sqliteStore.Close()
		_ = logger.Sync()
		return nil, err
	}

	return &deps{cfg: cfg, logger: logger, store: sqliteStore, app: gateway}, nil
}

func (r *deps) Close() {
	if err := r.app.Close(); err != nil {
		r.logger.Warn("释放资源失败", zap.Error(err))
	}
	if err := r.store.Close(); err != nil {
		r.logger.Warn("关闭数据库失败", zap.Error(err))
	}
	_ = r.logger.Sync()
}
