package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

var (
	// ErrMarketUnavailable 表示交易所未上架该交易对，聚合时直接跳过。
	ErrMarketUnavailable = errors.New("exchange: market unavailable")
	// ErrAuthentication 表示凭证缺失或被交易所拒绝。
	ErrAuthentication = errors.New("exchange: authentication failed")
	// ErrConfiguration 表示交易所配置或凭证附加字段不完整。
	ErrConfiguration = errors.New("exchange: configuration error")
	// ErrFetch 表示拉取订单时的网络或远端错误。
	ErrFetch = errors.New("exchange: fetch failed")
	// ErrMaintenance 表示交易所处于维护状态。
	ErrMaintenance = errors.New("exchange: on maintenance")
	// ErrUnsupportedExchange 表示注册表中没有该交易所。
	ErrUnsupportedExchange = errors.New("exchange: unsupported exchange")
)

// classifyError 把 ccxt 错误映射到本包的错误类别，并给出是否可重试。
func classifyError(err error) (error, bool) {
	if err == nil {
		return nil, false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, false
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		message := strings.TrimSpace(ccxtErr.Message)
		switch ccxtErr.Type {
		case ccxt.NetworkErrorErrType,
			ccxt.RequestTimeoutErrType,
			ccxt.ExchangeNotAvailableErrType,
			ccxt.RateLimitExceededErrType,
			ccxt.DDoSProtectionErrType,
			ccxt.BadResponseErrType,
			ccxt.NullResponseErrType:
			return fmt.Errorf("%w: %w", ErrFetch, err), true
		case ccxt.OnMaintenanceErrType:
			if message == "" {
				message = "exchange under maintenance"
			}
			return fmt.Errorf("%w: %s", ErrMaintenance, message), false
		case ccxt.AuthenticationErrorErrType,
			ccxt.PermissionDeniedErrType,
			ccxt.AccountNotEnabledErrType:
			return fmt.Errorf("%w: %s", ErrAuthentication, message), false
		case ccxt.BadSymbolErrType:
			return fmt.Errorf("%w: %s", ErrMarketUnavailable, message), false
		default:
			return fmt.Errorf("%w: %w", ErrFetch, err), false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrFetch, err), true
	}

	return fmt.Errorf("%w: %w", ErrFetch, err), false
}
