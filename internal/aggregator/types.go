package aggregator

import (
	"context"
	"errors"

	"orders-gateway/internal/credential"
	"orders-gateway/internal/exchange"
)

// ErrorKind 标识单个交易所失败的类别。
type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindConfiguration  ErrorKind = "configuration"
	KindFetch          ErrorKind = "fetch"
	KindTimeout        ErrorKind = "timeout"
	KindCanceled       ErrorKind = "canceled"
	KindMaintenance    ErrorKind = "maintenance"
	KindUnsupported    ErrorKind = "unsupported"
	KindUserNotFound   ErrorKind = "user_not_found"
)

// ExchangeError 描述某个交易所在本次聚合中的失败原因。
type ExchangeError struct {
	Exchange string    `json:"exchange"`
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
}

// Result 为一次聚合的输出，订单列表按交易所拼接。
type Result struct {
	OpenOrders   []exchange.Order `json:"openOrders"`
	ClosedOrders []exchange.Order `json:"closedOrders"`
	Errors       []ExchangeError  `json:"errors"`
	Skipped      []string         `json:"skipped"`
}

// EmptyResult 返回各列表均非 nil 的空结果，序列化为 [] 而不是 null。
func EmptyResult() Result {
	return Result{
		OpenOrders:   []exchange.Order{},
		ClosedOrders: []exchange.Order{},
		Errors:       []ExchangeError{},
		Skipped:      []string{},
	}
}

// Options 控制单次聚合的可选行为。
type Options struct {
	// SortByDatetime 为 true 时按时间升序稳定排序，为 false 时保持拼接顺序，
	// nil 时沿用 aggregator.sort_by_datetime 配置。
	SortByDatetime *bool
}

// CredentialSource 按钱包查询交易所凭证。
type CredentialSource interface {
	GetUserAPIKeys(ctx context.Context, walletID string) ([]credential.UserExchangeCredential, error)
}

// AdapterFactory 用凭证构造交易所适配器。
type AdapterFactory interface {
	New(cred credential.UserExchangeCredential) (exchange.Adapter, error)
}

// ClassifyError 把适配器返回的错误映射为 ErrorKind。
func ClassifyError(err error) ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, credential.ErrUserNotFound):
		return KindUserNotFound
	case errors.Is(err, exchange.ErrUnsupportedExchange):
		return KindUnsupported
	case errors.Is(err, exchange.ErrAuthentication):
		return KindAuthentication
	case errors.Is(err, exchange.ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, exchange.ErrMaintenance):
		return KindMaintenance
	default:
		return KindFetch
	}
}
