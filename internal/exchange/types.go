package exchange

import (
	"time"

	"github.com/shopspring/decimal"
)

// 价格与数量以 JSON 数字输出，与 ccxt 返回的订单格式一致。
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderStatus 为聚合后的订单状态，只区分未完结与已完结。
type OrderStatus string

const (
	OrderStatusOpen   OrderStatus = "open"
	OrderStatusClosed OrderStatus = "closed"
)

// FetchMode 描述交易所拉取订单的方式。
type FetchMode string

const (
	// FetchModeSplit 分别调用未完结与已完结订单接口。
	FetchModeSplit FetchMode = "split"
	// FetchModeAll 拉取全部订单后在本地按状态划分。
	FetchModeAll FetchMode = "all"
)

// Order 为统一格式的订单，Info 保留交易所原始数据。
type Order struct {
	ID            string                 `json:"id"`
	ClientOrderID string                 `json:"clientOrderId,omitempty"`
	Exchange      string                 `json:"exchange"`
	Symbol        string                 `json:"symbol"`
	Status        OrderStatus            `json:"status"`
	RawStatus     string                 `json:"rawStatus,omitempty"`
	Type          string                 `json:"type,omitempty"`
	Side          string                 `json:"side,omitempty"`
	Price         decimal.Decimal        `json:"price"`
	Amount        decimal.Decimal        `json:"amount"`
	Filled        decimal.Decimal        `json:"filled"`
	Remaining     decimal.Decimal        `json:"remaining"`
	Timestamp     int64                  `json:"timestamp"`
	Datetime      *time.Time             `json:"datetime,omitempty"`
	Info          map[string]interface{} `json:"info,omitempty"`
}

// OrderSet 为单个交易所按状态划分的订单。
type OrderSet struct {
	Open   []Order
	Closed []Order
}
