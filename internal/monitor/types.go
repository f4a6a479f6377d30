package monitor

import "time"

// EventType 表示审计事件类型。
type EventType string

const (
	EventAggregation   EventType = "aggregation"
	EventExchangeError EventType = "exchange_error"
)

// Event 封装通用审计事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AggregationPayload 记录一次订单聚合的概要。
type AggregationPayload struct {
	RequestID   string   `json:"requestId"`
	WalletID    string   `json:"walletId"`
	Symbol      string   `json:"symbol"`
	Exchanges   []string `json:"exchanges"`
	OpenCount   int      `json:"openCount"`
	ClosedCount int      `json:"closedCount"`
	Skipped     []string `json:"skipped,omitempty"`
	ErrorCount  int      `json:"errorCount"`
	DurationMs  int64    `json:"durationMs"`
}

// ExchangeErrorPayload 记录单个交易所的失败。
type ExchangeErrorPayload struct {
	RequestID string `json:"requestId"`
	WalletID  string `json:"walletId"`
	Symbol    string `json:"symbol"`
	Exchange  string `json:"exchange"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}
