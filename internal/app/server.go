package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"orders-gateway/internal/aggregator"
	"orders-gateway/internal/credential"
	"orders-gateway/internal/monitor"
)

type orderAggregator interface {
	AggregateOrders(ctx context.Context, walletID, symbol string, opts aggregator.Options) (aggregator.Result, error)
}

type eventLister interface {
	ListEvents(ctx context.Context, eventType monitor.EventType, limit int) ([]monitor.Event, error)
}

// orderbookResponse 为 /orderbook 的响应包装。
type orderbookResponse struct {
	Response aggregator.Result `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newHandler(agg orderAggregator, events eventLister, requestTimeout time.Duration, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{
		agg:            agg,
		events:         events,
		requestTimeout: requestTimeout,
		logger:         logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orderbook/{walletId}/{symbol}", h.orderbook)
	mux.HandleFunc("GET /events", h.listEvents)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

type handler struct {
	agg            orderAggregator
	events         eventLister
	requestTimeout time.Duration
	logger         *zap.Logger
}

func (h *handler) orderbook(w http.ResponseWriter, r *http.Request) {
	walletID := strings.TrimSpace(r.PathValue("walletId"))
	symbol := strings.TrimSpace(r.PathValue("symbol"))
	if walletID == "" || symbol == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "walletId 与 symbol 不能为空"})
		return
	}

	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	var opts aggregator.Options
	switch sortBy := strings.ToLower(r.URL.Query().Get("sort")); sortBy {
	case "":
	case "datetime":
		opts.SortByDatetime = lo.ToPtr(true)
	case "none":
		opts.SortByDatetime = lo.ToPtr(false)
	default:
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sort 只支持 datetime 或 none: " + sortBy})
		return
	}

	result, err := h.agg.AggregateOrders(ctx, walletID, symbol, opts)
	switch {
	case errors.Is(err, credential.ErrUserNotFound):
		result = aggregator.EmptyResult()
		result.Errors = append(result.Errors, aggregator.ExchangeError{
			Kind:    aggregator.KindUserNotFound,
			Message: err.Error(),
		})
	case err != nil:
		h.logger.Error("订单聚合失败", zap.String("wallet", walletID), zap.String("symbol", symbol), zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, orderbookResponse{Response: result})
}

func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 200
	if qs := q.Get("limit"); qs != "" {
		if v, err := strconv.Atoi(qs); err == nil && v > 0 {
			if v > 1000 {
				v = 1000
			}
			limit = v
		}
	}

	eventType := monitor.EventType("")
	if typ := strings.TrimSpace(q.Get("type")); typ != "" {
		eventType = monitor.EventType(strings.ToLower(typ))
	}

	events, err := h.events.ListEvents(r.Context(), eventType, limit)
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("写入响应失败", zap.Error(err))
	}
}
