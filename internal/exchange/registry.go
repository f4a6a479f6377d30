package exchange

import (
	"fmt"
	"sort"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"orders-gateway/internal/config"
	"orders-gateway/internal/credential"
	"orders-gateway/internal/marketcache"
)

// ClientFactory 根据 ccxt 交易所 ID 与用户配置创建底层客户端。
type ClientFactory func(clientID string, userConfig map[string]interface{}, sandbox bool) (orderClient, error)

// Registry 维护交易所 ID 到接入配置的映射，并为每次请求构造适配器。
type Registry struct {
	profiles  map[string]Profile
	retry     config.RetryConfig
	timeout   time.Duration
	cache     marketcache.Cache
	cacheTTL  time.Duration
	newClient ClientFactory
	logger    *zap.Logger
}

// RegistryOption 调整 Registry 的可选参数。
type RegistryOption func(*Registry)

// WithMarketCache 为市场列表启用缓存。
func WithMarketCache(cache marketcache.Cache, ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		r.cache = cache
		r.cacheTTL = ttl
	}
}

// WithRequestTimeout 设置 ccxt 单次 HTTP 请求超时。
func WithRequestTimeout(timeout time.Duration) RegistryOption {
	return func(r *Registry) {
		r.timeout = timeout
	}
}

// WithClientFactory 替换底层客户端的构造方式。
func WithClientFactory(factory ClientFactory) RegistryOption {
	return func(r *Registry) {
		r.newClient = factory
	}
}

// NewRegistry 创建适配器注册表。
func NewRegistry(profiles map[string]Profile, retry config.RetryConfig, logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		profiles:  profiles,
		retry:     retry,
		newClient: newCCXTClient,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supports 判断交易所 ID 是否已注册。
func (r *Registry) Supports(exchangeID string) bool {
	_, ok := r.profiles[credential.NormalizeExchangeID(exchangeID)]
	return ok
}

// IDs 返回已注册的交易所 ID。
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// New 用给定凭证构造一个新的适配器，不与其他请求共享客户端状态。
func (r *Registry) New(cred credential.UserExchangeCredential) (Adapter, error) {
	profile, ok := r.profiles[credential.NormalizeExchangeID(cred.ExchangeID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExchange, cred.ExchangeID)
	}

	raw, err := r.newClient(profile.ClientID, r.userConfig(profile, cred), profile.UseSandbox)
	if err != nil {
		return nil, err
	}

	logger := r.logger.With(zap.String("exchange", profile.ID))
	return &ccxtAdapter{
		profile:  profile,
		cred:     cred,
		client:   newClient(profile.Name, raw, r.retry, logger),
		cache:    r.cache,
		cacheTTL: r.cacheTTL,
		logger:   logger,
	}, nil
}

func (r *Registry) userConfig(profile Profile, cred credential.UserExchangeCredential) map[string]interface{} {
	userConfig := map[string]interface{}{
		"enableRateLimit": true,
	}
	if r.timeout > 0 {
		userConfig["timeout"] = r.timeout.Milliseconds()
	}
	if cred.APIKey != "" {
		userConfig["apiKey"] = cred.APIKey
	}
	if cred.APISecret != "" {
		userConfig["secret"] = cred.APISecret
	}
	if cred.Password != "" {
		userConfig["password"] = cred.Password
	}

	if len(profile.Options) > 0 {
		options := make(map[string]interface{}, len(profile.Options))
		for k, v := range profile.Options {
			options[k] = v
		}
		userConfig["options"] = options
	}

	headers := make(map[string]interface{})
	for _, h := range profile.Headers {
		if value, ok := cred.Extra(h.Field); ok && value != "" {
			headers[h.Header] = value
		}
	}
	if len(headers) > 0 {
		userConfig["headers"] = headers
	}

	return userConfig
}

// ccxt 各版本的 SetSandboxMode 参数类型不一致，两种都接受。
type (
	sandboxSetter interface {
		SetSandboxMode(enable bool)
	}
	sandboxSetterAny interface {
		SetSandboxMode(enable interface{})
	}
)

func newCCXTClient(clientID string, userConfig map[string]interface{}, sandbox bool) (client orderClient, err error) {
	defer func() {
		if r := recover(); r != nil {
			client, err = nil, fmt.Errorf("%w: 创建 %s 客户端失败: %v", ErrConfiguration, clientID, r)
		}
	}()

	ex := ccxt.CreateExchange(clientID, userConfig)
	if ex == nil {
		return nil, fmt.Errorf("%w: ccxt 不支持交易所 %s", ErrConfiguration, clientID)
	}

	if sandbox {
		switch setter := ex.(type) {
		case sandboxSetter:
			setter.SetSandboxMode(true)
		case sandboxSetterAny:
			setter.SetSandboxMode(true)
		default:
			return nil, fmt.Errorf("%w: %s 不支持沙盒模式", ErrConfiguration, clientID)
		}
	}

	client, ok := ex.(orderClient)
	if !ok {
		return nil, fmt.Errorf("%w: %s 缺少订单查询接口", ErrConfiguration, clientID)
	}
	return client, nil
}
