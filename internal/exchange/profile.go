package exchange

import (
	"sort"
	"strings"

	"orders-gateway/internal/config"
)

// HeaderField 把凭证附加字段写入请求头。
type HeaderField struct {
	Field    string
	Header   string
	Required bool
}

// Profile 描述一个交易所在 ccxt 中的接入方式。
type Profile struct {
	ID         string
	Name       string
	ClientID   string
	Mode       FetchMode
	UseSandbox bool
	Options    map[string]interface{}
	Headers    []HeaderField
}

// DefaultProfiles 返回内置的交易所配置。
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		"binance": {
			ID:       "binance",
			Name:     "Binance",
			ClientID: "binance",
			Mode:     FetchModeSplit,
		},
		"huobi": {
			ID:       "huobi",
			Name:     "Huobi",
			ClientID: "huobi",
			Mode:     FetchModeSplit,
			Options: map[string]interface{}{
				"fetchOpenOrdersMethod": "fetch_open_orders_v2",
			},
		},
		"ftx": {
			ID:       "ftx",
			Name:     "FTX",
			ClientID: "ftx",
			Mode:     FetchModeAll,
			Headers: []HeaderField{
				{Field: "Subaccount", Header: "FTX-SUBACCOUNT"},
			},
		},
	}
}

// ProfilesFromConfig 在内置配置之上叠加配置文件中的覆盖项。
// 配置中出现的新 ID 会注册为新交易所，disabled 的交易所被移除。
func ProfilesFromConfig(overrides map[string]config.ExchangeConfig) map[string]Profile {
	profiles := DefaultProfiles()

	ids := make([]string, 0, len(overrides))
	for id := range overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, rawID := range ids {
		cfg := overrides[rawID]
		id := strings.ToLower(strings.TrimSpace(rawID))
		if cfg.Disabled {
			delete(profiles, id)
			continue
		}

		p, ok := profiles[id]
		if !ok {
			p = Profile{ID: id, Name: id, ClientID: id, Mode: FetchModeSplit}
		}
		if cfg.Name != "" {
			p.Name = cfg.Name
		}
		if cfg.ClientID != "" {
			p.ClientID = cfg.ClientID
		}
		if cfg.FetchMode != "" {
			p.Mode = FetchMode(strings.ToLower(cfg.FetchMode))
		}
		if cfg.UseSandbox {
			p.UseSandbox = true
		}
		if len(cfg.Options) > 0 {
			merged := make(map[string]interface{}, len(p.Options)+len(cfg.Options))
			for k, v := range p.Options {
				merged[k] = v
			}
			for _, o := range cfg.Options {
				merged[o.Key] = o.Value
			}
			p.Options = merged
		}
		if len(cfg.Headers) > 0 {
			headers := make([]HeaderField, 0, len(cfg.Headers))
			for _, h := range cfg.Headers {
				headers = append(headers, HeaderField{Field: h.Field, Header: h.Header, Required: h.Required})
			}
			p.Headers = headers
		}
		profiles[id] = p
	}

	return profiles
}
