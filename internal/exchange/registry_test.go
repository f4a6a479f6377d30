package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orders-gateway/internal/credential"
)

func TestNewCCXTClient(t *testing.T) {
	userConfig := func() map[string]interface{} {
		return map[string]interface{}{"apiKey": "k", "secret": "s", "enableRateLimit": true}
	}

	tests := []struct {
		clientID string
		wantErr  error
	}{
		{clientID: "binance"},
		{clientID: "huobi"},
		{clientID: "BINANCE"},
		// ccxt 已移除 ftx
		{clientID: "ftx", wantErr: ErrConfiguration},
		{clientID: "no-such-exchange", wantErr: ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.clientID, func(t *testing.T) {
			client, err := newCCXTClient(tt.clientID, userConfig(), false)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestRegistry_DefaultFactory(t *testing.T) {
	reg := NewRegistry(DefaultProfiles(), testRetry, nil)

	adapter, err := reg.New(binanceCred())
	require.NoError(t, err)
	assert.Equal(t, "Binance", adapter.ExchangeID())

	_, err = reg.New(credential.UserExchangeCredential{ExchangeID: "huobi", APIKey: "k", APISecret: "s"})
	require.NoError(t, err)

	_, err = reg.New(credential.UserExchangeCredential{
		ExchangeID:  "ftx",
		APIKey:      "k",
		APISecret:   "s",
		ExtraFields: []credential.ExtraField{{FieldName: "Subaccount", Value: "main"}},
	})
	assert.ErrorIs(t, err, ErrConfiguration)
}
