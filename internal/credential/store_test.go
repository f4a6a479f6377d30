package credential

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orders-gateway/internal/config"
	"orders-gateway/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := store.NewSQLite(config.DatabaseConfig{InMemory: true, MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	s, err := NewStore(st, nil)
	require.NoError(t, err)
	return s
}

func TestGetUserAPIKeys_UnknownWallet(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUserAPIKeys(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUserAPIKeys_WalletWithoutCredentials(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.RegisterWallet(ctx, "0xabc"))

	creds, err := s.GetUserAPIKeys(ctx, "0xabc")
	require.NoError(t, err)
	assert.NotNil(t, creds)
	assert.Empty(t, creds)
}

func TestPutCredential_RoundTripPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutCredential(ctx, "0xabc", UserExchangeCredential{
		ExchangeID: "Binance",
		APIKey:     "bk",
		APISecret:  "bs",
	}))
	require.NoError(t, s.PutCredential(ctx, "0xabc", UserExchangeCredential{
		ExchangeID: "ftx",
		APIKey:     "fk",
		APISecret:  "fs",
		ExtraFields: []ExtraField{
			{FieldName: "Subaccount", Value: "depo_test"},
			{FieldName: "Label", Value: "main"},
		},
	}))

	creds, err := s.GetUserAPIKeys(ctx, "0xabc")
	require.NoError(t, err)
	require.Len(t, creds, 2)

	assert.Equal(t, "binance", creds[0].ExchangeID)
	assert.Empty(t, creds[0].ExtraFields)

	assert.Equal(t, "ftx", creds[1].ExchangeID)
	assert.Equal(t, []ExtraField{
		{FieldName: "Subaccount", Value: "depo_test"},
		{FieldName: "Label", Value: "main"},
	}, creds[1].ExtraFields)

	sub, ok := creds[1].Extra("subaccount")
	assert.True(t, ok)
	assert.Equal(t, "depo_test", sub)
}

func TestPutCredential_OverwritesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutCredential(ctx, "w", UserExchangeCredential{
		ExchangeID:  "ftx",
		APIKey:      "old",
		APISecret:   "old",
		ExtraFields: []ExtraField{{FieldName: "Subaccount", Value: "a"}},
	}))
	require.NoError(t, s.PutCredential(ctx, "w", UserExchangeCredential{
		ExchangeID: "FTX",
		APIKey:     "new",
		APISecret:  "new",
	}))

	creds, err := s.GetUserAPIKeys(ctx, "w")
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "new", creds[0].APIKey)
	assert.Empty(t, creds[0].ExtraFields)
}

func TestPutCredential_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.PutCredential(ctx, "w", UserExchangeCredential{ExchangeID: "binance", APIKey: "k"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	err = s.PutCredential(ctx, "", UserExchangeCredential{ExchangeID: "binance", APIKey: "k", APISecret: "s"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	err = s.PutCredential(ctx, "w", UserExchangeCredential{
		ExchangeID:  "ftx",
		APIKey:      "k",
		APISecret:   "s",
		ExtraFields: []ExtraField{{FieldName: " ", Value: "x"}},
	})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestDeleteCredential(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutCredential(ctx, "w", UserExchangeCredential{
		ExchangeID:  "ftx",
		APIKey:      "k",
		APISecret:   "s",
		ExtraFields: []ExtraField{{FieldName: "Subaccount", Value: "a"}},
	}))

	deleted, err := s.DeleteCredential(ctx, "w", "FTX")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteCredential(ctx, "w", "ftx")
	require.NoError(t, err)
	assert.False(t, deleted)

	creds, err := s.GetUserAPIKeys(ctx, "w")
	require.NoError(t, err)
	assert.Empty(t, creds)

	wallets, err := s.ListWallets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"w"}, wallets)
}
