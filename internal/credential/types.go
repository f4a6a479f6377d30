package credential

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrUserNotFound 表示钱包未登记。
	ErrUserNotFound = errors.New("credential: user not found")
	// ErrInvalidCredential 表示写入的凭证缺少必要字段。
	ErrInvalidCredential = errors.New("credential: invalid credential")
)

// ExtraField 为交易所特有的附加配置，例如子账户。
type ExtraField struct {
	FieldName string `json:"fieldName"`
	Value     string `json:"value"`
}

// UserExchangeCredential 对应用户在单个交易所的一套 API 凭证。
type UserExchangeCredential struct {
	ExchangeID  string       `json:"exchangeId"`
	APIKey      string       `json:"apiKey"`
	APISecret   string       `json:"apiSecret"`
	Password    string       `json:"password,omitempty"`
	ExtraFields []ExtraField `json:"extraFields"`
}

// Extra 按字段名查找附加字段，名称比较不区分大小写。
func (c UserExchangeCredential) Extra(name string) (string, bool) {
	for _, f := range c.ExtraFields {
		if strings.EqualFold(f.FieldName, name) {
			return f.Value, true
		}
	}
	return "", false
}

// NormalizeExchangeID 统一交易所 ID 的比较形式。
func NormalizeExchangeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

type walletRecord struct {
	ID        uint   `gorm:"primaryKey"`
	WalletID  string `gorm:"size:128;uniqueIndex;not null"`
	CreatedAt time.Time
}

func (walletRecord) TableName() string { return "wallets" }

type credentialRecord struct {
	ID          uint   `gorm:"primaryKey"`
	WalletID    string `gorm:"size:128;not null;uniqueIndex:idx_wallet_exchange"`
	ExchangeID  string `gorm:"size:64;not null;uniqueIndex:idx_wallet_exchange"`
	APIKey      string `gorm:"not null"`
	APISecret   string `gorm:"not null"`
	Password    string
	ExtraFields []extraFieldRecord `gorm:"foreignKey:CredentialID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (credentialRecord) TableName() string { return "exchange_credentials" }

type extraFieldRecord struct {
	ID           uint `gorm:"primaryKey"`
	CredentialID uint `gorm:"index;not null"`
	Position     int  `gorm:"not null"`
	FieldName    string
	Value        string
}

func (extraFieldRecord) TableName() string { return "credential_extra_fields" }

func (r credentialRecord) toCredential() UserExchangeCredential {
	fields := make([]ExtraField, 0, len(r.ExtraFields))
	for _, f := range r.ExtraFields {
		fields = append(fields, ExtraField{FieldName: f.FieldName, Value: f.Value})
	}
	return UserExchangeCredential{
		ExchangeID:  r.ExchangeID,
		APIKey:      r.APIKey,
		APISecret:   r.APISecret,
		Password:    r.Password,
		ExtraFields: fields,
	}
}
