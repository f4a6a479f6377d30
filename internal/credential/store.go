package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"orders-gateway/internal/store"
)

// Store 基于 gorm 持久化钱包与交易所凭证。
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore 初始化凭证存储并迁移表结构。
func NewStore(st *store.Store, logger *zap.Logger) (*Store, error) {
	if st == nil {
		return nil, errors.New("credential: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db := st.Gorm()
	if err := db.AutoMigrate(&walletRecord{}, &credentialRecord{}, &extraFieldRecord{}); err != nil {
		return nil, fmt.Errorf("credential: 初始化表失败: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// GetUserAPIKeys 返回钱包登记的全部交易所凭证，按写入顺序排列。
func (s *Store) GetUserAPIKeys(ctx context.Context, walletID string) ([]UserExchangeCredential, error) {
	walletID = strings.TrimSpace(walletID)
	if walletID == "" {
		return nil, ErrUserNotFound
	}

	var wallet walletRecord
	err := s.db.WithContext(ctx).Where("wallet_id = ?", walletID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, walletID)
	}
	if err != nil {
		return nil, fmt.Errorf("credential: 查询钱包失败: %w", err)
	}

	var records []credentialRecord
	err = s.db.WithContext(ctx).
		Preload("ExtraFields", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("wallet_id = ?", walletID).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("credential: 查询凭证失败: %w", err)
	}

	creds := make([]UserExchangeCredential, 0, len(records))
	for _, r := range records {
		creds = append(creds, r.toCredential())
	}
	return creds, nil
}

// RegisterWallet 登记钱包，已存在时不做任何修改。
func (s *Store) RegisterWallet(ctx context.Context, walletID string) error {
	walletID = strings.TrimSpace(walletID)
	if walletID == "" {
		return fmt.Errorf("%w: wallet 不能为空", ErrInvalidCredential)
	}
	return s.ensureWallet(s.db.WithContext(ctx), walletID)
}

// PutCredential 写入或覆盖钱包在某交易所的凭证，附加字段整体替换并保留顺序。
func (s *Store) PutCredential(ctx context.Context, walletID string, cred UserExchangeCredential) error {
	walletID = strings.TrimSpace(walletID)
	cred.ExchangeID = NormalizeExchangeID(cred.ExchangeID)
	if err := validate(walletID, cred); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureWallet(tx, walletID); err != nil {
			return err
		}

		var record credentialRecord
		err := tx.Where("wallet_id = ? AND exchange_id = ?", walletID, cred.ExchangeID).First(&record).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record = credentialRecord{WalletID: walletID, ExchangeID: cred.ExchangeID}
		case err != nil:
			return err
		}

		record.APIKey = cred.APIKey
		record.APISecret = cred.APISecret
		record.Password = cred.Password
		record.ExtraFields = nil
		if err := tx.Save(&record).Error; err != nil {
			return err
		}

		if err := tx.Where("credential_id = ?", record.ID).Delete(&extraFieldRecord{}).Error; err != nil {
			return err
		}
		if len(cred.ExtraFields) == 0 {
			return nil
		}

		fields := make([]extraFieldRecord, 0, len(cred.ExtraFields))
		for i, f := range cred.ExtraFields {
			fields = append(fields, extraFieldRecord{
				CredentialID: record.ID,
				Position:     i,
				FieldName:    f.FieldName,
				Value:        f.Value,
			})
		}
		return tx.Create(&fields).Error
	})
	if err != nil {
		return fmt.Errorf("credential: 写入凭证失败: %w", err)
	}

	s.logger.Info("交易所凭证已更新",
		zap.String("wallet", walletID),
		zap.String("exchange", cred.ExchangeID),
		zap.Int("extra_fields", len(cred.ExtraFields)),
	)
	return nil
}

// DeleteCredential 删除钱包在某交易所的凭证，返回是否有记录被删除。
func (s *Store) DeleteCredential(ctx context.Context, walletID, exchangeID string) (bool, error) {
	exchangeID = NormalizeExchangeID(exchangeID)

	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record credentialRecord
		err := tx.Where("wallet_id = ? AND exchange_id = ?", strings.TrimSpace(walletID), exchangeID).First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("credential_id = ?", record.ID).Delete(&extraFieldRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&record).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("credential: 删除凭证失败: %w", err)
	}
	return deleted, nil
}

// ListWallets 返回全部已登记钱包。
func (s *Store) ListWallets(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&walletRecord{}).Order("id ASC").Pluck("wallet_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("credential: 查询钱包列表失败: %w", err)
	}
	return ids, nil
}

func (s *Store) ensureWallet(tx *gorm.DB, walletID string) error {
	wallet := walletRecord{WalletID: walletID}
	return tx.Where(walletRecord{WalletID: walletID}).FirstOrCreate(&wallet).Error
}

func validate(walletID string, cred UserExchangeCredential) error {
	switch {
	case walletID == "":
		return fmt.Errorf("%w: wallet 不能为空", ErrInvalidCredential)
	case cred.ExchangeID == "":
		return fmt.Errorf("%w: exchange 不能为空", ErrInvalidCredential)
	case strings.TrimSpace(cred.APIKey) == "" || strings.TrimSpace(cred.APISecret) == "":
		return fmt.Errorf("%w: api key 与 secret 不能为空", ErrInvalidCredential)
	}
	for i, f := range cred.ExtraFields {
		if strings.TrimSpace(f.FieldName) == "" {
			return fmt.Errorf("%w: extraFields[%d] 缺少字段名", ErrInvalidCredential, i)
		}
	}
	return nil
}
