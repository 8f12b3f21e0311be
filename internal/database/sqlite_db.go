package escrowdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
)

const (
	metaKeyOwner  = "owner"
	metaKeyParams = "params"

	balanceKindHeld = "held"
	balanceKindFee  = "fee"
)

// SQLiteDB is the gorm-backed database implementation
type SQLiteDB struct {
	db *gorm.DB
}

// InitSQLiteDB opens (and migrates) the SQLite database
func InitSQLiteDB(dbPath string) (*SQLiteDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %v", err)
		}
	}

	// Configure GORM to be less verbose
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), config)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	err = db.AutoMigrate(
		&SQLiteTransfer{},
		&SQLiteLedgerBalance{},
		&SQLiteAccountBalance{},
		&SQLiteAddressActivity{},
		&SQLiteAsset{},
		&SQLiteChallenge{},
		&SQLiteMetadata{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	log.Println("SQLite database initialized successfully")
	return &SQLiteDB{db: db}, nil
}

func (s *SQLiteDB) SaveTransfer(t ledger.Transfer) error {
	var rec SQLiteTransfer
	err := s.db.Where("transfer_id = ?", t.ID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = SQLiteTransfer{TransferID: t.ID}
	} else if err != nil {
		return err
	}
	rec.Sender = t.Sender
	rec.Receiver = t.Receiver
	rec.Asset = t.Asset
	rec.Amount = t.Amount
	rec.CreatedTime = t.CreatedAt
	rec.ExpiresTime = t.ExpiresAt
	rec.Commitment = t.Commitment
	rec.Salt = t.Salt
	rec.Status = int(t.Status)
	return s.db.Save(&rec).Error
}

func (s *SQLiteDB) saveLedgerBalance(asset, kind string, balance uint64) error {
	var rec SQLiteLedgerBalance
	err := s.db.Where("asset = ? AND kind = ?", asset, kind).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = SQLiteLedgerBalance{Asset: asset, Kind: kind}
	} else if err != nil {
		return err
	}
	rec.Balance = balance
	return s.db.Save(&rec).Error
}

func (s *SQLiteDB) SaveHeldBalance(asset string, balance uint64) error {
	return s.saveLedgerBalance(asset, balanceKindHeld, balance)
}

func (s *SQLiteDB) SaveFeeBalance(asset string, balance uint64) error {
	return s.saveLedgerBalance(asset, balanceKindFee, balance)
}

func (s *SQLiteDB) SaveActivity(a ledger.AddressActivity) error {
	var rec SQLiteAddressActivity
	err := s.db.Where("address = ?", a.Address).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = SQLiteAddressActivity{Address: a.Address}
	} else if err != nil {
		return err
	}
	rec.LastInteraction = a.LastInteraction
	rec.LastCleanup = a.LastCleanup
	return s.db.Save(&rec).Error
}

func (s *SQLiteDB) DeleteActivity(address string) error {
	return s.db.Unscoped().Where("address = ?", address).Delete(&SQLiteAddressActivity{}).Error
}

func (s *SQLiteDB) SaveAsset(asset string, whitelisted bool) error {
	var rec SQLiteAsset
	err := s.db.Where("asset = ?", asset).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = SQLiteAsset{Asset: asset}
	} else if err != nil {
		return err
	}
	rec.Whitelisted = whitelisted
	return s.db.Save(&rec).Error
}

func (s *SQLiteDB) saveMetadata(key, value string) error {
	var rec SQLiteMetadata
	err := s.db.Where("key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = SQLiteMetadata{Key: key}
	} else if err != nil {
		return err
	}
	rec.Value = value
	return s.db.Save(&rec).Error
}

func (s *SQLiteDB) SaveOwner(owner string) error {
	return s.saveMetadata(metaKeyOwner, owner)
}

func (s *SQLiteDB) SaveParams(p ledger.Params) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.saveMetadata(metaKeyParams, string(data))
}

func (s *SQLiteDB) SaveAccountBalance(account, asset string, balance uint64) error {
	var rec SQLiteAccountBalance
	err := s.db.Where("account = ? AND asset = ?", account, asset).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = SQLiteAccountBalance{Account: account, Asset: asset}
	} else if err != nil {
		return err
	}
	rec.Balance = balance
	return s.db.Save(&rec).Error
}

// LoadLedgerSnapshot reads everything the ledger needs to rebuild itself
func (s *SQLiteDB) LoadLedgerSnapshot() (ledger.Snapshot, error) {
	snap := ledger.Snapshot{
		FeeBalances:  make(map[string]uint64),
		HeldBalances: make(map[string]uint64),
		Assets:       make(map[string]bool),
	}

	var transfers []SQLiteTransfer
	if err := s.db.Order("transfer_id asc").Find(&transfers).Error; err != nil {
		return snap, err
	}
	for _, rec := range transfers {
		snap.Transfers = append(snap.Transfers, ledger.Transfer{
			ID:         rec.TransferID,
			Sender:     rec.Sender,
			Receiver:   rec.Receiver,
			Asset:      rec.Asset,
			Amount:     rec.Amount,
			CreatedAt:  rec.CreatedTime,
			ExpiresAt:  rec.ExpiresTime,
			Commitment: rec.Commitment,
			Salt:       rec.Salt,
			Status:     ledger.Status(rec.Status),
		})
	}

	var balances []SQLiteLedgerBalance
	if err := s.db.Find(&balances).Error; err != nil {
		return snap, err
	}
	for _, rec := range balances {
		if rec.Kind == balanceKindHeld {
			snap.HeldBalances[rec.Asset] = rec.Balance
		} else {
			snap.FeeBalances[rec.Asset] = rec.Balance
		}
	}

	var activities []SQLiteAddressActivity
	if err := s.db.Find(&activities).Error; err != nil {
		return snap, err
	}
	for _, rec := range activities {
		snap.Activities = append(snap.Activities, ledger.AddressActivity{
			Address:         rec.Address,
			LastInteraction: rec.LastInteraction,
			LastCleanup:     rec.LastCleanup,
		})
	}

	var assets []SQLiteAsset
	if err := s.db.Find(&assets).Error; err != nil {
		return snap, err
	}
	for _, rec := range assets {
		snap.Assets[rec.Asset] = rec.Whitelisted
	}

	var meta SQLiteMetadata
	if err := s.db.Where("key = ?", metaKeyOwner).First(&meta).Error; err == nil {
		snap.Owner = meta.Value
	}
	if err := s.db.Where("key = ?", metaKeyParams).First(&meta).Error; err == nil {
		var p ledger.Params
		if err := json.Unmarshal([]byte(meta.Value), &p); err == nil {
			snap.Params = &p
		} else {
			log.Printf("Error decoding persisted params: %v", err)
		}
	}

	return snap, nil
}

func (s *SQLiteDB) LoadAccountBalances() (map[string]map[string]uint64, error) {
	var records []SQLiteAccountBalance
	if err := s.db.Find(&records).Error; err != nil {
		return nil, err
	}
	out := make(map[string]map[string]uint64)
	for _, rec := range records {
		if out[rec.Account] == nil {
			out[rec.Account] = make(map[string]uint64)
		}
		out[rec.Account][rec.Asset] = rec.Balance
	}
	return out, nil
}

func (s *SQLiteDB) SaveChallenge(c Challenge) error {
	rec := SQLiteChallenge{
		Challenge: c.Challenge,
		Hash:      c.Hash,
		Status:    c.Status,
		IssuedAt:  c.CreatedAt,
		UsedAt:    c.UsedAt,
	}
	return s.db.Create(&rec).Error
}

func (s *SQLiteDB) GetChallenge(hash string) (*Challenge, error) {
	var rec SQLiteChallenge
	if err := s.db.Where("hash = ?", hash).First(&rec).Error; err != nil {
		return nil, err
	}
	return &Challenge{
		Challenge: rec.Challenge,
		Hash:      rec.Hash,
		Status:    rec.Status,
		CreatedAt: rec.IssuedAt,
		UsedAt:    rec.UsedAt,
	}, nil
}

func (s *SQLiteDB) MarkChallengeUsed(hash string) error {
	now := time.Now()
	return s.db.Model(&SQLiteChallenge{}).
		Where("hash = ?", hash).
		Updates(map[string]interface{}{"status": "used", "used_at": &now}).Error
}

func (s *SQLiteDB) ExpireOldChallenges(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)
	return s.db.Model(&SQLiteChallenge{}).
		Where("status = ? AND issued_at < ?", "unused", cutoff).
		Update("status", "expired").Error
}

func (s *SQLiteDB) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
