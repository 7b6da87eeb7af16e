package deposit

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Record is the stored form of a deposit.
type Record struct {
	ID        uint            `gorm:"primaryKey"`
	TxHash    string          `gorm:"size:64;not null;uniqueIndex"`
	LT        uint64          `gorm:"not null"`
	Kind      string          `gorm:"size:16;not null"`
	Asset     string          `gorm:"size:32;not null;index:idx_deposit_asset_comment"`
	Sender    string          `gorm:"size:80"`
	Amount    decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	Decimals  int32           `gorm:"not null"`
	Comment   string          `gorm:"size:255;index:idx_deposit_asset_comment"`
	ChainTime time.Time
	CreatedAt time.Time
}

// TableName implements gorm's tabler.
func (Record) TableName() string {
	return "deposits"
}

// Ledger books deposits in Postgres. Crediting is idempotent on the
// transaction hash, so redelivered transactions are booked once.
type Ledger struct {
	db *gorm.DB
}

// OpenLedger connects to Postgres at dsn.
func OpenLedger(dsn string) (*Ledger, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("deposit: connect: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return NewLedger(db), nil
}

// NewLedger wraps an open database.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Migrate creates or updates the deposits table.
func (l *Ledger) Migrate(ctx context.Context) error {
	return l.db.WithContext(ctx).AutoMigrate(&Record{})
}

// Credit books d. created is false when the transaction was already booked.
func (l *Ledger) Credit(ctx context.Context, d *Deposit) (created bool, err error) {
	rec := Record{
		TxHash:    d.TxHash.HexBare(),
		LT:        d.LT,
		Kind:      string(d.Kind),
		Asset:     d.Asset,
		Amount:    decimal.NewFromBigInt(d.Amount, 0),
		Decimals:  d.Decimals,
		Comment:   d.Comment,
		ChainTime: d.Time,
	}
	if d.From != nil {
		rec.Sender = d.From.String()
	}

	res := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "tx_hash"}}, DoNothing: true}).
		Create(&rec)
	if res.Error != nil {
		return false, fmt.Errorf("deposit: credit %s: %w", rec.TxHash, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Balance returns the total deposited for asset under comment, in base units.
func (l *Ledger) Balance(ctx context.Context, asset, comment string) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := l.db.WithContext(ctx).
		Model(&Record{}).
		Select("SUM(amount)").
		Where("asset = ? AND comment = ?", asset, comment).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("deposit: balance: %w", err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
