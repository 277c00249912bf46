package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Wallet represents the wallets table.
type Wallet struct {
	WalletID     string    `gorm:"type:uuid;primaryKey"`
	UserID       string    `gorm:"not null;index:uniq_wallets_user,unique"`
	BalanceCents int64     `gorm:"not null"`
	Currency     string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (Wallet) TableName() string { return "wallets" }

func (walletRow *Wallet) BeforeCreate(tx *gorm.DB) error {
	if walletRow.WalletID == "" {
		walletRow.WalletID = uuid.NewString()
	}
	return nil
}

// LedgerEntry mirrors the ledger_entries table.
type LedgerEntry struct {
	EntryID     string         `gorm:"type:uuid;primaryKey"`
	WalletID    string         `gorm:"type:uuid;not null;index:idx_ledger_wallet_created,priority:1"`
	Kind        string         `gorm:"not null;index:idx_ledger_kind_status,priority:1"`
	AmountCents int64          `gorm:"not null"`
	Status      string         `gorm:"not null;index:idx_ledger_kind_status,priority:2"`
	Reference   string         `gorm:""`
	Metadata    datatypes.JSON `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"not null;index:idx_ledger_wallet_created,priority:2"`
	ResolvedAt  *time.Time     `gorm:""`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

func (entry *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	return nil
}

// BetEvent mirrors the bet_events table. Options and odds are frozen at
// creation and stored as JSON documents.
type BetEvent struct {
	EventID       string         `gorm:"type:uuid;primaryKey"`
	Title         string         `gorm:"not null"`
	Description   string         `gorm:""`
	Options       datatypes.JSON `gorm:"not null"`
	Odds          datatypes.JSON `gorm:"not null"`
	Status        string         `gorm:"not null;index"`
	WinningOption string         `gorm:""`
	CreatedAt     time.Time      `gorm:"not null"`
	ResolvedAt    *time.Time     `gorm:""`
}

func (BetEvent) TableName() string { return "bet_events" }

// Bet mirrors the bets table. The unique (user_id, event_id) index enforces
// the one-bet-per-event rule at the storage layer.
type Bet struct {
	BetID                string     `gorm:"type:uuid;primaryKey"`
	UserID               string     `gorm:"not null;index:uniq_bets_user_event,unique,priority:1"`
	EventID              string     `gorm:"type:uuid;not null;index:uniq_bets_user_event,unique,priority:2;index:idx_bets_event_status,priority:1"`
	StakeCents           int64      `gorm:"not null"`
	Selection            string     `gorm:"not null"`
	OddsHundredths       int64      `gorm:"not null"`
	PotentialPayoutCents int64      `gorm:"not null"`
	Status               string     `gorm:"not null;index:idx_bets_event_status,priority:2"`
	CreatedAt            time.Time  `gorm:"not null"`
	ResolvedAt           *time.Time `gorm:""`
}

func (Bet) TableName() string { return "bets" }

// AutoMigrate creates or updates every table the stores rely on.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Wallet{}, &LedgerEntry{}, &BetEvent{}, &Bet{})
}
