package models

import (
	"time"

	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
)

// CreditEntry records an immutable movement of credit. Mint entries have no
// payer; settlement entries carry the spender that executed them.
type CreditEntry struct {
	ID        uint64                `gorm:"column:id;primaryKey;autoIncrement"`
	Type      enums.CreditEntryType `gorm:"column:type;type:text;not null"`
	Payer     *string               `gorm:"column:payer;type:text"`
	Payee     string                `gorm:"column:payee;type:text;not null;index:idx_credit_entries_payee"`
	Spender   *string               `gorm:"column:spender;type:text"`
	Amount    int64                 `gorm:"column:amount;not null"`
	Reference *string               `gorm:"column:reference;type:text"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
}
