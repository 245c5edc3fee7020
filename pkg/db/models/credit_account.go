package models

import "time"

// CreditAccount holds the credit balance of one identity.
type CreditAccount struct {
	Identity  string    `gorm:"column:identity;type:text;primaryKey"`
	Balance   int64     `gorm:"column:balance;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CreditAllowance is the amount Spender may move out of Owner's balance.
type CreditAllowance struct {
	Owner     string    `gorm:"column:owner;type:text;primaryKey"`
	Spender   string    `gorm:"column:spender;type:text;primaryKey"`
	Amount    int64     `gorm:"column:amount;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
