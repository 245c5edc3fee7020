package credits

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stayregistry-backend/internal/repo"
	"github.com/angelmondragon/stayregistry-backend/pkg/db/models"
	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
)

// Repository manages balances, allowances and the credit journal.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Balance(ctx context.Context, identity string) (int64, error)
	Credit(ctx context.Context, identity string, amount int64) error
	Debit(ctx context.Context, identity string, amount int64) (bool, error)
	Allowance(ctx context.Context, owner, spender string) (int64, error)
	SetAllowance(ctx context.Context, owner, spender string, amount int64) error
	SpendAllowance(ctx context.Context, owner, spender string, amount int64) (bool, error)
	CreateEntry(ctx context.Context, entry *models.CreditEntry) error
	ListEntries(ctx context.Context, identity string, limit int) ([]models.CreditEntry, error)
	TotalSupply(ctx context.Context) (int64, error)
	SumBalances(ctx context.Context) (int64, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a credit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

// Balance reads as 0 for identities without an account row.
func (r *repository) Balance(ctx context.Context, identity string) (int64, error) {
	var account models.CreditAccount
	err := r.base.DB(ctx).Where("identity = ?", identity).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance, nil
}

func (r *repository) Credit(ctx context.Context, identity string, amount int64) error {
	now := time.Now().UTC()
	account := models.CreditAccount{Identity: identity, Balance: amount, CreatedAt: now, UpdatedAt: now}
	return r.base.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "identity"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance":    gorm.Expr("credit_accounts.balance + ?", amount),
			"updated_at": now,
		}),
	}).Create(&account).Error
}

// Debit subtracts amount only when the balance covers it and reports whether it did.
func (r *repository) Debit(ctx context.Context, identity string, amount int64) (bool, error) {
	res := r.base.DB(ctx).Model(&models.CreditAccount{}).
		Where("identity = ? AND balance >= ?", identity, amount).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Allowance(ctx context.Context, owner, spender string) (int64, error) {
	var allowance models.CreditAllowance
	err := r.base.DB(ctx).Where("owner = ? AND spender = ?", owner, spender).First(&allowance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return allowance.Amount, nil
}

func (r *repository) SetAllowance(ctx context.Context, owner, spender string, amount int64) error {
	now := time.Now().UTC()
	allowance := models.CreditAllowance{Owner: owner, Spender: spender, Amount: amount, UpdatedAt: now}
	return r.base.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "spender"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&allowance).Error
}

// SpendAllowance decrements the allowance only when it covers amount.
func (r *repository) SpendAllowance(ctx context.Context, owner, spender string, amount int64) (bool, error) {
	res := r.base.DB(ctx).Model(&models.CreditAllowance{}).
		Where("owner = ? AND spender = ? AND amount >= ?", owner, spender, amount).
		Updates(map[string]any{
			"amount":     gorm.Expr("amount - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.CreditEntry) error {
	return r.base.DB(ctx).Create(entry).Error
}

func (r *repository) ListEntries(ctx context.Context, identity string, limit int) ([]models.CreditEntry, error) {
	var entries []models.CreditEntry
	q := r.base.DB(ctx).
		Where("payee = ? OR payer = ?", identity, identity).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// TotalSupply sums every minted amount; settlements only move credit.
func (r *repository) TotalSupply(ctx context.Context) (int64, error) {
	var total int64
	err := r.base.DB(ctx).Model(&models.CreditEntry{}).
		Where("type = ?", enums.CreditEntryTypeMint).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *repository) SumBalances(ctx context.Context) (int64, error) {
	var total int64
	err := r.base.DB(ctx).Model(&models.CreditAccount{}).
		Select("COALESCE(SUM(balance), 0)").
		Scan(&total).Error
	return total, err
}
