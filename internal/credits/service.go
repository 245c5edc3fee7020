package credits

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/stayregistry-backend/pkg/db/models"
	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stayregistry-backend/pkg/errors"
	"github.com/angelmondragon/stayregistry-backend/pkg/metrics"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/stayregistry-backend/pkg/types"
)

// Service is the credit ledger used to pay for stays.
type Service interface {
	Mint(ctx context.Context, to types.Identity, amount int64, caller types.Identity) (int64, error)
	Approve(ctx context.Context, owner, spender types.Identity, amount int64) error
	BalanceOf(ctx context.Context, identity types.Identity) (int64, error)
	Allowance(ctx context.Context, owner, spender types.Identity) (int64, error)
	TotalSupply(ctx context.Context) (int64, error)
	History(ctx context.Context, identity types.Identity, limit int) ([]models.CreditEntry, error)
	Settle(ctx context.Context, input SettleInput) error
	SettleTx(ctx context.Context, tx *gorm.DB, input SettleInput) error
}

// SettleInput moves Amount from Payer to Payee on behalf of Spender.
type SettleInput struct {
	Payer     types.Identity
	Spender   types.Identity
	Payee     types.Identity
	Amount    int64
	Reference string
}

type txRunner interface {
	Atomic(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups the credit ledger collaborators.
type ServiceParams struct {
	Repo     Repository
	TxRunner txRunner
	Outbox   outboxPublisher
	Metrics  *metrics.RegistryMetrics
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	metrics *metrics.RegistryMetrics
}

// NewService wires the credit ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("credit repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.TxRunner,
		outbox:  params.Outbox,
		metrics: params.Metrics,
	}, nil
}

// Mint is administrative: any caller may create credit. The caller is only
// recorded as the event actor.
func (s *service) Mint(ctx context.Context, to types.Identity, amount int64, caller types.Identity) (balance int64, err error) {
	defer s.observe("credit_mint", time.Now(), &err)

	if to.IsZero() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "recipient is required")
	}
	if amount <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	err = s.tx.Atomic(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.Balance(ctx, to.String())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load balance")
		}
		supply, err := repo.TotalSupply(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load total supply")
		}
		if current > math.MaxInt64-amount || supply > math.MaxInt64-amount {
			return pkgerrors.New(pkgerrors.CodeValidation, "mint would overflow")
		}
		if err := repo.Credit(ctx, to.String(), amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit balance")
		}
		if err := repo.CreateEntry(ctx, &models.CreditEntry{
			Type:   enums.CreditEntryTypeMint,
			Payee:  to.String(),
			Amount: amount,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record mint")
		}
		balance = current + amount
		return s.emit(ctx, tx, enums.EventCreditMinted, to, caller, payloads.CreditMintedEvent{
			Identity: to.String(),
			Amount:   amount,
			Balance:  balance,
		})
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Approve replaces the allowance of spender over owner's balance.
func (s *service) Approve(ctx context.Context, owner, spender types.Identity, amount int64) (err error) {
	defer s.observe("credit_approve", time.Now(), &err)

	if owner.IsZero() || spender.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner and spender are required")
	}
	if amount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-negative")
	}

	return s.tx.Atomic(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SetAllowance(ctx, owner.String(), spender.String(), amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set allowance")
		}
		return s.emit(ctx, tx, enums.EventCreditApproved, owner, owner, payloads.CreditApprovedEvent{
			Owner:   owner.String(),
			Spender: spender.String(),
			Amount:  amount,
		})
	})
}

func (s *service) BalanceOf(ctx context.Context, identity types.Identity) (int64, error) {
	if identity.IsZero() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "identity is required")
	}
	balance, err := s.repo.Balance(ctx, identity.String())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load balance")
	}
	return balance, nil
}

func (s *service) Allowance(ctx context.Context, owner, spender types.Identity) (int64, error) {
	if owner.IsZero() || spender.IsZero() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "owner and spender are required")
	}
	amount, err := s.repo.Allowance(ctx, owner.String(), spender.String())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load allowance")
	}
	return amount, nil
}

func (s *service) TotalSupply(ctx context.Context) (int64, error) {
	total, err := s.repo.TotalSupply(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load total supply")
	}
	return total, nil
}

// History returns the newest journal entries that touch identity.
func (s *service) History(ctx context.Context, identity types.Identity, limit int) ([]models.CreditEntry, error) {
	if identity.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identity is required")
	}
	entries, err := s.repo.ListEntries(ctx, identity.String(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list credit entries")
	}
	return entries, nil
}

func (s *service) Settle(ctx context.Context, input SettleInput) (err error) {
	defer s.observe("credit_settle", time.Now(), &err)

	err = s.tx.Atomic(ctx, func(tx *gorm.DB) error {
		return s.SettleTx(ctx, tx, input)
	})
	if err == nil {
		s.metrics.AddSettledCredits(input.Amount)
	}
	return err
}

// SettleTx debits payer and the payer→spender allowance and credits payee,
// all by Amount, inside tx. It fails with PAYMENT_FAILED, leaving every
// balance untouched, unless both balance and allowance cover Amount.
func (s *service) SettleTx(ctx context.Context, tx *gorm.DB, input SettleInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.Payer.IsZero() || input.Spender.IsZero() || input.Payee.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "payer, spender and payee are required")
	}
	if input.Amount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-negative")
	}

	repo := s.repo.WithTx(tx)
	payer, spender, payee := input.Payer.String(), input.Spender.String(), input.Payee.String()

	balance, err := repo.Balance(ctx, payer)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payer balance")
	}
	allowance, err := repo.Allowance(ctx, payer, spender)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load allowance")
	}
	if balance < input.Amount || allowance < input.Amount {
		return insufficientFunds(input, balance, allowance)
	}

	if input.Amount > 0 {
		ok, err := repo.Debit(ctx, payer, input.Amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit payer")
		}
		if !ok {
			return insufficientFunds(input, balance, allowance)
		}
		ok, err = repo.SpendAllowance(ctx, payer, spender, input.Amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "spend allowance")
		}
		if !ok {
			return insufficientFunds(input, balance, allowance)
		}
		if err := repo.Credit(ctx, payee, input.Amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit payee")
		}
	}

	entry := &models.CreditEntry{
		Type:    enums.CreditEntryTypeSettlement,
		Payer:   input.Payer.Ptr(),
		Payee:   payee,
		Spender: input.Spender.Ptr(),
		Amount:  input.Amount,
	}
	if input.Reference != "" {
		ref := input.Reference
		entry.Reference = &ref
	}
	if err := repo.CreateEntry(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record settlement")
	}
	return nil
}

func insufficientFunds(input SettleInput, balance, allowance int64) error {
	return pkgerrors.New(pkgerrors.CodePaymentFailed, "insufficient funds").WithDetails(map[string]any{
		"required":  input.Amount,
		"balance":   balance,
		"allowance": allowance,
		"spender":   input.Spender.String(),
	})
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, account, actor types.Identity, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateCreditAccount,
		AggregateID:   account.String(),
		Actor:         outbox.Actor(actor.String()),
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) observe(operation string, start time.Time, err *error) {
	s.metrics.ObserveOperation(operation, metrics.Outcome(*err), time.Since(start))
}
