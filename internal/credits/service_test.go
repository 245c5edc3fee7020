package credits

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/stayregistry-backend/pkg/db"
	"github.com/angelmondragon/stayregistry-backend/pkg/db/models"
	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stayregistry-backend/pkg/errors"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	"github.com/angelmondragon/stayregistry-backend/pkg/metrics"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox"
	"github.com/angelmondragon/stayregistry-backend/pkg/types"
)

const (
	alice   = types.Identity("alice")
	bob     = types.Identity("bob")
	booking = types.Identity("property-registry")
)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(client.DB()),
		TxRunner: client,
		Outbox:   outbox.NewService(outbox.NewRepository(client.DB()), logg),
		Metrics:  metrics.NewRegistryMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return svc, client
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, pkgerrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func requireBalance(t *testing.T, svc Service, identity types.Identity, want int64) {
	t.Helper()
	got, err := svc.BalanceOf(context.Background(), identity)
	require.NoError(t, err)
	require.Equal(t, want, got, "balance of %s", identity)
}

func TestMintIncreasesBalanceAndSupply(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()

	requireBalance(t, svc, bob, 0)

	balance, err := svc.Mint(ctx, bob, 10000, alice)
	require.NoError(t, err)
	require.Equal(t, int64(10000), balance)

	balance, err = svc.Mint(ctx, bob, 5, alice)
	require.NoError(t, err)
	require.Equal(t, int64(10005), balance)

	supply, err := svc.TotalSupply(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(10005), supply)

	var events int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventCreditMinted).Count(&events).Error)
	require.Equal(t, int64(2), events)
}

func TestMintValidation(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()

	_, err := svc.Mint(ctx, bob, -1, alice)
	requireCode(t, err, pkgerrors.CodeValidation)
	_, err = svc.Mint(ctx, bob, 0, alice)
	requireCode(t, err, pkgerrors.CodeValidation)

	var entries, events int64
	require.NoError(t, client.DB().Model(&models.CreditEntry{}).Count(&entries).Error)
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventCreditMinted).Count(&events).Error)
	require.Zero(t, entries)
	require.Zero(t, events)
	_, err = svc.Mint(ctx, types.NoIdentity, 1, alice)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Mint(ctx, bob, math.MaxInt64, alice)
	require.NoError(t, err)
	_, err = svc.Mint(ctx, alice, 1, alice)
	requireCode(t, err, pkgerrors.CodeValidation)
	requireBalance(t, svc, alice, 0)
}

func TestApproveReplacesAllowance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Approve(ctx, bob, booking, 1000))
	require.NoError(t, svc.Approve(ctx, bob, booking, 250))

	allowance, err := svc.Allowance(ctx, bob, booking)
	require.NoError(t, err)
	require.Equal(t, int64(250), allowance)

	allowance, err = svc.Allowance(ctx, alice, booking)
	require.NoError(t, err)
	require.Zero(t, allowance)

	requireCode(t, svc.Approve(ctx, bob, booking, -1), pkgerrors.CodeValidation)
}

func TestSettleMovesCredit(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()

	_, err := svc.Mint(ctx, bob, 10000, alice)
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, bob, booking, 1500))

	require.NoError(t, svc.Settle(ctx, SettleInput{Payer: bob, Spender: booking, Payee: alice, Amount: 1000, Reference: "stay:1"}))

	requireBalance(t, svc, bob, 9000)
	requireBalance(t, svc, alice, 1000)
	allowance, err := svc.Allowance(ctx, bob, booking)
	require.NoError(t, err)
	require.Equal(t, int64(500), allowance)

	supply, err := svc.TotalSupply(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(10000), supply)

	history, err := svc.History(ctx, alice, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, enums.CreditEntryTypeSettlement, history[0].Type)
	require.Equal(t, "stay:1", *history[0].Reference)

	var journal int64
	require.NoError(t, client.DB().Model(&models.CreditEntry{}).Count(&journal).Error)
	require.Equal(t, int64(2), journal)
}

func TestSettleFailsWithoutFundsOrAllowance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Mint(ctx, bob, 500, alice)
	require.NoError(t, err)

	err = svc.Settle(ctx, SettleInput{Payer: bob, Spender: booking, Payee: alice, Amount: 100})
	requireCode(t, err, pkgerrors.CodePaymentFailed)
	typed := pkgerrors.As(err)
	require.True(t, pkgerrors.MetadataFor(typed.Code()).Retryable)

	require.NoError(t, svc.Approve(ctx, bob, booking, 1000))
	err = svc.Settle(ctx, SettleInput{Payer: bob, Spender: booking, Payee: alice, Amount: 1000})
	requireCode(t, err, pkgerrors.CodePaymentFailed)

	requireBalance(t, svc, bob, 500)
	requireBalance(t, svc, alice, 0)
	allowance, err := svc.Allowance(ctx, bob, booking)
	require.NoError(t, err)
	require.Equal(t, int64(1000), allowance)
}

func TestSettleZeroAmountNeedsNoAccount(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Settle(context.Background(), SettleInput{Payer: bob, Spender: booking, Payee: alice, Amount: 0}))
	requireBalance(t, svc, alice, 0)
}

func TestSettleTxJoinsCallerTransaction(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()

	_, err := svc.Mint(ctx, bob, 1000, alice)
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, bob, booking, 1000))

	rollback := pkgerrors.New(pkgerrors.CodeInternal, "abort")
	err = client.Atomic(ctx, func(tx *gorm.DB) error {
		if err := svc.SettleTx(ctx, tx, SettleInput{Payer: bob, Spender: booking, Payee: alice, Amount: 1000}); err != nil {
			return err
		}
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	requireBalance(t, svc, bob, 1000)
	requireBalance(t, svc, alice, 0)

	requireCode(t, svc.SettleTx(ctx, nil, SettleInput{}), pkgerrors.CodeInternal)
}
