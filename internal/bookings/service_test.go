package bookings

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stayregistry-backend/internal/assets"
	"github.com/angelmondragon/stayregistry-backend/internal/credits"
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
	carol   = types.Identity("carol")
	booking = types.Identity("property-registry")
)

type fixture struct {
	client   *db.Client
	assets   assets.Service
	credits  credits.Service
	bookings Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), logg)
	m := metrics.NewRegistryMetrics(prometheus.NewRegistry())

	assetSvc, err := assets.NewService(assets.ServiceParams{
		Repo:       assets.NewRepository(client.DB()),
		TxRunner:   client,
		Outbox:     emitter,
		Metrics:    m,
		Collection: assets.Collection{Name: "Property", Symbol: "PROP"},
	})
	require.NoError(t, err)

	creditSvc, err := credits.NewService(credits.ServiceParams{
		Repo:     credits.NewRepository(client.DB()),
		TxRunner: client,
		Outbox:   emitter,
		Metrics:  m,
	})
	require.NoError(t, err)

	bookingSvc, err := NewService(ServiceParams{
		Repo:     NewRepository(client.DB()),
		Assets:   assetSvc,
		Credits:  creditSvc,
		TxRunner: client,
		Outbox:   emitter,
		Logger:   logg,
		Metrics:  m,
		Identity: booking,
	})
	require.NoError(t, err)

	return &fixture{client: client, assets: assetSvc, credits: creditSvc, bookings: bookingSvc}
}

func (f *fixture) mint(t *testing.T, owner types.Identity) uint64 {
	t.Helper()
	asset, err := f.assets.Mint(context.Background(), owner)
	require.NoError(t, err)
	return asset.ID
}

func (f *fixture) eventCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, pkgerrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func requireBalance(t *testing.T, svc credits.Service, identity types.Identity, want int64) {
	t.Helper()
	got, err := svc.BalanceOf(context.Background(), identity)
	require.NoError(t, err)
	require.Equal(t, want, got, "balance of %s", identity)
}

func window() (time.Time, time.Time) {
	in := time.Date(2026, 11, 1, 15, 0, 0, 0, time.UTC)
	return in, in.Add(72 * time.Hour)
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	f := newFixture(t)

	_, err := NewService(ServiceParams{Repo: NewRepository(f.client.DB()), TxRunner: f.client})
	require.Error(t, err)

	_, err = NewService(ServiceParams{
		Repo:     NewRepository(f.client.DB()),
		Assets:   f.assets,
		Credits:  f.credits,
		TxRunner: f.client,
		Outbox:   outbox.NewService(outbox.NewRepository(f.client.DB()), nil),
	})
	require.ErrorContains(t, err, "identity")

	require.Equal(t, booking, f.bookings.Identity())
}

func TestFullStayCycleSettlesCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.mint(t, alice)
	_, err := f.credits.Mint(ctx, bob, 10000, alice)
	require.NoError(t, err)
	require.NoError(t, f.credits.Approve(ctx, bob, booking, 1000))

	require.NoError(t, f.bookings.RegisterProperty(ctx, id, 1000, alice))

	in, out := window()
	require.NoError(t, f.bookings.Request(ctx, id, in, out, bob))
	require.NoError(t, f.bookings.ApproveRequest(ctx, id, alice))
	require.NoError(t, f.bookings.CheckIn(ctx, id, bob))

	data, err := f.bookings.StayData(ctx, id)
	require.NoError(t, err)
	require.Equal(t, enums.StayStateCheckedIn, data.State)
	require.Equal(t, bob, data.GuestCheckedIn)

	require.NoError(t, f.bookings.CheckOut(ctx, id, bob))

	requireBalance(t, f.credits, alice, 1000)
	requireBalance(t, f.credits, bob, 9000)

	allowance, err := f.credits.Allowance(ctx, bob, booking)
	require.NoError(t, err)
	require.Zero(t, allowance)

	data, err = f.bookings.StayData(ctx, id)
	require.NoError(t, err)
	require.Equal(t, enums.StayStateRegistered, data.State)
	require.Equal(t, int64(1), data.TotalStaysSettled)
	require.Equal(t, int64(1000), data.Price)
	require.True(t, data.GuestRequested.IsZero())
	require.True(t, data.GuestApproved.IsZero())
	require.Nil(t, data.CheckIn)
	require.Nil(t, data.CheckOut)

	for _, evt := range []enums.OutboxEventType{
		enums.EventPropertyRegistered,
		enums.EventStayRequested,
		enums.EventStayApproved,
		enums.EventStayCheckedIn,
		enums.EventStayCheckedOut,
		enums.EventStaySettled,
	} {
		require.Equal(t, int64(1), f.eventCount(t, evt), "events of type %s", evt)
	}
}

func TestCheckOutWithoutFundsStaysCheckedIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.mint(t, alice)
	_, err := f.credits.Mint(ctx, bob, 10000, alice)
	require.NoError(t, err)

	require.NoError(t, f.bookings.RegisterProperty(ctx, id, 1000, alice))
	in, out := window()
	require.NoError(t, f.bookings.Request(ctx, id, in, out, bob))
	require.NoError(t, f.bookings.ApproveRequest(ctx, id, alice))
	require.NoError(t, f.bookings.CheckIn(ctx, id, bob))

	err = f.bookings.CheckOut(ctx, id, bob)
	requireCode(t, err, pkgerrors.CodePaymentFailed)
	require.True(t, pkgerrors.MetadataFor(pkgerrors.CodePaymentFailed).Retryable)

	data, err := f.bookings.StayData(ctx, id)
	require.NoError(t, err)
	require.Equal(t, enums.StayStateCheckedIn, data.State)
	require.Zero(t, data.TotalStaysSettled)
	requireBalance(t, f.credits, bob, 10000)
	require.Zero(t, f.eventCount(t, enums.EventStayCheckedOut))
	require.Zero(t, f.eventCount(t, enums.EventStaySettled))

	require.NoError(t, f.credits.Approve(ctx, bob, booking, 1000))
	require.NoError(t, f.bookings.CheckOut(ctx, id, bob))
	requireBalance(t, f.credits, alice, 1000)
	requireBalance(t, f.credits, bob, 9000)

	data, err = f.bookings.StayData(ctx, id)
	require.NoError(t, err)
	require.Equal(t, enums.StayStateRegistered, data.State)
	require.Equal(t, int64(1), data.TotalStaysSettled)

	requireCode(t, f.bookings.CheckOut(ctx, id, bob), pkgerrors.CodeWrongState)
	data, err = f.bookings.StayData(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(1), data.TotalStaysSettled)
	requireBalance(t, f.credits, alice, 1000)
	require.Equal(t, int64(1), f.eventCount(t, enums.EventStaySettled))
}

func TestRegisterPropertyGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requireCode(t, f.bookings.RegisterProperty(ctx, 99, 10, alice), pkgerrors.CodeNotFound)

	id := f.mint(t, alice)
	requireCode(t, f.bookings.RegisterProperty(ctx, id, -1, alice), pkgerrors.CodeValidation)
	requireCode(t, f.bookings.RegisterProperty(ctx, id, 10, bob), pkgerrors.CodeUnauthorized)
	requireCode(t, f.bookings.RegisterProperty(ctx, id, -1, bob), pkgerrors.CodeUnauthorized)
	requireCode(t, f.bookings.RegisterProperty(ctx, id, 10, types.NoIdentity), pkgerrors.CodeUnauthorized)

	require.NoError(t, f.bookings.RegisterProperty(ctx, id, 10, alice))
	require.NoError(t, f.bookings.RegisterProperty(ctx, id, 25, alice))

	data, err := f.bookings.StayData(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(25), data.Price)

	in, out := window()
	require.NoError(t, f.bookings.Request(ctx, id, in, out, bob))
	requireCode(t, f.bookings.RegisterProperty(ctx, id, 30, alice), pkgerrors.CodeAlreadyRegistered)
}

func TestRequestGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in, out := window()

	requireCode(t, f.bookings.Request(ctx, 7, in, out, bob), pkgerrors.CodeNotFound)

	id := f.mint(t, alice)
	require.NoError(t, f.bookings.RegisterProperty(ctx, id, 100, alice))

	requireCode(t, f.bookings.Request(ctx, id, in, in, bob), pkgerrors.CodeInvalidWindow)
	requireCode(t, f.bookings.Request(ctx, id, out, in, bob), pkgerrors.CodeInvalidWindow)
	requireCode(t, f.bookings.Request(ctx, id, in, out, alice), pkgerrors.CodeUnauthorized)

	require.NoError(t, f.bookings.Request(ctx, id, in, out, bob))
	requireCode(t, f.bookings.Request(ctx, id, in, out, carol), pkgerrors.CodeWrongState)

	data, err := f.bookings.StayData(ctx, id)
	require.NoError(t, err)
	require.Equal(t, enums.StayStateRequested, data.State)
	require.Equal(t, bob, data.GuestRequested)
	require.NotNil(t, data.CheckIn)
	require.True(t, in.Equal(*data.CheckIn))
	require.True(t, out.Equal(*data.CheckOut))
}

func TestApproveCheckInCheckOutGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in, out := window()

	id := f.mint(t, alice)
	require.NoError(t, f.bookings.RegisterProperty(ctx, id, 0, alice))

	requireCode(t, f.bookings.ApproveRequest(ctx, id, alice), pkgerrors.CodeWrongState)
	requireCode(t, f.bookings.CheckIn(ctx, id, bob), pkgerrors.CodeWrongState)
	requireCode(t, f.bookings.CheckOut(ctx, id, bob), pkgerrors.CodeWrongState)

	require.NoError(t, f.bookings.Request(ctx, id, in, out, bob))
	requireCode(t, f.bookings.ApproveRequest(ctx, id, carol), pkgerrors.CodeUnauthorized)
	requireCode(t, f.bookings.ApproveRequest(ctx, id, bob), pkgerrors.CodeUnauthorized)
	require.NoError(t, f.bookings.ApproveRequest(ctx, id, alice))

	requireCode(t, f.bookings.CheckIn(ctx, id, carol), pkgerrors.CodeUnauthorized)
	require.NoError(t, f.bookings.CheckIn(ctx, id, bob))

	requireCode(t, f.bookings.CheckOut(ctx, id, alice), pkgerrors.CodeUnauthorized)

	// Zero-priced stays settle without any allowance.
	require.NoError(t, f.bookings.CheckOut(ctx, id, bob))
	data, err := f.bookings.StayData(ctx, id)
	require.NoError(t, err)
	require.Equal(t, enums.StayStateRegistered, data.State)
	require.Equal(t, int64(1), data.TotalStaysSettled)
}

func TestApproveRejectsGuestWhoBecameOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in, out := window()

	id := f.mint(t, alice)
	require.NoError(t, f.bookings.RegisterProperty(ctx, id, 50, alice))
	require.NoError(t, f.bookings.Request(ctx, id, in, out, bob))
	require.NoError(t, f.assets.Transfer(ctx, id, bob, alice))

	requireCode(t, f.bookings.ApproveRequest(ctx, id, alice), pkgerrors.CodeUnauthorized)
	requireCode(t, f.bookings.ApproveRequest(ctx, id, bob), pkgerrors.CodeUnauthorized)
}

func TestCheckOutPaysCurrentOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in, out := window()

	id := f.mint(t, alice)
	_, err := f.credits.Mint(ctx, bob, 500, alice)
	require.NoError(t, err)
	require.NoError(t, f.credits.Approve(ctx, bob, booking, 500))

	require.NoError(t, f.bookings.RegisterProperty(ctx, id, 200, alice))
	require.NoError(t, f.bookings.Request(ctx, id, in, out, bob))
	require.NoError(t, f.bookings.ApproveRequest(ctx, id, alice))
	require.NoError(t, f.bookings.CheckIn(ctx, id, bob))
	require.NoError(t, f.assets.Transfer(ctx, id, carol, alice))

	require.NoError(t, f.bookings.CheckOut(ctx, id, bob))
	requireBalance(t, f.credits, carol, 200)
	requireBalance(t, f.credits, alice, 0)
	requireBalance(t, f.credits, bob, 300)
}

func TestCounterSurvivesReRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in, out := window()

	id := f.mint(t, alice)
	require.NoError(t, f.bookings.RegisterProperty(ctx, id, 0, alice))
	for i := 0; i < 2; i++ {
		require.NoError(t, f.bookings.Request(ctx, id, in, out, bob))
		require.NoError(t, f.bookings.ApproveRequest(ctx, id, alice))
		require.NoError(t, f.bookings.CheckIn(ctx, id, bob))
		require.NoError(t, f.bookings.CheckOut(ctx, id, bob))
	}
	require.NoError(t, f.bookings.RegisterProperty(ctx, id, 75, alice))

	data, err := f.bookings.StayData(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(2), data.TotalStaysSettled)
	require.Equal(t, int64(75), data.Price)
}

func TestStayDataJSONOmitsAbsentFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bookings.StayData(ctx, 1)
	requireCode(t, err, pkgerrors.CodeNotFound)

	id := f.mint(t, alice)
	require.NoError(t, f.bookings.RegisterProperty(ctx, id, 10, alice))

	data, err := f.bookings.StayData(ctx, id)
	require.NoError(t, err)
	raw, err := json.Marshal(data)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "registered", decoded["state"])
	require.NotContains(t, decoded, "guest_requested")
	require.NotContains(t, decoded, "check_in")
	require.Equal(t, float64(0), decoded["total_stays_settled"])
}
