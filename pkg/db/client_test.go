package db

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/stayregistry-backend/pkg/db/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.Asset{ID: 1, Owner: "alice"}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.Asset{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Asset{ID: 2, Owner: "bob"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	require.NoError(t, client.DB().Model(&models.Asset{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "rollback should leave a single asset")
}

func TestOpenMemory_UsesSilentLogger(t *testing.T) {
	client := newTestClient(t)
	assert.NotEqual(t, gormlogger.Default, client.DB().Logger)

	var asset models.Asset
	err := client.DB().First(&asset, 42).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAtomic_SerializesCallers(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.DB().Create(&models.CreditAccount{Identity: "bob"}).Error)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := client.Atomic(ctx, func(tx *gorm.DB) error {
				var account models.CreditAccount
				if err := tx.First(&account, "identity = ?", "bob").Error; err != nil {
					return err
				}
				return tx.Model(&models.CreditAccount{}).
					Where("identity = ?", "bob").
					Update("balance", account.Balance+1).Error
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var account models.CreditAccount
	require.NoError(t, client.DB().First(&account, "identity = ?", "bob").Error)
	assert.Equal(t, int64(20), account.Balance)
}

func TestAtomic_PropagatesPanicAndRollsBack(t *testing.T) {
	client := newTestClient(t)

	assert.Panics(t, func() {
		_ = client.Atomic(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&models.Asset{ID: 7, Owner: "alice"})
			panic("boom")
		})
	})

	var count int64
	require.NoError(t, client.DB().Model(&models.Asset{}).Count(&count).Error)
	assert.Zero(t, count)

	// the mutex must have been released by the panic
	require.NoError(t, client.Atomic(context.Background(), func(tx *gorm.DB) error { return nil }))
}

func TestPing(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.Ping(context.Background()))
}
