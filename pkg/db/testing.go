package db

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stayregistry-backend/pkg/db/models"
)

// OpenMemory opens a private in-memory SQLite database with every model
// migrated. Tests and local tooling use it in place of Postgres.
func OpenMemory() (*Client, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: silentLogger(), SkipDefaultTransaction: true})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("migrating sqlite: %w", err)
	}
	return Wrap(conn), nil
}
