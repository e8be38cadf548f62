// Package postgres implements ports.KVStore on PostgreSQL through gorm.
//
// Collections and blobs live in two tables created by Migrate. Each collection
// is one row holding its JSON encoding.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/taleweave/pkg/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type collectionModel struct {
	Name      string `gorm:"primaryKey"`
	Data      []byte `gorm:"type:bytea;not null"`
	UpdatedAt time.Time
}

func (collectionModel) TableName() string {
	return "taleweave_collections"
}

type blobModel struct {
	Key       string `gorm:"primaryKey"`
	Data      []byte `gorm:"type:bytea;not null"`
	UpdatedAt time.Time
}

func (blobModel) TableName() string {
	return "taleweave_blobs"
}

// Store implements ports.KVStore on PostgreSQL.
type Store struct {
	db *gorm.DB
}

// Open connects to databaseURL, checks the connection and migrates the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewFromDB(db)
	if err := s.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// NewFromDB wraps an existing gorm handle. The schema is not migrated.
func NewFromDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the store tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&collectionModel{}, &blobModel{}); err != nil {
		return fmt.Errorf("failed to migrate store tables: %w", err)
	}
	return nil
}

// Read decodes the collection into dst.
func (s *Store) Read(ctx context.Context, collection string, dst any) (bool, error) {
	var row collectionModel
	err := s.db.WithContext(ctx).Where("name = ?", collection).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read collection %s: %w", collection, err)
	}
	if err := json.Unmarshal(row.Data, dst); err != nil {
		return false, fmt.Errorf("failed to decode collection %s: %w", collection, err)
	}
	return true, nil
}

// Write upserts the collection row.
func (s *Store) Write(ctx context.Context, collection string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", collection, err)
	}
	row := collectionModel{Name: collection, Data: data, UpdatedAt: time.Now().UTC()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write collection %s: %w", collection, err)
	}
	return nil
}

// GetBlob returns the blob stored under key.
func (s *Store) GetBlob(ctx context.Context, key string) ([]byte, error) {
	var row blobModel
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return row.Data, nil
}

// SetBlob upserts the blob row.
func (s *Store) SetBlob(ctx context.Context, key string, data []byte) error {
	row := blobModel{Key: key, Data: data, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	return nil
}

// DeleteBlob removes the blob row. Missing rows are not an error.
func (s *Store) DeleteBlob(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&blobModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

// Collections returns the stored collection names, sorted.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.WithContext(ctx).Model(&collectionModel{}).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
