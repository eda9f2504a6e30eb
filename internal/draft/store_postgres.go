package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// DraftRecord is the database row for one snapshot
type DraftRecord struct {
	Key       string         `gorm:"column:draft_key;primaryKey;size:128"`
	Snapshot  datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

// TableName sets the table name for DraftRecord
func (DraftRecord) TableName() string {
	return "parcel_drafts"
}

// PostgresStore keeps snapshots in a jsonb column
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore creates a store over an open connection
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a gorm connection and migrates the drafts table
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&DraftRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate drafts table: %w", err)
	}
	return db, nil
}

func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, error) {
	var record DraftRecord
	err := s.db.WithContext(ctx).Where("draft_key = ?", key).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return []byte(record.Snapshot), nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, data []byte) error {
	record := DraftRecord{Key: key, Snapshot: datatypes.JSON(data)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "draft_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"snapshot", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("draft_key = ?", key).Delete(&DraftRecord{}).Error; err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
