package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostModel is the persisted mapping row.
type PostModel struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	SourceID     string    `gorm:"column:source_id;type:varchar(64);not null;index"`
	TranslatedID string    `gorm:"column:translated_id;type:varchar(64);not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (PostModel) TableName() string { return "posts" }

// GormStore implements Store on top of GORM.
type GormStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the sqlite database at path.
func NewSQLiteStore(path string) (*GormStore, error) {
	// WAL lets lookups proceed while a worker is writing.
	return NewGormStore(sqlite.Open(path + "?_journal_mode=WAL&_busy_timeout=5000"))
}

// NewPostgresStore connects using a postgres DSN.
func NewPostgresStore(dsn string) (*GormStore, error) {
	return NewGormStore(postgres.Open(dsn))
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dialector gorm.Dialector) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&PostModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) RecordMapping(ctx context.Context, sourceID, translatedID string) error {
	if err := checkIDs(sourceID, translatedID); err != nil {
		return err
	}
	row := PostModel{
		SourceID:     sourceID,
		TranslatedID: translatedID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record mapping %s -> %s: %w", sourceID, translatedID, err)
	}
	return nil
}

func (s *GormStore) LookupTranslatedID(ctx context.Context, sourceID string) (string, bool, error) {
	var row PostModel
	err := s.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order("id ASC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("lookup mapping %s: %w", sourceID, err)
	}
	return row.TranslatedID, true, nil
}

func (s *GormStore) Mappings(ctx context.Context) ([]Mapping, error) {
	var rows []PostModel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	out := make([]Mapping, 0, len(rows))
	for _, r := range rows {
		out = append(out, Mapping{
			SourceID:     r.SourceID,
			TranslatedID: r.TranslatedID,
			CreatedAt:    r.CreatedAt,
		})
	}
	return out, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
