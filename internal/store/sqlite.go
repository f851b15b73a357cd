package store

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mrz1836/onboard/internal/fileutil"
)

// entry is one record row.
type entry struct {
	Key       string `gorm:"column:name;primaryKey"`
	Value     []byte
	UpdatedAt int64 `gorm:"autoUpdateTime:milli"`
}

// TableName pins the table name.
func (entry) TableName() string {
	return "records"
}

// sqliteBackend stores records in a SQLite table through gorm.
type sqliteBackend struct {
	db *gorm.DB
}

func openSQLite(path string) (*sqliteBackend, error) {
	if path == "" {
		return nil, errors.New("sqlite store path is required")
	}
	if err := fileutil.EnsureParent(path); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}

	b := &sqliteBackend{db: db}
	if err := db.AutoMigrate(&entry{}); err != nil {
		_ = b.close()
		return nil, fmt.Errorf("migrating sqlite store: %w", err)
	}

	return b, nil
}

func (s *sqliteBackend) load(key string) ([]byte, error) {
	var e entry
	err := s.db.Where("name = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

func (s *sqliteBackend) save(key string, value []byte) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry{Key: key, Value: value}).Error
}

func (s *sqliteBackend) clear() error {
	return s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entry{}).Error
}

func (s *sqliteBackend) close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
