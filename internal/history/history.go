/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package history records schedule sync snapshots so changes to the scraped
// timetable can be inspected after the fact.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/schulfunk/schulfunk/internal/config"
	"github.com/schulfunk/schulfunk/internal/timetable"
)

// Snapshot is one recorded sync result.
type Snapshot struct {
	ID             string `gorm:"type:uuid;primaryKey" json:"id"`
	Source         string `gorm:"type:varchar(32)" json:"source"`
	Document       []byte `gorm:"type:blob" json:"-"`
	LessonCount    int    `json:"lesson_count"`
	ExceptionCount int    `json:"exception_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store persists snapshots through gorm.
type Store struct {
	db *gorm.DB
}

// Connect opens the configured backend and migrates the schema.
func Connect(cfg *config.Config) (*Store, error) {
	var dialector gorm.Dialector

	switch cfg.DBBackend {
	case config.DatabaseSQLite:
		dialector = sqlite.Open(cfg.DBDSN)
	case config.DatabasePostgres:
		dialector = postgres.Open(cfg.DBDSN)
	case config.DatabaseMySQL:
		dialector = mysql.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unknown database backend: %s", cfg.DBBackend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Snapshot{}); err != nil {
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record stores a snapshot of a freshly synced document.
func (s *Store) Record(ctx context.Context, source string, doc *timetable.Document) (*Snapshot, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	lessons := 0
	for _, day := range timetable.Weekdays {
		for _, slot := range doc.Day(day) {
			if !slot.IsGap() {
				lessons++
			}
		}
	}

	snap := Snapshot{
		ID:             uuid.NewString(),
		Source:         source,
		Document:       raw,
		LessonCount:    lessons,
		ExceptionCount: len(doc.Exceptions),
	}
	if err := s.db.WithContext(ctx).Create(&snap).Error; err != nil {
		return nil, err
	}
	return &snap, nil
}

// Recent returns up to limit snapshots, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	var snaps []Snapshot
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&snaps).Error
	return snaps, err
}

// Close releases database resources.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
