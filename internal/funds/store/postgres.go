package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/pkg/database"
)

// FavoriteRow is one (user, fund) membership
type FavoriteRow struct {
	ID        uint      `gorm:"primaryKey"`
	UserKey   string    `gorm:"not null;size:64;uniqueIndex:idx_user_fund"`
	FundCode  string    `gorm:"not null;size:32;uniqueIndex:idx_user_fund"`
	CreatedAt time.Time
}

// TableName specifies the table name
func (FavoriteRow) TableName() string {
	return "user_favorites"
}

// PostgresStore keeps favorites in the user_favorites table
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore wraps db
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) AutoMigrate() error {
	return s.db.AutoMigrate(&FavoriteRow{})
}

func (s *PostgresStore) List(ctx context.Context, user domain.UserKey) ([]string, error) {
	var codes []string
	err := s.db.WithContext(ctx).
		Model(&FavoriteRow{}).
		Where("user_key = ?", string(user)).
		Order("fund_code").
		Pluck("fund_code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return codes, nil
}

func (s *PostgresStore) Add(ctx context.Context, user domain.UserKey, code string) error {
	row := FavoriteRow{UserKey: string(user), FundCode: code}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, user domain.UserKey, code string) error {
	err := s.db.WithContext(ctx).
		Where("user_key = ? AND fund_code = ?", string(user), code).
		Delete(&FavoriteRow{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// PostgresDialer opens the database and migrates the favorites table
func PostgresDialer(cfg database.Config) Dialer {
	return func(ctx context.Context) (Backend, error) {
		db, err := database.NewGormConnection(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s := NewPostgresStore(db)
		if err := s.AutoMigrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return s, nil
	}
}
