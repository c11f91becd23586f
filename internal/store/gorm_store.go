package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type reportRow struct {
	ID             string    `gorm:"primaryKey;size:64"`
	SessionID      string    `gorm:"size:191;index"`
	UserID         string    `gorm:"size:191;index"`
	Query          string    `gorm:"size:512;not null"`
	TweetsAnalyzed int       `gorm:"not null"`
	ResultJSON     string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

func (reportRow) TableName() string {
	return "reports"
}

func (r reportRow) toReport() (Report, error) {
	result, err := unmarshalResult(r.ResultJSON)
	if err != nil {
		return Report{}, fmt.Errorf("decode stored result: %w", err)
	}
	return Report{
		ID:             r.ID,
		SessionID:      r.SessionID,
		UserID:         r.UserID,
		Query:          r.Query,
		TweetsAnalyzed: r.TweetsAnalyzed,
		Result:         result,
		CreatedAt:      r.CreatedAt,
	}, nil
}

func rowFromReport(report Report) (reportRow, error) {
	encoded, err := marshalResult(report.Result)
	if err != nil {
		return reportRow{}, fmt.Errorf("encode result: %w", err)
	}
	return reportRow{
		ID:             report.ID,
		SessionID:      report.SessionID,
		UserID:         report.UserID,
		Query:          report.Query,
		TweetsAnalyzed: report.TweetsAnalyzed,
		ResultJSON:     encoded,
		CreatedAt:      report.CreatedAt,
	}, nil
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(driver, dsn string) (*GormStore, error) {
	gormDB, err := openGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}

	store := &GormStore{db: gormDB}
	if err := store.migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *GormStore) migrate() error {
	return s.db.AutoMigrate(&reportRow{})
}

func (s *GormStore) SaveReport(ctx context.Context, report Report) error {
	row, err := rowFromReport(report)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (s *GormStore) GetReport(ctx context.Context, id string) (Report, error) {
	var row reportRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Report{}, ErrNotFound
		}
		return Report{}, fmt.Errorf("get report: %w", err)
	}
	return row.toReport()
}

func (s *GormStore) ListReports(ctx context.Context, userID string, limit int) ([]Report, error) {
	query := s.db.WithContext(ctx).Model(&reportRow{}).Order("created_at DESC")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []reportRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	out := make([]Report, 0, len(rows))
	for _, row := range rows {
		report, err := row.toReport()
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}
