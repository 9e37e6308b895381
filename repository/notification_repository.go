package repository

import (
	"context"

	"github.com/yashrajoria/pharmacy-agent/models"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	SaveLog(ctx context.Context, log *models.NotificationLog) error
	GetLogs(ctx context.Context, recipient string, page, limit int) ([]models.NotificationLog, int64, error)
}

type GormNotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) SaveLog(ctx context.Context, log *models.NotificationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// GetLogs pages newest first. An empty recipient matches everyone.
func (r *GormNotificationRepository) GetLogs(ctx context.Context, recipient string, page, limit int) ([]models.NotificationLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.NotificationLog{})
		if recipient != "" {
			q = q.Where("recipient = ?", recipient)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.NotificationLog
	err := scoped().Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&logs).Error
	return logs, total, err
}
