package repository

import (
	"context"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/domain"
	"gorm.io/gorm"
)

// NotificationRepository persists in-app notification rows. This pipeline only
// ever creates rows; listing and read-state mutation live in the CRUD layer.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.InAppNotification) error
}

type GormNotificationRepo struct {
	db *gorm.DB
}

func NewGormNotificationRepo(db *gorm.DB) *GormNotificationRepo {
	return &GormNotificationRepo{db: db}
}

func (r *GormNotificationRepo) Create(ctx context.Context, n *domain.InAppNotification) error {
	model, err := notificationModelFromDomain(n)
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	n.CreatedAt = model.CreatedAt
	return nil
}
