package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// UserRepository resolves recipient contact details.
type UserRepository interface {
	// FindUserEmails maps user IDs to email addresses. Users without a stored
	// address are simply absent from the result.
	FindUserEmails(ctx context.Context, userIDs []string) (map[string]string, error)
}

type GormUserRepo struct {
	db *gorm.DB
}

func NewGormUserRepo(db *gorm.DB) *GormUserRepo {
	return &GormUserRepo{db: db}
}

func (r *GormUserRepo) FindUserEmails(ctx context.Context, userIDs []string) (map[string]string, error) {
	emails := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return emails, nil
	}

	var users []UserModel
	err := r.db.WithContext(ctx).
		Select("id", "email").
		Where("id IN ?", userIDs).
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	for i := range users {
		email := strings.TrimSpace(users[i].Email)
		if email == "" {
			continue
		}
		emails[users[i].ID] = email
	}

	return emails, nil
}
