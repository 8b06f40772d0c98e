package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seoextraction/extractor-api/app/models"
)

// UserRepository provides DB operations on the local user mirror.
type UserRepository interface {
	Upsert(authSub string) error
	Count() (int64, error)
}

type gormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) Upsert(authSub string) error {
	user := &models.User{AuthSub: authSub}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "auth_sub"}},
		DoNothing: true,
	}).Create(user).Error
}

func (r *gormUserRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
