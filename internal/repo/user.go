package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

// firstUserLock keys the postgres advisory lock held while a user is created.
const firstUserLock = 7_301_001

// CreateUser inserts u. The account with the lowest id becomes the admin.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", firstUserLock).Error; err != nil {
				return err
			}
		}

		var taken int64
		if err := tx.Model(&models.User{}).Where("email = ?", u.Email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return gorm.ErrDuplicatedKey
		}

		if u.Role == "" {
			u.Role = models.RoleUser
		}
		if err := tx.Create(u).Error; err != nil {
			return err
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND id = (SELECT MIN(id) FROM users)", u.ID).
			Update("role", models.RoleAdmin)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			u.Role = models.RoleAdmin
		}
		return nil
	})
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) SetUserRole(ctx context.Context, email, role string) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", strings.ToLower(email)).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
