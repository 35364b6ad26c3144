package database

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
	"gorm.io/gorm"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db}
}

// FindAll returns every user, newest first.
func (r *UserRepo) FindAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "users", err)
	}
	return users, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return models.User{}, errs.NewDatabaseError("find", "user", err)
	}
	return u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, "email = ?", normalizeEmail(email)).Error
	if err != nil {
		return models.User{}, errs.NewDatabaseError("find", "user", err)
	}
	return u, nil
}

// Add inserts a new user. Emails are unique, case-insensitively.
func (r *UserRepo) Add(ctx context.Context, u *models.User) error {
	u.Email = normalizeEmail(u.Email)
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return errs.NewDatabaseError("create", "user", err)
	}
	return nil
}

// ProfileUpdate carries the fields a user may change about themselves.
// Nil fields are left as they are.
type ProfileUpdate struct {
	Name     *string
	PhotoURL *string
	Bio      *string
	Address  *string
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) (models.User, error) {
	changes := map[string]any{}
	if p.Name != nil {
		changes["name"] = strings.TrimSpace(*p.Name)
	}
	if p.PhotoURL != nil {
		changes["photo_url"] = strings.TrimSpace(*p.PhotoURL)
	}
	if p.Bio != nil {
		changes["bio"] = *p.Bio
	}
	if p.Address != nil {
		changes["address"] = *p.Address
	}
	return r.update(ctx, id, changes)
}

func (r *UserRepo) SetRole(ctx context.Context, id uuid.UUID, role models.Role) (models.User, error) {
	return r.update(ctx, id, map[string]any{"role": role})
}

func (r *UserRepo) update(ctx context.Context, id uuid.UUID, changes map[string]any) (models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&u, "id = ?", id).Error; err != nil {
			return errs.NewDatabaseError("find", "user", err)
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&u).Updates(changes).Error; err != nil {
			return errs.NewDatabaseError("update", "user", err)
		}
		return tx.First(&u, "id = ?", id).Error
	})
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Delete removes a user together with their submissions and payments.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
			return errs.NewDatabaseError("delete", "submissions", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return errs.NewDatabaseError("delete", "payments", err)
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return errs.NewDatabaseError("delete", "user", res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.NewNotFound("user")
		}
		return nil
	})
}

// BootstrapAdmin promotes id to admin if no admin was ever bootstrapped.
// The fixed primary key of the bootstrap row makes a second attempt fail
// even when two requests race.
func (r *UserRepo) BootstrapAdmin(ctx context.Context, id uuid.UUID) (models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&u, "id = ?", id).Error; err != nil {
			return errs.NewDatabaseError("find", "user", err)
		}
		slot := models.AdminBootstrap{ID: models.AdminBootstrapSlot, UserID: id}
		if err := tx.Create(&slot).Error; err != nil {
			dbErr := errs.NewDatabaseError("create", "admin bootstrap", err)
			if errors.Is(dbErr, errs.ErrAlreadyExists) {
				return errs.NewConflictError("an admin has already been bootstrapped")
			}
			return dbErr
		}
		if err := tx.Model(&u).Update("role", models.RoleAdmin).Error; err != nil {
			return errs.NewDatabaseError("update", "user", err)
		}
		u.Role = models.RoleAdmin
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
