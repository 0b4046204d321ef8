package repositories

import (
	"errors"
	"fmt"

	"jsonplaceholder/internal/models"

	"gorm.io/gorm"
)

// GORMAuthUserRepository is a GORM implementation of AuthUserRepository.
type GORMAuthUserRepository struct {
	db *gorm.DB
}

// NewGORMAuthUserRepository creates a new instance of GORMAuthUserRepository.
func NewGORMAuthUserRepository(db *gorm.DB) *GORMAuthUserRepository {
	return &GORMAuthUserRepository{
		db: db,
	}
}

// Create persists a new credential. The unique index on email makes the
// database the final arbiter when two registrations race; a violation is
// surfaced as ErrDuplicateEmail.
func (r *GORMAuthUserRepository) Create(authUser *models.AuthUser) error {
	if err := r.db.Create(authUser).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("auth user with email %s: %w", authUser.Email, ErrDuplicateEmail)
		}
		return fmt.Errorf("failed to create auth user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a credential with its linked user profile.
func (r *GORMAuthUserRepository) GetByEmail(email string) (*models.AuthUser, error) {
	var authUser models.AuthUser
	if err := r.db.Preload("User").First(&authUser, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("auth user with email %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get auth user by email %s: %w", email, err)
	}
	return &authUser, nil
}

// ExistsByEmail reports whether a credential with the given email exists.
func (r *GORMAuthUserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.AuthUser{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count auth users by email %s: %w", email, err)
	}
	return count > 0, nil
}

// DeleteByUserID removes any credential referencing the given user profile.
// Deleting zero rows is not an error: profiles created through the CRUD path
// have no credential.
func (r *GORMAuthUserRepository) DeleteByUserID(userID uint) error {
	if err := r.db.Delete(&models.AuthUser{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("failed to delete auth user for user %d: %w", userID, err)
	}
	return nil
}
