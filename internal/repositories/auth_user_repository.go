package repositories

import "jsonplaceholder/internal/models"

// AuthUserRepository defines the interface for credential data access.
type AuthUserRepository interface {
	Create(authUser *models.AuthUser) error
	GetByEmail(email string) (*models.AuthUser, error)
	ExistsByEmail(email string) (bool, error)
	DeleteByUserID(userID uint) error
}
