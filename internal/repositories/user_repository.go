package repositories

import (
	"errors"

	"jsonplaceholder/internal/models"
)

// Sentinel errors returned by repository implementations. Callers match them
// with errors.Is; the wrapped message carries the record context.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository defines the interface for user profile data access.
type UserRepository interface {
	GetAll() ([]models.User, error)
	GetByID(id uint) (*models.User, error)
	Create(user *models.User) error
	Update(user *models.User) error
	Delete(id uint) error
}
