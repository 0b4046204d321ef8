package models

// AuthUser is the private credential record created during registration.
// The unique index on Email is the final arbiter for concurrent registrations
// with the same address; the pre-check in the auth service only exists to fail
// fast. An AuthUser owns exactly one User profile via UserID; the profile has
// no back-reference.
type AuthUser struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"type:varchar(255)"`
	Email        string `gorm:"uniqueIndex;type:varchar(255)"`
	PasswordHash string `gorm:"type:varchar(255)"`
	UserID       uint   `gorm:"not null"`
	User         User   `gorm:"foreignKey:UserID"`
}
