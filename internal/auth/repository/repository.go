package repository

import (
	authdomain "broadrange-backend/internal/auth/domain"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user and session data access
type UserRepository interface {
	Create(user *authdomain.User) error
	FindByEmail(email string) (*authdomain.User, error)
	FindByID(id string) (*authdomain.User, error)
	Update(user *authdomain.User) error

	SaveRefreshToken(token *authdomain.RefreshToken) error
	FindRefreshToken(token string) (*authdomain.RefreshToken, error)
	DeleteRefreshToken(token string) error
	DeleteRefreshTokensByUser(userID string) error
}

// DeviceTokenRepository defines the interface for push token operations
type DeviceTokenRepository interface {
	SaveToken(userID, token, deviceInfo string) error
	GetTokensByUserID(userID string) ([]authdomain.DeviceToken, error)
	DeleteToken(userID, token string) error
	// DeleteTokens removes tokens FCM reported as no longer valid
	DeleteTokens(tokens []string) error
}

// Migrate creates or updates the auth tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&authdomain.User{}, &authdomain.RefreshToken{}, &authdomain.DeviceToken{})
}
